package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	dto "tutorhub_backend/internals/features/payments/analytics/dto"
	svc "tutorhub_backend/internals/features/payments/analytics/service"
	helper "tutorhub_backend/internals/helpers"
	"tutorhub_backend/internals/helpers/cache"
)

type AnalyticsController struct {
	DB       *gorm.DB
	Cache    cache.Store
	CacheTTL time.Duration
	Now      func() time.Time
}

func NewAnalyticsController(db *gorm.DB, store cache.Store, ttl time.Duration) *AnalyticsController {
	return &AnalyticsController{DB: db, Cache: store, CacheTTL: ttl, Now: time.Now}
}

// GET /api/payments/analytics
func (ctl *AnalyticsController) Summary(c *fiber.Ctx) error {
	ctx := c.UserContext()
	out, err := cache.Remember(ctx, ctl.Cache, "analytics:summary", ctl.CacheTTL,
		[]string{constants.TagAnalytics},
		func() (dto.Summary, error) { return svc.Summary(ctx, ctl.DB, ctl.Now()) })
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}
