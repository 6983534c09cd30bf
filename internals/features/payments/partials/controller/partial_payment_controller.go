package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	dto "tutorhub_backend/internals/features/payments/partials/dto"
	model "tutorhub_backend/internals/features/payments/partials/model"
	svc "tutorhub_backend/internals/features/payments/partials/service"
	helper "tutorhub_backend/internals/helpers"
	"tutorhub_backend/internals/helpers/cache"
)

type PartialPaymentController struct {
	DB       *gorm.DB
	Cache    cache.Store
	CacheTTL time.Duration
}

func NewPartialPaymentController(db *gorm.DB, store cache.Store, ttl time.Duration) *PartialPaymentController {
	return &PartialPaymentController{DB: db, Cache: store, CacheTTL: ttl}
}

type partialPage struct {
	Items  []dto.PartialPayment `json:"items"`
	Counts model.Counts         `json:"counts"`
}

// GET /api/payments/partial?status=&paymentLinkId=&search=
func (ctl *PartialPaymentController) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid query")
	}
	if err := helper.Validate.Struct(q); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	ctx := c.UserContext()
	key := "partials:list:" + string(c.Request().URI().QueryString())
	page, err := cache.Remember(ctx, ctl.Cache, key, ctl.CacheTTL, []string{constants.TagPartials},
		func() (partialPage, error) {
			rows, err := svc.List(ctx, ctl.DB, q)
			if err != nil {
				return partialPage{}, err
			}
			return partialPage{Items: dto.FromModels(rows), Counts: model.CountByStatus(rows)}, nil
		})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonListEx(c, "ok", page.Items, nil, page.Counts)
}
