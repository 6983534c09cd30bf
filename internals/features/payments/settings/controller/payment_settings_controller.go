// file: internals/features/payments/settings/controller/payment_settings_controller.go
package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	dto "tutorhub_backend/internals/features/payments/settings/dto"
	model "tutorhub_backend/internals/features/payments/settings/model"
	svc "tutorhub_backend/internals/features/payments/settings/service"
	helper "tutorhub_backend/internals/helpers"
	helperAuth "tutorhub_backend/internals/helpers/auth"
	"tutorhub_backend/internals/helpers/cache"
)

type SettingsController struct {
	DB       *gorm.DB
	Cache    cache.Store
	CacheTTL time.Duration
}

func NewSettingsController(db *gorm.DB, store cache.Store, ttl time.Duration) *SettingsController {
	return &SettingsController{DB: db, Cache: store, CacheTTL: ttl}
}

// GET /api/payments/settings
func (ctl *SettingsController) Get(c *fiber.Ctx) error {
	ctx := c.UserContext()
	out, err := cache.Remember(ctx, ctl.Cache, "settings", ctl.CacheTTL,
		[]string{constants.TagSettings},
		func() (model.Settings, error) { return svc.Load(ctx, ctl.DB) })
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}

// PUT /api/payments/settings
func (ctl *SettingsController) Update(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	out, err := svc.Save(c.UserContext(), ctl.DB, model.Section(req.Section), req.Data, helperAuth.ActorName(c))
	if err != nil {
		return helper.FromError(c, err)
	}
	cache.Invalidate(c.UserContext(), ctl.Cache, constants.TagSettings)
	return helper.JsonUpdated(c, "settings saved", out)
}

// POST /api/payments/settings/fee-preview
func (ctl *SettingsController) FeePreview(c *fiber.Ctx) error {
	var req dto.FeePreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}
	fee, err := svc.FeePreview(c.UserContext(), ctl.DB, req.Method, req.Amount)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.FeePreviewResponse{
		Method: req.Method,
		Amount: req.Amount,
		Fee:    fee,
		Total:  req.Amount + fee,
	})
}
