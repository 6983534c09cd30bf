// file: internals/features/payments/links/controller/payment_link_controller.go
package controller

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"tutorhub_backend/internals/constants"
	dto "tutorhub_backend/internals/features/payments/links/dto"
	model "tutorhub_backend/internals/features/payments/links/model"
	svc "tutorhub_backend/internals/features/payments/links/service"
	helper "tutorhub_backend/internals/helpers"
	helperAuth "tutorhub_backend/internals/helpers/auth"
	"tutorhub_backend/internals/helpers/cache"
)

type PaymentLinkController struct {
	Svc      *svc.Service
	Cache    cache.Store
	CacheTTL time.Duration
}

func NewPaymentLinkController(s *svc.Service, store cache.Store, ttl time.Duration) *PaymentLinkController {
	return &PaymentLinkController{Svc: s, Cache: store, CacheTTL: ttl}
}

type linkPage struct {
	Items      []dto.PaymentLink `json:"items"`
	Pagination helper.Pagination `json:"pagination"`
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (ctl *PaymentLinkController) invalidate(c *fiber.Ctx, id uuid.UUID) {
	cache.Invalidate(c.UserContext(), ctl.Cache, constants.TagLinks, constants.TagLink(id), constants.TagAnalytics)
}

// GET /api/payments/links?status=&search=&page=&limit=
func (ctl *PaymentLinkController) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid query")
	}
	if err := helper.Validate.Struct(q); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	ctx := c.UserContext()
	key := "links:list:" + string(c.Request().URI().QueryString())
	page, err := cache.Remember(ctx, ctl.Cache, key, ctl.CacheTTL, []string{constants.TagLinks},
		func() (linkPage, error) {
			rows, pg, err := ctl.Svc.List(ctx, q)
			if err != nil {
				return linkPage{}, err
			}
			return linkPage{Items: dto.FromModels(rows), Pagination: pg}, nil
		})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonList(c, "ok", page.Items, &page.Pagination)
}

// GET /api/payments/links/:id
func (ctl *PaymentLinkController) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	ctx := c.UserContext()
	out, err := cache.Remember(ctx, ctl.Cache, "links:one:"+id.String(), ctl.CacheTTL,
		[]string{constants.TagLink(id)},
		func() (dto.PaymentLink, error) {
			m, err := ctl.Svc.Get(ctx, id)
			if err != nil {
				return dto.PaymentLink{}, err
			}
			return dto.FromModel(m), nil
		})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}

// POST /api/payments/links
func (ctl *PaymentLinkController) Create(c *fiber.Ctx) error {
	var req dto.CreatePaymentLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	m, err := ctl.Svc.Create(c.UserContext(), &req, helperAuth.ActorName(c))
	if err != nil {
		return helper.FromError(c, err)
	}
	ctl.invalidate(c, m.PaymentLinkID)
	return helper.JsonCreated(c, "payment link created", dto.FromModel(m))
}

// PATCH /api/payments/links/:id
func (ctl *PaymentLinkController) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var patch dto.PatchPaymentLinkRequest
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if v := patch.PartialPercentage.Value; v != nil && (*v < model.MinPartialPercentage || *v > model.MaxPartialPercentage) {
		return helper.JsonValidationError(c, map[string][]string{
			"partialPercentage": {"partialPercentage must be between 10 and 90"},
		})
	}
	if v := patch.MaxPayments.Value; v != nil && *v < 0 {
		return helper.JsonValidationError(c, map[string][]string{
			"maxPayments": {"maxPayments must be 0 or greater"},
		})
	}

	m, err := ctl.Svc.Update(c.UserContext(), id, &patch)
	if err != nil {
		return helper.FromError(c, err)
	}
	ctl.invalidate(c, id)
	return helper.JsonUpdated(c, "payment link updated", dto.FromModel(m))
}

// PUT /api/payments/links/:id/status
// Empty body toggles Active/Paused; {"status": "..."} sets it explicitly.
func (ctl *PaymentLinkController) UpdateStatus(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.UpdateStatusRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
		}
		if err := helper.Validate.Struct(req); err != nil {
			return helper.JsonValidationError(c, helper.TranslateValidation(err))
		}
	}

	var m *model.PaymentLink
	if req.Status == "" {
		m, err = ctl.Svc.Toggle(c.UserContext(), id)
	} else {
		m, err = ctl.Svc.SetStatus(c.UserContext(), id, model.LinkStatus(req.Status))
	}
	if err != nil {
		return helper.FromError(c, err)
	}
	ctl.invalidate(c, id)
	return helper.JsonUpdated(c, "status updated", dto.FromModel(m))
}

// DELETE /api/payments/links/:id
func (ctl *PaymentLinkController) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := ctl.Svc.Delete(c.UserContext(), id); err != nil {
		return helper.FromError(c, err)
	}
	ctl.invalidate(c, id)
	return helper.JsonDeleted(c, "payment link deleted", fiber.Map{"id": id})
}
