// file: internals/features/payments/transactions/controller/checkout_controller.go
package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	linkSvc "tutorhub_backend/internals/features/payments/links/service"
	settingsSvc "tutorhub_backend/internals/features/payments/settings/service"
	dto "tutorhub_backend/internals/features/payments/transactions/dto"
	svc "tutorhub_backend/internals/features/payments/transactions/service"
	helper "tutorhub_backend/internals/helpers"
	"tutorhub_backend/internals/helpers/cache"
	"tutorhub_backend/internals/helpers/report"
)

type CheckoutController struct {
	DB        *gorm.DB
	Links     *linkSvc.Service
	Ledger    *svc.Ledger
	Gateway   svc.Gateway
	ServerKey string
	Cache     cache.Store
}

func NewCheckoutController(db *gorm.DB, links *linkSvc.Service, ledger *svc.Ledger, gw svc.Gateway, serverKey string, store cache.Store) *CheckoutController {
	return &CheckoutController{DB: db, Links: links, Ledger: ledger, Gateway: gw, ServerKey: serverKey, Cache: store}
}

// GET /api/payments/checkout/:slug
// Public view of a link for the pay page.
func (ctl *CheckoutController) Show(c *fiber.Ctx) error {
	m, err := ctl.Links.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", fiber.Map{
		"title":               m.PaymentLinkTitle,
		"description":         m.PaymentLinkDescription,
		"amount":              m.PaymentLinkAmount,
		"status":              m.PaymentLinkStatus,
		"expiresAt":           m.PaymentLinkExpiresAt,
		"allowPartialPayment": m.PaymentLinkAllowPartial,
		"minimumPayment":      m.PaymentLinkMinimumPayment,
		"customFields":        m.PaymentLinkCustomFields,
		"payable":             m.IsPayable(ctl.Links.Now()),
	})
}

// POST /api/payments/checkout/:slug
func (ctl *CheckoutController) Checkout(c *fiber.Ctx) error {
	if ctl.Gateway == nil {
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "online payment is not configured")
	}
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	ctx := c.UserContext()
	link, err := ctl.Links.GetBySlug(ctx, c.Params("slug"))
	if err != nil {
		return helper.FromError(c, err)
	}

	var fee int64
	if req.Method != "" {
		if fee, err = settingsSvc.FeePreview(ctx, ctl.DB, req.Method, req.Amount); err != nil {
			return helper.FromError(c, err)
		}
	}

	t, err := ctl.Ledger.OpenPending(ctx, svc.PaymentInput{
		LinkID:            link.PaymentLinkID,
		StudentName:       req.StudentName,
		Email:             req.Email,
		Phone:             req.Phone,
		StudentID:         req.StudentID,
		Class:             req.Class,
		ParentPhone:       req.ParentPhone,
		Amount:            req.Amount,
		Method:            req.Method,
		CustomFieldValues: req.CustomFieldValues,
	})
	if err != nil {
		return helper.FromError(c, err)
	}

	token, redirect, err := ctl.Gateway.CreateSnap(t, svc.Customer{Name: req.StudentName, Email: req.Email, Phone: req.Phone})
	if err != nil {
		report.Error("CHECKOUT", err, map[string]interface{}{"reference": t.TransactionReference})
		if _, ferr := ctl.Ledger.Fail(ctx, t.TransactionReference, "snap_error"); ferr != nil {
			log.Printf("[CHECKOUT] mark failed %s: %v", t.TransactionReference, ferr)
		}
		return helper.JsonError(c, fiber.StatusBadGateway, "payment gateway unavailable")
	}

	return helper.JsonCreated(c, "checkout created", dto.CheckoutResponse{
		Token:       token,
		RedirectURL: redirect,
		Reference:   t.TransactionReference,
		Amount:      t.TransactionAmount,
		Fee:         fee,
	})
}

// POST /api/payments/notifications/midtrans
// Business-rule rejections are acknowledged with 200 so Midtrans stops retrying;
// the transaction is marked Failed and the rejection reported.
func (ctl *CheckoutController) MidtransWebhook(c *fiber.Ctx) error {
	var n dto.MidtransNotification
	if err := c.BodyParser(&n); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid notification body")
	}
	if n.OrderID == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "order_id is required")
	}
	if ctl.ServerKey == "" || !svc.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, ctl.ServerKey, n.SignatureKey) {
		return helper.JsonError(c, fiber.StatusForbidden, "invalid signature")
	}

	ctx := c.UserContext()
	switch n.Outcome() {
	case dto.GatewaySettle:
		out, err := ctl.Ledger.Settle(ctx, n.OrderID, n.TransactionStatus, n.Meta())
		if errors.Is(err, svc.ErrTxNotFound) {
			report.Warn("MIDTRANS", "unknown order "+n.OrderID, nil)
			return helper.JsonOK(c, "ignored", nil)
		}
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			report.Warn("MIDTRANS", "settlement rejected for "+n.OrderID+": "+fe.Message, nil)
			if _, ferr := ctl.Ledger.Fail(ctx, n.OrderID, "rejected:"+n.TransactionStatus); ferr != nil {
				return helper.FromError(c, ferr)
			}
			cache.Invalidate(ctx, ctl.Cache, constants.TagTransactions)
			return helper.JsonOK(c, "rejected", fiber.Map{"reason": fe.Message})
		}
		if err != nil {
			return helper.FromError(c, err)
		}
		if !out.AlreadySettled {
			invalidateLedger(c, ctl.Cache, out.Transaction.TransactionLinkID, out.PartialCompleted)
		}
		return helper.JsonOK(c, "settled", fiber.Map{"reference": n.OrderID, "status": out.Transaction.TransactionStatus})

	case dto.GatewayFail:
		if _, err := ctl.Ledger.Fail(ctx, n.OrderID, n.TransactionStatus); err != nil {
			if errors.Is(err, svc.ErrTxNotFound) {
				return helper.JsonOK(c, "ignored", nil)
			}
			return helper.FromError(c, err)
		}
		cache.Invalidate(ctx, ctl.Cache, constants.TagTransactions)
		return helper.JsonOK(c, "failed", fiber.Map{"reference": n.OrderID})
	}
	return helper.JsonOK(c, "pending", fiber.Map{"reference": n.OrderID})
}
