// file: internals/features/payments/transactions/controller/transaction_controller.go
package controller

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	linkDTO "tutorhub_backend/internals/features/payments/links/dto"
	dto "tutorhub_backend/internals/features/payments/transactions/dto"
	svc "tutorhub_backend/internals/features/payments/transactions/service"
	helper "tutorhub_backend/internals/helpers"
	"tutorhub_backend/internals/helpers/cache"
	helperOSS "tutorhub_backend/internals/helpers/oss"
)

type TransactionController struct {
	DB       *gorm.DB
	Ledger   *svc.Ledger
	Receipts *svc.Receipts
	Exporter *svc.Exporter
	Cache    cache.Store
	CacheTTL time.Duration
}

func NewTransactionController(db *gorm.DB, ledger *svc.Ledger, receipts *svc.Receipts, exporter *svc.Exporter, store cache.Store, ttl time.Duration) *TransactionController {
	return &TransactionController{
		DB:       db,
		Ledger:   ledger,
		Receipts: receipts,
		Exporter: exporter,
		Cache:    store,
		CacheTTL: ttl,
	}
}

type txPage struct {
	Items      []dto.Transaction `json:"items"`
	Pagination helper.Pagination `json:"pagination"`
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params("id")))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// invalidateLedger drops every cached read a ledger write can change.
func invalidateLedger(c *fiber.Ctx, store cache.Store, linkID uuid.UUID, partialCompleted bool) {
	tags := append([]string{constants.TagLink(linkID)}, constants.LedgerTags...)
	if partialCompleted {
		tags = append(tags, constants.TagRemindersSent)
	}
	cache.Invalidate(c.UserContext(), store, tags...)
}

// GET /api/payments/transactions?status=&search=&dateFrom=&dateTo=&paymentLinkId=&page=&limit=
func (ctl *TransactionController) List(c *fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid query")
	}
	if err := helper.Validate.Struct(q); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	ctx := c.UserContext()
	key := "transactions:list:" + string(c.Request().URI().QueryString())
	page, err := cache.Remember(ctx, ctl.Cache, key, ctl.CacheTTL, []string{constants.TagTransactions},
		func() (txPage, error) {
			rows, pg, err := svc.List(ctx, ctl.DB, q)
			if err != nil {
				return txPage{}, err
			}
			return txPage{Items: dto.FromModels(rows), Pagination: pg}, nil
		})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonList(c, "ok", page.Items, &page.Pagination)
}

// POST /api/payments/transactions
func (ctl *TransactionController) Record(c *fiber.Ctx) error {
	var req dto.RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}

	out, err := ctl.Ledger.Record(c.UserContext(), svc.PaymentInput{
		LinkID:            req.PaymentLinkID,
		StudentName:       req.StudentName,
		Email:             req.Email,
		Phone:             req.Phone,
		StudentID:         req.StudentID,
		Class:             req.Class,
		ParentPhone:       req.ParentPhone,
		Amount:            req.Amount,
		Method:            req.Method,
		Reference:         req.Reference,
		CustomFieldValues: req.CustomFieldValues,
	})
	if err != nil {
		return helper.FromError(c, err)
	}
	invalidateLedger(c, ctl.Cache, req.PaymentLinkID, out.PartialCompleted)

	body := fiber.Map{
		"transaction": dto.FromModel(out.Transaction),
		"link":        linkDTO.FromModel(out.Link),
	}
	if out.Partial != nil {
		body["partialPaymentId"] = out.Partial.PartialPaymentID
		body["partialCompleted"] = out.PartialCompleted
	}
	return helper.JsonCreated(c, "payment recorded", body)
}

// POST /api/payments/transactions/send-receipt
func (ctl *TransactionController) SendReceipt(c *fiber.Ctx) error {
	var req dto.SendReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}
	to, err := ctl.Receipts.Send(c.UserContext(), &req)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "receipt sent", fiber.Map{"transactionId": req.TransactionID, "email": to})
}

// GET /api/payments/transactions/:id/receipt
func (ctl *TransactionController) Receipt(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	t, err := svc.Get(c.UserContext(), ctl.DB, id)
	if err != nil {
		return helper.FromError(c, err)
	}
	page, err := ctl.Receipts.HTML(c.UserContext(), t)
	if err != nil {
		return helper.FromError(c, err)
	}
	c.Type("html", "utf-8")
	return c.Send(page)
}

// POST /api/payments/transactions/export
func (ctl *TransactionController) Export(c *fiber.Ctx) error {
	var req dto.ExportRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := helper.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, helper.TranslateValidation(err))
	}
	url, err := ctl.Exporter.Export(c.UserContext(), req.Format, req.Filters)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "export ready", dto.ExportResponse{URL: url})
}

// POST /api/payments/links/:id/recount
func (ctl *TransactionController) Recount(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	link, err := ctl.Ledger.Recompute(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	invalidateLedger(c, ctl.Cache, id, false)
	return helper.JsonUpdated(c, "counters recomputed", linkDTO.FromModel(link))
}

// GET /api/payments/exports/:name
// Only mounted when exports are kept on local disk.
func ServeLocalExport(store *helperOSS.LocalStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, ok := store.Path(c.Params("name"))
		if !ok {
			return helper.JsonError(c, fiber.StatusNotFound, "export not found")
		}
		return c.Download(path)
	}
}
