// file: internals/route/details/payments_routes.go
package details

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tutorhub_backend/internals/constants"
	analyticsCtrl "tutorhub_backend/internals/features/payments/analytics/controller"
	analyticsRoute "tutorhub_backend/internals/features/payments/analytics/route"
	linkCtrl "tutorhub_backend/internals/features/payments/links/controller"
	linkRoute "tutorhub_backend/internals/features/payments/links/route"
	linkSvc "tutorhub_backend/internals/features/payments/links/service"
	partialCtrl "tutorhub_backend/internals/features/payments/partials/controller"
	partialRoute "tutorhub_backend/internals/features/payments/partials/route"
	remCtrl "tutorhub_backend/internals/features/payments/reminders/controller"
	remRoute "tutorhub_backend/internals/features/payments/reminders/route"
	remSvc "tutorhub_backend/internals/features/payments/reminders/service"
	settingsCtrl "tutorhub_backend/internals/features/payments/settings/controller"
	settingsRoute "tutorhub_backend/internals/features/payments/settings/route"
	txCtrl "tutorhub_backend/internals/features/payments/transactions/controller"
	txRoute "tutorhub_backend/internals/features/payments/transactions/route"
	txSvc "tutorhub_backend/internals/features/payments/transactions/service"
	"tutorhub_backend/internals/helpers/cache"
	"tutorhub_backend/internals/helpers/notify"
	helperOSS "tutorhub_backend/internals/helpers/oss"
	"tutorhub_backend/internals/middlewares"
	authPayments "tutorhub_backend/internals/middlewares/auth_payments"
)

// PaymentsDeps is everything the payments feature needs from bootstrap.
type PaymentsDeps struct {
	DB               *gorm.DB
	Cache            cache.Store
	CacheTTL         time.Duration
	Sender           notify.Sender
	Exports          helperOSS.ExportStore
	LocalExports     *helperOSS.LocalStore // set when exports live on local disk
	Gateway          txSvc.Gateway
	MidtransKey      string
	PayBaseURL       string
	PublicAPIBaseURL string
	JWTSecret        string
}

// PaymentsServices are shared between HTTP handlers and the scheduler.
type PaymentsServices struct {
	Links     *linkSvc.Service
	Ledger    *txSvc.Ledger
	Receipts  *txSvc.Receipts
	Exporter  *txSvc.Exporter
	Reminders *remSvc.Service
}

func NewPaymentsServices(d PaymentsDeps) (*PaymentsServices, error) {
	receipts, err := txSvc.NewReceipts(d.DB, d.Sender)
	if err != nil {
		return nil, err
	}
	return &PaymentsServices{
		Links:     linkSvc.New(d.DB, d.PayBaseURL),
		Ledger:    txSvc.NewLedger(d.DB),
		Receipts:  receipts,
		Exporter:  txSvc.NewExporter(d.DB, d.Exports),
		Reminders: remSvc.New(d.DB, d.Sender, d.PublicAPIBaseURL),
	}, nil
}

// PaymentsRoutes mounts /payments on api: public checkout, gateway and tracking
// endpoints first, then the staff endpoints behind JWT + role check.
func PaymentsRoutes(api fiber.Router, d PaymentsDeps, s *PaymentsServices) {
	links := linkCtrl.NewPaymentLinkController(s.Links, d.Cache, d.CacheTTL)
	txs := txCtrl.NewTransactionController(d.DB, s.Ledger, s.Receipts, s.Exporter, d.Cache, d.CacheTTL)
	checkout := txCtrl.NewCheckoutController(d.DB, s.Links, s.Ledger, d.Gateway, d.MidtransKey, d.Cache)
	partials := partialCtrl.NewPartialPaymentController(d.DB, d.Cache, d.CacheTTL)
	reminders := remCtrl.NewReminderController(s.Reminders, d.Cache, d.CacheTTL)
	settings := settingsCtrl.NewSettingsController(d.DB, d.Cache, d.CacheTTL)
	analytics := analyticsCtrl.NewAnalyticsController(d.DB, d.Cache, d.CacheTTL)

	public := api.Group("/payments")
	txRoute.CheckoutRoutes(public, checkout, middlewares.CheckoutRateLimiter())
	remRoute.ReminderTrackingRoutes(public, reminders)
	if d.LocalExports != nil {
		public.Get("/exports/:name", txCtrl.ServeLocalExport(d.LocalExports))
	}

	staff := api.Group("/payments",
		authPayments.AuthJWT(authPayments.AuthJWTOpts{Secret: d.JWTSecret, AllowCookieFallback: true}),
		authPayments.RequirePaymentStaff(constants.FeaturePayments),
	)
	linkRoute.PaymentLinkRoutes(staff, links)
	txRoute.TransactionRoutes(staff, txs)
	partialRoute.PartialPaymentRoutes(staff, partials)
	remRoute.ReminderRoutes(staff, reminders)
	settingsRoute.SettingsRoutes(staff, settings)
	analyticsRoute.AnalyticsRoutes(staff, analytics)
}
