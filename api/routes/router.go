package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aquafindr/aquafindr-backend/api/controllers"
	bookingcontrollers "github.com/aquafindr/aquafindr-backend/api/controllers/bookings"
	webhookcontrollers "github.com/aquafindr/aquafindr-backend/api/controllers/webhooks"
	"github.com/aquafindr/aquafindr-backend/api/middleware"
	"github.com/aquafindr/aquafindr-backend/internal/bookings"
	"github.com/aquafindr/aquafindr-backend/internal/catalog"
	"github.com/aquafindr/aquafindr-backend/internal/invoices"
	"github.com/aquafindr/aquafindr-backend/internal/notifications"
	"github.com/aquafindr/aquafindr-backend/internal/settlement"
	"github.com/aquafindr/aquafindr-backend/internal/wallet"
	"github.com/aquafindr/aquafindr-backend/pkg/config"
	"github.com/aquafindr/aquafindr-backend/pkg/gateway"
	"github.com/aquafindr/aquafindr-backend/pkg/logger"
	"github.com/aquafindr/aquafindr-backend/pkg/outbox/idempotency"
	pkgredis "github.com/aquafindr/aquafindr-backend/pkg/redis"
)

// Deps carries everything the HTTP surface is wired from.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *pkgredis.Client
	Gateway        *gateway.Client
	WebhookGuard   *idempotency.Manager
	Readiness      map[string]controllers.Pinger
	Bookings       bookings.Service
	Catalog        catalog.Service
	Wallet         wallet.Service
	Notifications  notifications.Service
	Settlement     settlement.Service
	CreditRecovery *settlement.CreditRecovery
	Invoices       invoices.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(deps.Settlement, deps.Gateway, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/services", func(r chi.Router) {
			r.Get("/", controllers.ListSurveyServices(deps.Catalog, logg))
			r.Get("/{serviceId}", controllers.SurveyServiceDetail(deps.Catalog, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.With(middleware.RequireRole("customer", logg)).Post("/", bookingcontrollers.Create(deps.Bookings, logg))
			r.Get("/", bookingcontrollers.List(deps.Bookings, logg))
			r.Get("/{bookingId}", bookingcontrollers.Detail(deps.Bookings, logg))
			r.With(middleware.RequireRole("customer", logg)).Post("/{bookingId}/cancel", bookingcontrollers.Cancel(deps.Bookings, logg))
			r.With(middleware.RequireRole("customer", logg)).Post("/{bookingId}/pay", controllers.PayInstallment(deps.Settlement, logg))
			r.Get("/{bookingId}/invoice", controllers.BookingInvoice(deps.Invoices, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole("vendor", logg))
			r.Route("/bookings/{bookingId}", func(r chi.Router) {
				r.Post("/accept", bookingcontrollers.Accept(deps.Bookings, logg))
				r.Post("/reject", bookingcontrollers.Reject(deps.Bookings, logg))
				r.Post("/cancel", bookingcontrollers.VendorCancel(deps.Bookings, logg))
				r.Post("/visit", bookingcontrollers.MarkVisited(deps.Bookings, logg))
				r.Post("/report", bookingcontrollers.UploadReport(deps.Bookings, logg))
				r.Post("/borewell", bookingcontrollers.UploadBorewell(deps.Bookings, logg))
				r.Post("/complete", bookingcontrollers.MarkCompleted(deps.Bookings, logg))
				r.Post("/travel-charges", bookingcontrollers.RequestTravelCharges(deps.Bookings, logg))
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", controllers.WalletBalance(deps.Wallet, logg))
				r.Get("/transactions", controllers.WalletTransactions(deps.Wallet, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/bookings/{bookingId}", func(r chi.Router) {
			r.Post("/report/approve", controllers.AdminApproveReport(deps.Settlement, logg))
			r.Post("/travel-charges/decision", controllers.AdminDecideTravelCharges(deps.Settlement, logg))
		})
		r.Post("/wallet/transactions/{transactionId}/retry", controllers.AdminRetryWalletCredit(deps.CreditRecovery, logg))
	})

	return r
}
