package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedlift/feedlift-backend/api/controllers"
	webhookcontrollers "github.com/feedlift/feedlift-backend/api/controllers/webhooks"
	"github.com/feedlift/feedlift-backend/api/middleware"
	"github.com/feedlift/feedlift-backend/internal/assist"
	"github.com/feedlift/feedlift-backend/internal/messaging"
	"github.com/feedlift/feedlift-backend/internal/notifications"
	"github.com/feedlift/feedlift-backend/internal/orders"
	"github.com/feedlift/feedlift-backend/internal/payments"
	internalsync "github.com/feedlift/feedlift-backend/internal/sync"
	"github.com/feedlift/feedlift-backend/pkg/config"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Orders        orders.Service
	Payments      payments.Service
	Sync          internalsync.Service
	Subscriptions notifications.Subscriptions
	Assist        assist.Service
	Messaging     messaging.Service
}

// Dependencies carries the infrastructure handles used by health checks.
type Dependencies struct {
	DB    controllers.Pinger
	Redis controllers.Pinger
}

type paymentSignatureVerifier interface {
	VerifyWebhookSignature(signatureHeader, requestID, dataID string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	deps Dependencies,
	services Services,
	paymentVerifier paymentSignatureVerifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPago(services.Payments, paymentVerifier, logg))
		r.Post("/evolution", webhookcontrollers.Evolution(services.Messaging, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(services.Orders, logg))
			r.Get("/", controllers.ListOrders(services.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(services.Orders, logg))
			r.Post("/{orderId}/payment", controllers.InitiatePayment(services.Payments, logg))
		})

		r.Post("/notifications/subscriptions", controllers.SubscriptionAction(services.Subscriptions, logg))
		r.Post("/assist/generate", controllers.Generate(services.Assist, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/sync", func(r chi.Router) {
			r.Post("/auto", controllers.AutoSync(services.Sync, logg))
			r.Post("/orders/{orderId}", controllers.SyncOrder(services.Sync, logg))
		})
	})

	return r
}
