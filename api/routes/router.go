package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caroduarte/lumina-backend/api/controllers"
	webhookcontrollers "github.com/caroduarte/lumina-backend/api/controllers/webhooks"
	"github.com/caroduarte/lumina-backend/api/middleware"
	adminsvc "github.com/caroduarte/lumina-backend/internal/admin"
	authsvc "github.com/caroduarte/lumina-backend/internal/auth"
	cartsvc "github.com/caroduarte/lumina-backend/internal/cart"
	checkoutsvc "github.com/caroduarte/lumina-backend/internal/checkout"
	eventsvc "github.com/caroduarte/lumina-backend/internal/events"
	facesearchsvc "github.com/caroduarte/lumina-backend/internal/facesearch"
	photosvc "github.com/caroduarte/lumina-backend/internal/photos"
	purchasesvc "github.com/caroduarte/lumina-backend/internal/purchases"
	settingssvc "github.com/caroduarte/lumina-backend/internal/settings"
	stripewebhook "github.com/caroduarte/lumina-backend/internal/webhooks/stripe"
	"github.com/caroduarte/lumina-backend/pkg/auth/session"
	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/db"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/redis"
	"github.com/caroduarte/lumina-backend/pkg/stripe"
)

// Deps bundles everything the router mounts. All services are required;
// MetricsHandler is optional.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Sessions       session.Resolver
	AuthService    authsvc.Service
	EventService   eventsvc.Service
	PhotoService   photosvc.Service
	FaceSearch     facesearchsvc.Service
	CartService    cartsvc.Service
	Checkout       checkoutsvc.Service
	Purchases      purchasesvc.Service
	AdminService   adminsvc.Service
	Settings       settingssvc.Service
	StripeClient   *stripe.Client
	WebhookService *stripewebhook.Service
	WebhookGuard   *stripewebhook.IdempotencyGuard
	MetricsHandler http.Handler
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	// Raw-body route: signature verification needs the exact payload, so
	// no auth or idempotency middleware in front of it.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.WebhookService, d.StripeClient, d.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Viewer(cfg.JWT, d.Sessions, logg))

		idempotency := middleware.Idempotency(d.Redis, logg)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg), idempotency).Post("/register", controllers.AuthRegister(d.AuthService, logg))
			r.Post("/session", controllers.AuthSession(d.AuthService, logg))
			r.With(middleware.RequireAuth(logg)).Get("/me", controllers.AuthMe(d.AuthService, logg))
			r.With(middleware.RequireAuth(logg)).Post("/logout", controllers.AuthLogout(d.AuthService, logg))
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", controllers.EventList(d.EventService, logg))
			r.Get("/{eventId}", controllers.EventGet(d.EventService, logg))
			r.Get("/{eventId}/photos", controllers.PhotosByEvent(d.PhotoService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Post("/", controllers.EventCreate(d.EventService, logg))
				r.Patch("/{eventId}", controllers.EventUpdate(d.EventService, logg))
				r.Delete("/{eventId}", controllers.EventDelete(d.EventService, logg))
				r.Put("/{eventId}/cover", controllers.EventSetCover(d.EventService, logg))
				r.Post("/{eventId}/photos", controllers.PhotoUpload(d.PhotoService, logg))
			})
		})

		r.Route("/photos", func(r chi.Router) {
			r.Get("/{photoId}/rendition", controllers.PhotoRendition(d.PhotoService, logg))
			r.Post("/face-search", controllers.FaceSearch(d.FaceSearch, logg))
			r.With(middleware.RequireAdmin(logg)).Delete("/{photoId}", controllers.PhotoDelete(d.PhotoService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Get("/", controllers.CartView(d.CartService, logg))
			r.Post("/items", controllers.CartAdd(d.CartService, logg))
			r.Delete("/items/{photoId}", controllers.CartRemove(d.CartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.With(idempotency).Post("/", controllers.CheckoutCreate(d.Checkout, logg))
			r.Get("/{sessionId}", controllers.CheckoutStatus(d.Checkout, logg))
			r.Post("/{sessionId}/confirm", controllers.CheckoutConfirm(d.Checkout, logg))
		})

		r.With(middleware.RequireAuth(logg)).Get("/purchases", controllers.PurchaseList(d.Purchases, logg))

		r.Route("/settings/backgrounds", func(r chi.Router) {
			r.Get("/", controllers.BackgroundsGet(d.Settings, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Put("/", controllers.BackgroundsUpdate(d.Settings, logg))
				r.Post("/{key}/upload", controllers.BackgroundUpload(d.Settings, logg))
				r.Delete("/{key}", controllers.BackgroundReset(d.Settings, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/stats", controllers.AdminStats(d.AdminService, logg))
			r.Get("/clients", controllers.AdminClients(d.AdminService, logg))
			r.Patch("/users/{userId}/role", controllers.AdminUpdateRole(d.AdminService, logg))
		})
	})

	return r
}
