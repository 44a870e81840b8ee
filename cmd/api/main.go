package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caroduarte/lumina-backend/api/routes"
	"github.com/caroduarte/lumina-backend/internal/admin"
	authsvc "github.com/caroduarte/lumina-backend/internal/auth"
	"github.com/caroduarte/lumina-backend/internal/cart"
	checkoutsvc "github.com/caroduarte/lumina-backend/internal/checkout"
	"github.com/caroduarte/lumina-backend/internal/events"
	"github.com/caroduarte/lumina-backend/internal/facesearch"
	"github.com/caroduarte/lumina-backend/internal/photos"
	"github.com/caroduarte/lumina-backend/internal/purchases"
	"github.com/caroduarte/lumina-backend/internal/settings"
	"github.com/caroduarte/lumina-backend/internal/users"
	stripewebhook "github.com/caroduarte/lumina-backend/internal/webhooks/stripe"
	"github.com/caroduarte/lumina-backend/pkg/auth/session"
	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/db"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/metrics"
	"github.com/caroduarte/lumina-backend/pkg/migrate"
	"github.com/caroduarte/lumina-backend/pkg/redis"
	"github.com/caroduarte/lumina-backend/pkg/storage/cloudinary"
	pkgstripe "github.com/caroduarte/lumina-backend/pkg/stripe"
	"github.com/caroduarte/lumina-backend/pkg/vision"
)

const webhookGuardTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())

	if err := authsvc.SeedAdminUser(context.Background(), userRepo, cfg.AdminSeed, cfg.Password, logg); err != nil {
		logg.Error(context.Background(), "failed to seed admin user", err)
		os.Exit(1)
	}

	var oauthClient *authsvc.OAuthClient
	if cfg.OAuth.SessionDataURL != "" {
		oauthClient, err = authsvc.NewOAuthClient(cfg.OAuth.SessionDataURL)
		if err != nil {
			logg.Error(context.Background(), "failed to create oauth client", err)
			os.Exit(1)
		}
	}

	authParams := authsvc.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	}
	if oauthClient != nil {
		authParams.OAuthClient = oauthClient
	}
	authService, err := authsvc.NewService(authParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	cloudinaryClient, err := cloudinary.NewClient(context.Background(), cfg.Cloudinary, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cloudinary client", err)
		os.Exit(1)
	}

	eventRepo := events.NewRepository(dbClient.DB())
	photoRepo := photos.NewRepository(dbClient.DB())
	purchaseRepo := purchases.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	checkoutRepo := checkoutsvc.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Repo:   purchaseRepo,
		Photos: photoRepo,
		URLs:   cloudinaryClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	eventService, err := events.NewService(events.ServiceParams{
		Repo:   eventRepo,
		Photos: photoRepo,
		URLs:   cloudinaryClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create events service", err)
		os.Exit(1)
	}

	photoService, err := photos.NewService(photos.ServiceParams{
		Repo:      photoRepo,
		Events:    eventRepo,
		Ownership: purchaseService,
		Assets:    cloudinaryClient,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create photos service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:      cartRepo,
		Photos:    photoRepo,
		Ownership: purchaseService,
		URLs:      cloudinaryClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Tx:           dbClient,
		Repo:         checkoutRepo,
		Cart:         cartRepo,
		Ledger:       purchaseService,
		StripeClient: checkoutsvc.NewStripeClient(stripeClient),
		Metrics:      checkoutMetrics,
		Logger:       logg,
		StripeConfig: cfg.Stripe,
		PollConfig:   cfg.Checkout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Reconciler: checkoutService,
		Metrics:    checkoutMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	visionOpts := []vision.Option{}
	if cfg.Vision.BaseURL != "" {
		visionOpts = append(visionOpts, vision.WithBaseURL(cfg.Vision.BaseURL))
	}
	if cfg.Vision.Model != "" {
		visionOpts = append(visionOpts, vision.WithModel(cfg.Vision.Model))
	}
	visionClient, err := vision.NewClient(cfg.Vision.APIKey, visionOpts...)
	if err != nil {
		logg.Error(context.Background(), "failed to create vision client", err)
		os.Exit(1)
	}

	faceSearchService, err := facesearch.NewService(facesearch.ServiceParams{
		Vision: visionClient,
		Events: eventRepo,
		Photos: photoRepo,
		Assets: cloudinaryClient,
		URLs:   cloudinaryClient,
		Logger: logg,
		Config: cfg.Vision,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create face search service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repo:     settingsRepo,
		Uploader: settings.NewCloudinaryUploader(cloudinaryClient),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Events:    eventRepo,
		Photos:    photoRepo,
		Users:     userRepo,
		Purchases: purchaseRepo,
		Revenue:   checkoutRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		AuthService:    authService,
		EventService:   eventService,
		PhotoService:   photoService,
		FaceSearch:     faceSearchService,
		CartService:    cartService,
		Checkout:       checkoutService,
		Purchases:      purchaseService,
		AdminService:   adminService,
		Settings:       settingsService,
		StripeClient:   stripeClient,
		WebhookService: webhookService,
		WebhookGuard:   webhookGuard,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(ctx, "shutting down on signal "+sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
