package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bricollano/server/internal/infra/httpclient"
	"github.com/bricollano/server/internal/module/booking"
	"github.com/bricollano/server/internal/module/catalog"
	"github.com/bricollano/server/internal/module/media"
	"github.com/bricollano/server/internal/module/message"
	"github.com/bricollano/server/internal/module/payment"
	"github.com/bricollano/server/internal/module/payment/provider"
	"github.com/bricollano/server/internal/module/user"
	"github.com/bricollano/server/internal/shared/cache"
	"github.com/bricollano/server/internal/shared/config"
	"github.com/bricollano/server/internal/shared/database"
	"github.com/bricollano/server/internal/shared/events"
	"github.com/bricollano/server/internal/shared/logger"
	"github.com/bricollano/server/internal/utils/metrics"
	"github.com/bricollano/server/internal/utils/middleware"
)

// App wires the service together: database, redis, event publisher, payment
// gateways and the HTTP router.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	publisher *events.Publisher
	metrics   *metrics.Metrics
	router    *gin.Engine
	logger    *zap.Logger
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New("bricollano"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := database.Migrate(db,
		&user.User{},
		&user.RefreshToken{},
		&catalog.Category{},
		&catalog.Service{},
		&catalog.WorkerProfile{},
		&booking.Booking{},
		&payment.Payment{},
		&payment.WebhookEvent{},
		&payment.Reconciliation{},
		&message.Conversation{},
		&message.Message{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, idempotency and chat fanout disabled", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := events.NewPublisher(&cfg.RabbitMQ, log)
		if err != nil {
			log.Warn("rabbitmq connection failed, events disabled", zap.Error(err))
		} else {
			app.publisher = publisher
		}
	}

	app.router = app.buildRouter()
	return app, nil
}

// buildRouter assembles the gin router with all modules mounted.
func (a *App) buildRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(a.metrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	// Payment gateways. Stripe runs behind a circuit breaker with a per-call
	// timeout; Coinbase shares a pooled HTTP client.
	stripeProvider := provider.WithBreaker(
		provider.NewStripeProvider(&provider.StripeConfig{
			APIKey:        a.config.Stripe.APIKey,
			WebhookSecret: a.config.Stripe.WebhookSecret,
		}),
		a.config.Stripe.CallTimeout,
	)
	coinbaseProvider := provider.NewCoinbaseProvider(&provider.CoinbaseConfig{
		APIKey:        a.config.Coinbase.APIKey,
		BaseURL:       a.config.Coinbase.BaseURL,
		WebhookSecret: a.config.Coinbase.WebhookSecret,
	}, httpclient.New(httpclient.DefaultConfig()))

	registry := payment.NewProviderRegistry()
	registry.RegisterCard(stripeProvider)
	registry.RegisterCrypto(coinbaseProvider)

	policy, err := payment.NewPolicy(a.config.Payment.RefundPercent)
	if err != nil {
		a.logger.Fatal("invalid refund percent", zap.Error(err))
	}

	var paymentPublisher payment.EventPublisher
	var bookingPublisher booking.EventPublisher
	if a.publisher != nil {
		paymentPublisher = a.publisher
		bookingPublisher = a.publisher
	}

	paymentRepo := payment.NewRepository(a.db)
	paymentService := payment.NewService(
		paymentRepo, registry, policy, a.config.Payment.Currency,
		paymentPublisher, a.metrics, a.logger,
	)
	poller := payment.NewChargePoller(paymentService, a.config.Coinbase.PollInterval, a.logger)

	bookingRepo := booking.NewRepository(a.db)
	bookingService := booking.NewService(
		bookingRepo, paymentService, bookingPublisher, a.metrics, a.logger,
	)

	jwtManager := user.NewJWTManager(&user.JWTConfig{
		Secret:             a.config.Auth.JWTSecret,
		AccessTokenExpiry:  a.config.Auth.AccessTokenExpiry,
		RefreshTokenExpiry: a.config.Auth.RefreshTokenExpiry,
	})
	userService := user.NewService(user.NewRepository(a.db), jwtManager, a.logger)
	catalogService := catalog.NewService(catalog.NewRepository(a.db), a.config.Payment.Currency, a.logger)

	bookingHandler := booking.NewHandler(bookingService)
	paymentHandler := payment.NewHandler(paymentService, poller)
	webhookHandler := payment.NewWebhookHandler(paymentService, bookingService, a.logger)
	userHandler := user.NewHandler(userService)
	catalogHandler := catalog.NewHandler(catalogService)

	var idempotency gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if a.redis != nil {
		idempotency = middleware.Idempotency(a.redis, 24*time.Hour)
	}

	api := r.Group("/api/v1")

	userHandler.RegisterPublicRoutes(api)
	catalogHandler.RegisterPublicRoutes(api)
	webhookHandler.RegisterRoutes(api.Group("/webhooks"))

	authed := api.Group("", middleware.RequireAuth(jwtManager))
	userHandler.RegisterRoutes(authed)
	catalogHandler.RegisterRoutes(authed)
	bookingHandler.RegisterRoutes(authed, idempotency)
	paymentHandler.RegisterRoutes(authed)

	if a.redis != nil {
		messageService := message.NewService(message.NewRepository(a.db), a.redis, a.logger)
		message.NewHandler(messageService).RegisterRoutes(authed)
	}

	if store, err := media.NewStorage(&a.config.Storage); err != nil {
		a.logger.Warn("media storage disabled", zap.Error(err))
	} else {
		mediaService := media.NewService(store, a.logger)
		media.NewHandler(mediaService).RegisterRoutes(authed)
	}

	return r
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases the application's resources.
func (a *App) Stop() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
