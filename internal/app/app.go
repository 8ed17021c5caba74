package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"openspots/internal/clock"
	"openspots/internal/config"
	httpserver "openspots/internal/http"
	"openspots/internal/http/handlers"
	"openspots/internal/http/middleware"
	"openspots/internal/mailer"
	"openspots/internal/payments"
	redisstore "openspots/internal/redis"
	"openspots/internal/repository"
	"openspots/internal/sensors"
	"openspots/internal/service"
	"openspots/internal/store"
	"openspots/internal/ws"
	libredis "openspots/libs/redis"
)

const occupancyCacheTTL = 24 * time.Hour

// App wires the service dependency graph. Redis, Stripe, mail and the
// sensor feed are all optional; the core session lifecycle runs on Mongo
// alone.
type App struct {
	server      *httpserver.Server
	sweeper     *service.Sweeper
	consumer    *sensors.Consumer
	mongoClient *mongo.Client
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	mongoClient, err := store.NewMongoClient(cfg.Mongo.URI, cfg.Mongo.MaxPool, cfg.Mongo.MinPool)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var occupancyCache *redisstore.Store
	if cfg.Redis.Addr != "" {
		redisClient, err = libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			disconnect(mongoClient, logger)
			return nil, err
		}
		occupancyCache = redisstore.NewStore(redisClient, occupancyCacheTTL)
	}

	zoneRepo := repository.NewZoneRepository(mongoClient, cfg.Mongo.Database)
	sessionRepo := repository.NewSessionRepository(mongoClient, cfg.Mongo.Database)
	userRepo := repository.NewUserRepository(mongoClient, cfg.Mongo.Database)
	reservationRepo := repository.NewReservationRepository(mongoClient, cfg.Mongo.Database)

	clk := clock.NewSystem()
	hub := ws.NewHub(logger)

	var notifier service.Notifier
	var paymentNotifier payments.Notifier
	if cfg.Email.ResendAPIKey != "" {
		m, err := mailer.New(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.BaseURL, cfg.Email.SupportEmail, logger)
		if err != nil {
			disconnect(mongoClient, logger)
			return nil, err
		}
		notifier = m
		paymentNotifier = m
	}

	occupancy := service.NewOccupancy(zoneRepo, occupancyCache, hub, clk, logger)
	parkingService := service.NewParkingService(sessionRepo, zoneRepo, userRepo, occupancy, notifier, hub, clk, logger)
	sweeper := service.NewSweeper(sessionRepo, zoneRepo, userRepo, notifier, hub, clk, service.SweeperConfig{
		PendingWindow:   cfg.Parking.PendingWindow,
		PendingInterval: cfg.Parking.PendingInterval,
		AccrualInterval: cfg.Parking.AccrualInterval,
	}, logger)

	var occupancyReader handlers.OccupancyReader
	if occupancyCache != nil {
		occupancyReader = occupancyCache
	}

	auth := middleware.AuthMiddleware(cfg.Auth.JWTSecret)
	routes := httpserver.Routes{
		CreatePending:  auth(handlers.NewCreatePendingHandler(parkingService, logger)),
		ConfirmSession: auth(handlers.NewConfirmSessionHandler(parkingService, logger)),
		EndSession:     auth(handlers.NewEndSessionHandler(parkingService, logger)),
		StartSession:   auth(handlers.NewLockSpotHandler(parkingService, logger)),
		LockSpot:       auth(handlers.NewLockSpotHandler(parkingService, logger)),
		SessionsMe:     auth(handlers.NewSessionsMeHandler(parkingService)),
		SpotStatus:     handlers.NewSpotStatusHandler(zoneRepo, occupancyReader),
		Watch:          handlers.NewWatchHandler(hub, logger),
		Health:         handlers.NewHealthHandler(),
		Metrics:        promhttp.Handler(),
	}

	if cfg.Stripe.SecretKey != "" {
		stripeClient := payments.NewStripeClient(cfg.Stripe.SecretKey)
		webhookService := payments.NewService(userRepo, reservationRepo, stripeClient, paymentNotifier, clk, logger)
		routes.StripeWebhook = handlers.NewStripeWebhookHandler(webhookService, cfg.Stripe.WebhookSecret, logger)
		routes.Checkout = auth(handlers.NewCheckoutHandler(stripeClient, cfg.BaseURL, logger))
	}

	var consumer *sensors.Consumer
	if cfg.AMQP.URL != "" {
		consumer = sensors.NewConsumer(cfg.AMQP.URL, cfg.AMQP.Queue, zoneRepo, occupancy, occupancyCache, logger)
	}

	router := middleware.Metrics(httpserver.NewRouter(routes))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		sweeper:     sweeper,
		consumer:    consumer,
		mongoClient: mongoClient,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the sweepers, the sensor feed and the HTTP server, then
// blocks until ctx is cancelled. Background work is drained before Run
// returns so Close never races an in-flight sweep.
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Start(ctx)
	if a.consumer != nil {
		go a.consumer.Run(ctx)
	}

	err := a.server.Run(ctx)
	a.sweeper.Wait()
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	disconnect(a.mongoClient, a.logger)
}

func disconnect(client *mongo.Client, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warn("failed to disconnect mongo", zap.Error(err))
	}
}
