package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"cashfree-gateway/internal/config"
	"cashfree-gateway/internal/domains/payment/gateway"
	"cashfree-gateway/internal/domains/payment/gateway/cashfree"
	paymentHandler "cashfree-gateway/internal/domains/payment/handler"
	"cashfree-gateway/internal/domains/payment/reference"
	paymentRepo "cashfree-gateway/internal/domains/payment/repository"
	paymentService "cashfree-gateway/internal/domains/payment/service"
	infraCache "cashfree-gateway/internal/infrastructure/cache"
	"cashfree-gateway/internal/infrastructure/database"
	"cashfree-gateway/pkg/cache"
	"cashfree-gateway/pkg/jwt"
)

// ========================================
// DI CONTAINER
// ========================================

// Container wires the whole dependency graph. Initialization order matters:
// config, then infrastructure, then repositories, services and handlers.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager

	// ========================================
	// REPOSITORY LAYER (DATA ACCESS)
	// ========================================
	OrderRepo   paymentRepo.OrderRepoInterface
	WebhookRepo paymentRepo.WebhookRepoInterface

	// ========================================
	// DOMAIN WIRING
	// ========================================
	Gateway    gateway.CashfreeGateway
	References *reference.Registry

	// ========================================
	// SERVICE LAYER (BUSINESS LOGIC)
	// ========================================
	PaymentService paymentService.PaymentService

	// ========================================
	// HANDLER LAYER (HTTP)
	// ========================================
	PaymentHandler *paymentHandler.PaymentHandler
}

// NewContainer creates and initializes the whole dependency graph.
func NewContainer() (*Container, error) {
	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	db := database.NewPostgresDB(&database.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	// ========================================
	// STEP 3: INITIALIZE CACHE
	// ========================================
	redisCache := infraCache.NewRedisCache(
		cfg.Redis.Host,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)

	// Redis failure is not critical: the status cache is an optimization,
	// every lookup falls through to Cashfree.
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Printf("Redis connection failed (non-critical): %v", err)
	}
	c.Cache = redisCache

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	// ========================================
	// STEP 4: INITIALIZE GATEWAY
	// ========================================
	gw, err := cashfree.NewClient(&cashfree.Config{
		ClientID:      cfg.Cashfree.ClientID,
		ClientSecret:  cfg.Cashfree.ClientSecret,
		Mode:          cfg.Cashfree.Mode,
		WebhookSecret: cfg.Cashfree.WebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init Cashfree client: %w", err)
	}
	c.Gateway = gw

	// ========================================
	// STEP 5: INITIALIZE REPOSITORIES
	// ========================================
	if err := c.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// ========================================
	// STEP 6: INITIALIZE SERVICES
	// ========================================
	if err := c.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// ========================================
	// STEP 7: INITIALIZE HANDLERS
	// ========================================
	if err := c.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() error {
	pool := c.DB.Pool

	c.OrderRepo = paymentRepo.NewOrderRepository(pool)
	c.WebhookRepo = paymentRepo.NewWebhookRepository(pool)

	// Reference document loaders share the same database. Each kind reads
	// its own table; registration order does not matter.
	c.References = reference.NewRegistry()
	reference.RegisterDefaultLoaders(c.References, pool)

	return nil
}

func (c *Container) initServices() error {
	c.PaymentService = paymentService.NewPaymentService(
		c.OrderRepo,
		c.WebhookRepo,
		c.Gateway,
		c.References,
		c.Cache,
		paymentService.Config{
			Callbacks: paymentService.CallbackURLs{
				ReturnURL: c.Config.Payment.ReturnURL,
				NotifyURL: c.Config.Payment.NotifyURL,
			},
			ProductionMode:   c.Config.Cashfree.IsProduction(),
			WebhookSecretSet: c.Config.Cashfree.WebhookSecret != "",
			SuccessPath:      c.Config.Payment.SuccessPath,
			FailurePath:      c.Config.Payment.FailurePath,
			StatusCacheTTL:   c.Config.Payment.StatusCacheTTL,
			StaleWindow:      c.Config.Jobs.StaleWindow,
			ReconcileBatch:   c.Config.Jobs.ReconcileBatchSize,
		},
	)

	return nil
}

func (c *Container) initHandlers() error {
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService)
	return nil
}

// Cleanup releases resources on shutdown.
func (c *Container) Cleanup() {
	if c.DB != nil {
		c.DB.Close()
	}

	if c.Cache != nil {
		if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
			if err := rc.Close(); err != nil {
				log.Printf("Failed to close Redis: %v", err)
			}
		}
	}
}
