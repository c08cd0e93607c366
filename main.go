package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"printshop/internal/config"
	"printshop/internal/handlers"
	"printshop/internal/notifications"
	"printshop/internal/repositories"
	"printshop/internal/services"
	"printshop/pkg/docstore"
	"printshop/pkg/filestore"
	"printshop/pkg/mailer"
	"printshop/pkg/paypal"
	"printshop/pkg/rabbitmq"
)

// App bundles the HTTP server with the resources it must release on shutdown.
type App struct {
	Fiber *fiber.App
	store docstore.Store
	files *filestore.Bucket
	mq    *rabbitmq.Client
}

// NewApp wires the store, services and handlers described by cfg.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	revenueBasis, err := services.ParseRevenueBasis(cfg.RevenueBasis)
	if err != nil {
		return nil, err
	}

	// --- Document Store ---
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{store: store}

	// --- Message Queue ---
	// Only the queue notify mode needs RabbitMQ.
	if cfg.NotifyMode == "queue" {
		a.mq, err = rabbitmq.NewClient(rabbitmq.Config{
			URL:    cfg.RabbitMQURL,
			Queues: []string{rabbitmq.QueueNotifications, rabbitmq.QueueOrderEvents},
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
	}

	notifier, err := setupNotifier(cfg, a.mq)
	if err != nil {
		a.Close()
		return nil, err
	}

	// --- Initialize Repositories ---
	orderRepo := repositories.NewDocstoreOrderRepository(store)
	userRepo := repositories.NewDocstoreUserRepository(store)
	uploadRepo := repositories.NewDocstoreUploadRepository(store)
	catalog := repositories.NewDefaultCatalog()

	a.files, err = filestore.OpenDir(cfg.UploadDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	// --- Initialize Services ---
	gateway, err := paypal.NewClient(paypal.Config{
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Mode:         cfg.PayPalMode,
	}, nil)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher services.EventPublisher
	if a.mq != nil {
		publisher = a.mq
	}

	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminTokenTTL)
	productService := services.NewProductService(catalog)
	orderService := services.NewOrderService(orderRepo, catalog, userRepo, gateway, notifier, publisher, services.OrderConfig{
		Currency:       cfg.PaymentCurrency,
		FrontendURL:    cfg.FrontendURL,
		PaymentTimeout: cfg.PaymentTimeout,
		NotifyTimeout:  cfg.NotifyTimeout,
	})
	adminService := services.NewAdminService(orderRepo, userRepo, catalog, notifier, services.AdminConfig{
		RevenueBasis:  revenueBasis,
		NotifyTimeout: cfg.NotifyTimeout,
	})
	uploadService := services.NewUploadService(uploadRepo, a.files, cfg.UploadMaxBytes)

	if err := adminService.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword, cfg.SuperAdminFirstName, cfg.SuperAdminLastName); err != nil {
		log.Printf("Failed to ensure super admin: %v", err)
	}

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		// Multipart overhead on top of the largest accepted image.
		BodyLimit: int(cfg.UploadMaxBytes) + 1<<20,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	// Group routes under /api/v1
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orderService, authService).RegisterRoutes(apiV1)
	handlers.NewAdminHandler(adminService, orderService, authService).RegisterRoutes(apiV1)
	handlers.NewUploadHandler(uploadService, authService).RegisterRoutes(apiV1)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		mqState := "disabled"
		if a.mq != nil {
			mqState = "connected"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"store":    cfg.StoreDriver,
			"rabbitMQ": mqState,
		})
	})

	a.Fiber = app
	return a, nil
}

// openStore connects the document store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case "redis":
		store, err := docstore.NewRedisStore(ctx, docstore.RedisConfig{URL: cfg.RedisURL})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "sqlite":
		db, err := docstore.OpenGorm(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		store, err := docstore.NewGormStore(db)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		log.Println("Using in-memory document store; data is lost on restart.")
		return docstore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

// emailNotifier delivers through SMTP, or only logs when no SMTP host is set.
func emailNotifier(cfg config.Config) (notifications.Notifier, error) {
	if cfg.SMTPHost == "" {
		return notifications.LogNotifier{}, nil
	}
	sender := mailer.NewSMTPSender(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.EmailFrom,
	}, nil)
	notifier, err := notifications.NewEmailNotifier(sender, cfg.FrontendURL)
	if err != nil {
		return nil, err
	}
	return notifier, nil
}

// setupNotifier builds the notifier handed to the services. In queue mode the
// services only enqueue, and the notifications queue is drained in-process.
func setupNotifier(cfg config.Config, mq *rabbitmq.Client) (services.Notifier, error) {
	switch cfg.NotifyMode {
	case "log":
		return notifications.LogNotifier{}, nil
	case "direct":
		return emailNotifier(cfg)
	case "queue":
		if mq == nil {
			return nil, fmt.Errorf("notify mode queue requires a RabbitMQ client")
		}
		delivery, err := emailNotifier(cfg)
		if err != nil {
			return nil, err
		}
		consumer := notifications.NewConsumer(delivery, cfg.NotifyTimeout)
		if err := mq.Consume(rabbitmq.QueueNotifications, consumer.Handle); err != nil {
			return nil, err
		}
		if err := mq.Consume(rabbitmq.QueueOrderEvents, logOrderEvent); err != nil {
			return nil, err
		}
		return notifications.NewQueueNotifier(mq), nil
	}
	return nil, fmt.Errorf("unsupported notify mode %q", cfg.NotifyMode)
}

func logOrderEvent(body []byte) error {
	log.Printf("Received Order Event: %s", string(body))
	return nil
}

// Close releases the store, the upload bucket and the RabbitMQ connection.
func (a *App) Close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			log.Printf("Error closing RabbitMQ client: %v", err)
		}
	}
	if a.files != nil {
		if err := a.files.Close(); err != nil {
			log.Printf("Error closing upload bucket: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("Error closing document store: %v", err)
		}
	}
}

func main() {
	// --- Configuration ---
	cfg := config.Load()

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	a, err := NewApp(startCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Println("Shutting down server...")

	if err := a.Fiber.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
