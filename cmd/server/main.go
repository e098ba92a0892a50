package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_dashboard_go/config"
	"crm_dashboard_go/db"
	"crm_dashboard_go/handlers"
	"crm_dashboard_go/models"
	"crm_dashboard_go/services"
	"crm_dashboard_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if cfg.TursoDatabaseURL != "" {
		if err := db.InitializeRemote(cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment); err != nil {
			log.Fatalf("Failed to connect to remote database: %v", err)
		}
	} else if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := services.InitializeActivityTriggers(db.DB); err != nil {
		log.Fatalf("Failed to initialize activity triggers: %v", err)
	}
	if err := services.SeedProfileFromEnv(db.DB); err != nil {
		log.Printf("[WARNING] Failed to seed profile: %v", err)
	}

	if err := services.RegisterMetrics(nil); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	storage := services.NewStorageProvider(cfg)
	changes := newChangeFeed(cfg)
	defer changes.Close()

	dispatcher := services.NewDispatcher(services.NewResendNotifier(cfg))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLogger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	h := handlers.New(cfg, db.DB, storage, dispatcher, changes)
	h.Register(e)

	// Nightly attachment consistency sweep
	scheduler, err := jobs.StartScheduler(db.DB, storage, cfg.SweepSchedule)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Request contexts end on signal so open dashboard streams let Shutdown finish
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	// Drop expired rate limit windows every hour
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.CleanupLimiters()
			}
		}
	}()

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	dispatcher.Wait()
}

// newChangeFeed connects to Redis when configured so every instance sees
// the same client changes. Otherwise changes stay in this process.
func newChangeFeed(cfg *config.Config) services.ChangeFeed {
	if cfg.RedisAddr == "" {
		return services.NewBroker(0)
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[WARNING] Redis unavailable at %s: %v. Falling back to in-process changes.", cfg.RedisAddr, err)
		client.Close()
		return services.NewBroker(0)
	}

	log.Printf("[REALTIME] Using Redis change feed at %s", cfg.RedisAddr)
	return services.NewRedisChangeFeed(client)
}
