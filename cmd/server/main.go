package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postqueue/configs"
	"github.com/maheshrc27/postqueue/internal/api/handlers"
	"github.com/maheshrc27/postqueue/internal/api/middleware"
	"github.com/maheshrc27/postqueue/internal/audit"
	job "github.com/maheshrc27/postqueue/internal/jobs"
	"github.com/maheshrc27/postqueue/internal/migrations"
	"github.com/maheshrc27/postqueue/internal/publisher"
	"github.com/maheshrc27/postqueue/internal/queue"
	"github.com/maheshrc27/postqueue/internal/repository"
	"github.com/maheshrc27/postqueue/internal/service"
	"github.com/maheshrc27/postqueue/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Idle connections are dropped before the worker wakes again.
	db.SetConnMaxIdleTime(idleTimeout(cfg.Worker.Interval))
	db.SetMaxOpenConns(10)

	if err := repository.WaitForDB(ctx, db, dbRetryInterval); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postQueueRepo := repository.NewPostQueueRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	auditLogger := audit.NewLogger(auditRepo)
	tokenValidator := service.NewTokenValidator(cfg.Facebook)
	registry := publisher.NewDefaultRegistry(cfg.Facebook.GraphURL)

	w := worker.New(postQueueRepo, tokenValidator, registry, auditLogger, worker.Config{
		Interval:  cfg.Worker.Interval,
		BatchSize: cfg.Worker.BatchSize,
		SecretKey: cfg.SecretKey,
	})

	var notifier service.PostNotifier
	var asynqServer *asynq.Server
	if cfg.RedisURI != "" {
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		client := asynq.NewClient(redisConn)
		defer client.Close()
		notifier = queue.NewNotifier(client)

		asynqServer = asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 1,
		})
		queueW := queue.NewQueue(w)

		go func() {
			log.Println("Starting the Asynq server...")
			if err := asynqServer.Run(queueW.Mux()); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}()
	} else {
		slog.Info("REDIS_URI not set, submissions are picked up on the next poll")
	}

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure media storage: %v", err)
	}

	authService := service.NewAuthService(*cfg)
	facebookService := service.NewFacebookService(*cfg, socialAccountRepo, auditLogger)
	platformService := service.NewPlatformService(facebookService, socialAccountRepo)
	postService := service.NewPostService(postQueueRepo, socialAccountRepo, notifier)
	contentService := service.NewContentService(cfg.Content, r2Service)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	handlers.Register(app, handlers.Deps{
		Config:   *cfg,
		Auth:     middleware.NewAuthMiddleware(*cfg),
		Login:    handlers.NewAuthHandler(*cfg, authService),
		Platform: handlers.NewPlatformHandler(platformService, facebookService, *cfg),
		Post:     handlers.NewPostHandler(postService),
		Audit:    handlers.NewAuditHandler(auditLogger),
		Content:  handlers.NewContentHandler(contentService),
		Health:   handlers.NewHealthHandler(db),
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, facebookService, auditLogger, cfg.SecretKey, cfg.Worker.RefreshWindow)

	c := cron.New()
	if err := c.AddFunc(cfg.Worker.RefreshSchedule, refreshTokenJob.RefreshTokens); err != nil {
		log.Fatalf("Invalid token refresh schedule: %v", err)
	}
	c.Start()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Run(ctx)
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	<-ctx.Done()
	gracefulShutdown(app, db, c, asynqServer, workerDone)
}

const dbRetryInterval = 5 * time.Second

func idleTimeout(interval time.Duration) time.Duration {
	if d := interval / 2; d > 0 && d < 5*time.Second {
		return d
	}
	return 5 * time.Second
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, c *cron.Cron, srv *asynq.Server, workerDone <-chan struct{}) {
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	c.Stop()
	if srv != nil {
		srv.Shutdown()
	}

	select {
	case <-workerDone:
	case <-time.After(30 * time.Second):
		log.Println("Worker did not stop in time")
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
