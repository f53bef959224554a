package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/PrimePass/app/controllers"
	"github.com/ManuelReschke/PrimePass/app/repository"
	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
	"github.com/ManuelReschke/PrimePass/internal/pkg/cache"
	"github.com/ManuelReschke/PrimePass/internal/pkg/database"
	"github.com/ManuelReschke/PrimePass/internal/pkg/env"
	"github.com/ManuelReschke/PrimePass/internal/pkg/health"
	"github.com/ManuelReschke/PrimePass/internal/pkg/jobqueue"
	"github.com/ManuelReschke/PrimePass/internal/pkg/mail"
	"github.com/ManuelReschke/PrimePass/internal/pkg/notify"
	"github.com/ManuelReschke/PrimePass/internal/pkg/proofstore"
	"github.com/ManuelReschke/PrimePass/internal/pkg/quota"
	"github.com/ManuelReschke/PrimePass/internal/pkg/router"
)

func main() {
	app, manager := NewApplication()
	manager.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down")
		if err := app.ShutdownWithTimeout(20 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	manager.Stop()
	if err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires storage, billing, notifications and routes. The
// returned manager runs the notification workers and the expiry sweep.
func NewApplication() (*fiber.App, *jobqueue.Manager) {
	env.SetupEnvFile()
	db := database.SetupDatabase()
	redisClient := cache.SetupCache()

	basePath := findBasePath()

	// billing
	billingCfg := billing.LoadConfig()
	catalog, err := billing.LoadCatalog(billingCfg.CatalogFile)
	if err != nil {
		log.Fatalf("Failed to load tier catalog: %v", err)
	}

	// notifications through the job queue
	queue := jobqueue.NewQueue(redisClient, env.GetEnvInt("JOBQUEUE_WORKERS", 3))
	notify.RegisterHandlers(queue, newDispatcher())

	svc := billing.NewService(billing.Dependencies{
		Repo:     billing.NewRepository(db),
		Users:    repository.NewFactory(db).GetUserRepository(),
		Catalog:  catalog,
		Notifier: notify.NewQueuedNotifier(queue),
		Auth:     billingCfg.Authenticator(),
	})

	manager := jobqueue.NewManager(queue, jobqueue.PeriodicTask{
		Name:     "membership_expiry",
		Interval: billingCfg.ExpiryInterval,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			report, err := svc.Expiry().ExpireMemberships(ctx)
			if report.Expired > 0 || report.Failed > 0 {
				log.Printf("Membership expiry: checked=%d expired=%d failed=%d", report.Checked, report.Expired, report.Failed)
			}
			return err
		},
	})

	// proofs and quotas
	proofCfg, err := proofstore.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid proof store configuration: %v", err)
	}
	proofs, err := proofstore.New(proofCfg)
	if err != nil {
		log.Fatalf("Failed to initialize proof store: %v", err)
	}
	quotaCfg := quota.LoadConfig()
	searches := quota.NewTracker(quota.QuotaSearch, quota.NewRedisStore(redisClient), svc.Expiry().Entitled)

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: proofstore.MaxProofSize + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// health
	app.Get("/health", health.NewChecker().
		Add("database", health.Database(db)).
		Add("redis", health.Redis(redisClient)).
		Handler())

	// prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// fiber monitor
	app.Get("/admin/monitor", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("MONITOR_USER", "admin"): env.GetEnv("MONITOR_PASSWORD", "change-me"),
		},
	}), monitor.New(monitor.Config{Title: "PrimePass Monitor"}))

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	ctl := controllers.NewController(svc, proofs, searches, quotaCfg)
	router.InstallRouter(app, ctl, router.Options{
		AdminKeyHash:   env.GetEnv("ADMIN_API_KEY_HASH", ""),
		ServiceKeyHash: env.GetEnv("BOT_API_KEY_HASH", ""),
		LimiterStorage: cache.NewFiberStorage(env.GetEnvInt("LIMITER_CACHE_DB", 1)),
	})

	return app, manager
}

func newDispatcher() *notify.Dispatcher {
	notifyCfg := notify.LoadConfig()

	var sender notify.MessageSender
	if notifyCfg.TelegramToken != "" {
		sender = notify.NewTelegramClient(notifyCfg.TelegramToken, notifyCfg.TelegramAPIURL)
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, Telegram notifications disabled")
	}

	var mailer notify.MailSender
	if mailCfg := mail.LoadConfig(); mailCfg.Enabled() {
		mailer = mail.NewSMTPMailer(mailCfg)
	}
	return notify.NewDispatcher(sender, mailer, notifyCfg)
}

func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/primepass to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			return path
		}
	}
	log.Fatal("Could not find project root directory")
	return ""
}
