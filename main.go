package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/utils"
	"github.com/redis/go-redis/v9"

	"tutorhub_backend/internals/configs"
	database "tutorhub_backend/internals/databases"
	"tutorhub_backend/internals/features/payments/scheduler"
	txSvc "tutorhub_backend/internals/features/payments/transactions/service"
	helper "tutorhub_backend/internals/helpers"
	"tutorhub_backend/internals/helpers/cache"
	"tutorhub_backend/internals/helpers/notify"
	helperOSS "tutorhub_backend/internals/helpers/oss"
	"tutorhub_backend/internals/helpers/report"
	middlewares "tutorhub_backend/internals/middlewares"
	routes "tutorhub_backend/internals/route"
	routeDetails "tutorhub_backend/internals/route/details"
)

const codeVersion = "payments-1"

func main() {
	configs.LoadEnv()
	cfg := configs.App

	report.Init(cfg.RollbarToken, cfg.Environment, codeVersion)
	defer report.Close()

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		ErrorHandler:            helper.FiberErrorHandler,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	// 🔎 Request-ID + timing + timeout guard
	app.Use(func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)
		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()
		c.SetUserContext(ctx)
		err := c.Next()
		log.Printf("[REQ] id=%s %s %s status=%d dur=%s", id, c.Method(), c.OriginalURL(), c.Response().StatusCode(), time.Since(start))
		return err
	})

	middlewares.SetupMiddlewares(app)

	// 🔌 DB connect + pool + warm-up
	database.ConnectDB()
	database.TunePool()
	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("❌ migrate: %v", err)
	}
	database.WarmUpQueries()

	// 🧠 response cache: Redis when reachable, else in-process
	var store cache.Store = cache.NewMemoryStore()
	var rdb *redis.Client
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		rdb = cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		cancel()
		if rdb != nil {
			store = cache.NewRedisStore(rdb, "payments:")
		}
	}

	// ✉️ notification channels
	outbox := notify.NewOutboxSender(500)
	dispatcher := notify.NewDispatcher().
		Register(notify.ChannelSMS, outbox).
		Register(notify.ChannelInApp, outbox).
		Register(notify.ChannelPush, outbox)
	if cfg.SendgridAPIKey != "" {
		dispatcher.Register(notify.ChannelEmail, notify.NewSendgridSender(cfg.SendgridAPIKey, cfg.MailFromName, cfg.MailFromAddress))
		log.Println("✅ SendGrid email enabled")
	} else {
		dispatcher.Register(notify.ChannelEmail, outbox)
		log.Println("⚠️ SENDGRID_API_KEY not set, emails go to the outbox log")
	}

	// 📦 exports: OSS when configured, else local dir served by the API
	deps := routeDetails.PaymentsDeps{
		DB:               database.DB,
		Cache:            store,
		CacheTTL:         cfg.CacheTTL,
		Sender:           dispatcher,
		MidtransKey:      cfg.MidtransServerKey,
		PayBaseURL:       cfg.PublicPayBaseURL,
		PublicAPIBaseURL: cfg.PublicAPIBaseURL,
		JWTSecret:        configs.JWTSecret,
	}
	ossCfg := helperOSS.OSSConfig{
		Endpoint:        cfg.OSSEndpoint,
		AccessKeyID:     cfg.OSSAccessKeyID,
		AccessKeySecret: cfg.OSSAccessSecret,
		Bucket:          cfg.OSSBucket,
		Prefix:          "exports",
		SignTTL:         cfg.OSSSignedURLTTL,
	}
	if ossCfg.Complete() {
		ossSvc, err := helperOSS.NewOSSService(ossCfg)
		if err != nil {
			log.Fatalf("❌ OSS init: %v", err)
		}
		deps.Exports = ossSvc
		log.Println("✅ Exports stored in OSS")
	} else {
		local, err := helperOSS.NewLocalStore(cfg.ExportDir, cfg.PublicAPIBaseURL+"/api/payments/exports")
		if err != nil {
			log.Fatalf("❌ export dir: %v", err)
		}
		deps.Exports = local
		deps.LocalExports = local
		log.Printf("⚠️ OSS not configured, exports kept in %s", cfg.ExportDir)
	}

	// ✅ MIDTRANS
	if cfg.MidtransServerKey != "" {
		deps.Gateway = txSvc.InitMidtrans(cfg.MidtransServerKey, cfg.MidtransProd)
	}

	svcs, err := routeDetails.NewPaymentsServices(deps)
	if err != nil {
		log.Fatalf("❌ payments services: %v", err)
	}

	// ⏱ scheduler after DB is ready
	var stopScheduler func() context.Context
	if cfg.SchedulerEnabled {
		c, err := scheduler.Start(&scheduler.Jobs{
			DB:        database.DB,
			Links:     svcs.Links,
			Reminders: svcs.Reminders,
			Exports:   deps.Exports,
			Cache:     store,
			Now:       time.Now,
		}, scheduler.DefaultConfig())
		if err != nil {
			log.Fatalf("❌ scheduler: %v", err)
		}
		stopScheduler = c.Stop
	}

	routes.SetupRoutes(app, deps, svcs)

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Printf("✅ Listening on :%s", cfg.Port)
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown: HTTP, cron, cache, DB pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if stopScheduler != nil {
		<-stopScheduler().Done()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
