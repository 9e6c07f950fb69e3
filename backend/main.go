package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"netvisor-console/backend/handlers"
	"netvisor-console/backend/services"
	"netvisor-console/backend/system"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// 0. Initialize Logger
	if err := system.InitLogger(env("NETVISOR_LOG_DIR", "./logs")); err != nil {
		log.Printf("Warning: Could not initialize file logger: %v", err)
	}
	defer system.Close()

	system.Info("NetVisor console starting...")

	// 1. Configuration
	upstreamURL := env("NETVISOR_UPSTREAM_URL", "http://127.0.0.1:8081")
	streamURL := env("NETVISOR_WS_URL", "ws://127.0.0.1:8081/ws")
	listenAddr := env("NETVISOR_LISTEN", ":8080")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Setup Services
	eventLog := services.NewEventLog()
	eventLog.Add("success", "NetVisor console started")

	geoipService := services.NewGeoIPService(os.Getenv("NETVISOR_GEOIP_DB"))
	defer geoipService.Close()

	webhookService := services.NewWebhookService()
	if url := os.Getenv("NETVISOR_WEBHOOK_URL"); url != "" {
		webhookService.SetWebhookURL(url)
		system.Info("Discord webhook configured")
	}

	reconciler := services.NewReconciler()
	reconciler.SetServices(geoipService, eventLog, webhookService)

	upstream := services.NewUpstreamClient(upstreamURL)

	fetcher := services.NewSnapshotFetcher(upstream, reconciler)
	fetcher.Start(ctx)

	stream := services.NewEventStream(streamURL, reconciler, eventLog)
	stream.Start(ctx)

	// 3. Setup Handlers
	h := handlers.NewHandler(reconciler, upstream, stream, eventLog, webhookService)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: false,
	})

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stdout,
	}))

	app.Use(cors.New())

	api := app.Group("/api")

	// Devices
	api.Get("/devices", h.GetDevices)
	api.Get("/devices/:ip", h.GetDevice)
	api.Post("/device/rename", h.RenameDevice)

	// Dashboard & Activity
	api.Get("/dashboard", h.GetDashboard)
	api.Get("/activity", h.GetActivity)
	api.Get("/alerts", h.GetAlerts)

	// Console status
	api.Get("/events", h.GetEvents)
	api.Get("/health", h.GetHealth)

	// Webhook
	api.Post("/webhook/test", h.TestWebhook)

	// 4. Serve Static Files (Frontend)
	frontendPath := env("NETVISOR_FRONTEND_DIR", "./frontend/dist")
	app.Static("/", frontendPath, fiber.Static{
		ByteRange: true,
		Browse:    false,
		MaxAge:    3600,
	})

	// 5. SPA Fallback: Serve index.html for all other routes
	app.Get("/*", func(c *fiber.Ctx) error {
		return c.SendFile(filepath.Join(frontendPath, "index.html"))
	})

	// Graceful Shutdown Handling
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		system.Info("Gracefully shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	system.Info("Console listening on %s (upstream %s)", listenAddr, upstreamURL)
	if err := app.Listen(listenAddr); err != nil {
		log.Fatal(err)
	}
}
