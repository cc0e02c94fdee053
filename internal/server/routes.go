package server

import (
	"github.com/gofiber/fiber/v2"

	"trackerscraper/internal/core/job"
	"trackerscraper/internal/core/scrape"
	"trackerscraper/internal/health"
	"trackerscraper/internal/platform/redis"
)

type Dependencies struct {
	Scheduler *job.Scheduler
	// Redis is nil when jobs run in-process.
	Redis *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.HealthHandler {
	// Health endpoints
	healthHandler := health.NewHealthHandler(d.Scheduler, d.Redis)
	app.Get("/", healthHandler.HandleRoot)
	app.Get("/v1/health", health.HealthLimiter(), healthHandler.HandleHealth)

	scrapeHandler := scrape.NewHandler(d.Scheduler)
	app.Post("/scrape", scrapeHandler.HandleSubmit)

	api := app.Group("/v1")
	api.Get("/status", healthHandler.HandleStatus)
	api.Post("/scrape", scrapeHandler.HandleSubmit)
	api.Get("/jobs/:jobId", scrapeHandler.HandleGetJob)

	return healthHandler
}
