package main

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"trackerscraper/internal/config"
	"trackerscraper/internal/core/callback"
	"trackerscraper/internal/core/job"
	"trackerscraper/internal/core/scrape"
	"trackerscraper/internal/logger"
	"trackerscraper/internal/platform/browser"
	rds "trackerscraper/internal/platform/redis"
	tasks "trackerscraper/internal/platform/tasks"
	"trackerscraper/internal/server"
	"trackerscraper/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[scraper] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")
	if err := cfg.Validate(); err != nil {
		logr.LogFatalf("invalid configuration: %v", err)
	}

	selectors, err := scrape.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		logr.LogFatalf("failed to load selectors: %v", err)
	}

	var driver scrape.Driver
	switch cfg.BrowserDriver {
	case config.DriverChromeDP:
		driver = browser.NewChromeDP(cfg.BrowserExecutable)
	default:
		driver = browser.NewPlaywright(browser.PlaywrightOptions{
			ExecutablePath: cfg.BrowserExecutable,
			Install:        cfg.PlaywrightInstall,
		})
	}

	notifier := callback.New(callback.Options{
		Timeout:        cfg.CallbackTimeout,
		Retries:        cfg.CallbackRetries,
		ChunkSuffix:    cfg.CallbackChunkSuffix,
		CompleteSuffix: cfg.CallbackCompleteSuffix,
	})

	scrapeSvc := scrape.NewService(driver, notifier, scrape.Options{
		BaseURL:   cfg.TrackerBaseURL,
		Selectors: selectors,
		Timing: scrape.Timing{
			Navigation: cfg.NavigationTimeout,
			Profile:    cfg.ProfileTimeout,
			Button:     cfg.ButtonTimeout,
			Spinner:    cfg.SpinnerTimeout,
			Settle:     cfg.SettleDelay,
			MaxClicks:  cfg.MaxClicks,
		},
	})

	// Without REDIS_ADDR jobs run in-process and records live in memory.
	var (
		redisSvc    *rds.Service
		asynqServer *asynq.Server
		sched       *job.Scheduler
	)
	if cfg.UseRedis() {
		redisSvc, err = rds.New(rds.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatal(err)
		}
		defer redisSvc.Close()

		taskClient := tasks.New(redisSvc)
		defer taskClient.Close()

		sched = job.NewScheduler(scrapeSvc, job.NewRedisStore(redisSvc), job.WithQueue(taskClient, cfg.WorkerQueue()))

		mux := worker.NewMux()
		mux.HandleFunc(tasks.TaskTypeScrape, sched.HandleTask)
		asynqServer = worker.NewServer(redisSvc.AsynqRedisOpt(), cfg.WorkerQueue())
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Fatalf("worker start: %v", err)
		}
	} else {
		sched = job.NewScheduler(scrapeSvc, job.NewMemoryStore(0))
	}

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Tracker Scraper",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Scheduler: sched,
		Redis:     redisSvc,
	})

	go func() {
		time.Sleep(2 * time.Second)
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		if asynqServer != nil {
			asynqServer.Shutdown()
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	logr.LogInfof("Scraper service running on %s (driver=%s, redis=%t)", cfg.HTTPAddr, cfg.BrowserDriver, cfg.UseRedis())
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
