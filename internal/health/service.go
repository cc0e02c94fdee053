package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"trackerscraper/internal/core/job"
	"trackerscraper/internal/logger"
	"trackerscraper/internal/platform/redis"
)

// Worker reports the state of the worker lock.
type Worker interface {
	State() job.LockState
}

// HealthHandler handles liveness, readiness and worker status requests.
type HealthHandler struct {
	log       *logger.Logger
	worker    Worker
	redis     *redis.Service
	startTime time.Time
	ready     atomic.Bool
}

// NewHealthHandler creates a HealthHandler. redisSvc may be nil when the service
// runs without redis.
func NewHealthHandler(worker Worker, redisSvc *redis.Service) *HealthHandler {
	return &HealthHandler{
		log:       logger.New("HealthCheck"),
		worker:    worker,
		redis:     redisSvc,
		startTime: time.Now(),
	}
}

// SetReady marks the application as ready to receive traffic
func (h *HealthHandler) SetReady() {
	h.ready.Store(true)
	h.log.LogSuccessf("Application marked as ready for traffic after %v", time.Since(h.startTime))
}

// ComponentStatus holds the status of a dependent component
type ComponentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// OverallHealth represents the overall health status including components
type OverallHealth struct {
	OverallStatus string                     `json:"overall_status"`
	Timestamp     string                     `json:"timestamp"`
	Ready         bool                       `json:"ready"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

// WorkerStatus is the body of GET /v1/status.
type WorkerStatus struct {
	Busy     bool       `json:"busy"`
	JobID    string     `json:"job_id,omitempty"`
	PlayerID string     `json:"player_id,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
}

// HandleRoot is the plain-text liveness line.
func (h *HealthHandler) HandleRoot(c *fiber.Ctx) error {
	return c.SendString(fmt.Sprintf("Scraper service is up and running. Worker busy: %t", h.worker.State().Busy))
}

func (h *HealthHandler) HandleStatus(c *fiber.Ctx) error {
	st := h.worker.State()
	resp := WorkerStatus{Busy: st.Busy, JobID: st.JobID, PlayerID: st.PlayerID}
	if st.Busy {
		since := st.Since
		resp.Since = &since
	}
	return c.JSON(resp)
}

// HandleHealth responds with the system's health status, including dependencies
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	startTime := time.Now()
	h.log.LogDebugf("Health check started")

	ctx, cancel := context.WithTimeout(c.Context(), 8*time.Second)
	defer cancel()

	statuses := map[string]ComponentStatus{
		"worker": {Status: "ok"},
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	allOk := true

	checkComponent := func(name string, checkFunc func(context.Context) error) {
		defer wg.Done()
		componentStart := time.Now()

		componentState := "ok"
		var errStr string
		if err := checkFunc(ctx); err != nil {
			componentState = "error"
			errStr = err.Error()
			mu.Lock()
			allOk = false
			mu.Unlock()
			h.log.LogErrorf("Health check failed for %s after %v: %v", name, time.Since(componentStart), err)
		} else {
			h.log.LogDebugf("Health check passed for %s in %v", name, time.Since(componentStart))
		}

		mu.Lock()
		statuses[name] = ComponentStatus{Status: componentState, Error: errStr}
		mu.Unlock()
	}

	if h.redis != nil {
		wg.Add(1)
		go checkComponent("redis", h.redis.HealthCheck)
	}
	wg.Wait()

	ready := h.ready.Load()
	response := OverallHealth{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Ready:         ready,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    statuses,
	}

	if allOk && ready {
		response.OverallStatus = "ok"
		h.log.LogDebugf("Health check completed successfully in %v", time.Since(startTime))
		return c.Status(http.StatusOK).JSON(response)
	}

	if !ready {
		response.OverallStatus = "starting"
		h.log.LogDebugf("Health check: application not ready (uptime: %v)", time.Since(h.startTime))
		return c.Status(http.StatusServiceUnavailable).JSON(response)
	}

	response.OverallStatus = "error"
	h.log.LogWarnf("Health check failed after %v. Statuses: %+v", time.Since(startTime), statuses)
	return c.Status(http.StatusServiceUnavailable).JSON(response)
}

func HealthLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{"error": "Rate limit exceeded"})
		},
	})
}
