package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	TaskQueue     string
	InstanceID    string

	TrackerBaseURL    string
	BrowserDriver     string
	BrowserExecutable string
	PlaywrightInstall bool
	SelectorsFile     string

	NavigationTimeout time.Duration
	ProfileTimeout    time.Duration
	ButtonTimeout     time.Duration
	SpinnerTimeout    time.Duration
	SettleDelay       time.Duration
	MaxClicks         int

	CallbackTimeout        time.Duration
	CallbackRetries        int
	CallbackChunkSuffix    string
	CallbackCompleteSuffix string
}

const (
	DriverPlaywright = "playwright"
	DriverChromeDP   = "chromedp"
)

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDuration accepts Go duration strings ("15s") or a bare number of milliseconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func httpAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return getenv("HTTP_ADDR", ":10000")
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "local"
	}
	return h
}

func Load() Config {
	return Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      httpAddr(),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TaskQueue:     getenv("TASK_QUEUE", "scrape"),
		InstanceID:    getenv("INSTANCE_ID", hostname()),

		TrackerBaseURL:    getenv("TRACKER_BASE_URL", "https://tracker.ftgames.com/"),
		BrowserDriver:     getenv("BROWSER_DRIVER", DriverPlaywright),
		BrowserExecutable: os.Getenv("BROWSER_EXECUTABLE"),
		PlaywrightInstall: getenvBool("PLAYWRIGHT_INSTALL", false),
		SelectorsFile:     os.Getenv("SELECTORS_FILE"),

		NavigationTimeout: getenvDuration("NAVIGATION_TIMEOUT", 90*time.Second),
		ProfileTimeout:    getenvDuration("PROFILE_TIMEOUT", 30*time.Second),
		ButtonTimeout:     getenvDuration("BUTTON_TIMEOUT", 3*time.Second),
		SpinnerTimeout:    getenvDuration("SPINNER_TIMEOUT", 15*time.Second),
		SettleDelay:       getenvDuration("SETTLE_DELAY", 2*time.Second),
		MaxClicks:         getenvInt("MAX_CLICKS", 50),

		CallbackTimeout:        getenvDuration("CALLBACK_TIMEOUT", 30*time.Second),
		CallbackRetries:        getenvInt("CALLBACK_RETRIES", 0),
		CallbackChunkSuffix:    getenv("CALLBACK_CHUNK_SUFFIX", "/scrape-chunk"),
		CallbackCompleteSuffix: getenv("CALLBACK_COMPLETE_SUFFIX", "/scrape-complete"),
	}
}

// UseRedis reports whether job records and dispatch go through redis/asynq.
func (c Config) UseRedis() bool { return c.RedisAddr != "" }

// WorkerQueue is the asynq queue owned by this instance. The worker lock lives in
// process memory, so only the process that accepted a job may consume it.
func (c Config) WorkerQueue() string {
	return c.TaskQueue + ":" + c.InstanceID
}

func (c Config) Validate() error {
	switch c.BrowserDriver {
	case DriverPlaywright, DriverChromeDP:
	default:
		return fmt.Errorf("unknown BROWSER_DRIVER %q", c.BrowserDriver)
	}
	if c.TrackerBaseURL == "" {
		return fmt.Errorf("TRACKER_BASE_URL is required")
	}
	if c.TaskQueue == "" || c.InstanceID == "" {
		return fmt.Errorf("TASK_QUEUE and INSTANCE_ID must not be empty")
	}
	if c.MaxClicks <= 0 {
		return fmt.Errorf("MAX_CLICKS must be positive, got %d", c.MaxClicks)
	}
	if c.CallbackRetries < 0 {
		return fmt.Errorf("CALLBACK_RETRIES must not be negative, got %d", c.CallbackRetries)
	}
	timeouts := map[string]time.Duration{
		"NAVIGATION_TIMEOUT": c.NavigationTimeout,
		"PROFILE_TIMEOUT":    c.ProfileTimeout,
		"BUTTON_TIMEOUT":     c.ButtonTimeout,
		"SPINNER_TIMEOUT":    c.SpinnerTimeout,
		"CALLBACK_TIMEOUT":   c.CallbackTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("SETTLE_DELAY must not be negative, got %s", c.SettleDelay)
	}
	if c.CallbackChunkSuffix == "" || c.CallbackCompleteSuffix == "" {
		return fmt.Errorf("callback path suffixes are required")
	}
	return nil
}
