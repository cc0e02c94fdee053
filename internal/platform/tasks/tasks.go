package tasks

import (
	"time"

	"github.com/hibiken/asynq"

	"trackerscraper/internal/platform/redis"
)

// TaskTypeScrape is the asynq task type carrying one accepted scrape job.
const TaskTypeScrape = "scrape:opponents"

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

// Enqueue pushes task onto queue. Scrape jobs run to completion once started, so
// the task timeout is generous.
func (t *Client) Enqueue(task *asynq.Task, queue string, maxRetries int) error {
	_, err := t.c.Enqueue(task, asynq.Queue(queue), asynq.MaxRetry(maxRetries), asynq.Timeout(time.Hour))
	return err
}

func (t *Client) Close() error { return t.c.Close() }
