package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"trackerscraper/internal/logger"
	"trackerscraper/internal/platform/tasks"
)

// ErrBusy is returned by Submit while another job holds the worker lock.
var ErrBusy = errors.New("scraper is currently busy")

// Runner executes one accepted task to completion.
type Runner interface {
	Run(ctx context.Context, t Task) (Result, error)
}

// Enqueuer hands a task to the asynq queue.
type Enqueuer interface {
	Enqueue(task *asynq.Task, queue string, maxRetries int) error
}

// Scheduler admits at most one job at a time. The lock is taken synchronously in
// Submit and released exactly once when the job's cleanup runs.
type Scheduler struct {
	lock   *Lock
	store  Store
	runner Runner
	queue  Enqueuer
	qname  string
	log    *logger.Logger
}

type Option func(*Scheduler)

// WithQueue dispatches accepted jobs through asynq instead of a goroutine.
func WithQueue(q Enqueuer, name string) Option {
	return func(s *Scheduler) {
		s.queue = q
		s.qname = name
	}
}

func NewScheduler(runner Runner, store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		lock:   &Lock{},
		store:  store,
		runner: runner,
		log:    logger.New("Scheduler"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) State() LockState { return s.lock.State() }

func (s *Scheduler) Job(ctx context.Context, jobID string) (*Job, error) {
	return s.store.Get(ctx, jobID)
}

// Submit accepts req if the worker is free, or returns ErrBusy. On acceptance the
// lock is already held when Submit returns and the job runs in the background.
func (s *Scheduler) Submit(ctx context.Context, req Request) (Task, error) {
	t := Task{ID: uuid.NewString(), AcceptedAt: time.Now().UTC(), Request: req}
	if !s.lock.TryAcquire(t) {
		s.log.LogInfof("Worker is busy. Rejecting job for player %s", req.PlayerID)
		return Task{}, ErrBusy
	}
	log := s.log.WithJob(t.ID, t.PlayerID)
	log.LogInfof("Worker locked for player: %s", t.PlayerID)

	if err := s.store.InitPending(ctx, t); err != nil {
		log.LogWarnf("failed to record pending job: %v", err)
	}

	if err := s.dispatch(t); err != nil {
		log.LogErrorf("failed to dispatch job: %v", err)
		if serr := s.store.Complete(ctx, t.ID, StatusFailed, Result{Error: err.Error()}); serr != nil {
			log.LogWarnf("failed to record dispatch failure: %v", serr)
		}
		s.release(log)
		return Task{}, fmt.Errorf("dispatch job: %w", err)
	}
	return t, nil
}

func (s *Scheduler) dispatch(t Task) error {
	if s.queue == nil {
		go s.execute(context.Background(), t)
		return nil
	}
	t.Queue = s.qname
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.queue.Enqueue(asynq.NewTask(tasks.TaskTypeScrape, payload), s.qname, 0)
}

// HandleTask is the asynq handler for queued jobs. Only the instance that accepted
// a task runs it, since that instance holds the lock. A task whose lock was lost
// (for example after a restart) must win the lock again before it runs.
func (s *Scheduler) HandleTask(ctx context.Context, at *asynq.Task) error {
	var t Task
	if err := json.Unmarshal(at.Payload(), &t); err != nil {
		return fmt.Errorf("decode scrape task: %v: %w", err, asynq.SkipRetry)
	}
	if t.Queue != s.qname {
		s.log.WithJob(t.ID, t.PlayerID).LogWarnf("task accepted on queue %q, this worker owns %q", t.Queue, s.qname)
		return fmt.Errorf("task %s belongs to queue %q: %w", t.ID, t.Queue, asynq.SkipRetry)
	}
	if !s.lock.HeldBy(t.ID) && !s.lock.TryAcquire(t) {
		return fmt.Errorf("%w: %w", ErrBusy, asynq.SkipRetry)
	}
	s.execute(context.WithoutCancel(ctx), t)
	return nil
}

// execute runs the task. Its deferred cleanup records the outcome and releases the
// lock on every exit path, panics included.
func (s *Scheduler) execute(ctx context.Context, t Task) {
	log := s.log.WithJob(t.ID, t.PlayerID)
	var (
		res Result
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			log.Error().Interface("panic", r).Msg("job panicked")
		}
		status := StatusCompleted
		if err != nil {
			status = StatusFailed
			res.Error = err.Error()
		}
		if serr := s.store.Complete(context.Background(), t.ID, status, res); serr != nil {
			log.LogWarnf("failed to record job outcome: %v", serr)
		}
		s.release(log)
	}()

	if perr := s.store.SetProcessing(ctx, t.ID); perr != nil {
		log.LogWarnf("failed to record processing state: %v", perr)
	}
	res, err = s.runner.Run(ctx, t)
	if err != nil {
		log.LogErrorf("job failed: %v", err)
		return
	}
	log.Success().
		Int("opponents", res.Opponents).
		Int("chunks", res.ChunksDelivered).
		Str("stop_reason", res.StopReason).
		Msg("job finished")
}

func (s *Scheduler) release(log *logger.Logger) {
	if s.lock.Release() {
		log.LogInfo("Worker unlocked. Ready for next job.")
		return
	}
	log.LogWarnf("worker lock was already free")
}
