package job

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Request is one inbound scrape submission.
type Request struct {
	PlayerID    string `json:"playerId" validate:"required"`
	CallbackURL string `json:"callbackUrl" validate:"required,http_url"`
}

var (
	ErrMissingFields   = errors.New("playerId and callbackUrl are required")
	ErrInvalidCallback = errors.New("callbackUrl must be a valid http(s) url")
)

var validate = validator.New()

// Normalize trims surrounding whitespace from both fields.
func (r Request) Normalize() Request {
	return Request{PlayerID: strings.TrimSpace(r.PlayerID), CallbackURL: strings.TrimSpace(r.CallbackURL)}
}

// Validate returns ErrMissingFields or ErrInvalidCallback.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return ErrMissingFields
		}
	}
	return ErrInvalidCallback
}

// Task is an accepted request. It is immutable once accepted.
type Task struct {
	ID         string    `json:"id"`
	AcceptedAt time.Time `json:"accepted_at"`
	// Queue is the asynq queue of the instance that accepted the task, empty for
	// in-process dispatch.
	Queue string `json:"queue,omitempty"`
	Request
}

// Result summarises one finished job.
type Result struct {
	PlayerName      string `json:"player_name,omitempty"`
	Opponents       int    `json:"opponents"`
	ChunksDelivered int    `json:"chunks_delivered"`
	ChunksFailed    int    `json:"chunks_failed"`
	Passes          int    `json:"passes"`
	Clicks          int    `json:"clicks"`
	StopReason      string `json:"stop_reason,omitempty"`
	Truncated       bool   `json:"truncated"`
	Completed       bool   `json:"completion_sent"`
	Error           string `json:"error,omitempty"`
}

// Job is the stored record of a task.
type Job struct {
	JobID      string     `json:"job_id"`
	PlayerID   string     `json:"player_id"`
	Status     Status     `json:"status"`
	AcceptedAt time.Time  `json:"accepted_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Result     *Result    `json:"result,omitempty"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)
