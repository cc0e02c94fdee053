package job

import (
	"sync"
	"time"
)

// LockState is a snapshot of the worker lock.
type LockState struct {
	Busy     bool      `json:"busy"`
	JobID    string    `json:"job_id,omitempty"`
	PlayerID string    `json:"player_id,omitempty"`
	Since    time.Time `json:"since,omitempty"`
}

// Lock is the process-wide single-slot admission gate: free or held by exactly one task.
type Lock struct {
	mu    sync.Mutex
	held  bool
	task  Task
	since time.Time
}

// TryAcquire moves the lock from free to held by t. It returns false if already held.
func (l *Lock) TryAcquire(t Task) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false
	}
	l.held = true
	l.task = t
	l.since = time.Now()
	return true
}

// Release frees the lock. It returns false if the lock was already free.
func (l *Lock) Release() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return false
	}
	l.held = false
	l.task = Task{}
	l.since = time.Time{}
	return true
}

// HeldBy reports whether the lock is held by the task with the given id.
func (l *Lock) HeldBy(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && l.task.ID == id
}

func (l *Lock) State() LockState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return LockState{}
	}
	return LockState{Busy: true, JobID: l.task.ID, PlayerID: l.task.PlayerID, Since: l.since}
}
