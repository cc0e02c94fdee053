package scrape

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is wrapped by drivers when a wait or search runs out of time.
var ErrTimeout = errors.New("timed out")

// Driver opens one rendering session per job.
type Driver interface {
	Open(ctx context.Context) (Page, error)
}

// WaitOptions bounds a selector wait. Hidden waits for the selector to disappear.
type WaitOptions struct {
	Timeout time.Duration
	Hidden  bool
}

// Element is an opaque handle to a located control.
type Element interface {
	String() string
}

// Page is the capability set the scrape pipeline needs from a rendered page.
type Page interface {
	// Navigate loads url and waits for the network to go idle.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, opts WaitOptions) error
	// FindByText looks for a visible tag element whose text contains text. A
	// missing element within timeout is reported as found == false, not an error.
	FindByText(ctx context.Context, tag, text string, timeout time.Duration) (el Element, found bool, err error)
	// HasText reports whether a visible tag element containing text is on the page
	// right now, without waiting.
	HasText(ctx context.Context, tag, text string) (bool, error)
	Click(ctx context.Context, el Element) error
	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)
	Close() error
}
