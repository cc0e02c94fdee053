// Package callback pushes opponent chunks and the completion signal back to the
// service that submitted a scrape job.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"trackerscraper/internal/core/opponent"
	"trackerscraper/internal/logger"
)

// Chunk is the body of one chunk delivery. PlayerName is only set on the first
// non-empty chunk of a job.
type Chunk struct {
	PlayerID   string              `json:"playerId"`
	Opponents  []opponent.Opponent `json:"opponents"`
	PlayerName string              `json:"playerName,omitempty"`
}

type completion struct {
	PlayerID string `json:"playerId"`
}

// DeliveryError reports a failed chunk or completion POST.
type DeliveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("callback %s responded %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("callback %s failed: %v", e.URL, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type Options struct {
	Timeout        time.Duration
	Retries        int
	ChunkSuffix    string
	CompleteSuffix string
}

type Client struct {
	http *resty.Client
	opts Options
	log  *logger.Logger
}

func New(opts Options) *Client {
	c := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "tracker-scraper/1.0")
	if opts.Retries > 0 {
		c.SetRetryCount(opts.Retries).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= 500
			})
	}
	return &Client{http: c, opts: opts, log: logger.New("Callback")}
}

// Deliver POSTs one chunk to callbackURL.
func (c *Client) Deliver(ctx context.Context, callbackURL string, chunk Chunk) error {
	return c.post(ctx, callbackURL, chunk)
}

// Complete POSTs the completion signal for playerID to the URL derived from callbackURL.
func (c *Client) Complete(ctx context.Context, callbackURL, playerID string) error {
	target, err := CompletionURL(callbackURL, c.opts.ChunkSuffix, c.opts.CompleteSuffix)
	if err != nil {
		return &DeliveryError{URL: callbackURL, Err: err}
	}
	return c.post(ctx, target, completion{PlayerID: playerID})
}

func (c *Client) post(ctx context.Context, target string, body interface{}) error {
	start := time.Now()
	res, err := c.http.R().SetContext(ctx).SetBody(body).Post(target)
	if err != nil {
		return &DeliveryError{URL: target, Err: err}
	}
	if res.IsError() {
		return &DeliveryError{URL: target, StatusCode: res.StatusCode(), Err: errors.New(res.Status())}
	}
	c.log.Debug().Str("url", target).Int("status", res.StatusCode()).Dur("took", time.Since(start)).Msg("callback delivered")
	return nil
}

// CompletionURL derives the completion endpoint from a chunk callback URL. A
// trailing chunkSuffix is replaced by completeSuffix; otherwise the last path
// segment is. Query and fragment are kept.
func CompletionURL(callbackURL, chunkSuffix, completeSuffix string) (string, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid callback url %q", callbackURL)
	}

	p := strings.TrimSuffix(u.Path, "/")
	switch {
	case chunkSuffix != "" && strings.HasSuffix(p, chunkSuffix):
		p = strings.TrimSuffix(p, chunkSuffix) + completeSuffix
	default:
		if i := strings.LastIndex(p, "/"); i >= 0 {
			p = p[:i]
		}
		p += "/" + strings.TrimPrefix(completeSuffix, "/")
	}
	u.Path = p
	u.RawPath = ""
	return u.String(), nil
}
