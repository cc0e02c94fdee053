// Package scrape runs the opponent scrape for one accepted job: it loads the
// player's tracker profile, expands the opponent list page by page and streams
// new opponents back to the caller.
package scrape

import (
	"context"
	"fmt"
	"net/url"

	"trackerscraper/internal/core/job"
	"trackerscraper/internal/logger"
)

type Options struct {
	BaseURL   string
	Selectors Selectors
	Timing    Timing
}

// Service is the job.Runner for scrape jobs.
type Service struct {
	driver   Driver
	notifier Notifier
	opts     Options
	log      *logger.Logger
}

func NewService(driver Driver, notifier Notifier, opts Options) *Service {
	return &Service{driver: driver, notifier: notifier, opts: opts, log: logger.New("ScrapeService")}
}

// ProfileURL is the tracker page for playerID.
func (s *Service) ProfileURL(playerID string) (string, error) {
	u, err := url.Parse(s.opts.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid tracker base url: %w", err)
	}
	q := u.Query()
	q.Set("id", playerID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run scrapes t's profile. The browser session is closed before the completion
// signal goes out, and the signal is attempted exactly once on every path. A panic
// in the pipeline is returned as an error so the result still records the signal.
func (s *Service) Run(ctx context.Context, t job.Task) (res job.Result, err error) {
	log := s.log.WithJob(t.ID, t.PlayerID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scrape panicked")
			err = fmt.Errorf("scrape panicked: %v", r)
		}
		if cerr := s.notifier.Complete(ctx, t.CallbackURL, t.PlayerID); cerr != nil {
			log.Warn().Err(cerr).Msg("completion signal failed")
			return
		}
		res.Completed = true
		log.LogInfof("completion signal sent for player %s", t.PlayerID)
	}()

	return s.scrape(ctx, t, log)
}

func (s *Service) scrape(ctx context.Context, t job.Task, log *logger.Logger) (job.Result, error) {
	target, err := s.ProfileURL(t.PlayerID)
	if err != nil {
		return job.Result{}, &FatalLoadError{PlayerID: t.PlayerID, Stage: StageNavigate, Err: err}
	}

	log.LogInfof("Launching browser for player: %s", t.PlayerID)
	page, err := s.driver.Open(ctx)
	if err != nil {
		return job.Result{}, &FatalLoadError{PlayerID: t.PlayerID, Stage: StageBrowser, Err: err}
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.LogWarnf("failed to close browser: %v", cerr)
			return
		}
		log.LogDebugf("Closed browser for player: %s", t.PlayerID)
	}()

	if err := page.Navigate(ctx, target, s.opts.Timing.Navigation); err != nil {
		return job.Result{}, &FatalLoadError{PlayerID: t.PlayerID, Stage: StageNavigate, Err: err}
	}
	if err := page.WaitFor(ctx, s.opts.Selectors.PlayerName, WaitOptions{Timeout: s.opts.Timing.Profile}); err != nil {
		log.LogErrorf("Timed out waiting for player name element. The page may be blocked or failed to load.")
		return job.Result{}, &FatalLoadError{PlayerID: t.PlayerID, Stage: StageProfile, Err: err}
	}
	log.LogInfof("Player profile for %s loaded successfully", t.PlayerID)

	res := newPaginator(page, s.opts.Selectors, s.opts.Timing, s.notifier, t, log).run(ctx)
	if res.PlayerName == "" {
		log.LogWarnf("Could not extract player name text, though the header element was found")
	}
	log.LogInfof("Scraped %d opponents for player %q", res.Opponents, res.PlayerName)
	return res, nil
}
