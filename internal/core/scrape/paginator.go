package scrape

import (
	"context"
	"time"

	"trackerscraper/internal/core/callback"
	"trackerscraper/internal/core/job"
	"trackerscraper/internal/core/opponent"
	"trackerscraper/internal/logger"
)

// StopReason says why the pagination loop ended. None of them is a job failure.
type StopReason string

const (
	StopExhausted      StopReason = "exhausted"
	StopCeiling        StopReason = "ceiling"
	StopSearchFailed   StopReason = "search_failed"
	StopClickFailed    StopReason = "click_failed"
	StopSpinnerTimeout StopReason = "spinner_timeout"
	StopExtractFailed  StopReason = "extract_failed"
)

// Timing bounds every wait in the pipeline.
type Timing struct {
	Navigation time.Duration
	Profile    time.Duration
	Button     time.Duration
	Spinner    time.Duration
	Settle     time.Duration
	MaxClicks  int
}

func DefaultTiming() Timing {
	return Timing{
		Navigation: 90 * time.Second,
		Profile:    30 * time.Second,
		Button:     3 * time.Second,
		Spinner:    15 * time.Second,
		Settle:     2 * time.Second,
		MaxClicks:  50,
	}
}

// Notifier delivers chunks and the completion signal to the caller.
type Notifier interface {
	Deliver(ctx context.Context, callbackURL string, chunk callback.Chunk) error
	Complete(ctx context.Context, callbackURL, playerID string) error
}

// paginator expands the opponent list of one loaded profile, delivering each
// pass's new opponents as a chunk. It owns the job's seen set.
type paginator struct {
	page     Page
	sel      Selectors
	timing   Timing
	notifier Notifier
	task     job.Task
	log      *logger.Logger

	seen     *opponent.SeenSet
	nameSent bool
	res      job.Result
}

func newPaginator(page Page, sel Selectors, timing Timing, n Notifier, t job.Task, log *logger.Logger) *paginator {
	return &paginator{
		page:     page,
		sel:      sel,
		timing:   timing,
		notifier: n,
		task:     t,
		log:      log,
		seen:     opponent.NewSeenSet(),
	}
}

// run drives EXTRACT -> (FIND_BUTTON -> CLICK -> AWAIT_SPINNER_CLEAR -> EXTRACT)*
// until the button is gone, a step fails, or MaxClicks clicks have been made.
func (p *paginator) run(ctx context.Context) job.Result {
	reason := p.loop(ctx)
	p.res.StopReason = string(reason)
	p.res.Opponents = p.seen.Len()

	switch reason {
	case StopExhausted:
		p.log.LogInfof("No more 'Load more' buttons after %d clicks", p.res.Clicks)
	case StopCeiling:
		p.res.Truncated = true
		p.log.Warn().Int("clicks", p.res.Clicks).Int("opponents", p.res.Opponents).
			Msg("click ceiling reached with 'Load more' still present, opponent list is truncated")
	default:
		p.log.Warn().Str("stop_reason", string(reason)).Int("clicks", p.res.Clicks).
			Msg("pagination step failed, treating list as complete")
	}
	return p.res
}

func (p *paginator) loop(ctx context.Context) StopReason {
	for {
		if !p.pass(ctx) {
			return StopExtractFailed
		}

		if p.res.Clicks >= p.timing.MaxClicks {
			return p.atCeiling(ctx)
		}

		btn, found, err := p.page.FindByText(ctx, p.sel.LoadMoreTag, p.sel.LoadMoreText, p.timing.Button)
		if err != nil {
			p.log.LogDebugf("load more search failed: %v", err)
			return StopSearchFailed
		}
		if !found {
			return StopExhausted
		}

		if err := p.page.Click(ctx, btn); err != nil {
			p.log.LogDebugf("click on %s failed: %v", btn, err)
			return StopClickFailed
		}
		p.res.Clicks++

		if err := p.page.WaitFor(ctx, p.sel.Spinner, WaitOptions{Timeout: p.timing.Spinner, Hidden: true}); err != nil {
			p.log.LogDebugf("spinner did not clear: %v", err)
			// the click may still have rendered rows; pick them up before stopping
			p.pass(ctx)
			return StopSpinnerTimeout
		}
		sleep(ctx, p.timing.Settle)
	}
}

// atCeiling checks, without waiting for it, whether the button is still offered
// once no clicks are left. Only a present button means the list was cut short.
func (p *paginator) atCeiling(ctx context.Context) StopReason {
	present, err := p.page.HasText(ctx, p.sel.LoadMoreTag, p.sel.LoadMoreText)
	if err != nil {
		p.log.LogDebugf("load more presence check failed: %v", err)
		return StopSearchFailed
	}
	if !present {
		return StopExhausted
	}
	return StopCeiling
}

// pass extracts the current page and delivers opponents not seen before. It
// returns false when the page could not be read.
func (p *paginator) pass(ctx context.Context) bool {
	html, err := p.page.HTML(ctx)
	if err != nil {
		p.log.LogWarnf("failed to read page content: %v", err)
		return false
	}
	ext, err := opponent.ExtractHTML(html, p.sel.Markup)
	if err != nil {
		p.log.LogWarnf("failed to extract opponents: %v", err)
		return false
	}
	p.res.Passes++
	if p.res.PlayerName == "" {
		p.res.PlayerName = ext.PlayerName
	}

	fresh := p.seen.Unseen(ext.Opponents)
	p.log.Debug().Int("pass", p.res.Passes).Int("found", len(ext.Opponents)).Int("new", len(fresh)).Msg("extraction pass")
	if len(fresh) == 0 {
		return true
	}

	chunk := callback.Chunk{PlayerID: p.task.PlayerID, Opponents: fresh}
	if !p.nameSent {
		chunk.PlayerName = p.res.PlayerName
		p.nameSent = true
	}
	// delivered or not, these ids are never sent again
	p.seen.Add(fresh)

	if err := p.notifier.Deliver(ctx, p.task.CallbackURL, chunk); err != nil {
		p.res.ChunksFailed++
		p.log.Warn().Err(err).Int("opponents", len(fresh)).Msg("chunk delivery failed")
		return true
	}
	p.res.ChunksDelivered++
	p.log.LogDebugf("delivered chunk of %d opponents", len(fresh))
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
