package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"trackerscraper/internal/core/scrape"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeDP drives a locally installed chrome over the devtools protocol.
type ChromeDP struct {
	execPath string
}

func NewChromeDP(execPath string) *ChromeDP {
	return &ChromeDP{execPath: execPath}
}

func (d *ChromeDP) allocatorOptions(profile Profile) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(profile.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	if d.execPath != "" {
		opts = append(opts, chromedp.ExecPath(d.execPath))
	}
	return opts
}

func (d *ChromeDP) Open(_ context.Context) (scrape.Page, error) {
	profile := RandomProfile()

	// The browser outlives any single request context; Close tears it down.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions(profile)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	headers := network.Headers{}
	for k, v := range profile.Headers() {
		headers[k] = v
	}
	if err := chromedp.Run(tabCtx, network.Enable(), network.SetExtraHTTPHeaders(headers)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}

	return &chromedpPage{ctx: tabCtx, cancel: func() { tabCancel(); allocCancel() }}, nil
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type xpathElement string

func (e xpathElement) String() string { return string(e) }

// bound derives a context from the tab that ends after timeout or when the caller's
// ctx is done.
func (p *chromedpPage) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() { stop(); cancel() }
}

func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", scrape.ErrTimeout, err)
	}
	return err
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (p *chromedpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := p.bound(ctx, timeout)
	defer cancel()
	return timeoutErr(chromedp.Run(tctx, actions...))
}

// Navigate loads url and waits for the main frame's networkIdle lifecycle event.
func (p *chromedpPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := p.bound(ctx, timeout)
	defer cancel()

	idle := newIdleWaiter()
	chromedp.ListenTarget(tctx, idle.observe)

	if err := chromedp.Run(tctx, page.SetLifecycleEventsEnabled(true), chromedp.Navigate(url)); err != nil {
		return timeoutErr(err)
	}
	select {
	case <-idle.done:
		return nil
	case <-tctx.Done():
		return timeoutErr(fmt.Errorf("waiting for network idle on %s: %w", url, tctx.Err()))
	}
}

// idleWaiter closes done once the first frame to start a new document reports
// networkIdle for that document. Child frames and earlier documents are ignored.
type idleWaiter struct {
	mu     sync.Mutex
	frame  cdp.FrameID
	loader cdp.LoaderID
	fired  bool
	done   chan struct{}
}

func newIdleWaiter() *idleWaiter {
	return &idleWaiter{done: make(chan struct{})}
}

func (w *idleWaiter) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch e.Name {
	case "init":
		if w.frame == "" {
			w.frame = e.FrameID
		}
		if e.FrameID == w.frame {
			w.loader = e.LoaderID
		}
	case "networkIdle":
		if w.fired || w.frame == "" || e.FrameID != w.frame || e.LoaderID != w.loader {
			return
		}
		w.fired = true
		close(w.done)
	}
}

func (p *chromedpPage) WaitFor(ctx context.Context, selector string, opts scrape.WaitOptions) error {
	if opts.Hidden {
		return p.run(ctx, opts.Timeout, chromedp.WaitNotPresent(selector, chromedp.ByQuery))
	}
	return p.run(ctx, opts.Timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromedpPage) FindByText(ctx context.Context, tag, text string, timeout time.Duration) (scrape.Element, bool, error) {
	xpath := textXPath(tag, text)
	err := p.run(ctx, timeout, chromedp.WaitVisible(xpath, chromedp.BySearch))
	if errors.Is(err, scrape.ErrTimeout) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return xpathElement(xpath), true, nil
}

func (p *chromedpPage) HasText(ctx context.Context, tag, text string) (bool, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, 5*time.Second, chromedp.Nodes(textXPath(tag, text), &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	return len(nodes) > 0, err
}

func (p *chromedpPage) Click(ctx context.Context, el scrape.Element) error {
	xpath, ok := el.(xpathElement)
	if !ok {
		return fmt.Errorf("element %s was not located by chromedp", el)
	}
	return p.run(ctx, 10*time.Second, chromedp.Click(string(xpath), chromedp.BySearch, chromedp.NodeVisible))
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, 30*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromedpPage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

// textXPath matches the first tag element whose text contains text.
func textXPath(tag, text string) string {
	return fmt.Sprintf("(//%s[contains(normalize-space(.), %s)])[1]", tag, xpathLiteral(text))
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
