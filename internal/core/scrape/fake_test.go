package scrape

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"trackerscraper/internal/core/callback"
	"trackerscraper/internal/core/opponent"
)

// recorder keeps the order of page and callback events across fakes.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(e string) int {
	n := 0
	for _, got := range r.Events() {
		if got == e {
			n++
		}
	}
	return n
}

// profileHTML renders a tracker profile with opponents 1..n.
func profileHTML(player string, n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><header><span class="font-HEAD">` + player + `</span></header><main>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<a class="col-span-2" href="/?id=%d"><p>Opponent %d</p></a>`, i, i)
	}
	b.WriteString(`</main></body></html>`)
	return b.String()
}

type fakeElement string

func (e fakeElement) String() string { return string(e) }

// fakePage serves html(clicks) and shows the load-more button while more(clicks).
type fakePage struct {
	rec  *recorder
	html func(clicks int) string
	more func(clicks int) bool

	clicks        int
	navErr        error
	profileErr    error
	searchErr     error
	clickErr      error
	spinnerFailAt int
	htmlErrAt     int
	panicOnClick  bool
	htmlCalls     int
	closed        bool
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.rec.add("navigate " + url)
	return p.navErr
}

func (p *fakePage) WaitFor(_ context.Context, selector string, opts WaitOptions) error {
	if opts.Hidden {
		p.rec.add("wait spinner")
		if p.spinnerFailAt > 0 && p.clicks == p.spinnerFailAt {
			return fmt.Errorf("spinner: %w", ErrTimeout)
		}
		return nil
	}
	p.rec.add("wait " + selector)
	return p.profileErr
}

func (p *fakePage) FindByText(_ context.Context, tag, text string, _ time.Duration) (Element, bool, error) {
	p.rec.add("find")
	if p.searchErr != nil {
		return nil, false, p.searchErr
	}
	if !p.more(p.clicks) {
		return nil, false, nil
	}
	return fakeElement(tag + ":" + text), true, nil
}

func (p *fakePage) HasText(_ context.Context, _, _ string) (bool, error) {
	p.rec.add("has")
	if p.searchErr != nil {
		return false, p.searchErr
	}
	return p.more(p.clicks), nil
}

func (p *fakePage) Click(_ context.Context, _ Element) error {
	p.rec.add("click")
	if p.panicOnClick {
		panic("renderer crashed")
	}
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicks++
	return nil
}

func (p *fakePage) HTML(_ context.Context) (string, error) {
	p.htmlCalls++
	p.rec.add("extract")
	if p.htmlErrAt > 0 && p.htmlCalls == p.htmlErrAt {
		return "", fmt.Errorf("target closed")
	}
	return p.html(p.clicks), nil
}

func (p *fakePage) Close() error {
	p.closed = true
	p.rec.add("close")
	return nil
}

type fakeDriver struct {
	page    *fakePage
	openErr error
}

func (d *fakeDriver) Open(_ context.Context) (Page, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.page, nil
}

type fakeNotifier struct {
	rec         *recorder
	mu          sync.Mutex
	chunks      []callback.Chunk
	completions []string
	failChunk   map[int]bool
	failDone    bool
}

func (n *fakeNotifier) Deliver(_ context.Context, _ string, chunk callback.Chunk) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rec.add("deliver")
	n.chunks = append(n.chunks, chunk)
	if n.failChunk[len(n.chunks)] {
		return &callback.DeliveryError{URL: "cb", StatusCode: 502}
	}
	return nil
}

func (n *fakeNotifier) Complete(_ context.Context, _ string, playerID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rec.add("complete")
	n.completions = append(n.completions, playerID)
	if n.failDone {
		return &callback.DeliveryError{URL: "cb", StatusCode: 500}
	}
	return nil
}

func (n *fakeNotifier) Chunks() []callback.Chunk {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]callback.Chunk(nil), n.chunks...)
}

func (n *fakeNotifier) Completions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.completions...)
}

func deliveredIDs(chunks []callback.Chunk) []string {
	var ids []string
	for _, c := range chunks {
		for _, o := range c.Opponents {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func opponentIDs(ops []opponent.Opponent) []string {
	ids := make([]string, 0, len(ops))
	for _, o := range ops {
		ids = append(ids, o.ID)
	}
	return ids
}
