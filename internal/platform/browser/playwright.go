package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trackerscraper/internal/core/scrape"
	"trackerscraper/internal/logger"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightOptions struct {
	ExecutablePath string
	// Install downloads the chromium build playwright expects before each launch.
	Install bool
}

// Playwright launches a fresh headless chromium per job.
type Playwright struct {
	opts PlaywrightOptions
	log  *logger.Logger
}

func NewPlaywright(opts PlaywrightOptions) *Playwright {
	return &Playwright{opts: opts, log: logger.New("Playwright")}
}

func (d *Playwright) Open(_ context.Context) (scrape.Page, error) {
	if d.opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("playwright install failed: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright initialization failed: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     launchArgs,
	}
	if d.opts.ExecutablePath != "" {
		launch.ExecutablePath = playwright.String(d.opts.ExecutablePath)
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browser launch failed: %w", err)
	}

	profile := RandomProfile()
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:        playwright.String(profile.UserAgent),
		ExtraHttpHeaders: profile.Headers(),
		Viewport:         &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("browser context failed: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("page creation failed: %w", err)
	}

	d.log.LogDebugf("Launched chromium with profile %q", profile.SecChUaPlatform)
	return &playwrightPage{pw: pw, browser: browser, page: page}, nil
}

type playwrightPage struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

type locatorElement struct {
	loc  playwright.Locator
	desc string
}

func (e locatorElement) String() string { return e.desc }

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func wrapTimeout(err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", scrape.ErrTimeout, err)
	}
	return err
}

func (p *playwrightPage) Navigate(_ context.Context, url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms(timeout),
	})
	return wrapTimeout(err)
}

func (p *playwrightPage) WaitFor(_ context.Context, selector string, opts scrape.WaitOptions) error {
	state := playwright.WaitForSelectorStateVisible
	if opts.Hidden {
		state = playwright.WaitForSelectorStateHidden
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: ms(opts.Timeout),
	})
	return wrapTimeout(err)
}

func (p *playwrightPage) FindByText(_ context.Context, tag, text string, timeout time.Duration) (scrape.Element, bool, error) {
	loc := p.page.Locator(tag, playwright.PageLocatorOptions{HasText: text}).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return locatorElement{loc: loc, desc: fmt.Sprintf("%s:has-text(%q)", tag, text)}, true, nil
}

func (p *playwrightPage) HasText(_ context.Context, tag, text string) (bool, error) {
	return p.page.Locator(tag, playwright.PageLocatorOptions{HasText: text}).First().IsVisible()
}

func (p *playwrightPage) Click(_ context.Context, el scrape.Element) error {
	le, ok := el.(locatorElement)
	if !ok {
		return fmt.Errorf("element %s was not located by playwright", el)
	}
	return wrapTimeout(le.loc.Click())
}

func (p *playwrightPage) HTML(_ context.Context) (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) Close() error {
	err := p.browser.Close()
	if stopErr := p.pw.Stop(); err == nil {
		err = stopErr
	}
	return err
}
