package source

import (
	"context"
	"errors"
	"fmt"

	"go-job-digest/internal/browser"
	"go-job-digest/internal/config"
	"go-job-digest/internal/models"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// fetchJS runs inside the page so the request carries the session cookies.
const fetchJS = `async (url) => {
	const res = await fetch(url, {
		credentials: "include",
		headers: { "Accept": "application/json, text/plain, */*" },
	});
	if (!res.ok) throw new Error("status " + res.status);
	return await res.json();
}`

// JSONPage is a live page session able to fetch JSON with its own cookies.
type JSONPage interface {
	FetchJSON(ctx context.Context, url string) (any, error)
	// Debug records the page state after a failure.
	Debug(name, message string)
	Close() error
}

// PageOpener starts a page session.
type PageOpener func(ctx context.Context) (JSONPage, error)

// Browser fetches the 104 search API from inside a headless Chromium
// session, for when plain HTTP requests get blocked.
type Browser struct {
	web  config.Web104Config
	open PageOpener
	log  *zap.Logger

	// delay between pages, milliseconds
	delayMin, delayMax int
}

// NewBrowser builds the source. A nil opener launches Playwright.
func NewBrowser(web config.Web104Config, bcfg config.BrowserConfig, open PageOpener, log *zap.Logger) *Browser {
	if log == nil {
		log = zap.NewNop()
	}
	if open == nil {
		open = playwrightOpener(bcfg, log)
	}
	return &Browser{web: web, open: open, log: log, delayMin: 800, delayMax: 2000}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Fetch(ctx context.Context) (_ []models.RawJob, err error) {
	page, err := b.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			b.log.Warn("failed to close browser", zap.Error(cerr))
		}
	}()

	var out []models.RawJob
	for p := 1; p <= max(1, b.web.Pages); p++ {
		if p > 1 {
			if err := browser.RandomDelay(ctx, b.delayMin, b.delayMax); err != nil {
				return nil, err
			}
		}
		target, err := web104PageURL(b.web, p)
		if err != nil {
			return nil, err
		}
		v, err := page.FetchJSON(ctx, target)
		if err != nil {
			page.Debug(fmt.Sprintf("104_page_%d", p), "in-page fetch failed")
			return nil, fmt.Errorf("104 page %d via browser: %w", p, err)
		}
		jobs := web104Data(v)
		if len(jobs) == 0 {
			break
		}
		out = append(out, jobs...)
	}
	b.log.Info("fetched 104 listings via browser", zap.Int("jobs", len(out)))
	return out, nil
}

type playwrightPage struct {
	pm    *browser.PlaywrightManager
	page  playwright.Page
	shots *browser.ScreenshotDebugger
}

func playwrightOpener(cfg config.BrowserConfig, log *zap.Logger) PageOpener {
	return func(ctx context.Context) (JSONPage, error) {
		pm, err := browser.NewPlaywright(cfg.Headless)
		if err != nil {
			return nil, err
		}

		var cookies []playwright.OptionalCookie
		if cfg.CookiesFile != "" {
			cookies, err = browser.LoadCookies(cfg.CookiesFile)
			if err != nil {
				log.Warn("could not load cookies, continuing without them", zap.Error(err))
			}
		}

		bctx, err := pm.NewContext(cookies)
		if err != nil {
			_ = pm.Close()
			return nil, err
		}
		page, err := bctx.NewPage()
		if err != nil {
			_ = pm.Close()
			return nil, fmt.Errorf("new page: %w", err)
		}

		pp := &playwrightPage{pm: pm, page: page, shots: browser.NewScreenshotDebugger(cfg.ScreenshotDir, log)}
		if _, err := page.Goto(web104Referer, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(30000),
		}); err != nil {
			pp.Debug("104_search", "search page did not load")
			_ = pm.Close()
			return nil, fmt.Errorf("open %s: %w", web104Referer, err)
		}
		if err := browser.HumanScroll(ctx, page); err != nil {
			_ = pm.Close()
			return nil, err
		}
		return pp, nil
	}
}

func (p *playwrightPage) FetchJSON(ctx context.Context, url string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err := p.page.Evaluate(fetchJS, url)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("empty response")
	}
	return v, nil
}

func (p *playwrightPage) Debug(name, message string) {
	_, _ = p.shots.CaptureAndLog(p.page, name, message)
}

func (p *playwrightPage) Close() error {
	return p.pm.Close()
}
