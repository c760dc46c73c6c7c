package renderer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"golang.org/x/time/rate"
)

const (
	startupTimeout = 30 * time.Second
	resetTimeout   = 15 * time.Second

	// Includes the doctype so the artifact matches what the server sent
	captureScript = `(document.doctype ? new XMLSerializer().serializeToString(document.doctype) + "\n" : "") + document.documentElement.outerHTML`
)

// Factory opens chromedp browsers with a restored session
type Factory struct {
	browser common.BrowserConfig
	render  common.RenderConfig
	logger  arbor.ILogger
}

// NewFactory creates a browser factory for the browser and render config sections
func NewFactory(config *common.Config, logger arbor.ILogger) interfaces.BrowserFactory {
	return &Factory{
		browser: config.Browser,
		render:  config.Render,
		logger:  logger,
	}
}

// Open starts Chrome, checks it responds and installs the session.
// Any failure is reported as an engine error.
func (f *Factory) Open(ctx context.Context, session *models.SessionState) (interfaces.Browser, error) {
	settler, err := NewSettler(f.render)
	if err != nil {
		return nil, models.NewFetchError(models.KindEngineError, "", err)
	}

	startTime := time.Now()

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(
		context.Background(),
		AllocatorOptions(f.browser, f.browser.Headless)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			f.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
		chromedp.WithErrorf(func(s string, i ...interface{}) {
			f.logger.Debug().Msgf("chromedp error: "+s, i...)
		}),
	)

	b := &ChromeBrowser{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		tabCtx:          browserCtx,
		session:         session,
		isolation:       f.browser.Isolation,
		settler:         settler,
		logger:          f.logger,
	}
	if f.render.RequestInterval.Duration > 0 {
		b.limiter = rate.NewLimiter(rate.Every(f.render.RequestInterval.Duration), 1)
	}

	// The first Run allocates the browser and ties its lifetime to the context
	// it is given, so it must not carry the startup deadline
	if err := chromedp.Run(browserCtx); err != nil {
		b.Close()
		return nil, models.NewFetchError(models.KindEngineError, "", fmt.Errorf("failed to start browser: %w", err))
	}

	testCtx, testCancel := context.WithTimeout(browserCtx, startupTimeout)
	defer testCancel()
	stop := context.AfterFunc(ctx, testCancel)
	defer stop()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		b.Close()
		return nil, models.NewFetchError(models.KindEngineError, "", fmt.Errorf("browser failed startup test: %w", err))
	}

	if err := applySession(testCtx, session, f.logger); err != nil {
		b.Close()
		return nil, models.NewFetchError(models.KindEngineError, "", fmt.Errorf("failed to restore session: %w", err))
	}

	f.logger.Info().
		Bool("headless", f.browser.Headless).
		Str("isolation", b.isolation).
		Str("settle_mode", settler.Name()).
		Int("cookies", cookieCount(session)).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser ready")

	return b, nil
}

// ChromeBrowser is one Chrome process and tab held for a whole crawl run
type ChromeBrowser struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	tabCtx          context.Context

	session   *models.SessionState
	isolation string
	settler   Settler
	limiter   *rate.Limiter
	logger    arbor.ILogger

	closeOnce sync.Once
}

// Fetch navigates to the target, settles and captures the rendered markup
func (b *ChromeBrowser) Fetch(ctx context.Context, target models.Target, timeout time.Duration) (*models.RenderedDocument, error) {
	if err := b.browserCtx.Err(); err != nil {
		return nil, classify(target.URL, err, err)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, models.NewFetchError(models.KindEngineError, target.URL, err)
		}
	}

	tab := b.tabCtx
	if b.isolation == common.IsolationFresh {
		freshCtx, freshCancel := chromedp.NewContext(b.browserCtx)
		defer freshCancel()
		if err := applySession(freshCtx, b.session, b.logger); err != nil {
			return nil, classify(target.URL, err, b.browserCtx.Err())
		}
		tab = freshCtx
	}

	// Caller cancellation reaches chromedp through the tab's child context
	runCtx, runCancel := context.WithCancel(tab)
	defer runCancel()
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	startTime := time.Now()

	navCtx, navCancel := context.WithTimeout(runCtx, timeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(target.URL))
	navCancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.NewFetchError(models.KindEngineError, target.URL, ctx.Err())
		}
		return nil, classify(target.URL, err, b.browserCtx.Err())
	}

	ready, err := b.settler.Settle(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.NewFetchError(models.KindEngineError, target.URL, ctx.Err())
		}
		return nil, classify(target.URL, err, b.browserCtx.Err())
	}
	if !ready {
		b.logger.Warn().
			Str("url", target.URL).
			Str("settle_mode", b.settler.Name()).
			Msg("Page not ready before settle budget ran out, capturing as is")
	}

	var html, finalURL string
	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(captureScript, &html),
		chromedp.Location(&finalURL),
	); err != nil {
		if ctx.Err() != nil {
			return nil, models.NewFetchError(models.KindEngineError, target.URL, ctx.Err())
		}
		return nil, classify(target.URL, err, b.browserCtx.Err())
	}

	doc := &models.RenderedDocument{
		Target:     target,
		HTML:       html,
		FinalURL:   finalURL,
		Title:      ExtractTitle(html),
		RenderedAt: time.Now(),
		Elapsed:    time.Since(startTime),
	}

	b.logger.Debug().
		Str("url", target.URL).
		Str("final_url", finalURL).
		Int("html_length", len(html)).
		Dur("elapsed", doc.Elapsed).
		Msg("Target rendered")

	return doc, nil
}

// Reset blanks the page between targets in reset isolation; other modes are no-ops
func (b *ChromeBrowser) Reset(ctx context.Context) error {
	if b.isolation != common.IsolationReset {
		return nil
	}

	resetCtx, cancel := context.WithTimeout(b.tabCtx, resetTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(resetCtx, chromedp.Navigate("about:blank")); err != nil {
		return classify("about:blank", err, b.browserCtx.Err())
	}
	return nil
}

// Close releases the tab, the browser and the allocator. Safe to call more than once.
func (b *ChromeBrowser) Close() error {
	b.closeOnce.Do(func() {
		// Cancelling the first tab's context closes Chrome gracefully
		if b.browserCancel != nil {
			b.browserCancel()
		}
		if b.allocatorCancel != nil {
			b.allocatorCancel()
		}
		b.logger.Debug().Msg("Browser released")
	})
	return nil
}

// ExtractTitle returns the document title from rendered markup
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func cookieCount(session *models.SessionState) int {
	if session == nil {
		return 0
	}
	return len(session.Cookies)
}
