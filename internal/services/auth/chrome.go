package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/renderer"
)

const localStorageDump = `(function() {
  var items = [];
  try {
    for (var i = 0; i < window.localStorage.length; i++) {
      var key = window.localStorage.key(i);
      items.push({name: key, value: window.localStorage.getItem(key)});
    }
  } catch (e) {}
  return {origin: window.location.origin, localStorage: items};
})()`

// ChromeLoginBrowser is a headed chromedp browser used for manual login
type ChromeLoginBrowser struct {
	config          common.BrowserConfig
	navTimeout      time.Duration
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          arbor.ILogger
}

// NewChromeLoginBrowser returns a factory for headed login browsers
func NewChromeLoginBrowser(config *common.Config, logger arbor.ILogger) LoginBrowserFactory {
	return func() LoginBrowser {
		return &ChromeLoginBrowser{
			config:     config.Browser,
			navTimeout: config.Render.Timeout.Duration,
			logger:     logger,
		}
	}
}

// Open launches Chrome with a visible window and loads the login page
func (b *ChromeLoginBrowser) Open(ctx context.Context, loginURL string) error {
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(
		context.Background(),
		renderer.AllocatorOptions(b.config, false)...,
	)
	b.allocatorCancel = allocatorCancel

	b.browserCtx, b.browserCancel = chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			b.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	if err := chromedp.Run(b.browserCtx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	navCtx, navCancel := context.WithTimeout(b.browserCtx, b.navTimeout)
	defer navCancel()
	stop := context.AfterFunc(ctx, navCancel)
	defer stop()

	if err := chromedp.Run(navCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to load %s: %w", loginURL, err)
	}
	return nil
}

// Capture reads every cookie of the browser and the localStorage of the current page
func (b *ChromeLoginBrowser) Capture(ctx context.Context) (*models.SessionState, error) {
	if b.browserCtx == nil {
		return nil, fmt.Errorf("login browser not open")
	}

	runCtx, cancel := context.WithCancel(b.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var cookies []*network.Cookie
	var origin models.OriginState
	var userAgent string

	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(localStorageDump, &origin),
		chromedp.Evaluate(`navigator.userAgent`, &userAgent),
	)
	if err != nil {
		return nil, err
	}

	state := &models.SessionState{
		UserAgent:  userAgent,
		CapturedAt: time.Now(),
		Cookies:    ConvertCookies(cookies),
	}
	if origin.Origin != "" && origin.Origin != "null" {
		state.Origins = append(state.Origins, origin)
	}

	b.logger.Debug().
		Int("cookies", len(state.Cookies)).
		Int("local_storage", len(origin.LocalStorage)).
		Str("origin", origin.Origin).
		Msg("Browser state captured")

	return state, nil
}

// Close shuts the browser down
func (b *ChromeLoginBrowser) Close() error {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocatorCancel != nil {
		b.allocatorCancel()
	}
	return nil
}

// ConvertCookies maps CDP cookies onto the persisted cookie shape
func ConvertCookies(cookies []*network.Cookie) []models.SessionCookie {
	result := make([]models.SessionCookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		expires := c.Expires
		if c.Session || expires <= 0 {
			expires = -1
		}
		result = append(result, models.SessionCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return result
}
