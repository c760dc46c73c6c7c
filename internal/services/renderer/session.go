package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/models"
)

// CookieParams converts captured cookies into CDP cookie parameters.
// Persistent cookies already past their expiry are dropped.
func CookieParams(state *models.SessionState, now time.Time) []*network.CookieParam {
	if state == nil {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		if c.IsExpired(now) {
			continue
		}

		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if param.Path == "" {
			param.Path = "/"
		}

		if !c.IsSessionCookie() {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			param.Expires = &expires
		}

		switch strings.ToLower(c.SameSite) {
		case "strict":
			param.SameSite = network.CookieSameSiteStrict
		case "lax":
			param.SameSite = network.CookieSameSiteLax
		case "none":
			param.SameSite = network.CookieSameSiteNone
		}

		params = append(params, param)
	}
	return params
}

// LocalStorageScript returns a script that seeds localStorage for the captured
// origins when a document of that origin loads. Empty when nothing was captured.
func LocalStorageScript(origins []models.OriginState) (string, error) {
	seeds := make(map[string]map[string]string)
	for _, o := range origins {
		if o.Origin == "" || len(o.LocalStorage) == 0 {
			continue
		}
		items := make(map[string]string, len(o.LocalStorage))
		for _, item := range o.LocalStorage {
			items[item.Name] = item.Value
		}
		seeds[strings.TrimSuffix(o.Origin, "/")] = items
	}
	if len(seeds) == 0 {
		return "", nil
	}

	data, err := json.Marshal(seeds)
	if err != nil {
		return "", fmt.Errorf("failed to encode localStorage seed: %w", err)
	}

	return fmt.Sprintf(`(function(){
  var seeds = %s;
  var items = seeds[window.location.origin];
  if (!items) { return; }
  try {
    for (var k in items) { window.localStorage.setItem(k, items[k]); }
  } catch (e) {}
})();`, data), nil
}

// applySession installs the session's cookies and localStorage into the tab behind ctx
func applySession(ctx context.Context, state *models.SessionState, logger arbor.ILogger) error {
	if state == nil {
		return nil
	}

	cookies := CookieParams(state, time.Now())
	script, err := LocalStorageScript(state.Origins)
	if err != nil {
		return err
	}

	if expired := len(state.Cookies) - len(cookies); expired > 0 {
		logger.Warn().
			Int("expired", expired).
			Msg("Session contains expired cookies, run 'folio login' if pages come back unauthenticated")
	}

	return chromedp.Run(ctx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			failed := 0
			for _, cookie := range cookies {
				if err := network.SetCookie(cookie.Name, cookie.Value).
					WithDomain(cookie.Domain).
					WithPath(cookie.Path).
					WithSecure(cookie.Secure).
					WithHTTPOnly(cookie.HTTPOnly).
					WithSameSite(cookie.SameSite).
					WithExpires(cookie.Expires).
					Do(ctx); err != nil {
					failed++
					logger.Warn().
						Err(err).
						Str("cookie", cookie.Name).
						Str("domain", cookie.Domain).
						Msg("Failed to restore cookie")
				}
			}

			logger.Debug().
				Int("cookies", len(cookies)-failed).
				Int("failed", failed).
				Msg("Session cookies restored")
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if script == "" {
				return nil
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("failed to register localStorage script: %w", err)
			}
			return nil
		}),
	)
}
