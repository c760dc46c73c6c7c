package renderer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

func chromeConfig(t *testing.T) *common.Config {
	t.Helper()

	var path string
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if p, err := exec.LookPath(name); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		t.Skip("Chrome not installed")
	}

	config := common.NewDefaultConfig()
	config.Browser.ExecPath = path
	config.Browser.NoSandbox = true
	config.Render.SettleDelay = common.Duration{Duration: 50 * time.Millisecond}
	return config
}

const articlePage = `<!DOCTYPE html>
<html><head><title>Paywalled article</title></head>
<body>
<div id="cookie"></div><div id="storage"></div>
<script>
setTimeout(function() {
  document.getElementById("cookie").textContent = document.cookie;
  document.getElementById("storage").textContent = window.localStorage.getItem("token") || "";
  var ready = document.createElement("article");
  document.body.appendChild(ready);
}, 100);
</script>
</body></html>`

func TestChromeBrowser_FetchWithSession(t *testing.T) {
	config := chromeConfig(t)
	config.Render.SettleMode = common.SettleSelector
	config.Render.ReadySelector = "article"
	config.Render.PollInterval = common.Duration{Duration: 50 * time.Millisecond}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage)
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	session := &models.SessionState{
		Site: server.URL,
		Cookies: []models.SessionCookie{
			{Name: "sid", Value: "member", Domain: u.Hostname(), Path: "/", Expires: -1},
		},
		Origins: []models.OriginState{
			{Origin: server.URL, LocalStorage: []models.StorageItem{{Name: "token", Value: "abc"}}},
		},
	}

	ctx := context.Background()
	browser, err := NewFactory(config, arbor.NewLogger()).Open(ctx, session)
	require.NoError(t, err)
	defer browser.Close()

	doc, err := browser.Fetch(ctx, models.Target{Index: 1, URL: server.URL + "/a"}, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "Paywalled article", doc.Title)
	assert.Contains(t, doc.HTML, "<!DOCTYPE html>")
	assert.Contains(t, doc.HTML, "sid=member")
	assert.Contains(t, doc.HTML, `<div id="storage">abc</div>`)
	assert.Equal(t, server.URL+"/a", doc.FinalURL)

	require.NoError(t, browser.Reset(ctx))
}

func TestChromeBrowser_NavigationFailure(t *testing.T) {
	config := chromeConfig(t)

	ctx := context.Background()
	browser, err := NewFactory(config, arbor.NewLogger()).Open(ctx, nil)
	require.NoError(t, err)
	defer browser.Close()

	// Nothing listens on port 9 of localhost
	_, err = browser.Fetch(ctx, models.Target{Index: 1, URL: "http://127.0.0.1:9/"}, 30*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNavigationFailed), "got %v", err)
}

func TestChromeBrowser_Timeout(t *testing.T) {
	config := chromeConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		fmt.Fprint(w, "<html></html>")
	}))
	defer server.Close()

	ctx := context.Background()
	browser, err := NewFactory(config, arbor.NewLogger()).Open(ctx, nil)
	require.NoError(t, err)
	defer browser.Close()

	_, err = browser.Fetch(ctx, models.Target{Index: 1, URL: server.URL}, 200*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTimeout)

	// The browser survives a timed out target
	require.NoError(t, browser.Reset(ctx))
}

func TestChromeBrowser_ClosedEngine(t *testing.T) {
	config := chromeConfig(t)

	ctx := context.Background()
	browser, err := NewFactory(config, arbor.NewLogger()).Open(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, browser.Close())
	require.NoError(t, browser.Close())

	_, err = browser.Fetch(ctx, models.Target{Index: 1, URL: "about:blank"}, time.Second)
	assert.ErrorIs(t, err, models.ErrEngineClosed)
}
