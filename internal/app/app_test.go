package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/auth"
)

type stubLoginBrowser struct{}

func (stubLoginBrowser) Open(ctx context.Context, loginURL string) error { return nil }

func (stubLoginBrowser) Capture(ctx context.Context) (*models.SessionState, error) {
	return &models.SessionState{
		Cookies: []models.SessionCookie{{Name: "sid", Value: "member", Domain: ".newscientist.com", Path: "/", Expires: -1}},
	}, nil
}

func (stubLoginBrowser) Close() error { return nil }

type stubBrowser struct {
	cookie string
}

func (b *stubBrowser) Fetch(ctx context.Context, target models.Target, timeout time.Duration) (*models.RenderedDocument, error) {
	return &models.RenderedDocument{Target: target, HTML: "<html>" + b.cookie + "</html>"}, nil
}

func (b *stubBrowser) Reset(ctx context.Context) error { return nil }
func (b *stubBrowser) Close() error                    { return nil }

type stubFactory struct{}

func (stubFactory) Open(ctx context.Context, session *models.SessionState) (interfaces.Browser, error) {
	return &stubBrowser{cookie: session.Cookies[0].Value}, nil
}

func testConfig(t *testing.T, backend string) *common.Config {
	t.Helper()
	dir := t.TempDir()

	config := common.NewDefaultConfig()
	config.Session.Backend = backend
	config.Session.Path = filepath.Join(dir, "session_state.json")
	config.Targets.Path = filepath.Join(dir, "targets.json")
	config.Output.Dir = filepath.Join(dir, "rendered_html")
	config.Storage.Badger.Path = filepath.Join(dir, "data")

	require.NoError(t, os.WriteFile(config.Targets.Path, []byte(`[{"url":"https://x/a"},{"url":"https://x/b"}]`), 0644))
	return config
}

func TestApp_LoginThenCrawl(t *testing.T) {
	for _, backend := range []string{common.SessionBackendFile, common.SessionBackendBadger} {
		t.Run(backend, func(t *testing.T) {
			config := testConfig(t, backend)

			a, err := New(config, arbor.NewLogger(),
				WithConfirmReader(strings.NewReader("\n")),
				WithLoginBrowser(func() auth.LoginBrowser { return stubLoginBrowser{} }),
				WithBrowserFactory(stubFactory{}),
			)
			require.NoError(t, err)
			defer a.Close()

			ctx := context.Background()
			_, err = a.AuthService.Login(ctx)
			require.NoError(t, err)

			report, err := a.CrawlerService.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, report.Succeeded)

			data, err := os.ReadFile(filepath.Join(config.Output.Dir, "article_0002.html"))
			require.NoError(t, err)
			assert.Equal(t, "<html>member</html>", string(data))

			completions, err := a.Ledger.List(ctx, a.ArtifactWriter.Dir())
			require.NoError(t, err)
			assert.Len(t, completions, 2)
		})
	}
}

func TestApp_CrawlWithoutLogin(t *testing.T) {
	config := testConfig(t, common.SessionBackendFile)

	a, err := New(config, arbor.NewLogger(), WithBrowserFactory(stubFactory{}))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.CrawlerService.Run(context.Background())
	assert.ErrorIs(t, err, models.ErrSessionMissing)

	_, err = os.Stat(config.Output.Dir)
	assert.True(t, os.IsNotExist(err), "no artifacts without a session")
}

func TestApp_LoginWithoutLedgerLeavesDatabaseClosed(t *testing.T) {
	config := testConfig(t, common.SessionBackendFile)

	a, err := New(config, arbor.NewLogger(),
		WithoutLedger(),
		WithConfirmReader(strings.NewReader("\n")),
		WithLoginBrowser(func() auth.LoginBrowser { return stubLoginBrowser{} }),
	)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.StorageManager)
	assert.Nil(t, a.Ledger)

	_, err = a.AuthService.Login(context.Background())
	require.NoError(t, err)

	// A second process can use the store while the login app is open
	other, err := New(config, arbor.NewLogger(), WithBrowserFactory(stubFactory{}))
	require.NoError(t, err)
	defer other.Close()

	report, err := other.CrawlerService.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
}

func TestApp_WithoutLedgerStillOpensBadgerSessions(t *testing.T) {
	config := testConfig(t, common.SessionBackendBadger)

	a, err := New(config, arbor.NewLogger(), WithoutLedger())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.StorageManager)
	assert.Nil(t, a.Ledger)
}
