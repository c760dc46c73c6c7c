package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// LoginBrowser is the visible browser a person logs in with
type LoginBrowser interface {
	Open(ctx context.Context, loginURL string) error
	Capture(ctx context.Context) (*models.SessionState, error)
	Close() error
}

// LoginBrowserFactory creates the browser for one login
type LoginBrowserFactory func() LoginBrowser

// Service captures an authenticated session through a manual login
type Service struct {
	config     *common.Config
	store      interfaces.SessionStore
	newBrowser LoginBrowserFactory
	confirm    io.Reader
	logger     arbor.ILogger
}

// NewService creates the authenticator. confirm is read for the line that
// signals the login has been completed (stdin from the CLI).
func NewService(config *common.Config, store interfaces.SessionStore, newBrowser LoginBrowserFactory, confirm io.Reader, logger arbor.ILogger) *Service {
	return &Service{
		config:     config,
		store:      store,
		newBrowser: newBrowser,
		confirm:    confirm,
		logger:     logger,
	}
}

// Login opens the login page, waits for the user to confirm and saves the
// resulting session. It returns the session store handle.
func (s *Service) Login(ctx context.Context) (string, error) {
	loginURL := s.config.Site.LoginURL
	if loginURL == "" {
		return "", fmt.Errorf("site.login_url is not configured")
	}

	browser := s.newBrowser()
	defer func() {
		if err := browser.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close login browser")
		}
	}()

	if err := browser.Open(ctx, loginURL); err != nil {
		return "", models.NewFetchError(models.KindEngineError, loginURL, fmt.Errorf("failed to open login page: %w", err))
	}

	s.logger.Info().
		Str("url", loginURL).
		Msg("Log in manually in the browser window, then press Enter here to save the session")

	if err := waitForLine(ctx, s.confirm); err != nil {
		return "", fmt.Errorf("login aborted: %w", err)
	}

	state, err := browser.Capture(ctx)
	if err != nil {
		return "", models.NewFetchError(models.KindEngineError, loginURL, fmt.Errorf("failed to capture session: %w", err))
	}

	state.Site = s.config.SiteIdentity()
	state.LoginURL = loginURL
	if state.UserAgent == "" {
		state.UserAgent = s.config.Browser.UserAgent
	}
	if state.CapturedAt.IsZero() {
		state.CapturedAt = time.Now()
	}

	if len(state.Cookies) == 0 {
		s.logger.Warn().Msg("No cookies captured, the saved session will not be authenticated")
	}

	handle, err := s.store.Save(ctx, state)
	if err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info().
		Str("handle", handle).
		Int("cookies", len(state.Cookies)).
		Int("origins", len(state.Origins)).
		Msg("Login session captured")

	return handle, nil
}

// waitForLine blocks until a line (or EOF) is read from r or ctx is done
func waitForLine(ctx context.Context, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
