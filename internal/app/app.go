package app

import (
	"fmt"
	"io"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/services/artifacts"
	"github.com/ternarybob/folio/internal/services/auth"
	"github.com/ternarybob/folio/internal/services/crawler"
	"github.com/ternarybob/folio/internal/services/renderer"
	"github.com/ternarybob/folio/internal/services/session"
	"github.com/ternarybob/folio/internal/services/targets"
	"github.com/ternarybob/folio/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	SessionStore   interfaces.SessionStore
	SessionHandle  string
	TargetLoader   interfaces.TargetLoader
	BrowserFactory interfaces.BrowserFactory
	ArtifactWriter interfaces.ArtifactWriter
	Ledger         interfaces.CompletionLedger

	AuthService    *auth.Service
	CrawlerService *crawler.Service
}

// Option customises an App before its services are built
type Option func(*options)

type options struct {
	confirm      io.Reader
	loginBrowser auth.LoginBrowserFactory
	browsers     interfaces.BrowserFactory
	noLedger     bool
}

// WithoutLedger skips the completion ledger. The badger store is then only
// opened for the badger session backend, so commands that wait on a person
// do not hold the database lock.
func WithoutLedger() Option {
	return func(o *options) { o.noLedger = true }
}

// WithConfirmReader sets where the authenticator reads the login confirmation from
func WithConfirmReader(r io.Reader) Option {
	return func(o *options) { o.confirm = r }
}

// WithLoginBrowser replaces the chromedp login browser
func WithLoginBrowser(f auth.LoginBrowserFactory) Option {
	return func(o *options) { o.loginBrowser = f }
}

// WithBrowserFactory replaces the chromedp render browser
func WithBrowserFactory(f interfaces.BrowserFactory) Option {
	return func(o *options) { o.browsers = f }
}

// New initializes the storage layer and wires the login and crawl services
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	o := &options{confirm: os.Stdin}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if !o.noLedger || cfg.Session.Backend == common.SessionBackendBadger {
		if err := app.initDatabase(); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if err := app.initServices(o); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Debug().
		Str("session_backend", cfg.Session.Backend).
		Str("isolation", cfg.Browser.Isolation).
		Str("settle_mode", cfg.Render.SettleMode).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the badger store backing the keyed session backend and the completion ledger
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initServices(o *options) error {
	var err error
	var sessionStorage interfaces.SessionStorage
	if a.StorageManager != nil {
		sessionStorage = a.StorageManager.SessionStorage()
		if !o.noLedger {
			a.Ledger = a.StorageManager.CompletionLedger()
		}
	}

	a.SessionStore, err = session.NewStore(a.Config, sessionStorage, a.Logger)
	if err != nil {
		return err
	}
	a.SessionHandle = session.Handle(a.Config)

	a.TargetLoader = targets.NewLoader(a.Logger)
	a.ArtifactWriter = artifacts.NewWriter(a.Config.Output, a.Logger)

	a.BrowserFactory = o.browsers
	if a.BrowserFactory == nil {
		a.BrowserFactory = renderer.NewFactory(a.Config, a.Logger)
	}

	loginBrowser := o.loginBrowser
	if loginBrowser == nil {
		loginBrowser = auth.NewChromeLoginBrowser(a.Config, a.Logger)
	}
	a.AuthService = auth.NewService(a.Config, a.SessionStore, loginBrowser, o.confirm, a.Logger)

	a.CrawlerService = crawler.NewService(
		a.Config,
		a.SessionStore,
		a.SessionHandle,
		a.TargetLoader,
		a.BrowserFactory,
		a.ArtifactWriter,
		a.Ledger,
		a.Logger,
	)

	return nil
}

// Close releases the storage layer
func (a *App) Close() error {
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.StorageManager = nil
		a.Logger.Debug().Msg("Storage closed")
	}
	return nil
}
