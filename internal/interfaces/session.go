package interfaces

import (
	"context"

	"github.com/ternarybob/folio/internal/models"
)

// SessionStore persists the authenticated session of a site.
// Load returns models.ErrSessionMissing (by kind) when nothing usable is stored.
type SessionStore interface {
	Save(ctx context.Context, state *models.SessionState) (string, error)
	Load(ctx context.Context, handle string) (*models.SessionState, error)
}

// SessionStorage is the badger persistence used by the keyed session store
type SessionStorage interface {
	StoreSession(ctx context.Context, state *models.SessionState) error
	GetSession(ctx context.Context, siteDomain string) (*models.SessionState, error)
	DeleteSession(ctx context.Context, siteDomain string) error
	ListSites(ctx context.Context) ([]string, error)
}

// StorageManager exposes the stores backed by the application database
type StorageManager interface {
	SessionStorage() SessionStorage
	CompletionLedger() CompletionLedger
	Close() error
}
