package session

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// KeyedStore keeps sessions in the application database keyed by site domain.
// The handle is the site domain.
type KeyedStore struct {
	storage     interfaces.SessionStorage
	defaultSite string
	logger      arbor.ILogger
}

// NewKeyedStore creates a session store over SessionStorage. defaultSite is
// used when Load is given an empty handle.
func NewKeyedStore(storage interfaces.SessionStorage, defaultSite string, logger arbor.ILogger) interfaces.SessionStore {
	return &KeyedStore{
		storage:     storage,
		defaultSite: defaultSite,
		logger:      logger,
	}
}

func (s *KeyedStore) Save(ctx context.Context, state *models.SessionState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("session state is nil")
	}
	if state.SiteDomain() == "" {
		state.Site = s.defaultSite
	}

	if err := s.storage.StoreSession(ctx, state); err != nil {
		return "", err
	}

	domain := state.SiteDomain()
	s.logger.Info().
		Str("site", domain).
		Int("cookies", len(state.Cookies)).
		Msg("Session saved")

	return domain, nil
}

func (s *KeyedStore) Load(ctx context.Context, handle string) (*models.SessionState, error) {
	site := handle
	if site == "" {
		site = (&models.SessionState{Site: s.defaultSite}).SiteDomain()
	}
	if site == "" {
		return nil, models.NewFetchError(models.KindSessionMissing, "", fmt.Errorf("no site configured for session lookup"))
	}

	return s.storage.GetSession(ctx, site)
}
