package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) StoreSession(ctx context.Context, state *models.SessionState) error {
	domain := state.SiteDomain()
	if domain == "" {
		return fmt.Errorf("session site domain is required")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	now := time.Now().Unix()
	record := &models.SessionRecord{
		SiteDomain: domain,
		State:      data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var existing models.SessionRecord
	if err := s.db.Store().Get(domain, &existing); err == nil && existing.CreatedAt != 0 {
		record.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(domain, record); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug().
		Str("site", domain).
		Int("cookies", len(state.Cookies)).
		Msg("Session stored")
	return nil
}

func (s *SessionStorage) GetSession(ctx context.Context, siteDomain string) (*models.SessionState, error) {
	var record models.SessionRecord
	if err := s.db.Store().Get(siteDomain, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.NewFetchError(models.KindSessionMissing, "",
				fmt.Errorf("no session stored for %s", siteDomain))
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state models.SessionState
	if err := json.Unmarshal(record.State, &state); err != nil {
		return nil, models.NewFetchError(models.KindSessionMissing, "",
			fmt.Errorf("stored session for %s is unreadable: %w", siteDomain, err))
	}
	if state.IsEmpty() {
		return nil, models.NewFetchError(models.KindSessionMissing, "",
			fmt.Errorf("stored session for %s is empty", siteDomain))
	}
	return &state, nil
}

func (s *SessionStorage) DeleteSession(ctx context.Context, siteDomain string) error {
	if err := s.db.Store().Delete(siteDomain, &models.SessionRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionStorage) ListSites(ctx context.Context) ([]string, error) {
	var records []models.SessionRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sites := make([]string, len(records))
	for i, r := range records {
		sites[i] = r.SiteDomain
	}
	return sites, nil
}
