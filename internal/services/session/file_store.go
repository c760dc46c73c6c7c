package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// FileStore keeps the session as one JSON document on disk. The handle is the file path.
type FileStore struct {
	path   string
	logger arbor.ILogger
}

// NewFileStore creates a file backed session store writing to path
func NewFileStore(path string, logger arbor.ILogger) interfaces.SessionStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Save writes the session, replacing any previous artifact
func (s *FileStore) Save(ctx context.Context, state *models.SessionState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("session state is nil")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	// Sibling temp file + rename replaces the artifact atomically
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		s.logger.Warn().Err(err).Str("path", tmpName).Msg("Failed to restrict session file permissions")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to replace session file: %w", err)
	}

	s.logger.Info().
		Str("path", s.path).
		Int("cookies", len(state.Cookies)).
		Int("origins", len(state.Origins)).
		Msg("Session saved")

	return s.path, nil
}

// Load reads the session at handle, or at the configured path when handle is empty
func (s *FileStore) Load(ctx context.Context, handle string) (*models.SessionState, error) {
	path := handle
	if path == "" {
		path = s.path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewFetchError(models.KindSessionMissing, "",
				fmt.Errorf("no session artifact at %s, run 'folio login' first", path))
		}
		return nil, models.NewFetchError(models.KindSessionMissing, "",
			fmt.Errorf("failed to read session artifact: %w", err))
	}

	var state models.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, models.NewFetchError(models.KindSessionMissing, "",
			fmt.Errorf("session artifact %s is unreadable: %w", path, err))
	}
	if state.IsEmpty() {
		return nil, models.NewFetchError(models.KindSessionMissing, "",
			fmt.Errorf("session artifact %s holds no session, run 'folio login' again", path))
	}

	s.logger.Debug().
		Str("path", path).
		Int("cookies", len(state.Cookies)).
		Msg("Session loaded")

	return &state, nil
}
