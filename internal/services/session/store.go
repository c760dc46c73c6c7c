package session

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

// NewStore returns the session store selected by session.backend.
// storage may be nil when the file backend is configured.
func NewStore(config *common.Config, storage interfaces.SessionStorage, logger arbor.ILogger) (interfaces.SessionStore, error) {
	switch config.Session.Backend {
	case common.SessionBackendFile, "":
		return NewFileStore(config.Session.Path, logger), nil
	case common.SessionBackendBadger:
		if storage == nil {
			return nil, fmt.Errorf("badger session backend requires session storage")
		}
		return NewKeyedStore(storage, config.SiteIdentity(), logger), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s", config.Session.Backend)
	}
}

// Handle returns the handle Load expects for the configured backend
func Handle(config *common.Config) string {
	if config.Session.Backend == common.SessionBackendBadger {
		return ""
	}
	return config.Session.Path
}
