package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/folio/internal/models"
)

// TargetLoader reads the ordered target list of a run
type TargetLoader interface {
	Load(path string) ([]models.Target, error)
}

// Browser is one rendering engine held for a whole crawl run
type Browser interface {
	// Fetch renders a single target and returns its markup
	Fetch(ctx context.Context, target models.Target, timeout time.Duration) (*models.RenderedDocument, error)
	// Reset clears page state left behind by the previous target
	Reset(ctx context.Context) error
	Close() error
}

// BrowserFactory acquires a Browser with a restored session
type BrowserFactory interface {
	Open(ctx context.Context, session *models.SessionState) (Browser, error)
}

// ArtifactWriter persists rendered documents under their sequence index
type ArtifactWriter interface {
	Write(index int, doc *models.RenderedDocument) (*models.ArtifactFile, error)
	Dir() string
}

// CompletionLedger tracks which indices of an output directory are done
type CompletionLedger interface {
	IsComplete(ctx context.Context, outputDir string, index int) (*models.Completion, bool, error)
	MarkComplete(ctx context.Context, completion *models.Completion) error
	Reset(ctx context.Context, outputDir string) (int, error)
	List(ctx context.Context, outputDir string) ([]*models.Completion, error)
}
