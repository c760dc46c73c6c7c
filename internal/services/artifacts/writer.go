package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Writer persists rendered markup as <prefix><index><extension> files
type Writer struct {
	dir       string
	prefix    string
	extension string
	width     int
	logger    arbor.ILogger
}

// NewWriter creates an artifact writer for the output section of the config
func NewWriter(config common.OutputConfig, logger arbor.ILogger) interfaces.ArtifactWriter {
	dir := config.Dir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	width := config.Width
	if width <= 0 {
		width = 4
	}

	return &Writer{
		dir:       dir,
		prefix:    config.Prefix,
		extension: config.Extension,
		width:     width,
		logger:    logger,
	}
}

// Dir returns the absolute output directory
func (w *Writer) Dir() string {
	return w.dir
}

// FileName returns the artifact name for index. Indices wider than the
// configured width are written in full.
func (w *Writer) FileName(index int) string {
	return fmt.Sprintf("%s%0*d%s", w.prefix, w.width, index, w.extension)
}

// Write stores the document markup, silently replacing an earlier artifact for the same index
func (w *Writer) Write(index int, doc *models.RenderedDocument) (*models.ArtifactFile, error) {
	if doc == nil {
		return nil, fmt.Errorf("rendered document is nil")
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, w.FileName(index))
	if err := os.WriteFile(path, []byte(doc.HTML), 0644); err != nil {
		return nil, fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	w.logger.Debug().
		Int("index", index).
		Str("path", path).
		Int("bytes", len(doc.HTML)).
		Msg("Artifact written")

	return &models.ArtifactFile{
		Index:     index,
		Path:      path,
		Bytes:     len(doc.HTML),
		WrittenAt: time.Now(),
	}, nil
}
