package targets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"gopkg.in/yaml.v3"
)

// Loader reads the ordered list of crawl targets from a JSON or YAML file
type Loader struct {
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewLoader creates a target list loader
func NewLoader(logger arbor.ILogger) interfaces.TargetLoader {
	return &Loader{
		validate: validator.New(),
		logger:   logger,
	}
}

// Load parses path into targets numbered from 1 in file order.
// Duplicates are kept and URLs are not checked for reachability.
func (l *Loader) Load(path string) ([]models.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, malformed(path, fmt.Errorf("failed to read target list: %w", err))
	}

	items, err := decodeList(path, data)
	if err != nil {
		return nil, malformed(path, err)
	}

	targets := make([]models.Target, 0, len(items))
	for i, item := range items {
		target, err := l.toTarget(i+1, item)
		if err != nil {
			return nil, malformed(path, err)
		}
		targets = append(targets, target)
	}

	l.logger.Debug().
		Str("path", path).
		Int("targets", len(targets)).
		Msg("Target list loaded")

	return targets, nil
}

func (l *Loader) toTarget(index int, item interface{}) (models.Target, error) {
	fields, ok := item.(map[string]interface{})
	if !ok {
		return models.Target{}, fmt.Errorf("entry %d is not an object", index)
	}

	raw, present := fields["url"]
	if !present {
		return models.Target{}, fmt.Errorf("entry %d has no url field", index)
	}
	url, ok := raw.(string)
	if !ok {
		return models.Target{}, fmt.Errorf("entry %d url is not a string", index)
	}

	target := models.Target{
		Index: index,
		URL:   strings.TrimSpace(url),
	}
	if err := l.validate.Struct(&target); err != nil {
		return models.Target{}, fmt.Errorf("entry %d: %w", index, err)
	}

	for key, value := range fields {
		if key == "url" {
			continue
		}
		if target.Metadata == nil {
			target.Metadata = make(map[string]interface{}, len(fields)-1)
		}
		target.Metadata[key] = value
	}

	return target, nil
}

func decodeList(path string, data []byte) ([]interface{}, error) {
	var decoded interface{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		if err := decoder.Decode(&decoded); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("target list is empty")
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		var extra interface{}
		if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid YAML: target list must be a single document")
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		// Only whitespace may follow the list
		if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid JSON: unexpected data after the target list at offset %d", decoder.InputOffset())
		}
	}

	items, ok := decoded.([]interface{})
	if !ok {
		return nil, fmt.Errorf("target list must be an array of objects")
	}
	return items, nil
}

func malformed(path string, err error) error {
	return models.NewFetchError(models.KindMalformedInput, path, err)
}
