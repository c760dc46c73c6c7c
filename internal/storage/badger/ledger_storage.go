package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// LedgerStorage implements the CompletionLedger interface for Badger
type LedgerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLedgerStorage creates a new LedgerStorage instance
func NewLedgerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CompletionLedger {
	return &LedgerStorage{
		db:     db,
		logger: logger,
	}
}

func (s *LedgerStorage) IsComplete(ctx context.Context, outputDir string, index int) (*models.Completion, bool, error) {
	var completion models.Completion
	if err := s.db.Store().Get(models.CompletionKey(outputDir, index), &completion); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read completion: %w", err)
	}
	return &completion, true, nil
}

func (s *LedgerStorage) MarkComplete(ctx context.Context, completion *models.Completion) error {
	if completion.OutputDir == "" {
		return fmt.Errorf("completion output directory is required")
	}
	if completion.Index <= 0 {
		return fmt.Errorf("completion index must be positive, got %d", completion.Index)
	}

	completion.Key = models.CompletionKey(completion.OutputDir, completion.Index)
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now()
	}

	if err := s.db.Store().Upsert(completion.Key, completion); err != nil {
		return fmt.Errorf("failed to store completion: %w", err)
	}
	return nil
}

func (s *LedgerStorage) Reset(ctx context.Context, outputDir string) (int, error) {
	count, err := s.db.Store().Count(&models.Completion{}, badgerhold.Where("OutputDir").Eq(outputDir))
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}

	if err := s.db.Store().DeleteMatching(&models.Completion{}, badgerhold.Where("OutputDir").Eq(outputDir)); err != nil {
		return 0, fmt.Errorf("failed to reset completions: %w", err)
	}

	s.logger.Debug().Str("output_dir", outputDir).Int("removed", int(count)).Msg("Completion ledger reset")
	return int(count), nil
}

func (s *LedgerStorage) List(ctx context.Context, outputDir string) ([]*models.Completion, error) {
	var completions []models.Completion
	if err := s.db.Store().Find(&completions, badgerhold.Where("OutputDir").Eq(outputDir)); err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}

	sort.Slice(completions, func(i, j int) bool {
		return completions[i].Index < completions[j].Index
	})

	result := make([]*models.Completion, len(completions))
	for i := range completions {
		result[i] = &completions[i]
	}
	return result, nil
}
