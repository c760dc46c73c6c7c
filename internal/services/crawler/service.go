package crawler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Service runs the authenticated crawl: one browser, every target in order,
// one artifact per successful render.
type Service struct {
	config        *common.Config
	sessions      interfaces.SessionStore
	sessionHandle string
	loader        interfaces.TargetLoader
	browsers      interfaces.BrowserFactory
	writer        interfaces.ArtifactWriter
	ledger        interfaces.CompletionLedger
	logger        arbor.ILogger

	mu    sync.RWMutex
	state models.RunState
}

// NewService creates a crawl loop. ledger may be nil, in which case completions
// are not recorded and resume is unavailable.
func NewService(
	config *common.Config,
	sessions interfaces.SessionStore,
	sessionHandle string,
	loader interfaces.TargetLoader,
	browsers interfaces.BrowserFactory,
	writer interfaces.ArtifactWriter,
	ledger interfaces.CompletionLedger,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:        config,
		sessions:      sessions,
		sessionHandle: sessionHandle,
		loader:        loader,
		browsers:      browsers,
		writer:        writer,
		ledger:        ledger,
		logger:        logger,
		state:         models.RunStateIdle,
	}
}

// State returns the current run state
func (s *Service) State() models.RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(state models.RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes one crawl. Session and target list failures are returned
// before any target is attempted; per-target failures are logged, recorded
// in the report and skipped. The run aborts early only when the browser is
// lost or ctx is cancelled.
func (s *Service) Run(ctx context.Context) (*models.Report, error) {
	report := &models.Report{
		RunID: common.NewRunID(),
		State: models.RunStateRunning,
	}
	s.setState(models.RunStateRunning)

	fail := func(err error) (*models.Report, error) {
		report.State = models.RunStateAborted
		s.setState(models.RunStateAborted)
		return report, err
	}

	session, err := s.sessions.Load(ctx, s.sessionHandle)
	if err != nil {
		s.logger.Error().Err(err).Msg("No usable session, run 'folio login' first")
		return fail(err)
	}
	if expired := session.ExpiredCookies(time.Now()); expired > 0 {
		s.logger.Warn().Int("expired_cookies", expired).Msg("Session has expired cookies")
	}

	targets, err := s.loader.Load(s.config.Targets.Path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.config.Targets.Path).Msg("Failed to load target list")
		return fail(err)
	}
	report.Total = len(targets)

	resume := s.config.Crawler.Resume && s.ledger != nil
	s.logger.Info().
		Str("run_id", report.RunID).
		Int("targets", len(targets)).
		Str("output_dir", s.writer.Dir()).
		Bool("resume", resume).
		Msg("Crawl started")

	if len(targets) == 0 {
		report.State = models.RunStateCompleted
		s.setState(models.RunStateCompleted)
		return report, nil
	}

	browser, err := s.browsers.Open(ctx, session)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to start browser")
		return fail(err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	timeout := s.config.Render.Timeout.Duration
	attempted := 0

	for i, target := range targets {
		if ctx.Err() != nil {
			return s.abort(report, ctx.Err())
		}

		s.logger.Info().Msgf("[%d/%d] %s", i+1, len(targets), target.URL)

		if resume && s.alreadyDone(ctx, target) {
			report.Skipped++
			continue
		}

		if attempted > 0 {
			if err := browser.Reset(ctx); err != nil {
				if errors.Is(err, models.ErrEngineClosed) || ctx.Err() != nil {
					return s.abort(report, err)
				}
				s.logger.Warn().Err(err).Str("url", target.URL).Msg("Failed to reset page before target")
			}
		}
		attempted++

		doc, err := browser.Fetch(ctx, target, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return s.abort(report, ctx.Err())
			}
			s.recordFailure(report, target, err, "Failed to fetch target")
			if errors.Is(err, models.ErrEngineClosed) {
				return s.abort(report, err)
			}
			continue
		}

		file, err := s.writer.Write(target.Index, doc)
		if err != nil {
			s.recordFailure(report, target, models.NewFetchError(models.KindWriteFailed, target.URL, err), "Failed to write artifact")
			continue
		}

		report.Succeeded++
		report.Artifacts = append(report.Artifacts, file.Path)
		s.markComplete(ctx, report.RunID, target, file)
	}

	report.State = models.RunStateCompleted
	s.setState(models.RunStateCompleted)
	s.logger.Info().Str("run_id", report.RunID).Msg("Crawl finished")

	return report, nil
}

func (s *Service) abort(report *models.Report, cause error) (*models.Report, error) {
	report.State = models.RunStateAborted
	s.setState(models.RunStateAborted)

	s.logger.Error().
		Err(cause).
		Str("run_id", report.RunID).
		Int("remaining", report.Total-report.Succeeded-report.Failed-report.Skipped).
		Msg("Crawl aborted")

	return report, fmt.Errorf("crawl aborted: %w", cause)
}

func (s *Service) recordFailure(report *models.Report, target models.Target, err error, msg string) {
	kind := models.KindOf(err)
	report.Failed++
	report.Failures = append(report.Failures, models.Failure{
		Index: target.Index,
		URL:   target.URL,
		Kind:  kind,
		Error: err.Error(),
	})

	s.logger.Error().
		Str("url", target.URL).
		Int("index", target.Index).
		Str("kind", string(kind)).
		Err(err).
		Msg(msg)
}

// alreadyDone reports whether the ledger has the target and its artifact is still on disk
func (s *Service) alreadyDone(ctx context.Context, target models.Target) bool {
	completion, done, err := s.ledger.IsComplete(ctx, s.writer.Dir(), target.Index)
	if err != nil {
		s.logger.Warn().Err(err).Int("index", target.Index).Msg("Failed to read completion ledger")
		return false
	}
	if !done {
		return false
	}
	if completion.URL != target.URL {
		s.logger.Debug().
			Int("index", target.Index).
			Str("recorded_url", completion.URL).
			Msg("Ledger entry is for a different URL, fetching again")
		return false
	}
	if _, err := os.Stat(completion.ArtifactPath); err != nil {
		return false
	}

	s.logger.Debug().
		Int("index", target.Index).
		Str("path", completion.ArtifactPath).
		Msg("Target already completed, skipping")
	return true
}

func (s *Service) markComplete(ctx context.Context, runID string, target models.Target, file *models.ArtifactFile) {
	if s.ledger == nil {
		return
	}

	err := s.ledger.MarkComplete(ctx, &models.Completion{
		OutputDir:    s.writer.Dir(),
		Index:        target.Index,
		URL:          target.URL,
		ArtifactPath: file.Path,
		RunID:        runID,
		CompletedAt:  file.WrittenAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("index", target.Index).Msg("Failed to record completion")
	}
}
