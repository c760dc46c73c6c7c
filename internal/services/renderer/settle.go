package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/folio/internal/common"
)

// Settler waits after the load milestone until the page is worth capturing.
// ready is false when a bounded wait ran out before the page reported ready.
type Settler interface {
	Settle(ctx context.Context) (ready bool, err error)
	Name() string
}

// NewSettler returns the settle policy configured in the render section
func NewSettler(config common.RenderConfig) (Settler, error) {
	switch config.SettleMode {
	case common.SettleFixed, "":
		return &fixedSettler{delay: config.SettleDelay.Duration}, nil
	case common.SettleSelector:
		if config.ReadySelector == "" {
			return nil, fmt.Errorf("selector settle mode requires render.ready_selector")
		}
		check := func(ctx context.Context) (bool, error) {
			var found bool
			err := chromedp.Run(ctx, chromedp.Evaluate(selectorProbe(config.ReadySelector), &found))
			return found, err
		}
		return &pollSettler{
			selector: config.ReadySelector,
			interval: config.PollInterval.Duration,
			maxPolls: config.MaxPolls,
			check:    check,
		}, nil
	default:
		return nil, fmt.Errorf("unknown settle mode: %s", config.SettleMode)
	}
}

type fixedSettler struct {
	delay time.Duration
}

func (s *fixedSettler) Name() string { return common.SettleFixed }

func (s *fixedSettler) Settle(ctx context.Context) (bool, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return false, err
	}
	return true, nil
}

type pollSettler struct {
	selector string
	interval time.Duration
	maxPolls int
	check    func(ctx context.Context) (bool, error)
}

func (s *pollSettler) Name() string { return common.SettleSelector }

func (s *pollSettler) Settle(ctx context.Context) (bool, error) {
	return pollUntil(ctx, s.interval, s.maxPolls, s.check)
}

// pollUntil calls check up to maxPolls times, interval apart, stopping at the first true
func pollUntil(ctx context.Context, interval time.Duration, maxPolls int, check func(ctx context.Context) (bool, error)) (bool, error) {
	if maxPolls <= 0 {
		maxPolls = 1
	}

	for attempt := 1; attempt <= maxPolls; attempt++ {
		ready, err := check(ctx)
		if err != nil {
			return false, err
		}
		if ready {
			return true, nil
		}
		if attempt == maxPolls {
			break
		}
		if err := sleep(ctx, interval); err != nil {
			return false, err
		}
	}
	return false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func selectorProbe(selector string) string {
	return fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
}
