package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/folio/internal/models"
)

// classify maps a chromedp failure onto the fetch error taxonomy.
// engineErr is the browser context's error, non-nil once the browser is gone.
func classify(url string, err error, engineErr error) error {
	if err == nil {
		return nil
	}

	var fe *models.FetchError
	if errors.As(err, &fe) {
		return err
	}

	if engineErr != nil || engineGone(err) {
		return models.NewFetchError(models.KindEngineError, url, fmt.Errorf("%w: %v", models.ErrEngineClosed, err))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewFetchError(models.KindTimeout, url, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "net::ERR_") || strings.Contains(msg, "page load error") {
		return models.NewFetchError(models.KindNavigationFailed, url, err)
	}

	return models.NewFetchError(models.KindEngineError, url, err)
}

func engineGone(err error) bool {
	if errors.Is(err, chromedp.ErrInvalidContext) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"websocket: close", "target closed", "connection closed", "browser closed", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
