package renderer

import (
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/folio/internal/common"
)

// AllocatorOptions builds the chromedp exec allocator options for the browser section.
// The authenticator passes headless=false regardless of configuration.
func AllocatorOptions(config common.BrowserConfig, headless bool) []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", config.DisableGPU),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-timer-throttling", false),
		chromedp.Flag("disable-backgrounding-occluded-windows", false),
		chromedp.Flag("disable-renderer-backgrounding", false),
	)

	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if !headless {
		opts = append(opts, chromedp.WindowSize(1280, 900))
	}

	return opts
}
