package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/folio/internal/common"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Render every target with the saved session",
	Long: `Loads the saved session and the target list, then renders each target in
order and writes its markup to the output directory. Failed targets are logged
and skipped.`,
	RunE: runCrawl,
}

var (
	crawlTargets     string
	crawlOutput      string
	crawlSession     string
	crawlTimeout     time.Duration
	crawlResume      bool
	crawlHeadless    bool
	crawlResetLedger bool
)

func init() {
	crawlCmd.Flags().StringVarP(&crawlTargets, "targets", "t", "", "Target list file (JSON or YAML)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "Output directory for rendered artifacts")
	crawlCmd.Flags().StringVar(&crawlSession, "session", "", "Session artifact path (file backend)")
	crawlCmd.Flags().DurationVar(&crawlTimeout, "timeout", 0, "Navigation timeout per target, e.g. 120s")
	crawlCmd.Flags().BoolVar(&crawlResume, "resume", false, "Skip targets already completed in this output directory")
	crawlCmd.Flags().BoolVar(&crawlHeadless, "headless", true, "Run the browser without a window")
	crawlCmd.Flags().BoolVar(&crawlResetLedger, "reset-ledger", false, "Forget completed targets for the output directory before crawling")
}

// crawlOverrides collects the crawl flags that were set explicitly
func crawlOverrides(cmd *cobra.Command) common.FlagOverrides {
	flags := common.FlagOverrides{
		LogLevel:    logLevel,
		TargetsPath: crawlTargets,
		OutputDir:   crawlOutput,
		SessionPath: crawlSession,
		Timeout:     crawlTimeout,
	}

	if cmd.Flags().Changed("resume") {
		flags.Resume = &crawlResume
	}
	if cmd.Flags().Changed("headless") {
		flags.Headless = &crawlHeadless
	}
	return flags
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if crawlResetLedger {
		removed, err := application.Ledger.Reset(ctx, application.ArtifactWriter.Dir())
		if err != nil {
			return err
		}
		logger.Info().
			Int("removed", removed).
			Str("output_dir", application.ArtifactWriter.Dir()).
			Msg("Completion ledger reset")
	}

	if _, err := application.CrawlerService.Run(ctx); err != nil {
		return err
	}
	return nil
}
