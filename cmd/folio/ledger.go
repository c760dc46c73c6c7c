package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the completion ledger used by --resume",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the completed targets of the output directory",
	RunE:  runLedgerShow,
}

func init() {
	ledgerCmd.AddCommand(ledgerShowCmd)
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	dir := application.ArtifactWriter.Dir()
	completions, err := application.Ledger.List(context.Background(), dir)
	if err != nil {
		return err
	}

	cmd.Printf("%s: %d completed\n", dir, len(completions))
	for _, c := range completions {
		cmd.Printf("%6d  %s  %s  %s\n", c.Index, c.CompletedAt.Format(time.RFC3339), c.RunID, c.URL)
	}
	return nil
}
