package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/folio/internal/app"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or remove saved sessions",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show what the saved session contains",
	RunE:  runSessionShow,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the sites with a session in the database",
	RunE:  runSessionList,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved session so the next crawl requires a new login",
	RunE:  runSessionClear,
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	application, err := newApp(app.WithoutLedger())
	if err != nil {
		return err
	}
	defer application.Close()

	state, err := application.SessionStore.Load(context.Background(), application.SessionHandle)
	if err != nil {
		return err
	}

	now := time.Now()
	cmd.Printf("Site:        %s\n", state.SiteDomain())
	cmd.Printf("Captured:    %s (%s ago)\n", state.CapturedAt.Format(time.RFC3339), now.Sub(state.CapturedAt).Round(time.Minute))
	cmd.Printf("Cookies:     %d (%d expired)\n", len(state.Cookies), state.ExpiredCookies(now))
	for _, origin := range state.Origins {
		cmd.Printf("Storage:     %s (%d items)\n", origin.Origin, len(origin.LocalStorage))
	}
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	sites, err := application.StorageManager.SessionStorage().ListSites(context.Background())
	if err != nil {
		return err
	}
	for _, site := range sites {
		cmd.Println(site)
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	if config.Session.Backend != common.SessionBackendBadger {
		if err := os.Remove(config.Session.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		logger.Info().Str("path", config.Session.Path).Msg("Session removed")
		return nil
	}

	application, err := newApp(app.WithoutLedger())
	if err != nil {
		return err
	}
	defer application.Close()

	site := (&models.SessionState{Site: config.SiteIdentity()}).SiteDomain()
	if err := application.StorageManager.SessionStorage().DeleteSession(context.Background(), site); err != nil {
		return err
	}
	logger.Info().Str("site", site).Msg("Session removed")
	return nil
}
