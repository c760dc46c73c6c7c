package main

import (
	"github.com/spf13/cobra"
	"github.com/ternarybob/folio/internal/app"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in manually and save the browser session",
	Long: `Opens a visible browser on the configured login page. Complete the login
(including any consent or captcha steps) in that window, then press Enter in
this terminal to capture and save the session.`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	application, err := newApp(app.WithoutLedger())
	if err != nil {
		return err
	}
	defer application.Close()

	handle, err := application.AuthService.Login(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Login failed")
		return err
	}

	cmd.Printf("Session saved to %s\n", handle)
	return nil
}
