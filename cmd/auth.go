package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sangtrankt98/invoice-collection/internal/config"
	"github.com/sangtrankt98/invoice-collection/internal/google"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail and Drive access",
		Long: `Runs the OAuth flow for the Google APIs. Prints an authorization URL,
waits for the code and caches the resulting token; the other commands
reuse the cached token until it expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Require("GOOGLE_CLIENT_ID", cfg.GoogleClientID); err != nil {
				return err
			}
			if err := cfg.Require("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret); err != nil {
				return err
			}

			creds := google.Credentials{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
			}

			if google.HasToken() {
				fmt.Println("A valid token is already cached; re-authorizing will replace it.")
			}

			fmt.Println("Open the following URL in your browser and authorize access:")
			fmt.Println()
			fmt.Println(google.GetAuthURL(creds))
			fmt.Println()
			fmt.Print("Enter the authorization code: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("authorization code is empty")
			}

			if err := google.SaveToken(cmd.Context(), creds, code); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Println("Token saved.")
			return nil
		},
	}
}
