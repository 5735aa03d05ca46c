package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mweide/calagent/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate a Google account for calendar access",
		Long: `Run the OAuth authorization flow for a Google account and cache the
resulting token locally. Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET
to be set in the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if google.HasTokenForAccount(account) {
				fmt.Printf("Account %q is already authenticated.\n", account)
				fmt.Println("Delete the cached token file to re-authenticate.")
				return nil
			}

			fmt.Println("Open the following URL in your browser and approve access:")
			fmt.Println()
			fmt.Printf("  %s\n", google.GetAuthURLForAccount(account))
			fmt.Println()
			fmt.Print("Paste the authorization code here: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveTokenForAccount(context.Background(), account, code); err != nil {
				return fmt.Errorf("exchanging authorization code: %w", err)
			}

			fmt.Printf("Token saved for account %q.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to authenticate (default: 'default')")
	return cmd
}
