package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"xscraper/pkg/secrets"
	"xscraper/pkg/session"
)

var authAccount string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store delegated session credentials in the system keychain",
	Long: `Prompts for the session cookies (hidden input), seals them with a
passphrase-derived key, and stores the encrypted blob in the system
keychain. The passphrase is never stored; you supply it again at crawl
time.`,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVarP(&authAccount, "account", "a", "default", "account name the credentials are stored under")
}

func runAuth(cmd *cobra.Command, args []string) error {
	authToken, err := promptSecret(fmt.Sprintf("%s cookie value: ", session.CookieAuthToken))
	if err != nil {
		return err
	}
	csrf, err := promptSecret(fmt.Sprintf("%s cookie value: ", session.CookieCSRF))
	if err != nil {
		return err
	}
	if authToken == "" || csrf == "" {
		return fmt.Errorf("both cookie values are required")
	}

	passphrase, err := promptSecret("passphrase to seal the credentials: ")
	if err != nil {
		return err
	}
	confirm, err := promptSecret("confirm passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	salt, err := secrets.NewSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	cipher := secrets.NewAESCipher(passphrase, salt)
	blob, err := session.Seal(session.Credentials{
		session.CookieAuthToken: authToken,
		session.CookieCSRF:      csrf,
	}, cipher)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}

	store, err := session.NewKeyringStore()
	if err != nil {
		return err
	}
	if err := store.Store(authAccount, blob, salt); err != nil {
		return err
	}

	fmt.Printf("Credentials for %q stored in the system keychain.\n", authAccount)
	return nil
}

// promptSecret reads a line without echoing it.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(value)), nil
}
