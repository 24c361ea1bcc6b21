package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xscraper/pkg/engine"
	"xscraper/pkg/logger"
)

var (
	browseAccount  string
	browseDuration time.Duration
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse passively to generate organic-looking session activity",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseAccount, "account", "a", "default", "keychain account holding the credentials")
	browseCmd.Flags().DurationVarP(&browseDuration, "duration", "d", 5*time.Minute, "how long to browse")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	sess, err := openStoredSession(browseAccount)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(ctx, cfg, logger.GetLogger())
	if err != nil {
		return err
	}
	defer eng.Close()

	actions, err := eng.BrowsePassively(ctx, sess, browseDuration)
	if errors.Is(err, engine.ErrAuthFailed) {
		logger.GetLogger().Warn("session rejected; run 'xscraper auth' to reconnect the account")
		return err
	}
	if err != nil {
		return err
	}

	fmt.Printf("Took %d actions over %s:\n", len(actions), browseDuration)
	for _, a := range actions {
		fmt.Println("  -", a)
	}
	return nil
}
