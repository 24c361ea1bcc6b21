package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"xscraper/pkg/collector"
	"xscraper/pkg/engine"
	"xscraper/pkg/logger"
	"xscraper/pkg/secrets"
	"xscraper/pkg/session"
)

var (
	crawlAccount string
	crawlKeyword string
	crawlProfile string
	crawlNiche   string
	crawlLimit   int
	crawlOutput  string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one targeted crawl",
	Long: `Runs a single crawl invocation against one of the three supported
targets. Exactly one of --keyword, --profile or --niche must be given.
Partial results are kept on rate limiting, stagnation and cancellation.`,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlAccount, "account", "a", "default", "keychain account holding the credentials")
	crawlCmd.Flags().StringVarP(&crawlKeyword, "keyword", "k", "", "content search keyword")
	crawlCmd.Flags().StringVarP(&crawlProfile, "profile", "p", "", "profile URL or handle")
	crawlCmd.Flags().StringVarP(&crawlNiche, "niche", "n", "", "people search niche")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 0, "maximum records to collect (0 = config default)")
	crawlCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "write results to file instead of stdout")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	targets := 0
	for _, t := range []string{crawlKeyword, crawlProfile, crawlNiche} {
		if t != "" {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("exactly one of --keyword, --profile or --niche is required")
	}

	sess, err := openStoredSession(crawlAccount)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetLogger()
	eng, err := engine.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	var result *collector.Result
	switch {
	case crawlKeyword != "":
		result, err = eng.CrawlContent(ctx, crawlKeyword, sess, crawlLimit)
	case crawlProfile != "":
		result, err = eng.CrawlProfile(ctx, crawlProfile, sess)
	default:
		result, err = eng.CrawlPeople(ctx, crawlNiche, sess, crawlLimit)
	}
	if err != nil {
		return err
	}

	if result.Outcome == collector.OutcomeAuthFailed {
		log.Warn("session rejected; run 'xscraper auth' to reconnect the account")
	} else {
		sess.Touch(time.Now())
	}

	return writeResult(result)
}

// openStoredSession loads the encrypted blob from the keychain, prompts for
// the passphrase, and opens the session.
func openStoredSession(account string) (*session.Session, error) {
	store, err := session.NewKeyringStore()
	if err != nil {
		return nil, err
	}

	blob, salt, err := store.Retrieve(account)
	if err != nil {
		return nil, err
	}

	passphrase, err := promptSecret("passphrase: ")
	if err != nil {
		return nil, err
	}

	cipher := secrets.NewAESCipher(passphrase, salt)
	return session.Open(uuid.New().String(), blob, cipher, time.Now().Add(30*24*time.Hour))
}

func writeResult(result *collector.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if crawlOutput == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(crawlOutput, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Printf("Wrote %d records to %s (outcome: %s)\n", len(result.Records), crawlOutput, result.Outcome)
	return nil
}
