package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"xscraper/pkg/logger"
	"xscraper/pkg/retry"
)

// LaunchConfig configures the shared browser process.
type LaunchConfig struct {
	Headless bool
	// Attempts bounds launch/connect retries. Default: 3.
	Attempts int
}

// Launch starts a local browser with anti-detection flags and connects to
// it, retrying with backoff on transient launch failures. The returned
// cleanup closes the browser and its launcher.
func Launch(ctx context.Context, cfg LaunchConfig, log logger.Logger) (*rod.Browser, func(), error) {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}

	var b *rod.Browser
	var l *launcher.Launcher

	err := retry.Do(ctx, cfg.Attempts, retry.DefaultExponentialBackoff(), func() error {
		l = launcher.New().
			Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")

		controlURL, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}

		b = rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			l.Cleanup()
			return fmt.Errorf("connect browser: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.InfoWithFields("browser launched", map[string]interface{}{
		"headless": cfg.Headless,
	})

	cleanup := func() {
		b.Close()
		l.Cleanup()
	}
	return b, cleanup, nil
}
