package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acervolabs/newsletter-search/internal/mailerlite"
	syncengine "github.com/acervolabs/newsletter-search/internal/sync"
)

// Execute runs a sync: incremental by default, full reconciliation with --all.
func (c *SyncCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.MailerLiteAPIKey == "" {
		return fmt.Errorf("MAILERLITE_API_KEY is not set")
	}

	client := mailerlite.NewClient(e.cfg.MailerLiteAPIKey, e.cfg.MailerLiteAPIURL)

	progress := printEvent
	if c.globals != nil && c.globals.JSON {
		progress = nil
	}

	engine := syncengine.NewEngine(syncengine.Config{
		Client:           client,
		Store:            e.store,
		Index:            e.index,
		ContentDir:       e.cfg.ContentDir,
		PageDelay:        e.cfg.SyncPageDelay,
		RateLimitBackoff: e.cfg.SyncRateLimitBackoff,
		Progress:         progress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *syncengine.Result
	if c.All {
		res, err = engine.SyncAll(ctx, c.Limit)
	} else {
		res, err = engine.SyncNew(ctx)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Println()
	if res.AlreadySynced {
		fmt.Println("Already up to date.")
	}
	fmt.Printf("Imported: %d  Updated: %d  Skipped: %d  Errors: %d  (%s)\n",
		res.Imported, res.Updated, res.Skipped, len(res.Errors), res.Duration.Round(10*time.Millisecond))
	for _, msg := range res.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	return nil
}
