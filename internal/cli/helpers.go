package cli

import (
	"fmt"
	"os"

	"github.com/acervolabs/newsletter-search/internal/archive"
	"github.com/acervolabs/newsletter-search/internal/config"
	"github.com/acervolabs/newsletter-search/internal/search"
	syncengine "github.com/acervolabs/newsletter-search/internal/sync"
)

// env bundles the opened application state every subcommand needs.
type env struct {
	cfg   *config.Config
	store *archive.Store
	index *search.Index
}

// openEnv loads configuration, applies global flag overrides, and opens the
// store and index. Callers must Close.
func openEnv(globals *GlobalFlags) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if globals != nil && globals.DataDir != "" {
		cfg.SetDataDir(globals.DataDir)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	store, err := archive.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	index, err := search.Open(cfg.IndexPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &env{cfg: cfg, store: store, index: index}, nil
}

func (e *env) Close() {
	e.index.Close()
	e.store.Close()
}

// printEvent renders one sync progress event for the terminal.
func printEvent(ev syncengine.Event) {
	switch ev.Severity {
	case syncengine.SeveritySuccess:
		if ev.Count > 0 {
			fmt.Printf("  [%d] %s\n", ev.Count, ev.Message)
		} else {
			fmt.Printf("  %s\n", ev.Message)
		}
	case syncengine.SeverityWarning:
		fmt.Printf("  warning: %s\n", ev.Message)
	case syncengine.SeverityError:
		fmt.Printf("  error: %s\n", ev.Message)
	default:
		fmt.Println(ev.Message)
	}
}
