package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/acervolabs/newsletter-search/internal/archive"
)

type statsOutput struct {
	Issues   int    `json:"issues"`
	Hidden   int    `json:"hidden"`
	Indexed  uint64 `json:"indexed"`
	LastSync string `json:"last_sync,omitempty"`
	DataDir  string `json:"data_dir"`
}

// Execute prints archive and index statistics.
func (c *StatsCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	total, err := e.store.Count(true)
	if err != nil {
		return fmt.Errorf("count issues: %w", err)
	}
	visible, err := e.store.Count(false)
	if err != nil {
		return fmt.Errorf("count visible issues: %w", err)
	}
	indexed, err := e.index.Count()
	if err != nil {
		return fmt.Errorf("count indexed documents: %w", err)
	}
	lastSync, err := e.store.GetSetting("last_sync")
	if err != nil {
		return fmt.Errorf("read last sync: %w", err)
	}

	out := statsOutput{
		Issues:   total,
		Hidden:   total - visible,
		Indexed:  indexed,
		LastSync: lastSync,
		DataDir:  e.cfg.DataDir,
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Issues:    %d (%d hidden)\n", out.Issues, out.Hidden)
	fmt.Printf("Indexed:   %d\n", out.Indexed)
	if out.LastSync != "" {
		fmt.Printf("Last sync: %s\n", out.LastSync)
	} else {
		fmt.Println("Last sync: never")
	}
	fmt.Printf("Data dir:  %s\n", out.DataDir)

	bySource := map[string]int{}
	for _, source := range []string{archive.SourceMailerLite, archive.SourceMailchimp} {
		issues, err := e.store.List(archive.ListOptions{IncludeHidden: true, Source: source})
		if err != nil {
			return fmt.Errorf("list %s issues: %w", source, err)
		}
		bySource[source] = len(issues)
	}
	fmt.Printf("Sources:   %s %d, %s %d\n",
		archive.SourceMailerLite, bySource[archive.SourceMailerLite],
		archive.SourceMailchimp, bySource[archive.SourceMailchimp])
	return nil
}
