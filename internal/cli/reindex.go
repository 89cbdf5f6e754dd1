package cli

import (
	"fmt"
)

// Execute rebuilds the search index from the archive.
func (c *ReindexCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	progress := func(current, total int) {
		if current == 1 || current%100 == 0 || current == total {
			fmt.Printf("  %d/%d\n", current, total)
		}
	}
	if c.globals != nil && c.globals.JSON {
		progress = nil
	}

	indexed, failed, err := e.index.Rebuild(e.store, e.cfg.ContentDir, progress)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		fmt.Printf("{\"indexed\": %d, \"failed\": %d}\n", indexed, failed)
		return nil
	}

	fmt.Printf("Indexed: %d  Failed: %d\n", indexed, failed)
	return nil
}
