package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/acervolabs/newsletter-search/internal/importer"
)

// Execute runs a batch import of an export ZIP.
func (c *ImportCommand) Execute(args []string) error {
	if _, err := os.Stat(c.Args.ZipPath); err != nil {
		return fmt.Errorf("cannot read %s: %w", c.Args.ZipPath, err)
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	im := importer.New(e.store, e.index, e.cfg.ContentDir)
	report, err := im.Run(c.Args.ZipPath)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Rows: %d  Imported: %d  Skipped: %d  Unmatched: %d  Errors: %d\n",
		report.Total, report.Imported, report.Skipped, report.Unmatched, report.Errors)

	if len(report.UnmatchedRows) > 0 {
		fmt.Println("\nArchived without content (no matching file):")
		for _, row := range report.UnmatchedRows {
			fmt.Printf("  %s  %q\n", row.SentAt.Format("2006-01-02"), row.Subject)
		}
	}
	for _, msg := range report.ErrorMessages {
		fmt.Printf("  error: %s\n", msg)
	}
	return nil
}
