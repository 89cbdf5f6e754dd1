package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/acervolabs/newsletter-search/internal/search"
	"github.com/acervolabs/newsletter-search/internal/textutil"
)

// Execute toggles an issue's visibility and keeps the search index in step:
// hiding removes the document, unhiding re-derives and re-adds it.
func (c *HideCommand) Execute(args []string) error {
	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	id := c.Args.ID
	issue, err := e.store.Get(id)
	if err != nil {
		return fmt.Errorf("lookup issue: %w", err)
	}
	if issue == nil {
		return fmt.Errorf("issue %s not found", id)
	}

	hidden := !c.Show
	if err := e.store.SetHidden(id, hidden); err != nil {
		return err
	}

	if hidden {
		if err := e.index.Delete(id); err != nil {
			fmt.Fprintf(os.Stderr, "warning: removing %s from index: %v\n", id, err)
		}
		fmt.Printf("Hidden %s %q\n", id, issue.Subject)
		return nil
	}

	if issue.HasContent() {
		raw, err := os.ReadFile(filepath.Join(e.cfg.ContentDir, *issue.ContentPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: content file unreadable, run reindex: %v\n", err)
		} else {
			doc := &search.Document{
				ID:          issue.ID,
				Subject:     issue.Subject,
				PreviewText: issue.PreviewText,
				Body:        textutil.ExtractText(string(raw)),
				SentAt:      issue.SentAt,
				Source:      issue.Source,
			}
			if err := e.index.Upsert(doc); err != nil {
				fmt.Fprintf(os.Stderr, "warning: re-indexing %s: %v\n", id, err)
			}
		}
	}
	fmt.Printf("Unhidden %s %q\n", id, issue.Subject)
	return nil
}
