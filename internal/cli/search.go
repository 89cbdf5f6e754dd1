package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/acervolabs/newsletter-search/internal/search"
)

// Execute runs a search against the index and prints one page of hits.
func (c *SearchCommand) Execute(args []string) error {
	query := strings.Join(c.Args.Query, " ")

	switch c.Sort {
	case "relevance", "date_desc", "date_asc":
	default:
		return fmt.Errorf("invalid --sort %q (use relevance, date_desc or date_asc)", c.Sort)
	}

	var filters search.Filters
	if c.From != "" {
		t, err := time.Parse("2006-01-02", c.From)
		if err != nil {
			return fmt.Errorf("invalid --from date %q (use YYYY-MM-DD)", c.From)
		}
		filters.From = &t
	}
	if c.To != "" {
		t, err := time.Parse("2006-01-02", c.To)
		if err != nil {
			return fmt.Errorf("invalid --to date %q (use YYYY-MM-DD)", c.To)
		}
		end := t.Add(24*time.Hour - time.Second)
		filters.To = &end
	}

	e, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer e.Close()

	compiled := search.Compile(query)
	if compiled == "" {
		fmt.Println("Nothing to search for.")
		return nil
	}

	results, err := e.index.Query(compiled, filters, c.Sort, c.Page, c.PerPage)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if results.Total == 0 {
		fmt.Printf("No results for %q\n", query)
		return nil
	}

	fmt.Printf("Found %d results for %q (page %d)\n\n", results.Total, query, results.Page)
	for i, hit := range results.Results {
		subject := hit.Subject
		sentAt := hit.SentAt
		// The index stores folded text; show the archived original when the
		// issue is still present.
		if issue, err := e.store.Get(hit.ID); err == nil && issue != nil {
			subject = issue.Subject
			sentAt = issue.SentAt
		}

		fmt.Printf("%d. %s\n", (results.Page-1)*results.PerPage+i+1, subject)
		fmt.Printf("   %s · %s · %s\n", sentAt.Format("2006-01-02"), hit.Source, hit.ID)
		if hit.Excerpt != "" {
			fmt.Printf("   %s\n", stripHighlightTags(hit.Excerpt))
		}
		if i < len(results.Results)-1 {
			fmt.Println()
		}
	}
	return nil
}

// stripHighlightTags removes the highlighter's <mark> markup for plain
// terminal output.
func stripHighlightTags(s string) string {
	s = strings.ReplaceAll(s, "<mark>", "")
	s = strings.ReplaceAll(s, "</mark>", "")
	return s
}
