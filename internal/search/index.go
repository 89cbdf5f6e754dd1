package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/acervolabs/newsletter-search/internal/archive"
	"github.com/acervolabs/newsletter-search/internal/textutil"
)

// Fields non-literal queries match against.
var searchFields = []string{"Subject", "PreviewText", "Body"}

// excerptLimit bounds fallback excerpts when the highlighter produced no
// fragment for the body.
const excerptLimit = 200

// Index wraps the Bleve full-text index of searchable issue documents. It is
// derived data: every document can be rebuilt from the archive store and its
// content files.
type Index struct {
	index bleve.Index
}

// Document is one search index entry, owned by the archived issue with the
// same ID. Text fields are diacritic-normalized at index time so accented
// and unaccented queries match the same documents.
type Document struct {
	ID          string
	Subject     string
	PreviewText string
	Body        string
	SentAt      time.Time
	Source      string
}

// Filters narrows a query to a sent-at date window. Nil bounds are open.
type Filters struct {
	From *time.Time
	To   *time.Time
}

// Result is one ranked search hit.
type Result struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	PreviewText string    `json:"preview_text"`
	SentAt      time.Time `json:"sent_at"`
	Source      string    `json:"source"`
	Excerpt     string    `json:"excerpt"`
	Score       float64   `json:"score"`
}

// Results is a page of search hits.
type Results struct {
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
	Results []Result `json:"results"`
}

// Open opens or creates a Bleve index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Analyzer = keyword.Name

	sentAtField := bleve.NewDateTimeFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Subject", textField)
	docMapping.AddFieldMappingsAt("PreviewText", textField)
	docMapping.AddFieldMappingsAt("Body", textField)
	docMapping.AddFieldMappingsAt("SentAt", sentAtField)
	docMapping.AddFieldMappingsAt("Source", sourceField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// Upsert adds or replaces an issue's search document. Text fields are
// normalized before indexing.
func (i *Index) Upsert(doc *Document) error {
	normalized := &Document{
		ID:          doc.ID,
		Subject:     textutil.RemoveDiacritics(doc.Subject),
		PreviewText: textutil.RemoveDiacritics(doc.PreviewText),
		Body:        textutil.RemoveDiacritics(doc.Body),
		SentAt:      doc.SentAt,
		Source:      doc.Source,
	}
	return i.index.Index(normalized.ID, normalized)
}

// Delete removes an issue's search document. Deleting an absent document is
// a no-op.
func (i *Index) Delete(id string) error {
	return i.index.Delete(id)
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Query runs a compiled query expression (see Compile) against the index and
// returns one page of ranked hits with excerpts. An empty compiled query
// yields an empty result set.
func (i *Index) Query(compiled string, filters Filters, sort string, page, perPage int) (*Results, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	out := &Results{Page: page, PerPage: perPage, Results: []Result{}}
	if compiled == "" {
		return out, nil
	}

	q := parseCompiled(compiled)
	if filters.From != nil || filters.To != nil {
		q = bleve.NewConjunctionQuery(q, dateRange(filters))
	}

	req := bleve.NewSearchRequestOptions(q, perPage, (page-1)*perPage, false)
	req.Fields = []string{"Subject", "PreviewText", "SentAt", "Source"}
	req.Highlight = bleve.NewHighlightWithStyle("html")

	switch sort {
	case "date_desc":
		req.SortBy([]string{"-SentAt", "-_score"})
	case "date_asc":
		req.SortBy([]string{"SentAt", "-_score"})
	default:
		// relevance: the engine's native score ordering
	}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out.Total = int(res.Total)
	for _, hit := range res.Hits {
		r := Result{ID: hit.ID, Score: hit.Score}
		if s, ok := hit.Fields["Subject"].(string); ok {
			r.Subject = s
		}
		if s, ok := hit.Fields["PreviewText"].(string); ok {
			r.PreviewText = s
		}
		if s, ok := hit.Fields["Source"].(string); ok {
			r.Source = s
		}
		if s, ok := hit.Fields["SentAt"].(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				r.SentAt = t
			}
		}
		r.Excerpt = excerptFor(hit.Fragments, r)
		out.Results = append(out.Results, r)
	}

	return out, nil
}

// excerptFor picks the highlighted body fragment when the engine produced
// one, falling back to preview text or subject, bounded with an ellipsis.
func excerptFor(fragments map[string][]string, r Result) string {
	for _, field := range []string{"Body", "PreviewText", "Subject"} {
		if frags, ok := fragments[field]; ok && len(frags) > 0 {
			return frags[0]
		}
	}
	if r.PreviewText != "" {
		return truncate(r.PreviewText, excerptLimit)
	}
	return truncate(r.Subject, excerptLimit)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// parseCompiled maps a compiled query expression to the engine's query tree:
// a quoted expression becomes an exact phrase match, everything else a
// conjunction of prefix terms across the searchable fields.
func parseCompiled(compiled string) query.Query {
	if len(compiled) > 2 && strings.HasPrefix(compiled, `"`) && strings.HasSuffix(compiled, `"`) {
		phrase := strings.ReplaceAll(compiled[1:len(compiled)-1], `""`, `"`)
		// Indexed text is stored diacritic-free; fold the phrase the same
		// way the index tokenizer folds documents.
		phrase = textutil.RemoveDiacritics(phrase)
		return acrossFields(func(field string) query.Query {
			mp := bleve.NewMatchPhraseQuery(phrase)
			mp.SetField(field)
			return mp
		})
	}

	var conj []query.Query
	for _, term := range strings.Split(compiled, " AND ") {
		term = strings.TrimSuffix(strings.TrimSpace(term), "*")
		if term == "" {
			continue
		}
		conj = append(conj, acrossFields(func(field string) query.Query {
			pq := bleve.NewPrefixQuery(term)
			pq.SetField(field)
			return pq
		}))
	}
	if len(conj) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	if len(conj) == 1 {
		return conj[0]
	}
	return bleve.NewConjunctionQuery(conj...)
}

// acrossFields builds a disjunction of the same query over every searchable
// field, so a term may match in the subject, preview or body.
func acrossFields(build func(field string) query.Query) query.Query {
	qs := make([]query.Query, 0, len(searchFields))
	for _, f := range searchFields {
		qs = append(qs, build(f))
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func dateRange(f Filters) query.Query {
	// Bleve datetime fields cover roughly 1677-2262; these bounds stand in
	// for "open".
	start := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
	if f.From != nil {
		start = *f.From
	}
	if f.To != nil {
		end = *f.To
	}
	inclusive := true
	dr := bleve.NewDateRangeInclusiveQuery(start, end, &inclusive, &inclusive)
	dr.SetField("SentAt")
	return dr
}

// Rebuild re-derives every search document from the archive store and its
// content files. Hidden and content-less issues are removed from the index.
// Returns per-issue success and failure counts.
func (i *Index) Rebuild(store *archive.Store, contentDir string, progress func(current, total int)) (int, int, error) {
	issues, err := store.List(archive.ListOptions{IncludeHidden: true})
	if err != nil {
		return 0, 0, fmt.Errorf("list issues: %w", err)
	}

	indexed := 0
	failed := 0
	batch := i.index.NewBatch()

	for n, issue := range issues {
		if progress != nil {
			progress(n+1, len(issues))
		}

		if issue.Hidden || !issue.HasContent() {
			batch.Delete(issue.ID)
			continue
		}

		raw, err := os.ReadFile(filepath.Join(contentDir, *issue.ContentPath))
		if err != nil {
			failed++
			continue
		}

		doc := &Document{
			ID:          issue.ID,
			Subject:     textutil.RemoveDiacritics(issue.Subject),
			PreviewText: textutil.RemoveDiacritics(issue.PreviewText),
			Body:        textutil.RemoveDiacritics(textutil.ExtractText(string(raw))),
			SentAt:      issue.SentAt,
			Source:      issue.Source,
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			failed++
			continue
		}
		indexed++
	}

	if err := i.index.Batch(batch); err != nil {
		return indexed, failed, fmt.Errorf("commit batch: %w", err)
	}

	return indexed, failed, nil
}
