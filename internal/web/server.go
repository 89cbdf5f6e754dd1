package web

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/acervolabs/newsletter-search/internal/archive"
	"github.com/acervolabs/newsletter-search/internal/search"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxQueryLength = 1024
)

var (
	issueIDRe = regexp.MustCompile(`^[0-9a-f]{16}$`)
	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Server exposes the archive over a JSON HTTP API.
type Server struct {
	store      *archive.Store
	index      *search.Index
	contentDir string
}

// NewServer creates an API server over the given store and index.
func NewServer(store *archive.Store, index *search.Index, contentDir string) *Server {
	return &Server{store: store, index: index, contentDir: contentDir}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodGet)
	r.HandleFunc("/api/issues", s.handleListIssues).Methods(http.MethodGet)
	r.HandleFunc("/api/issues/{id}", s.handleGetIssue).Methods(http.MethodGet)
	r.HandleFunc("/api/issues/{id}/content", s.handleIssueContent).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the server on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("Listening on http://%s", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

type searchResponse struct {
	Success bool         `json:"success"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	Results []searchItem `json:"results"`
}

type searchItem struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	PreviewText string    `json:"preview_text"`
	SentAt      time.Time `json:"sent_at"`
	Source      string    `json:"source"`
	Excerpt     string    `json:"excerpt"`
	URL         string    `json:"url"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query too long")
		return
	}

	page := intParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := intParam(r, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	sort := r.URL.Query().Get("sort")
	switch sort {
	case "", "relevance", "date_desc", "date_asc":
	default:
		writeError(w, http.StatusBadRequest, "invalid sort")
		return
	}

	filters, ok := parseDateFilters(w, r)
	if !ok {
		return
	}

	resp := searchResponse{Success: true, Page: page, PerPage: perPage, Results: []searchItem{}}

	compiled := search.Compile(q)
	if compiled == "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	results, err := s.index.Query(compiled, filters, sort, page, perPage)
	if err != nil {
		log.Printf("search %q: %v", q, err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resp.Total = results.Total
	for _, hit := range results.Results {
		item := searchItem{
			ID:          hit.ID,
			Subject:     hit.Subject,
			PreviewText: hit.PreviewText,
			SentAt:      hit.SentAt,
			Source:      hit.Source,
			Excerpt:     hit.Excerpt,
			URL:         "/api/issues/" + hit.ID,
		}
		// The index stores folded text; prefer the archived originals for
		// display when the issue is still present.
		if issue, err := s.store.Get(hit.ID); err == nil && issue != nil {
			item.Subject = issue.Subject
			item.PreviewText = issue.PreviewText
			item.SentAt = issue.SentAt
			item.Source = issue.Source
		}
		resp.Results = append(resp.Results, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

type listResponse struct {
	Success bool            `json:"success"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
	Issues  []archive.Issue `json:"issues"`
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := intParam(r, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	source := r.URL.Query().Get("source")
	order := r.URL.Query().Get("order")
	switch order {
	case "", "desc", "asc":
	default:
		writeError(w, http.StatusBadRequest, "invalid order")
		return
	}

	issues, err := s.store.List(archive.ListOptions{
		Source:   source,
		Limit:    perPage,
		Offset:   (page - 1) * perPage,
		OrderAsc: order == "asc",
	})
	if err != nil {
		log.Printf("list issues: %v", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	if issues == nil {
		issues = []archive.Issue{}
	}

	total, err := s.store.Count(false)
	if err != nil {
		log.Printf("count issues: %v", err)
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Issues:  issues,
	})
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	issue, ok := s.visibleIssue(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"issue":   issue,
	})
}

func (s *Server) handleIssueContent(w http.ResponseWriter, r *http.Request) {
	issue, ok := s.visibleIssue(w, r)
	if !ok {
		return
	}
	if !issue.HasContent() {
		writeError(w, http.StatusNotFound, "issue has no content")
		return
	}

	raw, err := os.ReadFile(filepath.Join(s.contentDir, *issue.ContentPath))
	if err != nil {
		log.Printf("read content %s: %v", issue.ID, err)
		writeError(w, http.StatusNotFound, "content file missing")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Count(true)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	indexed, err := s.index.Count()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "index unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"issues":  total,
		"indexed": indexed,
	})
}

// visibleIssue resolves the {id} route variable to a non-hidden issue,
// writing the error response itself when that fails.
func (s *Server) visibleIssue(w http.ResponseWriter, r *http.Request) (*archive.Issue, bool) {
	id := mux.Vars(r)["id"]
	if !issueIDRe.MatchString(id) {
		writeError(w, http.StatusBadRequest, "malformed issue id")
		return nil, false
	}

	issue, err := s.store.Get(id)
	if err != nil {
		log.Printf("get issue %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	if issue == nil || issue.Hidden {
		writeError(w, http.StatusNotFound, "issue not found")
		return nil, false
	}
	return issue, true
}

// parseDateFilters reads from/to query params as YYYY-MM-DD dates. The "to"
// bound covers the whole day. Writes a 400 and returns false on bad input.
func parseDateFilters(w http.ResponseWriter, r *http.Request) (search.Filters, bool) {
	var filters search.Filters

	if from := r.URL.Query().Get("from"); from != "" {
		if !dateRe.MatchString(from) {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return filters, false
		}
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return filters, false
		}
		filters.From = &t
	}

	if to := r.URL.Query().Get("to"); to != "" {
		if !dateRe.MatchString(to) {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return filters, false
		}
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return filters, false
		}
		end := t.Add(24*time.Hour - time.Second)
		filters.To = &end
	}

	return filters, true
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
