package importer

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/acervolabs/newsletter-search/internal/archive"
	"github.com/acervolabs/newsletter-search/internal/search"
	"github.com/acervolabs/newsletter-search/internal/textutil"
)

// Titles that are just a running number ("#42") are not usable as display
// names; the subject is used instead.
var bareNumberRe = regexp.MustCompile(`^#?\d+$`)

// Send-date formats seen in export CSVs.
var sendDateLayouts = []string{
	"Jan 2, 2006 03:04 pm",
	"Jan 2, 2006 3:04 pm",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmatchedRow is a metadata row imported without a content file, surfaced
// for operator review.
type UnmatchedRow struct {
	Subject  string
	Title    string
	SentAt   time.Time
	SourceID string
}

// Report summarizes one batch import run.
type Report struct {
	Total     int
	Imported  int
	Skipped   int
	Errors    int
	Unmatched int

	UnmatchedRows []UnmatchedRow
	ErrorMessages []string
}

// Importer ingests a Mailchimp ZIP export: a campaigns.csv metadata file
// plus a campaigns_content directory of HTML files, loosely correlated by
// the fuzzy matcher.
type Importer struct {
	store      *archive.Store
	index      *search.Index
	contentDir string
}

// New creates a batch importer writing content files into contentDir.
func New(store *archive.Store, index *search.Index, contentDir string) *Importer {
	return &Importer{store: store, index: index, contentDir: contentDir}
}

// Run imports the export bundle at zipPath. Already-archived rows are
// skipped (identity derivation makes re-runs idempotent); rows with no
// matching content file are archived metadata-only and listed in the
// report.
func (im *Importer) Run(zipPath string) (*Report, error) {
	tempDir, err := os.MkdirTemp("", "newsletter-import-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := extractZip(zipPath, tempDir); err != nil {
		return nil, fmt.Errorf("extract bundle: %w", err)
	}

	csvPath, err := findFile(tempDir, "campaigns.csv")
	if err != nil {
		return nil, fmt.Errorf("campaigns.csv not found in bundle: %w", err)
	}

	contentSrc := filepath.Join(filepath.Dir(csvPath), "campaigns_content")
	if info, err := os.Stat(contentSrc); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("campaigns_content directory not found next to campaigns.csv")
	}

	inventory, err := BuildInventory(contentSrc)
	if err != nil {
		return nil, err
	}
	if len(inventory) == 0 {
		return nil, fmt.Errorf("no HTML files in campaigns_content")
	}

	return im.importCSV(csvPath, inventory)
}

func (im *Importer) importCSV(csvPath string, inventory []InventoryEntry) (*Report, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Subject", "Send Date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", required)
		}
	}

	if err := os.MkdirAll(im.contentDir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}

	report := &Report{}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.Errors++
			report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("csv row: %v", err))
			continue
		}

		report.Total++
		im.importRow(row, cols, inventory, report)
	}

	return report, nil
}

func (im *Importer) importRow(row []string, cols map[string]int, inventory []InventoryEntry, report *Report) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	subject := field("Subject")
	title := field("Title")
	sourceID := field("Unique Id")
	sendDateRaw := strings.Trim(field("Send Date"), `"`)

	if subject == "" || sendDateRaw == "" {
		report.Errors++
		return
	}

	sentAt, err := parseSendDate(sendDateRaw)
	if err != nil {
		report.Errors++
		report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("unparseable send date %q for %q", sendDateRaw, subject))
		return
	}

	id := archive.DeriveID(archive.SourceMailchimp, sourceID, sentAt, subject)

	existing, err := im.store.Get(id)
	if err != nil {
		report.Errors++
		report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("lookup %q: %v", subject, err))
		return
	}
	if existing != nil {
		report.Skipped++
		return
	}

	var contentPath *string
	var body string

	matched := MatchFile(subject, title, sourceID, inventory)
	if matched != nil {
		raw, err := os.ReadFile(matched.Path)
		if err == nil {
			filename := id + ".html"
			if err := os.WriteFile(filepath.Join(im.contentDir, filename), raw, 0o644); err == nil {
				contentPath = &filename
				body = textutil.ExtractText(string(raw))
			} else {
				report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("copy content for %q: %v", subject, err))
			}
		} else {
			report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("read content for %q: %v", subject, err))
		}
	}
	if contentPath == nil {
		report.Unmatched++
		report.UnmatchedRows = append(report.UnmatchedRows, UnmatchedRow{
			Subject:  subject,
			Title:    title,
			SentAt:   sentAt,
			SourceID: sourceID,
		})
	}

	name := subject
	if title != "" && !bareNumberRe.MatchString(title) {
		name = title
	}

	issue := &archive.Issue{
		ID:          id,
		Name:        name,
		Subject:     subject,
		SentAt:      sentAt,
		Source:      archive.SourceMailchimp,
		ContentPath: contentPath,
	}
	if sourceID != "" {
		issue.SourceID = &sourceID
	}

	if err := im.store.Insert(issue); err != nil {
		report.Errors++
		report.ErrorMessages = append(report.ErrorMessages, fmt.Sprintf("insert %q: %v", subject, err))
		return
	}

	if contentPath != nil {
		doc := &search.Document{
			ID:      issue.ID,
			Subject: issue.Subject,
			Body:    body,
			SentAt:  issue.SentAt,
			Source:  issue.Source,
		}
		if err := im.index.Upsert(doc); err != nil {
			// Indexing never fails an import; reindex recovers.
			log.Printf("Warning: indexing %s failed: %v", issue.ID, err)
		}
	}

	report.Imported++
}

func parseSendDate(raw string) (time.Time, error) {
	for _, layout := range sendDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", raw)
}

// extractZip unpacks an archive into dest, refusing entries that would
// escape it.
func extractZip(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, file := range zr.File {
		target := filepath.Join(dest, filepath.Clean(file.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := copyZipFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func copyZipFile(file *zip.File, target string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func findFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%s not found under %s", name, root)
	}
	return found, nil
}
