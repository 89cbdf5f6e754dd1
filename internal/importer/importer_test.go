package importer

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acervolabs/newsletter-search/internal/archive"
	"github.com/acervolabs/newsletter-search/internal/search"
)

const csvHeader = "Title,Subject,Unique Id,Send Date\n"

// writeTestZip builds an export bundle: campaigns.csv plus a
// campaigns_content directory of HTML files.
func writeTestZip(t *testing.T, csvRows string, content map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	w, err := zw.Create("campaigns.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(csvHeader + csvRows))
	require.NoError(t, err)

	for name, html := range content {
		w, err := zw.Create("campaigns_content/" + name)
		require.NoError(t, err)
		_, err = w.Write([]byte(html))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestImporter(t *testing.T) (*Importer, *archive.Store, *search.Index, string) {
	t.Helper()

	store, err := archive.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := search.Open(filepath.Join(t.TempDir(), "index.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	contentDir := t.TempDir()
	return New(store, index, contentDir), store, index, contentDir
}

func TestRun_ImportsMatchedRows(t *testing.T) {
	im, store, index, contentDir := newTestImporter(t)

	zipPath := writeTestZip(t,
		`Weekly Digest,Your weekly digest is here,abc123,"May 1, 2024 09:30 am"`+"\n",
		map[string]string{
			"abc123_weekly-digest.html": "<html><body>Digest <b>content</b></body></html>",
		})

	report, err := im.Run(zipPath)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Unmatched)
	assert.Equal(t, 0, report.Errors)

	issues, err := store.List(archive.ListOptions{})
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, "Your weekly digest is here", issue.Subject)
	assert.Equal(t, "Weekly Digest", issue.Name)
	assert.Equal(t, archive.SourceMailchimp, issue.Source)
	require.NotNil(t, issue.SourceID)
	assert.Equal(t, "abc123", *issue.SourceID)
	require.NotNil(t, issue.ContentPath)
	assert.Equal(t, issue.ID+".html", *issue.ContentPath)

	copied, err := os.ReadFile(filepath.Join(contentDir, *issue.ContentPath))
	require.NoError(t, err)
	assert.Contains(t, string(copied), "Digest")

	// Content is searchable right away.
	res, err := index.Query(search.Compile("digest"), search.Filters{}, "relevance", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestRun_Idempotent(t *testing.T) {
	im, _, _, _ := newTestImporter(t)

	zipPath := writeTestZip(t,
		`Weekly Digest,Your weekly digest is here,abc123,"May 1, 2024 09:30 am"`+"\n",
		map[string]string{
			"abc123_weekly-digest.html": "<p>once</p>",
		})

	first, err := im.Run(zipPath)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)

	second, err := im.Run(zipPath)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Skipped)
}

func TestRun_UnmatchedRowArchivedWithoutContent(t *testing.T) {
	im, store, _, _ := newTestImporter(t)

	zipPath := writeTestZip(t,
		`Mystery Issue,Totally unrelated subject,,"May 2, 2024 10:00 am"`+"\n",
		map[string]string{
			"1_summer-sale-special.html": "<p>sale</p>",
		})

	report, err := im.Run(zipPath)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.Unmatched)
	require.Len(t, report.UnmatchedRows, 1)
	assert.Equal(t, "Totally unrelated subject", report.UnmatchedRows[0].Subject)

	issues, err := store.List(archive.ListOptions{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Nil(t, issues[0].ContentPath)
}

func TestRun_BareNumberTitleFallsBackToSubject(t *testing.T) {
	im, store, _, _ := newTestImporter(t)

	zipPath := writeTestZip(t,
		`#42,Real subject line,abc,"May 1, 2024 09:30 am"`+"\n",
		map[string]string{
			"abc_real-subject-line.html": "<p>x</p>",
		})

	_, err := im.Run(zipPath)
	require.NoError(t, err)

	issues, err := store.List(archive.ListOptions{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Real subject line", issues[0].Name)
}

func TestRun_RowsMissingRequiredFieldsCounted(t *testing.T) {
	im, _, _, _ := newTestImporter(t)

	rows := `Title Only,,id1,"May 1, 2024 09:30 am"` + "\n" +
		"No Date,Subject here,id2,\n" +
		`Bad Date,Another subject,id3,"not a date"` + "\n"

	zipPath := writeTestZip(t, rows, map[string]string{
		"id1_whatever.html": "<p>x</p>",
	})

	report, err := im.Run(zipPath)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 3, report.Errors)
}

func TestRun_MissingCSVFails(t *testing.T) {
	im, _, _, _ := newTestImporter(t)

	path := filepath.Join(t.TempDir(), "empty.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("campaigns_content/1_x.html")
	require.NoError(t, err)
	w.Write([]byte("<p>x</p>"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = im.Run(path)
	assert.Error(t, err)
}

func TestRun_ZipSlipRejected(t *testing.T) {
	im, _, _, _ := newTestImporter(t)

	path := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escape.txt")
	require.NoError(t, err)
	w.Write([]byte("nope"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = im.Run(path)
	assert.Error(t, err)
}

func TestParseSendDate(t *testing.T) {
	for _, raw := range []string{
		"May 1, 2024 09:30 am",
		"May 1, 2024 9:30 am",
		"2024-05-01 09:30:00",
		"2024-05-01",
	} {
		got, err := parseSendDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 1, got.Day())
	}

	_, err := parseSendDate("first of may")
	assert.Error(t, err)
}
