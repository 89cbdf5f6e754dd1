package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory store.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testIssue(subject string) *Issue {
	sourceID := "src-" + subject
	return &Issue{
		Name:        subject,
		Subject:     subject,
		PreviewText: "preview of " + subject,
		SentAt:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Source:      SourceMailerLite,
		SourceID:    &sourceID,
	}
}

func TestInsert_Get_Roundtrip(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Weekly Digest")
	require.NoError(t, store.Insert(issue))

	// ID derived, timestamps set
	assert.Regexp(t, `^[0-9a-f]{16}$`, issue.ID)
	assert.False(t, issue.CreatedAt.IsZero())

	got, err := store.Get(issue.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.ID, got.ID)
	assert.Equal(t, "Weekly Digest", got.Subject)
	assert.Equal(t, "preview of Weekly Digest", got.PreviewText)
	assert.Equal(t, SourceMailerLite, got.Source)
	require.NotNil(t, got.SourceID)
	assert.Equal(t, "src-Weekly Digest", *got.SourceID)
	assert.False(t, got.Hidden)
	assert.Nil(t, got.ContentPath)
}

func TestInsert_ExplicitIDPreserved(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Explicit")
	issue.ID = "00112233aabbccdd"
	require.NoError(t, store.Insert(issue))

	got, err := store.Get("00112233aabbccdd")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Explicit", got.Subject)
}

func TestInsert_DuplicateIDRejected(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Dup")
	require.NoError(t, store.Insert(issue))

	again := testIssue("Dup")
	again.ID = issue.ID
	assert.Error(t, store.Insert(again))
}

func TestGet_NotFoundReturnsNil(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Get("ffffffffffffffff")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetBySource(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Lookup")
	require.NoError(t, store.Insert(issue))

	got, err := store.GetBySource(SourceMailerLite, "src-Lookup")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, issue.ID, got.ID)

	missing, err := store.GetBySource(SourceMailchimp, "src-Lookup")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdate(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Before")
	require.NoError(t, store.Insert(issue))

	issue.Subject = "After"
	contentPath := issue.ID + ".html"
	issue.ContentPath = &contentPath
	require.NoError(t, store.Update(issue))

	got, err := store.Get(issue.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "After", got.Subject)
	require.NotNil(t, got.ContentPath)
	assert.Equal(t, contentPath, *got.ContentPath)
}

func TestUpdate_MissingIssueErrors(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Ghost")
	issue.ID = "ffffffffffffffff"
	assert.Error(t, store.Update(issue))
}

func TestList_OrderAndHiddenFiltering(t *testing.T) {
	store := openTestStore(t)

	older := testIssue("Older")
	older.SentAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := testIssue("Newer")
	newer.SentAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	hidden := testIssue("Hidden")
	hidden.SentAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Insert(older))
	require.NoError(t, store.Insert(newer))
	require.NoError(t, store.Insert(hidden))
	require.NoError(t, store.SetHidden(hidden.ID, true))

	visible, err := store.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "Newer", visible[0].Subject)
	assert.Equal(t, "Older", visible[1].Subject)

	all, err := store.List(ListOptions{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	asc, err := store.List(ListOptions{OrderAsc: true})
	require.NoError(t, err)
	assert.Equal(t, "Older", asc[0].Subject)
}

func TestList_SourceFilterAndPagination(t *testing.T) {
	store := openTestStore(t)

	for i, subject := range []string{"A", "B", "C"} {
		issue := testIssue(subject)
		issue.SentAt = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Insert(issue))
	}
	mc := testIssue("MC")
	mc.Source = SourceMailchimp
	require.NoError(t, store.Insert(mc))

	ml, err := store.List(ListOptions{Source: SourceMailerLite})
	require.NoError(t, err)
	assert.Len(t, ml, 3)

	page, err := store.List(ListOptions{Limit: 2, Offset: 1, OrderAsc: true})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "B", page[0].Subject)
}

func TestCount(t *testing.T) {
	store := openTestStore(t)

	a := testIssue("A")
	b := testIssue("B")
	require.NoError(t, store.Insert(a))
	require.NoError(t, store.Insert(b))
	require.NoError(t, store.SetHidden(b.ID, true))

	all, err := store.Count(true)
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	visible, err := store.Count(false)
	require.NoError(t, err)
	assert.Equal(t, 1, visible)
}

func TestSetHidden_Toggle(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Toggle")
	require.NoError(t, store.Insert(issue))

	require.NoError(t, store.SetHidden(issue.ID, true))
	got, err := store.Get(issue.ID)
	require.NoError(t, err)
	assert.True(t, got.Hidden)

	require.NoError(t, store.SetHidden(issue.ID, false))
	got, err = store.Get(issue.ID)
	require.NoError(t, err)
	assert.False(t, got.Hidden)

	assert.Error(t, store.SetHidden("ffffffffffffffff", true))
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	issue := testIssue("Doomed")
	require.NoError(t, store.Insert(issue))
	require.NoError(t, store.Delete(issue.ID))

	got, err := store.Get(issue.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettings(t *testing.T) {
	store := openTestStore(t)

	unset, err := store.GetSetting("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "", unset)

	require.NoError(t, store.SetSetting("last_sync", "2024-05-01 09:00:00"))
	got, err := store.GetSetting("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 09:00:00", got)

	require.NoError(t, store.SetSetting("last_sync", "2024-06-01 09:00:00"))
	got, err = store.GetSetting("last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01 09:00:00", got)
}
