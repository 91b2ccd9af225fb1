package contentcore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewContentFilterDefaults(t *testing.T) {
	f := NewContentFilter()

	assert.Equal(t, SortByCreatedAt, f.SortBy)
	assert.Equal(t, SortDesc, f.SortDir)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageLimit, f.Limit)
	assert.Nil(t, f.Statuses)
	assert.Nil(t, f.PublishedBefore)
}

func TestNewContentFilterOrderIndependent(t *testing.T) {
	before := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	a := NewContentFilter(
		WithTitle("launch"),
		WithStatuses(StatusPublished),
		WithPublishedBefore(before),
		WithTags("go", "web"),
		WithPage(2, 20),
	)
	b := NewContentFilter(
		WithPage(2, 20),
		WithTags("go", "web"),
		WithPublishedBefore(before),
		WithStatuses(StatusPublished),
		WithTitle("launch"),
	)

	assert.Equal(t, a.Title, b.Title)
	assert.Equal(t, a.Statuses, b.Statuses)
	assert.Equal(t, a.Tags, b.Tags)
	assert.Equal(t, *a.PublishedBefore, *b.PublishedBefore)
	assert.Equal(t, a.Page, b.Page)
	assert.Equal(t, a.Limit, b.Limit)
}

func TestWithSort(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		dir       SortDirection
		wantField string
		wantDir   SortDirection
	}{
		{name: "valid pair", field: SortByTitle, dir: SortAsc, wantField: SortByTitle, wantDir: SortAsc},
		{name: "unknown field falls back", field: "body", dir: SortAsc, wantField: SortByCreatedAt, wantDir: SortAsc},
		{name: "unknown direction falls back", field: SortByUpdatedAt, dir: "sideways", wantField: SortByUpdatedAt, wantDir: SortDesc},
		{name: "published_at allowed", field: SortByPublishedAt, dir: SortDesc, wantField: SortByPublishedAt, wantDir: SortDesc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewContentFilter(WithSort(tt.field, tt.dir))
			assert.Equal(t, tt.wantField, f.SortBy)
			assert.Equal(t, tt.wantDir, f.SortDir)
		})
	}
}

func TestWithPageIgnoresNonPositiveValues(t *testing.T) {
	f := NewContentFilter(WithPage(0, -5))
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageLimit, f.Limit)
}

func TestFilterOffset(t *testing.T) {
	assert.Equal(t, 0, NewContentFilter().Offset())
	assert.Equal(t, 20, NewContentFilter(WithPage(3, 10)).Offset())
	assert.Equal(t, 0, ContentFilter{}.Offset())
}

func TestFiltersDoNotShareState(t *testing.T) {
	id := uuid.New()
	a := NewContentFilter(WithExcludeID(id), WithStatuses(StatusDraft))
	b := NewContentFilter(WithTitle("other"))

	assert.NotNil(t, a.ExcludeID)
	assert.Nil(t, b.ExcludeID)
	assert.Nil(t, b.Statuses)
	assert.Empty(t, a.Title)
}
