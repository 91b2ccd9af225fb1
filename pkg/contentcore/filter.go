package contentcore

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPageLimit is applied when a listing request omits the limit.
const DefaultPageLimit = 10

// SortDirection orders a listing ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sortable content fields.
const (
	SortByCreatedAt   = "created_at"
	SortByUpdatedAt   = "updated_at"
	SortByPublishedAt = "published_at"
	SortByTitle       = "title"
)

// ContentFilter is an immutable conjunction of optional predicates for
// listing and counting content. A zero field adds no predicate: omitting
// Tags never means "tags is empty". Each request builds its own filter
// value; filters are never shared between requests.
type ContentFilter struct {
	// Title matches by case-insensitive substring when non-empty.
	Title string

	// Statuses restricts to the given set. A nil slice adds no
	// predicate; a non-nil empty slice matches nothing (the visibility
	// gate produces it when an anonymous caller requests only statuses
	// it may not see).
	Statuses []ContentStatus

	// PublishedBefore, when non-nil, requires a non-null publishedAt
	// at or before the given instant.
	PublishedBefore *time.Time

	// Tags matches rows whose tag set overlaps any of the given tags.
	Tags []string

	// Type restricts to one content variant when non-empty.
	Type ContentType

	// Category matches by category id, exact slug, or case-insensitive
	// name substring, whichever the value parses as.
	Category string

	// ExcludeID drops a single row from the result (used for related
	// content lookups).
	ExcludeID *uuid.UUID

	SortBy  string
	SortDir SortDirection

	Page  int
	Limit int
}

// FilterOption configures a ContentFilter.
type FilterOption func(*ContentFilter)

// NewContentFilter builds a filter from options. The default sort is
// (created_at, desc) and the default page size is DefaultPageLimit.
func NewContentFilter(opts ...FilterOption) ContentFilter {
	f := ContentFilter{
		SortBy:  SortByCreatedAt,
		SortDir: SortDesc,
		Page:    1,
		Limit:   DefaultPageLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

// WithTitle filters by case-insensitive title substring.
func WithTitle(title string) FilterOption {
	return func(f *ContentFilter) {
		f.Title = title
	}
}

// WithStatuses filters by a status set.
func WithStatuses(statuses ...ContentStatus) FilterOption {
	return func(f *ContentFilter) {
		f.Statuses = statuses
	}
}

// WithPublishedBefore keeps only rows published at or before t.
func WithPublishedBefore(t time.Time) FilterOption {
	return func(f *ContentFilter) {
		f.PublishedBefore = &t
	}
}

// WithTags keeps rows whose tags overlap any of the given tags.
func WithTags(tags ...string) FilterOption {
	return func(f *ContentFilter) {
		f.Tags = tags
	}
}

// WithType filters by content variant.
func WithType(t ContentType) FilterOption {
	return func(f *ContentFilter) {
		f.Type = t
	}
}

// WithCategory filters by category id, slug or name substring.
func WithCategory(idOrSlug string) FilterOption {
	return func(f *ContentFilter) {
		f.Category = idOrSlug
	}
}

// WithExcludeID drops the given content id from the result.
func WithExcludeID(id uuid.UUID) FilterOption {
	return func(f *ContentFilter) {
		f.ExcludeID = &id
	}
}

// WithSort sets the single (field, direction) sort pair. Unknown fields
// fall back to created_at; anything but "asc" sorts descending.
func WithSort(field string, dir SortDirection) FilterOption {
	return func(f *ContentFilter) {
		switch field {
		case SortByCreatedAt, SortByUpdatedAt, SortByPublishedAt, SortByTitle:
			f.SortBy = field
		default:
			f.SortBy = SortByCreatedAt
		}
		if dir == SortAsc {
			f.SortDir = SortAsc
		} else {
			f.SortDir = SortDesc
		}
	}
}

// WithPage sets pagination. Non-positive values keep the defaults.
func WithPage(page, limit int) FilterOption {
	return func(f *ContentFilter) {
		if page > 0 {
			f.Page = page
		}
		if limit > 0 {
			f.Limit = limit
		}
	}
}

// Offset converts page/limit into a row offset.
func (f ContentFilter) Offset() int {
	page := f.Page
	if page <= 0 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return (page - 1) * limit
}

// CategoryFilter holds the optional predicates for listing categories.
type CategoryFilter struct {
	// Name matches by case-insensitive substring when non-empty.
	Name  string
	Page  int
	Limit int
}

// Offset converts page/limit into a row offset.
func (f CategoryFilter) Offset() int {
	page := f.Page
	if page <= 0 {
		page = 1
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return (page - 1) * limit
}
