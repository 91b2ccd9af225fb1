package contentcore

import (
	"time"

	"github.com/google/uuid"
)

// ContentType discriminates the three content variants.
type ContentType string

const (
	TypeArticle   ContentType = "article"
	TypeEvent     ContentType = "event"
	TypeBroadcast ContentType = "broadcast"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case TypeArticle, TypeEvent, TypeBroadcast:
		return true
	}
	return false
}

// ContentStatus is the domain type for publication lifecycle states.
//
// The canonical set is six values; "unpublished" is kept as a distinct
// terminal state with archived-like visibility (nil publishedAt, excluded
// from public listings).
type ContentStatus string

const (
	StatusDraft       ContentStatus = "draft"
	StatusPublished   ContentStatus = "published"
	StatusUnpublished ContentStatus = "unpublished"
	StatusScheduled   ContentStatus = "scheduled"
	StatusPrivate     ContentStatus = "private"
	StatusArchived    ContentStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusUnpublished, StatusScheduled, StatusPrivate, StatusArchived:
		return true
	}
	return false
}

// ContributorRole is the role a user holds on a broadcast.
type ContributorRole string

const (
	RoleSpeaker   ContributorRole = "speaker"
	RoleModerator ContributorRole = "moderator"
	RoleHost      ContributorRole = "host"
)

// Role names carried by the external identity store.
const (
	RoleNameAdmin   = "admin"
	RoleNameSpeaker = "speaker"
)

// Content is the unifying entity for articles, events and broadcasts.
//
// Exactly one of Event/Broadcast is non-nil when Type is the matching
// variant; both are nil for articles. PrivacyKey is non-empty iff
// Status is private. PublishedAt is non-nil iff Status is published or
// scheduled.
type Content struct {
	ID           uuid.UUID     `json:"id"`
	Type         ContentType   `json:"type"`
	Title        string        `json:"title"`
	Slug         string        `json:"slug"`
	Body         string        `json:"body,omitempty"`
	ThumbnailKey string        `json:"-"`
	Status       ContentStatus `json:"status"`
	Tags         []string      `json:"tags,omitempty"`
	CategoryID   uuid.UUID     `json:"category_id"`
	AuthorID     uuid.UUID     `json:"author_id"`
	PublishedAt  *time.Time    `json:"published_at,omitempty"`
	PrivacyKey   string        `json:"privacy_key,omitempty"`

	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	MetaKeywords    string `json:"meta_keywords,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Event     *EventDetails     `json:"event,omitempty"`
	Broadcast *BroadcastDetails `json:"broadcast,omitempty"`

	// Resolved by the service layer on reads, never persisted.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// EventDetails holds the event variant payload.
type EventDetails struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// BroadcastDetails holds the broadcast variant payload. VideoRef and
// PollRef are opaque identifiers in external embed services.
type BroadcastDetails struct {
	VideoRef     string        `json:"video_ref"`
	PollRef      string        `json:"poll_ref"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	Contributors []Contributor `json:"contributors,omitempty"`
}

// Contributor associates a user with a broadcast under a specific role.
// A user id appears at most once per broadcast; exactly one contributor
// holds the speaker role.
type Contributor struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   ContributorRole `json:"role"`
}

// Category groups content items. Slug is derived from Name and not
// guaranteed unique by this package.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is the read-only projection of the external identity store.
type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name,omitempty"`
	RoleName string    `json:"role_name"`
}

// PageMeta is the pagination envelope returned by listing operations.
type PageMeta struct {
	Page             int   `json:"page"`
	Limit            int   `json:"limit"`
	TotalData        int64 `json:"total_data"`
	TotalPages       int   `json:"total_page"`
	TotalDataPerPage int   `json:"total_data_per_page"`
}

// ContentPage is one page of listed content plus pagination metadata.
type ContentPage struct {
	Items []*Content `json:"items"`
	Meta  PageMeta   `json:"meta"`
}

// StatusSummary tallies content rows per status for one content type.
// Total counts every row of the type regardless of status.
type StatusSummary struct {
	Counts map[ContentStatus]int64 `json:"counts"`
	Total  int64                   `json:"all"`
}

func paginate(count int64, page, limit, pageLen int) PageMeta {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int((count + int64(limit) - 1) / int64(limit))
	return PageMeta{
		Page:             page,
		Limit:            limit,
		TotalData:        count,
		TotalPages:       totalPages,
		TotalDataPerPage: pageLen,
	}
}
