package contentcore

import (
	"time"

	"github.com/google/uuid"
)

// ThumbnailUpload carries raw thumbnail bytes alongside the original
// file name. The extension of FileName is kept on the stored object key.
type ThumbnailUpload struct {
	FileName string
	Data     []byte
}

// EventInput is the event variant payload of a create request.
type EventInput struct {
	StartDate time.Time
	EndDate   time.Time
}

// BroadcastInput is the broadcast variant payload of a create request.
type BroadcastInput struct {
	VideoRef   string
	PollRef    string
	StartDate  time.Time
	EndDate    time.Time
	Assignment *ContributorAssignment
}

// ContributorAssignment names the desired speaker and moderator of a
// broadcast.
type ContributorAssignment struct {
	SpeakerID   uuid.UUID
	ModeratorID uuid.UUID
}

// CreateContentRequest creates one content item of any variant. Event
// must be set iff Type is event, Broadcast iff Type is broadcast.
type CreateContentRequest struct {
	ActorID     uuid.UUID
	Type        ContentType
	Title       string
	Body        string
	CategoryID  uuid.UUID
	Status      ContentStatus
	PublishedAt *time.Time
	Tags        []string

	MetaTitle       string
	MetaDescription string
	MetaKeywords    string

	Thumbnail *ThumbnailUpload
	Event     *EventInput
	Broadcast *BroadcastInput
}

// EventUpdate carries partial event date changes. A nil field keeps the
// stored value; a supplied single date is cross-checked against the
// stored counterpart.
type EventUpdate struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// BroadcastUpdate carries partial broadcast changes. A non-nil
// Assignment reconciles the contributor rows in the same transaction as
// the field changes.
type BroadcastUpdate struct {
	VideoRef   *string
	PollRef    *string
	StartDate  *time.Time
	EndDate    *time.Time
	Assignment *ContributorAssignment
}

// UpdateContentRequest applies a partial update. Nil fields keep stored
// values. A supplied Status recomputes publishedAt and the privacy key.
type UpdateContentRequest struct {
	ActorID uuid.UUID
	ID      uuid.UUID

	Title       *string
	Body        *string
	CategoryID  *uuid.UUID
	Status      *ContentStatus
	PublishedAt *time.Time
	Tags        []string

	MetaTitle       *string
	MetaDescription *string
	MetaKeywords    *string

	Thumbnail *ThumbnailUpload
	Event     *EventUpdate
	Broadcast *BroadcastUpdate
}

// GetContentRequest fetches one item by id or slug. A non-empty
// PrivacyKey switches to the key lookup path, where the key alone
// selects the row.
type GetContentRequest struct {
	Viewer     Viewer
	IDOrSlug   string
	PrivacyKey string
}

// ListContentRequest lists a page of content under the viewer's
// visibility.
type ListContentRequest struct {
	Viewer Viewer
	Filter ContentFilter
}

// DeleteContentRequest removes one item and its thumbnail asset.
type DeleteContentRequest struct {
	ActorID uuid.UUID
	ID      uuid.UUID
}

// BulkDeleteContentRequest removes several items in one transaction.
// The operation is all-or-nothing: any id the actor cannot delete fails
// the whole request.
type BulkDeleteContentRequest struct {
	ActorID uuid.UUID
	IDs     []uuid.UUID
}

// ReconcileBroadcastRequest reassigns the speaker and moderator of a
// broadcast to the desired pair, removing and adding the minimal set of
// contributor rows.
type ReconcileBroadcastRequest struct {
	ActorID     uuid.UUID
	ContentID   uuid.UUID
	SpeakerID   uuid.UUID
	ModeratorID uuid.UUID
}

// CreateCategoryRequest creates a category; the slug derives from Name.
type CreateCategoryRequest struct {
	Name string
}

// UpdateCategoryRequest renames a category, re-deriving its slug.
type UpdateCategoryRequest struct {
	ID   uuid.UUID
	Name string
}

// ListCategoriesRequest lists a page of categories.
type ListCategoriesRequest struct {
	Filter CategoryFilter
}

// CategoryPage is one page of categories plus pagination metadata.
type CategoryPage struct {
	Items []*Category `json:"items"`
	Meta  PageMeta    `json:"meta"`
}
