package contentcore

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for thumbnail asset storage. Blob
// calls are not transactional resources; the service orders them around
// row writes so failures bias toward orphaned assets over dangling
// references.
type BlobStore interface {
	// Upload stores the content under the given key.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download reads the content back.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the content.
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a URL for downloading the content.
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in blob storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// IdentityStore looks up users in the external identity system. It is
// read-only from this package's perspective.
type IdentityStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
}

// Repository defines the persistence interface for content, contributors
// and categories.
//
// InTx runs fn against a repository whose writes become visible only if
// fn returns nil; any error discards all of them. Mutating service
// operations group every row write of one logical operation inside a
// single InTx call.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	// Content operations
	CreateContent(ctx context.Context, content *Content) error
	GetContentByID(ctx context.Context, id uuid.UUID) (*Content, error)
	GetContentBySlug(ctx context.Context, slug string) (*Content, error)
	GetContentByPrivacyKey(ctx context.Context, key string) (*Content, error)
	UpdateContent(ctx context.Context, content *Content) error
	DeleteContent(ctx context.Context, id uuid.UUID) error
	ListContent(ctx context.Context, filter ContentFilter) ([]*Content, error)
	CountContent(ctx context.Context, filter ContentFilter) (int64, error)
	CountContentByStatus(ctx context.Context, contentType ContentType) (map[ContentStatus]int64, error)

	// ListContentByIDs returns the rows matching ids; a non-nil authorID
	// restricts the match to rows owned by that author.
	ListContentByIDs(ctx context.Context, ids []uuid.UUID, authorID *uuid.UUID) ([]*Content, error)
	DeleteContentByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)

	// Broadcast contributor operations
	ListContributors(ctx context.Context, contentID uuid.UUID) ([]Contributor, error)
	AddContributors(ctx context.Context, contentID uuid.UUID, contributors []Contributor) error
	RemoveContributors(ctx context.Context, contentID uuid.UUID, userIDs []uuid.UUID) error

	// Category operations
	CreateCategory(ctx context.Context, category *Category) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*Category, error)
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, filter CategoryFilter) ([]*Category, int64, error)
}
