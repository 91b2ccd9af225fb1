package contentcore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the business-logic interface for the content backend. All
// mutating operations authenticate the actor against the identity store
// and authorize against the stored row before writing.
type Service interface {
	// Content lifecycle
	CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error)
	UpdateContent(ctx context.Context, req UpdateContentRequest) (*Content, error)
	DeleteContent(ctx context.Context, req DeleteContentRequest) error
	BulkDeleteContent(ctx context.Context, req BulkDeleteContentRequest) (int64, error)

	// Content reads
	GetContent(ctx context.Context, req GetContentRequest) (*Content, error)
	ListContent(ctx context.Context, req ListContentRequest) (*ContentPage, error)
	ListRelatedContent(ctx context.Context, viewer Viewer, id uuid.UUID) ([]*Content, error)
	ListUpcomingBroadcasts(ctx context.Context) ([]*Content, error)
	ListLiveBroadcasts(ctx context.Context) ([]*Content, error)
	ContentStatusSummary(ctx context.Context, contentType ContentType) (*StatusSummary, error)

	// Broadcast contributors
	ReconcileBroadcastContributors(ctx context.Context, req ReconcileBroadcastRequest) ([]Contributor, error)

	// Categories
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	UpdateCategory(ctx context.Context, req UpdateCategoryRequest) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	GetCategory(ctx context.Context, idOrSlug string) (*Category, error)
	ListCategories(ctx context.Context, req ListCategoriesRequest) (*CategoryPage, error)
}

type service struct {
	repo     Repository
	identity IdentityStore
	blobs    BlobStore
	clock    Clock
	newKey   KeyGenerator
	logger   zerolog.Logger
}

// Option configures the service.
type Option func(*service)

// WithRepository sets the persistence backend.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithIdentityStore sets the user lookup backend.
func WithIdentityStore(store IdentityStore) Option {
	return func(s *service) {
		s.identity = store
	}
}

// WithBlobStore sets the thumbnail asset backend. Without one, thumbnail
// uploads are rejected and ThumbnailURL stays empty on reads.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) Option {
	return func(s *service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithKeyGenerator overrides the privacy key generator.
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(s *service) {
		if gen != nil {
			s.newKey = gen
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates the service. A repository and an identity store are
// required; everything else has a default.
func New(opts ...Option) (Service, error) {
	s := &service{
		clock:  systemClock{},
		newKey: randomPrivacyKey,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo == nil {
		return nil, errors.New("contentcore: repository is required")
	}
	if s.identity == nil {
		return nil, errors.New("contentcore: identity store is required")
	}
	return s, nil
}
