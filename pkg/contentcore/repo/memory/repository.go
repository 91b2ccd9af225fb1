package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// Repository implements contentcore.Repository using in-memory storage.
// It is safe for concurrent use and intended for tests and local
// development.
type Repository struct {
	mu           sync.RWMutex
	contents     map[uuid.UUID]*contentcore.Content
	contributors map[uuid.UUID][]contentcore.Contributor
	categories   map[uuid.UUID]*contentcore.Category

	// inTx marks a snapshot child created by InTx; child methods skip
	// re-entrant transactions.
	inTx bool
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		contents:     make(map[uuid.UUID]*contentcore.Content),
		contributors: make(map[uuid.UUID][]contentcore.Contributor),
		categories:   make(map[uuid.UUID]*contentcore.Category),
	}
}

// InTx runs fn against a snapshot of the maps. The snapshot replaces the
// live state only when fn returns nil, so a failing fn leaves no partial
// writes behind.
func (r *Repository) InTx(ctx context.Context, fn func(contentcore.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	child := &Repository{
		contents:     make(map[uuid.UUID]*contentcore.Content, len(r.contents)),
		contributors: make(map[uuid.UUID][]contentcore.Contributor, len(r.contributors)),
		categories:   make(map[uuid.UUID]*contentcore.Category, len(r.categories)),
		inTx:         true,
	}
	for id, c := range r.contents {
		child.contents[id] = cloneContent(c)
	}
	for id, list := range r.contributors {
		child.contributors[id] = append([]contentcore.Contributor(nil), list...)
	}
	for id, c := range r.categories {
		cp := *c
		child.categories[id] = &cp
	}

	if err := fn(child); err != nil {
		return err
	}

	r.contents = child.contents
	r.contributors = child.contributors
	r.categories = child.categories
	return nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *contentcore.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.contents {
		if existing.Slug == content.Slug {
			return contentcore.Validationf("slug is already taken")
		}
	}
	r.contents[content.ID] = cloneContent(content)
	return nil
}

func (r *Repository) GetContentByID(ctx context.Context, id uuid.UUID) (*contentcore.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, &contentcore.NotFoundError{Resource: "post"}
	}
	return r.withContributors(cloneContent(content)), nil
}

func (r *Repository) GetContentBySlug(ctx context.Context, slug string) (*contentcore.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, content := range r.contents {
		if content.Slug == slug {
			return r.withContributors(cloneContent(content)), nil
		}
	}
	return nil, &contentcore.NotFoundError{Resource: "post"}
}

func (r *Repository) GetContentByPrivacyKey(ctx context.Context, key string) (*contentcore.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, content := range r.contents {
		if content.PrivacyKey != "" && content.PrivacyKey == key {
			return r.withContributors(cloneContent(content)), nil
		}
	}
	return nil, &contentcore.NotFoundError{Resource: "post"}
}

func (r *Repository) UpdateContent(ctx context.Context, content *contentcore.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[content.ID]; !exists {
		return &contentcore.NotFoundError{Resource: "post"}
	}
	for id, existing := range r.contents {
		if id != content.ID && existing.Slug == content.Slug {
			return contentcore.Validationf("slug is already taken")
		}
	}
	r.contents[content.ID] = cloneContent(content)
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[id]; !exists {
		return &contentcore.NotFoundError{Resource: "post"}
	}
	delete(r.contents, id)
	delete(r.contributors, id)
	return nil
}

func (r *Repository) ListContent(ctx context.Context, filter contentcore.ContentFilter) ([]*contentcore.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*contentcore.Content
	for _, content := range r.contents {
		if r.matches(content, filter) {
			matched = append(matched, r.withContributors(cloneContent(content)))
		}
	}
	sortContent(matched, filter.SortBy, filter.SortDir)

	offset := filter.Offset()
	if offset >= len(matched) {
		return []*contentcore.Content{}, nil
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *Repository) CountContent(ctx context.Context, filter contentcore.ContentFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, content := range r.contents {
		if r.matches(content, filter) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) CountContentByStatus(ctx context.Context, contentType contentcore.ContentType) (map[contentcore.ContentStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[contentcore.ContentStatus]int64)
	for _, content := range r.contents {
		if content.Type == contentType {
			counts[content.Status]++
		}
	}
	return counts, nil
}

func (r *Repository) ListContentByIDs(ctx context.Context, ids []uuid.UUID, authorID *uuid.UUID) ([]*contentcore.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentcore.Content
	for _, id := range ids {
		content, exists := r.contents[id]
		if !exists {
			continue
		}
		if authorID != nil && content.AuthorID != *authorID {
			continue
		}
		result = append(result, cloneContent(content))
	}
	return result, nil
}

func (r *Repository) DeleteContentByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, id := range ids {
		if _, exists := r.contents[id]; exists {
			delete(r.contents, id)
			delete(r.contributors, id)
			count++
		}
	}
	return count, nil
}

// Contributor operations

func (r *Repository) ListContributors(ctx context.Context, contentID uuid.UUID) ([]contentcore.Contributor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]contentcore.Contributor(nil), r.contributors[contentID]...), nil
}

func (r *Repository) AddContributors(ctx context.Context, contentID uuid.UUID, contributors []contentcore.Contributor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.contributors[contentID]
	for _, c := range contributors {
		for _, e := range existing {
			if e.UserID == c.UserID {
				return contentcore.Validationf("contributor is already assigned")
			}
		}
		existing = append(existing, c)
	}
	r.contributors[contentID] = existing
	return nil
}

func (r *Repository) RemoveContributors(ctx context.Context, contentID uuid.UUID, userIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	drop := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		drop[id] = struct{}{}
	}

	kept := r.contributors[contentID][:0]
	for _, c := range r.contributors[contentID] {
		if _, gone := drop[c.UserID]; !gone {
			kept = append(kept, c)
		}
	}
	r.contributors[contentID] = kept
	return nil
}

// Category operations

func (r *Repository) CreateCategory(ctx context.Context, category *contentcore.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return contentcore.Validationf("name is already taken")
		}
	}
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}

func (r *Repository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*contentcore.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, exists := r.categories[id]
	if !exists {
		return nil, &contentcore.NotFoundError{Resource: "category"}
	}
	cp := *category
	return &cp, nil
}

func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (*contentcore.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, category := range r.categories {
		if category.Slug == slug {
			cp := *category
			return &cp, nil
		}
	}
	return nil, &contentcore.NotFoundError{Resource: "category"}
}

func (r *Repository) UpdateCategory(ctx context.Context, category *contentcore.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[category.ID]; !exists {
		return &contentcore.NotFoundError{Resource: "category"}
	}
	for id, existing := range r.categories {
		if id != category.ID && strings.EqualFold(existing.Name, category.Name) {
			return contentcore.Validationf("name is already taken")
		}
	}
	cp := *category
	r.categories[category.ID] = &cp
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[id]; !exists {
		return &contentcore.NotFoundError{Resource: "category"}
	}
	for _, content := range r.contents {
		if content.CategoryID == id {
			return contentcore.Validationf("category is still in use")
		}
	}
	delete(r.categories, id)
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, filter contentcore.CategoryFilter) ([]*contentcore.Category, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*contentcore.Category
	for _, category := range r.categories {
		if filter.Name != "" && !strings.Contains(strings.ToLower(category.Name), strings.ToLower(filter.Name)) {
			continue
		}
		cp := *category
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})

	count := int64(len(matched))
	offset := filter.Offset()
	if offset >= len(matched) {
		return []*contentcore.Category{}, count, nil
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], count, nil
}

// matches evaluates every predicate of the filter. Callers hold r.mu.
func (r *Repository) matches(c *contentcore.Content, f contentcore.ContentFilter) bool {
	if f.Title != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Statuses != nil {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PublishedBefore != nil {
		if c.PublishedAt == nil || c.PublishedAt.After(*f.PublishedBefore) {
			return false
		}
	}
	if len(f.Tags) > 0 && !tagsOverlap(c.Tags, f.Tags) {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Category != "" && !r.categoryMatches(c.CategoryID, f.Category) {
		return false
	}
	if f.ExcludeID != nil && c.ID == *f.ExcludeID {
		return false
	}
	return true
}

func (r *Repository) categoryMatches(categoryID uuid.UUID, selector string) bool {
	if id, err := uuid.Parse(selector); err == nil {
		return categoryID == id
	}
	category, exists := r.categories[categoryID]
	if !exists {
		return false
	}
	if category.Slug == selector {
		return true
	}
	return strings.Contains(strings.ToLower(category.Name), strings.ToLower(selector))
}

func (r *Repository) withContributors(c *contentcore.Content) *contentcore.Content {
	if c.Broadcast != nil {
		c.Broadcast.Contributors = append([]contentcore.Contributor(nil), r.contributors[c.ID]...)
	}
	return c
}

func tagsOverlap(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func sortContent(items []*contentcore.Content, sortBy string, dir contentcore.SortDirection) {
	desc := dir == contentcore.SortDesc

	if sortBy == contentcore.SortByPublishedAt {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].PublishedAt, items[j].PublishedAt
			// Unpublished rows sort last in both directions.
			if a == nil || b == nil {
				return a != nil && b == nil
			}
			if desc {
				return b.Before(*a)
			}
			return a.Before(*b)
		})
		return
	}

	less := func(i, j int) bool {
		a, b := items[i], items[j]
		switch sortBy {
		case contentcore.SortByTitle:
			return a.Title < b.Title
		case contentcore.SortByUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	if desc {
		orig := less
		less = func(i, j int) bool { return orig(j, i) }
	}
	sort.SliceStable(items, less)
}

func cloneContent(c *contentcore.Content) *contentcore.Content {
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	if c.Event != nil {
		event := *c.Event
		cp.Event = &event
	}
	if c.Broadcast != nil {
		broadcast := *c.Broadcast
		broadcast.Contributors = append([]contentcore.Contributor(nil), c.Broadcast.Contributors...)
		cp.Broadcast = &broadcast
	}
	return &cp
}
