package contentcore

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

func (s *service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, Validationf("category name is required")
	}

	now := s.clock.Now()
	category := &Category{
		ID:        uuid.New(),
		Name:      req.Name,
		Slug:      Slugify(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *service) UpdateCategory(ctx context.Context, req UpdateCategoryRequest) (*Category, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, Validationf("category name is required")
	}

	category, err := s.repo.GetCategoryByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	category.Name = req.Name
	category.Slug = Slugify(req.Name)
	category.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetCategoryByID(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteCategory(ctx, id)
}

func (s *service) GetCategory(ctx context.Context, idOrSlug string) (*Category, error) {
	if idOrSlug == "" {
		return nil, Validationf("category id or slug is required")
	}
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.repo.GetCategoryByID(ctx, id)
	}
	return s.repo.GetCategoryBySlug(ctx, idOrSlug)
}

func (s *service) ListCategories(ctx context.Context, req ListCategoriesRequest) (*CategoryPage, error) {
	filter := req.Filter
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageLimit
	}

	items, count, err := s.repo.ListCategories(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{
		Items: items,
		Meta:  paginate(count, filter.Page, filter.Limit, len(items)),
	}, nil
}
