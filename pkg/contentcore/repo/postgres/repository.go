package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// DBTX is satisfied by both a pgx pool and a pgx transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements contentcore.Repository using PostgreSQL.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a repository over an existing connection or transaction.
// Repositories built this way cannot open their own transactions.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a repository over a connection pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// InTx runs fn inside a database transaction. A repository already bound
// to a transaction reuses it.
func (r *Repository) InTx(ctx context.Context, fn func(contentcore.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// translateError maps driver errors onto the domain taxonomy at the
// single repository boundary.
func translateError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch {
			case strings.Contains(pgErr.ConstraintName, "slug"):
				return contentcore.Validationf("slug is already taken")
			case strings.Contains(pgErr.ConstraintName, "name"):
				return contentcore.Validationf("name is already taken")
			case strings.Contains(pgErr.ConstraintName, "contributor"):
				return contentcore.Validationf("contributor is already assigned")
			}
			return contentcore.Validationf("duplicate entry")
		case "23503": // foreign_key_violation
			if operation == "delete category" {
				return contentcore.Validationf("category is still in use")
			}
			if strings.Contains(pgErr.ConstraintName, "category") {
				return &contentcore.NotFoundError{Resource: "category"}
			}
			return &contentcore.NotFoundError{Resource: "record"}
		case "23502": // not_null_violation
			return contentcore.Validationf("required field %s is missing", pgErr.ColumnName)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &contentcore.NotFoundError{Resource: "record"}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

const contentColumns = `
	c.id, c.type, c.title, c.slug, c.body, c.thumbnail_key, c.status,
	c.tags, c.category_id, c.author_id, c.published_at, c.privacy_key,
	c.meta_title, c.meta_description, c.meta_keywords,
	c.created_at, c.updated_at,
	e.start_date, e.end_date,
	b.video_ref, b.poll_ref, b.start_date, b.end_date`

const contentJoins = `
	FROM content c
	LEFT JOIN content_event e ON e.content_id = c.id
	LEFT JOIN content_broadcast b ON b.content_id = c.id`

func scanContent(row pgx.Row) (*contentcore.Content, error) {
	var c contentcore.Content
	var privacyKey *string
	var eventStart, eventEnd *time.Time
	var videoRef, pollRef *string
	var broadcastStart, broadcastEnd *time.Time

	err := row.Scan(
		&c.ID, &c.Type, &c.Title, &c.Slug, &c.Body, &c.ThumbnailKey, &c.Status,
		&c.Tags, &c.CategoryID, &c.AuthorID, &c.PublishedAt, &privacyKey,
		&c.MetaTitle, &c.MetaDescription, &c.MetaKeywords,
		&c.CreatedAt, &c.UpdatedAt,
		&eventStart, &eventEnd,
		&videoRef, &pollRef, &broadcastStart, &broadcastEnd)
	if err != nil {
		return nil, err
	}

	if privacyKey != nil {
		c.PrivacyKey = *privacyKey
	}
	if eventStart != nil && eventEnd != nil {
		c.Event = &contentcore.EventDetails{StartDate: *eventStart, EndDate: *eventEnd}
	}
	if videoRef != nil {
		c.Broadcast = &contentcore.BroadcastDetails{
			VideoRef: *videoRef,
		}
		if pollRef != nil {
			c.Broadcast.PollRef = *pollRef
		}
		if broadcastStart != nil {
			c.Broadcast.StartDate = *broadcastStart
		}
		if broadcastEnd != nil {
			c.Broadcast.EndDate = *broadcastEnd
		}
	}
	return &c, nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *contentcore.Content) error {
	query := `
		INSERT INTO content (
			id, type, title, slug, body, thumbnail_key, status, tags,
			category_id, author_id, published_at, privacy_key,
			meta_title, meta_description, meta_keywords, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.Exec(ctx, query,
		content.ID, content.Type, content.Title, content.Slug, content.Body,
		content.ThumbnailKey, content.Status, content.Tags,
		content.CategoryID, content.AuthorID, content.PublishedAt, nullableKey(content.PrivacyKey),
		content.MetaTitle, content.MetaDescription, content.MetaKeywords,
		content.CreatedAt, content.UpdatedAt)
	if err != nil {
		return translateError("create content", err)
	}

	if content.Event != nil {
		_, err = r.db.Exec(ctx,
			`INSERT INTO content_event (content_id, start_date, end_date) VALUES ($1, $2, $3)`,
			content.ID, content.Event.StartDate, content.Event.EndDate)
		if err != nil {
			return translateError("create content event", err)
		}
	}
	if content.Broadcast != nil {
		_, err = r.db.Exec(ctx,
			`INSERT INTO content_broadcast (content_id, video_ref, poll_ref, start_date, end_date)
			 VALUES ($1, $2, $3, $4, $5)`,
			content.ID, content.Broadcast.VideoRef, content.Broadcast.PollRef,
			content.Broadcast.StartDate, content.Broadcast.EndDate)
		if err != nil {
			return translateError("create content broadcast", err)
		}
	}
	return nil
}

func (r *Repository) GetContentByID(ctx context.Context, id uuid.UUID) (*contentcore.Content, error) {
	query := `SELECT` + contentColumns + contentJoins + ` WHERE c.id = $1`
	return r.getContent(ctx, query, id)
}

func (r *Repository) GetContentBySlug(ctx context.Context, slug string) (*contentcore.Content, error) {
	query := `SELECT` + contentColumns + contentJoins + ` WHERE c.slug = $1`
	return r.getContent(ctx, query, slug)
}

func (r *Repository) GetContentByPrivacyKey(ctx context.Context, key string) (*contentcore.Content, error) {
	query := `SELECT` + contentColumns + contentJoins + ` WHERE c.privacy_key = $1`
	return r.getContent(ctx, query, key)
}

func (r *Repository) getContent(ctx context.Context, query string, arg any) (*contentcore.Content, error) {
	content, err := scanContent(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &contentcore.NotFoundError{Resource: "post"}
		}
		return nil, translateError("get content", err)
	}
	if content.Broadcast != nil {
		contributors, err := r.ListContributors(ctx, content.ID)
		if err != nil {
			return nil, err
		}
		content.Broadcast.Contributors = contributors
	}
	return content, nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *contentcore.Content) error {
	query := `
		UPDATE content SET
			title = $2, slug = $3, body = $4, thumbnail_key = $5, status = $6,
			tags = $7, category_id = $8, published_at = $9, privacy_key = $10,
			meta_title = $11, meta_description = $12, meta_keywords = $13,
			updated_at = $14
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		content.ID, content.Title, content.Slug, content.Body,
		content.ThumbnailKey, content.Status, content.Tags, content.CategoryID,
		content.PublishedAt, nullableKey(content.PrivacyKey),
		content.MetaTitle, content.MetaDescription, content.MetaKeywords,
		content.UpdatedAt)
	if err != nil {
		return translateError("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return &contentcore.NotFoundError{Resource: "post"}
	}

	if content.Event != nil {
		_, err = r.db.Exec(ctx,
			`UPDATE content_event SET start_date = $2, end_date = $3 WHERE content_id = $1`,
			content.ID, content.Event.StartDate, content.Event.EndDate)
		if err != nil {
			return translateError("update content event", err)
		}
	}
	if content.Broadcast != nil {
		_, err = r.db.Exec(ctx,
			`UPDATE content_broadcast SET video_ref = $2, poll_ref = $3, start_date = $4, end_date = $5
			 WHERE content_id = $1`,
			content.ID, content.Broadcast.VideoRef, content.Broadcast.PollRef,
			content.Broadcast.StartDate, content.Broadcast.EndDate)
		if err != nil {
			return translateError("update content broadcast", err)
		}
	}
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	// Variant and contributor rows cascade on the foreign key.
	tag, err := r.db.Exec(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return translateError("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return &contentcore.NotFoundError{Resource: "post"}
	}
	return nil
}

func (r *Repository) ListContent(ctx context.Context, filter contentcore.ContentFilter) ([]*contentcore.Content, error) {
	where, args := buildContentWhere(filter)

	query := `SELECT` + contentColumns + contentJoins + categoryJoin(filter) + where +
		orderClause(filter) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("list content", err)
	}
	defer rows.Close()

	var result []*contentcore.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, translateError("list content", err)
		}
		result = append(result, content)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("list content", err)
	}

	for _, content := range result {
		if content.Broadcast == nil {
			continue
		}
		contributors, err := r.ListContributors(ctx, content.ID)
		if err != nil {
			return nil, err
		}
		content.Broadcast.Contributors = contributors
	}
	return result, nil
}

func (r *Repository) CountContent(ctx context.Context, filter contentcore.ContentFilter) (int64, error) {
	where, args := buildContentWhere(filter)
	query := `SELECT COUNT(*) FROM content c` + categoryJoin(filter) + where

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, translateError("count content", err)
	}
	return count, nil
}

func (r *Repository) CountContentByStatus(ctx context.Context, contentType contentcore.ContentType) (map[contentcore.ContentStatus]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM content WHERE type = $1 GROUP BY status`, contentType)
	if err != nil {
		return nil, translateError("count content by status", err)
	}
	defer rows.Close()

	counts := make(map[contentcore.ContentStatus]int64)
	for rows.Next() {
		var status contentcore.ContentStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, translateError("count content by status", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *Repository) ListContentByIDs(ctx context.Context, ids []uuid.UUID, authorID *uuid.UUID) ([]*contentcore.Content, error) {
	query := `SELECT` + contentColumns + contentJoins + ` WHERE c.id = ANY($1)`
	args := []any{ids}
	if authorID != nil {
		query += ` AND c.author_id = $2`
		args = append(args, *authorID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("list content by ids", err)
	}
	defer rows.Close()

	var result []*contentcore.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, translateError("list content by ids", err)
		}
		result = append(result, content)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteContentByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM content WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, translateError("delete content by ids", err)
	}
	return tag.RowsAffected(), nil
}

// Contributor operations

func (r *Repository) ListContributors(ctx context.Context, contentID uuid.UUID) ([]contentcore.Contributor, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, role FROM broadcast_contributor WHERE content_id = $1 ORDER BY role, user_id`,
		contentID)
	if err != nil {
		return nil, translateError("list contributors", err)
	}
	defer rows.Close()

	var result []contentcore.Contributor
	for rows.Next() {
		var c contentcore.Contributor
		if err := rows.Scan(&c.UserID, &c.Role); err != nil {
			return nil, translateError("list contributors", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *Repository) AddContributors(ctx context.Context, contentID uuid.UUID, contributors []contentcore.Contributor) error {
	for _, c := range contributors {
		_, err := r.db.Exec(ctx,
			`INSERT INTO broadcast_contributor (content_id, user_id, role) VALUES ($1, $2, $3)`,
			contentID, c.UserID, c.Role)
		if err != nil {
			return translateError("add contributor", err)
		}
	}
	return nil
}

func (r *Repository) RemoveContributors(ctx context.Context, contentID uuid.UUID, userIDs []uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM broadcast_contributor WHERE content_id = $1 AND user_id = ANY($2)`,
		contentID, userIDs)
	if err != nil {
		return translateError("remove contributors", err)
	}
	return nil
}

// Category operations

func (r *Repository) CreateCategory(ctx context.Context, category *contentcore.Category) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO category (id, name, slug, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		category.ID, category.Name, category.Slug, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		return translateError("create category", err)
	}
	return nil
}

func (r *Repository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*contentcore.Category, error) {
	return r.getCategory(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM category WHERE id = $1`, id)
}

func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (*contentcore.Category, error) {
	return r.getCategory(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM category WHERE slug = $1`, slug)
}

func (r *Repository) getCategory(ctx context.Context, query string, arg any) (*contentcore.Category, error) {
	var c contentcore.Category
	err := r.db.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &contentcore.NotFoundError{Resource: "category"}
		}
		return nil, translateError("get category", err)
	}
	return &c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, category *contentcore.Category) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE category SET name = $2, slug = $3, updated_at = $4 WHERE id = $1`,
		category.ID, category.Name, category.Slug, category.UpdatedAt)
	if err != nil {
		return translateError("update category", err)
	}
	if tag.RowsAffected() == 0 {
		return &contentcore.NotFoundError{Resource: "category"}
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM category WHERE id = $1`, id)
	if err != nil {
		return translateError("delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return &contentcore.NotFoundError{Resource: "category"}
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, filter contentcore.CategoryFilter) ([]*contentcore.Category, int64, error) {
	where := ""
	args := []any{}
	if filter.Name != "" {
		where = ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, filter.Name)
	}

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM category`+where, args...).Scan(&count); err != nil {
		return nil, 0, translateError("count categories", err)
	}

	query := `SELECT id, name, slug, created_at, updated_at FROM category` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("list categories", err)
	}
	defer rows.Close()

	var result []*contentcore.Category
	for rows.Next() {
		var c contentcore.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, translateError("list categories", err)
		}
		result = append(result, &c)
	}
	return result, count, rows.Err()
}

// buildContentWhere renders the filter's predicates as a WHERE clause.
// Predicate order is fixed by the builder, never by the caller, so two
// filters with the same fields always produce the same SQL.
func buildContentWhere(f contentcore.ContentFilter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Title != "" {
		conds = append(conds, fmt.Sprintf("c.title ILIKE '%%' || %s || '%%'", arg(f.Title)))
	}
	if f.Statuses != nil {
		// An empty set renders ANY of an empty array and matches nothing.
		conds = append(conds, fmt.Sprintf("c.status = ANY(%s)", arg(f.Statuses)))
	}
	if f.PublishedBefore != nil {
		conds = append(conds, fmt.Sprintf("c.published_at IS NOT NULL AND c.published_at <= %s", arg(*f.PublishedBefore)))
	}
	if len(f.Tags) > 0 {
		lowered := make([]string, len(f.Tags))
		for i, t := range f.Tags {
			lowered[i] = strings.ToLower(t)
		}
		conds = append(conds, fmt.Sprintf("c.tags && %s", arg(lowered)))
	}
	if f.Type != "" {
		conds = append(conds, fmt.Sprintf("c.type = %s", arg(f.Type)))
	}
	if f.Category != "" {
		if id, err := uuid.Parse(f.Category); err == nil {
			conds = append(conds, fmt.Sprintf("c.category_id = %s", arg(id)))
		} else {
			p := arg(f.Category)
			conds = append(conds, fmt.Sprintf("(cat.slug = %s OR cat.name ILIKE '%%' || %s || '%%')", p, p))
		}
	}
	if f.ExcludeID != nil {
		conds = append(conds, fmt.Sprintf("c.id <> %s", arg(*f.ExcludeID)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// categoryJoin adds the category join only when the filter needs to
// match on slug or name.
func categoryJoin(f contentcore.ContentFilter) string {
	if f.Category == "" {
		return ""
	}
	if _, err := uuid.Parse(f.Category); err == nil {
		return ""
	}
	return ` JOIN category cat ON cat.id = c.category_id`
}

func orderClause(f contentcore.ContentFilter) string {
	field := "c.created_at"
	switch f.SortBy {
	case contentcore.SortByUpdatedAt:
		field = "c.updated_at"
	case contentcore.SortByPublishedAt:
		field = "c.published_at"
	case contentcore.SortByTitle:
		field = "c.title"
	}
	dir := "DESC"
	if f.SortDir == contentcore.SortAsc {
		dir = "ASC"
	}
	if field == "c.published_at" {
		return fmt.Sprintf(" ORDER BY %s %s NULLS LAST", field, dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s", field, dir)
}

func nullableKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}
