package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/content-core/internal/api"
	"github.com/streamhive/content-core/pkg/contentcore"
	"github.com/streamhive/content-core/pkg/contentcore/repo/memory"
	memorystorage "github.com/streamhive/content-core/pkg/contentcore/storage/memory"
)

type apiFixture struct {
	router   http.Handler
	svc      contentcore.Service
	adminID  uuid.UUID
	authorID uuid.UUID
	otherID  uuid.UUID

	categoryID uuid.UUID
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	repo := memory.New()
	identity := memory.NewIdentityStore()

	f := &apiFixture{
		adminID:  uuid.New(),
		authorID: uuid.New(),
		otherID:  uuid.New(),
	}
	identity.PutUser(&contentcore.User{ID: f.adminID, Name: "Admin", RoleName: "admin"})
	identity.PutUser(&contentcore.User{ID: f.authorID, Name: "Author", RoleName: "author"})
	identity.PutUser(&contentcore.User{ID: f.otherID, Name: "Other", RoleName: "author"})

	svc, err := contentcore.New(
		contentcore.WithRepository(repo),
		contentcore.WithIdentityStore(identity),
		contentcore.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)

	f.svc = svc
	f.router = api.NewRouter(svc, zerolog.Nop())

	category, err := svc.CreateCategory(context.Background(), contentcore.CreateCategoryRequest{Name: "News"})
	require.NoError(t, err)
	f.categoryID = category.ID

	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req.Header.Set("X-User-Id", userID.String())
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createPayload(f *apiFixture, title, status string) map[string]any {
	return map[string]any{
		"type":        "article",
		"title":       title,
		"body":        "body text",
		"category_id": f.categoryID,
		"status":      status,
	}
}

func TestHealthz(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil, uuid.Nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateContentEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := setupAPI(t)

		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Breaking News", "published"), f.authorID)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		content := decodeBody[contentcore.Content](t, rec)
		assert.Equal(t, "breaking-news", content.Slug)
		assert.Equal(t, f.authorID, content.AuthorID)
		assert.NotNil(t, content.PublishedAt)
	})

	t.Run("missing identity header", func(t *testing.T) {
		f := setupAPI(t)

		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Anon", "draft"), uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation error surfaces as 400", func(t *testing.T) {
		f := setupAPI(t)

		payload := createPayload(f, "", "draft")
		rec := f.do(t, http.MethodPost, "/api/v1/contents", payload, f.authorID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		body := decodeBody[map[string]string](t, rec)
		assert.Equal(t, "title is required", body["message"])
	})
}

func TestGetContentEndpoint(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Public Story", "published"), f.authorID)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[contentcore.Content](t, rec)

	t.Run("by slug anonymously", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents/public-story", nil, uuid.Nil)
		require.Equal(t, http.StatusOK, rec.Code)

		got := decodeBody[contentcore.Content](t, rec)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("unknown slug yields 404", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents/no-such-story", nil, uuid.Nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("draft hidden from anonymous but visible to its author", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Hidden Draft", "draft"), f.authorID)
		require.Equal(t, http.StatusCreated, rec.Code)
		draft := decodeBody[contentcore.Content](t, rec)

		rec = f.do(t, http.MethodGet, "/api/v1/contents/"+draft.ID.String(), nil, uuid.Nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/v1/contents/"+draft.ID.String(), nil, f.authorID)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("privacy key in query", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Members Only", "private"), f.authorID)
		require.Equal(t, http.StatusCreated, rec.Code)
		private := decodeBody[contentcore.Content](t, rec)
		require.NotEmpty(t, private.PrivacyKey)

		rec = f.do(t, http.MethodGet, "/api/v1/contents/members-only?key="+private.PrivacyKey, nil, uuid.Nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/v1/contents/members-only?key=wrong", nil, uuid.Nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListContentEndpoint(t *testing.T) {
	f := setupAPI(t)

	for i, status := range []string{"published", "published", "draft"} {
		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, fmt.Sprintf("Story %d", i), status), f.authorID)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	t.Run("anonymous sees only published", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents", nil, uuid.Nil)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decodeBody[contentcore.ContentPage](t, rec)
		assert.Len(t, page.Items, 2)
	})

	t.Run("authenticated sees drafts too", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents", nil, f.authorID)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decodeBody[contentcore.ContentPage](t, rec)
		assert.Len(t, page.Items, 3)
	})

	t.Run("status filter", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents?status=draft", nil, f.authorID)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decodeBody[contentcore.ContentPage](t, rec)
		assert.Len(t, page.Items, 1)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents?status=bogus", nil, uuid.Nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("pagination query", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/contents?page=1&limit=1", nil, uuid.Nil)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decodeBody[contentcore.ContentPage](t, rec)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, int64(2), page.Meta.TotalData)
	})
}

func TestUpdateContentEndpoint(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Original", "draft"), f.authorID)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[contentcore.Content](t, rec)

	t.Run("author can patch", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/contents/"+created.ID.String(), map[string]any{"title": "Renamed"}, f.authorID)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		updated := decodeBody[contentcore.Content](t, rec)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "renamed", updated.Slug)
	})

	t.Run("other user gets 403", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/contents/"+created.ID.String(), map[string]any{"title": "Hijacked"}, f.otherID)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin can patch", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/contents/"+created.ID.String(), map[string]any{"body": "edited"}, f.adminID)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := f.do(t, http.MethodPatch, "/api/v1/contents/not-a-uuid", map[string]any{"title": "X"}, f.authorID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteContentEndpoint(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Doomed", "draft"), f.authorID)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[contentcore.Content](t, rec)

	rec = f.do(t, http.MethodDelete, "/api/v1/contents/"+created.ID.String(), nil, f.otherID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/contents/"+created.ID.String(), nil, f.authorID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/contents/"+created.ID.String(), nil, f.authorID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkDeleteEndpoint(t *testing.T) {
	f := setupAPI(t)

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, fmt.Sprintf("Bulk %d", i), "draft"), f.authorID)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeBody[contentcore.Content](t, rec).ID)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/contents/bulk-delete", map[string]any{"ids": ids}, f.authorID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[map[string]int64](t, rec)
	assert.Equal(t, int64(2), body["deleted"])
}

func TestStatusSummaryEndpoint(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Counted", "published"), f.authorID)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/contents/summary/article", nil, f.adminID)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeBody[contentcore.StatusSummary](t, rec)
	assert.Equal(t, int64(1), summary.Counts[contentcore.StatusPublished])

	rec = f.do(t, http.MethodGet, "/api/v1/contents/summary/podcast", nil, f.adminID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	f := setupAPI(t)

	t.Run("create and fetch", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Tech Talks"}, f.adminID)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		created := decodeBody[contentcore.Category](t, rec)
		assert.Equal(t, "tech-talks", created.Slug)

		rec = f.do(t, http.MethodGet, "/api/v1/categories/tech-talks", nil, uuid.Nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("duplicate name", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/categories", map[string]any{"name": "news"}, f.adminID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/categories", nil, uuid.Nil)
		require.Equal(t, http.StatusOK, rec.Code)

		page := decodeBody[contentcore.CategoryPage](t, rec)
		assert.NotEmpty(t, page.Items)
	})

	t.Run("delete while in use", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/contents", createPayload(f, "Uses News", "draft"), f.authorID)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = f.do(t, http.MethodDelete, "/api/v1/categories/"+f.categoryID.String(), nil, f.adminID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
