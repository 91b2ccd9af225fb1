package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhive/content-core/pkg/contentcore"
	"github.com/streamhive/content-core/pkg/contentcore/repo/memory"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newContent(title, slug string, mutate ...func(*contentcore.Content)) *contentcore.Content {
	c := &contentcore.Content{
		ID:         uuid.New(),
		Type:       contentcore.TypeArticle,
		Title:      title,
		Slug:       slug,
		Status:     contentcore.StatusPublished,
		CategoryID: uuid.New(),
		AuthorID:   uuid.New(),
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
	for _, fn := range mutate {
		fn(c)
	}
	return c
}

func TestContentCRUD(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	content := newContent("Hello", "hello")
	require.NoError(t, repo.CreateContent(ctx, content))

	t.Run("get by id and slug", func(t *testing.T) {
		got, err := repo.GetContentByID(ctx, content.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", got.Title)

		got, err = repo.GetContentBySlug(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, content.ID, got.ID)
	})

	t.Run("duplicate slug on create", func(t *testing.T) {
		err := repo.CreateContent(ctx, newContent("Hello Again", "hello"))
		require.Error(t, err)
		assert.True(t, contentcore.IsValidation(err))
	})

	t.Run("duplicate slug on update", func(t *testing.T) {
		other := newContent("Other", "other")
		require.NoError(t, repo.CreateContent(ctx, other))

		other.Slug = "hello"
		err := repo.UpdateContent(ctx, other)
		require.Error(t, err)
		assert.True(t, contentcore.IsValidation(err))
	})

	t.Run("stored rows are isolated from caller mutation", func(t *testing.T) {
		got, err := repo.GetContentByID(ctx, content.ID)
		require.NoError(t, err)
		got.Title = "Mutated"

		again, err := repo.GetContentByID(ctx, content.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", again.Title)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteContent(ctx, content.ID))

		_, err := repo.GetContentByID(ctx, content.ID)
		assert.True(t, contentcore.IsNotFound(err))

		err = repo.DeleteContent(ctx, content.ID)
		assert.True(t, contentcore.IsNotFound(err))
	})
}

func TestGetContentByPrivacyKey(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	private := newContent("Secret", "secret", func(c *contentcore.Content) {
		c.Status = contentcore.StatusPrivate
		c.PrivacyKey = "abc12345"
	})
	require.NoError(t, repo.CreateContent(ctx, private))
	require.NoError(t, repo.CreateContent(ctx, newContent("Open", "open")))

	got, err := repo.GetContentByPrivacyKey(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, private.ID, got.ID)

	// An empty key never matches rows without one.
	_, err = repo.GetContentByPrivacyKey(ctx, "")
	assert.True(t, contentcore.IsNotFound(err))
}

func TestInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit keeps writes", func(t *testing.T) {
		repo := memory.New()
		content := newContent("Committed", "committed")

		err := repo.InTx(ctx, func(tx contentcore.Repository) error {
			return tx.CreateContent(ctx, content)
		})
		require.NoError(t, err)

		_, err = repo.GetContentByID(ctx, content.ID)
		assert.NoError(t, err)
	})

	t.Run("error rolls back every write", func(t *testing.T) {
		repo := memory.New()
		existing := newContent("Existing", "existing")
		require.NoError(t, repo.CreateContent(ctx, existing))

		boom := errors.New("boom")
		err := repo.InTx(ctx, func(tx contentcore.Repository) error {
			if err := tx.CreateContent(ctx, newContent("Partial", "partial")); err != nil {
				return err
			}
			if err := tx.DeleteContent(ctx, existing.ID); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = repo.GetContentBySlug(ctx, "partial")
		assert.True(t, contentcore.IsNotFound(err))
		_, err = repo.GetContentByID(ctx, existing.ID)
		assert.NoError(t, err)
	})

	t.Run("nested transactions reuse the outer snapshot", func(t *testing.T) {
		repo := memory.New()
		content := newContent("Nested", "nested")

		err := repo.InTx(ctx, func(tx contentcore.Repository) error {
			return tx.InTx(ctx, func(inner contentcore.Repository) error {
				return inner.CreateContent(ctx, content)
			})
		})
		require.NoError(t, err)

		_, err = repo.GetContentByID(ctx, content.ID)
		assert.NoError(t, err)
	})
}

func TestListContentFiltering(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	categoryID := uuid.New()
	require.NoError(t, repo.CreateCategory(ctx, &contentcore.Category{
		ID:   categoryID,
		Name: "Engineering",
		Slug: "engineering",
	}))

	published := baseTime.Add(-time.Hour)
	require.NoError(t, repo.CreateContent(ctx, newContent("Go Tips", "go-tips", func(c *contentcore.Content) {
		c.CategoryID = categoryID
		c.Tags = []string{"go", "tips"}
		c.PublishedAt = &published
	})))
	require.NoError(t, repo.CreateContent(ctx, newContent("Draft Notes", "draft-notes", func(c *contentcore.Content) {
		c.Status = contentcore.StatusDraft
	})))
	require.NoError(t, repo.CreateContent(ctx, newContent("Launch Event", "launch-event", func(c *contentcore.Content) {
		c.Type = contentcore.TypeEvent
	})))

	list := func(t *testing.T, opts ...contentcore.FilterOption) []*contentcore.Content {
		t.Helper()
		items, err := repo.ListContent(ctx, contentcore.NewContentFilter(opts...))
		require.NoError(t, err)
		return items
	}

	t.Run("no status predicate returns everything", func(t *testing.T) {
		assert.Len(t, list(t), 3)
	})

	t.Run("empty status set matches nothing", func(t *testing.T) {
		f := contentcore.NewContentFilter()
		f.Statuses = []contentcore.ContentStatus{}

		items, err := repo.ListContent(ctx, f)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("status predicate", func(t *testing.T) {
		items := list(t, contentcore.WithStatuses(contentcore.StatusDraft))
		require.Len(t, items, 1)
		assert.Equal(t, "Draft Notes", items[0].Title)
	})

	t.Run("published before excludes dateless rows", func(t *testing.T) {
		items := list(t, contentcore.WithPublishedBefore(baseTime))
		require.Len(t, items, 1)
		assert.Equal(t, "Go Tips", items[0].Title)
	})

	t.Run("title substring is case-insensitive", func(t *testing.T) {
		items := list(t, contentcore.WithTitle("go t"))
		require.Len(t, items, 1)
		assert.Equal(t, "Go Tips", items[0].Title)
	})

	t.Run("tag overlap", func(t *testing.T) {
		items := list(t, contentcore.WithTags("TIPS", "missing"))
		require.Len(t, items, 1)
		assert.Equal(t, "Go Tips", items[0].Title)
	})

	t.Run("type predicate", func(t *testing.T) {
		items := list(t, contentcore.WithType(contentcore.TypeEvent))
		require.Len(t, items, 1)
		assert.Equal(t, "Launch Event", items[0].Title)
	})

	t.Run("category by id, slug and name fragment", func(t *testing.T) {
		for _, selector := range []string{categoryID.String(), "engineering", "Engin"} {
			items := list(t, contentcore.WithCategory(selector))
			require.Len(t, items, 1, "selector %q", selector)
			assert.Equal(t, "Go Tips", items[0].Title)
		}
	})

	t.Run("exclude id", func(t *testing.T) {
		items := list(t)
		require.NotEmpty(t, items)
		excluded := items[0].ID

		for _, c := range list(t, contentcore.WithExcludeID(excluded)) {
			assert.NotEqual(t, excluded, c.ID)
		}
	})

	t.Run("count agrees with list", func(t *testing.T) {
		count, err := repo.CountContent(ctx, contentcore.NewContentFilter(contentcore.WithType(contentcore.TypeArticle)))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestListContentSorting(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	early := baseTime.Add(-2 * time.Hour)
	late := baseTime.Add(-time.Hour)

	require.NoError(t, repo.CreateContent(ctx, newContent("Early", "early", func(c *contentcore.Content) {
		c.PublishedAt = &early
	})))
	require.NoError(t, repo.CreateContent(ctx, newContent("Late", "late", func(c *contentcore.Content) {
		c.PublishedAt = &late
	})))
	require.NoError(t, repo.CreateContent(ctx, newContent("Dateless", "dateless", func(c *contentcore.Content) {
		c.Status = contentcore.StatusDraft
	})))

	titles := func(t *testing.T, dir contentcore.SortDirection) []string {
		t.Helper()
		items, err := repo.ListContent(ctx, contentcore.NewContentFilter(
			contentcore.WithSort(contentcore.SortByPublishedAt, dir),
		))
		require.NoError(t, err)
		out := make([]string, len(items))
		for i, c := range items {
			out[i] = c.Title
		}
		return out
	}

	assert.Equal(t, []string{"Early", "Late", "Dateless"}, titles(t, contentcore.SortAsc))
	assert.Equal(t, []string{"Late", "Early", "Dateless"}, titles(t, contentcore.SortDesc))
}

func TestListContentPagination(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	for i := 0; i < 5; i++ {
		created := baseTime.Add(time.Duration(i) * time.Minute)
		c := newContent("Post "+string(rune('A'+i)), "post-"+string(rune('a'+i)), func(c *contentcore.Content) {
			c.CreatedAt = created
		})
		require.NoError(t, repo.CreateContent(ctx, c))
	}

	items, err := repo.ListContent(ctx, contentcore.NewContentFilter(
		contentcore.WithSort(contentcore.SortByCreatedAt, contentcore.SortAsc),
		contentcore.WithPage(2, 2),
	))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Post C", items[0].Title)
	assert.Equal(t, "Post D", items[1].Title)

	items, err = repo.ListContent(ctx, contentcore.NewContentFilter(contentcore.WithPage(9, 10)))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestBulkOperations(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	author := uuid.New()
	mine := newContent("Mine", "mine", func(c *contentcore.Content) { c.AuthorID = author })
	theirs := newContent("Theirs", "theirs")
	require.NoError(t, repo.CreateContent(ctx, mine))
	require.NoError(t, repo.CreateContent(ctx, theirs))

	t.Run("list by ids with author restriction", func(t *testing.T) {
		rows, err := repo.ListContentByIDs(ctx, []uuid.UUID{mine.ID, theirs.ID}, &author)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, mine.ID, rows[0].ID)
	})

	t.Run("list by ids without restriction", func(t *testing.T) {
		rows, err := repo.ListContentByIDs(ctx, []uuid.UUID{mine.ID, theirs.ID, uuid.New()}, nil)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("delete by ids reports affected rows", func(t *testing.T) {
		count, err := repo.DeleteContentByIDs(ctx, []uuid.UUID{mine.ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = repo.GetContentByID(ctx, mine.ID)
		assert.True(t, contentcore.IsNotFound(err))
	})
}

func TestCountContentByStatus(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	require.NoError(t, repo.CreateContent(ctx, newContent("A", "a")))
	require.NoError(t, repo.CreateContent(ctx, newContent("B", "b", func(c *contentcore.Content) {
		c.Status = contentcore.StatusDraft
	})))
	require.NoError(t, repo.CreateContent(ctx, newContent("C", "c", func(c *contentcore.Content) {
		c.Type = contentcore.TypeEvent
	})))

	counts, err := repo.CountContentByStatus(ctx, contentcore.TypeArticle)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[contentcore.StatusPublished])
	assert.Equal(t, int64(1), counts[contentcore.StatusDraft])
	assert.NotContains(t, counts, contentcore.StatusArchived)
}

func TestContributors(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	speaker := uuid.New()
	moderator := uuid.New()
	broadcast := newContent("Stream", "stream", func(c *contentcore.Content) {
		c.Type = contentcore.TypeBroadcast
		c.Broadcast = &contentcore.BroadcastDetails{
			VideoRef:  "vid",
			StartDate: baseTime,
			EndDate:   baseTime.Add(time.Hour),
		}
	})
	require.NoError(t, repo.CreateContent(ctx, broadcast))
	require.NoError(t, repo.AddContributors(ctx, broadcast.ID, []contentcore.Contributor{
		{UserID: speaker, Role: contentcore.RoleSpeaker},
		{UserID: moderator, Role: contentcore.RoleModerator},
	}))

	t.Run("duplicate user is rejected", func(t *testing.T) {
		err := repo.AddContributors(ctx, broadcast.ID, []contentcore.Contributor{
			{UserID: speaker, Role: contentcore.RoleHost},
		})
		require.Error(t, err)
		assert.True(t, contentcore.IsValidation(err))
	})

	t.Run("broadcast rows carry their contributors", func(t *testing.T) {
		got, err := repo.GetContentByID(ctx, broadcast.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Broadcast)
		assert.Len(t, got.Broadcast.Contributors, 2)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, repo.RemoveContributors(ctx, broadcast.ID, []uuid.UUID{speaker}))

		left, err := repo.ListContributors(ctx, broadcast.ID)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, moderator, left[0].UserID)
	})

	t.Run("deleting content drops its contributors", func(t *testing.T) {
		require.NoError(t, repo.DeleteContent(ctx, broadcast.ID))

		left, err := repo.ListContributors(ctx, broadcast.ID)
		require.NoError(t, err)
		assert.Empty(t, left)
	})
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	category := &contentcore.Category{ID: uuid.New(), Name: "Engineering", Slug: "engineering"}
	require.NoError(t, repo.CreateCategory(ctx, category))

	t.Run("name uniqueness ignores case", func(t *testing.T) {
		err := repo.CreateCategory(ctx, &contentcore.Category{ID: uuid.New(), Name: "ENGINEERING", Slug: "engineering-2"})
		require.Error(t, err)
		assert.True(t, contentcore.IsValidation(err))
	})

	t.Run("get by slug", func(t *testing.T) {
		got, err := repo.GetCategoryBySlug(ctx, "engineering")
		require.NoError(t, err)
		assert.Equal(t, category.ID, got.ID)
	})

	t.Run("delete refused while referenced", func(t *testing.T) {
		content := newContent("Uses Category", "uses-category", func(c *contentcore.Content) {
			c.CategoryID = category.ID
		})
		require.NoError(t, repo.CreateContent(ctx, content))

		err := repo.DeleteCategory(ctx, category.ID)
		require.Error(t, err)
		assert.True(t, contentcore.IsValidation(err))

		require.NoError(t, repo.DeleteContent(ctx, content.ID))
		require.NoError(t, repo.DeleteCategory(ctx, category.ID))
	})

	t.Run("list with name filter and paging", func(t *testing.T) {
		for _, name := range []string{"Design", "DevOps", "Data"} {
			require.NoError(t, repo.CreateCategory(ctx, &contentcore.Category{
				ID:   uuid.New(),
				Name: name,
				Slug: contentcore.Slugify(name),
			}))
		}

		items, count, err := repo.ListCategories(ctx, contentcore.CategoryFilter{Name: "de", Page: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		require.Len(t, items, 1)
		assert.Equal(t, "Design", items[0].Name)
	})
}
