package contentcore

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const relatedContentLimit = 5

// broadcastScanLimit bounds the candidate page for the upcoming/live
// views, which filter on broadcast dates after the listing query.
const broadcastScanLimit = 100

func (s *service) CreateContent(ctx context.Context, req CreateContentRequest) (*Content, error) {
	if !req.Type.Valid() {
		return nil, Validationf("content type %q is not valid", req.Type)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, Validationf("title is required")
	}
	status := req.Status
	if status == "" {
		status = StatusDraft
	}
	if !status.Valid() {
		return nil, Validationf("status %q is not valid", status)
	}

	if _, err := s.identity.GetUser(ctx, req.ActorID); err != nil {
		if IsNotFound(err) {
			return nil, Validationf("author is not valid")
		}
		return nil, err
	}
	if _, err := s.repo.GetCategoryByID(ctx, req.CategoryID); err != nil {
		if IsNotFound(err) {
			return nil, &NotFoundError{Resource: "category"}
		}
		return nil, err
	}

	tags, err := NormalizeTags(nil, req.Tags)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	publishedAt, err := ResolvePublishedAt(s.clock, status, req.PublishedAt)
	if err != nil {
		return nil, err
	}
	if status == StatusScheduled && publishedAt.Before(now) {
		return nil, Validationf("published date cannot be in the past")
	}

	content := &Content{
		ID:              uuid.New(),
		Type:            req.Type,
		Title:           req.Title,
		Slug:            Slugify(req.Title),
		Body:            req.Body,
		Status:          status,
		Tags:            tags,
		CategoryID:      req.CategoryID,
		AuthorID:        req.ActorID,
		PublishedAt:     publishedAt,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		MetaKeywords:    req.MetaKeywords,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if status == StatusPrivate {
		key, err := s.newKey()
		if err != nil {
			return nil, err
		}
		content.PrivacyKey = key
	}

	var contributors []Contributor
	switch req.Type {
	case TypeEvent:
		if req.Event == nil {
			return nil, Validationf("event dates are required")
		}
		if err := validateDateRange(req.Event.StartDate, req.Event.EndDate); err != nil {
			return nil, err
		}
		content.Event = &EventDetails{
			StartDate: req.Event.StartDate,
			EndDate:   req.Event.EndDate,
		}
	case TypeBroadcast:
		if req.Broadcast == nil {
			return nil, Validationf("broadcast details are required")
		}
		if err := validateDateRange(req.Broadcast.StartDate, req.Broadcast.EndDate); err != nil {
			return nil, err
		}
		content.Broadcast = &BroadcastDetails{
			VideoRef:  req.Broadcast.VideoRef,
			PollRef:   req.Broadcast.PollRef,
			StartDate: req.Broadcast.StartDate,
			EndDate:   req.Broadcast.EndDate,
		}
		if req.Broadcast.Assignment != nil {
			a := *req.Broadcast.Assignment
			if err := s.validateAssignment(ctx, a); err != nil {
				return nil, err
			}
			contributors = []Contributor{
				{UserID: a.SpeakerID, Role: RoleSpeaker},
				{UserID: a.ModeratorID, Role: RoleModerator},
			}
		}
	default:
		if req.Event != nil || req.Broadcast != nil {
			return nil, Validationf("articles cannot carry event or broadcast details")
		}
	}

	if req.Thumbnail != nil {
		if s.blobs == nil {
			return nil, Validationf("thumbnail storage is not configured")
		}
		content.ThumbnailKey = thumbnailObjectKey(content.ID, req.Thumbnail.FileName)
	}

	deriveMetadata(content)

	err = s.repo.InTx(ctx, func(tx Repository) error {
		if err := tx.CreateContent(ctx, content); err != nil {
			return err
		}
		if len(contributors) > 0 {
			return tx.AddContributors(ctx, content.ID, contributors)
		}
		return nil
	})
	if err != nil {
		return nil, &ContentError{ContentID: content.ID, Op: "create", Err: err}
	}
	if content.Broadcast != nil {
		content.Broadcast.Contributors = contributors
	}

	// The row commits before the asset goes out; a failed upload leaves
	// the item without a thumbnail rather than failing the create.
	if req.Thumbnail != nil {
		if err := s.blobs.Upload(ctx, content.ThumbnailKey, bytes.NewReader(req.Thumbnail.Data)); err != nil {
			s.logger.Warn().Err(err).
				Str("content_id", content.ID.String()).
				Str("object_key", content.ThumbnailKey).
				Msg("thumbnail upload failed, clearing reference")
			content.ThumbnailKey = ""
			if uerr := s.repo.UpdateContent(ctx, content); uerr != nil {
				s.logger.Warn().Err(uerr).
					Str("content_id", content.ID.String()).
					Msg("failed to clear thumbnail reference")
			}
		}
	}

	s.resolveThumbnail(ctx, content)
	return content, nil
}

func (s *service) UpdateContent(ctx context.Context, req UpdateContentRequest) (*Content, error) {
	actor, err := s.identity.GetUser(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}

	// Authorization always runs against a fresh row, never a cached or
	// caller-supplied author id.
	content, err := s.repo.GetContentByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := validateAuthor(actor, content); err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, Validationf("title is required")
		}
		content.Title = *req.Title
		content.Slug = Slugify(*req.Title)
	}
	if req.Body != nil {
		content.Body = *req.Body
	}
	if req.CategoryID != nil {
		if _, err := s.repo.GetCategoryByID(ctx, *req.CategoryID); err != nil {
			if IsNotFound(err) {
				return nil, &NotFoundError{Resource: "category"}
			}
			return nil, err
		}
		content.CategoryID = *req.CategoryID
	}
	if req.MetaTitle != nil {
		content.MetaTitle = *req.MetaTitle
	}
	if req.MetaDescription != nil {
		content.MetaDescription = *req.MetaDescription
	}
	if req.MetaKeywords != nil {
		content.MetaKeywords = *req.MetaKeywords
	}

	if len(req.Tags) > 0 {
		tags, err := NormalizeTags(content.Tags, req.Tags)
		if err != nil {
			return nil, err
		}
		content.Tags = tags
	}

	if req.Status != nil {
		status := *req.Status
		if !status.Valid() {
			return nil, Validationf("status %q is not valid", status)
		}
		supplied := req.PublishedAt
		if supplied == nil {
			supplied = content.PublishedAt
		}
		publishedAt, err := ResolvePublishedAt(s.clock, status, supplied)
		if err != nil {
			return nil, err
		}
		content.Status = status
		content.PublishedAt = publishedAt
		if status == StatusPrivate {
			key, err := s.newKey()
			if err != nil {
				return nil, err
			}
			content.PrivacyKey = key
		} else {
			content.PrivacyKey = ""
		}
	} else if req.PublishedAt != nil && content.Status == StatusScheduled {
		content.PublishedAt = req.PublishedAt
	}

	if req.Event != nil {
		if content.Event == nil {
			return nil, Validationf("event details are only valid for event content")
		}
		start := content.Event.StartDate
		end := content.Event.EndDate
		if req.Event.StartDate != nil {
			start = *req.Event.StartDate
		}
		if req.Event.EndDate != nil {
			end = *req.Event.EndDate
		}
		if err := validateDateRange(start, end); err != nil {
			return nil, err
		}
		content.Event.StartDate = start
		content.Event.EndDate = end
	}
	if req.Broadcast != nil {
		if content.Broadcast == nil {
			return nil, Validationf("broadcast details are only valid for broadcast content")
		}
		if req.Broadcast.VideoRef != nil {
			content.Broadcast.VideoRef = *req.Broadcast.VideoRef
		}
		if req.Broadcast.PollRef != nil {
			content.Broadcast.PollRef = *req.Broadcast.PollRef
		}
		start := content.Broadcast.StartDate
		end := content.Broadcast.EndDate
		if req.Broadcast.StartDate != nil {
			start = *req.Broadcast.StartDate
		}
		if req.Broadcast.EndDate != nil {
			end = *req.Broadcast.EndDate
		}
		if err := validateDateRange(start, end); err != nil {
			return nil, err
		}
		content.Broadcast.StartDate = start
		content.Broadcast.EndDate = end
		if req.Broadcast.Assignment != nil {
			if err := s.validateAssignment(ctx, *req.Broadcast.Assignment); err != nil {
				return nil, err
			}
		}
	}

	oldKey := content.ThumbnailKey
	if req.Thumbnail != nil {
		if s.blobs == nil {
			return nil, Validationf("thumbnail storage is not configured")
		}
		// The new asset goes out before the row commits; a failure here
		// keeps the old asset referenced and intact.
		newKey := thumbnailObjectKey(content.ID, req.Thumbnail.FileName)
		if err := s.blobs.Upload(ctx, newKey, bytes.NewReader(req.Thumbnail.Data)); err != nil {
			return nil, &ContentError{ContentID: content.ID, Op: "upload_thumbnail", Err: err}
		}
		content.ThumbnailKey = newKey
	}

	deriveMetadata(content)

	content.UpdatedAt = s.clock.Now()
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if err := tx.UpdateContent(ctx, content); err != nil {
			return err
		}
		if req.Broadcast != nil && req.Broadcast.Assignment != nil {
			return applyAssignment(ctx, tx, content.ID, *req.Broadcast.Assignment)
		}
		return nil
	})
	if err != nil {
		// The row never committed, so the freshly uploaded asset is an
		// orphan.
		if req.Thumbnail != nil && content.ThumbnailKey != oldKey {
			if derr := s.blobs.Delete(ctx, content.ThumbnailKey); derr != nil {
				s.logger.Warn().Err(derr).
					Str("content_id", content.ID.String()).
					Str("object_key", content.ThumbnailKey).
					Msg("failed to delete orphaned thumbnail")
			}
		}
		return nil, &ContentError{ContentID: content.ID, Op: "update", Err: err}
	}

	if req.Thumbnail != nil && oldKey != "" && oldKey != content.ThumbnailKey {
		if err := s.blobs.Delete(ctx, oldKey); err != nil {
			s.logger.Warn().Err(err).
				Str("content_id", content.ID.String()).
				Str("object_key", oldKey).
				Msg("failed to delete replaced thumbnail")
		}
	}

	if content.Broadcast != nil {
		contributors, err := s.repo.ListContributors(ctx, content.ID)
		if err != nil {
			return nil, err
		}
		content.Broadcast.Contributors = contributors
	}

	s.resolveThumbnail(ctx, content)
	return content, nil
}

func (s *service) DeleteContent(ctx context.Context, req DeleteContentRequest) error {
	actor, err := s.identity.GetUser(ctx, req.ActorID)
	if err != nil {
		return err
	}
	content, err := s.repo.GetContentByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if err := validateAuthor(actor, content); err != nil {
		return err
	}

	err = s.repo.InTx(ctx, func(tx Repository) error {
		return tx.DeleteContent(ctx, req.ID)
	})
	if err != nil {
		return &ContentError{ContentID: req.ID, Op: "delete", Err: err}
	}

	s.deleteThumbnail(ctx, content)
	return nil
}

func (s *service) BulkDeleteContent(ctx context.Context, req BulkDeleteContentRequest) (int64, error) {
	ids := dedupeIDs(req.IDs)
	if len(ids) == 0 {
		return 0, Validationf("no content ids were given")
	}

	actor, err := s.identity.GetUser(ctx, req.ActorID)
	if err != nil {
		return 0, err
	}
	var authorRestrict *uuid.UUID
	if actor.RoleName != RoleNameAdmin {
		authorRestrict = &req.ActorID
	}

	var deleted []*Content
	var count int64
	err = s.repo.InTx(ctx, func(tx Repository) error {
		rows, err := tx.ListContentByIDs(ctx, ids, authorRestrict)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return Validationf("one or more posts cannot be deleted")
		}
		count, err = tx.DeleteContentByIDs(ctx, ids)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, c := range deleted {
		s.deleteThumbnail(ctx, c)
	}
	return count, nil
}

func (s *service) GetContent(ctx context.Context, req GetContentRequest) (*Content, error) {
	if req.PrivacyKey != "" {
		content, err := s.repo.GetContentByPrivacyKey(ctx, req.PrivacyKey)
		if err != nil {
			if IsNotFound(err) {
				return nil, &NotFoundError{Resource: "post"}
			}
			return nil, err
		}
		// A key that selects a different item than the path names is as
		// good as no key.
		if req.IDOrSlug != "" && req.IDOrSlug != content.ID.String() && req.IDOrSlug != content.Slug {
			return nil, &NotFoundError{Resource: "post"}
		}
		s.resolveThumbnail(ctx, content)
		return content, nil
	}

	content, err := s.getByIDOrSlug(ctx, req.IDOrSlug)
	if err != nil {
		return nil, err
	}
	if !canView(content, req.Viewer, s.clock.Now()) {
		return nil, &NotFoundError{Resource: "post"}
	}
	s.resolveThumbnail(ctx, content)
	return content, nil
}

func (s *service) ListContent(ctx context.Context, req ListContentRequest) (*ContentPage, error) {
	filter := applyVisibility(req.Filter, req.Viewer, s.clock.Now())

	items, err := s.repo.ListContent(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountContent(ctx, filter)
	if err != nil {
		return nil, err
	}

	for _, c := range items {
		s.resolveThumbnail(ctx, c)
	}
	return &ContentPage{
		Items: items,
		Meta:  paginate(count, filter.Page, filter.Limit, len(items)),
	}, nil
}

func (s *service) ListRelatedContent(ctx context.Context, viewer Viewer, id uuid.UUID) ([]*Content, error) {
	content, err := s.repo.GetContentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(content, viewer, s.clock.Now()) {
		return nil, &NotFoundError{Resource: "post"}
	}

	filter := NewContentFilter(
		WithCategory(content.CategoryID.String()),
		WithExcludeID(id),
		WithSort(SortByPublishedAt, SortDesc),
		WithPage(1, relatedContentLimit),
	)
	// Related items are always the public view, whoever asks.
	filter = applyVisibility(filter, Viewer{}, s.clock.Now())

	related, err := s.repo.ListContent(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, c := range related {
		s.resolveThumbnail(ctx, c)
	}
	return related, nil
}

func (s *service) ListUpcomingBroadcasts(ctx context.Context) ([]*Content, error) {
	return s.listBroadcastsWhere(ctx, func(b *BroadcastDetails) bool {
		return b.StartDate.After(s.clock.Now())
	}, true)
}

func (s *service) ListLiveBroadcasts(ctx context.Context) ([]*Content, error) {
	return s.listBroadcastsWhere(ctx, func(b *BroadcastDetails) bool {
		now := s.clock.Now()
		return !b.StartDate.After(now) && !b.EndDate.Before(now)
	}, false)
}

// listBroadcastsWhere lists public broadcasts passing the date predicate.
func (s *service) listBroadcastsWhere(ctx context.Context, keep func(*BroadcastDetails) bool, ascending bool) ([]*Content, error) {
	filter := NewContentFilter(
		WithType(TypeBroadcast),
		WithSort(SortByPublishedAt, SortDesc),
		WithPage(1, broadcastScanLimit),
	)
	filter = applyVisibility(filter, Viewer{}, s.clock.Now())

	candidates, err := s.repo.ListContent(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*Content, 0, len(candidates))
	for _, c := range candidates {
		if c.Broadcast == nil || !keep(c.Broadcast) {
			continue
		}
		s.resolveThumbnail(ctx, c)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Broadcast.StartDate.Before(out[j].Broadcast.StartDate)
		}
		return out[j].Broadcast.StartDate.Before(out[i].Broadcast.StartDate)
	})
	return out, nil
}

func (s *service) ContentStatusSummary(ctx context.Context, contentType ContentType) (*StatusSummary, error) {
	if !contentType.Valid() {
		return nil, Validationf("content type %q is not valid", contentType)
	}
	counts, err := s.repo.CountContentByStatus(ctx, contentType)
	if err != nil {
		return nil, err
	}

	summary := &StatusSummary{Counts: make(map[ContentStatus]int64, 6)}
	for _, status := range []ContentStatus{
		StatusDraft, StatusPublished, StatusUnpublished,
		StatusScheduled, StatusPrivate, StatusArchived,
	} {
		n := counts[status]
		summary.Counts[status] = n
		summary.Total += n
	}
	return summary, nil
}

func (s *service) getByIDOrSlug(ctx context.Context, idOrSlug string) (*Content, error) {
	if idOrSlug == "" {
		return nil, Validationf("content id or slug is required")
	}
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.repo.GetContentByID(ctx, id)
	}
	return s.repo.GetContentBySlug(ctx, idOrSlug)
}

// validateAuthor authorizes a mutation of content against its stored
// author. Admins bypass ownership.
func validateAuthor(actor *User, content *Content) error {
	if actor.RoleName == RoleNameAdmin {
		return nil
	}
	if actor.ID != content.AuthorID {
		return &ForbiddenError{Msg: "you are not allowed to modify this post"}
	}
	return nil
}

func validateDateRange(start, end time.Time) error {
	if !start.Before(end) {
		return Validationf("start date must be before end date")
	}
	return nil
}

func (s *service) validateAssignment(ctx context.Context, a ContributorAssignment) error {
	if a.SpeakerID == a.ModeratorID {
		return Validationf("speaker and moderator must be different users")
	}
	speaker, err := s.identity.GetUser(ctx, a.SpeakerID)
	if err != nil {
		if IsNotFound(err) {
			return &NotFoundError{Resource: "speaker"}
		}
		return err
	}
	if speaker.RoleName != RoleNameSpeaker {
		return Validationf("user is not a speaker")
	}
	moderator, err := s.identity.GetUser(ctx, a.ModeratorID)
	if err != nil {
		if IsNotFound(err) {
			return &NotFoundError{Resource: "moderator"}
		}
		return err
	}
	if moderator.RoleName == RoleNameSpeaker {
		return Validationf("moderator cannot hold the speaker role")
	}
	return nil
}

func (s *service) resolveThumbnail(ctx context.Context, c *Content) {
	if s.blobs == nil || c.ThumbnailKey == "" {
		return
	}
	url, err := s.blobs.GetDownloadURL(ctx, c.ThumbnailKey)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("content_id", c.ID.String()).
			Str("object_key", c.ThumbnailKey).
			Msg("failed to resolve thumbnail url")
		return
	}
	c.ThumbnailURL = url
}

func (s *service) deleteThumbnail(ctx context.Context, c *Content) {
	if s.blobs == nil || c.ThumbnailKey == "" {
		return
	}
	if err := s.blobs.Delete(ctx, c.ThumbnailKey); err != nil {
		s.logger.Warn().Err(err).
			Str("content_id", c.ID.String()).
			Str("object_key", c.ThumbnailKey).
			Msg("failed to delete thumbnail")
	}
}

// metaDescriptionLimit caps the derived meta description length.
const metaDescriptionLimit = 160

// deriveMetadata fills empty SEO fields from the content itself once
// both title and body are present. Explicitly supplied values are never
// overwritten.
func deriveMetadata(c *Content) {
	if c.Title == "" || c.Body == "" {
		return
	}
	if c.MetaTitle == "" {
		c.MetaTitle = c.Title
	}
	if c.MetaDescription == "" {
		c.MetaDescription = truncateRunes(c.Body, metaDescriptionLimit)
	}
	if c.MetaKeywords == "" && len(c.Tags) > 0 {
		c.MetaKeywords = strings.Join(c.Tags, ",")
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// thumbnailObjectKey mints a fresh key per upload. The random segment
// keeps a replacement from overwriting the asset it replaces, so the
// old bytes survive a failed row update.
func thumbnailObjectKey(id uuid.UUID, fileName string) string {
	return "thumbnails/" + id.String() + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
