package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// maxThumbnailBytes caps thumbnail uploads at 8 MiB.
const maxThumbnailBytes = 8 << 20

// ContentHandler handles HTTP requests for content.
type ContentHandler struct {
	svc contentcore.Service
}

// NewContentHandler creates a new content handler.
func NewContentHandler(svc contentcore.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// Routes returns the routes for content.
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateContent)
	r.Get("/", h.ListContent)
	r.Post("/bulk-delete", h.BulkDeleteContent)
	r.Get("/broadcasts/upcoming", h.ListUpcomingBroadcasts)
	r.Get("/broadcasts/live", h.ListLiveBroadcasts)
	r.Get("/summary/{type}", h.StatusSummary)

	r.Get("/{idOrSlug}", h.GetContent)
	r.Patch("/{id}", h.UpdateContent)
	r.Delete("/{id}", h.DeleteContent)
	r.Get("/{id}/related", h.ListRelated)
	r.Put("/{id}/contributors", h.ReconcileContributors)

	return r
}

type eventPayload struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type broadcastPayload struct {
	VideoRef    *string    `json:"video_ref"`
	PollRef     *string    `json:"poll_ref"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	SpeakerID   *uuid.UUID `json:"speaker_id"`
	ModeratorID *uuid.UUID `json:"moderator_id"`
}

type contentPayload struct {
	Type            string            `json:"type"`
	Title           *string           `json:"title"`
	Body            *string           `json:"body"`
	CategoryID      *uuid.UUID        `json:"category_id"`
	Status          *string           `json:"status"`
	PublishedAt     *time.Time        `json:"published_at"`
	Tags            []string          `json:"tags"`
	MetaTitle       *string           `json:"meta_title"`
	MetaDescription *string           `json:"meta_description"`
	MetaKeywords    *string           `json:"meta_keywords"`
	Event           *eventPayload     `json:"event"`
	Broadcast       *broadcastPayload `json:"broadcast"`
}

// decodePayload reads the content payload from either a JSON body or the
// "data" part of a multipart form carrying a "thumbnail" file.
func decodePayload(r *http.Request) (*contentPayload, *contentcore.ThumbnailUpload, error) {
	var payload contentPayload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxThumbnailBytes); err != nil {
			return nil, nil, contentcore.Validationf("invalid multipart form")
		}
		if err := json.Unmarshal([]byte(r.FormValue("data")), &payload); err != nil {
			return nil, nil, contentcore.Validationf("invalid payload")
		}

		file, header, err := r.FormFile("thumbnail")
		if err == http.ErrMissingFile {
			return &payload, nil, nil
		}
		if err != nil {
			return nil, nil, contentcore.Validationf("invalid thumbnail upload")
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxThumbnailBytes))
		if err != nil {
			return nil, nil, contentcore.Validationf("failed to read thumbnail")
		}
		return &payload, &contentcore.ThumbnailUpload{FileName: header.Filename, Data: data}, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, nil, contentcore.Validationf("invalid payload")
	}
	return &payload, nil, nil
}

// CreateContent creates a new content item.
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload, thumbnail, err := decodePayload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := contentcore.CreateContentRequest{
		ActorID:     actorID,
		Type:        contentcore.ContentType(payload.Type),
		Tags:        payload.Tags,
		PublishedAt: payload.PublishedAt,
		Thumbnail:   thumbnail,
	}
	if payload.Title != nil {
		req.Title = *payload.Title
	}
	if payload.Body != nil {
		req.Body = *payload.Body
	}
	if payload.CategoryID != nil {
		req.CategoryID = *payload.CategoryID
	}
	if payload.Status != nil {
		req.Status = contentcore.ContentStatus(*payload.Status)
	}
	if payload.MetaTitle != nil {
		req.MetaTitle = *payload.MetaTitle
	}
	if payload.MetaDescription != nil {
		req.MetaDescription = *payload.MetaDescription
	}
	if payload.MetaKeywords != nil {
		req.MetaKeywords = *payload.MetaKeywords
	}
	if payload.Event != nil {
		if payload.Event.StartDate == nil || payload.Event.EndDate == nil {
			writeError(w, r, contentcore.Validationf("event dates are required"))
			return
		}
		req.Event = &contentcore.EventInput{
			StartDate: *payload.Event.StartDate,
			EndDate:   *payload.Event.EndDate,
		}
	}
	if payload.Broadcast != nil {
		b := payload.Broadcast
		if b.StartDate == nil || b.EndDate == nil {
			writeError(w, r, contentcore.Validationf("broadcast dates are required"))
			return
		}
		input := &contentcore.BroadcastInput{
			StartDate: *b.StartDate,
			EndDate:   *b.EndDate,
		}
		if b.VideoRef != nil {
			input.VideoRef = *b.VideoRef
		}
		if b.PollRef != nil {
			input.PollRef = *b.PollRef
		}
		if b.SpeakerID != nil && b.ModeratorID != nil {
			input.Assignment = &contentcore.ContributorAssignment{
				SpeakerID:   *b.SpeakerID,
				ModeratorID: *b.ModeratorID,
			}
		}
		req.Broadcast = input
	}

	content, err := h.svc.CreateContent(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, content)
}

// GetContent retrieves one item by id or slug. A "key" query parameter
// switches to the privacy-key lookup.
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.svc.GetContent(r.Context(), contentcore.GetContentRequest{
		Viewer:     viewerFromRequest(r),
		IDOrSlug:   chi.URLParam(r, "idOrSlug"),
		PrivacyKey: r.URL.Query().Get("key"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// ListContent lists a page of content under the caller's visibility.
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.svc.ListContent(r.Context(), contentcore.ListContentRequest{
		Viewer: viewerFromRequest(r),
		Filter: filter,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

func filterFromQuery(r *http.Request) (contentcore.ContentFilter, error) {
	q := r.URL.Query()
	var opts []contentcore.FilterOption

	if v := q.Get("title"); v != "" {
		opts = append(opts, contentcore.WithTitle(v))
	}
	if v := q.Get("status"); v != "" {
		var statuses []contentcore.ContentStatus
		for _, s := range strings.Split(v, ",") {
			status := contentcore.ContentStatus(strings.TrimSpace(s))
			if !status.Valid() {
				return contentcore.ContentFilter{}, contentcore.Validationf("status %q is not valid", status)
			}
			statuses = append(statuses, status)
		}
		opts = append(opts, contentcore.WithStatuses(statuses...))
	}
	if v := q.Get("tags"); v != "" {
		opts = append(opts, contentcore.WithTags(strings.Split(v, ",")...))
	}
	if v := q.Get("type"); v != "" {
		contentType := contentcore.ContentType(v)
		if !contentType.Valid() {
			return contentcore.ContentFilter{}, contentcore.Validationf("content type %q is not valid", contentType)
		}
		opts = append(opts, contentcore.WithType(contentType))
	}
	if v := q.Get("category"); v != "" {
		opts = append(opts, contentcore.WithCategory(v))
	}
	if v := q.Get("sort_by"); v != "" {
		opts = append(opts, contentcore.WithSort(v, contentcore.SortDirection(q.Get("sort_dir"))))
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	opts = append(opts, contentcore.WithPage(page, limit))

	return contentcore.NewContentFilter(opts...), nil
}

// UpdateContent applies a partial update to one item.
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, contentcore.Validationf("content id is not valid"))
		return
	}
	payload, thumbnail, err := decodePayload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := contentcore.UpdateContentRequest{
		ActorID:         actorID,
		ID:              id,
		Title:           payload.Title,
		Body:            payload.Body,
		CategoryID:      payload.CategoryID,
		PublishedAt:     payload.PublishedAt,
		Tags:            payload.Tags,
		MetaTitle:       payload.MetaTitle,
		MetaDescription: payload.MetaDescription,
		MetaKeywords:    payload.MetaKeywords,
		Thumbnail:       thumbnail,
	}
	if payload.Status != nil {
		status := contentcore.ContentStatus(*payload.Status)
		req.Status = &status
	}
	if payload.Event != nil {
		req.Event = &contentcore.EventUpdate{
			StartDate: payload.Event.StartDate,
			EndDate:   payload.Event.EndDate,
		}
	}
	if payload.Broadcast != nil {
		update := &contentcore.BroadcastUpdate{
			VideoRef:  payload.Broadcast.VideoRef,
			PollRef:   payload.Broadcast.PollRef,
			StartDate: payload.Broadcast.StartDate,
			EndDate:   payload.Broadcast.EndDate,
		}
		if payload.Broadcast.SpeakerID != nil && payload.Broadcast.ModeratorID != nil {
			update.Assignment = &contentcore.ContributorAssignment{
				SpeakerID:   *payload.Broadcast.SpeakerID,
				ModeratorID: *payload.Broadcast.ModeratorID,
			}
		}
		req.Broadcast = update
	}

	content, err := h.svc.UpdateContent(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// DeleteContent removes one item.
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, contentcore.Validationf("content id is not valid"))
		return
	}

	if err := h.svc.DeleteContent(r.Context(), contentcore.DeleteContentRequest{
		ActorID: actorID,
		ID:      id,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type bulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// BulkDeleteContent removes several items in one transaction.
func (h *ContentHandler) BulkDeleteContent(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, contentcore.Validationf("invalid payload"))
		return
	}

	count, err := h.svc.BulkDeleteContent(r.Context(), contentcore.BulkDeleteContentRequest{
		ActorID: actorID,
		IDs:     req.IDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, bulkDeleteResponse{Deleted: count})
}

type reconcileRequest struct {
	SpeakerID   uuid.UUID `json:"speaker_id"`
	ModeratorID uuid.UUID `json:"moderator_id"`
}

// ReconcileContributors reassigns the speaker and moderator of a
// broadcast.
func (h *ContentHandler) ReconcileContributors(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, contentcore.Validationf("content id is not valid"))
		return
	}
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, contentcore.Validationf("invalid payload"))
		return
	}

	contributors, err := h.svc.ReconcileBroadcastContributors(r.Context(), contentcore.ReconcileBroadcastRequest{
		ActorID:     actorID,
		ContentID:   id,
		SpeakerID:   req.SpeakerID,
		ModeratorID: req.ModeratorID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, contributors)
}

// ListRelated lists public items sharing the category of the given one.
func (h *ContentHandler) ListRelated(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, contentcore.Validationf("content id is not valid"))
		return
	}

	related, err := h.svc.ListRelatedContent(r.Context(), viewerFromRequest(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, related)
}

// ListUpcomingBroadcasts lists public broadcasts that have not started.
func (h *ContentHandler) ListUpcomingBroadcasts(w http.ResponseWriter, r *http.Request) {
	broadcasts, err := h.svc.ListUpcomingBroadcasts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, broadcasts)
}

// ListLiveBroadcasts lists public broadcasts currently on air.
func (h *ContentHandler) ListLiveBroadcasts(w http.ResponseWriter, r *http.Request) {
	broadcasts, err := h.svc.ListLiveBroadcasts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, broadcasts)
}

// StatusSummary tallies items per status for one content type.
func (h *ContentHandler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.ContentStatusSummary(r.Context(), contentcore.ContentType(chi.URLParam(r, "type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}
