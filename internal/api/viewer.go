package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// Identity headers set by the upstream gateway after token validation.
const (
	headerUserID   = "X-User-Id"
	headerUserRole = "X-User-Role"
)

// viewerFromRequest builds the read-side viewer. A missing or malformed
// user id header yields an anonymous viewer.
func viewerFromRequest(r *http.Request) contentcore.Viewer {
	raw := r.Header.Get(headerUserID)
	if raw == "" {
		return contentcore.Viewer{}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return contentcore.Viewer{}
	}
	return contentcore.Viewer{
		UserID:        id,
		Role:          r.Header.Get(headerUserRole),
		Authenticated: true,
	}
}

// actorFromRequest extracts the acting user for mutations.
func actorFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(headerUserID)
	if raw == "" {
		return uuid.Nil, contentcore.Validationf("user identity is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, contentcore.Validationf("user identity is not valid")
	}
	return id, nil
}
