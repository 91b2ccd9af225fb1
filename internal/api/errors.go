package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/streamhive/content-core/pkg/contentcore"
)

type errorResponse struct {
	Message string `json:"message"`
}

// writeError maps the domain error taxonomy onto HTTP status codes.
// Unclassified errors surface as 500 without leaking details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case contentcore.IsValidation(err):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Message: err.Error()})
	case contentcore.IsNotFound(err):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Message: err.Error()})
	case contentcore.IsForbidden(err):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, errorResponse{Message: err.Error()})
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Message: "internal server error"})
	}
}
