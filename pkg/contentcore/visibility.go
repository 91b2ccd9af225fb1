package contentcore

import (
	"time"

	"github.com/google/uuid"
)

// Viewer identifies the caller of a read operation. The zero value is an
// anonymous viewer.
type Viewer struct {
	UserID        uuid.UUID
	Role          string
	Authenticated bool
}

// IsAdmin reports whether the viewer holds the admin role.
func (v Viewer) IsAdmin() bool {
	return v.Authenticated && v.Role == RoleNameAdmin
}

// publicStatuses are the only statuses an anonymous viewer may see.
// Private items are additionally unreachable through listings entirely;
// they require the dedicated privacy-key lookup.
var publicStatuses = []ContentStatus{StatusPublished, StatusScheduled}

// applyVisibility merges the viewer's visibility predicate into a listing
// filter. Authenticated viewers (owners and admins) list regardless of
// status, restricted only by the filter's own predicates. Anonymous
// viewers are restricted to public statuses with a non-null, non-future
// publishedAt.
func applyVisibility(f ContentFilter, v Viewer, now time.Time) ContentFilter {
	if v.Authenticated {
		return f
	}

	if f.Statuses == nil {
		f.Statuses = append([]ContentStatus(nil), publicStatuses...)
	} else {
		// Intersect the requested set with the public one. The result
		// stays non-nil so an empty intersection matches nothing.
		allowed := make([]ContentStatus, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			if isPublicStatus(s) {
				allowed = append(allowed, s)
			}
		}
		f.Statuses = allowed
	}
	f.PublishedBefore = &now

	return f
}

// canView decides whether a single item is readable by the viewer. The
// privacy-key lookup in GetContent bypasses this check.
func canView(c *Content, v Viewer, now time.Time) bool {
	if v.Authenticated {
		return true
	}
	if !isPublicStatus(c.Status) {
		return false
	}
	return c.PublishedAt != nil && !c.PublishedAt.After(now)
}

func isPublicStatus(s ContentStatus) bool {
	for _, pub := range publicStatuses {
		if s == pub {
			return true
		}
	}
	return false
}
