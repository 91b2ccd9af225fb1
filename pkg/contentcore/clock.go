package contentcore

import "time"

// Clock abstracts wall-clock time so the published branch of
// ResolvePublishedAt stays testable with a fixed instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// ResolvePublishedAt maps a requested status plus an optional supplied
// date to the effective publishedAt value:
//
//   - published: the current time, discarding any supplied date
//   - scheduled: the supplied date, which is required
//   - unpublished, archived: nil, discarding any supplied date
//   - draft, private: the supplied date unchanged (may be nil)
func ResolvePublishedAt(clock Clock, status ContentStatus, supplied *time.Time) (*time.Time, error) {
	switch status {
	case StatusPublished:
		now := clock.Now()
		return &now, nil
	case StatusScheduled:
		if supplied == nil {
			return nil, Validationf("published date is required for scheduled posts")
		}
		return supplied, nil
	case StatusUnpublished, StatusArchived:
		return nil, nil
	default:
		return supplied, nil
	}
}
