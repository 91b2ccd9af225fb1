package contentcore

import "strings"

// Slugify derives a slug from a title: lowercase, spaces to hyphens.
// Non-ASCII runes and punctuation pass through unchanged; the transform
// is lossy by contract and uniqueness is not guaranteed here. If the
// storage layer enforces a unique constraint, a collision surfaces as a
// ValidationError from the repository boundary.
func Slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

// NormalizeTags case-folds and dedupes the union of existing and incoming
// tags. Tags are additive on update: existing tags are never dropped.
// Any incoming tag that is empty after trimming fails the whole call
// before anything is normalized.
func NormalizeTags(existing, incoming []string) ([]string, error) {
	for _, tag := range incoming {
		if strings.TrimSpace(tag) == "" {
			return nil, Validationf("tags cannot be empty")
		}
	}

	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, tag := range append(append([]string{}, existing...), incoming...) {
		folded := strings.ToLower(strings.TrimSpace(tag))
		if folded == "" {
			continue
		}
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, folded)
	}

	return out, nil
}
