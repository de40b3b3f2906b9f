// Package category serves the category reference list and search-as-you-type.
package category

import (
	"slices"
	"strings"

	"github.com/bloggera/bloggera/internal/domain"
)

// DefaultSuggestionLimit is how many suggestions the write and explore views show.
const DefaultSuggestionLimit = 4

// Suggest returns categories whose name contains query, case-insensitively, ranked by
// where the match starts. Ties keep list order. Categories in selected are skipped.
// A blank query suggests nothing; limit <= 0 means no limit.
func Suggest(all []domain.Category, query string, selected []domain.Category, limit int) []domain.Category {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	type match struct {
		cat domain.Category
		pos int
	}

	var matches []match
	for _, c := range all {
		if isSelected(c, selected) {
			continue
		}
		if pos := strings.Index(strings.ToLower(c.Name), q); pos >= 0 {
			matches = append(matches, match{cat: c, pos: pos})
		}
	}

	slices.SortStableFunc(matches, func(a, b match) int {
		return a.pos - b.pos
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]domain.Category, len(matches))
	for i, m := range matches {
		out[i] = m.cat
	}
	return out
}

func isSelected(c domain.Category, selected []domain.Category) bool {
	return slices.ContainsFunc(selected, func(s domain.Category) bool {
		return s.ID == c.ID
	})
}

// Names returns the names of cats in order.
func Names(cats []domain.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.Name
	}
	return out
}

// IDs returns the ids of cats in order.
func IDs(cats []domain.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = c.ID
	}
	return out
}

// Resolve maps names (case-insensitive) or ids to categories of all.
// Unknown entries are returned in missing.
func Resolve(all []domain.Category, refs []string) (found []domain.Category, missing []string) {
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		i := slices.IndexFunc(all, func(c domain.Category) bool {
			return c.ID == ref || strings.EqualFold(c.Name, ref)
		})
		if i < 0 {
			missing = append(missing, ref)
			continue
		}
		if !isSelected(all[i], found) {
			found = append(found, all[i])
		}
	}
	return found, missing
}
