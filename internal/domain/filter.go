package domain

import "strings"

// MinSearchTextLen is the shortest free-text query the search view accepts.
const MinSearchTextLen = 3

// FilterKind selects which server endpoint a feed reads from.
type FilterKind int

const (
	// FilterHome is the unfiltered home feed.
	FilterHome FilterKind = iota
	// FilterCategories searches by category names.
	FilterCategories
	// FilterText searches by free text.
	FilterText
)

func (k FilterKind) String() string {
	switch k {
	case FilterHome:
		return "home"
	case FilterCategories:
		return "categories"
	case FilterText:
		return "text"
	default:
		return "unknown"
	}
}

// Filter narrows a feed. Categories take precedence over Text.
type Filter struct {
	Categories []string
	Text       string
	// Sample is the page size hint sent with searches.
	Sample int
}

// HomeFilter returns the unfiltered feed filter.
func HomeFilter() Filter {
	return Filter{}
}

// Kind reports which mode the filter is in.
func (f Filter) Kind() FilterKind {
	switch {
	case len(f.Categories) > 0:
		return FilterCategories
	case strings.TrimSpace(f.Text) != "":
		return FilterText
	default:
		return FilterHome
	}
}

// SearchEnabled reports whether a search with this filter may be issued.
func (f Filter) SearchEnabled() bool {
	return len(f.Categories) > 0 || len(strings.TrimSpace(f.Text)) >= MinSearchTextLen
}

// ValidateSearch rejects a search filter that may not be issued.
func (f Filter) ValidateSearch() error {
	if !f.SearchEnabled() {
		return NewValidationError("query", "select a category or type at least 3 characters")
	}
	return nil
}
