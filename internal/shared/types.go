package shared

// shared types across the application
// 1st: offset pagination used by every list endpoint
// 2nd: list envelope returned to clients

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is an offset window over an ordered list.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewPage clamps the requested window into the allowed range.
func NewPage(limit, offset int) Page {
	switch {
	case limit < 1:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// List is one page of results plus the total number of matching rows.
type List[T any] struct {
	Count   int64 `json:"count"`
	Results []T   `json:"results"`
}
