package leaderboard

import (
	"cmp"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/domain"
	"slices"
	"strings"
)

type SortField string

const (
	SortByRating   SortField = "rating"
	SortByHandle   SortField = "handle"
	SortByPlatform SortField = "platform"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Query is the zero-value friendly filter for a leaderboard view. An empty
// Platform or Search disables that filter; an empty SortBy keeps input order.
type Query struct {
	Platform domain.Platform
	Search   string
	SortBy   SortField
	Order    Order
}

// ParseQuery builds a Query from loosely typed request fields.
func ParseQuery(platform, search, sortBy, order string) (Query, error) {
	q := Query{Search: strings.TrimSpace(search)}

	if strings.TrimSpace(platform) != "" {
		p, err := domain.ParsePlatform(platform)
		if err != nil {
			return Query{}, apperr.Validation("invalid_platform", err.Error())
		}
		q.Platform = p
	}

	switch SortField(strings.ToLower(strings.TrimSpace(sortBy))) {
	case "":
	case SortByRating:
		q.SortBy = SortByRating
	case SortByHandle:
		q.SortBy = SortByHandle
	case SortByPlatform:
		q.SortBy = SortByPlatform
	default:
		return Query{}, apperr.Validation("invalid_sort", "sort must be one of rating, handle, platform")
	}

	switch Order(strings.ToLower(strings.TrimSpace(order))) {
	case "", Desc:
		q.Order = Desc
	case Asc:
		q.Order = Asc
	default:
		return Query{}, apperr.Validation("invalid_order", "order must be asc or desc")
	}

	return q, nil
}

// Apply filters and sorts a copy of entries. The sort is stable so entries
// that compare equal keep their input order.
func Apply(entries []domain.LeaderboardEntry, q Query) []domain.LeaderboardEntry {
	needle := strings.ToLower(q.Search)

	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if q.Platform != "" && e.Platform != q.Platform {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(e.Handle), needle) {
			continue
		}
		out = append(out, e)
	}

	compare := comparator(q.SortBy)
	if compare == nil {
		return out
	}

	slices.SortStableFunc(out, func(a, b domain.LeaderboardEntry) int {
		if q.Order == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

func comparator(field SortField) func(a, b domain.LeaderboardEntry) int {
	switch field {
	case SortByRating:
		return func(a, b domain.LeaderboardEntry) int { return cmp.Compare(a.Rating, b.Rating) }
	case SortByHandle:
		return func(a, b domain.LeaderboardEntry) int {
			return strings.Compare(strings.ToLower(a.Handle), strings.ToLower(b.Handle))
		}
	case SortByPlatform:
		return func(a, b domain.LeaderboardEntry) int { return strings.Compare(string(a.Platform), string(b.Platform)) }
	}
	return nil
}
