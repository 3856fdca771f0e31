package compare

import (
	"cpulse-tracker/internal/domain"
	"slices"
	"strings"
)

// Row is one date of a dual-line chart. A nil side means that user has no
// point on this date; charts draw a gap there instead of interpolating.
type Row struct {
	Date  string   `json:"date"`
	User1 *float64 `json:"user1,omitempty"`
	User2 *float64 `json:"user2,omitempty"`
}

// Merge joins two series on exact date string equality and returns one row
// per distinct date, ordered by date. A repeated date within one series keeps
// its later value.
func Merge(s1, s2 []domain.HistoryPoint) []Row {
	byDate := make(map[string]*Row, len(s1)+len(s2))
	rows := make([]*Row, 0, len(s1)+len(s2))

	row := func(date string) *Row {
		if r, ok := byDate[date]; ok {
			return r
		}
		r := &Row{Date: date}
		byDate[date] = r
		rows = append(rows, r)
		return r
	}

	for _, p := range s1 {
		v := p.Score
		row(p.Date).User1 = &v
	}
	for _, p := range s2 {
		v := p.Score
		row(p.Date).User2 = &v
	}

	slices.SortStableFunc(rows, func(a, b *Row) int {
		return strings.Compare(a.Date, b.Date)
	})

	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out
}
