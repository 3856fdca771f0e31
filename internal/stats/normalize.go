// Package stats turns the per-platform metrics payloads of the backend into
// domain.UserStats values with canonical, date-ordered rating history.
package stats

import (
	"bytes"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/domain"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006/01/02",
}

// CanonicalDate maps the date encodings seen across platforms onto YYYY-MM-DD
// in UTC. Numbers are unix seconds, or milliseconds when too large to be seconds.
func CanonicalDate(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return canonicalDateString(s)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	if n < -maxUnix || n > maxUnix {
		return "", false
	}
	return fromUnix(int64(n))
}

func canonicalDateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(DateLayout), true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromUnix(n)
	}
	return "", false
}

// maxUnix bounds numeric timestamps; anything beyond it is not a plausible
// seconds or milliseconds value.
const maxUnix = 1e15

func fromUnix(n int64) (string, bool) {
	if n < -maxUnix || n > maxUnix {
		return "", false
	}
	if n > 1e12 {
		return time.UnixMilli(n).UTC().Format(DateLayout), true
	}
	return time.Unix(n, 0).UTC().Format(DateLayout), true
}

type rawPoint struct {
	Date      json.RawMessage `json:"date"`
	Timestamp json.RawMessage `json:"timestamp"`
	Score     *float64        `json:"score"`
	Rating    *float64        `json:"rating"`
	NewRating *float64        `json:"newRating"`
}

func (p rawPoint) value() (float64, bool) {
	switch {
	case p.Score != nil:
		return *p.Score, true
	case p.Rating != nil:
		return *p.Rating, true
	case p.NewRating != nil:
		return *p.NewRating, true
	}
	return 0, false
}

type historyFields struct {
	History       []rawPoint `json:"history"`
	RatingHistory []rawPoint `json:"ratingHistory"`
}

func (h historyFields) points() []rawPoint {
	return append(slices.Clone(h.History), h.RatingHistory...)
}

type codeforcesPayload struct {
	Handle string `json:"handle"`
	domain.CodeforcesStats
	historyFields
}

type leetcodePayload struct {
	Handle   string `json:"handle"`
	Username string `json:"username"`
	domain.LeetCodeStats
	historyFields
}

type codechefPayload struct {
	Handle string `json:"handle"`
	domain.CodeChefStats
	Stars flexInt `json:"stars"`
	historyFields
}

// flexInt accepts 3, "3" and "3★".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	digits := strings.TrimRightFunc(strings.TrimSpace(s), func(r rune) bool { return !unicode.IsDigit(r) })
	if digits == "" {
		*f = 0
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return fmt.Errorf("invalid star count %q", s)
	}
	*f = flexInt(v)
	return nil
}

// Result carries the normalized stats and how many history points had to be
// dropped because their date could not be read.
type Result struct {
	Stats   *domain.UserStats
	Dropped int
}

func Normalize(platform domain.Platform, handle string, raw []byte) (Result, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Result{}, apperr.Upstream("empty_metrics", fmt.Sprintf("empty metrics payload for %s/%s", platform, handle), nil)
	}

	var (
		variant domain.PlatformStats
		points  []rawPoint
		name    string
	)

	switch platform {
	case domain.PlatformCodeforces:
		var p codeforcesPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Result{}, decodeError(platform, handle, err)
		}
		variant, points, name = p.CodeforcesStats, p.points(), p.Handle
	case domain.PlatformLeetCode:
		var p leetcodePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Result{}, decodeError(platform, handle, err)
		}
		name = p.Handle
		if name == "" {
			name = p.Username
		}
		variant, points = p.LeetCodeStats, p.points()
	case domain.PlatformCodeChef:
		var p codechefPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Result{}, decodeError(platform, handle, err)
		}
		p.CodeChefStats.Stars = int(p.Stars)
		variant, points, name = p.CodeChefStats, p.points(), p.Handle
	default:
		return Result{}, apperr.Validation("unknown_platform", fmt.Sprintf("unknown platform %q", platform))
	}

	if name == "" {
		name = handle
	}

	history, dropped := normalizeHistory(points)
	return Result{
		Stats: &domain.UserStats{
			Handle:   name,
			Platform: platform,
			Stats:    variant,
			History:  history,
		},
		Dropped: dropped,
	}, nil
}

func decodeError(platform domain.Platform, handle string, err error) error {
	return apperr.Upstream("decode_metrics", fmt.Sprintf("malformed metrics payload for %s/%s", platform, handle), err)
}

// normalizeHistory orders points by date and keeps the last reported value
// for a date when several contests fall on the same day.
func normalizeHistory(points []rawPoint) ([]domain.HistoryPoint, int) {
	out := make([]domain.HistoryPoint, 0, len(points))
	dropped := 0
	for _, p := range points {
		dateRaw := p.Date
		if len(dateRaw) == 0 {
			dateRaw = p.Timestamp
		}
		date, ok := CanonicalDate(dateRaw)
		score, hasScore := p.value()
		if !ok || !hasScore {
			dropped++
			continue
		}
		out = append(out, domain.HistoryPoint{Date: date, Score: score})
	}

	slices.SortStableFunc(out, func(a, b domain.HistoryPoint) int {
		return strings.Compare(a.Date, b.Date)
	})

	deduped := out[:0]
	for _, p := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date == p.Date {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped, dropped
}
