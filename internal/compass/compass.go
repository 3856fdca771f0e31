package compass

import (
	"cmp"
	"cpulse-tracker/internal/domain"
	"fmt"
	"slices"
)

type Position struct {
	Platform domain.Platform `json:"platform"`
	Rating   float64         `json:"rating"`
	Tier     string          `json:"tier"`
	// NextTier is empty at the top of the table.
	NextTier     string  `json:"nextTier,omitempty"`
	PointsToNext float64 `json:"pointsToNext"`
	// Standing is the tier index scaled to [0, 1] so positions on tables of
	// different lengths can be compared.
	Standing float64 `json:"standing"`
}

// Locate finds the tier containing rating. Negative ratings count as zero.
func Locate(platform domain.Platform, rating float64) (Position, error) {
	table, ok := tables[platform]
	if !ok {
		return Position{}, fmt.Errorf("no tier table for platform %q", platform)
	}
	rating = max(rating, 0)

	idx := 0
	for i, t := range table {
		if rating >= t.MinRating {
			idx = i
		}
	}

	pos := Position{
		Platform: platform,
		Rating:   rating,
		Tier:     table[idx].Name,
	}
	if len(table) > 1 {
		pos.Standing = float64(idx) / float64(len(table)-1)
	}
	if idx+1 < len(table) {
		next := table[idx+1]
		pos.NextTier = next.Name
		pos.PointsToNext = next.MinRating - rating
	}
	return pos, nil
}

type Track string

const (
	TrackFoundations Track = "foundations"
	TrackContender   Track = "contender"
	TrackAdvanced    Track = "advanced"
	TrackElite       Track = "elite"
)

func trackFor(standing float64) Track {
	switch {
	case standing >= 0.85:
		return TrackElite
	case standing >= 0.5:
		return TrackAdvanced
	case standing >= 0.2:
		return TrackContender
	}
	return TrackFoundations
}

type Report struct {
	Positions []Position `json:"positions"`
	// Strongest is nil when no platform has stats.
	Strongest   *Position `json:"strongest,omitempty"`
	Track       Track     `json:"track"`
	Suggestions []string  `json:"suggestions"`
}

// Advise builds a career report from whatever platforms the user has stats
// for. Positions are listed in platform order.
func Advise(stats []domain.UserStats) Report {
	byPlatform := make(map[domain.Platform]Position, len(stats))
	for _, s := range stats {
		if s.Stats == nil {
			continue
		}
		pos, err := Locate(s.Platform, s.Stats.CurrentRating())
		if err != nil {
			continue
		}
		byPlatform[s.Platform] = pos
	}

	report := Report{Track: TrackFoundations}
	var missing []domain.Platform
	for _, p := range domain.Platforms {
		pos, ok := byPlatform[p]
		if !ok {
			missing = append(missing, p)
			continue
		}
		report.Positions = append(report.Positions, pos)
	}

	if len(report.Positions) > 0 {
		strongest := slices.MaxFunc(report.Positions, func(a, b Position) int {
			return cmp.Compare(a.Standing, b.Standing)
		})
		report.Strongest = &strongest
		report.Track = trackFor(strongest.Standing)

		weakest := slices.MinFunc(report.Positions, func(a, b Position) int {
			return cmp.Compare(a.Standing, b.Standing)
		})
		if weakest.NextTier != "" {
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("Gain %.0f rating on %s to reach %s", weakest.PointsToNext, weakest.Platform, weakest.NextTier))
		}
		if strongest.NextTier != "" && strongest.Platform != weakest.Platform {
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("Push %s to %s, %.0f rating away", strongest.Platform, strongest.NextTier, strongest.PointsToNext))
		}
	}

	for _, p := range missing {
		report.Suggestions = append(report.Suggestions, fmt.Sprintf("Link a %s handle to track it", p))
	}
	return report
}
