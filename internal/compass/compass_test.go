package compass

import (
	"cpulse-tracker/internal/domain"
	"testing"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		platform domain.Platform
		rating   float64
		tier     string
		next     string
		toNext   float64
	}{
		{domain.PlatformCodeforces, 0, "Newbie", "Pupil", 1200},
		{domain.PlatformCodeforces, 1199, "Newbie", "Pupil", 1},
		{domain.PlatformCodeforces, 1200, "Pupil", "Specialist", 200},
		{domain.PlatformCodeforces, 2450, "Grandmaster", "International Grandmaster", 150},
		{domain.PlatformCodeforces, 3800, "Legendary Grandmaster", "", 0},
		{domain.PlatformLeetCode, 1849.5, "Participant", "Knight", 0.5},
		{domain.PlatformLeetCode, 2200, "Guardian", "", 0},
		{domain.PlatformCodeChef, 1650, "3★", "4★", 150},
		{domain.PlatformCodeChef, -20, "1★", "2★", 1400},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform)+"/"+tt.tier, func(t *testing.T) {
			pos, err := Locate(tt.platform, tt.rating)
			if err != nil {
				t.Fatalf("Locate failed: %v", err)
			}
			if pos.Tier != tt.tier || pos.NextTier != tt.next || pos.PointsToNext != tt.toNext {
				t.Errorf("Locate(%s, %v) = %+v", tt.platform, tt.rating, pos)
			}
		})
	}
}

func TestLocate_Standing(t *testing.T) {
	low, _ := Locate(domain.PlatformCodeforces, 100)
	top, _ := Locate(domain.PlatformCodeforces, 3500)
	if low.Standing != 0 || top.Standing != 1 {
		t.Errorf("expected standings 0 and 1, got %v and %v", low.Standing, top.Standing)
	}

	knight, _ := Locate(domain.PlatformLeetCode, 1900)
	if knight.Standing != 0.5 {
		t.Errorf("expected knight standing 0.5, got %v", knight.Standing)
	}
}

func TestLocate_UnknownPlatform(t *testing.T) {
	if _, err := Locate("topcoder", 1000); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestAdvise(t *testing.T) {
	report := Advise([]domain.UserStats{
		{Platform: domain.PlatformCodeChef, Stats: domain.CodeChefStats{Rating: 1450}},
		{Platform: domain.PlatformCodeforces, Stats: domain.CodeforcesStats{Rating: 2150}},
	})

	if len(report.Positions) != 2 || report.Positions[0].Platform != domain.PlatformCodeforces {
		t.Fatalf("expected positions in platform order, got %+v", report.Positions)
	}
	if report.Strongest == nil || report.Strongest.Platform != domain.PlatformCodeforces {
		t.Fatalf("expected codeforces to be strongest, got %+v", report.Strongest)
	}
	if report.Track != TrackAdvanced {
		t.Errorf("expected advanced track, got %s", report.Track)
	}

	want := []string{
		"Gain 150 rating on codechef to reach 3★",
		"Push codeforces to International Master, 150 rating away",
		"Link a leetcode handle to track it",
	}
	if len(report.Suggestions) != len(want) {
		t.Fatalf("expected %d suggestions, got %v", len(want), report.Suggestions)
	}
	for i := range want {
		if report.Suggestions[i] != want[i] {
			t.Errorf("suggestion %d: expected %q, got %q", i, want[i], report.Suggestions[i])
		}
	}
}

func TestAdvise_NoStats(t *testing.T) {
	report := Advise(nil)
	if report.Strongest != nil || report.Track != TrackFoundations {
		t.Errorf("unexpected report %+v", report)
	}
	if len(report.Suggestions) != len(domain.Platforms) {
		t.Errorf("expected a link suggestion per platform, got %v", report.Suggestions)
	}
}
