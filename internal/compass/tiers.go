package compass

import "cpulse-tracker/internal/domain"

// Tier is a named rating band starting at MinRating.
type Tier struct {
	Name      string
	MinRating float64
}

// Tables are ordered by ascending MinRating and start at zero.
var tables = map[domain.Platform][]Tier{
	domain.PlatformCodeforces: {
		{"Newbie", 0},
		{"Pupil", 1200},
		{"Specialist", 1400},
		{"Expert", 1600},
		{"Candidate Master", 1900},
		{"Master", 2100},
		{"International Master", 2300},
		{"Grandmaster", 2400},
		{"International Grandmaster", 2600},
		{"Legendary Grandmaster", 3000},
	},
	domain.PlatformLeetCode: {
		{"Participant", 0},
		{"Knight", 1850},
		{"Guardian", 2150},
	},
	domain.PlatformCodeChef: {
		{"1★", 0},
		{"2★", 1400},
		{"3★", 1600},
		{"4★", 1800},
		{"5★", 2000},
		{"6★", 2200},
		{"7★", 2500},
	},
}
