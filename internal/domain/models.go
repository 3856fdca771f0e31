package domain

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformCodeforces Platform = "codeforces"
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeChef   Platform = "codechef"
)

var Platforms = []Platform{PlatformCodeforces, PlatformLeetCode, PlatformCodeChef}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformCodeforces, PlatformLeetCode, PlatformCodeChef:
		return p, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// HistoryPoint is one rating observation. Date is always YYYY-MM-DD once it
// has left the stats package.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// PlatformStats is implemented only by the three variants below.
type PlatformStats interface {
	Platform() Platform
	CurrentRating() float64
	SolvedCount() int
	isPlatformStats()
}

type CodeforcesStats struct {
	Rating         int    `json:"rating"`
	MaxRating      int    `json:"maxRating"`
	Rank           string `json:"rank"`
	MaxRank        string `json:"maxRank"`
	Contribution   int    `json:"contribution"`
	ProblemsSolved int    `json:"problemsSolved"`
	ContestsPlayed int    `json:"contestsPlayed"`
}

func (CodeforcesStats) Platform() Platform       { return PlatformCodeforces }
func (s CodeforcesStats) CurrentRating() float64 { return float64(s.Rating) }
func (s CodeforcesStats) SolvedCount() int       { return s.ProblemsSolved }
func (CodeforcesStats) isPlatformStats()         {}

type LeetCodeStats struct {
	ContestRating  float64 `json:"contestRating"`
	GlobalRanking  int     `json:"globalRanking"`
	TopPercentage  float64 `json:"topPercentage"`
	TotalSolved    int     `json:"totalSolved"`
	EasySolved     int     `json:"easySolved"`
	MediumSolved   int     `json:"mediumSolved"`
	HardSolved     int     `json:"hardSolved"`
	Streak         int     `json:"streak"`
	ContestsPlayed int     `json:"contestsPlayed"`
	Badge          string  `json:"badge,omitempty"`
}

func (LeetCodeStats) Platform() Platform       { return PlatformLeetCode }
func (s LeetCodeStats) CurrentRating() float64 { return s.ContestRating }
func (s LeetCodeStats) SolvedCount() int       { return s.TotalSolved }
func (LeetCodeStats) isPlatformStats()         {}

type CodeChefStats struct {
	Rating         int    `json:"rating"`
	MaxRating      int    `json:"maxRating"`
	Stars          int    `json:"stars"`
	GlobalRank     int    `json:"globalRank"`
	CountryRank    int    `json:"countryRank"`
	Division       string `json:"division,omitempty"`
	ProblemsSolved int    `json:"problemsSolved"`
}

func (CodeChefStats) Platform() Platform       { return PlatformCodeChef }
func (s CodeChefStats) CurrentRating() float64 { return float64(s.Rating) }
func (s CodeChefStats) SolvedCount() int       { return s.ProblemsSolved }
func (CodeChefStats) isPlatformStats()         {}

type UserStats struct {
	Handle    string
	Platform  Platform
	Stats     PlatformStats
	History   []HistoryPoint
	FetchedAt time.Time
}

type LeaderboardEntry struct {
	Handle   string   `json:"handle"`
	Platform Platform `json:"platform"`
	Rating   float64  `json:"rating"`
	Name     string   `json:"name,omitempty"`
	College  string   `json:"college,omitempty"`
}

type College struct {
	Name          string  `json:"name"`
	MemberCount   int     `json:"memberCount"`
	AverageRating float64 `json:"averageRating"`
	TopHandle     string  `json:"topHandle,omitempty"`
}

type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Post struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Author       Author    `json:"author"`
	Tags         []string  `json:"tags,omitempty"`
	Upvotes      int       `json:"upvotes"`
	Downvotes    int       `json:"downvotes"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (p Post) Score() int {
	return p.Upvotes - p.Downvotes
}

type Comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"postId"`
	ParentID  string    `json:"parentId,omitempty"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"createdAt"`
}

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

type Reward struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Threshold   int    `json:"threshold"`
	Earned      bool   `json:"earned"`
}

type CPulseScore struct {
	Score     int                  `json:"score"`
	Tier      string               `json:"tier"`
	SubScores map[Platform]float64 `json:"breakdown"`
	Rewards   []Reward             `json:"rewards"`
}

type User struct {
	ID       string              `json:"_id"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Handles  map[Platform]string `json:"handles,omitempty"`
	College  string              `json:"college,omitempty"`
	JoinedAt time.Time           `json:"createdAt"`
}
