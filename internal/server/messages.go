package server

import (
	"cpulse-tracker/internal/compare"
	"cpulse-tracker/internal/compass"
	"cpulse-tracker/internal/domain"
	"time"
)

type UserStatsView struct {
	Handle        string                `json:"handle"`
	Platform      domain.Platform       `json:"platform"`
	CurrentRating float64               `json:"currentRating"`
	Solved        int                   `json:"solved"`
	Stats         domain.PlatformStats  `json:"stats"`
	History       []domain.HistoryPoint `json:"history"`
	FetchedAt     time.Time             `json:"fetchedAt"`
}

type ErrorView struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type GetUserStatsRequest struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	Refresh  bool   `json:"refresh"`
}

type GetUserStatsResponse struct {
	Stats UserStatsView `json:"stats"`
}

type GetDashboardRequest struct {
	// Handles maps platform to handle. When empty, the handles linked to the
	// signed-in user are used.
	Handles map[string]string `json:"handles,omitempty"`
	Refresh bool              `json:"refresh"`
}

type DashboardCard struct {
	Platform domain.Platform `json:"platform"`
	Handle   string          `json:"handle"`
	Stats    *UserStatsView  `json:"stats,omitempty"`
	Error    *ErrorView      `json:"error,omitempty"`
}

type GetDashboardResponse struct {
	Cards []DashboardCard `json:"cards"`
}

type CompareUsersRequest struct {
	Platform string `json:"platform"`
	Handle1  string `json:"handle1"`
	Handle2  string `json:"handle2"`
}

type CompareUsersResponse struct {
	User1   UserStatsView   `json:"user1"`
	User2   UserStatsView   `json:"user2"`
	Rows    []compare.Row   `json:"rows"`
	Summary compare.Summary `json:"summary"`
}

type LeaderboardFilter struct {
	Platform string `json:"platform,omitempty"`
	Search   string `json:"search,omitempty"`
	SortBy   string `json:"sortBy,omitempty"`
	Order    string `json:"order,omitempty"`
}

type GetLeaderboardRequest struct {
	LeaderboardFilter
}

type GetLeaderboardResponse struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

type GetCollegesRequest struct{}

type GetCollegesResponse struct {
	Colleges []domain.College `json:"colleges"`
}

type GetCourseLeaderboardRequest struct {
	CourseID string `json:"courseId"`
	LeaderboardFilter
}

type GetCourseLeaderboardResponse struct {
	Course  domain.Course             `json:"course"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

type ListPostsRequest struct {
	Tag   string `json:"tag,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type ListPostsResponse struct {
	Posts []domain.Post `json:"posts"`
}

type GetThreadRequest struct {
	PostID string `json:"postId"`
}

type GetThreadResponse struct {
	Post     domain.Post                 `json:"post"`
	Comments []domain.Comment            `json:"comments"`
	Replies  map[string][]domain.Comment `json:"replies"`
}

type CreatePostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

type CreatePostResponse struct {
	Post domain.Post `json:"post"`
}

type DeletePostRequest struct {
	PostID string `json:"postId"`
}

type DeletePostResponse struct{}

type VotePostRequest struct {
	PostID    string `json:"postId"`
	Direction string `json:"direction"`
}

type VotePostResponse struct {
	Post domain.Post `json:"post"`
}

type CreateCommentRequest struct {
	PostID   string `json:"postId"`
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"`
}

type CreateCommentResponse struct {
	Comment domain.Comment `json:"comment"`
}

type DeleteCommentRequest struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
}

type DeleteCommentResponse struct{}

type GetCPulseScoreRequest struct{}

type GetCPulseScoreResponse struct {
	Score        int                         `json:"score"`
	Tier         string                      `json:"tier"`
	Breakdown    map[domain.Platform]float64 `json:"breakdown"`
	Earned       []domain.Reward             `json:"earned"`
	Locked       []domain.Reward             `json:"locked"`
	NextReward   *domain.Reward              `json:"nextReward,omitempty"`
	PointsToNext int                         `json:"pointsToNext"`
}

type GetCareerCompassRequest struct {
	Handles map[string]string `json:"handles,omitempty"`
	Refresh bool              `json:"refresh"`
}

type GetCareerCompassResponse struct {
	Report compass.Report `json:"report"`
	// Errors lists platforms that could not be fetched and were left out.
	Errors map[domain.Platform]ErrorView `json:"errors,omitempty"`
}

type GetSessionRequest struct {
	Refresh bool `json:"refresh"`
}

type GetSessionResponse struct {
	User      domain.User `json:"user"`
	Subject   string      `json:"subject,omitempty"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}
