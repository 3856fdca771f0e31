package server

import (
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/cache"
	"cpulse-tracker/internal/community"
	"cpulse-tracker/internal/compare"
	"cpulse-tracker/internal/compass"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/leaderboard"
	"cpulse-tracker/internal/middleware"
	"cpulse-tracker/internal/score"
	"cpulse-tracker/internal/session"
	"cpulse-tracker/internal/stats"
	"database/sql"
	"errors"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	API         *api.Client
	Stats       *stats.Service
	Compare     *compare.Service
	Leaderboard *leaderboard.Service
	Community   *community.Service
	Score       *score.Service
	Sessions    *session.Holder
	DB          *sql.DB
	Cache       cache.Cache
	Logger      zerolog.Logger
}

type TrackerServer struct {
	apiClient      *api.Client
	statsSvc       *stats.Service
	compareSvc     *compare.Service
	leaderboardSvc *leaderboard.Service
	communitySvc   *community.Service
	scoreSvc       *score.Service
	sessions       *session.Holder
	db             *sql.DB
	cache          cache.Cache
	logger         zerolog.Logger
}

func NewTrackerServer(p Params) *TrackerServer {
	return &TrackerServer{
		apiClient:      p.API,
		statsSvc:       p.Stats,
		compareSvc:     p.Compare,
		leaderboardSvc: p.Leaderboard,
		communitySvc:   p.Community,
		scoreSvc:       p.Score,
		sessions:       p.Sessions,
		db:             p.DB,
		cache:          p.Cache,
		logger:         p.Logger,
	}
}

// toConnectError logs err with the request logger and converts it.
func toConnectError(ctx context.Context, procedure string, err error) error {
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("procedure", procedure).
		Str("kind", apperr.KindOf(err).String()).
		Str("code", apperr.CodeOf(err)).
		Msg("procedure failed")
	return apperr.ToConnect(err)
}

func parsePlatform(raw string) (domain.Platform, error) {
	p, err := domain.ParsePlatform(raw)
	if err != nil {
		return "", apperr.Validation("invalid_platform", err.Error())
	}
	return p, nil
}

func toStatsView(s *domain.UserStats) UserStatsView {
	view := UserStatsView{
		Handle:    s.Handle,
		Platform:  s.Platform,
		Stats:     s.Stats,
		History:   s.History,
		FetchedAt: s.FetchedAt,
	}
	if s.Stats != nil {
		view.CurrentRating = s.Stats.CurrentRating()
		view.Solved = s.Stats.SolvedCount()
	}
	if view.History == nil {
		view.History = []domain.HistoryPoint{}
	}
	return view
}

// toErrorView carries the request id so a failed card can be matched to the
// server log line.
func toErrorView(ctx context.Context, err error) *ErrorView {
	view := &ErrorView{
		Kind:      apperr.KindOf(err).String(),
		Code:      apperr.CodeOf(err),
		Message:   err.Error(),
		RequestID: middleware.GetRequestID(ctx),
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		view.Message = appErr.Message
	}
	return view
}

func (s *TrackerServer) GetUserStats(ctx context.Context, req *connect.Request[GetUserStatsRequest]) (*connect.Response[GetUserStatsResponse], error) {
	sess := session.FromContext(ctx)

	platform, err := parsePlatform(req.Msg.Platform)
	if err != nil {
		return nil, toConnectError(ctx, "GetUserStats", err)
	}

	userStats, err := s.statsSvc.GetUserStats(ctx, sess, platform, req.Msg.Handle, req.Msg.Refresh)
	if err != nil {
		return nil, toConnectError(ctx, "GetUserStats", err)
	}

	return connect.NewResponse(&GetUserStatsResponse{Stats: toStatsView(userStats)}), nil
}

// resolveHandles parses explicit handles, or falls back to the handles
// linked to the signed-in user.
func (s *TrackerServer) resolveHandles(ctx context.Context, sess session.Session, raw map[string]string, refresh bool) (map[domain.Platform]string, error) {
	handles := make(map[domain.Platform]string, len(raw))
	if len(raw) > 0 {
		for p, h := range raw {
			platform, err := parsePlatform(p)
			if err != nil {
				return nil, err
			}
			handles[platform] = h
		}
		return handles, nil
	}

	resolved, err := s.sessions.Refresh(ctx, sess, refresh)
	if err != nil {
		return nil, err
	}
	for p, h := range resolved.User.Handles {
		handles[p] = h
	}
	if len(handles) == 0 {
		return nil, apperr.Validation("no_handles", "no platform handles linked to this account")
	}
	return handles, nil
}

func (s *TrackerServer) GetDashboard(ctx context.Context, req *connect.Request[GetDashboardRequest]) (*connect.Response[GetDashboardResponse], error) {
	sess := session.FromContext(ctx)

	handles, err := s.resolveHandles(ctx, sess, req.Msg.Handles, req.Msg.Refresh)
	if err != nil {
		return nil, toConnectError(ctx, "GetDashboard", err)
	}

	cards := s.statsSvc.Dashboard(ctx, sess, handles, req.Msg.Refresh)

	resp := &GetDashboardResponse{Cards: make([]DashboardCard, 0, len(cards))}
	for _, c := range cards {
		card := DashboardCard{Platform: c.Platform, Handle: c.Handle}
		if c.Err != nil {
			card.Error = toErrorView(ctx, c.Err)
		} else {
			view := toStatsView(c.Stats)
			card.Stats = &view
		}
		resp.Cards = append(resp.Cards, card)
	}

	return connect.NewResponse(resp), nil
}

func (s *TrackerServer) CompareUsers(ctx context.Context, req *connect.Request[CompareUsersRequest]) (*connect.Response[CompareUsersResponse], error) {
	sess := session.FromContext(ctx)

	platform, err := parsePlatform(req.Msg.Platform)
	if err != nil {
		return nil, toConnectError(ctx, "CompareUsers", err)
	}

	result, err := s.compareSvc.Compare(ctx, sess, platform, req.Msg.Handle1, req.Msg.Handle2)
	if err != nil {
		return nil, toConnectError(ctx, "CompareUsers", err)
	}

	return connect.NewResponse(&CompareUsersResponse{
		User1:   toStatsView(result.User1),
		User2:   toStatsView(result.User2),
		Rows:    result.Rows,
		Summary: result.Summary,
	}), nil
}

func (f LeaderboardFilter) query() (leaderboard.Query, error) {
	return leaderboard.ParseQuery(f.Platform, f.Search, f.SortBy, f.Order)
}

func (s *TrackerServer) GetLeaderboard(ctx context.Context, req *connect.Request[GetLeaderboardRequest]) (*connect.Response[GetLeaderboardResponse], error) {
	sess := session.FromContext(ctx)

	q, err := req.Msg.query()
	if err != nil {
		return nil, toConnectError(ctx, "GetLeaderboard", err)
	}

	entries, err := s.leaderboardSvc.Global(ctx, sess, q)
	if err != nil {
		return nil, toConnectError(ctx, "GetLeaderboard", err)
	}

	return connect.NewResponse(&GetLeaderboardResponse{Entries: entries}), nil
}

func (s *TrackerServer) GetColleges(ctx context.Context, req *connect.Request[GetCollegesRequest]) (*connect.Response[GetCollegesResponse], error) {
	colleges, err := s.leaderboardSvc.Colleges(ctx, session.FromContext(ctx))
	if err != nil {
		return nil, toConnectError(ctx, "GetColleges", err)
	}
	return connect.NewResponse(&GetCollegesResponse{Colleges: colleges}), nil
}

func (s *TrackerServer) GetCourseLeaderboard(ctx context.Context, req *connect.Request[GetCourseLeaderboardRequest]) (*connect.Response[GetCourseLeaderboardResponse], error) {
	sess := session.FromContext(ctx)

	q, err := req.Msg.query()
	if err != nil {
		return nil, toConnectError(ctx, "GetCourseLeaderboard", err)
	}

	board, err := s.leaderboardSvc.Course(ctx, sess, req.Msg.CourseID, q)
	if err != nil {
		return nil, toConnectError(ctx, "GetCourseLeaderboard", err)
	}

	return connect.NewResponse(&GetCourseLeaderboardResponse{Course: board.Course, Entries: board.Entries}), nil
}

func (s *TrackerServer) ListPosts(ctx context.Context, req *connect.Request[ListPostsRequest]) (*connect.Response[ListPostsResponse], error) {
	posts, err := s.communitySvc.ListPosts(ctx, session.FromContext(ctx), community.ListOptions{Tag: req.Msg.Tag, Limit: req.Msg.Limit})
	if err != nil {
		return nil, toConnectError(ctx, "ListPosts", err)
	}
	return connect.NewResponse(&ListPostsResponse{Posts: posts}), nil
}

func (s *TrackerServer) GetThread(ctx context.Context, req *connect.Request[GetThreadRequest]) (*connect.Response[GetThreadResponse], error) {
	thread, err := s.communitySvc.GetThread(ctx, session.FromContext(ctx), req.Msg.PostID)
	if err != nil {
		return nil, toConnectError(ctx, "GetThread", err)
	}

	return connect.NewResponse(&GetThreadResponse{
		Post:     *thread.Post,
		Comments: thread.Thread.TopLevel,
		Replies:  thread.Thread.Replies,
	}), nil
}

func (s *TrackerServer) CreatePost(ctx context.Context, req *connect.Request[CreatePostRequest]) (*connect.Response[CreatePostResponse], error) {
	post, err := s.communitySvc.CreatePost(ctx, session.FromContext(ctx), api.NewPost{
		Title:   req.Msg.Title,
		Content: req.Msg.Content,
		Tags:    req.Msg.Tags,
	})
	if err != nil {
		return nil, toConnectError(ctx, "CreatePost", err)
	}
	return connect.NewResponse(&CreatePostResponse{Post: *post}), nil
}

func (s *TrackerServer) DeletePost(ctx context.Context, req *connect.Request[DeletePostRequest]) (*connect.Response[DeletePostResponse], error) {
	if err := s.communitySvc.DeletePost(ctx, session.FromContext(ctx), req.Msg.PostID); err != nil {
		return nil, toConnectError(ctx, "DeletePost", err)
	}
	return connect.NewResponse(&DeletePostResponse{}), nil
}

func (s *TrackerServer) VotePost(ctx context.Context, req *connect.Request[VotePostRequest]) (*connect.Response[VotePostResponse], error) {
	direction := domain.VoteDirection(strings.ToLower(strings.TrimSpace(req.Msg.Direction)))

	post, err := s.communitySvc.Vote(ctx, session.FromContext(ctx), req.Msg.PostID, direction)
	if err != nil {
		return nil, toConnectError(ctx, "VotePost", err)
	}
	return connect.NewResponse(&VotePostResponse{Post: *post}), nil
}

func (s *TrackerServer) CreateComment(ctx context.Context, req *connect.Request[CreateCommentRequest]) (*connect.Response[CreateCommentResponse], error) {
	comment, err := s.communitySvc.CreateComment(ctx, session.FromContext(ctx), req.Msg.PostID, api.NewComment{
		Content:  req.Msg.Content,
		ParentID: req.Msg.ParentID,
	})
	if err != nil {
		return nil, toConnectError(ctx, "CreateComment", err)
	}
	return connect.NewResponse(&CreateCommentResponse{Comment: *comment}), nil
}

func (s *TrackerServer) DeleteComment(ctx context.Context, req *connect.Request[DeleteCommentRequest]) (*connect.Response[DeleteCommentResponse], error) {
	if err := s.communitySvc.DeleteComment(ctx, session.FromContext(ctx), req.Msg.PostID, req.Msg.CommentID); err != nil {
		return nil, toConnectError(ctx, "DeleteComment", err)
	}
	return connect.NewResponse(&DeleteCommentResponse{}), nil
}

func (s *TrackerServer) GetCPulseScore(ctx context.Context, req *connect.Request[GetCPulseScoreRequest]) (*connect.Response[GetCPulseScoreResponse], error) {
	sum, err := s.scoreSvc.Get(ctx, session.FromContext(ctx))
	if err != nil {
		return nil, toConnectError(ctx, "GetCPulseScore", err)
	}

	return connect.NewResponse(&GetCPulseScoreResponse{
		Score:        sum.Score.Score,
		Tier:         sum.Score.Tier,
		Breakdown:    sum.Score.SubScores,
		Earned:       sum.Earned,
		Locked:       sum.Locked,
		NextReward:   sum.NextReward,
		PointsToNext: sum.PointsToNext,
	}), nil
}

func (s *TrackerServer) GetCareerCompass(ctx context.Context, req *connect.Request[GetCareerCompassRequest]) (*connect.Response[GetCareerCompassResponse], error) {
	sess := session.FromContext(ctx)

	handles, err := s.resolveHandles(ctx, sess, req.Msg.Handles, req.Msg.Refresh)
	if err != nil {
		return nil, toConnectError(ctx, "GetCareerCompass", err)
	}

	resp := &GetCareerCompassResponse{}
	var available []domain.UserStats
	for _, c := range s.statsSvc.Dashboard(ctx, sess, handles, req.Msg.Refresh) {
		if c.Err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[domain.Platform]ErrorView)
			}
			resp.Errors[c.Platform] = *toErrorView(ctx, c.Err)
			continue
		}
		available = append(available, *c.Stats)
	}

	resp.Report = compass.Advise(available)
	return connect.NewResponse(resp), nil
}

func (s *TrackerServer) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[GetSessionResponse], error) {
	sess, err := s.sessions.Refresh(ctx, session.FromContext(ctx), req.Msg.Refresh)
	if err != nil {
		return nil, toConnectError(ctx, "GetSession", err)
	}

	resp := &GetSessionResponse{User: *sess.User, Subject: sess.Subject}
	if !sess.ExpiresAt.IsZero() {
		expiresAt := sess.ExpiresAt.UTC().Truncate(time.Second)
		resp.ExpiresAt = &expiresAt
	}
	return connect.NewResponse(resp), nil
}
