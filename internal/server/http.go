package server

import (
	"bytes"
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/middleware"
	"cpulse-tracker/internal/render"
	"cpulse-tracker/internal/session"
	"encoding/json"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const ServicePath = "/cpulse.v1.TrackerService/"

// procedures maps every RPC path to its connect handler.
func (s *TrackerServer) procedures() map[string]http.Handler {
	opts := []connect.HandlerOption{connect.WithCodec(jsonCodec{})}
	return map[string]http.Handler{
		ServicePath + "GetUserStats":         connect.NewUnaryHandler(ServicePath+"GetUserStats", s.GetUserStats, opts...),
		ServicePath + "GetDashboard":         connect.NewUnaryHandler(ServicePath+"GetDashboard", s.GetDashboard, opts...),
		ServicePath + "CompareUsers":         connect.NewUnaryHandler(ServicePath+"CompareUsers", s.CompareUsers, opts...),
		ServicePath + "GetLeaderboard":       connect.NewUnaryHandler(ServicePath+"GetLeaderboard", s.GetLeaderboard, opts...),
		ServicePath + "GetColleges":          connect.NewUnaryHandler(ServicePath+"GetColleges", s.GetColleges, opts...),
		ServicePath + "GetCourseLeaderboard": connect.NewUnaryHandler(ServicePath+"GetCourseLeaderboard", s.GetCourseLeaderboard, opts...),
		ServicePath + "ListPosts":            connect.NewUnaryHandler(ServicePath+"ListPosts", s.ListPosts, opts...),
		ServicePath + "GetThread":            connect.NewUnaryHandler(ServicePath+"GetThread", s.GetThread, opts...),
		ServicePath + "CreatePost":           connect.NewUnaryHandler(ServicePath+"CreatePost", s.CreatePost, opts...),
		ServicePath + "DeletePost":           connect.NewUnaryHandler(ServicePath+"DeletePost", s.DeletePost, opts...),
		ServicePath + "VotePost":             connect.NewUnaryHandler(ServicePath+"VotePost", s.VotePost, opts...),
		ServicePath + "CreateComment":        connect.NewUnaryHandler(ServicePath+"CreateComment", s.CreateComment, opts...),
		ServicePath + "DeleteComment":        connect.NewUnaryHandler(ServicePath+"DeleteComment", s.DeleteComment, opts...),
		ServicePath + "GetCPulseScore":       connect.NewUnaryHandler(ServicePath+"GetCPulseScore", s.GetCPulseScore, opts...),
		ServicePath + "GetCareerCompass":     connect.NewUnaryHandler(ServicePath+"GetCareerCompass", s.GetCareerCompass, opts...),
		ServicePath + "GetSession":           connect.NewUnaryHandler(ServicePath+"GetSession", s.GetSession, opts...),
	}
}

func NewRouter(tracker *TrackerServer, cfg *config.Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	r.Use(chimiddleware.Recoverer)
	r.Use(c.Handler)
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Session())

	r.Get("/healthz", tracker.Health)
	r.Get("/charts/compare.png", tracker.ComparisonChart)
	r.Get("/charts/history.png", tracker.HistoryChart)

	for path, handler := range tracker.procedures() {
		r.Handle(path, handler)
	}

	return r
}

func httpStatus(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *TrackerServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, httpStatus(err), toErrorView(r.Context(), err))
}

type healthStatus struct {
	Database string            `json:"database"`
	Cache    string            `json:"cache"`
	Upstream api.RateLimitInfo `json:"upstream"`
}

// Health reports local dependencies and the last rate limit the backend
// advertised. The backend itself is not called.
func (s *TrackerServer) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.HealthCheckTimeout)
	defer cancel()

	status := healthStatus{Database: "ok", Cache: "ok", Upstream: s.apiClient.GetRateLimitInfo()}
	code := http.StatusOK

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error().Err(err).Msg("database health check failed")
		status.Database = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("cache health check failed")
		status.Cache = err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

func writePNG(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ComparisonChart serves /charts/compare.png?platform=&user1=&user2=.
func (s *TrackerServer) ComparisonChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := session.FromContext(r.Context())

	platform, err := parsePlatform(q.Get("platform"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.compareSvc.Compare(r.Context(), sess, platform, q.Get("user1"), q.Get("user2"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	title := fmt.Sprintf("%s vs %s (%s)", result.User1.Handle, result.User2.Handle, platform)
	var buf bytes.Buffer
	if err := render.ComparisonPNG(&buf, title, result.User1.Handle, result.User2.Handle, result.Rows); err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, &buf)
}

// HistoryChart serves /charts/history.png?platform=&handle= from the stored
// history, which may reach further back than a single upstream payload.
func (s *TrackerServer) HistoryChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess := session.FromContext(r.Context())

	platform, err := parsePlatform(q.Get("platform"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	handle := q.Get("handle")
	points, err := s.statsSvc.History(r.Context(), sess, platform, handle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.HistoryPNG(&buf, fmt.Sprintf("%s (%s)", handle, platform), points); err != nil {
		s.writeError(w, r, err)
		return
	}
	writePNG(w, &buf)
}
