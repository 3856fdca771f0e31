package api

import (
	"context"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/valyala/fasthttp"
)

// Metrics returns the raw per-platform payload; its shape differs between
// platforms and is decoded by the stats package.
func (c *Client) Metrics(ctx context.Context, sess session.Session, platform domain.Platform, handle string) (json.RawMessage, error) {
	path := fmt.Sprintf("/api/metrics/%s/%s", url.PathEscape(string(platform)), url.PathEscape(handle))
	raw, err := doRequest[json.RawMessage](ctx, c, sess, fasthttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return *raw, nil
}

func (c *Client) Leaderboard(ctx context.Context, sess session.Session) ([]domain.LeaderboardEntry, error) {
	entries, err := doRequest[[]domain.LeaderboardEntry](ctx, c, sess, fasthttp.MethodGet, "/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func (c *Client) Colleges(ctx context.Context, sess session.Session) ([]domain.College, error) {
	colleges, err := doRequest[[]domain.College](ctx, c, sess, fasthttp.MethodGet, "/api/colleges", nil)
	if err != nil {
		return nil, err
	}
	return *colleges, nil
}

type CourseLeaderboardResponse struct {
	Course  domain.Course             `json:"course"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

func (c *Client) CourseLeaderboard(ctx context.Context, sess session.Session, courseID string) (*CourseLeaderboardResponse, error) {
	path := fmt.Sprintf("/api/courses/%s/leaderboard", url.PathEscape(courseID))
	return doRequest[CourseLeaderboardResponse](ctx, c, sess, fasthttp.MethodGet, path, nil)
}

func (c *Client) ListPosts(ctx context.Context, sess session.Session) ([]domain.Post, error) {
	posts, err := doRequest[[]domain.Post](ctx, c, sess, fasthttp.MethodGet, "/api/posts", nil)
	if err != nil {
		return nil, err
	}
	return *posts, nil
}

func (c *Client) GetPost(ctx context.Context, sess session.Session, postID string) (*domain.Post, error) {
	return doRequest[domain.Post](ctx, c, sess, fasthttp.MethodGet, "/api/posts/"+url.PathEscape(postID), nil)
}

type NewPost struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (c *Client) CreatePost(ctx context.Context, sess session.Session, post NewPost) (*domain.Post, error) {
	return doRequest[domain.Post](ctx, c, sess, fasthttp.MethodPost, "/api/posts", post)
}

func (c *Client) DeletePost(ctx context.Context, sess session.Session, postID string) error {
	_, err := doRequest[struct{}](ctx, c, sess, fasthttp.MethodDelete, "/api/posts/"+url.PathEscape(postID), nil)
	return err
}

type voteRequest struct {
	Direction domain.VoteDirection `json:"direction"`
}

func (c *Client) VotePost(ctx context.Context, sess session.Session, postID string, direction domain.VoteDirection) (*domain.Post, error) {
	path := fmt.Sprintf("/api/posts/%s/vote", url.PathEscape(postID))
	return doRequest[domain.Post](ctx, c, sess, fasthttp.MethodPost, path, voteRequest{Direction: direction})
}

func (c *Client) ListComments(ctx context.Context, sess session.Session, postID string) ([]domain.Comment, error) {
	path := fmt.Sprintf("/api/posts/%s/comments", url.PathEscape(postID))
	comments, err := doRequest[[]domain.Comment](ctx, c, sess, fasthttp.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return *comments, nil
}

type NewComment struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId,omitempty"`
}

func (c *Client) CreateComment(ctx context.Context, sess session.Session, postID string, comment NewComment) (*domain.Comment, error) {
	path := fmt.Sprintf("/api/posts/%s/comments", url.PathEscape(postID))
	return doRequest[domain.Comment](ctx, c, sess, fasthttp.MethodPost, path, comment)
}

func (c *Client) DeleteComment(ctx context.Context, sess session.Session, postID, commentID string) error {
	path := fmt.Sprintf("/api/posts/%s/comments/%s", url.PathEscape(postID), url.PathEscape(commentID))
	_, err := doRequest[struct{}](ctx, c, sess, fasthttp.MethodDelete, path, nil)
	return err
}

func (c *Client) Me(ctx context.Context, sess session.Session) (*domain.User, error) {
	return doRequest[domain.User](ctx, c, sess, fasthttp.MethodGet, "/api/auth/me", nil)
}

func (c *Client) CPulseScore(ctx context.Context, sess session.Session) (*domain.CPulseScore, error) {
	return doRequest[domain.CPulseScore](ctx, c, sess, fasthttp.MethodGet, "/api/cpulse/score", nil)
}
