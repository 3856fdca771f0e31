package community

import (
	"cmp"
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	client *api.Client
	logger zerolog.Logger
}

func NewService(client *api.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

type ListOptions struct {
	Tag   string
	Limit int
}

// ListPosts returns posts newest first, optionally restricted to a tag.
func (s *Service) ListPosts(ctx context.Context, sess session.Session, opts ListOptions) ([]domain.Post, error) {
	posts, err := s.client.ListPosts(ctx, sess)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list posts")
		return nil, err
	}

	tag := strings.ToLower(strings.TrimSpace(opts.Tag))
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if tag != "" && !slices.ContainsFunc(p.Tags, func(t string) bool { return strings.ToLower(t) == tag }) {
			continue
		}
		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b domain.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	limit := cmp.Or(opts.Limit, constants.PostListDefaultCap)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type PostThread struct {
	Post   *domain.Post
	Thread Thread
}

func (s *Service) GetThread(ctx context.Context, sess session.Session, postID string) (*PostThread, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, apperr.Validation("missing_post", "post id is required")
	}

	g, gCtx := errgroup.WithContext(ctx)
	var post *domain.Post
	var comments []domain.Comment

	g.Go(func() error {
		var err error
		post, err = s.client.GetPost(gCtx, sess, postID)
		return err
	})

	g.Go(func() error {
		var err error
		comments, err = s.client.ListComments(gCtx, sess, postID)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("failed to load thread")
		return nil, err
	}

	return &PostThread{Post: post, Thread: BuildThread(comments)}, nil
}

func requireToken(sess session.Session) error {
	if !sess.HasToken() {
		return apperr.Unauthorized("login_required", "sign in to take part in discussions")
	}
	return nil
}

func (s *Service) CreatePost(ctx context.Context, sess session.Session, post api.NewPost) (*domain.Post, error) {
	if err := requireToken(sess); err != nil {
		return nil, err
	}

	post.Title = strings.TrimSpace(post.Title)
	post.Content = strings.TrimSpace(post.Content)
	if post.Title == "" {
		return nil, apperr.Validation("missing_title", "title is required")
	}
	if post.Content == "" {
		return nil, apperr.Validation("missing_content", "content is required")
	}

	created, err := s.client.CreatePost(ctx, sess, post)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create post")
		return nil, err
	}

	s.logger.Info().Str("post_id", created.ID).Msg("post created")
	return created, nil
}

func (s *Service) DeletePost(ctx context.Context, sess session.Session, postID string) error {
	if err := requireToken(sess); err != nil {
		return err
	}
	if strings.TrimSpace(postID) == "" {
		return apperr.Validation("missing_post", "post id is required")
	}

	if err := s.client.DeletePost(ctx, sess, postID); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("failed to delete post")
		return err
	}
	return nil
}

func (s *Service) Vote(ctx context.Context, sess session.Session, postID string, direction domain.VoteDirection) (*domain.Post, error) {
	if err := requireToken(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(postID) == "" {
		return nil, apperr.Validation("missing_post", "post id is required")
	}
	if direction != domain.VoteUp && direction != domain.VoteDown {
		return nil, apperr.Validation("invalid_vote", "vote direction must be up or down")
	}

	return s.client.VotePost(ctx, sess, postID, direction)
}

func (s *Service) CreateComment(ctx context.Context, sess session.Session, postID string, comment api.NewComment) (*domain.Comment, error) {
	if err := requireToken(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(postID) == "" {
		return nil, apperr.Validation("missing_post", "post id is required")
	}

	comment.Content = strings.TrimSpace(comment.Content)
	if comment.Content == "" {
		return nil, apperr.Validation("missing_content", "comment cannot be empty")
	}

	created, err := s.client.CreateComment(ctx, sess, postID, comment)
	if err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Msg("failed to create comment")
		return nil, err
	}
	return created, nil
}

func (s *Service) DeleteComment(ctx context.Context, sess session.Session, postID, commentID string) error {
	if err := requireToken(sess); err != nil {
		return err
	}
	if strings.TrimSpace(postID) == "" || strings.TrimSpace(commentID) == "" {
		return apperr.Validation("missing_comment", "post id and comment id are required")
	}

	if err := s.client.DeleteComment(ctx, sess, postID, commentID); err != nil {
		s.logger.Error().Err(err).Str("post_id", postID).Str("comment_id", commentID).Msg("failed to delete comment")
		return err
	}
	return nil
}
