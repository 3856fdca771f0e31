package community

import (
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func ids(comments []domain.Comment) []string {
	out := make([]string, len(comments))
	for i, c := range comments {
		out[i] = c.ID
	}
	return out
}

func sameIDs(a []domain.Comment, want ...string) bool {
	got := ids(a)
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBuildThread_SingleReply(t *testing.T) {
	thread := BuildThread([]domain.Comment{{ID: "a"}, {ID: "b", ParentID: "a"}})

	if !sameIDs(thread.TopLevel, "a") {
		t.Errorf("expected top-level [a], got %v", ids(thread.TopLevel))
	}
	if len(thread.Replies) != 1 || !sameIDs(thread.Replies["a"], "b") {
		t.Errorf("expected replies {a:[b]}, got %v", thread.Replies)
	}
}

func TestBuildThread_FlattensNestedReplies(t *testing.T) {
	thread := BuildThread([]domain.Comment{
		{ID: "c", ParentID: "b"},
		{ID: "a"},
		{ID: "b", ParentID: "a"},
		{ID: "x"},
		{ID: "d", ParentID: "c"},
		{ID: "y", ParentID: "x"},
	})

	if !sameIDs(thread.TopLevel, "a", "x") {
		t.Errorf("unexpected top-level %v", ids(thread.TopLevel))
	}
	if !sameIDs(thread.Replies["a"], "c", "b", "d") {
		t.Errorf("expected input order under a, got %v", ids(thread.Replies["a"]))
	}
	if !sameIDs(thread.Replies["x"], "y") {
		t.Errorf("unexpected replies under x %v", ids(thread.Replies["x"]))
	}
}

func TestBuildThread_Orphans(t *testing.T) {
	thread := BuildThread([]domain.Comment{
		{ID: "a"},
		{ID: "r1", ParentID: "gone"},
		{ID: "r2", ParentID: "r1"},
		{ID: "p", ParentID: "q"},
		{ID: "q", ParentID: "p"},
	})

	if !sameIDs(thread.TopLevel, "a") {
		t.Errorf("unexpected top-level %v", ids(thread.TopLevel))
	}
	if !sameIDs(thread.Replies["gone"], "r1", "r2") {
		t.Errorf("expected orphans grouped under the missing ancestor, got %v", thread.Replies)
	}
	if len(thread.Replies["a"]) != 0 {
		t.Errorf("orphans must not appear under a top-level comment, got %v", ids(thread.Replies["a"]))
	}
	total := 0
	for _, group := range thread.Replies {
		total += len(group)
	}
	if total != 4 {
		t.Errorf("expected every reply to be grouped once, got %d", total)
	}
}

func TestBuildThread_Empty(t *testing.T) {
	thread := BuildThread(nil)
	if len(thread.TopLevel) != 0 || len(thread.Replies) != 0 {
		t.Errorf("expected empty thread, got %+v", thread)
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewService(api.NewClient(&config.Config{APIBaseURL: server.URL}), zerolog.Nop())
}

func TestService_ListPosts(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"_id":"1","title":"old","tags":["dp"],"createdAt":"2024-01-01T00:00:00Z"},
			{"_id":"2","title":"new","tags":["graphs"],"createdAt":"2024-03-01T00:00:00Z"},
			{"_id":"3","title":"mid","tags":["DP"],"createdAt":"2024-02-01T00:00:00Z"}
		]`))
	})
	ctx := context.Background()

	posts, err := svc.ListPosts(ctx, session.Anonymous, ListOptions{})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 3 || posts[0].ID != "2" || posts[1].ID != "3" || posts[2].ID != "1" {
		t.Errorf("expected newest first, got %+v", posts)
	}

	posts, err = svc.ListPosts(ctx, session.Anonymous, ListOptions{Tag: "dp", Limit: 1})
	if err != nil {
		t.Fatalf("ListPosts with tag failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "3" {
		t.Errorf("unexpected filtered posts %+v", posts)
	}
}

func TestService_GetThread(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/posts/p1":
			w.Write([]byte(`{"_id":"p1","title":"hello"}`))
		case "/api/posts/p1/comments":
			w.Write([]byte(`[{"_id":"a","postId":"p1"},{"_id":"b","postId":"p1","parentId":"a"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	got, err := svc.GetThread(ctx, session.Anonymous, "p1")
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if got.Post.Title != "hello" || !sameIDs(got.Thread.TopLevel, "a") || !sameIDs(got.Thread.Replies["a"], "b") {
		t.Errorf("unexpected thread %+v", got)
	}

	if _, err := svc.GetThread(ctx, session.Anonymous, "p2"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_WritesRequireToken(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call %s %s", r.Method, r.URL.Path)
	})
	ctx := context.Background()
	anon := session.Anonymous

	if _, err := svc.CreatePost(ctx, anon, api.NewPost{Title: "t", Content: "c"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("CreatePost: expected unauthorized, got %v", err)
	}
	if err := svc.DeletePost(ctx, anon, "p1"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("DeletePost: expected unauthorized, got %v", err)
	}
	if _, err := svc.Vote(ctx, anon, "p1", domain.VoteUp); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("Vote: expected unauthorized, got %v", err)
	}
	if _, err := svc.CreateComment(ctx, anon, "p1", api.NewComment{Content: "hi"}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("CreateComment: expected unauthorized, got %v", err)
	}
	if err := svc.DeleteComment(ctx, anon, "p1", "c1"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("DeleteComment: expected unauthorized, got %v", err)
	}
}

func TestService_WriteValidation(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call %s %s", r.Method, r.URL.Path)
	})
	ctx := context.Background()
	sess := session.Session{Token: "tok"}

	if _, err := svc.CreatePost(ctx, sess, api.NewPost{Title: "  ", Content: "c"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for empty title, got %v", err)
	}
	if _, err := svc.CreatePost(ctx, sess, api.NewPost{Title: "t"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for empty content, got %v", err)
	}
	if _, err := svc.Vote(ctx, sess, "p1", "sideways"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for vote direction, got %v", err)
	}
	if _, err := svc.CreateComment(ctx, sess, "p1", api.NewComment{Content: "\n"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for empty comment, got %v", err)
	}
}

func TestService_CreateCommentAndVote(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/posts/p1/comments":
			var body api.NewComment
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(domain.Comment{ID: "c9", PostID: "p1", ParentID: body.ParentID, Content: body.Content})
		case r.Method == http.MethodPost && r.URL.Path == "/api/posts/p1/vote":
			w.Write([]byte(`{"_id":"p1","upvotes":4,"downvotes":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()
	sess := session.Session{Token: "tok"}

	c, err := svc.CreateComment(ctx, sess, "p1", api.NewComment{Content: " nice ", ParentID: "a"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if c.Content != "nice" || c.ParentID != "a" {
		t.Errorf("unexpected comment %+v", c)
	}

	p, err := svc.Vote(ctx, sess, "p1", domain.VoteUp)
	if err != nil {
		t.Fatalf("Vote failed: %v", err)
	}
	if p.Score() != 3 {
		t.Errorf("expected score 3, got %d", p.Score())
	}
}
