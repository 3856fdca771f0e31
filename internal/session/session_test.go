package session

import (
	"context"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/domain"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestFromBearer(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	jwtToken := signedToken(t, jwt.MapClaims{"sub": "user-1", "exp": exp.Unix()})

	tests := []struct {
		name        string
		header      string
		wantToken   string
		wantSubject string
		wantExp     bool
	}{
		{"empty header", "", "", "", false},
		{"basic auth ignored", "Basic dXNlcjpwYXNz", "", "", false},
		{"bearer without token", "Bearer ", "", "", false},
		{"opaque token", "Bearer abc123", "abc123", "", false},
		{"lowercase scheme", "bearer abc123", "abc123", "", false},
		{"jwt token", "Bearer " + jwtToken, jwtToken, "user-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := FromBearer(tt.header)
			if sess.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", sess.Token, tt.wantToken)
			}
			if sess.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", sess.Subject, tt.wantSubject)
			}
			if tt.wantExp && !sess.ExpiresAt.Equal(exp) {
				t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
			}
			if !tt.wantExp && !sess.ExpiresAt.IsZero() {
				t.Errorf("expected zero expiry, got %v", sess.ExpiresAt)
			}
		})
	}
}

func TestFromBearer_IDClaimFallback(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"id": "mongo-id"})
	if sess := FromBearer("Bearer " + token); sess.Subject != "mongo-id" {
		t.Errorf("Subject = %q, want mongo-id", sess.Subject)
	}
}

func TestSessionHelpers(t *testing.T) {
	now := time.Now()
	sess := Session{Token: "t", ExpiresAt: now.Add(-time.Minute)}
	if !sess.Expired(now) {
		t.Error("expected session to be expired")
	}
	if Anonymous.Expired(now) {
		t.Error("sessions without expiry never expire")
	}
	if sess.AuthorizationHeader() != "Bearer t" {
		t.Errorf("unexpected header %q", sess.AuthorizationHeader())
	}
	if Anonymous.AuthorizationHeader() != "" {
		t.Error("anonymous session must not produce a header")
	}

	ctx := WithContext(context.Background(), sess)
	if FromContext(ctx).Token != "t" {
		t.Error("expected session from context")
	}
	if FromContext(context.Background()).HasToken() {
		t.Error("expected anonymous session for bare context")
	}
}

type fakeFetcher struct {
	calls int
	user  *domain.User
	err   error
}

func (f *fakeFetcher) Me(ctx context.Context, sess Session) (*domain.User, error) {
	f.calls++
	return f.user, f.err
}

type memoryStore struct {
	snaps   map[string]*Snapshot
	failPut bool
}

func (m *memoryStore) Get(ctx context.Context, token string) (*Snapshot, error) {
	return m.snaps[token], nil
}

func (m *memoryStore) Upsert(ctx context.Context, sess Session, refreshedAt time.Time) error {
	if m.failPut {
		return errors.New("disk full")
	}
	m.snaps[sess.Token] = &Snapshot{Session: sess, RefreshedAt: refreshedAt}
	return nil
}

func TestHolder_Refresh(t *testing.T) {
	user := &domain.User{ID: "u1", Name: "Alice"}
	fetcher := &fakeFetcher{user: user}
	store := &memoryStore{snaps: map[string]*Snapshot{}}
	holder := NewHolder(fetcher, store, time.Minute, zerolog.Nop())

	sess, err := holder.Refresh(context.Background(), Session{Token: "tok"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.User == nil || sess.User.ID != "u1" || sess.Subject != "u1" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if _, err := holder.Refresh(context.Background(), Session{Token: "tok"}, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("expected stored snapshot to be reused, fetcher called %d times", fetcher.calls)
	}

	if _, err := holder.Refresh(context.Background(), Session{Token: "tok"}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("expected forced refresh to call fetcher, got %d calls", fetcher.calls)
	}
}

func TestHolder_RefreshStaleSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{user: &domain.User{ID: "u1"}}
	store := &memoryStore{snaps: map[string]*Snapshot{}}
	holder := NewHolder(fetcher, store, time.Minute, zerolog.Nop())

	start := time.Now()
	holder.now = func() time.Time { return start }
	if _, err := holder.Refresh(context.Background(), Session{Token: "tok"}, false); err != nil {
		t.Fatal(err)
	}

	holder.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := holder.Refresh(context.Background(), Session{Token: "tok"}, false); err != nil {
		t.Fatal(err)
	}
	if fetcher.calls != 2 {
		t.Errorf("expected stale snapshot to be refetched, got %d calls", fetcher.calls)
	}
}

func TestHolder_RefreshErrors(t *testing.T) {
	holder := NewHolder(&fakeFetcher{}, &memoryStore{snaps: map[string]*Snapshot{}}, time.Minute, zerolog.Nop())

	if _, err := holder.Refresh(context.Background(), Anonymous, false); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized for anonymous session, got %v", err)
	}

	expired := Session{Token: "tok", ExpiresAt: time.Now().Add(-time.Second)}
	if _, err := holder.Refresh(context.Background(), expired, false); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized for expired session, got %v", err)
	}

	upstream := apperr.Upstream("http", "down", nil)
	failing := NewHolder(&fakeFetcher{err: upstream}, &memoryStore{snaps: map[string]*Snapshot{}}, time.Minute, zerolog.Nop())
	if _, err := failing.Refresh(context.Background(), Session{Token: "tok"}, false); !errors.Is(err, upstream) {
		t.Errorf("expected fetcher error to propagate, got %v", err)
	}
}

func TestHolder_RefreshSurvivesStoreFailure(t *testing.T) {
	holder := NewHolder(&fakeFetcher{user: &domain.User{ID: "u1"}}, &memoryStore{snaps: map[string]*Snapshot{}, failPut: true}, time.Minute, zerolog.Nop())
	sess, err := holder.Refresh(context.Background(), Session{Token: "tok"}, false)
	if err != nil {
		t.Fatalf("store failure must not fail the refresh: %v", err)
	}
	if sess.User == nil {
		t.Error("expected user on session")
	}
}

func TestTokenHash(t *testing.T) {
	if Anonymous.TokenHash() != "" {
		t.Error("anonymous session must have no token hash")
	}
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := (Session{Token: "abc"}).TokenHash(); got != want {
		t.Errorf("TokenHash() = %s, want %s", got, want)
	}
}
