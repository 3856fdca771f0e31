package leaderboard

import (
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/cache"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func sampleEntries() []domain.LeaderboardEntry {
	return []domain.LeaderboardEntry{
		{Handle: "tourist", Platform: domain.PlatformCodeforces, Rating: 3800},
		{Handle: "neal", Platform: domain.PlatformLeetCode, Rating: 3100},
		{Handle: "Benq", Platform: domain.PlatformCodeforces, Rating: 3600},
		{Handle: "gennady", Platform: domain.PlatformCodeChef, Rating: 3400},
		{Handle: "ecnerwala", Platform: domain.PlatformCodeforces, Rating: 3500},
	}
}

func handles(entries []domain.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Handle
	}
	return out
}

func equal(t *testing.T, got []domain.LeaderboardEntry, want ...string) {
	t.Helper()
	h := handles(got)
	if len(h) != len(want) {
		t.Fatalf("expected %v, got %v", want, h)
	}
	for i := range want {
		if h[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, h)
		}
	}
}

func TestApply_RatingOrderReverses(t *testing.T) {
	entries := sampleEntries()

	desc := Apply(entries, Query{SortBy: SortByRating, Order: Desc})
	asc := Apply(entries, Query{SortBy: SortByRating, Order: Asc})

	equal(t, desc, "tourist", "Benq", "ecnerwala", "gennady", "neal")
	for i := range desc {
		if desc[i].Handle != asc[len(asc)-1-i].Handle {
			t.Fatalf("asc %v is not the reverse of desc %v", handles(asc), handles(desc))
		}
	}
}

func TestApply_PlatformFilterKeepsOrder(t *testing.T) {
	got := Apply(sampleEntries(), Query{Platform: domain.PlatformCodeforces})
	equal(t, got, "tourist", "Benq", "ecnerwala")
}

func TestApply_SearchIsCaseInsensitive(t *testing.T) {
	got := Apply(sampleEntries(), Query{Search: "TOUR"})
	equal(t, got, "tourist")

	got = Apply(sampleEntries(), Query{Search: "nq"})
	equal(t, got, "Benq")
}

func TestApply_StableTies(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{Handle: "a", Platform: domain.PlatformLeetCode, Rating: 10},
		{Handle: "b", Platform: domain.PlatformCodeforces, Rating: 10},
		{Handle: "c", Platform: domain.PlatformLeetCode, Rating: 10},
		{Handle: "d", Platform: domain.PlatformCodeforces, Rating: 10},
	}

	equal(t, Apply(entries, Query{SortBy: SortByRating, Order: Desc}), "a", "b", "c", "d")
	equal(t, Apply(entries, Query{SortBy: SortByPlatform, Order: Asc}), "b", "d", "a", "c")
	equal(t, Apply(entries, Query{SortBy: SortByPlatform, Order: Desc}), "a", "c", "b", "d")
}

func TestApply_HandleSortAndNoMutation(t *testing.T) {
	entries := sampleEntries()
	before := handles(entries)

	got := Apply(entries, Query{SortBy: SortByHandle, Order: Asc})
	equal(t, got, "Benq", "ecnerwala", "gennady", "neal", "tourist")

	for i, h := range handles(entries) {
		if h != before[i] {
			t.Fatalf("input was mutated: %v", handles(entries))
		}
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("CodeForces", " tour ", "Rating", "")
	if err != nil {
		t.Fatalf("ParseQuery failed: %v", err)
	}
	if q.Platform != domain.PlatformCodeforces || q.Search != "tour" || q.SortBy != SortByRating || q.Order != Desc {
		t.Errorf("unexpected query %+v", q)
	}

	tests := []struct {
		name                          string
		platform, search, sort, order string
	}{
		{"bad platform", "topcoder", "", "", ""},
		{"bad sort", "", "", "score", ""},
		{"bad order", "", "", "rating", "sideways"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseQuery(tt.platform, tt.search, tt.sort, tt.order); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{APIBaseURL: server.URL, LeaderboardTTL: time.Minute}
	return NewService(api.NewClient(cfg), cache.NewMemory(), cfg, zerolog.Nop()), &calls
}

func TestService_GlobalIsCached(t *testing.T) {
	svc, calls := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leaderboard" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"handle":"neal","platform":"leetcode","rating":3100},{"handle":"tourist","platform":"codeforces","rating":3800}]`))
	})
	ctx := context.Background()

	got, err := svc.Global(ctx, session.Anonymous, Query{SortBy: SortByRating, Order: Desc})
	if err != nil {
		t.Fatalf("Global failed: %v", err)
	}
	equal(t, got, "tourist", "neal")

	got, err = svc.Global(ctx, session.Anonymous, Query{Platform: domain.PlatformLeetCode})
	if err != nil {
		t.Fatalf("cached Global failed: %v", err)
	}
	equal(t, got, "neal")

	if calls.Load() != 1 {
		t.Errorf("expected one upstream call, got %d", calls.Load())
	}
}

func TestService_CollegesSortedByAverage(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"A","averageRating":1500},{"name":"B","averageRating":1900},{"name":"C","averageRating":1700}]`))
	})

	got, err := svc.Colleges(context.Background(), session.Anonymous)
	if err != nil {
		t.Fatalf("Colleges failed: %v", err)
	}
	if len(got) != 3 || got[0].Name != "B" || got[1].Name != "C" || got[2].Name != "A" {
		t.Errorf("unexpected order %+v", got)
	}
}

func TestService_Course(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/courses/cs101/leaderboard" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"course":{"id":"cs101","name":"Intro"},"entries":[{"handle":"x","platform":"codechef","rating":1200},{"handle":"y","platform":"codechef","rating":1800}]}`))
	})
	ctx := context.Background()

	board, err := svc.Course(ctx, session.Anonymous, "cs101", Query{SortBy: SortByRating, Order: Desc})
	if err != nil {
		t.Fatalf("Course failed: %v", err)
	}
	if board.Course.Name != "Intro" {
		t.Errorf("unexpected course %+v", board.Course)
	}
	equal(t, board.Entries, "y", "x")

	if _, err := svc.Course(ctx, session.Anonymous, "nope", Query{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.Course(ctx, session.Anonymous, " ", Query{}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
