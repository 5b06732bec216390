package loadgen

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGeneratorForProfile(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cases := map[string]string{
		"auth":    "/api/v1/auth/login",
		"members": "/api/v1/members/",
	}
	for profile, prefix := range cases {
		gen, err := generatorForProfile(profile, []string{"sam"})
		if err != nil {
			t.Fatalf("%s: %v", profile, err)
		}
		for i := 0; i < 20; i++ {
			if req := gen(rng); !strings.HasPrefix(req.path, prefix) {
				t.Fatalf("%s: unexpected path %s", profile, req.path)
			}
		}
	}
	if _, err := generatorForProfile("error-heavy", []string{"sam"}); err == nil {
		t.Fatal("expected unknown profile error")
	}
}

func TestRunCountsStatuses(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&hits, 1)
		switch {
		case r.Method == http.MethodPost && r.Header.Get("Content-Type") != "application/json":
			w.WriteHeader(http.StatusBadRequest)
		case n%2 == 0:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL + "/",
		Profile:     "auth",
		Duration:    300 * time.Millisecond,
		RPS:         50,
		Concurrency: 2,
		Usernames:   []string{"sam", "ann"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 || res.Status429 == 0 {
		t.Fatalf("expected requests and throttles, got %+v", res)
	}
	if res.Status4xx != res.TotalRequests || res.Status2xx != 0 || res.Status5xx != 0 {
		t.Fatalf("unexpected status breakdown %+v", res)
	}
}

func TestSplitUsernames(t *testing.T) {
	got := splitUsernames(" sam, ,ann ,")
	if len(got) != 2 || got[0] != "sam" || got[1] != "ann" {
		t.Fatalf("unexpected usernames %v", got)
	}
}

func TestSummary(t *testing.T) {
	got := summary(Result{TotalRequests: 10, Failures: 1, Status2xx: 6, Status4xx: 3, Status429: 2})
	if len(got) != 6 || got[0] != "total_requests=10" || got[4] != "status_429=2" || got[5] != "status_5xx=0" {
		t.Fatalf("unexpected summary %v", got)
	}
}
