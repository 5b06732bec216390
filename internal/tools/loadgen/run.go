package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	Usernames   []string
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status429     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	body   []byte
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if len(cfg.Usernames) == 0 {
		cfg.Usernames = []string{"admin"}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	gen, err := generatorForProfile(cfg.Profile, cfg.Usernames)
	if err != nil {
		return Result{}, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	client := &http.Client{Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var res Result
	jobs := make(chan request, cfg.Concurrency*2)
	wg := sync.WaitGroup{}
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				send(ctx, client, cfg.BaseURL, job, &res)
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{
				TotalRequests: atomic.LoadInt64(&res.TotalRequests),
				Failures:      atomic.LoadInt64(&res.Failures),
				Status2xx:     atomic.LoadInt64(&res.Status2xx),
				Status4xx:     atomic.LoadInt64(&res.Status4xx),
				Status429:     atomic.LoadInt64(&res.Status429),
				Status5xx:     atomic.LoadInt64(&res.Status5xx),
			}, nil
		case <-ticker.C:
			select {
			case jobs <- gen(rng):
			case <-ctx.Done():
			}
		}
	}
}

func send(ctx context.Context, client *http.Client, baseURL string, job request, res *Result) {
	req, err := http.NewRequestWithContext(ctx, job.method, baseURL+job.path, bytes.NewReader(job.body))
	if err != nil {
		atomic.AddInt64(&res.Failures, 1)
		return
	}
	if job.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			atomic.AddInt64(&res.Failures, 1)
		}
		return
	}
	_ = resp.Body.Close()
	atomic.AddInt64(&res.TotalRequests, 1)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		atomic.AddInt64(&res.Status2xx, 1)
	case resp.StatusCode == http.StatusTooManyRequests:
		atomic.AddInt64(&res.Status429, 1)
		atomic.AddInt64(&res.Status4xx, 1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddInt64(&res.Status4xx, 1)
	case resp.StatusCode >= 500:
		atomic.AddInt64(&res.Status5xx, 1)
	}
}

func generatorForProfile(profile string, usernames []string) (func(*rand.Rand) request, error) {
	pick := func(rng *rand.Rand) string { return usernames[rng.Intn(len(usernames))] }
	badLogin := func(rng *rand.Rand) request {
		body, _ := json.Marshal(map[string]string{"identity": pick(rng), "password": fmt.Sprintf("wrong-%d", rng.Intn(1000))})
		return request{method: http.MethodPost, path: "/api/v1/auth/login", body: body}
	}
	profileView := func(rng *rand.Rand) request {
		sections := []string{"", "/activity"}
		return request{method: http.MethodGet, path: "/api/v1/members/" + pick(rng) + sections[rng.Intn(len(sections))]}
	}
	forgot := func(rng *rand.Rand) request {
		body, _ := json.Marshal(map[string]string{"email": pick(rng) + "@example.com"})
		return request{method: http.MethodPost, path: "/api/v1/auth/password/forgot", body: body}
	}

	switch strings.ToLower(profile) {
	case "", "mixed":
		return func(rng *rand.Rand) request {
			switch n := rng.Intn(10); {
			case n < 6:
				return profileView(rng)
			case n < 9:
				return badLogin(rng)
			default:
				return forgot(rng)
			}
		}, nil
	case "auth":
		return badLogin, nil
	case "members":
		return profileView, nil
	default:
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
}
