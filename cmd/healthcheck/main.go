// Command healthcheck probes a deployed payment engine and reports whether
// the instance is fit to receive traffic. It checks the health, version and
// ping endpoints, then samples health response times. Exit code 0 means every
// check passed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/errgroup"
)

const (
	// maxAverageResponseTime fails the latency check when the mean health
	// probe exceeds it.
	maxAverageResponseTime = time.Second
	// minSuccessRatio fails the latency check when fewer probes succeed.
	minSuccessRatio = 0.95
	// samplePause spaces out the sequential latency probes.
	samplePause = 100 * time.Millisecond
)

// healthPayload is the subset of the health response the probe inspects.
type healthPayload struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Dependencies map[string]struct {
		State   string `json:"state"`
		Healthy bool   `json:"healthy"`
	} `json:"dependencies"`
}

// checkResult is one line of the final report.
type checkResult struct {
	name   string
	passed bool
	detail string
}

type prober struct {
	baseURL string
	client  *http.Client
}

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "base URL of the payment engine")
	samples := flag.Int("samples", 10, "number of response time samples")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	p := &prober{
		baseURL: *baseURL,
		client:  &http.Client{Timeout: *timeout},
	}

	fmt.Printf("Checking deployment at %s\n\n", p.baseURL)

	var (
		mu      sync.Mutex
		results []checkResult
	)

	record := func(r checkResult) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}

	// The endpoint checks are independent, so they run concurrently.
	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		record(p.checkHealth(ctx))
		return nil
	})

	group.Go(func() error {
		record(p.checkVersion(ctx))
		return nil
	})

	group.Go(func() error {
		record(p.checkPing(ctx))
		return nil
	})

	if err := group.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "probe aborted: %v\n", err)
		os.Exit(1)
	}

	// Latency sampling is sequential so samples do not contend with each
	// other.
	results = append(results, p.checkResponseTimes(context.Background(), *samples))

	sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })

	allPassed := true

	for _, r := range results {
		status := "PASS"
		if !r.passed {
			status = "FAIL"
			allPassed = false
		}

		fmt.Printf("[%s] %-15s %s\n", status, r.name, r.detail)
	}

	if !allPassed {
		fmt.Println("\nDeployment health check FAILED")
		os.Exit(1)
	}

	fmt.Println("\nDeployment health check passed")
}

// checkHealth verifies the health endpoint answers 200 with every dependency
// breaker reporting healthy.
func (p *prober) checkHealth(ctx context.Context) checkResult {
	name := "health"

	body, status, err := p.get(ctx, "/health")
	if err != nil {
		return checkResult{name: name, detail: err.Error()}
	}

	var payload healthPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return checkResult{name: name, detail: fmt.Sprintf("malformed response: %v", err)}
	}

	if status != http.StatusOK || payload.Status != "healthy" {
		degraded := make([]string, 0, len(payload.Dependencies))
		for dep, d := range payload.Dependencies {
			if !d.Healthy {
				degraded = append(degraded, fmt.Sprintf("%s=%s", dep, d.State))
			}
		}

		sort.Strings(degraded)

		return checkResult{name: name, detail: fmt.Sprintf("status=%s http=%d degraded=%v", payload.Status, status, degraded)}
	}

	return checkResult{name: name, passed: true, detail: fmt.Sprintf("version=%s dependencies=%d", payload.Version, len(payload.Dependencies))}
}

// checkVersion verifies the version endpoint reports a version string.
func (p *prober) checkVersion(ctx context.Context) checkResult {
	name := "version"

	body, status, err := p.get(ctx, "/version")
	if err != nil {
		return checkResult{name: name, detail: err.Error()}
	}

	var payload struct {
		Version string `json:"version"`
	}

	if status != http.StatusOK || json.Unmarshal(body, &payload) != nil || payload.Version == "" {
		return checkResult{name: name, detail: fmt.Sprintf("http=%d", status)}
	}

	return checkResult{name: name, passed: true, detail: payload.Version}
}

// checkPing verifies the bare liveness probe.
func (p *prober) checkPing(ctx context.Context) checkResult {
	name := "ping"

	body, status, err := p.get(ctx, "/ping")
	if err != nil {
		return checkResult{name: name, detail: err.Error()}
	}

	if status != http.StatusOK || string(body) != "pong" {
		return checkResult{name: name, detail: fmt.Sprintf("http=%d body=%q", status, body)}
	}

	return checkResult{name: name, passed: true, detail: "pong"}
}

// checkResponseTimes samples the health endpoint and applies the latency
// budget: average under one second and at least 95% of probes succeeding.
func (p *prober) checkResponseTimes(ctx context.Context, samples int) checkResult {
	name := "response_times"

	if samples <= 0 {
		samples = 1
	}

	var (
		total      time.Duration
		successful int
	)

	for i := 0; i < samples; i++ {
		started := time.Now()

		_, status, err := p.get(ctx, "/health")
		if err == nil && status == http.StatusOK {
			total += time.Since(started)
			successful++
		}

		time.Sleep(samplePause)
	}

	ratio := float64(successful) / float64(samples)

	if successful == 0 {
		return checkResult{name: name, detail: "no successful samples"}
	}

	average := total / time.Duration(successful)

	detail := fmt.Sprintf("avg=%s success=%d/%d", average.Round(time.Millisecond), successful, samples)

	if average > maxAverageResponseTime || ratio < minSuccessRatio {
		return checkResult{name: name, detail: detail}
	}

	return checkResult{name: name, passed: true, detail: detail}
}

// get fetches a path and returns the body and status code.
func (p *prober) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", path, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s response: %w", path, err)
	}

	return body, resp.StatusCode, nil
}
