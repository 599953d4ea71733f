package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// step is one call of a simulated working day.
type step struct {
	method string
	path   string
	body   string
}

var workday = []step{
	{http.MethodPost, "/api/v1/tracking/clock-in", ""},
	{http.MethodPost, "/api/v1/tracking/pauses", `{"type":"meal"}`},
	{http.MethodGet, "/api/v1/tracking/state", ""},
	{http.MethodPost, "/api/v1/tracking/pauses/end", ""},
	{http.MethodPost, "/api/v1/tracking/clock-out", ""},
	{http.MethodGet, "/api/v1/stats/weekly", ""},
	{http.MethodDelete, "/api/v1/tracking/session", ""},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	numUsers := flag.Int("users", 2000, "simulated users")
	concurrency := flag.Int("concurrency", 50, "concurrent users")
	flag.Parse()

	totalRequests := *numUsers * len(workday)
	fmt.Printf("Starting load test: %d users (%d requests each) against %s with concurrency %d\n",
		*numUsers, len(workday), *baseURL, *concurrency)

	client := &http.Client{Timeout: 10 * time.Second}
	var successCount, failCount int64

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	startTime := time.Now()
	for i := 0; i < *numUsers; i++ {
		userID := fmt.Sprintf("load-test-user-%d", i)
		g.Go(func() error {
			for _, s := range workday {
				if call(ctx, client, *baseURL, userID, s) {
					atomic.AddInt64(&successCount, 1)
				} else {
					atomic.AddInt64(&failCount, 1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Successful:     %d\n", successCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}

func call(ctx context.Context, client *http.Client, baseURL, userID string, s step) bool {
	req, err := http.NewRequestWithContext(ctx, s.method, baseURL+s.path, strings.NewReader(s.body))
	if err != nil {
		return false
	}
	req.Header.Set("X-User-ID", userID)
	if s.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
