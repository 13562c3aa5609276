// Command cachecheck requests the analytics report twice against a running
// server and reports whether the second call was served from Redis.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"stablehub/internal/shared/config"
	"stablehub/internal/shared/constants"
	"stablehub/pkg/cache"

	"github.com/joho/godotenv"
)

type CacheCheckResult struct {
	Request      int           `json:"request"`
	CacheStatus  string        `json:"cache_status"`
	ResponseTime time.Duration `json:"response_time"`
	DataSize     int           `json:"data_size"`
	StatusCode   int           `json:"status_code"`
	Error        string        `json:"error,omitempty"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080/api/v1", "API base URL")
	token := flag.String("token", os.Getenv("STABLEHUB_TOKEN"), "bearer token of a stable manager")
	stableID := flag.String("stable", "", "stable ID")
	from := flag.String("from", time.Now().AddDate(0, 0, -30).Format("2006-01-02"), "first day (YYYY-MM-DD)")
	to := flag.String("to", time.Now().Format("2006-01-02"), "last day (YYYY-MM-DD)")
	out := flag.String("out", "", "write the results as JSON to this file")
	flag.Parse()

	if *stableID == "" || *token == "" {
		log.Fatal("-stable and -token are required")
	}

	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("🧪 Checking analytics cache...")

	rdb, err := cache.NewClient(ctx, cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("❌ Redis connection failed: %v", err)
	}
	defer rdb.Close()
	fmt.Println("✅ Redis connection: OK")

	store := cache.NewService(rdb)
	if err := store.DeletePattern(ctx, constants.AnalyticsStablePattern(*stableID)); err != nil {
		log.Fatalf("❌ Failed to clear cached reports: %v", err)
	}

	query := url.Values{"stableId": {*stableID}, "startDate": {*from}, "endDate": {*to}}
	endpoint := *baseURL + "/facility-reservations/analytics?" + query.Encode()
	key := constants.BuildAnalyticsKey(*stableID, "", *from, *to)

	client := &http.Client{Timeout: 30 * time.Second}
	results := make([]CacheCheckResult, 0, 2)
	for i := 1; i <= 2; i++ {
		result := fetch(ctx, client, endpoint, *token)
		result.Request = i

		var cached json.RawMessage
		switch err := store.Get(ctx, key, &cached); {
		case err == nil:
			result.CacheStatus = "STORED"
		case errors.Is(err, cache.ErrCacheMiss):
			result.CacheStatus = "ABSENT"
		default:
			result.CacheStatus = "ERROR"
		}
		if i == 1 {
			result.CacheStatus = "MISS/" + result.CacheStatus
		} else {
			result.CacheStatus = "HIT/" + result.CacheStatus
		}
		results = append(results, result)

		icon := "✅"
		if result.Error != "" {
			icon = "❌"
		}
		fmt.Printf("   %s request %d [%s] %v (%d bytes)\n", icon, i, result.CacheStatus, result.ResponseTime, result.DataSize)
	}

	if results[0].Error == "" && results[1].Error == "" && results[0].ResponseTime > 0 {
		improvement := float64(results[0].ResponseTime-results[1].ResponseTime) / float64(results[0].ResponseTime) * 100
		fmt.Printf("\n📈 Performance improvement: %.1f%% (%v -> %v)\n", improvement, results[0].ResponseTime, results[1].ResponseTime)
	}

	if *out != "" {
		data, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Fatalf("❌ Failed to write %s: %v", *out, err)
		}
		fmt.Printf("💾 Detailed results saved to %s\n", *out)
	}
}

func fetch(ctx context.Context, client *http.Client, endpoint, token string) CacheCheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CacheCheckResult{Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return CacheCheckResult{ResponseTime: time.Since(start), Error: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result := CacheCheckResult{ResponseTime: time.Since(start), DataSize: len(body), StatusCode: resp.StatusCode}
	if err != nil {
		result.Error = err.Error()
	} else if resp.StatusCode >= http.StatusBadRequest {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}
