// Redirect-path load generator. Builds and starts a real server against a
// throwaway database, hammers /go/{slug} and then checks that no click-count
// increment was lost.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marekbraun/golinks/internal/db"
	"github.com/marekbraun/golinks/internal/models"
)

const linkCount = 200

func main() {
	concurrency := flag.Int("c", 50, "number of concurrent workers")
	duration := flag.Duration("d", 10*time.Second, "benchmark duration")
	flag.Parse()

	fmt.Println("golinks redirect benchmark")
	fmt.Println("==========================")

	fmt.Printf("Building server...     ")
	tmpDir, err := os.MkdirTemp("", "golinks-bench-*")
	if err != nil {
		fatal("create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	binPath := filepath.Join(tmpDir, "golinks-server")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		fatal("build server: %v", err)
	}
	fmt.Println("done")

	fmt.Printf("Seeding database...    ")
	dbPath := filepath.Join(tmpDir, "golinks.db")
	database, err := db.Open(dbPath)
	if err != nil {
		fatal("open db: %v", err)
	}

	slugs := make([]string, linkCount)
	for i := 0; i < linkCount; i++ {
		s := fmt.Sprintf("bench-%03d", i+1)
		slugs[i] = s
		link := &models.Link{
			OwnerID:     "bench-owner",
			Slug:        s,
			Destination: fmt.Sprintf("https://example.com/%d", i+1),
		}
		if err := models.CreateLink(database, link); err != nil {
			database.Close()
			fatal("seed link %d: %v", i+1, err)
		}
	}
	// Separate slug for readiness probes so they stay out of the final tally.
	warmup := &models.Link{OwnerID: "bench-owner", Slug: "warmup", Destination: "https://example.com/warmup"}
	if err := models.CreateLink(database, warmup); err != nil {
		database.Close()
		fatal("seed warmup link: %v", err)
	}
	database.Close()
	fmt.Printf("done (%d links)\n", linkCount)

	fmt.Printf("Starting server...     ")
	port, err := freePort()
	if err != nil {
		fatal("find free port: %v", err)
	}

	srv := exec.Command(binPath)
	srvLog, err := os.Create(filepath.Join(tmpDir, "server.log"))
	if err != nil {
		fatal("create server log: %v", err)
	}
	defer srvLog.Close()
	srv.Stdout = srvLog
	srv.Stderr = srvLog
	srv.Env = append(os.Environ(),
		"GOLINKS_JWT_SECRET=bench",
		"GOLINKS_GOOGLE_CLIENT_ID=bench",
		"GOLINKS_GOOGLE_CLIENT_SECRET=bench",
		fmt.Sprintf("GOLINKS_PORT=%d", port),
		fmt.Sprintf("GOLINKS_DB_PATH=%s", dbPath),
		"GOLINKS_CACHE_SIZE=10000",
		// External IP lookups would dominate the measurement.
		"GOLINKS_IP_LOOKUP_URL=",
	)
	if err := srv.Start(); err != nil {
		fatal("start server: %v", err)
	}
	defer func() {
		srv.Process.Signal(syscall.SIGINT)
		srv.Wait()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitReady(baseURL+"/go/warmup", 5*time.Second); err != nil {
		fatal("server not ready: %v", err)
	}
	fmt.Printf("ready (port %d)\n", port)

	fmt.Printf("Benchmarking...        %s, %d workers\n", *duration, *concurrency)

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: *concurrency,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	rng := rand.New(rand.NewSource(42))
	seeds := make([]int64, *concurrency)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	var (
		mu        sync.Mutex
		latencies []time.Duration
		errCount  int64
		reqCount  atomic.Int64
	)

	deadline := time.Now().Add(*duration)
	var wg sync.WaitGroup

	for i := 0; i < *concurrency; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(seeds[i]))
			var localLats []time.Duration
			var localErrs int64

			for time.Now().Before(deadline) {
				s := slugs[localRng.Intn(linkCount)]

				start := time.Now()
				resp, err := client.Get(baseURL + "/go/" + s)
				elapsed := time.Since(start)

				reqCount.Add(1)

				if err != nil {
					localErrs++
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if resp.StatusCode != http.StatusFound {
					localErrs++
					continue
				}
				localLats = append(localLats, elapsed)
			}

			mu.Lock()
			latencies = append(latencies, localLats...)
			errCount += localErrs
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Stop the server before reopening the database.
	srv.Process.Signal(syscall.SIGINT)
	srv.Wait()

	total := int64(len(latencies)) + errCount
	rps := float64(total) / duration.Seconds()

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println("")
	fmt.Println("Results")
	fmt.Println("-------")
	fmt.Printf("Requests:    %d\n", total)
	fmt.Printf("Errors:      %d\n", errCount)
	fmt.Printf("RPS:         %.1f\n", rps)
	if len(latencies) > 0 {
		fmt.Printf("Latency p50: %s\n", fmtDur(percentile(latencies, 50)))
		fmt.Printf("Latency p95: %s\n", fmtDur(percentile(latencies, 95)))
		fmt.Printf("Latency p99: %s\n", fmtDur(percentile(latencies, 99)))
	}

	// Every successful redirect must have bumped a counter exactly once.
	database, err = db.Open(dbPath)
	if err != nil {
		fatal("reopen db: %v", err)
	}
	defer database.Close()

	var counted int64
	if err := database.QueryRow(`SELECT COALESCE(SUM(click_count), 0) FROM links WHERE slug != 'warmup'`).Scan(&counted); err != nil {
		fatal("sum click counts: %v", err)
	}
	ok := int64(len(latencies))
	fmt.Printf("Increments:  %d recorded / %d successful redirects", counted, ok)
	if counted == ok {
		fmt.Println("  (no lost updates)")
	} else {
		fmt.Println("  MISMATCH")
		os.Exit(1)
	}
}

func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

func waitReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{
		Timeout: 500 * time.Millisecond,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusFound {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout after %s", timeout)
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func fmtDur(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
	os.Exit(1)
}
