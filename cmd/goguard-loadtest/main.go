package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goGuard "github.com/MrEthical07/goGuard"
)

type requester struct {
	addr  string
	req   goGuard.Requester
	token string
}

func main() {
	var (
		clients     = flag.Int("clients", 10000, "number of distinct client addresses")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (rate limit + csrf)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		maxRequests = flag.Int("max", 60, "requests allowed per client per window")
	)
	flag.Parse()

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 || *maxRequests <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, ops, and max must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := goGuard.New().
		WithRedis(client).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	limit := goGuard.Limit{MaxRequests: *maxRequests, Window: time.Minute}

	pool := make([]requester, *clients)
	fmt.Printf("issuing %d csrf tokens...\n", *clients)
	startSeed := time.Now()
	for i := range pool {
		ip := fmt.Sprintf("10.%d.%d.%d", (i>>16)&0xFF, (i>>8)&0xFF, i&0xFF)
		req := goGuard.Requester{IP: ip, UserAgent: "goguard-loadtest"}
		tok, err := engine.IssueCSRFToken(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		pool[i] = requester{addr: ip + ":40000", req: req, token: tok.Value}
	}
	fmt.Printf("issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	rateStats := runPhase(*ops, *concurrency, len(pool), func(idx int) error {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = pool[idx].addr
		_, err := engine.CheckRateLimit(r, limit, "")
		var limited *goGuard.RateLimitError
		if errors.As(err, &limited) {
			return errDenied
		}
		return err
	})
	csrfStats := runPhase(*ops, *concurrency, len(pool), func(idx int) error {
		return engine.ValidateCSRFToken(ctx, pool[idx].token, pool[idx].req, false)
	})

	fmt.Println("---- results ----")
	printStats("rate_limit", rateStats)
	printStats("csrf_validate", csrfStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: allowed=%d denied=%d csrf_ok=%d backend_errors=%d\n",
		snap.Counters[goGuard.MetricRateLimitAllowed],
		snap.Counters[goGuard.MetricRateLimitHit],
		snap.Counters[goGuard.MetricCSRFValidationSuccess],
		snap.Counters[goGuard.MetricBackendError],
	)
}

// errDenied marks an operation the guard refused; it is counted apart from
// failures.
var errDenied = errors.New("denied")

func runPhase(ops, concurrency, size int, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		denied    int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r.Intn(size))
				d := time.Since(t0)
				switch {
				case errors.Is(err, errDenied):
					atomic.AddInt64(&denied, 1)
				case err != nil:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	stats := computeStats(total, latencies, failures)
	stats.denied = denied
	return stats
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	denied   int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d denied=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.denied,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
