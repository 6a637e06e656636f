package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goMFA "github.com/MrEthical07/goMFA"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sessionState struct {
	handle string
	code   string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of MFA sessions to open and verify")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		bcryptCost  = flag.Int("bcrypt-cost", 4, "bcrypt cost for challenge hashing (low cost keeps the run honest about store latency)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "amv", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "sessions and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goMFA.DefaultConfig()
	cfg.Session.RedisPrefix = *prefix
	cfg.Credential.BcryptCost = *bcryptCost
	cfg.Credential.DigestKey = []byte("loadtest-digest-key-0123456789ab")
	cfg.Issuance.EnableThrottle = false
	cfg.Metrics.Enabled = true

	engine, err := goMFA.New().
		WithConfig(cfg).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)

	startStats := runStartPhase(ctx, engine, states, *concurrency)
	verifyStats := runVerifyPhase(ctx, engine, states, *concurrency)

	fmt.Println("---- results ----")
	printStats("start", startStats)
	printStats("verify", verifyStats)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("verified=%d failed=%d\n",
		snapshot.Counters[goMFA.MetricVerifySuccess],
		snapshot.Counters[goMFA.MetricVerifyFailure],
	)
}

func runStartPhase(ctx context.Context, engine *goMFA.Engine, states []sessionState, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) {
					return
				}
				principal := fmt.Sprintf("principal-%d", i)
				t0 := time.Now()
				result, err := engine.StartSession(ctx, principal, goMFA.FactorSMSOTP)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					states[i] = sessionState{handle: result.Handle, code: result.Code}
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runVerifyPhase(ctx context.Context, engine *goMFA.Engine, states []sessionState, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) {
					return
				}
				state := states[i]
				if state.handle == "" {
					atomic.AddInt64(&failures, 1)
					continue
				}
				t0 := time.Now()
				outcome, err := engine.VerifyCode(ctx, state.handle, state.code)
				d := time.Since(t0)
				if err != nil || outcome != goMFA.OutcomeVerified {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
