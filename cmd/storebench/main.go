package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/akamensky/argparse"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// clientState is one simulated client: its own token store and the
// generation it last wrote.
type clientState struct {
	store *session.Store
	gen   int
	mu    sync.Mutex
}

func main() {
	parser := argparse.NewParser("storebench", "Load test the Redis backed token store")
	clients := parser.Int("", "clients", &argparse.Options{Help: "number of simulated clients", Default: 10000})
	concurrency := parser.Int("", "concurrency", &argparse.Options{Help: "number of concurrent workers", Default: 256})
	ops := parser.Int("", "ops", &argparse.Options{Help: "operations per phase (load + churn)", Default: 200000})
	redisAddr := parser.String("", "redis-addr", &argparse.Options{Help: "redis address; if empty, REDIS_ADDR env or miniredis is used", Default: ""})
	prefix := parser.String("", "prefix", &argparse.Options{Help: "key prefix", Default: "bench"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}

	if *clients <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "clients, concurrency, and ops must be > 0")
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

	var heals int64
	onHeal := func(context.Context, error) { atomic.AddInt64(&heals, 1) }

	table := permission.Default()
	_, perms := table.ForTier(permission.TierPro)

	states := make([]clientState, *clients)
	fmt.Printf("seeding %d credentials...\n", *clients)
	startSeed := time.Now()
	for i := 0; i < *clients; i++ {
		backend := session.NewRedisStorage(client, fmt.Sprintf("%s:%d", *prefix, i), 24*time.Hour)
		states[i] = clientState{store: session.NewStore(backend, session.MemberKeys, session.WithSelfHealHook(onHeal))}
		if err := states[i].store.Save(ctx, tokenFor(i, 0), userFor(i, 0, perms.Names())); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loadStats := runLoadPhase(ctx, states, *ops, *concurrency)
	churnStats := runChurnPhase(ctx, states, *ops, *concurrency, perms.Names())

	fmt.Println("---- results ----")
	printStats("load", loadStats)
	printStats("churn", churnStats)
	fmt.Printf("self-heals: %d\n", atomic.LoadInt64(&heals))
}

// runLoadPhase reads credentials and counts any pair whose halves disagree.
func runLoadPhase(ctx context.Context, states []clientState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
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
				idx := r.Intn(len(states))
				t0 := time.Now()
				cred, ok, err := states[idx].store.Load(ctx)
				d := time.Since(t0)
				if err != nil || (ok && cred.User.Username != cred.Token) {
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
	return computeStats(total, latencies, failures)
}

// runChurnPhase alternates logins and logouts per client.
func runChurnPhase(ctx context.Context, states []clientState, ops, concurrency int, perms []string) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				st := &states[idx]

				st.mu.Lock()
				next := st.gen + 1
				t0 := time.Now()
				var err error
				if next%2 == 0 {
					err = st.store.Clear(ctx)
				} else {
					err = st.store.Save(ctx, tokenFor(idx, next), userFor(idx, next, perms))
				}
				d := time.Since(t0)
				if err == nil {
					st.gen = next
				} else {
					atomic.AddInt64(&failures, 1)
				}
				st.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
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

// tokenFor and userFor tie both halves of a pair to the same generation so a
// torn read is detectable.
func tokenFor(client, gen int) string {
	return fmt.Sprintf("tok-%d-%d", client, gen)
}

func userFor(client, gen int, perms []string) session.UserRecord {
	return session.UserRecord{
		ID:             fmt.Sprintf("%d", client),
		Username:       tokenFor(client, gen),
		MembershipTier: permission.TierPro,
		Permissions:    perms,
	}
}
