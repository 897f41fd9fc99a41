package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	cache "github.com/krisalay/reviewhub-client"
	"github.com/krisalay/reviewhub-client/engine"
	"github.com/krisalay/reviewhub-client/expiration"
	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/refresh"
	"github.com/krisalay/reviewhub-client/retry"
	"github.com/krisalay/reviewhub-client/types"
)

type benchConfig struct {
	shards     int
	capacity   int
	keys       int
	goroutines int
	ops        int
	staleTime  time.Duration
}

/*
newBenchCmd load-tests the query cache in process. Fetches are served by
a local function, so the numbers measure the cache alone: key
canonicalization, shard locking and singleflight.
*/
func newBenchCmd(a *app) *cobra.Command {
	var bc benchConfig
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test the query cache without touching the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), a, bc)
		},
	}
	cmd.Flags().IntVar(&bc.shards, "shards", 8, "cache shards")
	cmd.Flags().IntVar(&bc.capacity, "capacity", 200000, "cache capacity")
	cmd.Flags().IntVar(&bc.keys, "keys", 100000, "distinct merchant keys")
	cmd.Flags().IntVar(&bc.goroutines, "goroutines", 200, "concurrent readers")
	cmd.Flags().IntVar(&bc.ops, "ops", 5000, "reads per goroutine")
	cmd.Flags().DurationVar(&bc.staleTime, "stale-time", time.Minute, "freshness window of the reads")
	return cmd
}

func runBench(ctx context.Context, a *app, bc benchConfig) error {
	out := a.out
	if bc.keys < 1 {
		return fmt.Errorf("--keys must be at least 1")
	}

	fmt.Fprintln(out, "\n================ CACHE LOAD BENCHMARK =================")
	fmt.Fprintln(out, "CONFIG")
	fmt.Fprintln(out, "---------------------------------")
	fmt.Fprintln(out, "Shards       :", bc.shards)
	fmt.Fprintln(out, "Capacity     :", bc.capacity)
	fmt.Fprintln(out, "Keys         :", bc.keys)
	fmt.Fprintln(out, "Goroutines   :", bc.goroutines)
	fmt.Fprintln(out, "Ops/Goroutine:", bc.ops)
	fmt.Fprintln(out, "Eviction     :", a.cfg.EvictionPolicy())
	fmt.Fprintln(out, "---------------------------------")

	eng := engine.NewCacheEngine(
		&expiration.StaleWhileRevalidate{GCTime: a.cfg.Cache.GCTime},
		refresh.NewBackground(a.cfg.Cache.RevalidateLimit, a.logger),
		retry.Disabled(),
		a.metrics,
		a.logger.Named("bench"),
	)
	c := cache.NewQueryCache(bc.shards, bc.capacity, a.cfg.EvictionPolicy(), eng)
	defer c.Close()

	keys := make([]key.Key, bc.keys)
	for i := range keys {
		keys[i] = key.New("merchant-detail", fmt.Sprintf("merchant-%d", i))
	}
	fetch := func(i int) types.Fetcher {
		return func(context.Context) (any, error) { return i, nil }
	}

	fmt.Fprintln(out, "Preloading cache...")
	now := time.Now()
	for i, k := range keys {
		c.Set(k, &types.CacheEntry{Value: i, HasValue: true, Status: types.StatusSuccess, UpdatedAt: now})
	}
	fmt.Fprintln(out, "Preload complete.")

	fmt.Fprintln(out, "Running concurrency benchmark...")
	start := time.Now()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed error
	)
	wg.Add(bc.goroutines)
	for g := 0; g < bc.goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < bc.ops; j++ {
				i := (id*bc.ops + j) % len(keys)
				if _, err := c.Ensure(ctx, keys[i], fetch(i), bc.staleTime); err != nil {
					mu.Lock()
					failed = err
					mu.Unlock()
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if failed != nil {
		return failed
	}

	duration := time.Since(start)
	totalOps := bc.goroutines * bc.ops

	fmt.Fprintln(out, "\n================ RESULTS =================")
	fmt.Fprintf(out, "Total Operations : %d\n", totalOps)
	fmt.Fprintf(out, "Total Time       : %v\n", duration)
	fmt.Fprintf(out, "Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Fprintf(out, "Entries          : %d\n", c.Len())
	fmt.Fprintln(out, "=========================================")
	return nil
}
