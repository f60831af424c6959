// Package discovery sweeps a list of candidate addresses with ASF RMCP
// pings to find which ones answer as IPMI-capable BMCs, rate-limited so a
// large host list doesn't flood a management network.
package discovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ipmitool/go-ipmi-lanplus"
)

// Result is one probed address's outcome.
type Result struct {
	Address string
	Online  bool
	Err     error
	Latency time.Duration
}

// Sweep pings every address in addrs concurrently, admitting at most
// limit probes per second (burst 1), and returns once every address has
// answered or ctx is done. The per-probe timeout bounds how long a single
// unreachable address can hold up the sweep.
func Sweep(ctx context.Context, addrs []string, limit rate.Limit, timeout time.Duration) []Result {
	limiter := rate.NewLimiter(limit, 1)
	results := make([]Result, len(addrs))

	var wg sync.WaitGroup
	for i, addr := range addrs {
		if err := limiter.Wait(ctx); err != nil {
			results[i] = Result{Address: addr, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			results[i] = probe(addr, timeout)
		}(i, addr)
	}
	wg.Wait()

	return results
}

func probe(addr string, timeout time.Duration) Result {
	start := time.Now()
	c, err := ipmigo.NewClient(ipmigo.Arguments{
		Address: addr,
		Timeout: timeout,
	})
	if err != nil {
		return Result{Address: addr, Err: err}
	}

	err = c.Ping()
	return Result{
		Address: addr,
		Online:  err == nil,
		Err:     err,
		Latency: time.Since(start),
	}
}
