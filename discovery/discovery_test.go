package discovery

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// TestSweepCoversEveryAddress doesn't require a live BMC - it only checks
// that Sweep always returns one Result per input address, even when every
// probe fails (there is nothing listening on the loopback port used here).
func TestSweepCoversEveryAddress(t *testing.T) {
	addrs := []string{
		"127.0.0.1:1",
		"127.0.0.1:2",
		"127.0.0.1:3",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	results := Sweep(ctx, addrs, rate.Inf, 100*time.Millisecond)
	if len(results) != len(addrs) {
		t.Fatalf("got %d results, want %d", len(results), len(addrs))
	}
	for i, r := range results {
		if r.Address != addrs[i] {
			t.Errorf("results[%d].Address = %q, want %q", i, r.Address, addrs[i])
		}
		if r.Online {
			t.Errorf("results[%d] reported Online with nothing listening", i)
		}
	}
}

func TestSweepRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Sweep(ctx, []string{"127.0.0.1:1"}, rate.Limit(1), 100*time.Millisecond)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Err == nil {
		t.Error("expected an error from an already-cancelled context")
	}
}
