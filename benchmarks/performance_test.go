// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-ctx components.

package benchmarks

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
	"github.com/momentics/hioload-ctx/client"
	"github.com/momentics/hioload-ctx/core/concurrency"
	"github.com/momentics/hioload-ctx/fake"
	"github.com/momentics/hioload-ctx/pool"
)

func newPool(b *testing.B) *pool.ConnectionPool {
	b.Helper()
	group := concurrency.NewEventLoopGroup(concurrency.GroupConfig{Name: "bench", Loops: 4})
	b.Cleanup(group.Shutdown)
	p := pool.New(pool.Config{Address: "bench:1"}, group, fake.NewChannelFactory(), client.NewCallContext(zerolog.Nop()))
	b.Cleanup(func() { _, _ = p.Close().Wait() })
	return p
}

// BenchmarkEventLoopSubmit measures a task round trip through one loop.
func BenchmarkEventLoopSubmit(b *testing.B) {
	el := concurrency.NewEventLoop(concurrency.LoopConfig{Name: "bench", CPU: -1})
	defer el.Shutdown()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := concurrency.Submit(el, func() (int, error) { return i, nil }).Wait(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPoolPingParallel measures pooled pings from many goroutines.
func BenchmarkPoolPingParallel(b *testing.B) {
	p := newPool(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := client.Ping(p).Wait(); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkDecoratorChainPing measures the cost of a deep decorator chain.
func BenchmarkDecoratorChainPing(b *testing.B) {
	p := newPool(b)
	var c client.Client = p
	for i := 0; i < 8; i++ {
		c = c.WithBaggage(baggage.New().With("depth", i)).WithEventLoop(api.Indifferent())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := client.Ping(c).Wait(); err != nil {
			b.Fatal(err)
		}
	}
}
