// File: core/concurrency/group.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoopGroup owns a fixed set of loops and hands them out round robin.

package concurrency

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/affinity"
	"github.com/momentics/hioload-ctx/api"
)

var _ api.EventLoopGroup = (*EventLoopGroup)(nil)

// GroupConfig configures an EventLoopGroup.
type GroupConfig struct {
	Name       string         // prefix of loop names
	Loops      int            // number of loops (<= 0 means runtime.NumCPU())
	BatchSize  int            // per-loop batch size
	PinThreads bool           // pin loop i to CPU i mod NumCPU
	Logger     zerolog.Logger // shared by all loops
}

// EventLoopGroup is a round-robin group of event loops.
type EventLoopGroup struct {
	loops []*EventLoop
	next  atomic.Uint64
	once  sync.Once
}

// NewEventLoopGroup starts cfg.Loops loops.
func NewEventLoopGroup(cfg GroupConfig) *EventLoopGroup {
	n := cfg.Loops
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if cfg.Name == "" {
		cfg.Name = "group"
	}
	g := &EventLoopGroup{loops: make([]*EventLoop, n)}
	for i := 0; i < n; i++ {
		cpu := -1
		if cfg.PinThreads {
			cpu = affinity.CPUFor(i)
		}
		g.loops[i] = NewEventLoop(LoopConfig{
			Name:      fmt.Sprintf("%s-%d", cfg.Name, i),
			BatchSize: cfg.BatchSize,
			CPU:       cpu,
			Logger:    cfg.Logger,
		})
	}
	return g
}

// Next implements api.EventLoopGroup.
func (g *EventLoopGroup) Next() api.EventLoop {
	i := g.next.Add(1) - 1
	return g.loops[i%uint64(len(g.loops))]
}

// Loops returns the group's loops.
func (g *EventLoopGroup) Loops() []*EventLoop {
	out := make([]*EventLoop, len(g.loops))
	copy(out, g.loops)
	return out
}

// Len returns the number of loops.
func (g *EventLoopGroup) Len() int { return len(g.loops) }

// Shutdown stops every loop concurrently and waits for all of them.
func (g *EventLoopGroup) Shutdown() {
	g.once.Do(func() {
		var wg sync.WaitGroup
		for _, l := range g.loops {
			wg.Add(1)
			go func(l *EventLoop) {
				defer wg.Done()
				l.Shutdown()
			}(l)
		}
		wg.Wait()
	})
}
