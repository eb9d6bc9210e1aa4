// File: pool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ConnectionPool keeps idle connections on a LIFO stack guarded by a mutex.
// Every connection is either on the stack or held by exactly one caller.
// Close refuses new acquisitions, closes the idle connections and closes the
// held ones as they are released.

package pool

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
	"github.com/momentics/hioload-ctx/client"
	"github.com/momentics/hioload-ctx/control"
)

// Config configures a ConnectionPool.
type Config struct {
	Address          string               // passed to every new channel's Connect
	Logger           zerolog.Logger       // reported by CallContext and used for pool lifecycle events
	ConnectionLogger zerolog.Logger       // own logger of created connections
	Metrics          *control.PoolMetrics // optional
}

// ConnectionPool is a client.Client backed by pooled connections.
type ConnectionPool struct {
	group      api.EventLoopGroup
	factory    api.ChannelFactory
	address    string
	logger     zerolog.Logger
	connLogger zerolog.Logger
	metrics    *control.PoolMetrics

	mu       sync.Mutex
	idle     []*client.Connection
	inFlight int
	closing  bool
	drained  api.Promise[struct{}]
	drainErr error

	closeOnce sync.Once
	closed    *api.Future[struct{}]
}

var _ client.Client = (*ConnectionPool)(nil)

// New creates an empty pool. The init event goes to initCtx.Logger.
func New(cfg Config, group api.EventLoopGroup, factory api.ChannelFactory, initCtx client.CallContext) *ConnectionPool {
	p := &ConnectionPool{
		group:      group,
		factory:    factory,
		address:    cfg.Address,
		logger:     cfg.Logger,
		connLogger: cfg.ConnectionLogger,
		metrics:    cfg.Metrics,
	}
	initCtx.Logger.Debug().
		Str("address", cfg.Address).
		Str("trace", initCtx.Baggage.KeyList()).
		Msg("connection-pool.init")
	runtime.SetFinalizer(p, (*ConnectionPool).finalize)
	return p
}

// Acquire hands out a connection: the most recently released one if any,
// otherwise a newly connected one. The result is delivered on the loop
// cc.EventLoop selects. Every successful Acquire must be paired with Release.
func (p *ConnectionPool) Acquire(cc client.CallContext) *api.Future[*client.Connection] {
	return p.acquire(cc, cc.EventLoop.EventLoop(p.group))
}

func (p *ConnectionPool) acquire(cc client.CallContext, loop api.EventLoop) *api.Future[*client.Connection] {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return api.MakeFailedFuture[*client.Connection](loop, ErrPoolClosed)
	}
	p.inFlight++
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.observeLocked()
		p.mu.Unlock()

		cc.Logger.Debug().Str("connection", conn.ID().String()).Msg("connection-pool.reuse")
		p.metrics.Acquired(control.SourceReuse)
		return api.MakeSucceededFuture(loop, conn)
	}
	p.observeLocked()
	p.mu.Unlock()

	cc.Logger.Debug().Str("address", p.address).Msg("connection-pool.new")
	p.metrics.Acquired(control.SourceNew)

	start := time.Now()
	ch := p.factory.NewChannel(p.group.Next())
	connected := client.Connect(ch, p.address, cc.Logger, cc.Baggage, client.WithConnectionLogger(p.connLogger))

	out := api.NewPromise[*client.Connection](loop)
	connected.OnComplete(func(r api.Result[*client.Connection]) {
		p.metrics.Connected(time.Since(start), r.Err)
		if r.Err != nil {
			p.leave(nil)
		}
		out.Complete(r)
	})
	return out.Future()
}

// Release gives conn back to the pool and resolves on the loop cc.EventLoop
// selects. It never fails; once Close has been called the connection is
// closed instead of kept, and a close failure is reported by Close.
func (p *ConnectionPool) Release(conn *client.Connection, cc client.CallContext) *api.Future[struct{}] {
	return p.release(conn, cc, cc.EventLoop.EventLoop(p.group))
}

func (p *ConnectionPool) release(conn *client.Connection, cc client.CallContext, loop api.EventLoop) *api.Future[struct{}] {
	cc.Logger.Debug().Str("connection", conn.ID().String()).Msg("connection-pool.release")
	p.metrics.Released()

	p.mu.Lock()
	if !p.closing {
		p.idle = append(p.idle, conn)
		p.inFlight--
		p.observeLocked()
		p.mu.Unlock()
		return api.MakeSucceededFuture(loop, struct{}{})
	}
	p.mu.Unlock()

	out := api.NewPromise[struct{}](loop)
	conn.Close().OnComplete(func(r api.Result[struct{}]) {
		p.leave(r.Err)
		out.Succeed(struct{}{})
	})
	return out.Future()
}

// leave drops an in-flight slot that does not return to the idle stack.
func (p *ConnectionPool) leave(closeErr error) {
	p.mu.Lock()
	p.inFlight--
	if closeErr != nil && p.drainErr == nil {
		p.drainErr = closeErr
	}
	done := p.closing && p.inFlight == 0
	drained := p.drained
	p.observeLocked()
	p.mu.Unlock()
	if done {
		drained.Succeed(struct{}{})
	}
}

// Send implements client.Sender by running conn.Send inside WithConnection
// with the same context.
func (p *ConnectionPool) Send(msg api.Message, cc client.CallContext) *api.Future[api.Message] {
	return WithConnection(p, cc, func(conn *client.Connection) *api.Future[api.Message] {
		return conn.Send(msg, cc)
	})
}

// Close shuts the pool down. Idle connections are closed concurrently,
// connections still held are closed when released, and the returned future
// completes once all of them are closed, failing with the first close error.
// Later calls return the same future.
func (p *ConnectionPool) Close() *api.Future[struct{}] {
	p.closeOnce.Do(func() {
		loop := p.group.Next()
		drained := api.NewPromise[struct{}](loop)

		p.mu.Lock()
		p.closing = true
		p.drained = drained
		idle := p.idle
		p.idle = nil
		inFlight := p.inFlight
		p.observeLocked()
		p.mu.Unlock()
		runtime.SetFinalizer(p, nil)

		p.logger.Debug().
			Int("idle", len(idle)).
			Int("in_flight", inFlight).
			Msg("connection-pool.close")

		if inFlight == 0 {
			drained.Succeed(struct{}{})
		}

		closes := make([]*api.Future[struct{}], len(idle))
		for i, conn := range idle {
			closes[i] = conn.Close()
		}
		p.closed = api.Transform(api.WhenAll(loop, closes), func(idleRes api.Result[[]struct{}]) *api.Future[struct{}] {
			return api.Transform(drained.Future(), func(api.Result[struct{}]) *api.Future[struct{}] {
				if idleRes.Err != nil {
					return api.MakeFailedFuture[struct{}](loop, idleRes.Err)
				}
				p.mu.Lock()
				err := p.drainErr
				p.mu.Unlock()
				if err != nil {
					return api.MakeFailedFuture[struct{}](loop, err)
				}
				return api.MakeSucceededFuture(loop, struct{}{})
			})
		})
	})
	return p.closed
}

// Idle returns the number of idle connections.
func (p *ConnectionPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// InFlight returns the number of connections held by callers, including
// ones still connecting.
func (p *ConnectionPool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// CallContext implements client.Sender: Indifferent, the pool's logger and
// empty baggage.
func (p *ConnectionPool) CallContext() client.CallContext {
	return client.NewCallContext(p.logger)
}

// WithEventLoop implements client.Client.
func (p *ConnectionPool) WithEventLoop(pref api.EventLoopPreference) client.Client {
	return client.Wrap(p).WithEventLoop(pref)
}

// WithLogger implements client.Client.
func (p *ConnectionPool) WithLogger(logger zerolog.Logger) client.Client {
	return client.Wrap(p).WithLogger(logger)
}

// WithBaggage implements client.Client.
func (p *ConnectionPool) WithBaggage(b baggage.Baggage) client.Client {
	return client.Wrap(p).WithBaggage(b)
}

func (p *ConnectionPool) observeLocked() {
	p.metrics.Observe(len(p.idle), p.inFlight)
}

func (p *ConnectionPool) finalize() {
	p.mu.Lock()
	n, closing := len(p.idle), p.closing
	p.mu.Unlock()
	if n > 0 && !closing {
		p.logger.Error().
			Int("idle", n).
			Str("address", p.address).
			Msg("connection pool was not closed before it was collected")
	}
}
