package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
	"github.com/momentics/hioload-ctx/client"
	"github.com/momentics/hioload-ctx/control"
	"github.com/momentics/hioload-ctx/core/concurrency"
	"github.com/momentics/hioload-ctx/fake"
	"github.com/momentics/hioload-ctx/internal/testutil/logsink"
)

func newPool(t *testing.T, cfg Config) (*ConnectionPool, *fake.ChannelFactory) {
	t.Helper()
	group := concurrency.NewEventLoopGroup(concurrency.GroupConfig{Name: "pool", Loops: 2})
	t.Cleanup(group.Shutdown)
	if cfg.Address == "" {
		cfg.Address = "db:5432"
	}
	factory := fake.NewChannelFactory()
	p := New(cfg, group, factory, client.NewCallContext(zerolog.Nop()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = p.Close().WaitContext(ctx)
	})
	return p, factory
}

func nopContext() client.CallContext {
	return client.NewCallContext(zerolog.Nop())
}

func TestConnectionPool_TwoPingScenario(t *testing.T) {
	p, _ := newPool(t, Config{})
	sink := logsink.New()
	db := p.WithLogger(sink.Logger())

	_, err := client.Ping(db).Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"connection-pool.new",
		"connection.init",
		"connection.request",
		"connection.response",
		"connection.trace",
		"connection-pool.release",
	}, sink.Read())

	_, err = client.Ping(db).Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"connection-pool.reuse",
		"connection.request",
		"connection.response",
		"connection.trace",
		"connection-pool.release",
	}, sink.Read())
}

func TestNew_LogsInitToConstructionContext(t *testing.T) {
	group := concurrency.NewEventLoopGroup(concurrency.GroupConfig{Name: "init", Loops: 1})
	t.Cleanup(group.Shutdown)
	initSink := logsink.New()
	opSink := logsink.New()

	p := New(Config{Address: "db:1", Logger: opSink.Logger()}, group, fake.NewChannelFactory(),
		client.NewCallContext(initSink.Logger()).WithBaggage(baggage.New().With("boot", 1)))

	entries := initSink.ReadEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection-pool.init", entries[0].Message)
	assert.Equal(t, "db:1", entries[0].Str("address"))
	assert.Equal(t, "boot", entries[0].Str("trace"))
	assert.Zero(t, opSink.Len())

	_, err := p.Close().Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{"connection-pool.close"}, opSink.Read())
}

func TestConnectionPool_ReusesMostRecentlyReleased(t *testing.T) {
	p, factory := newPool(t, Config{})
	cc := nopContext()

	first, err := p.Acquire(cc).Wait()
	require.NoError(t, err)
	second, err := p.Acquire(cc).Wait()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 2, p.InFlight())

	_, err = p.Release(first, cc).Wait()
	require.NoError(t, err)
	_, err = p.Release(second, cc).Wait()
	require.NoError(t, err)
	assert.Equal(t, 2, p.Idle())
	assert.Zero(t, p.InFlight())

	again, err := p.Acquire(cc).Wait()
	require.NoError(t, err)
	assert.Equal(t, second.ID(), again.ID())
	assert.Len(t, factory.Channels(), 2)

	_, err = p.Release(again, cc).Wait()
	require.NoError(t, err)
}

func TestWithConnection_ReleasesOnFailure(t *testing.T) {
	p, _ := newPool(t, Config{})
	boom := errors.New("boom")

	_, err := WithConnection(p, nopContext(), func(conn *client.Connection) *api.Future[int] {
		return api.MakeFailedFuture[int](conn.EventLoop(), boom)
	}).Wait()
	assert.Same(t, boom, err)
	assert.Equal(t, 1, p.Idle())
	assert.Zero(t, p.InFlight())

	v, err := WithConnection(p, nopContext(), func(conn *client.Connection) *api.Future[int] {
		return api.MakeSucceededFuture(conn.EventLoop(), 7)
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, p.Idle())
}

func TestWithConnection_ReleasesOnPanic(t *testing.T) {
	p, _ := newPool(t, Config{})

	_, err := WithConnection(p, nopContext(), func(*client.Connection) *api.Future[int] {
		panic("bad body")
	}).Wait()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad body", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, 1, p.Idle())

	_, err = WithConnection(p, nopContext(), func(*client.Connection) *api.Future[int] {
		return nil
	}).Wait()
	assert.ErrorIs(t, err, ErrNilFuture)
	assert.Equal(t, 1, p.Idle())
}

func TestWithConnection_ReleaseLoggedBeforeResult(t *testing.T) {
	p, _ := newPool(t, Config{})
	sink := logsink.New()
	cc := client.NewCallContext(sink.Logger())

	_, err := WithConnection(p, cc, func(conn *client.Connection) *api.Future[struct{}] {
		return api.MakeFailedFuture[struct{}](conn.EventLoop(), api.ErrChannelInactive)
	}).Wait()
	assert.ErrorIs(t, err, api.ErrChannelInactive)
	logs := sink.Read()
	require.NotEmpty(t, logs)
	assert.Equal(t, "connection-pool.release", logs[len(logs)-1])
}

func TestConnectionPool_DelegatePinsResultLoop(t *testing.T) {
	p, _ := newPool(t, Config{})
	pinned := concurrency.NewEventLoop(concurrency.LoopConfig{Name: "pinned", CPU: -1})
	t.Cleanup(pinned.Shutdown)
	pref := api.DelegateOn(pinned)

	for i := 0; i < 3; i++ {
		f := p.Send(api.Ping, nopContext().WithEventLoop(pref))
		resp, err := f.Wait()
		require.NoError(t, err)
		assert.Equal(t, api.Pong, resp)
		assert.Equal(t, api.EventLoop(pinned), f.EventLoop())
	}

	conn, err := p.Acquire(nopContext().WithEventLoop(pref)).Wait()
	require.NoError(t, err)
	released := p.Release(conn, nopContext().WithEventLoop(pref))
	_, err = released.Wait()
	require.NoError(t, err)
	assert.Equal(t, api.EventLoop(pinned), released.EventLoop())
}

func TestConnectionPool_LoggingIsolation(t *testing.T) {
	p, _ := newPool(t, Config{})
	sinkA, sinkB := logsink.New(), logsink.New()
	a := p.WithLogger(sinkA.Logger()).WithBaggage(baggage.New().With("chain-a", true))
	b := p.WithLogger(sinkB.Logger()).WithBaggage(baggage.New().With("chain-b", true))

	const rounds = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		for _, c := range []client.Client{a, b} {
			wg.Add(1)
			go func(c client.Client) {
				defer wg.Done()
				_, err := client.Ping(c).Wait()
				errs <- err
			}(c)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	check := func(sink *logsink.Sink, key string) {
		requests := 0
		for _, e := range sink.ReadEntries() {
			switch e.Message {
			case "connection.request":
				requests++
			case "connection.trace", "connection.init":
				assert.Equal(t, key, e.Str("trace"))
			}
		}
		assert.Equal(t, rounds, requests)
	}
	check(sinkA, "chain-a")
	check(sinkB, "chain-b")
	assert.Zero(t, p.InFlight())
}

func TestConnectionPool_BaggageKeysReachTrace(t *testing.T) {
	p, _ := newPool(t, Config{})
	sink := logsink.New()
	db := p.WithLogger(sink.Logger()).
		WithBaggage(baggage.New().With("tenant", "acme").With("request", 42))

	_, err := client.Ping(db).Wait()
	require.NoError(t, err)
	for _, e := range sink.ReadEntries() {
		if e.Message == "connection.init" || e.Message == "connection.trace" {
			assert.Equal(t, "request, tenant", e.Str("trace"))
		}
	}
}

func TestConnectionPool_ConnectFailureSurfacesUnchanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := control.NewPoolMetrics(reg, "failing")
	require.NoError(t, err)
	p, factory := newPool(t, Config{Metrics: m})

	refused := errors.New("connection refused")
	factory.SetConnectError(refused)
	_, err = p.Acquire(nopContext()).Wait()
	assert.Same(t, refused, err)
	assert.Zero(t, p.InFlight())
	assert.Zero(t, p.Idle())
	assert.Equal(t, 1.0, gather(t, reg, "hioload_ctx_pool_connect_failures_total", nil))

	_, err = client.Ping(p).Wait()
	assert.Same(t, refused, err)

	factory.SetConnectError(nil)
	_, err = client.Ping(p).Wait()
	require.NoError(t, err)
	assert.Equal(t, 1, p.Idle())
}

func TestConnectionPool_CloseClosesIdle(t *testing.T) {
	p, factory := newPool(t, Config{})
	cc := nopContext()

	c1, err := p.Acquire(cc).Wait()
	require.NoError(t, err)
	c2, err := p.Acquire(cc).Wait()
	require.NoError(t, err)
	_, _ = p.Release(c1, cc).Wait()
	_, _ = p.Release(c2, cc).Wait()
	require.Equal(t, 2, factory.Active())

	closed := p.Close()
	_, err = closed.Wait()
	require.NoError(t, err)
	assert.Zero(t, factory.Active())
	assert.Zero(t, p.Idle())
	assert.Same(t, closed, p.Close())

	_, err = p.Acquire(cc).Wait()
	assert.ErrorIs(t, err, ErrPoolClosed)
	_, err = client.Ping(p).Wait()
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestConnectionPool_CloseWaitsForInFlight(t *testing.T) {
	p, factory := newPool(t, Config{})
	cc := nopContext()

	held, err := p.Acquire(cc).Wait()
	require.NoError(t, err)

	closed := p.Close()
	_, done := closed.Peek()
	assert.False(t, done)
	assert.True(t, held.IsOpen())

	_, err = p.Release(held, cc).Wait()
	require.NoError(t, err)
	_, err = closed.Wait()
	require.NoError(t, err)
	assert.False(t, held.IsOpen())
	assert.Zero(t, p.Idle())
	assert.Zero(t, p.InFlight())
	assert.Zero(t, factory.Active())
}

func TestConnectionPool_CloseReportsFirstFailure(t *testing.T) {
	p, factory := newPool(t, Config{})
	busted := errors.New("close failed")
	factory.SetCloseError(busted)

	_, err := client.Ping(p).Wait()
	require.NoError(t, err)

	_, err = p.Close().Wait()
	assert.Same(t, busted, err)
}

func TestConnectionPool_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := control.NewPoolMetrics(reg, "main")
	require.NoError(t, err)
	p, _ := newPool(t, Config{Metrics: m})

	for i := 0; i < 2; i++ {
		_, err := client.Ping(p).Wait()
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, gather(t, reg, "hioload_ctx_pool_acquire_total", map[string]string{"source": "new"}))
	assert.Equal(t, 1.0, gather(t, reg, "hioload_ctx_pool_acquire_total", map[string]string{"source": "reuse"}))
	assert.Equal(t, 2.0, gather(t, reg, "hioload_ctx_pool_release_total", nil))
	assert.Equal(t, 1.0, gather(t, reg, "hioload_ctx_pool_idle_connections", nil))
	assert.Equal(t, 0.0, gather(t, reg, "hioload_ctx_pool_in_flight_connections", nil))
	assert.Equal(t, 1.0, gather(t, reg, "hioload_ctx_pool_connect_duration_seconds", nil))
}

func TestConnectionPool_IsDecoratable(t *testing.T) {
	p, _ := newPool(t, Config{})
	assert.True(t, p.CallContext().EventLoop.IsIndifferent())
	assert.Zero(t, p.CallContext().Baggage.Len())

	chain := p.WithLogger(zerolog.Nop()).WithEventLoop(api.Indifferent()).WithBaggage(baggage.New())
	assert.Same(t, p, client.Unwrap(chain))
}

func TestConnectionPool_FinalizeReportsLeak(t *testing.T) {
	sink := logsink.New()
	p, _ := newPool(t, Config{Logger: sink.Logger()})

	p.finalize()
	assert.Zero(t, sink.Len())

	_, err := client.SendMessage(p, api.Ping).Wait()
	require.NoError(t, err)
	p.finalize()
	entries := sink.ReadEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Level)
	assert.Equal(t, "connection pool was not closed before it was collected", entries[0].Message)

	_, err = p.Close().Wait()
	require.NoError(t, err)
	sink.Read()
	p.finalize()
	assert.Zero(t, sink.Len())
}

// gather returns the value of the first sample of name whose labels include
// want. Histograms report their sample count.
func gather(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return 0
}
