package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	otelbaggage "go.opentelemetry.io/otel/baggage"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-ctx/api"
	"github.com/momentics/hioload-ctx/baggage"
	"github.com/momentics/hioload-ctx/client"
	"github.com/momentics/hioload-ctx/control"
	"github.com/momentics/hioload-ctx/core/concurrency"
	"github.com/momentics/hioload-ctx/fake"
	"github.com/momentics/hioload-ctx/pool"
)

type pingOptions struct {
	count   int
	loops   int
	pin     bool
	trace   []string
	w3c     string
	timeout time.Duration
	state   bool
}

var pingOpts pingOptions

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send pings through the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("loops") {
			cfg.EventLoops = pingOpts.loops
		}
		return runPing(cmd.Context(), cfg, pingOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	f := pingCmd.Flags()
	f.IntVarP(&pingOpts.count, "count", "n", 3, "number of pings")
	f.IntVar(&pingOpts.loops, "loops", 0, "event loops (overrides config)")
	f.BoolVar(&pingOpts.pin, "pin", false, "deliver every result on one event loop")
	f.StringArrayVar(&pingOpts.trace, "trace", nil, "baggage entry key=value (repeatable)")
	f.StringVar(&pingOpts.w3c, "baggage", "", "W3C baggage header merged into the trace")
	f.DurationVar(&pingOpts.timeout, "timeout", 5*time.Second, "per-ping timeout")
	f.BoolVar(&pingOpts.state, "state", false, "print debug probes after the run")
}

func runPing(ctx context.Context, cfg control.Config, opts pingOptions, out, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := control.NewLogger(cfg, "ctxping", logOut)
	if err != nil {
		return err
	}
	bag, err := traceBaggage(cfg, opts)
	if err != nil {
		return err
	}

	group := concurrency.NewEventLoopGroup(concurrency.GroupConfig{
		Name:       "ctxping",
		Loops:      cfg.EventLoops,
		BatchSize:  cfg.BatchSize,
		PinThreads: cfg.PinThreads,
		Logger:     logger,
	})
	defer group.Shutdown()

	metrics, err := control.NewPoolMetrics(prometheus.NewRegistry(), "ctxping")
	if err != nil {
		return err
	}
	factory := fake.NewChannelFactory()
	p := pool.New(pool.Config{
		Address:          cfg.Address,
		Logger:           logger,
		ConnectionLogger: logger,
		Metrics:          metrics,
	}, group, factory, client.NewCallContext(logger).WithBaggage(bag))

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterProbe("pool.idle", func() any { return p.Idle() })
	probes.RegisterProbe("pool.in_flight", func() any { return p.InFlight() })
	probes.RegisterProbe("pool.channels", func() any { return len(factory.Channels()) })
	probes.RegisterProbe("loops.executed", func() any {
		var n uint64
		for _, l := range group.Loops() {
			n += l.Executed()
		}
		return n
	})

	db := p.WithLogger(logger).WithBaggage(bag)
	if opts.pin {
		db = db.WithEventLoop(api.DelegateOn(group.Next()))
	}

	var pingErr error
	for i := 0; i < opts.count; i++ {
		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, opts.timeout)
		_, pingErr = client.Ping(db).WaitContext(pctx)
		cancel()
		if pingErr != nil {
			break
		}
		fmt.Fprintf(out, "ping %d: pong in %s [%s]\n", i+1, time.Since(start).Round(time.Microsecond), bag.KeyList())
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	if _, err := p.Close().WaitContext(closeCtx); err != nil && pingErr == nil {
		pingErr = fmt.Errorf("close pool: %w", err)
	}

	if opts.state {
		enc := yaml.NewEncoder(out)
		if err := enc.Encode(probes.DumpState()); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return pingErr
}

// traceBaggage merges the configured baggage, the W3C header and --trace
// pairs, in that order, and tags the run with a fresh id.
func traceBaggage(cfg control.Config, opts pingOptions) (baggage.Baggage, error) {
	bag := cfg.TraceBaggage()
	if opts.w3c != "" {
		ob, err := otelbaggage.Parse(opts.w3c)
		if err != nil {
			return bag, fmt.Errorf("--baggage: %w", err)
		}
		baggage.FromOTel(ob).ForEach(func(k string, v any) bool {
			bag = bag.With(k, v)
			return true
		})
	}
	for _, kv := range opts.trace {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return bag, fmt.Errorf("--trace %q: want key=value", kv)
		}
		bag = bag.With(k, v)
	}
	return bag.With("run", uuid.NewString()), nil
}
