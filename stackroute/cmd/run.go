package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/stackroute/datarecording"
	"github.com/sarchlab/stackroute/instrumentation/tracers"
	"github.com/sarchlab/stackroute/monitoring"
	"github.com/sarchlab/stackroute/network"
	"github.com/sarchlab/stackroute/node"
	"github.com/sarchlab/stackroute/scenario"
	"github.com/sarchlab/stackroute/sim/hooking"
)

type runOptions struct {
	duration    time.Duration
	record      string
	monitorPort int
	open        bool
	printTables bool
	printMetric bool
	nonStrict   bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	runCmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario and report convergence and delivery.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, args[0], opts)
		},
	}

	flags := runCmd.Flags()
	flags.DurationVar(&opts.duration, "duration", time.Minute,
		"Stop the run after this long, 0 means no limit")
	flags.StringVar(&opts.record, "record", "",
		"Record tables and counters into this SQLite file (without extension)")
	flags.IntVar(&opts.monitorPort, "monitor", -1,
		"Serve the monitor on this port, 0 picks a free port, -1 disables it")
	flags.BoolVar(&opts.open, "open", false,
		"Open the monitor in a browser")
	flags.BoolVar(&opts.printTables, "print-tables", false,
		"Print the routing table of every router")
	flags.BoolVar(&opts.printMetric, "print-metrics", false,
		"Print the counters collected while running")
	flags.BoolVar(&opts.nonStrict, "non-strict", false,
		"Declare convergence on the idle window alone")

	return runCmd
}

func runScenario(cmd *cobra.Command, path string, opts runOptions) error {
	c, err := resolveConfig(cmd.Flags())
	if err != nil {
		return err
	}

	log, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	s, err := scenario.Load(path)
	if err != nil {
		return err
	}

	net, err := s.Build(scenario.Options{
		Log: log,
		Defaults: scenario.Defaults{
			QueueSize:   c.QueueSize,
			DefaultCost: c.DefaultCost,
			MaxHeight:   c.MaxStack,
			Quiescence:  c.Quiescence,
		},
		NonStrict: opts.nonStrict,
	})
	if err != nil {
		return err
	}

	sink := metrics.NewInmemSink(time.Minute, 10*time.Minute)
	net.InstallHook(tracers.NewMetricsHook(sink, metrics.Label{
		Name:  "scenario",
		Value: s.Name,
	}))

	delivery := tracers.NewDeliveryTracer()
	net.InstallHook(delivery)

	if log.IsLevelEnabled(logrus.TraceLevel) {
		net.InstallHook(tracers.NewLogHook(log).WithLevel(logrus.TraceLevel))
	}

	out := cmd.OutOrStdout()

	if opts.monitorPort >= 0 {
		startMonitor(out, log, net, s, opts)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	runErr := net.Start(ctx, opts.duration)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if !net.Converged() {
		log.Warn("route discovery did not converge")
	}

	if opts.record != "" {
		if err := record(opts.record, net); err != nil {
			return err
		}
	}

	printSummary(out, net, delivery)

	if opts.printTables {
		printTables(out, net)
	}

	if opts.printMetric {
		printMetrics(out, sink)
	}

	return runErr
}

func startMonitor(
	out io.Writer,
	log logrus.FieldLogger,
	net *network.Network,
	s *scenario.Scenario,
	opts runOptions,
) {
	m := monitoring.NewMonitor().
		WithLogger(log).
		WithPortNumber(opts.monitorPort)
	m.RegisterNetwork(net)

	bar := m.CreateProgressBar("traffic", uint64(s.TrafficSize()))
	net.InstallHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		switch ctx.Pos {
		case network.HookPosMsgReleased:
			bar.IncrementInProgress(1)
		case node.HookPosMsgDelivered, node.HookPosMsgDropped:
			bar.MoveInProgressToFinished(1)
		}
	}))

	addr := m.StartServer()
	fmt.Fprintf(out, "Monitoring %s at http://%s\n", net.Name(), addr)

	if opts.open {
		if err := m.OpenBrowser(); err != nil {
			log.WithError(err).Warn("could not open the browser")
		}
	}
}

func record(path string, net *network.Network) error {
	if _, err := os.Stat(path + ".sqlite3"); err == nil {
		return fmt.Errorf("recording %s.sqlite3 already exists", path)
	}

	rec := datarecording.New(path)
	datarecording.RecordNetwork(rec, net)

	return rec.Close()
}

func printSummary(
	out io.Writer,
	net *network.Network,
	delivery *tracers.DeliveryTracer,
) {
	fmt.Fprintf(out, "Network:          %s\n", net.Name())
	fmt.Fprintf(out, "Converged:        %t\n", net.Converged())
	fmt.Fprintf(out, "Convergence time: %s\n", net.ConvergenceTime())
	fmt.Fprintf(out, "Duration:         %s\n", net.Duration())
	fmt.Fprintf(out, "Messages sent:    %d\n", net.Sent())

	var delivered uint64

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tCONF SENT\tCONF RECEIVED\tROUTED\tDELIVERED\tDROPPED")

	for _, id := range net.Nodes() {
		reporter, ok := net.Node(id).(network.StatsReporter)
		if !ok {
			continue
		}

		st := reporter.Stats()
		delivered += st.MsgDelivered

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n", id,
			st.ConfSent, st.ConfReceived,
			st.MsgRouted, st.MsgDelivered, st.MsgDropped)
	}

	fmt.Fprintf(out, "Delivered:        %d\n", delivered)
	fmt.Fprintf(out, "Average latency:  %s\n", delivery.AverageLatency())
	fmt.Fprintf(out, "Average hops:     %.2f\n\n", delivery.AverageHops())
	w.Flush()
}

func printTables(out io.Writer, net *network.Network) {
	for _, id := range net.Nodes() {
		owner, ok := net.Node(id).(network.TableOwner)
		if !ok {
			continue
		}

		fmt.Fprintf(out, "\nRouting table of %s\n", id)
		fmt.Fprint(out, owner.Table().String())
	}
}

func printMetrics(out io.Writer, sink *metrics.InmemSink) {
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tLABELS\tTOTAL")

	for _, t := range tracers.CounterTotals(sink) {
		labels := make([]string, 0, len(t.Labels))
		for _, l := range t.Labels {
			labels = append(labels, l.Name+"="+l.Value)
		}

		fmt.Fprintf(w, "%s\t%s\t%g\n", t.Name, strings.Join(labels, ","), t.Sum)
	}

	w.Flush()
}
