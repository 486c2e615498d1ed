package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
	"combatsim/broker/tools/sim_cli"
)

func main() {
	path := flag.String("scenario", "", "Path to a YAML scenario file")
	trials := flag.Int("trials", 0, "Override the trial count of every simulation")
	seed := flag.Uint64("seed", 0, "Seed every simulation for reproducible output (0 draws a random seed)")
	batch := flag.Int("batch", simulation.DefaultBatchSize, "Trials per cancellation check")
	curve := flag.Bool("curve", false, "Print the cumulative kill chance table")
	jsonFlag := flag.Bool("json", false, "Emit JSON instead of the text report")
	logLevel := flag.String("log-level", "warn", "Log level written to stderr")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "scenario flag is required")
		os.Exit(1)
	}
	logger, err := logging.NewWriterLogger(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	scenario, err := simcli.LoadScenario(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	overrides := simcli.Overrides{Trials: *trials}
	if *seed != 0 {
		overrides.Seed = seed
	}

	//1.- Ctrl-C cancels the current simulation and still prints its partial result.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runner := simulation.NewRunner(
		simulation.WithLogger(logger),
		simulation.WithBatchSize(*batch),
		simulation.WithTrialLimits(simulation.DefaultTrials, max(simulation.DefaultMaxTrials, *trials)),
	)
	results, err := simcli.Run(ctx, scenario, runner, overrides)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if len(results) == 0 {
			os.Exit(3)
		}
	}

	if *jsonFlag {
		payload, err := simcli.MarshalResults(results)
		if err != nil {
			fmt.Fprintln(os.Stderr, "encode error:", err)
			os.Exit(4)
		}
		fmt.Println(string(payload))
		return
	}
	if err := simcli.WriteReport(os.Stdout, scenario, results, *curve); err != nil {
		fmt.Fprintln(os.Stderr, "report error:", err)
		os.Exit(4)
	}
}
