package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/rtoskit/kernel-objects/kernel"
)

func main() {
	var (
		scenarioFile = flag.String("scenario", "", "Path to a YAML scenario file")
		duration     = flag.Duration("duration", 0, "Run the workload for this long and print a summary (no TUI)")
		verbose      = flag.Bool("v", false, "Log kernel object lifecycle events")
	)
	flag.Parse()

	if err := run(*scenarioFile, *duration, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(scenarioFile string, duration time.Duration, verbose bool) error {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		defer logger.Sync()
		kernel.SetLogger(logger)
	}

	scn := defaultScenario()
	if scenarioFile != "" {
		loaded, err := loadScenario(scenarioFile)
		if err != nil {
			return err
		}
		scn = loaded
	}
	if scn.Duration > 0 && duration == 0 {
		duration = scn.Duration
	}

	log := &eventLog{}
	kernel.Subscribe(log)
	defer kernel.Unsubscribe(log)

	r, err := startScenario(scn)
	if err != nil {
		return err
	}
	defer r.Close()

	// Without a terminal the TUI cannot run; fall back to the timed
	// summary mode.
	if duration == 0 && !term.IsTerminal(int(os.Stdout.Fd())) {
		duration = 3 * time.Second
	}
	if duration > 0 {
		time.Sleep(duration)
		printSummary(r)
		return nil
	}
	return runViewer(r, log)
}

func printSummary(run *runner) {
	fmt.Printf("scenario %s: %d live objects\n", run.scn.Name, kernel.Objects())
	for _, ms := range run.members {
		fmt.Printf("  %-16s %-16s %d events\n", ms.name, ms.kind, ms.count.Load())
	}
	fmt.Printf("  %-16s %-16s %d fires\n", "timers", "timer", run.timerFires.Load())
}
