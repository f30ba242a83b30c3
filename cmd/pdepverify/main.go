package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	pdep "github.com/Akron/pdep-go"
)

const (
	defaultStreams = 4
	defaultOrder   = "natural"
)

func usage() {
	log.Printf("Usage: pdepverify [-k streams] [-n sets] [-order natural|reversed] [-journal out] [-baseline in] [-v level] -in trace.txt\n")
	flag.PrintDefaults()
}

func showUsageAndExit(exitcode int) {
	usage()
	os.Exit(exitcode)
}

// getLogger returns a stdr.Logger that implements the logr.Logger interface
// and sets the verbosity of the returned logger.
// set v to 0 for info level messages,
// 1 for debug messages and 2 for trace level message.
// any other verbosity level will default to 0.
func getLogger(v int) logr.Logger {
	logger := stdr.New(nil).WithName("pdepverify")
	if v > 2 || v < 0 {
		v = 0
		logger.Info("Invalid verbosity, setting logger to display info level messages only.")
	}
	stdr.SetVerbosity(v)

	return logger
}

// config holds the parsed command line.
type config struct {
	in      string
	streams int
	sets    int
	order   pdep.OutputOrder

	// journal, if set, receives the run's consumption journal
	journal string
	// baseline, if set, names a saved journal the run must match
	baseline string
}

// run verifies the trace named by cfg and writes the report to w.
// It returns the process exit code.
func run(cfg config, logger logr.Logger, w io.Writer) int {
	raw, err := os.ReadFile(cfg.in)
	if err != nil {
		logger.Error(err, "could not read trace", "file", cfg.in)
		return 1
	}
	text := string(raw)

	sets := cfg.sets
	if sets == 0 {
		sets, err = pdep.InferSets(text, cfg.streams)
		if err != nil {
			logger.Error(err, "could not infer block set count", "file", cfg.in)
			return 1
		}
	}

	res, err := pdep.Verify(text, cfg.streams, sets,
		pdep.WithLogger(logger), pdep.WithOutputOrder(cfg.order))
	if err != nil {
		logger.Error(err, "verification failed", "file", cfg.in)
		fmt.Fprintf(w, "ERROR %s: %v\n", cfg.in, err)
		return 1
	}

	status := "PASS"
	if !res.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s: %d sets, %d streams, %d-bit blocks, %d bits consumed, %d mismatches (%s)\n",
		status, cfg.in, res.Sets, res.Streams, res.Width, res.ConsumedBits, len(res.Mismatches),
		pdep.CurrentLevel())
	for _, m := range res.Mismatches {
		fmt.Fprintf(w, "  set %d stream %d (read offset %d)\n    expected = %s\n    actual   = %s\n",
			m.Set, m.Stream, m.ReadOffset,
			pdep.FormatBlock(m.Expected, res.Width), pdep.FormatBlock(m.Actual, res.Width))
	}
	if cfg.journal != "" {
		b, err := res.Journal.MarshalBinary()
		if err == nil {
			err = os.WriteFile(cfg.journal, b, 0o644)
		}
		if err != nil {
			logger.Error(err, "could not save journal", "file", cfg.journal)
			return 1
		}
		logger.V(1).Info("journal saved", "file", cfg.journal, "sets", res.Journal.Len(), "bytes", len(b))
	}

	code := 0
	if !res.Pass {
		code = 1
	}
	if cfg.baseline != "" {
		raw, err := os.ReadFile(cfg.baseline)
		if err != nil {
			logger.Error(err, "could not read baseline journal", "file", cfg.baseline)
			return 1
		}
		base, err := pdep.UnmarshalJournal(raw)
		if err != nil {
			logger.Error(err, "could not decode baseline journal", "file", cfg.baseline)
			fmt.Fprintf(w, "ERROR %s: %v\n", cfg.baseline, err)
			return 1
		}
		if set, differs := base.FirstDifference(res.Journal); differs {
			want, _ := base.Count(set)
			got, _ := res.Journal.Count(set)
			fmt.Fprintf(w, "  journal differs from %s at set %d: baseline selected %d bits, run selected %d\n",
				cfg.baseline, set, want, got)
			code = 1
		} else {
			fmt.Fprintf(w, "  journal matches %s\n", cfg.baseline)
		}
	}
	return code
}

func main() {
	var in = flag.String("in", "", "Trace file captured from the kernel's console output")
	var streams = flag.Int("k", defaultStreams, "Number of input streams per block set")
	var sets = flag.Int("n", 0, "Number of block sets, 0 infers it from the line count")
	var order = flag.String("order", defaultOrder, "Expected output ordering (natural, reversed)")
	var journal = flag.String("journal", "", "Save the per-set consumption journal to this file")
	var baseline = flag.String("baseline", "", "Compare the consumption journal against one saved with -journal")
	var verbose = flag.Int("v", 0, "Verbosity level, default to -v 0 for info level messages, -v 1 for debug messages, and -v 2 for trace level message.")
	var showHelp = flag.Bool("h", false, "Show help message")

	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if *showHelp {
		showUsageAndExit(0)
	}
	if *in == "" {
		log.Printf("missing -in trace file")
		showUsageAndExit(1)
	}

	logger := getLogger(*verbose)

	outputOrder, err := pdep.ParseOutputOrder(*order)
	if err != nil {
		logger.Error(err, "invalid -order")
		os.Exit(1)
	}

	os.Exit(run(config{
		in:       *in,
		streams:  *streams,
		sets:     *sets,
		order:    outputOrder,
		journal:  *journal,
		baseline: *baseline,
	}, logger, os.Stdout))
}
