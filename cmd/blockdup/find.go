package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockdup/blockdup/internal/fdlimit"
	"github.com/blockdup/blockdup/internal/fsnode"
	"github.com/blockdup/blockdup/internal/orchestrator"
	"github.com/blockdup/blockdup/internal/sink"
)

// fdReserve is the number of descriptors held back from the fd-limit
// check for stdio and the output sink; it never participates in a
// candidate-set comparison itself.
const fdReserve = 8

// findOptions holds CLI flags for the find command.
type findOptions struct {
	minSizeStr   string
	maxSizeStr   string
	exactSizeStr string
	interactive  bool
	batch        bool
	noProgress   bool
	jsonOutput   bool
}

// newFindCmd creates the find subcommand.
func newFindCmd() *cobra.Command {
	opts := &findOptions{}

	cmd := &cobra.Command{
		Use:   "find [dir...]",
		Short: "Scan directories and report duplicate files",
		Long: `Scans one or more directory trees for duplicate files.

Duplicates are found without hashing: candidate files are grouped by exact
size, then compared block by block until a mismatch rules a pair out or
every block has been read. Size filters narrow the candidate set before
any comparison happens.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runFind(args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", "", "Only consider files larger than this size (e.g., 100, 1K, 10M, 1G)")
	cmd.Flags().StringVar(&opts.maxSizeStr, "max-size", "", "Only consider files smaller than this size")
	cmd.Flags().StringVar(&opts.exactSizeStr, "exact-size", "", "Only consider files of exactly this size")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Force interactive-style progress output")
	cmd.Flags().BoolVarP(&opts.batch, "batch", "b", false, "Force batch mode: no progress bar, plain output")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar only")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Emit newline-delimited JSON instead of plain text")

	return cmd
}

// runFind executes the scan-then-compare pipeline and prints a summary,
// mirroring the original tool's end-of-run report (files scanned,
// duplicates found, bytes wasted).
func runFind(paths []string, opts *findOptions) error {
	dupOpts, err := parseDupOptions(opts)
	if err != nil {
		return err
	}

	// Best-effort: if the soft limit cannot be raised, fdlimit.Check still
	// guards each candidate set against it.
	_ = fdlimit.Raise()

	showProgress := isInteractive(opts)
	// --no-progress turns off the progress bar only; whether to prompt
	// after scan errors still follows --batch, --interactive and the
	// terminal check.
	promptOnErrors := isInteractive(&findOptions{batch: opts.batch, interactive: opts.interactive})

	var dupSink sink.DupSink
	var errSink sink.ErrSink
	if opts.jsonOutput {
		dupSink = sink.NewJSONDupSink(os.Stdout)
		errSink = sink.NewJSONErrSink(os.Stderr)
	} else {
		dupSink = sink.NewTextDupSink(os.Stdout)
		errSink = sink.NewTextErrSink(os.Stderr, nil)
	}

	orchOpts := orchestrator.Options{
		Roots:        paths,
		DupOpts:      dupOpts,
		ShowProgress: showProgress,
		DupSink:      dupSink,
		ErrSink:      errSink,
		FDReserve:    fdReserve,
	}

	scan := orchestrator.ScanRoots(orchOpts)

	if scan.HadErrors && promptOnErrors && !confirmContinue() {
		return fmt.Errorf("aborted after scan errors")
	}

	counters := orchestrator.Compare(scan, orchOpts)

	if !opts.jsonOutput {
		printSummary(counters)
	}

	return nil
}

// confirmContinue asks the user whether to proceed past non-fatal scan
// errors, mirroring the original tool's "Unable to scan some files. Do
// you want to continue?" prompt. It defaults to "no" on anything but an
// explicit "y" or "yes" answer (in any case), including a read error or
// EOF on stdin.
func confirmContinue() bool {
	fmt.Fprint(os.Stderr, "\nUnable to scan some files. Do you want to continue [y/n]? ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// isInteractive resolves the effective progress-bar setting from the
// three flags that influence it: --batch and --no-progress both disable
// it, --interactive forces it on, and absent any flag it defaults to
// whether stdout is a terminal — the same default the original tool
// applies via isatty.
func isInteractive(opts *findOptions) bool {
	if opts.batch || opts.noProgress {
		return false
	}
	if opts.interactive {
		return true
	}
	return isTerminal(os.Stdout)
}

// parseDupOptions turns the three size flags into a fsnode.DupOptions,
// rejecting a combination of --exact-size with either range bound since
// they express mutually exclusive filters.
func parseDupOptions(opts *findOptions) (fsnode.DupOptions, error) {
	var dupOpts fsnode.DupOptions

	if opts.exactSizeStr != "" && (opts.minSizeStr != "" || opts.maxSizeStr != "") {
		return dupOpts, fmt.Errorf("--exact-size cannot be combined with --min-size or --max-size")
	}

	if opts.exactSizeStr != "" {
		size, err := parseSize(opts.exactSizeStr)
		if err != nil {
			return dupOpts, fmt.Errorf("invalid --exact-size: %w", err)
		}
		dupOpts.SizeEq = size
	}
	if opts.minSizeStr != "" {
		size, err := parseSize(opts.minSizeStr)
		if err != nil {
			return dupOpts, fmt.Errorf("invalid --min-size: %w", err)
		}
		dupOpts.SizeMin = size
	}
	if opts.maxSizeStr != "" {
		size, err := parseSize(opts.maxSizeStr)
		if err != nil {
			return dupOpts, fmt.Errorf("invalid --max-size: %w", err)
		}
		dupOpts.SizeMax = size
	}

	return dupOpts, nil
}

// printSummary reports the end-of-run totals: duplicates found, bytes
// wasted, and files scanned.
func printSummary(c fsnode.Counters) {
	dupes := c.DupeFileCount - c.DupeSetCount

	fmt.Printf("Found %d duplicate%s of %d file%s (%s wasted)\n",
		dupes, plural(dupes), c.DupeSetCount, plural(c.DupeSetCount), humanSize(c.BytesWasted))
	fmt.Printf("Scanned %d file%s (%s) in %d candidate set%s\n",
		c.FileCount, plural(c.FileCount), humanSize(c.FileSizeTotal),
		c.CandidateSetCount, plural(c.CandidateSetCount))
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
