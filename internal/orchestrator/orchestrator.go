// Package orchestrator drives the full run: walk every configured root
// into a size index, cull it down to candidate sets, and deep-compare
// each candidate set in turn, handing confirmed duplicate groups and
// errors off to the caller's sinks.
//
// Like the walker and comparator it drives, the orchestrator itself is
// single-threaded — candidate sets are compared one at a time, in
// whatever order the size index yields them, with no goroutines of its
// own. A caller that wants scan and compare running concurrently across
// many candidate sets is free to build that on top of this package, but
// nothing in here requires it.
//
// Scan and Compare are split into two calls rather than one so a caller
// can interject between them — the CLI uses this to ask whether to
// proceed once scan errors are known, before the (potentially slow)
// compare phase starts.
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/blockdup/blockdup/internal/comparator"
	"github.com/blockdup/blockdup/internal/fdlimit"
	"github.com/blockdup/blockdup/internal/fsnode"
	"github.com/blockdup/blockdup/internal/pathresolve"
	"github.com/blockdup/blockdup/internal/progress"
	"github.com/blockdup/blockdup/internal/sink"
	"github.com/blockdup/blockdup/internal/walker"
)

// Options configures one orchestrator run.
type Options struct {
	Roots        []string // scan roots, as given on the command line
	DupOpts      fsnode.DupOptions
	ShowProgress bool
	DupSink      sink.DupSink
	ErrSink      sink.ErrSink
	FDReserve    int // descriptors to hold back from fdlimit.Check for stdio/output
}

// stats tracks running totals for progress display. It mirrors
// fsnode.Counters but adds the wall-clock start time the Stringer needs
// to report elapsed time, matching the progress bar's describe/finish
// contract of taking a fmt.Stringer.
type stats struct {
	fsnode.Counters
	startTime time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("%d files (%s), %d candidate sets, %d dupes in %d sets, %.1fs",
		s.FileCount, humanize.IBytes(uint64(s.FileSizeTotal)),
		s.CandidateSetCount, s.DupeFileCount, s.DupeSetCount,
		time.Since(s.startTime).Seconds())
}

// Scan holds the state produced by a completed scan phase: the culled
// candidate-set index, running counters, and whether any scan error was
// reported along the way.
type Scan struct {
	index     *fsnode.SizeIndex
	st        *stats
	bar       *progress.Bar
	HadErrors bool
}

// Counters returns a snapshot of the running totals gathered so far.
func (s *Scan) Counters() fsnode.Counters { return s.st.Counters }

// ScanRoots walks every configured root, culls singleton size classes,
// and returns the resulting candidate sets plus running counters. Every
// per-entry and per-root scan failure is reported through opts.ErrSink;
// none of them abort the scan.
func ScanRoots(opts Options) *Scan {
	s := &Scan{
		index: fsnode.NewSizeIndex(),
		st:    &stats{startTime: time.Now()},
		bar:   progress.New(opts.ShowProgress, -1),
	}
	s.bar.Describe(s.st)

	roots := canonicalizeRoots(opts.Roots, opts.ErrSink)

	errSink := func(path, reason string) bool {
		s.HadErrors = true
		if opts.ErrSink != nil {
			opts.ErrSink.Err(path, reason)
		}
		return true
	}

	w := walker.New(roots, opts.DupOpts, s.index, &s.st.Counters, errSink)
	for _, root := range roots {
		w.WalkRoot(root)
		s.bar.Describe(s.st)
	}

	s.index.Cull()
	return s
}

// Compare deep-compares every candidate set left over from a prior
// ScanRoots call and returns the final counters. A fatal I/O error
// during one candidate set's compare is reported through opts.ErrSink
// and that candidate set is abandoned; it never aborts the rest of the
// run.
func Compare(s *Scan, opts Options) fsnode.Counters {
	for size, files := range s.index.CandidateSets() {
		compareSet(size, files, opts, s.st)
		s.bar.Describe(s.st)
	}
	s.bar.Finish(s.st)
	return s.st.Counters
}

// Run executes one scan-then-compare pass and returns the final
// counters. It never returns an error itself: every scan and compare
// failure is reported through opts.ErrSink and the run continues past
// it. Callers that need to interject between the two phases (e.g. to
// confirm continuing after scan errors) should call ScanRoots and
// Compare directly instead.
func Run(opts Options) fsnode.Counters {
	s := ScanRoots(opts)
	return Compare(s, opts)
}

// canonicalizeRoots resolves every configured root to an absolute,
// lexically clean path (relative roots are joined against the working
// directory, exactly as a relative command-line argument would be),
// deduplicating equivalent roots (e.g. "a" and "a/./") along the way. A
// root is never resolved through symlinks here — only its text is
// cleaned up — matching how symlink targets are checked against it
// during the walk. A root that cannot be canonicalized is reported and
// dropped rather than aborting the whole run.
func canonicalizeRoots(roots []string, errSink sink.ErrSink) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(roots))

	cwd, cwdErr := os.Getwd()

	for _, root := range roots {
		candidate := root
		if !filepath.IsAbs(candidate) {
			if cwdErr != nil {
				if errSink != nil {
					errSink.Err(root, fmt.Sprintf("cannot determine working directory: %v", cwdErr))
				}
				continue
			}
			candidate = cwd + "/" + candidate
		}

		resolved, ok := pathresolve.Resolve(candidate)
		if !ok {
			if errSink != nil {
				errSink.Err(root, "invalid root path")
			}
			continue
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

// compareSet deep-compares one candidate set and forwards any confirmed
// duplicate groups to opts.DupSink. A fatal I/O error during the
// compare is reported through opts.ErrSink and the candidate set is
// abandoned; it never aborts the rest of the run.
func compareSet(size int64, files []*fsnode.FileRef, opts Options, st *stats) {
	if err := fdlimit.Check(len(files), opts.FDReserve); err != nil {
		if opts.ErrSink != nil {
			opts.ErrSink.Err(fmt.Sprintf("candidate set (size=%d)", size), err.Error())
		}
		return
	}

	groups, err := comparator.Compare(files, size)
	if err != nil {
		if opts.ErrSink != nil {
			opts.ErrSink.Err(fmt.Sprintf("candidate set (size=%d)", size), err.Error())
		}
		return
	}

	for _, g := range groups {
		st.DupeSetCount++
		st.DupeFileCount += int64(len(g.Files))
		st.BytesWasted += g.Size * int64(len(g.Files)-1)
		if opts.DupSink != nil {
			opts.DupSink.Dup(g)
		}
	}
}
