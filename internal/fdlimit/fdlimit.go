//go:build unix

// Package fdlimit checks the process's open-file-descriptor limit
// against what a candidate set's deep comparison is about to need: the
// comparator holds one descriptor open per live file in a candidate set
// for the duration of the compare, so a candidate set larger than the
// soft limit would fail mid-comparison instead of up front.
package fdlimit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Check returns an error if want open descriptors would exceed the
// process's current soft RLIMIT_NOFILE, leaving headroom reserved for
// stdio, the output sink, and any file the orchestrator already has
// open.
func Check(want int, reserve int) error {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return fmt.Errorf("fdlimit: getrlimit: %w", err)
	}

	avail := int(rlim.Cur) - reserve
	if want > avail {
		return fmt.Errorf(
			"fdlimit: candidate set needs %d open files but only %d are available (soft limit %d, reserved %d); raise the open-file limit or narrow the scan with --min-size/--max-size",
			want, avail, rlim.Cur, reserve,
		)
	}
	return nil
}

// Raise attempts to raise the soft RLIMIT_NOFILE to the hard limit,
// mirroring what a long-running scan needs on platforms where the
// default soft limit (1024 on most Linux distributions) is well below
// what a single large candidate set can require. It is best-effort: a
// failure to raise the limit is returned but callers may choose to
// proceed anyway and rely on Check to catch the cases that matter.
func Raise() error {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return fmt.Errorf("fdlimit: getrlimit: %w", err)
	}
	if rlim.Cur >= rlim.Max {
		return nil
	}
	rlim.Cur = rlim.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return fmt.Errorf("fdlimit: setrlimit: %w", err)
	}
	return nil
}
