//go:build unix

package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blockdup/blockdup/internal/fsnode"
)

func createFile(t *testing.T, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			t.Fatal(err)
		}
	}
}

func run(t *testing.T, roots []string, opts fsnode.DupOptions) (*fsnode.SizeIndex, *fsnode.Counters) {
	t.Helper()
	idx := fsnode.NewSizeIndex()
	counters := &fsnode.Counters{}
	w := New(roots, opts, idx, counters, func(path, reason string) bool {
		t.Logf("scan error: %s: %s", path, reason)
		return true
	})
	for _, r := range roots {
		w.WalkRoot(r)
	}
	return idx, counters
}

func TestWalkBasic(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.txt"), 100)
	createFile(t, filepath.Join(root, "b.txt"), 200)
	createFile(t, filepath.Join(root, "sub", "c.txt"), 300)

	idx, counters := run(t, []string{root}, fsnode.DupOptions{})

	if counters.FileCount != 3 {
		t.Errorf("FileCount = %d, want 3", counters.FileCount)
	}
	if counters.FileSizeTotal != 600 {
		t.Errorf("FileSizeTotal = %d, want 600", counters.FileSizeTotal)
	}
	if idx.Len() != 3 {
		t.Errorf("expected 3 distinct size buckets, got %d", idx.Len())
	}
}

func TestWalkExcludesEmptyFiles(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "empty.txt"), 0)
	createFile(t, filepath.Join(root, "nonempty.txt"), 10)

	_, counters := run(t, []string{root}, fsnode.DupOptions{})

	if counters.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (empty file must be excluded)", counters.FileCount)
	}
}

func TestWalkCandidateSetCounting(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a"), 50)
	createFile(t, filepath.Join(root, "b"), 50)
	createFile(t, filepath.Join(root, "c"), 50)
	createFile(t, filepath.Join(root, "d"), 99)

	_, counters := run(t, []string{root}, fsnode.DupOptions{})

	if counters.CandidateSetCount != 1 {
		t.Errorf("CandidateSetCount = %d, want 1", counters.CandidateSetCount)
	}
}

func TestWalkSizeFilters(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a"), 4)
	createFile(t, filepath.Join(root, "b"), 5)
	createFile(t, filepath.Join(root, "c"), 5)
	createFile(t, filepath.Join(root, "d"), 6)

	_, counters := run(t, []string{root}, fsnode.DupOptions{SizeEq: 5})
	if counters.FileCount != 2 {
		t.Errorf("SizeEq=5: FileCount = %d, want 2", counters.FileCount)
	}
}

func TestWalkSymlinkLoopSafety(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "f.txt"), 10)
	if err := os.Symlink(root, filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}

	_, counters := run(t, []string{root}, fsnode.DupOptions{})

	if counters.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (self-referential symlink must not be followed)", counters.FileCount)
	}
}

func TestWalkSymlinkIntoSecondRoot(t *testing.T) {
	r1 := t.TempDir()
	r2 := t.TempDir()
	createFile(t, filepath.Join(r1, "f.txt"), 10)
	if err := os.Symlink(r2, filepath.Join(r1, "link-to-r2")); err != nil {
		t.Fatal(err)
	}
	createFile(t, filepath.Join(r2, "g.txt"), 10)

	_, counters := run(t, []string{r1, r2}, fsnode.DupOptions{})

	// g.txt is reachable directly via r2; the symlink from r1 must not
	// cause it to be counted twice.
	if counters.FileCount != 2 {
		t.Errorf("FileCount = %d, want 2", counters.FileCount)
	}
}

func TestWalkFollowsExternalSymlinkedFile(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	createFile(t, filepath.Join(outside, "real.txt"), 42)
	if err := os.Symlink(filepath.Join(outside, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Fatal(err)
	}

	_, counters := run(t, []string{root}, fsnode.DupOptions{})

	if counters.FileCount != 1 {
		t.Errorf("FileCount = %d, want 1 (symlink to a file outside any root should be followed)", counters.FileCount)
	}
	if counters.FileSizeTotal != 42 {
		t.Errorf("FileSizeTotal = %d, want 42", counters.FileSizeTotal)
	}
}

func TestWalkOpenRootFailureIsReported(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	var errs []string
	idx := fsnode.NewSizeIndex()
	counters := &fsnode.Counters{}
	w := New([]string{missing}, fsnode.DupOptions{}, idx, counters, func(path, reason string) bool {
		errs = append(errs, path)
		return true
	})
	w.WalkRoot(missing)

	if len(errs) != 1 {
		t.Fatalf("expected 1 error report, got %d", len(errs))
	}
	if counters.FileCount != 0 {
		t.Errorf("FileCount = %d, want 0", counters.FileCount)
	}
}
