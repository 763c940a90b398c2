// Package comparator implements the block-synchronous multi-way deep
// comparison: given a candidate set of files all sharing one exact size,
// it reads them in lockstep, fixed-size block by fixed-size block, and
// uses a triangular pair-flag array with a one-shot transitive-equality
// shortcut and a permanent transitive-mismatch retirement to avoid most
// of the O(n²) comparisons an unoptimized pairwise scan would need.
//
// This is deliberately not a hashing algorithm: the point is to
// terminate on the first differing block instead of reading every byte
// of every file regardless of outcome.
package comparator

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/blockdup/blockdup/internal/fsnode"
)

// BlockSize is the fixed read-buffer size used for lockstep reads.
const BlockSize = 65536

// pair-flag states.
const (
	flagMismatch    = 0 // proven non-matching (sticky)
	flagLiveMatch   = 1 // still a live candidate match
	flagBlockEqual  = 2 // known equal for the current block (transitive shortcut; resets to 1)
)

// Group is a duplicate group: a maximal subset of a candidate set whose
// members are byte-for-byte identical.
type Group struct {
	Files []*fsnode.FileRef
	Size  int64
}

// Error is returned for a terminal deep-compare I/O failure: the
// lockstep reader assumes every live file returns the same read length
// each block, which no longer holds once any read fails.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("deep compare: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Compare runs the deep comparator over one candidate set. files must
// all share the same byte size; that invariant is the size index's
// responsibility to uphold, not this function's to verify.
//
// On success, Compare returns the duplicate groups found (possibly none,
// if every file turned out distinct) and a nil error. On a fatal read
// error it returns a nil group slice: a terminal I/O error aborts the
// whole candidate set rather than yielding a best-effort partial result.
func Compare(files []*fsnode.FileRef, size int64) ([]Group, error) {
	n := len(files)
	if n < 2 {
		return nil, nil
	}

	c, err := newComparison(files, size)
	if err != nil {
		return nil, err
	}
	defer c.closeAll()

	if err := c.run(); err != nil {
		return nil, err
	}

	return c.assembleGroups(), nil
}

// comparison holds the per-invocation state: open descriptors, one read
// buffer per file, the triangular pair-flag array, and the
// omission/skipcount bookkeeping that lets files drop out of
// consideration before EOF.
type comparison struct {
	files []*fsnode.FileRef
	size  int64
	n     int

	fds  []*os.File
	bufs [][]byte

	flags     []byte // triangular pair-flag array, indexed via idx(i,j)
	mresult   []int  // mresult[j]: sign(memcmp) of (outer i, j) for the current block
	omit      []bool
	skipcount []int
	omitted   int
}

func newComparison(files []*fsnode.FileRef, size int64) (*comparison, error) {
	n := len(files)
	c := &comparison{
		files:     files,
		size:      size,
		n:         n,
		fds:       make([]*os.File, n),
		bufs:      make([][]byte, n),
		flags:     make([]byte, pairCount(n)),
		mresult:   make([]int, n),
		omit:      make([]bool, n),
		skipcount: make([]int, n),
	}

	for i := range c.flags {
		c.flags[i] = flagLiveMatch
	}

	for i, f := range files {
		fd, err := os.Open(f.FullPath())
		if err != nil {
			c.closeAll()
			return nil, &Error{Path: f.FullPath(), Err: err}
		}
		c.fds[i] = fd
		c.bufs[i] = make([]byte, BlockSize)
	}

	return c, nil
}

func (c *comparison) closeAll() {
	for i, fd := range c.fds {
		if fd != nil {
			_ = fd.Close()
			c.fds[i] = nil
		}
	}
}

// pairCount returns n(n-1)/2, the length of the triangular pair-flag
// array for n files.
func pairCount(n int) int {
	return n * (n - 1) / 2
}

// idx maps an unordered pair (i,j), i<j, to its position in the
// triangular array:
//
//	idx(i,j) = (n-1)*i - i*(i/2 - 1/2) + (j-i) - 1
//
// enumerating (0,1),(0,2),...,(0,n-1),(1,2),...,(n-2,n-1).
func (c *comparison) idx(i, j int) int {
	n := c.n
	return (n-1)*i - i*(i-1)/2 + (j - i) - 1
}

// run executes the main block loop until every file reaches EOF, every
// file is omitted, or a read returns 0.
func (c *comparison) run() error {
	for {
		r, err := c.readBlock()
		if err != nil {
			return err
		}
		if r == 0 {
			// All live files are assumed equal in size; a synchronous
			// zero-length read means every live pair matched through EOF.
			return nil
		}

		c.compareBlock(r)

		if c.omitted == c.n {
			return nil
		}
	}
}

// readBlock reads up to BlockSize bytes into every live file's buffer.
// Every live file shares the same total size, so a synchronous
// full-length read returns the same count for all of them; a short or
// empty read from one is taken to mean every live file just hit EOF
// together.
func (c *comparison) readBlock() (int, error) {
	r := 0
	for i := 0; i < c.n; i++ {
		if c.omit[i] {
			continue
		}
		n, err := io.ReadFull(c.fds[i], c.bufs[i])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, &Error{Path: c.files[i].FullPath(), Err: err}
		}
		r = n
		if n == 0 {
			return 0, nil
		}
		c.bufs[i] = c.bufs[i][:n]
	}
	return r, nil
}

// compareBlock runs the pairwise compare + transitive inference pass
// over the block just read into every live buffer.
func (c *comparison) compareBlock(r int) {
	for i := 0; i < c.n; i++ {
		if c.omit[i] {
			continue
		}

		for j := i + 1; j < c.n; j++ {
			if c.omit[j] {
				continue
			}
			c.comparePair(i, j, r)
		}

		if c.skipcount[i] == c.n-1 {
			c.omitFile(i)
		}
		if c.omitted == c.n {
			return
		}
	}
}

// comparePair handles one (i,j) pair: the memcmp-or-shortcut step, the
// transitive inference against every already-tested (k,j), and the
// retirement of (i,j) itself if this block proved them unequal.
func (c *comparison) comparePair(i, j, r int) {
	flagPos := c.idx(i, j)
	switch c.flags[flagPos] {
	case flagMismatch:
		return
	case flagBlockEqual:
		c.flags[flagPos] = flagLiveMatch
		c.mresult[j] = 0
	default:
		c.mresult[j] = bytes.Compare(c.bufs[i], c.bufs[j])
	}

	for k := j - 1; k > i; k-- {
		if c.omit[k] {
			continue
		}
		kFlagPos := c.idx(k, j)
		if c.flags[kFlagPos] == flagMismatch {
			continue
		}

		switch {
		case c.mresult[k] != c.mresult[j]:
			c.retirePair(kFlagPos, k, j)
		case c.mresult[k] == 0 && c.mresult[j] == 0:
			// i's block puts both k and j in the same equivalence bucket
			// this block: they must be equal too. One-shot; reset to
			// flagLiveMatch the next time (k,j) is visited.
			c.flags[kFlagPos] = flagBlockEqual
		}
	}

	if c.mresult[j] != 0 {
		c.retirePair(flagPos, i, j)
	}
}

// retirePair marks (a,b) permanently non-matching and omits either file
// once it has been ruled out against every other live file.
func (c *comparison) retirePair(flagPos, a, b int) {
	c.flags[flagPos] = flagMismatch
	c.skipcount[a]++
	c.skipcount[b]++
	if c.skipcount[a] == c.n-1 {
		c.omitFile(a)
	}
	if c.skipcount[b] == c.n-1 {
		c.omitFile(b)
	}
}

// omitFile drops file k from further consideration: it has no live
// pair left, so its descriptor is closed immediately rather than held
// open until the comparison ends.
func (c *comparison) omitFile(k int) {
	if c.omit[k] {
		return
	}
	c.omit[k] = true
	c.omitted++
	if c.fds[k] != nil {
		_ = c.fds[k].Close()
		c.fds[k] = nil
	}
}

// assembleGroups forms duplicate groups from the surviving flagLiveMatch
// pairs. Every pair still flagLiveMatch after the main loop is, by the
// loop invariant, equal on every block read — so grouping by "still
// linked to i" yields transitively closed equivalence classes.
func (c *comparison) assembleGroups() []Group {
	absorbed := make([]bool, c.n)
	var groups []Group

	for i := 0; i < c.n; i++ {
		if c.omit[i] || absorbed[i] {
			continue
		}

		members := []*fsnode.FileRef{c.files[i]}
		for j := i + 1; j < c.n; j++ {
			if c.omit[j] || absorbed[j] {
				continue
			}
			if c.flags[c.idx(i, j)] == flagLiveMatch {
				members = append(members, c.files[j])
				absorbed[j] = true
			}
		}

		if len(members) >= 2 {
			groups = append(groups, Group{Files: members, Size: c.size})
		}
	}

	return groups
}
