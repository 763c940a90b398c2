// Package walker implements a single-threaded recursive descent over a
// configured scan root: it classifies every entry, splices matching
// regular files into a fsnode.SizeIndex, and follows at most one level
// of symlink indirection while refusing to walk into any configured scan
// root a second time.
//
// The walker runs single-threaded end to end, by design rather than by
// accident: the size index it populates has no synchronization of its
// own, and a directory tree that's read once in program order is easier
// to reason about than one fanned out across goroutines.
package walker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blockdup/blockdup/internal/fsnode"
	"github.com/blockdup/blockdup/internal/pathresolve"
)

// ErrSink reports a non-fatal scan error for path. The return value is
// currently informational.
type ErrSink func(path, reason string) bool

// Walker recurses configured scan roots, filtering regular files into a
// SizeIndex and accounting FileCount/FileSizeTotal/CandidateSetCount on
// the shared Counters.
//
// A Walker is single-use per root but stateless across roots: call
// WalkRoot once per configured root path, in any order. Roots don't
// interact except through the shared registry used for the
// symlink-loop check.
type Walker struct {
	roots    []string // canonicalized scan-root registry, for the symlink-loop check
	opts     fsnode.DupOptions
	index    *fsnode.SizeIndex
	counters *fsnode.Counters
	errSink  ErrSink
}

// New creates a Walker. roots is the canonicalized scan-root registry
// used by the symlink-loop check; it should contain every root the
// orchestrator will eventually call WalkRoot on.
func New(roots []string, opts fsnode.DupOptions, index *fsnode.SizeIndex, counters *fsnode.Counters, errSink ErrSink) *Walker {
	return &Walker{
		roots:    roots,
		opts:     opts,
		index:    index,
		counters: counters,
		errSink:  errSink,
	}
}

// WalkRoot recurses root, which must already be an absolute, canonical
// directory path. Per-entry errors are reported via the error sink and
// the walk continues; a failure to open root itself is reported and that
// root is abandoned. WalkRoot never returns an error: it never
// terminates the process.
func (w *Walker) WalkRoot(root string) {
	w.walkDir(fsnode.NewDirRef(root))
}

// walkDir lists one directory and classifies every entry. dir already
// owns the canonical path for this level.
func (w *Walker) walkDir(dir *fsnode.DirRef) {
	entries, err := os.ReadDir(dir.Path())
	if err != nil {
		w.sendError(dir.Path(), err)
		return
	}

	madeFileRef := false
	for _, entry := range entries {
		name := entry.Name()
		fullPath := dir.Path() + name

		info, err := os.Lstat(fullPath)
		if err != nil {
			w.sendError(fullPath, err)
			continue
		}

		if w.classify(dir, name, fullPath, info, false) {
			madeFileRef = true
		}
	}

	if !madeFileRef {
		// No FileRef retained this directory; nothing more to do with it.
		// Go's GC reclaims dir regardless of this call, but Release keeps
		// the refcount accurate for anything else still holding dir.
		dir.Release()
	}
}

// classify inspects one directory entry (already lstat'd into info, at
// fullPath) and either: splices a matching regular file into the size
// index, recurses into a subdirectory, or resolves one level of symlink
// indirection and reclassifies. It reports whether a FileRef was added
// under dir (so the caller can decide whether dir needs releasing).
//
// viaSymlink marks a reclassification reached by following a symlink: a
// symlink pointing to another symlink is skipped rather than chased
// further, so symlink indirection bottoms out after one hop.
func (w *Walker) classify(dir *fsnode.DirRef, name, fullPath string, info os.FileInfo, viaSymlink bool) bool {
	mode := info.Mode()

	switch {
	case mode&os.ModeSymlink != 0:
		if viaSymlink {
			return false
		}
		return w.classifySymlink(dir, name, fullPath)

	case mode.IsRegular():
		return w.classifyRegular(dir, name, info.Size())

	case info.IsDir():
		w.walkDir(fsnode.NewDirRef(fullPath))
		return false

	default:
		// Devices, sockets, FIFOs, etc. have no byte content to compare.
		return false
	}
}

// classifyRegular applies DupOptions and, if the file is accepted,
// splices a FileRef into the size index.
func (w *Walker) classifyRegular(dir *fsnode.DirRef, name string, size int64) bool {
	if !w.opts.Accepts(size) {
		return false
	}

	ref := fsnode.NewFileRef(dir, name)
	becameCandidate := w.index.Add(size, ref)

	w.counters.FileCount++
	w.counters.FileSizeTotal += size
	if becameCandidate {
		w.counters.CandidateSetCount++
	}
	return true
}

// classifySymlink resolves a symlink's target, refuses to follow it into
// any configured scan root, and otherwise restarts classification on the
// target's own (non-following) stat — but recursing, if the target turns
// out to be a directory, through the symlink's own path rather than the
// resolved one: reading a directory through a symlink transparently
// follows it, so there is no need to walk under the resolved absolute
// path instead.
func (w *Walker) classifySymlink(dir *fsnode.DirRef, name, fullPath string) bool {
	target, err := os.Readlink(fullPath)
	if err != nil {
		w.sendError(fullPath, err)
		return false
	}

	if !filepath.IsAbs(target) {
		target = dir.Path() + target
	}

	resolved, ok := pathresolve.Resolve(target)
	if !ok {
		w.sendError(fullPath, fmt.Errorf("invalid link path %q", target))
		return false
	}

	for _, root := range w.roots {
		if pathresolve.HasRootPrefix(resolved, root) {
			// Following this link would double-count or loop; drop it.
			return false
		}
	}

	destInfo, err := os.Lstat(resolved)
	if err != nil {
		w.sendError(resolved, err)
		return false
	}

	return w.classify(dir, name, fullPath, destInfo, true)
}

func (w *Walker) sendError(path string, err error) {
	if w.errSink != nil {
		w.errSink(path, err.Error())
	}
}
