// Package fsnode holds the data model scanned files are assembled into:
// directory references, file references, and the size index that groups
// files into candidate sets.
package fsnode

import "strings"

// DirRef is a reference-counted directory path, shared by every FileRef
// created while that directory was being walked. A directory containing
// k files stores its path once, not k times.
//
// The refcount is a plain int, not atomic: the walker and size index run
// single-threaded, so there is no concurrent access to guard against.
type DirRef struct {
	path string // always ends in "/"
	refs int
}

// NewDirRef creates a DirRef for dir, normalizing it to end in "/".
func NewDirRef(dir string) *DirRef {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return &DirRef{path: dir}
}

// Path returns the directory's path, always ending in "/".
func (d *DirRef) Path() string { return d.path }

// Retain increments the reference count and returns d, for chaining into
// FileRef construction.
func (d *DirRef) Retain() *DirRef {
	d.refs++
	return d
}

// Release decrements the reference count. It is a bookkeeping no-op in
// Go (the Go runtime reclaims the DirRef once nothing points to it); it
// exists so the walker can tell whether an empty directory visit left
// any trace worth keeping.
func (d *DirRef) Release() {
	if d.refs > 0 {
		d.refs--
	}
}

// Refs reports the current reference count.
func (d *DirRef) Refs() int { return d.refs }

// FileRef references one scanned regular file: its owning directory and
// leaf name. Size lives on the SizeIndex bucket it belongs to, since
// every FileRef in a bucket shares it by construction.
type FileRef struct {
	Dir  *DirRef
	Name string
}

// NewFileRef creates a FileRef in dir, retaining dir's reference count.
func NewFileRef(dir *DirRef, name string) *FileRef {
	dir.Retain()
	return &FileRef{Dir: dir, Name: name}
}

// FullPath returns the file's absolute path: dir.Path() + name.
func (f *FileRef) FullPath() string {
	return f.Dir.Path() + f.Name
}

// DupOptions configures which regular files the walker accepts. A zero
// value accepts every non-empty regular file.
type DupOptions struct {
	SizeEq  int64 // only files of exactly this size; 0 = disabled
	SizeMin int64 // only files strictly greater than this; 0 = disabled
	SizeMax int64 // only files strictly less than this; 0 = disabled
}

// Accepts reports whether a regular file of the given size passes the
// configured filters. Empty files are never accepted.
func (o DupOptions) Accepts(size int64) bool {
	if size == 0 {
		return false
	}
	if o.SizeEq != 0 {
		return size == o.SizeEq
	}
	if o.SizeMin != 0 && size <= o.SizeMin {
		return false
	}
	if o.SizeMax != 0 && size >= o.SizeMax {
		return false
	}
	return true
}

// Counters aggregates the running totals reported at the end of a run.
// Owned by the orchestrator; updated by the walker (FileCount/
// FileSizeTotal/CandidateSetCount) and by the orchestrator as it
// consumes comparator results (DupeFileCount/DupeSetCount/BytesWasted).
type Counters struct {
	FileCount         int64
	FileSizeTotal     int64
	CandidateSetCount int64
	DupeFileCount     int64
	DupeSetCount      int64
	BytesWasted       int64 // sum of size*(groupSize-1) across every duplicate group
}
