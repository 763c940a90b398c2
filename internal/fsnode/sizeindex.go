package fsnode

// SizeIndex maps file size to the files scanned at that size: files are
// spliced in during the walk, and at end-of-scan every singleton bucket
// is culled, leaving exactly the candidate sets.
//
// A reference C-family implementation of this index threads an intrusive
// singly-linked list through each file record so a size class costs one
// pointer per file. Go has no idiomatic equivalent of splicing a pointer
// field by hand, so this uses a flat slice per bucket instead — same
// grouping semantics, backed by Go's own growable array rather than a
// hand-linked list.
type SizeIndex struct {
	buckets map[int64][]*FileRef
}

// NewSizeIndex creates an empty SizeIndex.
func NewSizeIndex() *SizeIndex {
	return &SizeIndex{buckets: make(map[int64][]*FileRef)}
}

// Add splices ref into the bucket for size. It reports whether this
// insertion just turned a singleton bucket into a candidate set (i.e.
// the bucket now has exactly 2 members) — the caller uses this to
// increment CandidateSetCount exactly once per transition.
func (idx *SizeIndex) Add(size int64, ref *FileRef) (becameCandidate bool) {
	bucket := idx.buckets[size]
	bucket = append(bucket, ref)
	idx.buckets[size] = bucket
	return len(bucket) == 2
}

// Cull removes every bucket with fewer than 2 members. After Cull, the
// index holds exactly the candidate sets.
func (idx *SizeIndex) Cull() {
	for size, bucket := range idx.buckets {
		if len(bucket) < 2 {
			delete(idx.buckets, size)
		}
	}
}

// CandidateSets returns the remaining buckets after Cull, keyed by size.
// Iteration order is unspecified; the orchestrator is free to process
// candidate sets in any order.
func (idx *SizeIndex) CandidateSets() map[int64][]*FileRef {
	return idx.buckets
}

// Len reports the number of distinct size buckets currently tracked
// (candidate sets, if called after Cull).
func (idx *SizeIndex) Len() int {
	return len(idx.buckets)
}
