// Package pathresolve canonicalizes path strings without touching the
// filesystem.
//
// It exists so a symlink's textual destination can be compared against
// the configured scan roots without ever calling stat or readlink again:
// the walker already has the raw (possibly relative) link target, and
// needs a deterministic, filesystem-free way to collapse it to the same
// form the scan roots are stored in.
package pathresolve

import "strings"

// Resolve collapses "." and ".." segments and repeated "/" separators in
// path, without consulting the filesystem. It returns ("", false) if path
// is empty.
//
// Rules (see DESIGN.md for the reference implementation this is
// grounded on):
//   - "." segments are dropped.
//   - ".." segments pop the previous segment, except:
//   - when the buffer built so far is exactly "/" (can't go above root;
//     the segment is ignored), or
//   - when the accumulated output is itself a run of leading ".."
//     segments in a relative path, in which case the new ".." piles on
//     instead of popping (there is nothing concrete to pop).
func Resolve(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	absolute := path[0] == '/'
	segments := strings.Split(path, "/")

	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			// Empty segments come from "//" or a leading/trailing "/";
			// both collapse away same as ".".
			continue
		case "..":
			if n := len(out); n > 0 && out[n-1] != ".." {
				// Pop a real, concrete segment.
				out = out[:n-1]
				continue
			}
			if absolute {
				// Already at "/": going above root is impossible, ignore.
				continue
			}
			// Relative path with nothing concrete left to pop: the ".."
			// piles onto the leading run instead of being discarded.
			out = append(out, "..")
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, "/")
	if absolute {
		return "/" + joined, true
	}
	if joined == "" {
		return ".", true
	}
	return joined, true
}

// HasRootPrefix reports whether resolved path p falls under root, where
// root is a canonicalized directory path that may or may not carry a
// trailing "/". A single trailing "/" on root is tolerated; this is the
// check the walker uses to refuse to follow a symlink back into a
// configured scan root.
func HasRootPrefix(p, root string) bool {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		// root was "/" — everything is under it.
		return true
	}
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+"/")
}
