package bridge

import "src.vbridge.sh/pkg/vdom"

// NormalizePath converts a path as it appears in path-addressed instructions,
// which is relative to the root of the last loaded template, into the
// absolute form used by the table, whose first element is the root index.
//
// This is the only place where the two conventions meet.
func NormalizePath(rootIndex int, path vdom.Path) vdom.Path {
	abs := make(vdom.Path, 0, len(path)+1)
	abs = append(abs, rootIndex)
	return append(abs, path...)
}
