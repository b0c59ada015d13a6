// Package stacktrace trims goroutine dumps to the frames that belong to
// this module.
package stacktrace

import "strings"

const marker = "/internal/"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame in
// a debug.Stack dump that points into an internal package.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		idx := strings.Index(line, ".go:")
		if idx == -1 {
			continue
		}

		// Drop the "+0x1f" program counter suffix.
		loc, _, _ := strings.Cut(line, " ")
		start := strings.Index(loc, marker)
		if start == -1 {
			continue
		}
		paths = append(paths, loc[start+1:])
	}
	return paths
}
