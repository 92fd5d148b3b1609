// Package stacktrace shortens goroutine stacks to the frames that belong to
// this module.
package stacktrace

import (
	"runtime"
	"strconv"
	"strings"
)

const marker = "/internal/"

// InternalPaths extracts "internal/<pkg>/<file>.go:<line>" entries from a
// stack formatted by runtime/debug.Stack.
func InternalPaths(stack []byte) []string {
	var paths []string

	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ".go:")
		if idx == -1 {
			continue
		}

		if sp := strings.IndexByte(line[idx:], ' '); sp != -1 {
			line = line[:idx+sp]
		}

		if p, ok := trimInternal(line); ok {
			paths = append(paths, p)
		}
	}

	return paths
}

// Callers is InternalPaths for the current goroutine, skipping skip frames
// above the caller.
func Callers(skip int) []string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var paths []string
	for {
		f, more := frames.Next()
		if p, ok := trimInternal(f.File + ":" + strconv.Itoa(f.Line)); ok {
			paths = append(paths, p)
		}
		if !more {
			break
		}
	}

	return paths
}

func trimInternal(loc string) (string, bool) {
	i := strings.Index(loc, marker)
	if i == -1 {
		return "", false
	}

	return loc[i+1:], true
}
