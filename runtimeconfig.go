package treeture

import (
	"os"
	"runtime"
	"strconv"
)

// numWorkersFromEnv resolves the pool size from the NUM_WORKERS
// environment variable, falling back to the host's reported hardware
// concurrency. A single os.Getenv/strconv.Atoi pair is the smallest correct
// tool for one integer knob; a full configuration framework would be
// disproportionate for it.
func numWorkersFromEnv() int {
	if v := os.Getenv("NUM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.GOMAXPROCS(0)
}
