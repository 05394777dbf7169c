//go:build unix

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile flushes f's contents to stable storage before the CLI
// reports success, the same guarantee filewatcher_unix.go and
// filewatcher_darwin.go lean on unix syscalls for rather than trusting
// a buffered write to have landed.
func fsyncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
