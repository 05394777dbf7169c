//go:build windows

package main

import "os"

// fsyncFile falls back to the stdlib on windows, where x/sys/unix does
// not build.
func fsyncFile(f *os.File) error {
	return f.Sync()
}
