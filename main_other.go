//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The hotkey library needs the OS main thread on macOS; run everything else
// from there.
func main() {
	mainthread.Init(run)
}
