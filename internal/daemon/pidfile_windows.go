//go:build windows

package daemon

import "os"

func processAlive(pid int) bool {
	// FindProcess only fails on Windows when the process does not exist.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	process.Release()
	return true
}
