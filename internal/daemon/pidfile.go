package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/macrolink-io/macrolink/internal/config"
)

func pidFilePath() string {
	return filepath.Join(config.GetHome(), "macrolinkd.pid")
}

// IsRunning checks whether another daemon instance already holds the pid
// file. Stale pid files from crashed daemons are removed.
func IsRunning() bool {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(pidFilePath())
		return false
	}

	if !processAlive(pid) {
		os.Remove(pidFilePath())
		return false
	}
	return true
}

func writePIDFile() error {
	if _, err := config.EnsureDirs(); err != nil {
		return err
	}
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(pidFilePath(), []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("daemon: write pid file: %w", err)
	}
	return nil
}

func removePIDFile() {
	os.Remove(pidFilePath())
}
