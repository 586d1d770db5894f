package config

import (
	"os"
	"path/filepath"
)

// Paths contains the on-disk layout used by the MacroLink daemon.
type Paths struct {
	Home     string // Root directory (~/.macrolink)
	ConfigDB string // SQLite configuration store path
	Logs     string // Logs directory
	TempDir  string // Temporary files directory
}

// GetHome returns the MacroLink home directory (~/.macrolink).
func GetHome() string {
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".macrolink")
}

// GetPaths returns the full directory layout rooted at the MacroLink home.
func GetPaths() Paths {
	home := GetHome()
	return Paths{
		Home:     home,
		ConfigDB: filepath.Join(home, "config.db"),
		Logs:     filepath.Join(home, "logs"),
		TempDir:  filepath.Join(home, "tmp"),
	}
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureDirs creates the MacroLink directory structure if it does not exist.
func EnsureDirs() (Paths, error) {
	paths := GetPaths()

	dirs := []string{
		paths.Home,
		paths.Logs,
		paths.TempDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}

	return paths, nil
}
