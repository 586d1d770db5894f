package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetHome(t *testing.T) {
	home := GetHome()

	userHome, _ := os.UserHomeDir()
	expected := filepath.Join(userHome, ".macrolink")

	if home != expected {
		t.Errorf("GetHome() = %s; want %s", home, expected)
	}
}

func TestGetPaths(t *testing.T) {
	paths := GetPaths()

	if !strings.HasSuffix(paths.ConfigDB, filepath.Join(".macrolink", "config.db")) {
		t.Errorf("ConfigDB path incorrect: %s", paths.ConfigDB)
	}
	if !strings.HasSuffix(paths.Logs, filepath.Join(".macrolink", "logs")) {
		t.Errorf("Logs path incorrect: %s", paths.Logs)
	}
	if !strings.Contains(paths.Home, ".macrolink") {
		t.Errorf("Home path incorrect: %s", paths.Home)
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		input    string
		contains string
	}{
		{"~/test", "/test"},
		{"~", ""},
		{"/absolute/path", "/absolute/path"},
		{"", ""},
	}

	for _, tt := range tests {
		result := ExpandPath(tt.input)
		if tt.input == "~" {
			home, _ := os.UserHomeDir()
			if result != home {
				t.Errorf("ExpandPath(%q) = %q; want home directory", tt.input, result)
			}
		} else if tt.input != "" && !strings.Contains(result, tt.contains) {
			t.Errorf("ExpandPath(%q) = %q; should contain %q", tt.input, result, tt.contains)
		}
	}
}
