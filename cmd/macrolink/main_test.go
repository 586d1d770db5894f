package main

import (
	"testing"

	"github.com/spf13/cobra"
)

func testCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("daemon", "", "")
	cmd.Flags().Bool("json", false, "")
	return cmd
}

func TestDaemonClientDefaultURL(t *testing.T) {
	c := daemonClient(testCommand())
	if c.BaseURL() != "http://localhost:3114" {
		t.Errorf("unexpected default base URL %q", c.BaseURL())
	}
}

func TestDaemonClientFlagOverride(t *testing.T) {
	cmd := testCommand()
	if err := cmd.Flags().Set("daemon", "http://10.0.0.2:4114/"); err != nil {
		t.Fatal(err)
	}
	c := daemonClient(cmd)
	if c.BaseURL() != "http://10.0.0.2:4114" {
		t.Errorf("expected trailing slash trimmed, got %q", c.BaseURL())
	}
}

func TestOutputFormatterModes(t *testing.T) {
	cmd := testCommand()
	if f := newOutputFormatter(cmd); f.jsonMode {
		t.Error("expected human mode by default")
	}
	if err := cmd.Flags().Set("json", "true"); err != nil {
		t.Fatal(err)
	}
	if f := newOutputFormatter(cmd); !f.jsonMode {
		t.Error("expected json mode with --json")
	}
}
