package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/macrolink-io/macrolink/internal/client"
	configstore "github.com/macrolink-io/macrolink/internal/config/store"
	macroversion "github.com/macrolink-io/macrolink/internal/version"
)

const commandTimeout = 15 * time.Second

var rootCmd *cobra.Command

func main() {
	rootCmd = &cobra.Command{
		Use:           "macrolink",
		Short:         "MacroLink CLI - manage the TCP trigger daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = macroversion.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	rootCmd.PersistentFlags().String("daemon", "", "daemon base URL (default http://localhost:3114)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")

	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newAutomatorsCmd())
	rootCmd.AddCommand(newTriggerCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// daemonClient builds the HTTP client from the --daemon flag.
func daemonClient(cmd *cobra.Command) *client.Client {
	base, _ := cmd.Flags().GetString("daemon")
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", configstore.DefaultWebPort)
	}
	return client.New(base)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// OutputFormatter handles output in JSON or human-readable format.
type OutputFormatter struct {
	jsonMode bool
}

func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format.
func (f *OutputFormatter) Print(data any, humanFn func()) error {
	if f.jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	humanFn()
	return nil
}
