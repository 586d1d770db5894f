package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/macrolink-io/macrolink/internal/capture"
)

const capturePollInterval = 500 * time.Millisecond

func newCaptureCmd() *cobra.Command {
	var port int
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the next received TCP trigger string",
		Long: `Claims the daemon's capture slot and waits for the next trigger string
received on a TCP listener. Prints the captured string and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), wait+commandTimeout)
			defer cancel()

			c := daemonClient(cmd)
			if err := c.CaptureStart(ctx, port); err != nil {
				return err
			}

			deadline := time.Now().Add(wait)
			for time.Now().Before(deadline) {
				result, state, err := c.CaptureStatus(ctx)
				if err != nil {
					return err
				}
				if state == capture.StateCaptured {
					fmt.Printf("Captured %q from %s on port %d\n", result.Trigger, result.Source, result.Port)
					return nil
				}
				time.Sleep(capturePollInterval)
			}

			if err := c.CaptureCancel(ctx); err != nil {
				return fmt.Errorf("cancel capture: %w", err)
			}
			return fmt.Errorf("no trigger string received within %s", wait)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "only capture from this listener port (default: any)")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for a trigger")
	return cmd
}
