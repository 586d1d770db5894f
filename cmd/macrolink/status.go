package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and active TCP listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			status, err := daemonClient(cmd).Status(ctx)
			if err != nil {
				return err
			}

			return newOutputFormatter(cmd).Print(status, func() {
				fmt.Printf("Daemon version: %s\n", status.Version)
				fmt.Printf("Uptime:         %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
				fmt.Printf("Commands:       %d\n", status.Commands)
				fmt.Printf("Automators:     %d\n", status.Automators)
				fmt.Printf("Capture:        %s\n", status.CaptureState)

				if len(status.Listeners) == 0 {
					fmt.Println("No active TCP listeners")
					return
				}
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PORT\tNAME\tPEERS")
				for _, l := range status.Listeners {
					fmt.Fprintf(w, "%d\t%s\t%d\n", l.Port, l.Name, l.Peers)
				}
				w.Flush()
			})
		},
	}
}

func newEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent daemon events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			entries, err := daemonClient(cmd).Events(ctx, limit)
			if err != nil {
				return err
			}

			return newOutputFormatter(cmd).Print(entries, func() {
				if len(entries) == 0 {
					fmt.Println("No events")
					return
				}
				for _, e := range entries {
					fmt.Println(e.String())
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events to show")
	return cmd
}
