package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAutomatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "automators",
		Short: "Manage Automator instances",
	}
	cmd.AddCommand(newAutomatorsListCmd())
	cmd.AddCommand(newAutomatorsTestCmd())
	cmd.AddCommand(newAutomatorsRefreshCmd())
	return cmd
}

func newAutomatorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured Automator instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			automators, err := daemonClient(cmd).Automators(ctx)
			if err != nil {
				return err
			}

			return newOutputFormatter(cmd).Print(automators, func() {
				if len(automators) == 0 {
					fmt.Println("No Automator instances configured")
					return
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tURL\tENABLED")
				for _, a := range automators {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", a.ID, a.Name, a.URL, a.Enabled)
				}
				w.Flush()
			})
		},
	}
}

func newAutomatorsTestCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Probe an Automator instance's connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			result, err := daemonClient(cmd).TestAutomator(ctx, id)
			if err != nil {
				return err
			}

			return newOutputFormatter(cmd).Print(result, func() {
				state := "UNREACHABLE"
				if result.Connected {
					state = "CONNECTED"
				}
				fmt.Printf("%s: %s (%s)\n", result.Name, state, result.Detail)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Automator instance id (default: the sole enabled instance)")
	return cmd
}

func newAutomatorsRefreshCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh an Automator instance's cached catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			result, err := daemonClient(cmd).RefreshCatalog(ctx, id)
			if err != nil {
				return err
			}

			return newOutputFormatter(cmd).Print(result, func() {
				fmt.Printf("Catalog %s: %d items (updated %s)\n",
					result.Status, result.Items, result.LastUpdated.Format("2006-01-02 15:04:05"))
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Automator instance id (default: the sole enabled instance)")
	return cmd
}

func newTriggerCmd() *cobra.Command {
	var itemType, automatorID string
	cmd := &cobra.Command{
		Use:   "trigger <item-id>",
		Short: "Manually dispatch an Automator item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			detail, err := daemonClient(cmd).Trigger(ctx, args[0], itemType, automatorID)
			if err != nil {
				return err
			}
			fmt.Println(detail)
			return nil
		},
	}
	cmd.Flags().StringVar(&itemType, "type", "macro", "item type: macro, button or shortcut")
	cmd.Flags().StringVar(&automatorID, "automator", "", "Automator instance id")
	return cmd
}
