package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/relayroom/relayroom/cli/internal/client"
	"github.com/relayroom/relayroom/cli/pkg/output"
)

var publisherCmd = &cobra.Command{
	Use:   "publisher",
	Short: "Event publisher administration",
	Long:  "Inspect and control the chat service's adaptive event publisher",
}

var publisherStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show publisher health, metrics and recent backend switches",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}

		pc := client.NewPublisherClient(p.APIURL)
		status, err := pc.Status(p.AccessToken)
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(status)
		}

		output.Info("Active backend: %s", status.Health.Backend)
		output.Info("Health:         %s", status.Health.Status)
		if status.Health.Overridden {
			output.Warn("Manual override active since %s", status.Health.Since.Format(time.RFC3339))
		}
		output.Info("Queue:          %d / %d", status.Metrics.QueueDepth, status.Metrics.QueueCapacity)

		table := output.NewTable([]string{"BACKEND", "SUCCESS", "FAILURE", "ERROR RATE", "P99"})
		table.AddRow([]string{
			"high_performance",
			fmt.Sprintf("%d", status.Metrics.HighPerformance.Success),
			fmt.Sprintf("%d", status.Metrics.HighPerformance.Failure),
			fmt.Sprintf("%.2f%%", status.Metrics.HighPerformance.ErrorRate*100),
			time.Duration(status.Metrics.HighPerformance.P99Latency).String(),
		})
		table.AddRow([]string{
			"legacy",
			fmt.Sprintf("%d", status.Metrics.Legacy.Success),
			fmt.Sprintf("%d", status.Metrics.Legacy.Failure),
			fmt.Sprintf("%.2f%%", status.Metrics.Legacy.ErrorRate*100),
			time.Duration(status.Metrics.Legacy.P99Latency).String(),
		})
		table.Render()

		if len(status.Metrics.Circuits) > 0 {
			fmt.Println()
			circuits := output.NewTable([]string{"SUBJECT", "STATE", "FAILURES"})
			for _, c := range status.Metrics.Circuits {
				circuits.AddRow([]string{c.Subject, c.State, fmt.Sprintf("%d", c.ConsecutiveFailures)})
			}
			circuits.Render()
		}

		if len(status.Decisions) > 0 {
			fmt.Println()
			decisions := output.NewTable([]string{"AT", "FROM", "TO", "REASON"})
			for _, d := range status.Decisions {
				decisions.AddRow([]string{d.At.Format(time.RFC3339), d.From, d.To, d.Reason})
			}
			decisions.Render()
		}

		return nil
	},
}

var publisherSwitchCmd = &cobra.Command{
	Use:   "switch <high_performance|legacy>",
	Short: "Manually pin the publisher to a backend",
	Long:  "Pin the publisher to a backend. The override holds until cleared, regardless of health.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := args[0]
		if backend != "high_performance" && backend != "legacy" {
			return fmt.Errorf("backend must be high_performance or legacy")
		}

		profile, _ := cmd.Flags().GetString("profile")
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}

		pc := client.NewPublisherClient(p.APIURL)
		resp, err := pc.Switch(p.AccessToken, backend)
		if err != nil {
			return err
		}

		output.Success("Publisher pinned to %s", resp.ActiveBackend)
		return nil
	},
}

var publisherClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear a manual backend override",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}

		pc := client.NewPublisherClient(p.APIURL)
		resp, err := pc.ClearOverride(p.AccessToken)
		if err != nil {
			return err
		}

		output.Success("Override cleared, active backend: %s", resp.ActiveBackend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publisherCmd)
	publisherCmd.AddCommand(publisherStatusCmd)
	publisherCmd.AddCommand(publisherSwitchCmd)
	publisherCmd.AddCommand(publisherClearCmd)
}
