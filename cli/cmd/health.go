package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relayroom/relayroom/cli/internal/client"
	"github.com/relayroom/relayroom/cli/pkg/output"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service liveness",
	Long:  "Probe the /healthz endpoints of the configured API and gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")

		targets := map[string]string{
			"chat":    cfg.GetAPIURL(profile),
			"gateway": cfg.Defaults.GatewayURL,
		}

		failed := 0
		for name, url := range targets {
			if err := client.NewPublisherClient(url).Health(); err != nil {
				output.Error("%s (%s): %v", name, url, err)
				failed++
				continue
			}
			output.Success("%s (%s): ok", name, url)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d services unhealthy", failed, len(targets))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
