package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relayroom/relayroom/cli/internal/client"
	"github.com/relayroom/relayroom/cli/pkg/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to RelayRoom",
	Long:  "Authenticate with a RelayRoom deployment and save credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		apiURL, _ := cmd.Flags().GetString("api-url")
		profile, _ := cmd.Flags().GetString("profile")

		if !cmd.Flags().Changed("api-url") {
			apiURL = cfg.GetAPIURL(profile)
		}

		if username == "" {
			return fmt.Errorf("username is required")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		authClient := client.NewAuthClient(apiURL)
		resp, err := authClient.Login(username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := cfg.SaveProfile(profile, apiURL, resp.AccessToken, resp.RefreshToken); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Successfully logged in as %s", username)
		output.Info("Profile '%s' saved to ~/.relayctl/config.yaml", profile)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from RelayRoom",
	Long:  "Revoke the stored refresh token and remove saved credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")

		p, err := cfg.GetProfile(profile)
		if err != nil {
			return err
		}

		if p.RefreshToken != "" {
			authClient := client.NewAuthClient(p.APIURL)
			if err := authClient.Logout(p.RefreshToken); err != nil {
				output.Warn("Could not revoke session: %v", err)
			}
		}

		if err := cfg.RemoveProfile(profile); err != nil {
			return err
		}

		output.Success("Successfully logged out from profile '%s'", profile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password")
	loginCmd.Flags().String("api-url", "", "Chat API URL (default from config)")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
