package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/config"
	"github.com/pipedeck/console/internal/sessions"
)

// Global configuration instance
var cfg *config.Config
var sessionManager *sessions.Manager

// loadConfig loads the configuration based on the --config flag or default locations
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	return config.Load(configFile)
}

func preRunConfigE(cmd *cobra.Command, _ []string) error {

	var err error
	cfg, err = loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	endpoint, err := cmd.Flags().GetString("identity-endpoint")
	if err == nil && len(endpoint) > 0 {
		if !common.IsValidURL(endpoint) {
			return fmt.Errorf("invalid identity endpoint: %s", endpoint)
		}
		cfg.Identity.Endpoint = endpoint
	}

	return nil
}

// preRunSessionE opens the session storage for the configured identity
// service. The manager is left uninitialized.
func preRunSessionE(_ *cobra.Command, _ []string) error {

	var err error
	sessionManager, err = cfg.NewSessionManager()
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"identity": cfg.GetIdentityHostname(),
		"backend":  cfg.Storage.Backend,
	}).Debugln("Session manager ready")

	return nil
}

var rootCmd = &cobra.Command{
	Use:   "pipedeck",
	Short: "Pipedeck console - manage your pipeline dashboard session",
	Long: `Pipedeck console keeps track of who you are signed in as against the
identity service, across restarts of the CLI and the dashboard.

If no config file is specified, the following locations are searched:
  - ./config.yaml
  - ./config/config.yaml
  - /etc/pipedeck/config.yaml
  - ~/.config/pipedeck/config.yaml`,
	PersistentPreRunE: preRunConfigE,
	SilenceUsage:      true,
}

func init() {

	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.config/pipedeck/config.yaml)")
	rootCmd.PersistentFlags().String("identity-endpoint", "", "Override the identity service URL (e.g., https://id.example.com)")

}

func GetCommandOptions() *cobra.Command {
	return rootCmd
}
