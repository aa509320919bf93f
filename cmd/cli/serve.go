package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web service",
	Long: `Start the dashboard web service. Each browser keeps its own session in a
signed cookie; set server.secret so sessions survive a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {

		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		server, err := daemon.NewServer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create dashboard: %w", err)
		}

		if err := server.Start(); err != nil {
			return err
		}

		fmt.Println(successStyle.Render(fmt.Sprintf("Dashboard running on %s", cfg.GetLocalServerUrl())))

		ctx, cleanup := common.WithInterrupt(context.Background())
		defer cleanup()

		<-ctx.Done()

		logrus.Infoln("Shutting down dashboard")
		server.Stop()

		return nil
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
