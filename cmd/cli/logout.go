package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
)

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "End the current session",
	Long:    "Tells the identity service to end the session and removes the stored credential. The local session is always cleared.",
	PreRunE: preRunSessionE,
	RunE: func(cmd *cobra.Command, args []string) error {

		ctx, cleanup := common.WithInterrupt(context.Background())
		defer cleanup()

		result := sessionManager.Logout(ctx)

		if result.Err != nil {
			fmt.Println(warningStyle.Render("Signed out, but the logout did not complete cleanly"))
			fmt.Println(mutedStyle.Render(result.Err.Error()))
			return nil
		}

		fmt.Println(successStyle.Render("✓ Signed out"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
