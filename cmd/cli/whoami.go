package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/models"
	"github.com/pipedeck/console/internal/sessions"
)

var errLoginDeclined = errors.New("authentication required but login was declined")

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in user",
	PreRunE: preRunSessionE,
	RunE: func(cmd *cobra.Command, args []string) error {

		ctx, cleanup := common.WithInterrupt(context.Background())
		defer cleanup()

		sessionManager.Initialize(ctx)

		decision := sessionManager.Gate()

		if decision.Action == sessions.ActionRedirect {
			if err := promptAndLogin(cmd); err != nil {
				return err
			}
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		return printUser(sessionManager.State().User, asJSON)
	},
}

// promptAndLogin asks whether to sign in now and runs the login flow
func promptAndLogin(cmd *cobra.Command) error {
	fmt.Println()
	fmt.Println(titleStyle.Render("Authentication Required"))
	fmt.Printf("No active session for %s.\n", cfg.GetIdentityHostname())

	if failure := sessionManager.LastError(); failure != nil {
		fmt.Println(mutedStyle.Render(failure.Error()))
	}
	fmt.Println()

	var shouldLogin bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Would you like to sign in now?").
				Value(&shouldLogin),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("login prompt cancelled: %w", err)
	}

	if !shouldLogin {
		return errLoginDeclined
	}

	return runLogin(cmd, nil)
}

func printUser(user models.UserProfile, asJSON bool) error {

	if asJSON {
		data, err := json.MarshalIndent(user, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(headerStyle.Render(user.GetName()))
	fmt.Println("  " + infoStyle.Render(user.GetIdentity()))
	fmt.Println("  " + mutedStyle.Render(fmt.Sprintf("Identity service: %s", cfg.GetIdentityHostname())))

	return nil
}

func init() {
	whoamiCmd.Flags().Bool("json", false, "Print the user profile as JSON")

	rootCmd.AddCommand(whoamiCmd)
}
