package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pipedeck/console/internal/common"
	"github.com/pipedeck/console/internal/models"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a credential issued by the identity service",
	Long: `Stores an access token, session id and user profile obtained from the
identity service. Missing values are prompted for interactively.

Use --verify to check the credential against the identity service straight away.`,
	PreRunE: preRunSessionE,
	RunE:    runLogin,
}

func runLogin(cmd *cobra.Command, _ []string) error {

	request, err := loginRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	if len(request.Token) == 0 || request.User == nil {
		if err := promptLoginRequest(&request); err != nil {
			return err
		}
	}

	if err := sessionManager.Login(request.Token, request.SessionID, request.User); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Signed in as %s", request.User.GetIdentity())))

	verify, _ := cmd.Flags().GetBool("verify")
	if !verify {
		return nil
	}

	ctx, cleanup := common.WithInterrupt(context.Background())
	defer cleanup()

	result := sessionManager.RefreshUser(ctx)
	if !result.State.IsAuthenticated() {
		return fmt.Errorf("credential was not accepted by %s: %w", cfg.GetIdentityHostname(), result.Err)
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("Verified with %s", cfg.GetIdentityHostname())))

	return nil
}

func loginRequestFromFlags(cmd *cobra.Command) (models.LoginRequest, error) {

	token, _ := cmd.Flags().GetString("token")
	sessionID, _ := cmd.Flags().GetString("session-id")
	rawUser, _ := cmd.Flags().GetString("user")

	request := models.LoginRequest{
		Token:     token,
		SessionID: sessionID,
	}

	if len(rawUser) > 0 {
		profile, err := models.ParseUserProfile(rawUser)
		if err != nil {
			return request, fmt.Errorf("invalid --user: %w", err)
		}
		request.User = profile
	}

	return request, nil
}

func promptLoginRequest(request *models.LoginRequest) error {

	rawUser := "{}"
	if request.User != nil {
		rawUser, _ = request.User.Encode()
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Access token").
				EchoMode(huh.EchoModePassword).
				Value(&request.Token).
				Validate(func(s string) error {
					if len(s) == 0 {
						return errors.New("an access token is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Session id").
				Description("Optional").
				Value(&request.SessionID),
			huh.NewText().
				Title("User profile").
				Description("JSON object returned by the identity service").
				Value(&rawUser).
				Validate(func(s string) error {
					_, err := models.ParseUserProfile(s)
					return err
				}),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("login prompt cancelled: %w", err)
	}

	profile, err := models.ParseUserProfile(rawUser)
	if err != nil {
		return err
	}
	request.User = profile

	return nil
}

func init() {
	loginCmd.Flags().String("token", "", "Access token issued by the identity service")
	loginCmd.Flags().String("session-id", "", "Session id issued alongside the token")
	loginCmd.Flags().String("user", "", "User profile as a JSON object")
	loginCmd.Flags().Bool("verify", false, "Verify the credential with the identity service after storing it")

	rootCmd.AddCommand(loginCmd)
}
