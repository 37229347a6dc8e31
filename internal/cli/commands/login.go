package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/userauth-app/authclient/internal/auth"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, app, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set AUTH_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set AUTH_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, app *App, email, password string) error {
	if email == "" {
		email = envOr("AUTH_EMAIL")
	}
	if strings.TrimSpace(email) == "" {
		return errMissingFlag("email", "AUTH_EMAIL")
	}

	password, err := app.readSecret(password, "Password", "AUTH_PASSWORD")
	if err != nil {
		return err
	}

	store, err := app.Session()
	if err != nil {
		return err
	}

	user, err := store.Login(cmd.Context(), auth.Credentials{Email: email, Password: password})
	if err != nil {
		return describeError(err)
	}

	app.printf("✓ Signed in\n")
	app.printf("  User: %s (%s)\n", user.Name, user.Email)
	if user.Role != "" {
		app.printf("  Role: %s\n", user.Role)
	}
	return nil
}
