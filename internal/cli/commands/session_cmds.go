package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/userauth-app/authclient/internal/auth"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(app *App) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := app.RestoredSession(cmd.Context())
			if err != nil {
				return err
			}
			store.Logout(cmd.Context(), auth.LogoutOptions{Silent: local})
			app.printf("✓ Signed out\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Only clear the local credential, skip the server call")

	return cmd
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, snap, err := app.RestoredSession(cmd.Context())
			if err != nil {
				return err
			}
			if err := requireSignedIn(snap); err != nil {
				return err
			}
			if asJSON {
				return app.printJSON(snap.User)
			}
			u := snap.User
			app.printf("%s <%s>\n", u.Name, u.Email)
			app.printf("  ID:       %s\n", u.ID)
			if u.Role != "" {
				app.printf("  Role:     %s\n", u.Role)
			}
			if u.Provider != "" {
				app.printf("  Provider: %s\n", u.Provider)
			}
			if u.Mobile != "" {
				app.printf("  Mobile:   %s\n", u.Mobile)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}

// NewStatusCmd creates the status command
func NewStatusCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, snap, err := app.RestoredSession(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return app.printJSON(snap)
			}
			app.printf("Server:     %s\n", app.Config.Client.BaseURL)
			app.printf("Status:     %s\n", snap.Status)
			app.printf("Credential: %s\n", presence(snap.HasCredential))
			if snap.User != nil {
				app.printf("User:       %s\n", snap.User.Email)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}

func presence(ok bool) string {
	if ok {
		return "stored"
	}
	return "none"
}

func envOr(key string) string {
	return os.Getenv(key)
}

func errMissingFlag(flag, env string) error {
	return fmt.Errorf("%s is required (use --%s flag or %s env var)", flag, flag, env)
}
