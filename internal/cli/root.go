package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/userauth-app/authclient/internal/cli/commands"
	"github.com/userauth-app/authclient/internal/config"
	"github.com/userauth-app/authclient/internal/logger"
)

var version = "dev" // Will be set during build

// globalFlags override configuration loaded from the environment
type globalFlags struct {
	baseURL  string
	store    string
	profile  string
	logLevel string
}

// NewRootCmd builds the authctl command tree around app
func NewRootCmd(app *commands.App) *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "authctl",
		Short: "authctl - session client for the auth API",
		Long: `authctl signs in against the auth API, keeps the access credential in
the configured token store, and sends authenticated requests that recover
from credential expiry with a single shared refresh.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return prepare(app, flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "API base URL (overrides AUTH_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flags.store, "store", "", "Token store: keyring, file, redis, memory (overrides AUTH_TOKEN_STORE)")
	rootCmd.PersistentFlags().StringVar(&flags.profile, "profile", "", "Credential profile (overrides AUTH_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "authctl version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(app))
	rootCmd.AddCommand(commands.NewLogoutCmd(app))
	rootCmd.AddCommand(commands.NewWhoamiCmd(app))
	rootCmd.AddCommand(commands.NewStatusCmd(app))
	rootCmd.AddCommand(commands.NewRequestCmd(app))
	rootCmd.AddCommand(commands.NewRegisterCmd(app))
	rootCmd.AddCommand(commands.NewVerifyOTPCmd(app))
	rootCmd.AddCommand(commands.NewForgotPasswordCmd(app))
	rootCmd.AddCommand(commands.NewResetPasswordCmd(app))
	rootCmd.AddCommand(commands.NewChangePasswordCmd(app))

	return rootCmd
}

// prepare loads configuration unless the caller already supplied it
func prepare(app *commands.App, flags globalFlags) error {
	if app.Config == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		app.Config = cfg
	}

	if flags.baseURL != "" {
		app.Config.Client.BaseURL = flags.baseURL
	}
	if flags.store != "" {
		app.Config.TokenStore.Kind = flags.store
	}
	if flags.profile != "" {
		app.Config.TokenStore.Profile = flags.profile
	}
	if flags.logLevel != "" {
		app.Config.Logging.Level = flags.logLevel
	}

	app.Logger = logger.Init(app.Config.Logging.Level, app.Config.Logging.Format)
	return nil
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCmd(&commands.App{})
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
