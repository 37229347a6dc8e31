package commands

import (
	"github.com/spf13/cobra"

	"github.com/userauth-app/authclient/internal/auth"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(app *App) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is sent by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := app.readSecret(password, "Password", "AUTH_PASSWORD")
			if err != nil {
				return err
			}
			store, err := app.Session()
			if err != nil {
				return err
			}
			user, err := store.Client().Register(cmd.Context(), auth.RegisterRequest{Name: name, Email: email, Password: password})
			if err != nil {
				return describeError(err)
			}
			app.printf("✓ Account created for %s\n", user.Email)
			app.printf("  Confirm it with: authctl verify-otp --email %s --otp <code>\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// NewVerifyOTPCmd creates the verify-otp command
func NewVerifyOTPCmd(app *App) *cobra.Command {
	var email, otp string

	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Confirm a registration with the emailed code",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Session()
			if err != nil {
				return err
			}
			if err := store.Client().VerifyOTP(cmd.Context(), email, otp); err != nil {
				return describeError(err)
			}
			app.printf("✓ Account verified, you can now sign in\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&otp, "otp", "", "6-digit code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")

	return cmd
}

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(app *App) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Session()
			if err != nil {
				return err
			}
			if err := store.Client().ForgotPassword(cmd.Context(), email); err != nil {
				return describeError(err)
			}
			app.printf("✓ If an account exists for %s, a reset code has been sent\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(app *App) *cobra.Command {
	var email, otp, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset code",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := app.readSecret(password, "New password", "AUTH_NEW_PASSWORD")
			if err != nil {
				return err
			}
			store, err := app.Session()
			if err != nil {
				return err
			}
			err = store.Client().ResetPassword(cmd.Context(), auth.ResetPasswordRequest{Email: email, OTP: otp, NewPassword: password})
			if err != nil {
				return describeError(err)
			}
			app.printf("✓ Password reset, sign in with the new password\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&otp, "otp", "", "6-digit reset code")
	cmd.Flags().StringVar(&password, "password", "", "New password (will prompt if not provided)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("otp")

	return cmd
}

// NewChangePasswordCmd creates the change-password command
func NewChangePasswordCmd(app *App) *cobra.Command {
	var oldPassword, newPassword string

	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			oldPassword, err := app.readSecret(oldPassword, "Current password", "AUTH_PASSWORD")
			if err != nil {
				return err
			}
			newPassword, err := app.readSecret(newPassword, "New password", "AUTH_NEW_PASSWORD")
			if err != nil {
				return err
			}

			store, snap, err := app.RestoredSession(cmd.Context())
			if err != nil {
				return err
			}
			if err := requireSignedIn(snap); err != nil {
				return err
			}
			err = store.Client().ChangePassword(cmd.Context(), auth.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
			if err != nil {
				return describeError(err)
			}
			app.printf("✓ Password changed\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPassword, "old-password", "", "Current password (will prompt if not provided)")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "New password (will prompt if not provided)")

	return cmd
}
