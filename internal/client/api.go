package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/userauth-app/authclient/internal/auth"
)

// Register creates a local account. The account stays disabled until the
// emailed OTP is confirmed with VerifyOTP.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := auth.Validate(req); err != nil {
		return nil, err
	}

	var user auth.User
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/register",
		Body:      req,
		Result:    &user,
		NoRefresh: true,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyOTP confirms a registration
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	req := auth.VerifyOTPRequest{Email: strings.TrimSpace(email), OTP: strings.TrimSpace(otp)}
	if err := auth.Validate(req); err != nil {
		return err
	}
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/verify-otp",
		Body:      req,
		NoRefresh: true,
	})
	return err
}

// Login exchanges credentials for an access credential. The refresh
// credential arrives as a cookie and stays in the transport's jar.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (*auth.TokenResponse, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := auth.Validate(creds); err != nil {
		return nil, err
	}

	var resp auth.TokenResponse
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      creds,
		Result:    &resp,
		NoRefresh: true,
	})
	if err != nil {
		var e *auth.Error
		if errors.As(err, &e) && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden) {
			return nil, auth.NewError(auth.KindInvalidCredentials, e.Status, e.Message, e)
		}
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, auth.NewError(auth.KindServer, http.StatusOK, "login response carried no access token", nil)
	}
	return &resp, nil
}

// Refresh exchanges the refresh cookie for a new access credential. Only
// the Coordinator should call it.
func (c *Client) Refresh(ctx context.Context) (*auth.TokenResponse, error) {
	var resp auth.TokenResponse
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/refresh",
		Result:    &resp,
		NoRefresh: true,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the signed-in user. credential, when non-empty, is sent
// instead of the session credential on the first attempt.
func (c *Client) Me(ctx context.Context, credential string) (*auth.User, error) {
	return c.me(ctx, credential, false)
}

// ConfirmCredential returns the user credential belongs to. A rejected
// credential is reported as is; no refresh is attempted.
func (c *Client) ConfirmCredential(ctx context.Context, credential string) (*auth.User, error) {
	return c.me(ctx, credential, true)
}

func (c *Client) me(ctx context.Context, credential string, noRefresh bool) (*auth.User, error) {
	var user auth.User
	_, err := c.Send(ctx, &RequestSpec{
		Method:     http.MethodGet,
		Path:       "/auth/me",
		Result:     &user,
		Credential: credential,
		NoRefresh:  noRefresh,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the refresh credential on the backend
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/logout",
		NoRefresh: true,
	})
	return err
}

// ForgotPassword requests a password reset OTP. The backend answers the
// same way whether or not the account exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	req := auth.ForgotPasswordRequest{Email: strings.TrimSpace(email)}
	if err := auth.Validate(req); err != nil {
		return err
	}
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/forgot-password",
		Body:      req,
		NoRefresh: true,
	})
	return err
}

// ResetPassword sets a new password using a reset OTP
func (c *Client) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := auth.Validate(req); err != nil {
		return err
	}
	_, err := c.Send(ctx, &RequestSpec{
		Method:    http.MethodPost,
		Path:      "/auth/reset-password",
		Body:      req,
		NoRefresh: true,
	})
	return err
}

// ChangePassword replaces the password of the signed-in account
func (c *Client) ChangePassword(ctx context.Context, req auth.ChangePasswordRequest) error {
	if err := auth.Validate(req); err != nil {
		return err
	}
	if req.OldPassword == req.NewPassword {
		return auth.NewError(auth.KindValidationFailed, 0, "New password must differ from the current password", nil)
	}
	_, err := c.Send(ctx, &RequestSpec{
		Method: http.MethodPost,
		Path:   "/auth/change-password",
		Body:   req,
	})
	return err
}

// UpdateProfile edits the signed-in user's name and mobile number
func (c *Client) UpdateProfile(ctx context.Context, req auth.UpdateProfileRequest) (*auth.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if err := auth.Validate(req); err != nil {
		return nil, err
	}

	var user auth.User
	_, err := c.Send(ctx, &RequestSpec{
		Method: http.MethodPut,
		Path:   "/auth/update-user-profile",
		Body:   req,
		Result: &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteAccount permanently removes the signed-in account
func (c *Client) DeleteAccount(ctx context.Context) error {
	_, err := c.Send(ctx, &RequestSpec{
		Method: http.MethodDelete,
		Path:   "/auth/delete-account",
	})
	return err
}

// UpdateSettings stores the user's preferences and returns the saved document
func (c *Client) UpdateSettings(ctx context.Context, settings auth.Settings) (auth.Settings, error) {
	if settings == nil {
		settings = auth.Settings{}
	}
	saved := auth.Settings{}
	_, err := c.Send(ctx, &RequestSpec{
		Method: http.MethodPut,
		Path:   "/settings",
		Body:   settings,
		Result: &saved,
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
