package auth

// RegisterRequest creates a local account pending OTP verification
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

// VerifyOTPRequest confirms a registration
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// ForgotPasswordRequest asks for a password reset OTP
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password using a reset OTP
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

// ChangePasswordRequest replaces the password of the signed-in account
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

// UpdateProfileRequest edits the mutable profile fields. Email cannot change.
type UpdateProfileRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Mobile string `json:"mobile" validate:"omitempty,max=20"`
}

// Settings is a free-form preferences document
type Settings map[string]any

// MessageResponse is the body of endpoints that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}
