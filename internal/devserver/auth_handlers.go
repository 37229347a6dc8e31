package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/userauth-app/authclient/internal/auth"
)

const invalidLoginMessage = "Invalid username or password !!"

// bind decodes the JSON body into req and validates it, answering 400 on failure
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed request body"})
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.DescribeValidation(err)})
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Server) internalError(c *gin.Context, err error, msg string) {
	s.logger.Error().Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (s *Server) register(c *gin.Context) {
	var req auth.RegisterRequest
	if !s.bind(c, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		s.internalError(c, err, "Failed to check existing user")
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	user := &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Role:         "USER",
		Provider:     string(auth.ProviderLocal),
	}
	if err := s.db.Create(user).Error; err != nil {
		s.internalError(c, err, "Failed to create user")
		return
	}

	if err := s.issueOTP(email, PurposeRegister); err != nil {
		s.internalError(c, err, "Failed to issue registration OTP")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	c.JSON(http.StatusCreated, user.DTO())
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req auth.VerifyOTPRequest
	if !s.bind(c, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	ok, err := s.consumeOTP(email, PurposeRegister, req.OTP)
	if err != nil {
		s.internalError(c, err, "Failed to verify OTP")
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
		return
	}

	if err := s.db.Model(&User{}).Where("email = ?", email).Update("enabled", true).Error; err != nil {
		s.internalError(c, err, "Failed to enable user")
		return
	}
	c.JSON(http.StatusOK, auth.MessageResponse{Message: "Account verified"})
}

func (s *Server) login(c *gin.Context) {
	var req auth.Credentials
	if !s.bind(c, &req) {
		return
	}

	var user User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": invalidLoginMessage})
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	if err := VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": invalidLoginMessage})
		return
	}
	if !user.Enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not verified"})
		return
	}

	s.issueSession(c, &user)
	s.logger.Info().Str("user_id", user.ID).Msg("User logged in")
}

// issueSession answers with a new access token and sets a new refresh cookie
func (s *Server) issueSession(c *gin.Context, user *User) {
	raw, hash, err := NewRefreshToken()
	if err != nil {
		s.internalError(c, err, "Failed to generate refresh token")
		return
	}
	record := &RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(s.tokens.RefreshTTL()),
	}
	if err := s.db.Create(record).Error; err != nil {
		s.internalError(c, err, "Failed to store refresh token")
		return
	}

	s.respondWithTokens(c, user, raw)
}

func (s *Server) respondWithTokens(c *gin.Context, user *User, refreshToken string) {
	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	s.setRefreshCookie(c, refreshToken, int(s.tokens.RefreshTTL().Seconds()))
	noStore(c)

	dto := user.DTO()
	c.JSON(http.StatusOK, auth.TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
		User:        &dto,
	})
}

func (s *Server) refresh(c *gin.Context) {
	raw := readRefreshToken(c)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token missing"})
		return
	}

	var user User
	var newRaw string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var stored RefreshToken
		if err := tx.Where("token_hash = ?", HashSecret(raw)).First(&stored).Error; err != nil {
			return errRefreshRejected
		}
		if !stored.Usable(time.Now()) {
			return errRefreshRejected
		}
		if err := FindByID(tx, stored.UserID, &user); err != nil {
			return errRefreshRejected
		}

		var hash string
		var err error
		newRaw, hash, err = NewRefreshToken()
		if err != nil {
			return err
		}
		next := &RefreshToken{
			UserID:    user.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(s.tokens.RefreshTTL()),
		}
		if err := tx.Create(next).Error; err != nil {
			return err
		}

		res := tx.Model(&RefreshToken{}).
			Where("id = ? AND revoked = ?", stored.ID, false).
			Updates(map[string]any{"revoked": true, "replaced_by": next.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRefreshRejected
		}
		return nil
	})
	if errors.Is(err, errRefreshRejected) {
		s.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired or revoked"})
		return
	}
	if err != nil {
		s.internalError(c, err, "Failed to rotate refresh token")
		return
	}

	s.logger.Debug().Str("user_id", user.ID).Msg("Refresh token rotated")
	s.respondWithTokens(c, &user, newRaw)
}

var errRefreshRejected = errors.New("refresh token rejected")

func (s *Server) logout(c *gin.Context) {
	if raw := readRefreshToken(c); raw != "" {
		if err := s.db.Model(&RefreshToken{}).
			Where("token_hash = ?", HashSecret(raw)).
			Update("revoked", true).Error; err != nil {
			s.logger.Warn().Err(err).Msg("Failed to revoke refresh token")
		}
	}

	s.clearRefreshCookie(c)
	noStore(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) getCurrentUser(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user.DTO())
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest
	if !s.bind(c, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	// same answer whether or not the account exists
	var user User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err == nil && user.Provider == string(auth.ProviderLocal) {
		if err := s.issueOTP(email, PurposeReset); err != nil {
			s.logger.Error().Err(err).Msg("Failed to issue reset OTP")
		}
	}
	c.JSON(http.StatusOK, auth.MessageResponse{Message: "If the account exists, a reset code has been sent"})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if !s.bind(c, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	ok, err := s.consumeOTP(email, PurposeReset, req.OTP)
	if err != nil {
		s.internalError(c, err, "Failed to verify OTP")
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
		return
	}

	var user User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired OTP"})
		return
	}
	if err := s.setPassword(&user, req.NewPassword); err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, auth.MessageResponse{Message: "Password reset"})
}

func (s *Server) changePassword(c *gin.Context) {
	user, _ := CurrentUser(c)

	var req auth.ChangePasswordRequest
	if !s.bind(c, &req) {
		return
	}
	// 400 rather than 401: a 401 here would send the client into a refresh
	if err := VerifyPassword(req.OldPassword, user.PasswordHash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Old password incorrect"})
		return
	}
	if err := s.setPassword(user, req.NewPassword); err != nil {
		s.internalError(c, err, "Failed to change password")
		return
	}
	s.logger.Info().Str("user_id", user.ID).Msg("Password changed")
	c.JSON(http.StatusOK, auth.MessageResponse{Message: "Password updated"})
}

// setPassword stores a new hash and revokes every refresh token of the user
func (s *Server) setPassword(user *User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Model(&RefreshToken{}).
			Where("user_id = ? AND revoked = ?", user.ID, false).
			Update("revoked", true).Error
	})
}

// readRefreshToken prefers the cookie, then the X-Refresh-Token header
func readRefreshToken(c *gin.Context) string {
	if v, err := c.Cookie(RefreshCookieName); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.GetHeader("X-Refresh-Token"))
}

func (s *Server) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, value, maxAge, APIPrefix+"/auth", "", s.config.CookieSecure, true)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	s.setRefreshCookie(c, "", -1)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
