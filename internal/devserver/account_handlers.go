package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/userauth-app/authclient/internal/auth"
)

func (s *Server) updateProfile(c *gin.Context) {
	user, _ := CurrentUser(c)

	var req auth.UpdateProfileRequest
	if !s.bind(c, &req) {
		return
	}

	updates := map[string]any{
		"name":   strings.TrimSpace(req.Name),
		"mobile": strings.TrimSpace(req.Mobile),
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		s.internalError(c, err, "Failed to update profile")
		return
	}
	if err := FindByID(s.db, user.ID, user); err != nil {
		s.internalError(c, err, "Failed to reload user")
		return
	}

	c.JSON(http.StatusOK, user.DTO())
}

func (s *Server) deleteAccount(c *gin.Context) {
	user, _ := CurrentUser(c)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&UserSettings{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email = ?", user.Email).Delete(&OTP{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to delete account")
		return
	}

	s.clearRefreshCookie(c)
	s.logger.Info().Str("user_id", user.ID).Msg("Account deleted")
	c.JSON(http.StatusOK, auth.MessageResponse{Message: "Account deleted"})
}

func (s *Server) getSettings(c *gin.Context) {
	user, _ := CurrentUser(c)

	settings, err := s.loadSettings(user.ID)
	if err != nil {
		s.internalError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) updateSettings(c *gin.Context) {
	user, _ := CurrentUser(c)

	var settings auth.Settings
	if err := c.ShouldBindJSON(&settings); err != nil || settings == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Settings must be a JSON object"})
		return
	}

	data, err := json.Marshal(settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Settings must be a JSON object"})
		return
	}

	var row UserSettings
	err = s.db.Where("user_id = ?", user.ID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = s.db.Create(&UserSettings{UserID: user.ID, Data: string(data)}).Error
	case err == nil:
		err = s.db.Model(&row).Update("data", string(data)).Error
	}
	if err != nil {
		s.internalError(c, err, "Failed to save settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (s *Server) loadSettings(userID string) (auth.Settings, error) {
	var row UserSettings
	err := s.db.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.Settings{}, nil
	}
	if err != nil {
		return nil, err
	}

	settings := auth.Settings{}
	if err := json.Unmarshal([]byte(row.Data), &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
