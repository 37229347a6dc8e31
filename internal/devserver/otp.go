package devserver

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// OTPTTL is how long a one-time code stays valid
const OTPTTL = 10 * time.Minute

// issueOTP replaces any outstanding code for email and purpose and hands
// the new one to the sink
func (s *Server) issueOTP(email, purpose string) error {
	code, err := NewOTPCode()
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&OTP{}).
			Where("email = ? AND purpose = ? AND used = ?", email, purpose, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&OTP{
			Email:     email,
			Purpose:   purpose,
			CodeHash:  HashSecret(code),
			ExpiresAt: time.Now().Add(OTPTTL),
		}).Error
	})
	if err != nil {
		return err
	}

	s.otpSink(email, purpose, code)
	return nil
}

// consumeOTP marks a matching unexpired code as used. It reports false
// when no such code exists.
func (s *Server) consumeOTP(email, purpose, code string) (bool, error) {
	var otp OTP
	err := s.db.
		Where("email = ? AND purpose = ? AND used = ? AND code_hash = ? AND expires_at > ?",
			email, purpose, false, HashSecret(code), time.Now()).
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	res := s.db.Model(&OTP{}).Where("id = ? AND used = ?", otp.ID, false).Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
