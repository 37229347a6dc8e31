package devserver

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DefaultPurgeSchedule runs the expired-record purge every 15 minutes
const DefaultPurgeSchedule = "*/15 * * * *"

// PurgeResult counts the rows removed by one purge run
type PurgeResult struct {
	RefreshTokens int64
	OTPs          int64
}

// PurgeExpired deletes refresh tokens and one-time codes past their expiry.
// Revoked refresh tokens are kept until they expire so that reuse of a
// rotated token is still recognised.
func PurgeExpired(db *gorm.DB, now time.Time) (PurgeResult, error) {
	var result PurgeResult

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at < ?", now).Delete(&RefreshToken{})
		if res.Error != nil {
			return fmt.Errorf("failed to purge refresh tokens: %w", res.Error)
		}
		result.RefreshTokens = res.RowsAffected

		res = tx.Where("expires_at < ? OR used = ?", now, true).Delete(&OTP{})
		if res.Error != nil {
			return fmt.Errorf("failed to purge one-time codes: %w", res.Error)
		}
		result.OTPs = res.RowsAffected
		return nil
	})
	return result, err
}

// newPurgeScheduler builds the cron runner for PurgeExpired
func (s *Server) newPurgeScheduler() (*cron.Cron, error) {
	schedule := s.config.PurgeSchedule
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))
	_, err := c.AddFunc(schedule, func() {
		result, err := PurgeExpired(s.db, time.Now())
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to purge expired records")
			return
		}
		if result.RefreshTokens > 0 || result.OTPs > 0 {
			s.logger.Info().
				Int64("refresh_tokens", result.RefreshTokens).
				Int64("otps", result.OTPs).
				Msg("Purged expired records")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return c, nil
}
