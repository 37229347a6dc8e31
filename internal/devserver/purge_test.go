package devserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeExpired(t *testing.T) {
	env := newTestEnv(t)
	db := env.server.GetDB()
	user := env.seedUser(t, testEmail, testPassword)
	now := time.Now()

	require.NoError(t, db.Create(&RefreshToken{UserID: user.ID, TokenHash: "expired", ExpiresAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&RefreshToken{UserID: user.ID, TokenHash: "revoked", ExpiresAt: now.Add(time.Hour), Revoked: true}).Error)
	require.NoError(t, db.Create(&RefreshToken{UserID: user.ID, TokenHash: "live", ExpiresAt: now.Add(time.Hour)}).Error)

	require.NoError(t, db.Create(&OTP{Email: testEmail, Purpose: PurposeRegister, CodeHash: "a", ExpiresAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&OTP{Email: testEmail, Purpose: PurposeReset, CodeHash: "b", ExpiresAt: now.Add(time.Minute), Used: true}).Error)
	require.NoError(t, db.Create(&OTP{Email: testEmail, Purpose: PurposeReset, CodeHash: "c", ExpiresAt: now.Add(time.Minute)}).Error)

	result, err := PurgeExpired(db, now)
	require.NoError(t, err)
	assert.Equal(t, PurgeResult{RefreshTokens: 1, OTPs: 2}, result)

	var hashes []string
	require.NoError(t, db.Model(&RefreshToken{}).Order("token_hash").Pluck("token_hash", &hashes).Error)
	assert.Equal(t, []string{"live", "revoked"}, hashes)

	var codes []string
	require.NoError(t, db.Model(&OTP{}).Pluck("code_hash", &codes).Error)
	assert.Equal(t, []string{"c"}, codes)
}

func TestPurgeScheduler(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.server.newPurgeScheduler()
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	env.server.config.PurgeSchedule = "every now and then"
	_, err = env.server.newPurgeScheduler()
	assert.ErrorContains(t, err, "invalid purge schedule")
}
