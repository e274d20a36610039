package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()

	assert.True(t, c.IsEnabled())
	assert.Equal(t, 7*24*time.Hour, c.RecoveryTimeout())
}

func TestConfigValidateRejectsNegativeTimeout(t *testing.T) {
	c := &Config{RecoveryTimeoutSeconds: -1}
	assert.Error(t, c.Validate())
}

func TestConfigIsEnabledNilSafe(t *testing.T) {
	var c *Config
	assert.False(t, c.IsEnabled())
	assert.Equal(t, 7*24*time.Hour, c.RecoveryTimeout())
}

func TestRecordIsExpired(t *testing.T) {
	rec := &Record{CreatedAt: time.Now().Add(-48 * time.Hour)}
	assert.True(t, rec.IsExpired(24*time.Hour))
	assert.False(t, rec.IsExpired(72*time.Hour))
}

func TestRecordIsExpiredNilSafe(t *testing.T) {
	var rec *Record
	assert.False(t, rec.IsExpired(time.Hour))
}
