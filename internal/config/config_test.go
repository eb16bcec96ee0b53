package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("EMPLOYEE_NAME", "Jan Kowalski")

	cfg := Load()
	require.NotNil(t, cfg)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, "Jan Kowalski", cfg.EmployeeName)
	assert.Equal(t, int64(3170), cfg.HourlyRateCents)
	assert.Equal(t, "PLN", cfg.Currency)
	assert.Equal(t, "payroll.db", cfg.DBPath)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("EMPLOYEE_NAME", "Jan Kowalski")
	t.Setenv("HOURLY_RATE", "45,50")
	t.Setenv("CURRENCY", "EUR")
	t.Setenv("DATABASE_URL", "postgres://app@db/payroll")

	cfg := Load()
	assert.Equal(t, int64(4550), cfg.HourlyRateCents)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "postgres://app@db/payroll", cfg.DatabaseURL)
}
