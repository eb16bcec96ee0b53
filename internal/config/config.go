package config

import (
	"log"
	"os"
	"strings"

	"payroll-bot/internal/payroll"
)

type Config struct {
	Port       string
	WebhookURL string

	TelegramBotToken string

	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	// EmployeeName is the name the extractor looks for in the schedule table.
	EmployeeName string

	HourlyRateCents int64
	Currency        string

	// DBPath is the SQLite file used by default; DatabaseURL switches the
	// ledger to Postgres when set.
	DBPath      string
	DatabaseURL string
}

func mustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	rate, err := payroll.ParseRate(getEnv("HOURLY_RATE", "31.70"))
	if err != nil {
		log.Fatalf("bad HOURLY_RATE: %v", err)
	}
	return &Config{
		Port:       getEnv("PORT", "8080"),
		WebhookURL: os.Getenv("WEBHOOK_URL"),

		TelegramBotToken: mustEnv("TELEGRAM_BOT_TOKEN"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		EmployeeName: mustEnv("EMPLOYEE_NAME"),

		HourlyRateCents: rate,
		Currency:        getEnv("CURRENCY", "PLN"),

		DBPath:      getEnv("DB_PATH", "payroll.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}
