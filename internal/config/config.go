package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LLM providers selectable through LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port                 string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	LLMProvider          string
	OpenAIAPIKey         string
	AnthropicAPIKey      string
	DatabaseURL          string
	ReminderFile         string
	LocalTimezone        *time.Location
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	provider := strings.ToLower(getenvDefault("LLM_PROVIDER", ProviderOpenAI))
	if provider != ProviderOpenAI && provider != ProviderAnthropic {
		log.Printf("config: unknown LLM_PROVIDER %q, defaulting to %s", provider, ProviderOpenAI)
		provider = ProviderOpenAI
	}

	return &Config{
		Port:                 getenvDefault("PORT", "8080"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		LLMProvider:          provider,
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		ReminderFile:         os.Getenv("REMINDER_FILE"),
		LocalTimezone:        location,
	}
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}
