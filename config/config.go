package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the portal reads from the environment.
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	PortalURL string

	DB         DBConfig
	JWT        JWTConfig
	Functions  FunctionsConfig
	HubSpot    HubSpotConfig
	Twilio     TwilioConfig
	NatsURL    string
	CORSOrigin []string

	InvitationTTL time.Duration
	BonusCronSpec string
}

type DBConfig struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// FunctionsConfig points at the serverless function gateway used for
// outbound emails and image generation.
type FunctionsConfig struct {
	BaseURL    string
	ServiceKey string
}

type HubSpotConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string
	AuthorizeURL string
	APIBaseURL   string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		PortalURL: strings.TrimRight(getEnv("PORTAL_URL", "http://localhost:3000"), "/"),
		DB: DBConfig{
			URL:             os.Getenv("DB_URL"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		JWT: JWTConfig{
			Secret:      os.Getenv("JWT_SECRET"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Functions: FunctionsConfig{
			BaseURL:    strings.TrimRight(os.Getenv("FUNCTIONS_URL"), "/"),
			ServiceKey: os.Getenv("FUNCTIONS_KEY"),
		},
		HubSpot: HubSpotConfig{
			ClientID:     os.Getenv("HUBSPOT_CLIENT_ID"),
			ClientSecret: os.Getenv("HUBSPOT_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("HUBSPOT_REDIRECT_URL"),
			Scopes:       getEnv("HUBSPOT_SCOPES", "crm.objects.contacts.read crm.objects.contacts.write crm.objects.companies.read crm.objects.owners.read"),
			AuthorizeURL: getEnv("HUBSPOT_AUTHORIZE_URL", "https://app-eu1.hubspot.com/oauth/authorize"),
			APIBaseURL:   strings.TrimRight(getEnv("HUBSPOT_API_URL", "https://api.hubapi.com"), "/"),
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		},
		NatsURL:       os.Getenv("NATS_URL"),
		CORSOrigin:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		InvitationTTL: time.Duration(getEnvAsInt("INVITATION_TTL_HOURS", 7*24)) * time.Hour,
		BonusCronSpec: getEnv("BONUS_CRON", "0 2 * * *"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
