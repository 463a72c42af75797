package config

import (
	"os"
)

type Config struct {
	Port string

	LogLevel string
	Env      string

	JWTSecret string
	DataFile  string

	BaseURL  string
	PhotoDir string

	SMTPAddr string
	SMTPFrom string
}

func LoadConfig() (*Config, error) {
	return &Config{
		Port:      GetEnv("PORT", "8082"),
		Env:       GetEnv("ENV", "development"),
		LogLevel:  GetEnv("LOG_LEVEL", "info"),
		JWTSecret: GetEnv("JWT_SECRET", "dev-secret-change-me"),
		DataFile:  GetEnv("DATA_FILE", "memes.json"),
		BaseURL:   GetEnv("BASE_URL", "http://localhost:8082"),
		PhotoDir:  GetEnv("PHOTO_DIR", "photos"),
		SMTPAddr:  GetEnv("SMTP_ADDR", ""),
		SMTPFrom:  GetEnv("SMTP_FROM", "no-reply@memes.local"),
	}, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
