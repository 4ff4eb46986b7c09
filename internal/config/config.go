package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr   string
	LogLevel   string
	DBDSN      string
	RedisDSN   string
	BotName    string
	SessionTTL time.Duration

	// raw secrets kept in-memory only; never log these
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BotToken     string // gateway presence connection; optional
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:     getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:     getenvDefault("LOG_LEVEL", "info"),
		DBDSN:        os.Getenv("DB_DSN"),
		RedisDSN:     getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		BotName:      getenvDefault("BOT_NAME", "Anomaly"),
		ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("DISCORD_REDIRECT_URI"),
		BotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}
	if cfg.ClientID == "" {
		return Config{}, errors.New("missing DISCORD_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		return Config{}, errors.New("missing DISCORD_CLIENT_SECRET")
	}
	if cfg.RedirectURI == "" {
		return Config{}, errors.New("missing DISCORD_REDIRECT_URI")
	}

	ttlHours := getenvDefault("SESSION_TTL_HOURS", "24")
	hours, err := strconv.Atoi(ttlHours)
	if err != nil || hours <= 0 {
		return Config{}, errors.New("SESSION_TTL_HOURS must be a positive integer")
	}
	cfg.SessionTTL = time.Duration(hours) * time.Hour

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
