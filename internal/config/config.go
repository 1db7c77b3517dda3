// Package config resolves process configuration from flags, the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvAPIBase     = "POSTBOARD_API_BASE"
	EnvDev         = "POSTBOARD_DEV"
	EnvDevOrigin   = "POSTBOARD_DEV_ORIGIN"
	EnvLogLevel    = "POSTBOARD_LOG_LEVEL"
	EnvPort        = "PORT"
	EnvDatabaseURL = "DATABASE_URL"

	// DevPath is the collection path served by the development server.
	DevPath = "/api/posts"
	// DefaultDevOrigin is where cmd/server listens by default.
	DefaultDevOrigin = "http://localhost:8080"
	// FallbackBase is the hosted API used when nothing else is configured.
	FallbackBase = "https://facebookapi-2txh.onrender.com/api/posts"

	defaultPort = "8080"
)

// Source records which rule picked the base endpoint.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceDev      Source = "dev"
	SourceFallback Source = "fallback"
)

// Client is the configuration of the postboard client.
type Client struct {
	BaseURL  string
	Source   Source
	LogLevel slog.Level
}

// Server is the configuration of the reference API server.
type Server struct {
	Port        string
	DatabaseURL string
	LogLevel    slog.Level
}

// Lookup reads one variable; os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// LoadDotEnv loads .env from the working directory. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadClient resolves the client configuration from the process environment.
func LoadClient(override string, dev bool) (Client, error) {
	if err := LoadDotEnv(); err != nil {
		return Client{}, err
	}
	return ResolveClient(override, dev, os.LookupEnv), nil
}

// ResolveClient picks the base endpoint: explicit override, then the
// environment, then the development server, then the hosted fallback.
func ResolveClient(override string, dev bool, lookup Lookup) Client {
	cfg := Client{LogLevel: parseLevel(getEnv(lookup, EnvLogLevel, "info"))}

	switch {
	case strings.TrimSpace(override) != "":
		cfg.BaseURL, cfg.Source = strings.TrimSpace(override), SourceFlag
	case getEnv(lookup, EnvAPIBase, "") != "":
		cfg.BaseURL, cfg.Source = getEnv(lookup, EnvAPIBase, ""), SourceEnv
	case dev || isTrue(getEnv(lookup, EnvDev, "")):
		origin := strings.TrimSuffix(getEnv(lookup, EnvDevOrigin, DefaultDevOrigin), "/")
		cfg.BaseURL, cfg.Source = origin+DevPath, SourceDev
	default:
		cfg.BaseURL, cfg.Source = FallbackBase, SourceFallback
	}
	return cfg
}

// LoadServer resolves the reference server configuration.
func LoadServer() (Server, error) {
	if err := LoadDotEnv(); err != nil {
		return Server{}, err
	}
	return ResolveServer(os.LookupEnv), nil
}

func ResolveServer(lookup Lookup) Server {
	return Server{
		Port:        getEnv(lookup, EnvPort, defaultPort),
		DatabaseURL: getEnv(lookup, EnvDatabaseURL, ""),
		LogLevel:    parseLevel(getEnv(lookup, EnvLogLevel, "info")),
	}
}

// getEnv returns the variable or fallback when it is unset or blank.
func getEnv(lookup Lookup, key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
