// Package config reads the process configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	MediaEnginePion   = "pion"
	MediaEngineMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Identity string
	Relay    RelayConfig
	Database DatabaseConfig
	Media    MediaConfig
	Call     CallConfig
	Log      LogConfig
}

type ServerConfig struct {
	ListenAddr     string
	AllowedOrigins []string
	// APISecret signs bearer tokens for the control API. Empty disables auth.
	APISecret string
}

type RelayConfig struct {
	URL   string
	Token string
}

type DatabaseConfig struct {
	// Path of the SQLite file. Empty keeps everything in memory.
	Path string
}

type MediaConfig struct {
	Engine        string
	ICEServers    []string
	ICEUsername   string
	ICECredential string
	Video         bool
}

type CallConfig struct {
	RingTimeout     time.Duration
	InviteFreshness time.Duration
	SendTimeout     time.Duration
	HistoryLimit    int
	ProcessedLimit  int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load builds the configuration. envFile, when set, must exist; otherwise a
// .env in the working directory is used if present.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	identity := getEnv("SELF_IDENTITY", "")
	if identity == "" {
		return nil, errors.New("SELF_IDENTITY environment variable is required")
	}

	ringTimeout, err := getDuration("RING_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	freshness, err := getDuration("INVITE_FRESHNESS", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	sendTimeout, err := getDuration("SEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getInt("HISTORY_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	processedLimit, err := getInt("PROCESSED_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	video, err := strconv.ParseBool(getEnv("MEDIA_VIDEO", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MEDIA_VIDEO: %w", err)
	}

	engine := getEnv("MEDIA_ENGINE", MediaEnginePion)
	if engine != MediaEnginePion && engine != MediaEngineMemory {
		return nil, fmt.Errorf("invalid MEDIA_ENGINE %q", engine)
	}

	cfg := &Config{
		Server: ServerConfig{
			ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
			APISecret:      getEnv("CONTROL_API_SECRET", ""),
		},
		Identity: identity,
		Relay: RelayConfig{
			URL:   getEnv("RELAY_URL", ""),
			Token: getEnv("RELAY_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/calls.db"),
		},
		Media: MediaConfig{
			Engine:        engine,
			ICEServers:    splitList(getEnv("ICE_SERVERS", "stun:stun.l.google.com:19302")),
			ICEUsername:   getEnv("ICE_USERNAME", ""),
			ICECredential: getEnv("ICE_CREDENTIAL", ""),
			Video:         video,
		},
		Call: CallConfig{
			RingTimeout:     ringTimeout,
			InviteFreshness: freshness,
			SendTimeout:     sendTimeout,
			HistoryLimit:    historyLimit,
			ProcessedLimit:  processedLimit,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
