package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var adminPINPattern = regexp.MustCompile(`^\d{4,8}$`)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	AdminPIN           string
	AuthTokens         []string
	LockTimeout        time.Duration
	CreationTolerance  time.Duration
	SweepInterval      time.Duration
	Retention          time.Duration
	MetricsEnabled     bool
	MetricsToken       string
	RateLimitPerMinute int
}

// Load parses configuration values from the process environment, optionally
// pre-populated from a .env file in the working directory.
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles reads the given dotenv files, when present, and parses the environment.
// Variables already set in the environment take precedence over file entries.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func LoadFiles(files ...string) (Config, error) {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", file, err)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
		}
	}
	return parse()
}

func parse() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "booking.db",
		LockTimeout:        2 * time.Second,
		CreationTolerance:  time.Minute,
		SweepInterval:      time.Minute,
		Retention:          24 * time.Hour,
		MetricsEnabled:     true,
		RateLimitPerMinute: 60,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if pin := strings.TrimSpace(os.Getenv("BOOKING_ADMIN_PIN")); pin == "" {
		missing = append(missing, "BOOKING_ADMIN_PIN")
	} else if !adminPINPattern.MatchString(pin) {
		invalid = append(invalid, "BOOKING_ADMIN_PIN")
	} else {
		cfg.AdminPIN = pin
	}

	if tokens := strings.TrimSpace(os.Getenv("BOOKING_AUTH_TOKENS")); tokens != "" {
		for _, token := range strings.Split(tokens, ",") {
			if token = strings.TrimSpace(token); token != "" {
				cfg.AuthTokens = append(cfg.AuthTokens, token)
			}
		}
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{key: "BOOKING_LOCK_TIMEOUT", target: &cfg.LockTimeout},
		{key: "BOOKING_CREATION_TOLERANCE", target: &cfg.CreationTolerance},
		{key: "BOOKING_SWEEP_INTERVAL", target: &cfg.SweepInterval},
		{key: "BOOKING_RETENTION", target: &cfg.Retention},
	}
	for _, d := range durations {
		value := strings.TrimSpace(os.Getenv(d.key))
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, d.key)
			continue
		}
		*d.target = parsed
	}

	if enabledValue := strings.TrimSpace(os.Getenv("BOOKING_METRICS_ENABLED")); enabledValue != "" {
		enabled, err := strconv.ParseBool(enabledValue)
		if err != nil {
			invalid = append(invalid, "BOOKING_METRICS_ENABLED")
		} else {
			cfg.MetricsEnabled = enabled
		}
	}

	cfg.MetricsToken = strings.TrimSpace(os.Getenv("BOOKING_METRICS_TOKEN"))

	if limitValue := strings.TrimSpace(os.Getenv("BOOKING_RATE_LIMIT_PER_MINUTE")); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit < 0 {
			invalid = append(invalid, "BOOKING_RATE_LIMIT_PER_MINUTE")
		} else {
			cfg.RateLimitPerMinute = limit
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
