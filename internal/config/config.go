package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced at startup;
// lifecycle knobs fall back to the defaults of the order and call engine.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	DBMigrate bool   // apply the embedded schema on startup
	JWTSecret string // secret used to verify staff JWTs

	AccessTTL        time.Duration // lifetime of tokens minted by cmd/staff-token
	CallRateWindow   time.Duration // admission window per (table, call type)
	OrderRateWindow  time.Duration // admission window per table for new orders
	RatingLookback   time.Duration // how long a resolved call stays rateable in the session view
	LiveInterval     time.Duration // poll period of kitchen and waiter streams
	MetricsInterval  time.Duration // poll period of the summary stream
	MinStarsRedirect int           // fallback review redirect threshold
	AdmissionBackend string        // "memory" or "redis"

	RabbitURL   string // AMQP broker; empty disables event publishing
	ActivityDir string // where the activity consumer appends activity.log
	LiveChannel string // Redis pub/sub channel for cross-instance nudges
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables and malformed values cause the
// program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		DBMigrate: envBool("DB_MIGRATE", false),
		JWTSecret: must("JWT_SECRET"),

		AccessTTL:        time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 60)) * time.Minute,
		CallRateWindow:   mustDur("CALL_RATE_WINDOW", 30*time.Second),
		OrderRateWindow:  mustDur("ORDER_RATE_WINDOW", 30*time.Second),
		RatingLookback:   mustDur("RATING_LOOKBACK", 30*time.Minute),
		LiveInterval:     mustDur("LIVE_POLL_INTERVAL", 2*time.Second),
		MetricsInterval:  mustDur("METRICS_POLL_INTERVAL", 30*time.Second),
		MinStarsRedirect: mustStars("MIN_STARS_REDIRECT", 4),
		AdmissionBackend: mustBackend("ADMISSION_BACKEND"),

		RabbitURL:   rabbitURL(),
		ActivityDir: envStr("ACTIVITY_LOG_DIR", "logs"),
		LiveChannel: envStr("LIVE_CHANNEL", "table_service:live"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustDur is like envDur but refuses malformed or non-positive values
// instead of silently using the default.
func mustDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}

func mustStars(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 5 {
		log.Fatalf("invalid star threshold for %s: %q", key, v)
	}
	return n
}

func mustBackend(key string) string {
	switch v := strings.ToLower(envStr(key, "memory")); v {
	case "memory", "redis":
		return v
	default:
		log.Fatalf("invalid %s: %q (want memory or redis)", key, v)
		return ""
	}
}

// rabbitURL reads RABBITMQ_URL, then the AMQP_URL alias.
func rabbitURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}
