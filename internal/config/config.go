package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time provides duration types for intervals and TTLs
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Connection settings are required and enforced by
// must(); the booking tunables default to sane values so a bare environment
// still boots a working reservation core.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify bearer tokens

	BookingExpiryMin int           // seat lock / booking hold TTL in minutes
	MaxSeatsPerUser  int           // per-request seat cap
	ConflictRetries  int           // bounded internal retries on version conflicts
	ReaperInterval   time.Duration // how often the lock-expiry sweep runs
	ReaperBatchSize  int           // rows reclaimed per sweep and table
	SeatMapCacheTTL  time.Duration // redis TTL for cached seat maps
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),      // environment (dev/test/prod)
		Port:      must("APP_PORT"),     // port to bind the HTTP server
		DBUser:    must("DB_USER"),      // database user
		DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:    must("DB_HOST"),      // database host
		DBPort:    must("DB_PORT"),      // database port
		DBName:    must("DB_NAME"),      // database name
		JWTSecret: must("JWT_SECRET"),   // secret used for verifying JWTs

		BookingExpiryMin: envInt("BOOKING_EXPIRY_MIN", 5),
		MaxSeatsPerUser:  envInt("BOOKING_MAX_SEATS_PER_USER", 10),
		ConflictRetries:  envInt("BOOKING_CONFLICT_RETRIES", 3),
		ReaperInterval:   envDur("REAPER_INTERVAL", 30*time.Second),
		ReaperBatchSize:  envInt("REAPER_BATCH_SIZE", 200),
		SeatMapCacheTTL:  envDur("SEATMAP_CACHE_TTL", 30*time.Second),
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

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}
