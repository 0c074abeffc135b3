package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time provides duration types for TTLs and intervals
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for TTLs
// and intervals.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	RabbitURL     string        // AMQP connection URL
	JWTSecret     string        // secret used to sign admin JWTs
	HoldTTL       time.Duration // how long a pending reservation stays valid
	SweepInterval time.Duration // how often the expiration sweeper runs
	LockTTL       time.Duration // distributed lock time-to-live
	LockRetries   int           // lock acquisition attempts before giving up
	LockRetryWait time.Duration // pause between lock acquisition attempts
	DBMaxOpen     int           // connection pool: max open connections
	DBMaxIdle     int           // connection pool: max idle connections
	DBConnLife    time.Duration // connection pool: max connection lifetime
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables carry
// sensible defaults so a bare environment still boots.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),      // environment (dev/test/prod)
		Port:          must("APP_PORT"),     // port to bind the HTTP server
		DBUser:        must("DB_USER"),      // database user
		DBPass:        os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:        must("DB_HOST"),      // database host
		DBPort:        must("DB_PORT"),      // database port
		DBName:        must("DB_NAME"),      // database name
		RabbitURL:     must("RABBITMQ_URL"), // AMQP broker URL
		JWTSecret:     must("JWT_SECRET"),   // secret used for signing admin JWTs
		HoldTTL:       durationOr("RESERVATION_HOLD_TTL", 30*time.Second),
		SweepInterval: durationOr("SWEEP_INTERVAL", 5*time.Second),
		LockTTL:       durationOr("LOCK_TTL", 5*time.Second),
		LockRetries:   intOr("LOCK_MAX_RETRIES", 3),
		LockRetryWait: durationOr("LOCK_RETRY_DELAY", 100*time.Millisecond),
		DBMaxOpen:     intOr("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdle:     intOr("DB_MAX_IDLE_CONNS", 25),
		DBConnLife:    durationOr("DB_CONN_MAX_LIFETIME", 30*time.Minute),
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

// intOr reads an integer environment variable, falling back to def when
// the variable is unset.  An unparseable value is fatal rather than
// silently defaulted.
func intOr(key string, def int) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// durationOr reads a Go duration string (e.g. "30s", "100ms"), falling
// back to def when the variable is unset.
func durationOr(key string, def time.Duration) time.Duration {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}

// strOr reads a string environment variable, falling back to def when
// the variable is unset or empty.
func strOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// boolOr reads a boolean environment variable in strconv.ParseBool
// syntax, falling back to def when the variable is unset.
func boolOr(key string, def bool) bool {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool for %s: %q", key, s)
	}
	return b
}
