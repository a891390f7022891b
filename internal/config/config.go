package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses the booking window durations
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The booking windows default to the product
// values: a short 10-minute hold (long enough to read the transfer
// instructions, short enough to stop seat squatting) and a 24-hour
// payment deadline (bank transfers are not instant).
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	HoldTTL        time.Duration // seat hold window (default 10m)
	PaymentTTL     time.Duration // payment verification window (default 24h)
	ReaperInterval time.Duration // expiry sweep interval (default 1m)
	AMQPURL        string        // RabbitMQ URL; empty disables notifications
	BankName       string        // active bank account: bank name
	BankAcctName   string        // active bank account: holder name
	BankAcctNumber string        // active bank account: account number
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		HoldTTL:        durOr("HOLD_TTL", 10*time.Minute),
		PaymentTTL:     durOr("PAYMENT_TTL", 24*time.Hour),
		ReaperInterval: durOr("REAPER_INTERVAL", time.Minute),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
		BankName:       os.Getenv("BANK_NAME"),
		BankAcctName:   os.Getenv("BANK_ACCOUNT_NAME"),
		BankAcctNumber: os.Getenv("BANK_ACCOUNT_NUMBER"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// durOr parses an optional duration variable, falling back to def when
// the variable is unset or malformed.
func durOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
