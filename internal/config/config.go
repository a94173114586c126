package config // package config loads application configuration from environment variables

import (
	"log/slog" // slog reports configuration errors before exit
	"os"       // os provides access to environment variables

	"github.com/joho/godotenv" // godotenv loads a local .env file when present
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" or "sqlite"
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBPath         string // sqlite database file
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing
	SessionSecret  string // key for the session cookie store
	CookieSecure   bool   // mark session cookies Secure
	SeedTemplates  bool   // seed system templates at startup
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is read first if it exists.
// Required variables are enforced by must() and missing values cause the
// program to exit.  The MySQL connection variables are only required when
// DB_DRIVER is mysql.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error

	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           envStr("APP_PORT", "8080"),
		DBDriver:       envStr("DB_DRIVER", "mysql"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		SessionSecret:  must("SESSION_SECRET"),
		CookieSecure:   envBool("COOKIE_SECURE", false),
		SeedTemplates:  envBool("SEED_SYSTEM_TEMPLATES", false),
	}
	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "sqlite":
		cfg.DBPath = envStr("DB_PATH", "./data/checklistpro.db")
	default:
		fatal("unsupported DB_DRIVER", "value", cfg.DBDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs an error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		fatal("missing required env var", "key", key)
	}
	return v
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
