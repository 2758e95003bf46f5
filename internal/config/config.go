package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the core runtime settings.  Each field corresponds to an
// environment variable.  Feature groups (redis, cache, rate limit,
// realtime, mqtt, archive, mail, payment, database) have their own loaders.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	JWTSecret    string // secret used to sign guard/sensor tokens; empty disables auth
	AccessTTLMin int    // token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for passcode hashing
	// GuardPasscodeHash is the bcrypt hash guards exchange for a token.
	GuardPasscodeHash string
	PlazasFile        string // optional YAML plaza catalog
	MigrateOnStart    bool   // create tables at startup
	// LegacyOccupancy keeps POST /actualizar open for the camera analyser.
	LegacyOccupancy bool
}

// LoadDotEnv reads .env (or the files named in ENV_FILE, comma separated)
// into the environment.  Variables already set win.  A missing file is not
// an error.
func LoadDotEnv() {
	files := []string{".env"}
	if v := os.Getenv("ENV_FILE"); v != "" {
		files = strings.Split(v, ",")
	}
	for _, f := range files {
		f = strings.TrimSpace(f)
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("config: load %s: %v", f, err)
		}
	}
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:               getenv("APP_ENV", "dev"),
		Port:              must("APP_PORT"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 720),
		BcryptCost:        envInt("BCRYPT_COST", 12),
		GuardPasscodeHash: os.Getenv("GUARD_PASSCODE_HASH"),
		PlazasFile:        os.Getenv("PLAZAS_FILE"),
		MigrateOnStart:    envBool("DB_MIGRATE", true),
		LegacyOccupancy:   envBool("OCCUPANCY_LEGACY_ENDPOINT", true),
	}
}

// AuthEnabled reports whether guard and sensor endpoints require a token.
func (c Config) AuthEnabled() bool { return c.JWTSecret != "" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
