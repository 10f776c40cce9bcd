package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	DBPath       string
	JWTSecret    []byte
	TokenTTL     time.Duration
	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool

	// Shopper client settings.
	APIURL      string
	LocalDBPath string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8585"),
		DBPath:       getEnv("DB_PATH", "./vendormarket.db"),
		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",
		LocalDBPath:  getEnv("LOCAL_DB_PATH", "./vendormarket-local.db"),
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8585"
	}
	cfg.APIURL = getEnv("API_URL", "http://localhost:"+cfg.Port+"/api/")

	cfg.JWTSecret = loadKey("JWT_SECRET", "Bearer tokens will be invalid on restart.")
	cfg.CSRFKey = loadKey("CSRF_KEY", "This key will change on each restart.")
	cfg.SessionKey = loadKey("SESSION_KEY", "Sessions will be invalid on restart.")

	cfg.TokenTTL = 24 * time.Hour
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			slog.Warn("Invalid TOKEN_TTL, using default", "TOKEN_TTL", ttl, "default", cfg.TokenTTL)
		} else {
			cfg.TokenTTL = d
		}
	}

	return cfg, nil
}

// LoadClientConfig reads only what the CLI needs: the database for admin
// commands and the shopper client settings. No secrets are generated.
func LoadClientConfig() *Config {
	port := getEnv("PORT", "8585")
	return &Config{
		Port:        port,
		DBPath:      getEnv("DB_PATH", "./vendormarket.db"),
		APIURL:      getEnv("API_URL", "http://localhost:"+port+"/api/"),
		LocalDBPath: getEnv("LOCAL_DB_PATH", "./vendormarket-local.db"),
	}
}

// loadKey decodes a base64 secret of at least 32 bytes from env, or falls
// back to a random development key.
func loadKey(env, consequence string) []byte {
	raw := os.Getenv(env)
	if raw == "" {
		slog.Warn(env+" environment variable not set. Generating a random key for development. "+consequence, "env", env)
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) < 32 {
		slog.Warn(env+" is invalid or too short (min 32 bytes). Generating a random key for development.", "env", env)
		return generateRandomBytes(32)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		// Only reached if the OS entropy source is broken; never suitable for production.
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
