package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	GinMode       string

	// RootUserIDs bypass every permission and visibility check. Parsed
	// once at startup and never mutated afterwards.
	RootUserIDs map[uint64]struct{}

	StorageDir   string
	B2AccountID  string
	B2AppKey     string
	B2BucketName string
}

func Load() *Config {
	// Load .env if present; real env vars take precedence.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: skipping .env: %v", err)
	}

	return &Config{
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "school"),
		DBPassword:    getEnv("DB_PASSWORD", "school"),
		DBName:        getEnv("DB_NAME", "school_crm"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		RootUserIDs:   parseIDSet(getEnv("ROOT_USER_IDS", "")),
		StorageDir:    getEnv("STORAGE_DIR", "./data/files"),
		B2AccountID:   getEnv("B2_ACCOUNT_ID", ""),
		B2AppKey:      getEnv("B2_APP_KEY", ""),
		B2BucketName:  getEnv("B2_BUCKET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseIDSet parses a comma-separated list of user ids. Malformed entries
// are logged and skipped rather than aborting startup.
func parseIDSet(raw string) map[uint64]struct{} {
	set := make(map[uint64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			log.Printf("config: ignoring invalid root user id %q", part)
			continue
		}
		set[id] = struct{}{}
	}
	return set
}
