// Package config provides centralized default values for FinSight
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server Configuration
var Port string

// Document Store Configuration
var (
	// MongoURI is required; main exits at startup when it is empty.
	MongoURI string
	DBName   string

	StoreConnectTimeout time.Duration
	StoreQueryTimeout   time.Duration
)

// Planning Oracle Configuration
var (
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OracleTimeout time.Duration
)

func init() {
	Load()
}

// Load reads the optional .env file and then populates the package
// configuration from the environment. Values already present in the process
// environment win over the file. It runs once at startup via init; tests
// call it again after changing the environment.
func Load() {
	// .env file is optional, don't error if it doesn't exist
	_ = godotenv.Load()

	Port = getEnvString("PORT", "8080")

	MongoURI = getEnvString("MONGO_URI", "")
	DBName = getEnvString("DB_NAME", "dashboarddb")
	StoreConnectTimeout = time.Duration(getEnvInt("STORE_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second
	StoreQueryTimeout = time.Duration(getEnvInt("STORE_QUERY_TIMEOUT_SECONDS", 15)) * time.Second

	OpenAIAPIKey = getEnvString("OPENAI_API_KEY", "")
	OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "https://api.openai.com")
	OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	OracleTimeout = time.Duration(getEnvInt("ORACLE_TIMEOUT_SECONDS", 60)) * time.Second
}

// getEnvInt reads environment variable with fallback to default
func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvString reads environment variable with string fallback
func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
