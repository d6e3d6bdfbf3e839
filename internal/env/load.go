package env

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Load reads .env files into the process environment. Variables already set
// win over file values. A missing file is not an error.
func Load(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, assuming environment variables are set directly.")
	}
}

// Get returns the variable or fallback when unset or empty.
func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// MustGet exits the process when key is not set.
func MustGet(key string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		log.Fatalf("Environment variable %s not set", key)
	}
	return val
}
