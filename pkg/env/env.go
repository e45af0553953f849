package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the services read.
const Prefix = "GEMVAULT_"

// Get returns GEMVAULT_<key>, then <key>, then fallback.
func Get(key, fallback string) string {
	if !strings.HasPrefix(key, Prefix) {
		if val := strings.TrimSpace(os.Getenv(Prefix + key)); val != "" {
			return val
		}
	}
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
