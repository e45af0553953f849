package instance

import (
	"os"

	"github.com/angelmondragon/gemvault-backend/pkg/env"
)

const defaultID = "gemvault-0"

// GetID identifies the running process in logs and metrics labels.
// GEMVAULT_INSTANCE_ID wins, then the hostname.
func GetID() string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
