package instance

import (
	"os"
	"testing"
)

func TestGetIDFromEnv(t *testing.T) {
	t.Setenv("GEMVAULT_INSTANCE_ID", "api-7")
	if got := GetID(); got != "api-7" {
		t.Fatalf("expected api-7, got %q", got)
	}
}

func TestGetIDDefaultsToHostname(t *testing.T) {
	t.Setenv("GEMVAULT_INSTANCE_ID", "")
	t.Setenv("INSTANCE_ID", "")
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = defaultID
	}
	if got := GetID(); got != host {
		t.Fatalf("expected %q, got %q", host, got)
	}
}
