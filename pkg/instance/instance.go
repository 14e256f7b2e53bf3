package instance

import (
	"os"
	"strings"
)

// GetID returns the worker identifier used to tag logs, falling back to the
// hostname and then to "worker-0".
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("STOREFRONT_WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
