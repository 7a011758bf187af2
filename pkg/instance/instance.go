package instance

import "os"

// GetID names the running process in logs: KITCHENLEDGER_INSTANCE_ID when
// set, otherwise the host name.
func GetID() string {
	if id := os.Getenv("KITCHENLEDGER_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
