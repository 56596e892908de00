package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable, or fallback
// when the variable is unset or blank. Config proper goes through envconfig;
// this covers the few knobs read before config is loaded.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
