package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// LeaseDateOrder rejects leases whose end_date is before start_date
	LeaseDateOrder = "lease_date_order"
)

// Source answers whether a named flag is on
type Source interface {
	Enabled(name string) bool
}

// Env reads flags from the process environment
type Env struct{}

// Enabled implements Source
func (Env) Enabled(name string) bool {
	return Enabled(name)
}

// Static is a fixed flag set, mostly for tests
type Static map[string]bool

// Enabled implements Source
func (s Static) Enabled(name string) bool {
	return s[name]
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
