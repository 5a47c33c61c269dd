package config

import (
	"os"
	"strings"
)

// EnvironmentExpander expands environment variable placeholders in configuration data.
type EnvironmentExpander interface {
	// Expand replaces ${VAR}, $VAR and ${VAR:-default} placeholders in input.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand uses os.Expand. An unset variable without a default expands to the empty string.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return []byte(os.Expand(string(input), lookupWithDefault)), nil
}

func lookupWithDefault(name string) string {
	key, def, hasDefault := strings.Cut(name, ":-")
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if hasDefault {
		return def
	}
	return ""
}
