package config

import (
	"fmt"
	"strings"
)

// Environment names the deployment tier the process runs in.
type Environment string

const (
	EnvironmentLocal       Environment = "local"
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

// ParseEnvironment normalizes a raw environment name. Empty input means local.
func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(raw))) {
	case "", EnvironmentLocal:
		return EnvironmentLocal, nil
	case EnvironmentDevelopment, "dev":
		return EnvironmentDevelopment, nil
	case EnvironmentProduction, "prod":
		return EnvironmentProduction, nil
	default:
		return "", fmt.Errorf("unknown environment %q", raw)
	}
}

// IsProduction reports whether the environment must refuse insecure fallbacks.
func (e Environment) IsProduction() bool {
	return e == EnvironmentProduction
}

// IsLocal reports whether the process runs on a developer machine over plain HTTP.
func (e Environment) IsLocal() bool {
	return e == EnvironmentLocal || e == ""
}
