package vital

import "strings"

// Environment is a region/stage pair, selected by API-key prefix.
type Environment string

const (
	EnvironmentSandboxUS    Environment = "sandbox-us"
	EnvironmentSandboxEU    Environment = "sandbox-eu"
	EnvironmentProductionUS Environment = "production-us"
	EnvironmentProductionEU Environment = "production-eu"
)

// EnvironmentForKey maps an API-key prefix to its environment.
// Unrecognized prefixes default to the US sandbox so a misconfigured key
// can never point the client at production.
func EnvironmentForKey(apiKey string) Environment {
	switch {
	case strings.HasPrefix(apiKey, "sk_us_"):
		return EnvironmentProductionUS
	case strings.HasPrefix(apiKey, "sk_eu_"):
		return EnvironmentProductionEU
	case strings.HasPrefix(apiKey, "st_us_"):
		return EnvironmentSandboxUS
	case strings.HasPrefix(apiKey, "st_eu_"):
		return EnvironmentSandboxEU
	default:
		return EnvironmentSandboxUS
	}
}

func (e Environment) BaseURL() string {
	switch e {
	case EnvironmentProductionUS:
		return "https://api.tryvital.io"
	case EnvironmentProductionEU:
		return "https://api.eu.tryvital.io"
	case EnvironmentSandboxEU:
		return "https://api.sandbox.eu.tryvital.io"
	default:
		return "https://api.sandbox.tryvital.io"
	}
}

func (e Environment) IsSandbox() bool {
	return e == EnvironmentSandboxUS || e == EnvironmentSandboxEU
}
