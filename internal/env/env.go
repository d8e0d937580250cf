// Package env names the process environment. Dev-only commands and the
// relaxed credential handling key off it.
package env

// Environment is the build/run environment, distinct from the
// aggregator's sandbox/production split.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

func (e Environment) IsDevelopment() bool { return e == Development }
func (e Environment) IsProduction() bool  { return e == Production }
