package extension

import "time"

// Config holds the Steward extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.steward" or "steward" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// ResolveMaxAttempts overrides the membership resolver's retry budget.
	ResolveMaxAttempts int `json:"resolve_max_attempts" mapstructure:"resolve_max_attempts" yaml:"resolve_max_attempts"`

	// ResolveInterval overrides the delay between resolver attempts.
	ResolveInterval time.Duration `json:"resolve_interval" mapstructure:"resolve_interval" yaml:"resolve_interval"`

	// ReconcileMaxAttempts overrides the claim reconciler's attempt budget.
	ReconcileMaxAttempts int `json:"reconcile_max_attempts" mapstructure:"reconcile_max_attempts" yaml:"reconcile_max_attempts"`

	// ReconcileInterval overrides the delay between reconciler attempts.
	ReconcileInterval time.Duration `json:"reconcile_interval" mapstructure:"reconcile_interval" yaml:"reconcile_interval"`

	// DisableDecisionLog turns off decision audit logging.
	DisableDecisionLog bool `json:"disable_decision_log" mapstructure:"disable_decision_log" yaml:"disable_decision_log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
