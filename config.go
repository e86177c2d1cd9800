package steward

import "time"

// Config holds configuration for the Steward engine.
type Config struct {
	// ResolveMaxAttempts is the identity resolver's retry budget when a
	// membership is not yet visible. Defaults to 6.
	ResolveMaxAttempts int `json:"resolve_max_attempts,omitempty"`

	// ResolveInterval is the fixed delay between resolver attempts.
	// Defaults to 2s. Deliberately not exponential: the wait is bounded
	// by claim propagation, not by load.
	ResolveInterval time.Duration `json:"resolve_interval,omitempty"`

	// ReconcileMaxAttempts is the claim propagation reconciler's attempt
	// budget. Defaults to 6. Counted separately from the resolver's.
	ReconcileMaxAttempts int `json:"reconcile_max_attempts,omitempty"`

	// ReconcileInterval is the fixed delay between reconciler attempts.
	// Defaults to 2s.
	ReconcileInterval time.Duration `json:"reconcile_interval,omitempty"`

	// DisableDecisionLog turns off decision audit logging.
	DisableDecisionLog bool `json:"disable_decision_log,omitempty"`

	// DisableMutationSerialization turns off the per-target mutex that
	// orders concurrent mutations aimed at the same principal. Leave it
	// on unless an external system already serializes writes.
	DisableMutationSerialization bool `json:"disable_mutation_serialization,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ResolveMaxAttempts:   6,
		ResolveInterval:      2 * time.Second,
		ReconcileMaxAttempts: 6,
		ReconcileInterval:    2 * time.Second,
	}
}

func (c Config) resolveAttempts() int {
	if c.ResolveMaxAttempts > 0 {
		return c.ResolveMaxAttempts
	}
	return 6
}

func (c Config) resolveInterval() time.Duration {
	if c.ResolveInterval > 0 {
		return c.ResolveInterval
	}
	return 2 * time.Second
}

func (c Config) reconcileAttempts() int {
	if c.ReconcileMaxAttempts > 0 {
		return c.ReconcileMaxAttempts
	}
	return 6
}

func (c Config) reconcileInterval() time.Duration {
	if c.ReconcileInterval > 0 {
		return c.ReconcileInterval
	}
	return 2 * time.Second
}
