package compliance

import (
	"fmt"

	"github.com/tagwarden/tagwarden/internal/models"
)

// DefaultRegistry is a simple, ordered, in-memory registry.
// Checks are evaluated in registration order.
// Register panics on duplicate check IDs to catch wiring mistakes at startup.
type DefaultRegistry struct {
	checks []Check
	index  map[string]struct{}
}

// NewDefaultRegistry returns an empty registry ready for check registration.
func NewDefaultRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		index: make(map[string]struct{}),
	}
}

// NewStandardRegistry returns a registry pre-loaded with the full check set.
func NewStandardRegistry() *DefaultRegistry {
	r := NewDefaultRegistry()
	r.Register(MissingTagCheck{})
	r.Register(ValueDriftCheck{})
	r.Register(TagLimitCheck{})
	return r
}

// Register adds check to the registry. Panics if the same ID is registered twice.
func (r *DefaultRegistry) Register(check Check) {
	if _, exists := r.index[check.ID()]; exists {
		panic(fmt.Sprintf("duplicate check ID: %q", check.ID()))
	}
	r.checks = append(r.checks, check)
	r.index[check.ID()] = struct{}{}
}

// All returns all registered checks in registration order.
func (r *DefaultRegistry) All() []Check {
	return r.checks
}

// EvaluateAll runs every registered check against ctx and returns the merged
// findings slice. Checks are called sequentially in registration order.
func (r *DefaultRegistry) EvaluateAll(ctx CheckContext) []models.Finding {
	var findings []models.Finding
	for _, check := range r.checks {
		findings = append(findings, check.Evaluate(ctx)...)
	}
	return findings
}
