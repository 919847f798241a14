package compliance

import (
	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/plan"
)

// CheckContext carries the planned state for a single profile run.
// It is the sole input to Check.Evaluate and must contain everything a check
// needs; checks must never make network calls or read external state.
type CheckContext struct {
	// AccountID is the AWS account being evaluated.
	AccountID string

	// Profile is the AWS profile name for this evaluation run.
	Profile string

	// Plans holds the computed tag plan for every in-scope resource across
	// all collected regions.
	Plans []plan.Plan
}

// Check is a single deterministic tag-compliance check.
// Checks must be stateless and safe to call concurrently.
// They must never call the AWS SDK or any external service.
type Check interface {
	// ID returns the unique, stable identifier for this check
	// (e.g. "MISSING_TAG").
	ID() string

	// Name returns a short human-readable check name.
	Name() string

	// Evaluate inspects the provided context and returns zero or more
	// findings. An empty slice means no issue was detected.
	Evaluate(ctx CheckContext) []models.Finding
}

// Registry manages the set of active checks and drives evaluation.
type Registry interface {
	// Register adds a check to the registry. Panics on duplicate ID.
	Register(check Check)

	// All returns all registered checks in registration order.
	All() []Check

	// EvaluateAll runs every registered check against ctx and merges results.
	EvaluateAll(ctx CheckContext) []models.Finding
}
