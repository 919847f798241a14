package models

import "time"

// Severity represents the impact level of a compliance finding.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
	SeverityInfo   Severity = "INFO"
)

// Finding is a single detected compliance gap.
// It is the atomic output unit of the check registry.
type Finding struct {
	ID          string       `json:"id"`
	CheckID     string       `json:"check_id"`
	ResourceID  string       `json:"resource_id"`
	Kind        ResourceKind `json:"kind"`
	Region      string       `json:"region"`
	AccountID   string       `json:"account_id"`
	Profile     string       `json:"profile"`
	Severity    Severity     `json:"severity"`
	Explanation string       `json:"explanation"`
	// Keys lists the tag keys involved in this finding (missing or drifted).
	Keys       []string  `json:"keys,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// ApplyStatus describes the outcome of a tagging attempt on one resource.
type ApplyStatus string

const (
	// StatusCompliant means the resource already carried every desired tag.
	StatusCompliant ApplyStatus = "compliant"

	// StatusTagged means the delta was applied successfully.
	StatusTagged ApplyStatus = "tagged"

	// StatusPlanned means a dry run computed a delta but applied nothing.
	StatusPlanned ApplyStatus = "planned"

	// StatusFailed means the tagging API call for this resource failed.
	StatusFailed ApplyStatus = "failed"

	// StatusBlocked means applying the delta would exceed the per-resource
	// tag limit, so the resource cannot be brought into compliance.
	StatusBlocked ApplyStatus = "blocked"
)

// ApplyResult records the per-resource outcome of a tagging pass.
type ApplyResult struct {
	ResourceID string       `json:"resource_id"`
	Kind       ResourceKind `json:"kind"`
	Region     string       `json:"region"`
	Status     ApplyStatus  `json:"status"`
	// TagsApplied lists the keys written (or planned, for dry runs).
	TagsApplied []string `json:"tags_applied,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// RunSummary aggregates counts across one tagging or audit pass.
type RunSummary struct {
	ResourcesScanned int `json:"resources_scanned"`
	Compliant        int `json:"compliant"`
	Tagged           int `json:"tagged"`
	Planned          int `json:"planned"`
	Failed           int `json:"failed"`
	Blocked          int `json:"blocked"`
	TotalFindings    int `json:"total_findings"`
	HighFindings     int `json:"high_findings"`
	MediumFindings   int `json:"medium_findings"`
	LowFindings      int `json:"low_findings"`
}

// RunReport is the top-level output of any tagging or audit run.
type RunReport struct {
	ReportID    string        `json:"report_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Mode        string        `json:"mode"`
	DryRun      bool          `json:"dry_run,omitempty"`
	Profile     string        `json:"profile"`
	AccountID   string        `json:"account_id"`
	Regions     []string      `json:"regions"`
	Summary     RunSummary    `json:"summary"`
	Results     []ApplyResult `json:"results"`
	Findings    []Finding     `json:"findings"`
}
