package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that make an area unusable.
	SeverityError Severity = "error"

	// SeverityCritical is for findings that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocking reports whether the severity fails a strict validation.
func (s Severity) Blocking() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a lint rule with its Rego code. The module must define a
// "deny" set in its package.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation is a single policy finding on an area.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Context is the toolbox context of the area, empty for root.
	Context string `json:"context,omitempty"`

	// Area is the area id.
	Area string `json:"area"`

	// Element is the path of the offending config element, if any.
	Element string `json:"element,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating the enabled policies.
type Result struct {
	// Violations lists all policy violations.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that could not be evaluated.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation finished.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// Allowed reports whether no violation is blocking.
func (r *Result) Allowed() bool {
	for _, v := range r.Violations {
		if v.Severity.Blocking() {
			return false
		}
	}
	return true
}

// BySeverity counts violations per severity.
func (r *Result) BySeverity() map[Severity]int {
	out := make(map[Severity]int)
	for _, v := range r.Violations {
		out[v.Severity]++
	}
	return out
}

// merge appends other to r.
func (r *Result) merge(other *Result) {
	r.Violations = append(r.Violations, other.Violations...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if len(r.EvaluatedPolicies) == 0 {
		r.EvaluatedPolicies = other.EvaluatedPolicies
	}
}

// AreaInput is the document policies are evaluated against, one per area.
type AreaInput struct {
	Context string `json:"context"`
	Area    string `json:"area"`

	// Elements are all config elements of the area, children included,
	// flattened in declaration order.
	Elements []ElementInput `json:"elements"`

	// AdditionalNormalizers maps additional value names to normalizers.
	AdditionalNormalizers map[string]string `json:"additional_normalizers"`

	// Normalizers is the set of registered normalizer names. When
	// CheckNormalizers is false the registry is unknown and references are
	// not checked.
	Normalizers      map[string]bool `json:"normalizers"`
	CheckNormalizers bool            `json:"check_normalizers"`
}

// ElementInput is one config element as seen by policies.
type ElementInput struct {
	Name               string `json:"name"`
	Path               string `json:"path"`
	Type               string `json:"type"`
	Tab                string `json:"tab,omitempty"`
	PropertyNormalizer string `json:"property_normalizer,omitempty"`
	Inline             bool   `json:"inline"`
}
