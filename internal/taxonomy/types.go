// Package taxonomy provides the configurable vocabulary used to
// classify analysis findings: categories, topics, roles, and severity
// rules. Three configuration scopes (system default, industry
// template, organization override) are layered into one effective
// taxonomy, with the more specific scope winning.
package taxonomy

import "context"

// Scope identifies which layer a taxonomy document belongs to.
type Scope string

const (
	ScopeSystem       Scope = "system"
	ScopeIndustry     Scope = "industry"
	ScopeOrganization Scope = "organization"
)

// Value is one classifiable value within a category. Patterns, when
// present, are trigger phrases that select this value.
type Value struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName"`
	Patterns    []string `json:"patterns,omitempty"`
}

// Category is a named group of values.
type Category struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"displayName"`
	Values      []Value `json:"values"`
}

// Topic maps a key to the keywords that identify it in finding text.
type Topic struct {
	Key      string   `json:"key"`
	Keywords []string `json:"keywords"`
}

// Role maps a key to participant-name keywords and email-domain glob
// patterns (e.g. "*@support.example.com").
type Role struct {
	Key                 string   `json:"key"`
	Keywords            []string `json:"keywords"`
	EmailDomainPatterns []string `json:"emailDomainPatterns,omitempty"`
}

// SeverityRule overrides the default severity heuristic for findings
// matching category and value. Condition uses the external syntax
// ("topic == 'billing'", "daysUnanswered > 2", "timesAsked > 1"); an
// empty condition always matches.
type SeverityRule struct {
	Category  string `json:"category"`
	Value     string `json:"value"`
	Condition string `json:"condition,omitempty"`
	Severity  string `json:"severity"`
}

// Data is one taxonomy document. Keys are unique within each list
// after a merge.
type Data struct {
	Categories    []Category     `json:"categories"`
	Topics        []Topic        `json:"topics"`
	Roles         []Role         `json:"roles"`
	SeverityRules []SeverityRule `json:"severityRules"`
}

// Repository looks up taxonomy documents by scope. It is an external
// collaborator; implementations typically wrap a SQL store.
type Repository interface {
	// IndustryTemplate returns the template for an industry, or nil
	// when the industry is unrecognized.
	IndustryTemplate(ctx context.Context, industry string) (*Data, error)

	// OrganizationOverride returns the organization-specific override,
	// or nil when none is configured.
	OrganizationOverride(ctx context.Context, orgID string) (*Data, error)
}
