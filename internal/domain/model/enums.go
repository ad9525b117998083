package model

import "strings"

// Plan represents the subscription tier of a client relationship.
type Plan string

const (
	PlanStarter    Plan = "starter"
	PlanGrowth     Plan = "growth"
	PlanEnterprise Plan = "enterprise"
	PlanCustom     Plan = "custom"
)

// DefaultPlan is applied when input carries no plan or an unrecognized one.
const DefaultPlan = PlanStarter

// Status represents the lifecycle state of a client relationship.
type Status string

const (
	StatusActive     Status = "active"
	StatusPending    Status = "pending"
	StatusTrial      Status = "trial"
	StatusChurnRisk  Status = "churn_risk"
	StatusOffboarded Status = "offboarded"
)

// DefaultStatus is applied when input carries no status or an unrecognized one.
const DefaultStatus = StatusPending

// IsValid reports whether p is one of the defined plans.
func (p Plan) IsValid() bool {
	switch p {
	case PlanStarter, PlanGrowth, PlanEnterprise, PlanCustom:
		return true
	}
	return false
}

// IsValid reports whether s is one of the defined statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPending, StatusTrial, StatusChurnRisk, StatusOffboarded:
		return true
	}
	return false
}

// NormalizePlan maps free-form input ("Growth", " enterprise ") to a defined
// Plan, falling back to DefaultPlan for anything unrecognized. Legacy records
// are run through this on every read as well as every write.
func NormalizePlan(raw string) Plan {
	p := Plan(canonicalize(raw))
	if !p.IsValid() {
		return DefaultPlan
	}
	return p
}

// NormalizeStatus maps free-form input ("Churn Risk", "ACTIVE") to a defined
// Status, falling back to DefaultStatus for anything unrecognized.
func NormalizeStatus(raw string) Status {
	s := Status(canonicalize(raw))
	if !s.IsValid() {
		return DefaultStatus
	}
	return s
}

// canonicalize lowers, trims, and folds spaces/hyphens to underscores so
// "Churn Risk" and "churn-risk" both land on "churn_risk".
func canonicalize(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, " ", "_")
	v = strings.ReplaceAll(v, "-", "_")
	return v
}
