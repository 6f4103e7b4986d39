// Package triage provides the classification and escalation decision engine
// for incident cases. It turns free-text incident reports into structured,
// confidence-scored classifications and gates case escalation behind a
// confidence threshold policy, producing an auditable decision record for
// every engine invocation.
package triage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// normalizeEnum lowercases and trims an enum candidate from an external source.
func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CaseStatus represents the lifecycle state of a case.
type CaseStatus string

const (
	StatusPending    CaseStatus = "pending"
	StatusInProgress CaseStatus = "in_progress"
	StatusCompleted  CaseStatus = "completed"
	StatusEscalated  CaseStatus = "escalated"
	StatusClosed     CaseStatus = "closed"
)

// Terminal returns true if the case can never re-enter the escalation pipeline.
func (s CaseStatus) Terminal() bool {
	return s == StatusClosed || s == StatusCompleted
}

// CasePriority represents the handling priority of a case.
type CasePriority string

const (
	PriorityLow      CasePriority = "low"
	PriorityNormal   CasePriority = "normal"
	PriorityHigh     CasePriority = "high"
	PriorityCritical CasePriority = "critical"
)

// ParsePriority normalizes a priority string, reporting whether it is valid.
func ParsePriority(s string) (CasePriority, bool) {
	switch CasePriority(normalizeEnum(s)) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityNormal:
		return PriorityNormal, true
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityCritical:
		return PriorityCritical, true
	}
	return "", false
}

// EscalationTier represents the escalation tier assigned to a case.
type EscalationTier string

const (
	TierBasic    EscalationTier = "basic"
	TierPriority EscalationTier = "priority"
	TierUrgent   EscalationTier = "urgent"
)

// ParseTier normalizes a tier string, reporting whether it is valid.
func ParseTier(s string) (EscalationTier, bool) {
	switch EscalationTier(normalizeEnum(s)) {
	case TierBasic:
		return TierBasic, true
	case TierPriority:
		return TierPriority, true
	case TierUrgent:
		return TierUrgent, true
	}
	return "", false
}

// Category is the issue category assigned by classification.
type Category string

// The fixed category taxonomy. Classifications outside this set are mapped to
// CategoryOther rather than accepted verbatim.
const (
	CategoryCorruptionPolice     Category = "Corruption - Police"
	CategoryCorruptionGovernment Category = "Corruption - Government Official"
	CategoryBribery              Category = "Bribery"
	CategoryFraud                Category = "Fraud"
	CategoryHarassment           Category = "Harassment"
	CategoryDiscrimination       Category = "Discrimination"
	CategoryLandDispute          Category = "Land Dispute"
	CategoryConsumerRights       Category = "Consumer Rights"
	CategoryPublicService        Category = "Public Service Failure"
	CategoryEnvironmental        Category = "Environmental Violation"
	CategoryLaborRights          Category = "Labor Rights Violation"
	CategoryOther                Category = "Other"
)

// Categories lists the full taxonomy in presentation order.
var Categories = []Category{
	CategoryCorruptionPolice,
	CategoryCorruptionGovernment,
	CategoryBribery,
	CategoryFraud,
	CategoryHarassment,
	CategoryDiscrimination,
	CategoryLandDispute,
	CategoryConsumerRights,
	CategoryPublicService,
	CategoryEnvironmental,
	CategoryLaborRights,
	CategoryOther,
}

// ValidCategory reports whether c is part of the fixed taxonomy.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// Classification is the structured result of classifying a free-text report.
// Once attached to a case revision it is immutable; reclassification produces
// a new revision, it never mutates the stored value.
type Classification struct {
	Category         Category       `json:"category"`
	Tier             EscalationTier `json:"escalation_tier"`
	Confidence       float64        `json:"confidence"`
	UrgencyScore     int            `json:"urgency_score"`
	SuggestedActions []string       `json:"suggested_actions"`
	Reasoning        string         `json:"reasoning,omitempty"`
}

// EscalationAnalysis is the AI assessment of whether a case should escalate.
// It is computed per escalation request and persisted only inside the
// resulting metadata and audit records.
type EscalationAnalysis struct {
	ShouldEscalate    bool         `json:"should_escalate"`
	Confidence        float64      `json:"confidence"`
	Reasons           []string     `json:"reasons,omitempty"`
	SuggestedPriority CasePriority `json:"suggested_priority"`
	UrgencyScore      int          `json:"urgency_score"`
	RiskFactors       []string     `json:"risk_factors,omitempty"`
	Recommendation    string       `json:"recommendation"`
}

// Case is an incident case as seen by the triage engine.
type Case struct {
	ID              uuid.UUID      `json:"id"`
	Status          CaseStatus     `json:"status"`
	Priority        CasePriority   `json:"priority"`
	EscalationLevel EscalationTier `json:"escalation_level"`
	UrgencyScore    int            `json:"urgency_score"`

	ReportText string `json:"report_text"`

	Classification *Classification `json:"classification,omitempty"`
	ClassifiedAt   *time.Time      `json:"classified_at,omitempty"`
	Revision       int             `json:"revision"`

	Metadata Metadata `json:"metadata"`

	EscalatedBy string     `json:"escalated_by,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EscalationRecord is the escalation entry stored under the case metadata's
// "escalation" key. Only one active record is kept per case; a new escalation
// replaces the previous record wholesale.
type EscalationRecord struct {
	Reason        string             `json:"reason"`
	Verdict       Verdict            `json:"verdict"`
	FinalPriority CasePriority       `json:"final_priority"`
	Tier          EscalationTier     `json:"tier"`
	Analysis      EscalationAnalysis `json:"analysis"`
	EscalatedBy   string             `json:"escalated_by"`
	EscalatedAt   time.Time          `json:"escalated_at"`
}

// EscalationOutcome is what EscalateCase returns on approval.
type EscalationOutcome struct {
	Case     *Case               `json:"case"`
	Analysis *EscalationAnalysis `json:"analysis"`
	Approved bool                `json:"approved"`
}

// DecisionKind distinguishes the two kinds of audited decisions.
type DecisionKind string

const (
	DecisionClassification DecisionKind = "classification"
	DecisionEscalation     DecisionKind = "escalation"
)

// DecisionRecord is one append-only audit entry. The engine writes exactly one
// per classification and one per escalation decision, rejections included.
type DecisionRecord struct {
	ID             uuid.UUID       `json:"id"`
	CaseID         uuid.UUID       `json:"case_id"`
	Kind           DecisionKind    `json:"kind"`
	InputSummary   string          `json:"input_summary"`
	OutputSnapshot json.RawMessage `json:"output_snapshot"`
	Confidence     float64         `json:"confidence"`
	Model          string          `json:"model"`
	Actor          string          `json:"actor"`
	CreatedAt      time.Time       `json:"created_at"`
}
