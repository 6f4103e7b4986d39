package triage

import "fmt"

// Confidence thresholds for the escalation decision table. These are fixed
// policy, not deployment configuration.
const (
	// ApproveThreshold is the minimum confidence at which an escalation
	// recommendation is approved with the AI-suggested priority.
	ApproveThreshold = 0.6

	// ModerateThreshold is the minimum confidence at which an escalation
	// recommendation is approved while keeping the caller's priority.
	ModerateThreshold = 0.4

	// RejectThreshold is the minimum confidence at which a recommendation
	// against escalation rejects the request outright.
	RejectThreshold = 0.7
)

// Verdict is the categorical outcome of the escalation policy.
type Verdict string

const (
	// VerdictApprove: the analysis recommends escalation with high
	// confidence; the AI-suggested priority overrides the caller's.
	VerdictApprove Verdict = "approve"

	// VerdictApproveModerate: the analysis recommends escalation with
	// moderate confidence; the caller's requested priority is kept.
	VerdictApproveModerate Verdict = "approve_moderate"

	// VerdictReject: the analysis recommends against escalation with high
	// confidence; the request fails, no case mutation occurs.
	VerdictReject Verdict = "reject"

	// VerdictApproveOverride: low-confidence disagreement or any unmatched
	// combination; the manual request is approved despite the analysis.
	VerdictApproveOverride Verdict = "approve_override"
)

// Approved reports whether the verdict permits the escalation.
func (v Verdict) Approved() bool {
	return v != VerdictReject
}

// EscalationDecision is the policy evaluator's full output for one request.
type EscalationDecision struct {
	Verdict       Verdict
	FinalPriority CasePriority
	Tier          EscalationTier
	UrgencyScore  int
	// Reason is the caller's escalation reason with the AI analysis note
	// appended.
	Reason string
}

// DecideEscalation evaluates the four-branch decision table, first match
// wins. Lower bounds are inclusive: confidence exactly 0.6 approves, exactly
// 0.4 approves with moderate confidence, and exactly 0.7 against escalation
// rejects. requestedPriority may be nil, in which case branches that honor
// the caller's choice default to High.
func DecideEscalation(analysis *EscalationAnalysis, requestedPriority *CasePriority, userReason string) *EscalationDecision {
	decision := &EscalationDecision{
		UrgencyScore: clampUrgency(analysis.UrgencyScore),
	}

	switch {
	case analysis.ShouldEscalate && analysis.Confidence >= ApproveThreshold:
		decision.Verdict = VerdictApprove
		decision.FinalPriority = analysis.SuggestedPriority
		decision.Reason = appendNote(userReason,
			fmt.Sprintf("AI Analysis: %s", analysis.Recommendation))

	case analysis.ShouldEscalate && analysis.Confidence >= ModerateThreshold:
		decision.Verdict = VerdictApproveModerate
		decision.FinalPriority = priorityOrDefault(requestedPriority, PriorityHigh)
		decision.Reason = appendNote(userReason,
			fmt.Sprintf("AI Analysis (moderate confidence): %s", analysis.Recommendation))

	case !analysis.ShouldEscalate && analysis.Confidence >= RejectThreshold:
		decision.Verdict = VerdictReject
		decision.Reason = userReason
		return decision

	default:
		decision.Verdict = VerdictApproveOverride
		decision.FinalPriority = priorityOrDefault(requestedPriority, PriorityHigh)
		decision.Reason = appendNote(userReason,
			fmt.Sprintf("AI Analysis (low confidence): Manual escalation approved despite AI recommendation. %s", analysis.Recommendation))
	}

	decision.Tier = TierForPriority(decision.FinalPriority)
	return decision
}

// TierForPriority derives the escalation tier from the final priority.
func TierForPriority(p CasePriority) EscalationTier {
	switch p {
	case PriorityCritical:
		return TierUrgent
	case PriorityHigh:
		return TierPriority
	default:
		return TierBasic
	}
}

func priorityOrDefault(p *CasePriority, def CasePriority) CasePriority {
	if p != nil && *p != "" {
		return *p
	}
	return def
}

func appendNote(reason, note string) string {
	if reason == "" {
		return note
	}
	return reason + " | " + note
}

func clampUrgency(n int) int {
	if n < MinUrgency {
		return MinUrgency
	}
	if n > MaxUrgency {
		return MaxUrgency
	}
	return n
}
