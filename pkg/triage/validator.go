package triage

import (
	"math"
	"strings"
)

// Bounds enforced on inference output.
const (
	MinConfidence = 0.0
	MaxConfidence = 1.0
	MinUrgency    = 1
	MaxUrgency    = 10
)

// FallbackClassification returns the fixed classification substituted when the
// inference call fails or its output is missing a required field. The tier is
// intentionally Priority rather than Basic: a failed classification must not
// silently under-escalate.
func FallbackClassification() *Classification {
	return &Classification{
		Category:     CategoryOther,
		Tier:         TierPriority,
		Confidence:   0.1,
		UrgencyScore: 6,
		SuggestedActions: []string{
			"Manual review required due to AI classification failure",
			"Contact support team immediately",
			"Document all evidence carefully",
		},
	}
}

// FallbackAnalysis returns the fixed escalation analysis substituted when the
// inference output fails validation. Its shape deterministically routes the
// policy to the low-confidence override branch, so an inference failure never
// silently blocks a manual escalation.
func FallbackAnalysis() *EscalationAnalysis {
	return &EscalationAnalysis{
		ShouldEscalate:    false,
		Confidence:        0.1,
		Reasons:           []string{"AI analysis failed, manual review required"},
		SuggestedPriority: PriorityNormal,
		UrgencyScore:      5,
		Recommendation:    "Automated analysis unavailable. Apply manual judgment to this escalation request.",
	}
}

// ValidateClassification enforces the classification output contract on a raw
// decoded inference response. It returns the validated classification and
// whether the fallback was substituted.
//
// Category and escalation tier must be non-empty strings; a category outside
// the taxonomy maps to Other, an unrecognized tier to Priority. Confidence is
// clamped into [0,1], urgency clamped and floored into [1,10], and suggested
// actions are coerced to a string array. A missing category or tier, or a
// non-numeric confidence, triggers the fallback.
func ValidateClassification(raw map[string]interface{}) (*Classification, bool) {
	if raw == nil {
		return FallbackClassification(), true
	}

	category, ok := nonEmptyString(raw["category"])
	if !ok {
		return FallbackClassification(), true
	}
	tierStr, ok := nonEmptyString(raw["escalation_tier"])
	if !ok {
		return FallbackClassification(), true
	}
	confidence, ok := asFloat(raw["confidence"])
	if !ok {
		return FallbackClassification(), true
	}

	cls := &Classification{
		Category:         matchCategory(category),
		Confidence:       clampFloat(confidence, MinConfidence, MaxConfidence),
		UrgencyScore:     coerceUrgency(raw["urgency_score"], 5),
		SuggestedActions: coerceActions(raw["suggested_actions"]),
	}

	if tier, valid := ParseTier(tierStr); valid {
		cls.Tier = tier
	} else {
		// Unknown tier values are not accepted verbatim; Priority keeps the
		// conservative bias of the fallback.
		cls.Tier = TierPriority
	}

	if reasoning, ok := nonEmptyString(raw["reasoning"]); ok {
		cls.Reasoning = reasoning
	}

	return cls, false
}

// ValidateAnalysis enforces the escalation analysis output contract on a raw
// decoded inference response. It returns the validated analysis and whether
// the fallback was substituted. ShouldEscalate must be a boolean and
// confidence numeric; anything less yields the fallback.
func ValidateAnalysis(raw map[string]interface{}) (*EscalationAnalysis, bool) {
	if raw == nil {
		return FallbackAnalysis(), true
	}

	shouldEscalate, ok := raw["should_escalate"].(bool)
	if !ok {
		return FallbackAnalysis(), true
	}
	confidence, ok := asFloat(raw["confidence"])
	if !ok {
		return FallbackAnalysis(), true
	}

	analysis := &EscalationAnalysis{
		ShouldEscalate: shouldEscalate,
		Confidence:     clampFloat(confidence, MinConfidence, MaxConfidence),
		Reasons:        coerceStrings(raw["reasons"]),
		UrgencyScore:   coerceUrgency(raw["urgency_score"], 5),
		RiskFactors:    coerceStrings(raw["risk_factors"]),
	}

	if prioStr, ok := nonEmptyString(raw["suggested_priority"]); ok {
		if prio, valid := ParsePriority(prioStr); valid {
			analysis.SuggestedPriority = prio
		}
	}
	if analysis.SuggestedPriority == "" {
		analysis.SuggestedPriority = PriorityNormal
	}

	if rec, ok := nonEmptyString(raw["recommendation"]); ok {
		analysis.Recommendation = rec
	}

	return analysis, false
}

// matchCategory resolves a category string against the taxonomy,
// case-insensitively. Unknown categories map to Other.
func matchCategory(s string) Category {
	trimmed := strings.TrimSpace(s)
	for _, known := range Categories {
		if strings.EqualFold(string(known), trimmed) {
			return known
		}
	}
	return CategoryOther
}

// coerceUrgency converts an arbitrary urgency value to an int clamped into
// [1,10], flooring fractional values. Non-numeric input yields def.
func coerceUrgency(v interface{}, def int) int {
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	n := int(math.Floor(f))
	if n < MinUrgency {
		return MinUrgency
	}
	if n > MaxUrgency {
		return MaxUrgency
	}
	return n
}

// coerceActions converts the suggested actions value to a string array. A
// scalar string becomes a single-element array; anything else unusable
// becomes the manual-review default.
func coerceActions(v interface{}) []string {
	switch actions := v.(type) {
	case string:
		if strings.TrimSpace(actions) != "" {
			return []string{actions}
		}
	case []interface{}:
		out := coerceStrings(v)
		if len(out) > 0 {
			return out
		}
	case []string:
		if len(actions) > 0 {
			return actions
		}
	}
	return []string{"Manual review required"}
}

// coerceStrings converts a decoded JSON array to []string, skipping
// non-string elements. Non-array input yields nil.
func coerceStrings(v interface{}) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []interface{}:
		var out []string
		for _, item := range arr {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// nonEmptyString extracts a non-empty string from a decoded JSON value.
func nonEmptyString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// asFloat extracts a float from the numeric types JSON decoding can produce.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func clampFloat(f, min, max float64) float64 {
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}
