package inference

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openredress/casetriage/pkg/triage"
)

// classificationPromptHeader instructs the model on the task and the domain
// sensitivity of incident reports. The template is deterministic: the same
// report and context always render the same prompt.
const classificationPromptHeader = `You are a triage analyst for a civic incident reporting service.
Reports may describe corruption, abuse of authority, or other sensitive matters.
Treat the report as confidential, do not speculate beyond its contents, and do
not include any text outside the JSON object described below.

Classify the incident report into exactly one category from this list:
`

const classificationPromptSchema = `
Respond with a single JSON object, no surrounding prose or markdown:
{
  "category": "<one category from the list>",
  "escalation_tier": "<basic|priority|urgent>",
  "confidence": <number 0.0-1.0>,
  "urgency_score": <integer 1-10>,
  "suggested_actions": ["<short imperative action>", ...],
  "reasoning": "<one or two sentences>"
}
`

const escalationPromptHeader = `You are a triage analyst reviewing whether an incident case warrants
escalation to a higher attention tier. Weigh severity, urgency, and risk to
the reporter. Do not include any text outside the JSON object described below.
`

const escalationPromptSchema = `
Respond with a single JSON object, no surrounding prose or markdown:
{
  "should_escalate": <true|false>,
  "confidence": <number 0.0-1.0>,
  "reasons": ["<reason>", ...],
  "suggested_priority": "<normal|high|critical>",
  "urgency_score": <integer 1-10>,
  "risk_factors": ["<risk factor>", ...],
  "recommendation": "<one or two sentences>"
}
`

// buildClassificationPrompt renders the classification prompt for a report
// and optional structured context.
func buildClassificationPrompt(text string, extra map[string]string) string {
	var b strings.Builder
	b.WriteString(classificationPromptHeader)
	for _, cat := range triage.Categories {
		fmt.Fprintf(&b, "- %s\n", cat)
	}

	if len(extra) > 0 {
		b.WriteString("\nAdditional context:\n")
		// Sorted for a deterministic prompt.
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, extra[k])
		}
	}

	b.WriteString("\nIncident report:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n")
	b.WriteString(classificationPromptSchema)
	return b.String()
}

// buildEscalationPrompt renders the escalation analysis prompt for a case
// snapshot.
func buildEscalationPrompt(c *triage.Case) string {
	var b strings.Builder
	b.WriteString(escalationPromptHeader)

	b.WriteString("\nCase snapshot:\n")
	fmt.Fprintf(&b, "- status: %s\n", c.Status)
	fmt.Fprintf(&b, "- priority: %s\n", c.Priority)
	fmt.Fprintf(&b, "- escalation level: %s\n", c.EscalationLevel)
	fmt.Fprintf(&b, "- urgency score: %d\n", c.UrgencyScore)
	if c.Classification != nil {
		fmt.Fprintf(&b, "- category: %s\n", c.Classification.Category)
		fmt.Fprintf(&b, "- classification confidence: %.2f\n", c.Classification.Confidence)
	}

	b.WriteString("\nOriginal report:\n\"\"\"\n")
	b.WriteString(c.ReportText)
	b.WriteString("\n\"\"\"\n")
	b.WriteString(escalationPromptSchema)
	return b.String()
}
