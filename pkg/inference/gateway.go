package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/logging"
	"github.com/openredress/casetriage/pkg/observability"
	"github.com/openredress/casetriage/pkg/triage"
)

// CompletionClient is the outbound call the gateway depends on.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Gateway turns triage requests into prompts, sends them to the inference
// service, and parses the completion back into a raw JSON object for the
// validator. It either returns a decodable object or an error; it never
// passes malformed output through as typed data.
type Gateway struct {
	client  CompletionClient
	logger  logging.Logger
	metrics *observability.TriageMetrics
	tracer  *observability.Tracer
}

// GatewayOption configures the gateway.
type GatewayOption func(*Gateway)

// WithMetrics attaches Prometheus metrics to the gateway.
func WithMetrics(m *observability.TriageMetrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer to the gateway.
func WithTracer(t *observability.Tracer) GatewayOption {
	return func(g *Gateway) { g.tracer = t }
}

// NewGateway creates a new inference gateway.
func NewGateway(client CompletionClient, logger logging.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client: client,
		logger: logger.With(logging.F("component", "inference_gateway")),
		tracer: observability.NewTracer(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the model identifier used for audit records.
func (g *Gateway) Model() string {
	return g.client.Model()
}

// Classify sends a classification prompt for the report text and returns the
// decoded raw object.
func (g *Gateway) Classify(ctx context.Context, text string, extra map[string]string) (map[string]interface{}, error) {
	return g.call(ctx, "classify", buildClassificationPrompt(text, extra))
}

// AnalyzeEscalation sends an escalation analysis prompt for the case snapshot
// and returns the decoded raw object.
func (g *Gateway) AnalyzeEscalation(ctx context.Context, c *triage.Case) (map[string]interface{}, error) {
	return g.call(ctx, "analyze_escalation", buildEscalationPrompt(c))
}

// call performs one completion round trip and parses the result.
func (g *Gateway) call(ctx context.Context, operation, prompt string) (map[string]interface{}, error) {
	ctx, span := g.tracer.StartLLMSpan(ctx, g.client.Model(), operation)
	defer span.End()

	start := time.Now()
	completion, err := g.client.Complete(ctx, prompt)
	elapsed := time.Since(start)

	if g.metrics != nil {
		g.metrics.InferenceLatencySeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
	}

	if err != nil {
		if g.metrics != nil {
			g.metrics.InferenceFailuresTotal.WithLabelValues(operation, "unavailable").Inc()
		}
		observability.RecordError(span, err)
		return nil, err
	}

	raw, err := parseObject(completion)
	if err != nil {
		if g.metrics != nil {
			g.metrics.InferenceFailuresTotal.WithLabelValues(operation, "malformed").Inc()
		}
		observability.RecordError(span, err)
		g.logger.Warn("inference returned malformed output",
			logging.F("operation", operation),
			logging.Err(err),
		)
		return nil, err
	}

	g.logger.Debug("inference call completed",
		logging.F("operation", operation),
		logging.F("latency", elapsed),
	)
	return raw, nil
}

// parseObject strips known wrapper artifacts from a completion and decodes it
// as a single JSON object. Malformed output is a validation failure, not a
// crash.
func parseObject(completion string) (map[string]interface{}, error) {
	cleaned := stripEnvelope(completion)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: completion is not a JSON object: %v", cterrors.ErrValidation, err)
	}
	return raw, nil
}

// stripEnvelope removes markdown code fences and surrounding noise that
// models commonly wrap JSON output in.
func stripEnvelope(s string) string {
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "```") {
		// Drop the opening fence line ("```" or "```json").
		if idx := strings.Index(trimmed, "\n"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		} else {
			trimmed = strings.TrimPrefix(trimmed, "```")
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		return strings.TrimSpace(trimmed)
	}

	// Some models prepend prose before the object; recover the outermost
	// braces when present.
	if start := strings.Index(trimmed, "{"); start > 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return trimmed[start : end+1]
		}
	}
	return trimmed
}
