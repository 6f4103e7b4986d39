package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer for triage operations.
const TracerName = "casetriage"

// Span attribute keys
const (
	AttrCaseID       = "case_id"
	AttrActor        = "actor"
	AttrModel        = "model"
	AttrCategory     = "category"
	AttrTier         = "escalation_tier"
	AttrVerdict      = "verdict"
	AttrConfidence   = "confidence"
	AttrUrgencyScore = "urgency_score"
	AttrFallback     = "fallback"
	AttrOperation    = "operation"
)

// Span names
const (
	SpanClassify   = "triage.classify"
	SpanIntake     = "triage.intake"
	SpanEscalate   = "triage.escalate"
	SpanLLMCall    = "triage.llm_call"
	SpanStoreWrite = "triage.store_write"
)

// Tracer provides distributed tracing for triage operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new triage tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartClassifySpan starts a span for a classification request.
func (t *Tracer) StartClassifySpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanClassify)
}

// StartIntakeSpan starts a root span for report intake.
func (t *Tracer) StartIntakeSpan(ctx context.Context, actor string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanIntake,
		trace.WithAttributes(
			attribute.String(AttrActor, actor),
		),
	)
}

// StartEscalateSpan starts a root span for an escalation request.
func (t *Tracer) StartEscalateSpan(ctx context.Context, caseID, actor string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanEscalate,
		trace.WithAttributes(
			attribute.String(AttrCaseID, caseID),
			attribute.String(AttrActor, actor),
		),
	)
}

// StartLLMSpan starts a span for an outbound inference call.
func (t *Tracer) StartLLMSpan(ctx context.Context, model, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanLLMCall,
		trace.WithAttributes(
			attribute.String(AttrModel, model),
			attribute.String(AttrOperation, operation),
		),
	)
}

// RecordError marks the span as failed and records the error.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
