package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/logging"
	"github.com/openredress/casetriage/pkg/observability"
)

// Report length bounds enforced at intake.
const (
	MinReportLength = 10
	MaxReportLength = 10000
)

// inputSummaryLength bounds the report excerpt stored on decision records.
const inputSummaryLength = 200

// Store is the persistence boundary of the engine. Implementations must make
// EscalateCase's conditional write and the audit insert one atomic unit: an
// unaudited state change is invalid.
type Store interface {
	// GetCase returns the case or ErrNotFound.
	GetCase(ctx context.Context, id uuid.UUID) (*Case, error)

	// CreateCase inserts a new case together with its classification
	// decision record in one transaction.
	CreateCase(ctx context.Context, c *Case, rec *DecisionRecord) error

	// ApplyEscalation applies the escalation mutation conditionally on the
	// case still being escalatable, inserts the decision record, and returns
	// the updated case, all in one transaction. When the condition fails it
	// returns ErrAlreadyEscalated, ErrInvalidState, or ErrNotFound according
	// to the freshly-read case state.
	ApplyEscalation(ctx context.Context, up *EscalationUpdate, rec *DecisionRecord) (*Case, error)

	// RecordDecision inserts a standalone decision record (used for rejected
	// escalations, which mutate nothing else).
	RecordDecision(ctx context.Context, rec *DecisionRecord) error
}

// EscalationUpdate is the mutation ApplyEscalation writes.
type EscalationUpdate struct {
	CaseID       uuid.UUID
	Priority     CasePriority
	Tier         EscalationTier
	UrgencyScore int
	EscalatedBy  string
	EscalatedAt  time.Time
	Metadata     Metadata
}

// InferenceGateway is the outbound inference boundary. It returns either a
// decoded raw object or an error; validation happens in this package.
type InferenceGateway interface {
	Classify(ctx context.Context, text string, extra map[string]string) (map[string]interface{}, error)
	AnalyzeEscalation(ctx context.Context, c *Case) (map[string]interface{}, error)
	Model() string
}

// ClassificationCache is an optional read-through cache for classifications.
// Implementations must degrade to a miss on any backend failure.
type ClassificationCache interface {
	Get(ctx context.Context, text string) (*Classification, bool)
	Put(ctx context.Context, text string, cls *Classification)
}

// Service is the triage engine's caller boundary. It is stateless between
// invocations; all shared state lives in the external store.
type Service struct {
	store   Store
	gateway InferenceGateway
	cache   ClassificationCache
	metrics *observability.TriageMetrics
	tracer  *observability.Tracer
	logger  logging.Logger
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithCache attaches a classification cache.
func WithCache(c ClassificationCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.TriageMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates the triage service.
func NewService(store Store, gateway InferenceGateway, logger logging.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		gateway: gateway,
		tracer:  observability.NewTracer(),
		logger:  logger.With(logging.F("component", "triage_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClassifyText classifies a free-text incident report. The returned bool
// reports whether the fallback classification was substituted. Inference
// failures and malformed output are recovered locally; the only surfaced
// error is input validation.
func (s *Service) ClassifyText(ctx context.Context, text string, extra map[string]string) (*Classification, bool, error) {
	ctx, span := s.tracer.StartClassifySpan(ctx)
	defer span.End()

	if len(text) < MinReportLength || len(text) > MaxReportLength {
		return nil, false, fmt.Errorf("%w: report text must be between %d and %d characters",
			cterrors.ErrValidation, MinReportLength, MaxReportLength)
	}

	if s.cache != nil {
		if cls, ok := s.cache.Get(ctx, text); ok {
			s.countClassification(observability.ClassificationSourceCache, cls)
			return cls, false, nil
		}
	}

	raw, err := s.gateway.Classify(ctx, text, extra)
	if err != nil {
		// ClassificationUnavailable and ValidationFailed both recover to the
		// fallback; neither is surfaced to the caller.
		s.logger.Warn("classification degraded to fallback", logging.Err(err))
		cls := FallbackClassification()
		s.countFallback("classification")
		s.countClassification(observability.ClassificationSourceFallback, cls)
		span.SetAttributes(attribute.Bool(observability.AttrFallback, true))
		return cls, true, nil
	}

	cls, usedFallback := ValidateClassification(raw)
	if usedFallback {
		s.logger.Warn("inference output failed validation, using fallback")
		s.countFallback("classification")
		s.countClassification(observability.ClassificationSourceFallback, cls)
		span.SetAttributes(attribute.Bool(observability.AttrFallback, true))
		return cls, true, nil
	}

	if s.cache != nil {
		s.cache.Put(ctx, text, cls)
	}
	s.countClassification(observability.ClassificationSourceModel, cls)
	span.SetAttributes(
		attribute.String(observability.AttrCategory, string(cls.Category)),
		attribute.Float64(observability.AttrConfidence, cls.Confidence),
	)
	return cls, false, nil
}

// IntakeReport classifies a report and creates a case carrying the resulting
// classification, writing the classification decision record in the same
// transaction. Degraded classification (fallback) still creates the case and
// still writes the record, so degraded operation stays observable.
func (s *Service) IntakeReport(ctx context.Context, text, actor string, extra map[string]string) (*Case, error) {
	ctx, span := s.tracer.StartIntakeSpan(ctx, actor)
	defer span.End()

	cls, usedFallback, err := s.ClassifyText(ctx, text, extra)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Case{
		ID:              uuid.New(),
		Status:          StatusPending,
		Priority:        PriorityNormal,
		EscalationLevel: TierBasic,
		UrgencyScore:    cls.UrgencyScore,
		ReportText:      text,
		Classification:  cls,
		ClassifiedAt:    &now,
		Revision:        1,
		Metadata:        NewMetadata(),
		CreatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	rec, err := s.decisionRecord(c.ID, DecisionClassification, text, cls, cls.Confidence, actor)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateCase(ctx, c, rec); err != nil {
		return nil, fmt.Errorf("creating case: %w", err)
	}

	s.logger.Info("case created",
		logging.F("case_id", c.ID.String()),
		logging.F("category", string(cls.Category)),
		logging.F("confidence", cls.Confidence),
		logging.F("fallback", usedFallback),
	)
	return c, nil
}

// EscalateCase runs the escalation pipeline for a case: precondition checks,
// AI analysis, the policy decision table, then either a denial or one atomic
// mutation plus audit write.
func (s *Service) EscalateCase(ctx context.Context, caseID uuid.UUID, reason string, requestedPriority *CasePriority, actor string) (*EscalationOutcome, error) {
	ctx, span := s.tracer.StartEscalateSpan(ctx, caseID.String(), actor)
	defer span.End()

	if reason == "" {
		return nil, fmt.Errorf("%w: escalation reason is required", cterrors.ErrValidation)
	}

	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	// Preconditions are checked against freshly-read state here and enforced
	// again inside the store's conditional write, so concurrent escalations
	// of the same case lose deterministically.
	if c.Status == StatusEscalated {
		return nil, fmt.Errorf("escalate case %s: %w", caseID, cterrors.ErrAlreadyEscalated)
	}
	if c.Status.Terminal() {
		return nil, fmt.Errorf("escalate case %s in status %q: %w", caseID, c.Status, cterrors.ErrInvalidState)
	}

	analysis := s.analyzeCase(ctx, c)
	decision := DecideEscalation(analysis, requestedPriority, reason)

	if s.metrics != nil {
		s.metrics.EscalationVerdictsTotal.WithLabelValues(string(decision.Verdict)).Inc()
	}
	span.SetAttributes(
		attribute.String(observability.AttrVerdict, string(decision.Verdict)),
		attribute.Float64(observability.AttrConfidence, analysis.Confidence),
	)

	rec, err := s.decisionRecord(caseID, DecisionEscalation, c.ReportText, map[string]interface{}{
		"analysis":       analysis,
		"verdict":        decision.Verdict,
		"final_priority": decision.FinalPriority,
		"tier":           decision.Tier,
		"reason":         decision.Reason,
	}, analysis.Confidence, actor)
	if err != nil {
		return nil, err
	}

	if decision.Verdict == VerdictReject {
		// Rejections are audited too; without the record the denial is
		// invisible and the operation fails.
		if err := s.store.RecordDecision(ctx, rec); err != nil {
			return nil, fmt.Errorf("%w: %v", cterrors.ErrAuditWriteFailed, err)
		}
		if s.metrics != nil {
			s.metrics.EscalationDeniedTotal.Inc()
		}
		s.logger.Info("escalation denied by policy",
			logging.F("case_id", caseID.String()),
			logging.F("confidence", analysis.Confidence),
		)
		return nil, cterrors.NewEscalationDenied(analysis.Recommendation, analysis.Confidence)
	}

	escRecord := &EscalationRecord{
		Reason:        decision.Reason,
		Verdict:       decision.Verdict,
		FinalPriority: decision.FinalPriority,
		Tier:          decision.Tier,
		Analysis:      *analysis,
		EscalatedBy:   actor,
		EscalatedAt:   time.Now().UTC(),
	}

	update := &EscalationUpdate{
		CaseID:       caseID,
		Priority:     decision.FinalPriority,
		Tier:         decision.Tier,
		UrgencyScore: decision.UrgencyScore,
		EscalatedBy:  actor,
		EscalatedAt:  escRecord.EscalatedAt,
		Metadata:     MergeEscalation(c.Metadata, escRecord),
	}

	updated, err := s.store.ApplyEscalation(ctx, update, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("case escalated",
		logging.F("case_id", caseID.String()),
		logging.F("verdict", string(decision.Verdict)),
		logging.F("priority", string(decision.FinalPriority)),
		logging.F("tier", string(decision.Tier)),
	)
	return &EscalationOutcome{
		Case:     updated,
		Analysis: analysis,
		Approved: true,
	}, nil
}

// GetCase returns the case or ErrNotFound.
func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.store.GetCase(ctx, id)
}

// analyzeCase obtains a validated escalation analysis, substituting the
// fallback on any inference failure. A failed call never surfaces an error;
// the fallback routes the policy to the manual override branch.
func (s *Service) analyzeCase(ctx context.Context, c *Case) *EscalationAnalysis {
	raw, err := s.gateway.AnalyzeEscalation(ctx, c)
	if err != nil {
		s.logger.Warn("escalation analysis degraded to fallback",
			logging.F("case_id", c.ID.String()),
			logging.Err(err),
		)
		s.countFallback("escalation_analysis")
		return FallbackAnalysis()
	}

	analysis, usedFallback := ValidateAnalysis(raw)
	if usedFallback {
		s.logger.Warn("escalation analysis failed validation, using fallback",
			logging.F("case_id", c.ID.String()),
		)
		s.countFallback("escalation_analysis")
	}
	return analysis
}

// decisionRecord builds an audit record with a bounded input excerpt and the
// JSON snapshot of the decision output.
func (s *Service) decisionRecord(caseID uuid.UUID, kind DecisionKind, input string, output interface{}, confidence float64, actor string) (*DecisionRecord, error) {
	snapshot, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("marshaling decision snapshot: %w", err)
	}
	return &DecisionRecord{
		ID:             uuid.New(),
		CaseID:         caseID,
		Kind:           kind,
		InputSummary:   truncate(input, inputSummaryLength),
		OutputSnapshot: snapshot,
		Confidence:     confidence,
		Model:          s.gateway.Model(),
		Actor:          actor,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (s *Service) countClassification(source string, cls *Classification) {
	if s.metrics == nil {
		return
	}
	s.metrics.ClassificationsTotal.WithLabelValues(source, string(cls.Category)).Inc()
	s.metrics.ClassificationScore.WithLabelValues(source).Observe(cls.Confidence)
}

func (s *Service) countFallback(kind string) {
	if s.metrics == nil {
		return
	}
	s.metrics.FallbacksTotal.WithLabelValues(kind).Inc()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
