package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	cterrors "github.com/openredress/casetriage/pkg/errors"
	"github.com/openredress/casetriage/pkg/logging"
)

// Repository is the PostgreSQL-backed Store. Escalation mutations are applied
// through a single conditional UPDATE whose WHERE clause re-checks the
// preconditions, so concurrent escalations of the same case cannot both
// succeed.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a new case repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "triage_repository")),
	}
}

const caseColumns = `
	id, status, priority, escalation_level, urgency_score,
	report_text,
	category, classification_tier, confidence, suggested_actions, reasoning,
	classified_at, revision,
	metadata,
	escalated_by, escalated_at,
	created_by, created_at, updated_at
`

// GetCase reads the current case state.
func (r *Repository) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)

	c, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("case %s: %w", id, cterrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying case %s: %w", id, err)
	}
	return c, nil
}

// CreateCase inserts the case and its classification decision record in one
// transaction.
func (r *Repository) CreateCase(ctx context.Context, c *Case, rec *DecisionRecord) error {
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	var (
		category   *string
		tier       *string
		confidence *float64
		actions    []byte
		reasoning  *string
	)
	if c.Classification != nil {
		cat := string(c.Classification.Category)
		t := string(c.Classification.Tier)
		conf := c.Classification.Confidence
		category, tier, confidence = &cat, &t, &conf
		if c.Classification.Reasoning != "" {
			reasoning = &c.Classification.Reasoning
		}
		actions, err = json.Marshal(c.Classification.SuggestedActions)
		if err != nil {
			return fmt.Errorf("marshaling suggested actions: %w", err)
		}
	} else {
		actions = []byte("[]")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO cases (
			id, status, priority, escalation_level, urgency_score,
			report_text,
			category, classification_tier, confidence, suggested_actions, reasoning,
			classified_at, revision,
			metadata,
			created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6,
			$7, $8, $9, $10, $11,
			$12, $13,
			$14,
			$15, $16, $17
		)
	`,
		c.ID, c.Status, c.Priority, c.EscalationLevel, c.UrgencyScore,
		c.ReportText,
		category, tier, confidence, actions, reasoning,
		c.ClassifiedAt, c.Revision,
		metadataJSON,
		c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting case: %w", err)
	}

	if err := insertDecision(ctx, tx, rec); err != nil {
		return fmt.Errorf("%w: %v", cterrors.ErrAuditWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing case insert: %w", err)
	}

	r.logger.Debug("case inserted",
		logging.F("case_id", c.ID.String()),
	)
	return nil
}

// ApplyEscalation applies the escalation mutation and the audit insert as one
// atomic unit. The UPDATE is conditioned on the case still being escalatable;
// zero rows affected means the precondition failed concurrently, and the case
// is re-read to classify the failure.
func (r *Repository) ApplyEscalation(ctx context.Context, up *EscalationUpdate, rec *DecisionRecord) (*Case, error) {
	metadataJSON, err := json.Marshal(up.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE cases SET
			status = $2,
			priority = $3,
			escalation_level = $4,
			urgency_score = $5,
			metadata = $6,
			escalated_by = $7,
			escalated_at = $8,
			updated_at = NOW()
		WHERE id = $1
		  AND status NOT IN ($9, $10, $11)
		RETURNING `+caseColumns,
		up.CaseID,
		StatusEscalated,
		up.Priority,
		up.Tier,
		up.UrgencyScore,
		metadataJSON,
		up.EscalatedBy,
		up.EscalatedAt,
		StatusEscalated, StatusClosed, StatusCompleted,
	)

	updated, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Condition failed: either the case vanished or a concurrent caller
		// won the race. Classify against current state.
		return nil, r.classifyConflict(ctx, up.CaseID)
	}
	if err != nil {
		return nil, fmt.Errorf("escalating case %s: %w", up.CaseID, err)
	}

	if err := insertDecision(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", cterrors.ErrAuditWriteFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing escalation: %w", err)
	}

	r.logger.Debug("escalation applied",
		logging.F("case_id", up.CaseID.String()),
		logging.F("priority", string(up.Priority)),
	)
	return updated, nil
}

// RecordDecision inserts a standalone decision record outside any case
// mutation.
func (r *Repository) RecordDecision(ctx context.Context, rec *DecisionRecord) error {
	if err := insertDecision(ctx, r.pool, rec); err != nil {
		return fmt.Errorf("%w: %v", cterrors.ErrAuditWriteFailed, err)
	}
	return nil
}

// ListDecisions returns the decision history for a case, oldest first.
func (r *Repository) ListDecisions(ctx context.Context, caseID uuid.UUID) ([]DecisionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, kind, input_summary, output_snapshot, confidence, model, actor, created_at
		FROM triage_decisions
		WHERE case_id = $1
		ORDER BY created_at
	`, caseID)
	if err != nil {
		return nil, fmt.Errorf("querying decisions for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		if err := rows.Scan(
			&rec.ID, &rec.CaseID, &rec.Kind, &rec.InputSummary,
			&rec.OutputSnapshot, &rec.Confidence, &rec.Model, &rec.Actor, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning decision record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// classifyConflict re-reads the case after a zero-row conditional update and
// returns the precise precondition error.
func (r *Repository) classifyConflict(ctx context.Context, caseID uuid.UUID) error {
	current, err := r.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	if current.Status == StatusEscalated {
		return fmt.Errorf("escalate case %s: %w", caseID, cterrors.ErrAlreadyEscalated)
	}
	return fmt.Errorf("escalate case %s in status %q: %w", caseID, current.Status, cterrors.ErrInvalidState)
}

// execer covers both pool and transaction for the audit insert.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertDecision(ctx context.Context, ex execer, rec *DecisionRecord) error {
	_, err := ex.Exec(ctx, `
		INSERT INTO triage_decisions (
			id, case_id, kind, input_summary, output_snapshot,
			confidence, model, actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID, rec.CaseID, rec.Kind, rec.InputSummary, rec.OutputSnapshot,
		rec.Confidence, rec.Model, rec.Actor, rec.CreatedAt,
	)
	return err
}

// scanCase scans a case row from either QueryRow or the RETURNING clause.
func scanCase(row pgx.Row) (*Case, error) {
	var (
		c           Case
		category    *string
		tier        *string
		confidence  *float64
		actionsJSON []byte
		reasoning   *string
		metaJSON    []byte
		escalatedBy *string
	)

	err := row.Scan(
		&c.ID, &c.Status, &c.Priority, &c.EscalationLevel, &c.UrgencyScore,
		&c.ReportText,
		&category, &tier, &confidence, &actionsJSON, &reasoning,
		&c.ClassifiedAt, &c.Revision,
		&metaJSON,
		&escalatedBy, &c.EscalatedAt,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category != nil && tier != nil && confidence != nil {
		cls := &Classification{
			Category:   Category(*category),
			Tier:       EscalationTier(*tier),
			Confidence: *confidence,
		}
		if reasoning != nil {
			cls.Reasoning = *reasoning
		}
		if len(actionsJSON) > 0 {
			if err := json.Unmarshal(actionsJSON, &cls.SuggestedActions); err != nil {
				return nil, fmt.Errorf("unmarshaling suggested actions: %w", err)
			}
		}
		cls.UrgencyScore = c.UrgencyScore
		c.Classification = cls
	}

	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	} else {
		c.Metadata = NewMetadata()
	}

	if escalatedBy != nil {
		c.EscalatedBy = *escalatedBy
	}

	return &c, nil
}

// Compile-time interface check.
var _ Store = (*Repository)(nil)
