package chronicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashita-ai/senate/internal/model"
)

// PostgresStore is an alternate Store backend for deployments that want the
// Chronicle's precedents and appeals durable in a shared database rather
// than a pair of JSON files. It preserves the same append-only, role-gated
// semantics: Chronicle still performs all the capability checking, and this
// type exposes no update/delete operation for either table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool. Callers are
// responsible for running the migrations in migrations/ before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// WritePrecedent inserts a precedent row. Writes are naturally serialized
// by virtue of the Chronicle's own mutex; a single INSERT here needs no
// additional locking.
func (s *PostgresStore) WritePrecedent(ctx context.Context, p model.PrecedentRecord) error {
	deliberation, err := json.Marshal(p.Deliberation)
	if err != nil {
		return err
	}
	verdict, err := json.Marshal(p.Verdict)
	if err != nil {
		return err
	}
	history, err := json.Marshal(p.AppealHistory)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO precedents (case_id, question, context_vector, deliberation, verdict, appeal_history)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.CaseID, p.Question, p.ContextVector, deliberation, verdict, history)
	return err
}

// WriteAppeal inserts an appeal row.
func (s *PostgresStore) WriteAppeal(ctx context.Context, a model.AppealRecord) error {
	origDeliberation, err := json.Marshal(a.OriginalDeliberation)
	if err != nil {
		return err
	}
	newDeliberation, err := json.Marshal(a.NewDeliberation)
	if err != nil {
		return err
	}
	expandedContext, err := json.Marshal(a.ExpandedContext)
	if err != nil {
		return err
	}
	constraintChanges, err := json.Marshal(a.ConstraintChanges)
	if err != nil {
		return err
	}
	citations, err := json.Marshal(a.ChronicleCitations)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO appeals (
			appeal_id, original_case_id, original_ruling, original_deliberation,
			expanded_context, constraint_changes, appellant_reason,
			new_deliberation, new_ruling, chronicle_citations,
			appeal_depth, liability_multiplier, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.AppealID, a.OriginalCaseID, a.OriginalRuling, origDeliberation,
		expandedContext, constraintChanges, a.AppellantReason,
		newDeliberation, a.NewRuling, citations,
		a.AppealDepth, a.LiabilityMultiplier, a.Status)
	return err
}

// AppendAppealHistory appends appealID to the named case's appeal_history
// JSON array via jsonb concatenation — still an append, never a field
// update of existing content.
func (s *PostgresStore) AppendAppealHistory(ctx context.Context, caseID, appealID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE precedents
		SET appeal_history = appeal_history || to_jsonb($2::text)
		WHERE case_id = $1
	`, caseID, appealID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("chronicle: case %q not found for appeal history append", caseID)
	}
	return nil
}

// AllPrecedents returns every precedent row in insertion order.
func (s *PostgresStore) AllPrecedents(ctx context.Context) ([]model.PrecedentRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT case_id, question, context_vector, deliberation, verdict, appeal_history
		FROM precedents ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PrecedentRecord
	for rows.Next() {
		p, err := scanPrecedent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetCaseByID returns the precedent with the given case ID, or nil if absent.
func (s *PostgresStore) GetCaseByID(ctx context.Context, caseID string) (*model.PrecedentRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT case_id, question, context_vector, deliberation, verdict, appeal_history
		FROM precedents WHERE case_id = $1
	`, caseID)
	p, err := scanPrecedent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// AppealsForCase returns every appeal filed against caseID, in filing order.
func (s *PostgresStore) AppealsForCase(ctx context.Context, caseID string) ([]model.AppealRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT appeal_id, original_case_id, original_ruling, original_deliberation,
		       expanded_context, constraint_changes, appellant_reason,
		       new_deliberation, new_ruling, chronicle_citations,
		       appeal_depth, liability_multiplier, status
		FROM appeals WHERE original_case_id = $1 ORDER BY id ASC
	`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AppealRecord
	for rows.Next() {
		var a model.AppealRecord
		var origDeliberation, newDeliberation, expandedContext, constraintChanges, citations []byte
		if err := rows.Scan(
			&a.AppealID, &a.OriginalCaseID, &a.OriginalRuling, &origDeliberation,
			&expandedContext, &constraintChanges, &a.AppellantReason,
			&newDeliberation, &a.NewRuling, &citations,
			&a.AppealDepth, &a.LiabilityMultiplier, &a.Status,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(origDeliberation, &a.OriginalDeliberation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(newDeliberation, &a.NewDeliberation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(expandedContext, &a.ExpandedContext); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(constraintChanges, &a.ConstraintChanges); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(citations, &a.ChronicleCitations); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrecedent(row rowScanner) (model.PrecedentRecord, error) {
	var p model.PrecedentRecord
	var deliberation, verdict, history []byte
	if err := row.Scan(&p.CaseID, &p.Question, &p.ContextVector, &deliberation, &verdict, &history); err != nil {
		return model.PrecedentRecord{}, err
	}
	if err := json.Unmarshal(deliberation, &p.Deliberation); err != nil {
		return model.PrecedentRecord{}, err
	}
	if err := json.Unmarshal(verdict, &p.Verdict); err != nil {
		return model.PrecedentRecord{}, err
	}
	if err := json.Unmarshal(history, &p.AppealHistory); err != nil {
		return model.PrecedentRecord{}, err
	}
	return p, nil
}
