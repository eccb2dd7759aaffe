package progress

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresRepository stores progress in the progress and completion_records tables.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed progress repository.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Load(ctx context.Context, learnerID string) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := &Progress{Completed: map[string]CompletionRecord{}}
	err := r.pool.QueryRow(ctx,
		`SELECT learner_id::text, learner_name, current_module_id, updated_at
		 FROM progress
		 WHERE learner_id = $1::uuid`,
		learnerID,
	).Scan(&p.LearnerID, &p.LearnerName, &p.CurrentModuleID, &p.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT module_id, score, completed_at
		 FROM completion_records
		 WHERE learner_id = $1::uuid`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query completion records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec CompletionRecord
		if err := rows.Scan(&rec.ModuleID, &rec.Score, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion record: %w", err)
		}
		p.Completed[rec.ModuleID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completion records: %w", err)
	}

	return p, nil
}

// Save upserts the progress row and replaces its completion records in one
// transaction.
func (r *PostgresRepository) Save(ctx context.Context, p Progress) (err error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		upsertProgressStmt = `INSERT INTO progress (learner_id, learner_name, current_module_id, updated_at)
			VALUES ($1::uuid, $2, $3, $4)
			ON CONFLICT (learner_id) DO UPDATE
			SET learner_name = EXCLUDED.learner_name,
			    current_module_id = EXCLUDED.current_module_id,
			    updated_at = EXCLUDED.updated_at`
		deleteRecordsStmt = `DELETE FROM completion_records WHERE learner_id = $1::uuid`
		insertRecordStmt  = `INSERT INTO completion_records (learner_id, module_id, score, completed_at)
			VALUES ($1::uuid, $2, $3, $4)`
	)

	if _, err = tx.Exec(ctx, upsertProgressStmt, p.LearnerID, p.LearnerName, p.CurrentModuleID, updatedAt); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	if _, err = tx.Exec(ctx, deleteRecordsStmt, p.LearnerID); err != nil {
		return fmt.Errorf("clear completion records: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range p.Completed {
		batch.Queue(insertRecordStmt, p.LearnerID, rec.ModuleID, rec.Score, rec.CompletedAt)
	}
	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert completion records: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) List(ctx context.Context) ([]Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT p.learner_id::text, p.learner_name, p.current_module_id, p.updated_at,
		        c.module_id, c.score, c.completed_at
		 FROM progress p
		 LEFT JOIN completion_records c ON c.learner_id = p.learner_id
		 ORDER BY p.learner_name, p.learner_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []Progress
	index := map[string]int{}
	for rows.Next() {
		var p Progress
		var moduleID *string
		var score *int
		var completedAt *time.Time
		if err := rows.Scan(&p.LearnerID, &p.LearnerName, &p.CurrentModuleID, &p.UpdatedAt,
			&moduleID, &score, &completedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}

		i, seen := index[p.LearnerID]
		if !seen {
			p.Completed = map[string]CompletionRecord{}
			out = append(out, p)
			i = len(out) - 1
			index[p.LearnerID] = i
		}
		if moduleID != nil && score != nil && completedAt != nil {
			out[i].Completed[*moduleID] = CompletionRecord{
				ModuleID:    *moduleID,
				Score:       *score,
				CompletedAt: *completedAt,
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}

	return out, nil
}
