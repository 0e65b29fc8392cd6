package fight

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrRecordNotFound signals that no fight record matches the lookup.
	ErrRecordNotFound = errors.New("fight: record not found")
	// ErrScheduledNotFound signals that the scheduled fight does not exist.
	ErrScheduledNotFound = errors.New("fight: scheduled fight not found")
)

// Repository handles data access for fight records and scheduled fights.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, fighter_id, opponent_name, result::text, method::text, round,
	fought_at, weight_class, points_earned, created_at`

// InsertRecord appends a fight record inside the caller's transaction.
// Records are never updated or deleted afterwards.
func (r *Repository) InsertRecord(ctx context.Context, tx pgx.Tx, params CreateRecordParams) (Record, error) {
	const insertSQL = `
		INSERT INTO fight_records (fighter_id, opponent_name, result, method, round, fought_at, weight_class, points_earned)
		VALUES ($1, $2, $3::fight_result, $4::fight_method, $5, $6, NULLIF($7, ''), $8)
		RETURNING ` + recordColumns

	rec, err := scanRecord(tx.QueryRow(ctx, insertSQL,
		params.FighterID,
		params.OpponentName,
		params.Result,
		params.Method,
		params.Round,
		params.FoughtAt,
		params.WeightClass,
		params.PointsEarned,
	))
	if err != nil {
		return Record{}, fmt.Errorf("fight: insert record: %w", err)
	}
	return rec, nil
}

// ListForFighter returns the fighter's records, most recent first.
func (r *Repository) ListForFighter(ctx context.Context, fighterID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM fight_records
		WHERE fighter_id = $1
		ORDER BY fought_at DESC, created_at DESC
		LIMIT $2
	`, fighterID, limit)
	if err != nil {
		return nil, fmt.Errorf("fight: list records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecordRows(rows)
		if err != nil {
			return nil, fmt.Errorf("fight: scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fight: iterate records: %w", err)
	}
	return out, nil
}

const scheduledColumns = `id, fighter_a_id, fighter_b_id, status::text, weight_class, scheduled_at, created_at, updated_at`

// GetScheduled retrieves a scheduled fight by identifier.
func (r *Repository) GetScheduled(ctx context.Context, id string) (ScheduledFight, error) {
	var f ScheduledFight
	err := r.pool.QueryRow(ctx, `SELECT `+scheduledColumns+` FROM scheduled_fights WHERE id = $1`, id).
		Scan(&f.ID, &f.FighterAID, &f.FighterBID, &f.Status, &f.WeightClass, &f.ScheduledAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScheduledFight{}, ErrScheduledNotFound
		}
		return ScheduledFight{}, fmt.Errorf("fight: get scheduled: %w", err)
	}
	return f, nil
}

// MarkCompleted sets the scheduled fight status to completed inside the
// caller's transaction. Completing an already-completed fight is a no-op.
func (r *Repository) MarkCompleted(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE scheduled_fights
		SET status = 'completed', updated_at = now()
		WHERE id = $1 AND status <> 'completed'
	`, id)
	if err != nil {
		return fmt.Errorf("fight: mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM scheduled_fights WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("fight: verify scheduled: %w", err)
		}
		if !exists {
			return ErrScheduledNotFound
		}
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.FighterID,
		&rec.OpponentName,
		&rec.Result,
		&rec.Method,
		&rec.Round,
		&rec.FoughtAt,
		&rec.WeightClass,
		&rec.PointsEarned,
		&rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func scanRecordRows(rows pgx.Rows) (Record, error) {
	var rec Record
	err := rows.Scan(
		&rec.ID,
		&rec.FighterID,
		&rec.OpponentName,
		&rec.Result,
		&rec.Method,
		&rec.Round,
		&rec.FoughtAt,
		&rec.WeightClass,
		&rec.PointsEarned,
		&rec.CreatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
