package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Reconciler repairs drift between the eventually-consistent outbox feed and
// the authoritative tables. Pending rows that linger past the stale window
// are re-checked against their source entity: rows whose entity vanished
// (bulk deletes under the feed) are marked dead, the rest get their attempt
// counter reset so the dispatcher picks them up again.
type Reconciler struct {
	pool       *pgxpool.Pool
	logger     *slog.Logger
	staleAfter time.Duration
}

func NewReconciler(pool *pgxpool.Pool, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		pool:       pool,
		logger:     logger,
		staleAfter: 5 * time.Minute,
	}
}

func (r *Reconciler) WithStaleWindow(window time.Duration) *Reconciler {
	r.staleAfter = window
	return r
}

// Run reconciles on a fixed cadence until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			requeued, dead, err := r.ReconcileOnce(ctx)
			if err != nil {
				r.logger.Error("outbox reconcile failed", "error", err)
				continue
			}
			if requeued > 0 || dead > 0 {
				r.logger.Info("outbox reconciled", "requeued", requeued, "dead", dead)
			}
		}
	}
}

// ReconcileOnce processes all stale pending rows. It returns how many rows
// were requeued and how many were marked dead.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (requeued, dead int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("notify: begin reconcile tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, topic, payload
		FROM outbox
		WHERE status = 'pending' AND updated_at < now() - $1::interval
		FOR UPDATE SKIP LOCKED
	`, r.staleAfter.String())
	if err != nil {
		return 0, 0, fmt.Errorf("notify: select stale rows: %w", err)
	}

	stale := make([]Message, 0, 16)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("notify: scan stale row: %w", err)
		}
		stale = append(stale, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("notify: iterate stale rows: %w", err)
	}

	for _, m := range stale {
		query, key, ok := sourceCheck(m.Topic)
		exists := true
		if ok {
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (`+query+`)`, key, m.Payload).Scan(&exists); err != nil {
				return requeued, dead, fmt.Errorf("notify: check source for %s: %w", m.Topic, err)
			}
		}

		if !exists {
			if _, err := tx.Exec(ctx,
				`UPDATE outbox SET status = 'dead', updated_at = now() WHERE id = $1`, m.ID); err != nil {
				return requeued, dead, fmt.Errorf("notify: mark dead: %w", err)
			}
			r.logger.Warn("outbox source entity gone, dropping event", "topic", m.Topic, "id", m.ID)
			dead++
			continue
		}

		if _, err := tx.Exec(ctx,
			`UPDATE outbox SET attempts = 0, updated_at = now() WHERE id = $1`, m.ID); err != nil {
			return requeued, dead, fmt.Errorf("notify: requeue: %w", err)
		}
		requeued++
	}

	if err := tx.Commit(ctx); err != nil {
		return requeued, dead, fmt.Errorf("notify: commit reconcile: %w", err)
	}
	return requeued, dead, nil
}

// sourceCheck maps a topic to the authoritative-existence subquery for its
// source entity. The payload key names the id column inside the JSON body.
// Topics without a known source are assumed to still exist.
func sourceCheck(topic string) (query, payloadKey string, ok bool) {
	switch {
	case strings.HasPrefix(topic, "fighter."):
		return `SELECT 1 FROM fighters WHERE id::text = $2::jsonb->>$1`, "fighter_id", true
	case strings.HasPrefix(topic, "dispute."):
		return `SELECT 1 FROM disputes WHERE id::text = $2::jsonb->>$1`, "dispute_id", true
	case strings.HasPrefix(topic, "fight."):
		return `SELECT 1 FROM fight_records WHERE id::text = $2::jsonb->>$1`, "record_id", true
	}
	return "", "", false
}
