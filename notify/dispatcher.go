package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fightleague/metrics"
)

// Sink receives domain events. Implementations push to whatever real-time
// layer the platform uses; delivery failures are retried a bounded number of
// times and never block the engine.
type Sink interface {
	Deliver(ctx context.Context, topic string, payload []byte) error
}

// LogSink writes events to the structured log. Used as the default sink and
// in development environments.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(_ context.Context, topic string, payload []byte) error {
	s.Logger.Info("outbox event", "topic", topic, "payload", string(payload))
	return nil
}

// Dispatcher drains pending outbox rows and delivers them to the sink.
// Rows are claimed with SKIP LOCKED so multiple dispatchers can run safely.
type Dispatcher struct {
	pool        *pgxpool.Pool
	sink        Sink
	logger      *slog.Logger
	batchSize   int
	interval    time.Duration
	maxAttempts int
}

func NewDispatcher(pool *pgxpool.Pool, sink Sink, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pool:        pool,
		sink:        sink,
		logger:      logger,
		batchSize:   25,
		interval:    2 * time.Second,
		maxAttempts: 5,
	}
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error("outbox dispatch failed", "error", err)
			}
		}
	}
}

// DispatchOnce claims up to one batch of pending rows, attempts delivery,
// and records the result. It returns the number of rows delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("notify: begin dispatch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, topic, payload, attempts
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("notify: claim pending: %w", err)
	}

	batch := make([]Message, 0, d.batchSize)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Attempts); err != nil {
			rows.Close()
			return 0, fmt.Errorf("notify: scan outbox row: %w", err)
		}
		batch = append(batch, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("notify: iterate outbox rows: %w", err)
	}

	delivered := 0
	for _, m := range batch {
		if err := d.sink.Deliver(ctx, m.Topic, m.Payload); err != nil {
			metrics.ObserveOutboxDispatch("error")
			d.logger.Warn("event delivery failed", "topic", m.Topic, "id", m.ID, "attempts", m.Attempts+1, "error", err)

			status := StatusPending
			if m.Attempts+1 >= d.maxAttempts {
				status = StatusDead
				metrics.ObserveOutboxDispatch("dead")
			}
			if _, err := tx.Exec(ctx, `
				UPDATE outbox SET attempts = attempts + 1, status = $2::outbox_status, updated_at = now() WHERE id = $1
			`, m.ID, status); err != nil {
				return delivered, fmt.Errorf("notify: record failed attempt: %w", err)
			}
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE outbox SET status = 'processed', attempts = attempts + 1, updated_at = now() WHERE id = $1
		`, m.ID); err != nil {
			return delivered, fmt.Errorf("notify: mark processed: %w", err)
		}
		metrics.ObserveOutboxDispatch("ok")
		delivered++
	}

	if err := tx.Commit(ctx); err != nil {
		return delivered, fmt.Errorf("notify: commit dispatch: %w", err)
	}
	return delivered, nil
}
