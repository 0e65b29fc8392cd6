package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Topics published by the engine. Downstream delivery is best-effort; the
// authoritative state is always the row the event describes.
const (
	TopicTierChanged      = "fighter.tier_changed"
	TopicFighterSuspended = "fighter.suspended"
	TopicFightReported    = "fight.reported"
	TopicDisputeOpened    = "dispute.opened"
	TopicDisputeInReview  = "dispute.in_review"
	TopicDisputeResolved  = "dispute.resolved"
)

// Status values for outbox rows.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusDead      = "dead"
)

// Message represents a transactional outbox entry.
type Message struct {
	ID        string
	Topic     string
	Payload   []byte
	Status    string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Writer appends outbox rows inside the caller's transaction so domain
// writes and their notification events commit atomically.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Enqueue stores an event for later delivery by the dispatcher.
func (w *Writer) Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	if topic == "" {
		return fmt.Errorf("notify: empty topic")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`, topic, body); err != nil {
		return fmt.Errorf("notify: enqueue outbox: %w", err)
	}
	return nil
}
