package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fightleague/metrics"
)

// ErrFighterNotFound is returned when the fighter row does not exist.
var ErrFighterNotFound = errors.New("progression: fighter not found")

// Transition classifies a tier change produced by applying an outcome.
type Transition string

const (
	TransitionNone      Transition = ""
	TransitionPromotion Transition = "promotion"
	TransitionDemotion  Transition = "demotion"
)

// demotionStreak is the number of most-recent consecutive losses that forces
// a one-band demotion regardless of the resulting point total.
const demotionStreak = 5

// OutboxWriter abstracts the transactional outbox used for tier-change events.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Engine applies point deltas to fighters and maintains tier standing. All
// writes happen inside the caller's transaction so that points, tier, and
// tier history commit as one unit.
type Engine struct {
	outbox OutboxWriter
}

func NewEngine(outbox OutboxWriter) *Engine {
	return &Engine{outbox: outbox}
}

// Outcome describes the result of applying a point delta.
type Outcome struct {
	NewPoints    int
	PreviousTier Tier
	NewTier      Tier
	Transition   Transition
}

// ApplyDelta adds delta to the fighter's point total as an atomic
// read-modify-write, re-evaluates tier standing, and records a tier-history
// entry plus an outbox event when the tier changed. The UPDATE both applies
// the delta and takes the row lock that serializes concurrent submissions
// for the same fighter.
func (e *Engine) ApplyDelta(ctx context.Context, tx pgx.Tx, fighterID string, delta int) (Outcome, error) {
	var (
		newPoints   int
		currentTier Tier
	)
	err := tx.QueryRow(ctx, `
		UPDATE fighters
		SET points = points + $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING points, tier::text
	`, fighterID, delta).Scan(&newPoints, &currentTier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Outcome{}, ErrFighterNotFound
		}
		return Outcome{}, fmt.Errorf("progression: apply delta: %w", err)
	}

	recent, err := recentResults(ctx, tx, fighterID, demotionStreak)
	if err != nil {
		return Outcome{}, err
	}

	newTier, transition := DecideTransition(currentTier, newPoints, recent)

	out := Outcome{
		NewPoints:    newPoints,
		PreviousTier: currentTier,
		NewTier:      newTier,
		Transition:   transition,
	}
	if transition == TransitionNone {
		return out, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE fighters SET tier = $2::fighter_tier, updated_at = now() WHERE id = $1
	`, fighterID, newTier); err != nil {
		return Outcome{}, fmt.Errorf("progression: update tier: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO tier_history (fighter_id, previous_tier, new_tier, transition, points_at_change)
		VALUES ($1, $2::fighter_tier, $3::fighter_tier, $4::tier_transition, $5)
	`, fighterID, currentTier, newTier, transition, newPoints); err != nil {
		return Outcome{}, fmt.Errorf("progression: insert tier history: %w", err)
	}

	if e.outbox != nil {
		payload := map[string]any{
			"fighter_id":    fighterID,
			"previous_tier": string(currentTier),
			"new_tier":      string(newTier),
			"transition":    string(transition),
			"points":        newPoints,
		}
		if err := e.outbox.Enqueue(ctx, tx, "fighter.tier_changed", payload); err != nil {
			return Outcome{}, fmt.Errorf("progression: enqueue tier event: %w", err)
		}
	}

	metrics.ObserveTierChange(string(transition))

	return out, nil
}

// DecideTransition determines the fighter's resulting tier. Promotion is
// driven purely by the new point total crossing into a higher band. Demotion
// is driven by a full losing streak and moves exactly one band down,
// overriding the points-band lookup. Promotion takes precedence when both
// conditions hold in the same cycle; otherwise the stored tier is kept, so a
// shrinking point total alone never demotes.
func DecideTransition(current Tier, newPoints int, recent []Result) (Tier, Transition) {
	pointsBand := TierFor(newPoints)
	if pointsBand.MinPoints > Definition(current).MinPoints {
		return pointsBand.Name, TransitionPromotion
	}

	if current != TierAmateur && isFullLossStreak(recent) {
		if lower, ok := PreviousTier(current); ok {
			return lower.Name, TransitionDemotion
		}
	}

	return current, TransitionNone
}

func isFullLossStreak(recent []Result) bool {
	if len(recent) != demotionStreak {
		return false
	}
	for _, r := range recent {
		if r != ResultLoss {
			return false
		}
	}
	return true
}

func recentResults(ctx context.Context, tx pgx.Tx, fighterID string, limit int) ([]Result, error) {
	rows, err := tx.Query(ctx, `
		SELECT result::text
		FROM fight_records
		WHERE fighter_id = $1
		ORDER BY fought_at DESC, created_at DESC
		LIMIT $2
	`, fighterID, limit)
	if err != nil {
		return nil, fmt.Errorf("progression: recent results: %w", err)
	}
	defer rows.Close()

	out := make([]Result, 0, limit)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("progression: scan result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("progression: iterate results: %w", err)
	}
	return out, nil
}
