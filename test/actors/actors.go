package actors

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var results = []string{"win", "loss", "draw"}

var methods = []string{"knockout", "technical_knockout", "decision", "submission"}

func pointsFor(result, method string) int {
	switch result {
	case "win":
		if method == "knockout" || method == "technical_knockout" {
			return 8
		}
		return 5
	case "loss":
		return -3
	default:
		return 0
	}
}

// Reporter writes fight records for a fighter and keeps the aggregate
// counters in the same transaction, the way the report endpoint does.
func Reporter(ctx context.Context, pool *pgxpool.Pool, fighterID, opponentName string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		result := results[rand.Intn(len(results))]
		method := methods[rand.Intn(len(methods))]
		pts := pointsFor(result, method)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO fight_records (fighter_id, opponent_name, result, method, fought_at, points_earned)
                               VALUES ($1,$2,$3,$4,NOW(),$5)`, fighterID, opponentName, result, method, pts)
		if err == nil {
			// Tier is recomputed in the same statement so readers never
			// observe points ahead of the tier they imply.
			_, err = tx.Exec(ctx, `UPDATE fighters SET
                                   points = points + $2,
                                   tier = GREATEST(tier, CASE
                                       WHEN points + $2 >= 150 THEN 'elite'::fighter_tier
                                       WHEN points + $2 >= 90 THEN 'contender'::fighter_tier
                                       WHEN points + $2 >= 40 THEN 'pro'::fighter_tier
                                       WHEN points + $2 >= 20 THEN 'semi_pro'::fighter_tier
                                       ELSE 'amateur'::fighter_tier
                                   END),
                                   wins = wins + CASE WHEN $3 = 'win' THEN 1 ELSE 0 END,
                                   losses = losses + CASE WHEN $3 = 'loss' THEN 1 ELSE 0 END,
                                   draws = draws + CASE WHEN $3 = 'draw' THEN 1 ELSE 0 END,
                                   updated_at = NOW()
                                   WHERE id = $1`, fighterID, pts, result)
		}
		if err == nil {
			_, _ = tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ('fight.reported', jsonb_build_object('fighter_id',$1::text))`, fighterID)
			err = tx.Commit(ctx)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("reporter: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(25)) * time.Millisecond)
	}
}

// Promoter recomputes the tier from points and records the transition,
// mirroring the progression engine's conditional update.
func Promoter(ctx context.Context, pool *pgxpool.Pool, fighterID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var pts int
		var tier string
		err = tx.QueryRow(ctx, `SELECT points, tier FROM fighters WHERE id=$1 FOR UPDATE`, fighterID).Scan(&pts, &tier)
		if err == nil {
			target := tierFor(pts)
			if rankOf(target) > rankOf(tier) {
				_, err = tx.Exec(ctx, `UPDATE fighters SET tier=$2, updated_at=NOW() WHERE id=$1`, fighterID, target)
				if err == nil {
					_, _ = tx.Exec(ctx, `INSERT INTO tier_history (fighter_id, previous_tier, new_tier, transition, points_at_change)
                                         VALUES ($1,$2,$3,'promotion',$4)`, fighterID, tier, target, pts)
				}
			}
		}
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("promoter: %w", err)
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

func tierFor(points int) string {
	switch {
	case points >= 150:
		return "elite"
	case points >= 90:
		return "contender"
	case points >= 40:
		return "pro"
	case points >= 20:
		return "semi_pro"
	default:
		return "amateur"
	}
}

func rankOf(tier string) int {
	switch tier {
	case "elite":
		return 4
	case "contender":
		return 3
	case "pro":
		return 2
	case "semi_pro":
		return 1
	default:
		return 0
	}
}

// Disputer opens disputes against a fixed opponent and occasionally moves
// them into review.
func Disputer(ctx context.Context, pool *pgxpool.Pool, disputerID, opponentID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var dispID string
		_ = pool.QueryRow(ctx, `INSERT INTO disputes (disputer_id, opponent_id, category, reason)
                                VALUES ($1,$2,'false_result','stress filing') RETURNING id`, disputerID, opponentID).Scan(&dispID)
		if dispID != "" && rand.Intn(2) == 0 {
			_, _ = pool.Exec(ctx, `UPDATE disputes SET status='in_review', updated_at=NOW() WHERE id=$1 AND status='open'`, dispID)
		}
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
}

// Resolver closes open or in_review disputes with a random terminal verdict.
// Suspension verdicts also stamp banned_until on the disputer, in the same
// transaction, matching the resolution executor.
func Resolver(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	verdicts := []string{"warning", "dispute_invalid", "one_week_suspension", "other"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var dispID, disputerID string
		err = tx.QueryRow(ctx, `SELECT id, disputer_id FROM disputes WHERE status IN ('open','in_review')
                                ORDER BY created_at LIMIT 1 FOR UPDATE SKIP LOCKED`).Scan(&dispID, &disputerID)
		if err == nil {
			verdict := verdicts[rand.Intn(len(verdicts))]
			_, err = tx.Exec(ctx, `UPDATE disputes SET status='resolved', resolution_type=$2, resolution='stress verdict',
                                   resolved_at=NOW(), updated_at=NOW()
                                   WHERE id=$1 AND status <> 'resolved'`, dispID, verdict)
			if err == nil && verdict == "one_week_suspension" {
				_, err = tx.Exec(ctx, `UPDATE fighters SET banned_until=NOW() + INTERVAL '7 days', ban_reason='stress verdict', updated_at=NOW() WHERE id=$1`, disputerID)
			}
			if err == nil {
				_, _ = tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ('dispute.resolved', jsonb_build_object('dispute_id',$1::text))`, dispID)
			}
		} else {
			err = nil // nothing eligible yet
		}
		if err == nil {
			err = tx.Commit(ctx)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("resolver: %w", err)
		}
		time.Sleep(time.Duration(60+rand.Intn(80)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending outbox rows with SKIP LOCKED and marks them
// processed, with an occasional simulated delivery failure.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]string, 0, 10)
		for rows.Next() {
			var id string
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1, updated_at=NOW() WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed', updated_at=NOW() WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}

// Messenger appends back-and-forth dispute messages while disputes are live.
func Messenger(ctx context.Context, pool *pgxpool.Pool, senderID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _ = pool.Exec(ctx, `INSERT INTO dispute_messages (dispute_id, sender_id, sender_role, body)
                               SELECT id, $1, 'fighter', 'stress message' FROM disputes
                               WHERE status <> 'resolved' AND disputer_id = $1
                               ORDER BY created_at DESC LIMIT 1`, senderID)
		time.Sleep(time.Duration(150+rand.Intn(100)) * time.Millisecond)
	}
}
