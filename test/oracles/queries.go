package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_points_match_ledger",
			SQL: `SELECT f.id, f.points, COALESCE(SUM(r.points_earned), 0) AS ledger
                  FROM fighters f
                  LEFT JOIN fight_records r ON r.fighter_id = f.id
                  GROUP BY f.id, f.points
                  HAVING f.points <> COALESCE(SUM(r.points_earned), 0)`,
		},
		{
			Name: "O2_counters_match_ledger",
			SQL: `SELECT f.id FROM fighters f
                  LEFT JOIN fight_records r ON r.fighter_id = f.id
                  GROUP BY f.id, f.wins, f.losses, f.draws
                  HAVING f.wins <> COUNT(*) FILTER (WHERE r.result = 'win')
                      OR f.losses <> COUNT(*) FILTER (WHERE r.result = 'loss')
                      OR f.draws <> COUNT(*) FILTER (WHERE r.result = 'draw')`,
		},
		{
			Name: "O3_resolved_disputes_complete",
			SQL: `SELECT id FROM disputes
                  WHERE status = 'resolved'
                    AND (resolution_type IS NULL OR resolved_at IS NULL OR resolved_at < created_at)`,
		},
		{
			Name: "O4_unresolved_disputes_clean",
			SQL: `SELECT id FROM disputes
                  WHERE status <> 'resolved'
                    AND (resolution_type IS NOT NULL OR resolved_at IS NOT NULL)`,
		},
		{
			Name: "O5_tier_never_below_points",
			SQL: `SELECT id, tier, points FROM fighters
                  WHERE (points >= 150 AND tier NOT IN ('elite'))
                     OR (points >= 90 AND points < 150 AND tier NOT IN ('contender','elite'))
                     OR (points >= 40 AND points < 90 AND tier NOT IN ('pro','contender','elite'))
                     OR (points >= 20 AND points < 40 AND tier = 'amateur' AND NOT EXISTS (
                            SELECT 1 FROM tier_history h
                            WHERE h.fighter_id = fighters.id AND h.transition = 'demotion'))`,
		},
		{
			Name: "O6_tier_history_consistent",
			SQL: `SELECT id FROM tier_history
                  WHERE (transition = 'promotion' AND new_tier <= previous_tier)
                     OR (transition = 'demotion' AND new_tier >= previous_tier)`,
		},
		{
			Name: "O7_outbox_not_stale",
			SQL: `SELECT id FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O8_suspensions_have_reason",
			SQL: `SELECT id FROM fighters
                  WHERE banned_until IS NOT NULL AND (ban_reason IS NULL OR ban_reason = '')`,
		},
		{
			Name: "O9_messages_reference_live_parties",
			SQL: `SELECT m.id FROM dispute_messages m
                  LEFT JOIN disputes d ON d.id = m.dispute_id
                  WHERE d.id IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
