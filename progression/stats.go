package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recentWindow bounds the "recent promotions/demotions" stats.
const recentWindow = 30 * 24 * time.Hour

// TierProgress describes how far a fighter is through their current band.
type TierProgress struct {
	CurrentTier     Tier
	Points          int
	PointsToNext    int
	ProgressPercent float64
}

// TierStats aggregates league-wide standing information.
type TierStats struct {
	TotalFighters    int
	TierDistribution map[Tier]int
	RecentPromotions int
	RecentDemotions  int
}

// StatsService serves the tier progression and league stats read models.
type StatsService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStatsService(pool *pgxpool.Pool) *StatsService {
	return &StatsService{pool: pool, now: time.Now}
}

func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Progress reports the fighter's position within their stored tier band. The
// stored tier, not the points-band lookup, is authoritative: a demoted
// fighter shows progress through the demoted band.
func (s *StatsService) Progress(ctx context.Context, fighterID string) (TierProgress, error) {
	var (
		points int
		tier   Tier
	)
	err := s.pool.QueryRow(ctx, `SELECT points, tier::text FROM fighters WHERE id = $1`, fighterID).
		Scan(&points, &tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TierProgress{}, ErrFighterNotFound
		}
		return TierProgress{}, fmt.Errorf("progression: load fighter: %w", err)
	}

	return computeProgress(tier, points), nil
}

func computeProgress(tier Tier, points int) TierProgress {
	out := TierProgress{CurrentTier: tier, Points: points}

	next, ok := NextTier(tier)
	if !ok {
		out.ProgressPercent = 100
		return out
	}

	out.PointsToNext = next.MinPoints - points
	if out.PointsToNext < 0 {
		out.PointsToNext = 0
	}

	band := Definition(tier)
	span := next.MinPoints - band.MinPoints
	pct := float64(points-band.MinPoints) / float64(span) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	out.ProgressPercent = pct
	return out
}

// Stats aggregates the league-wide distribution and recent tier movement.
func (s *StatsService) Stats(ctx context.Context) (TierStats, error) {
	out := TierStats{TierDistribution: make(map[Tier]int, len(tierLadder))}
	for _, def := range tierLadder {
		out.TierDistribution[def.Name] = 0
	}

	rows, err := s.pool.Query(ctx, `SELECT tier::text, COUNT(*) FROM fighters WHERE role = 'fighter' GROUP BY tier`)
	if err != nil {
		return TierStats{}, fmt.Errorf("progression: tier distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tier  Tier
			count int
		)
		if err := rows.Scan(&tier, &count); err != nil {
			return TierStats{}, fmt.Errorf("progression: scan distribution: %w", err)
		}
		out.TierDistribution[tier] = count
		out.TotalFighters += count
	}
	if err := rows.Err(); err != nil {
		return TierStats{}, fmt.Errorf("progression: iterate distribution: %w", err)
	}

	since := s.now().Add(-recentWindow)
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE transition = 'promotion'),
			COUNT(*) FILTER (WHERE transition = 'demotion')
		FROM tier_history
		WHERE created_at >= $1
	`, since).Scan(&out.RecentPromotions, &out.RecentDemotions)
	if err != nil {
		return TierStats{}, fmt.Errorf("progression: recent transitions: %w", err)
	}

	return out, nil
}
