package fight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fightleague/metrics"
	"fightleague/progression"
)

// ErrValidation signals malformed report input (missing fields, unknown
// result). Wrapped with a human-readable reason.
var ErrValidation = errors.New("fight: invalid report")

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RecordStore defines the record writes required by the service.
type RecordStore interface {
	InsertRecord(ctx context.Context, tx pgx.Tx, params CreateRecordParams) (Record, error)
}

// RecordCounter bumps the win/loss/draw counters on the fighter row.
type RecordCounter interface {
	IncrementRecord(ctx context.Context, tx pgx.Tx, fighterID string, result progression.Result) error
}

// Engine applies the point delta and tier rules for one fighter.
type Engine interface {
	ApplyDelta(ctx context.Context, tx pgx.Tx, fighterID string, delta int) (progression.Outcome, error)
}

// OutboxWriter appends notification events in the same transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service handles self-reported fight outcomes. A report appends the record,
// bumps the counters, and runs the progression engine in one transaction.
type Service struct {
	pool     TxBeginner
	records  RecordStore
	counters RecordCounter
	engine   Engine
	outbox   OutboxWriter
	now      func() time.Time
}

func NewService(pool TxBeginner, records RecordStore, counters RecordCounter, engine Engine, outbox OutboxWriter) *Service {
	return &Service{
		pool:     pool,
		records:  records,
		counters: counters,
		engine:   engine,
		outbox:   outbox,
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ReportParams carries a self-reported outcome. Result and Method arrive as
// free text and are normalized before they reach the calculator.
type ReportParams struct {
	FighterID    string
	OpponentName string
	Result       string
	Method       string
	Round        *int
	FoughtAt     time.Time
	WeightClass  string
}

// ReportOutcome bundles the stored record with the progression it caused.
type ReportOutcome struct {
	Record      Record
	Progression progression.Outcome
}

// Report validates and applies a self-reported fight outcome.
func (s *Service) Report(ctx context.Context, params ReportParams) (ReportOutcome, error) {
	if params.FighterID == "" {
		return ReportOutcome{}, fmt.Errorf("%w: missing fighter id", ErrValidation)
	}
	if params.OpponentName == "" {
		return ReportOutcome{}, fmt.Errorf("%w: missing opponent name", ErrValidation)
	}

	result, ok := progression.NormalizeResult(params.Result)
	if !ok {
		return ReportOutcome{}, fmt.Errorf("%w: unknown result %q", ErrValidation, params.Result)
	}
	method := progression.NormalizeMethod(params.Method)

	foughtAt := params.FoughtAt
	if foughtAt.IsZero() {
		foughtAt = s.now()
	}

	points := progression.CalculatePoints(result, method)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ReportOutcome{}, fmt.Errorf("fight: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.records.InsertRecord(ctx, tx, CreateRecordParams{
		FighterID:    params.FighterID,
		OpponentName: params.OpponentName,
		Result:       result,
		Method:       method,
		Round:        params.Round,
		FoughtAt:     foughtAt,
		WeightClass:  params.WeightClass,
		PointsEarned: points,
	})
	if err != nil {
		return ReportOutcome{}, err
	}

	if err := s.counters.IncrementRecord(ctx, tx, params.FighterID, result); err != nil {
		return ReportOutcome{}, err
	}

	prog, err := s.engine.ApplyDelta(ctx, tx, params.FighterID, points)
	if err != nil {
		return ReportOutcome{}, err
	}

	if s.outbox != nil {
		payload := map[string]any{
			"record_id":  rec.ID,
			"fighter_id": params.FighterID,
			"result":     string(result),
			"method":     string(method),
			"points":     points,
		}
		if err := s.outbox.Enqueue(ctx, tx, "fight.reported", payload); err != nil {
			return ReportOutcome{}, fmt.Errorf("fight: enqueue report event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ReportOutcome{}, fmt.Errorf("fight: commit report: %w", err)
	}

	metrics.ObserveFightReport(string(result))

	return ReportOutcome{Record: rec, Progression: prog}, nil
}
