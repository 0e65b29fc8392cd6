package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fightleague/fight"
	"fightleague/fighter"
	"fightleague/metrics"
	"fightleague/progression"
)

// ResolutionStore is the repository surface the executor needs for the
// dispute row itself.
type ResolutionStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Dispute, error)
	ResolveTerminal(ctx context.Context, tx pgx.Tx, id string, rt ResolutionType, resolution, adminNotes string) (Dispute, error)
	InsertMessage(ctx context.Context, db queryRower, params MessageParams) (Message, error)
}

// FighterStore covers the fighter-side writes a resolution may perform.
type FighterStore interface {
	GetByIDTx(ctx context.Context, tx pgx.Tx, id string) (fighter.Account, error)
	ApplySuspension(ctx context.Context, tx pgx.Tx, fighterID string, until time.Time, reason string) error
	IncrementRecord(ctx context.Context, tx pgx.Tx, fighterID string, result progression.Result) error
}

// RecordStore covers fight-record writes for overturned results.
type RecordStore interface {
	InsertRecord(ctx context.Context, tx pgx.Tx, params fight.CreateRecordParams) (fight.Record, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id string) error
}

// ProgressionEngine applies point deltas and tier re-evaluation.
type ProgressionEngine interface {
	ApplyDelta(ctx context.Context, tx pgx.Tx, fighterID string, delta int) (progression.Outcome, error)
}

// OpponentLookup determines the dispute counterparty when side effects
// require one.
type OpponentLookup interface {
	Resolve(ctx context.Context, d Dispute) (string, bool, error)
}

// Executor applies an administrator's resolution decision: the terminal
// status write plus every side effect the resolution type implies, all in
// one transaction. Either the whole decision lands or none of it does.
type Executor struct {
	pool      TxBeginner
	disputes  ResolutionStore
	fighters  FighterStore
	records   RecordStore
	engine    ProgressionEngine
	resolver  OpponentLookup
	directory FighterDirectory
	outbox    OutboxWriter

	now func() time.Time
}

func NewExecutor(pool TxBeginner, disputes ResolutionStore, fighters FighterStore, records RecordStore, engine ProgressionEngine, resolver OpponentLookup, directory FighterDirectory, outbox OutboxWriter) *Executor {
	return &Executor{
		pool:      pool,
		disputes:  disputes,
		fighters:  fighters,
		records:   records,
		engine:    engine,
		resolver:  resolver,
		directory: directory,
		outbox:    outbox,
		now:       time.Now,
	}
}

// WithClock overrides the executor's time source.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// ResolveParams is an administrator's complete decision.
type ResolveParams struct {
	DisputeID  string
	AdminID    string
	Type       ResolutionType
	Resolution string
	AdminNotes string

	// Optional thread messages delivered with the decision.
	MessageToDisputer string
	MessageToOpponent string

	// OpponentID lets the admin name the counterparty explicitly when the
	// automatic lookup came up empty on a previous attempt.
	OpponentID string
}

// ResolveResult reports what the resolution did.
type ResolveResult struct {
	Dispute             Dispute
	OpponentID          string
	DisputerProgression *progression.Outcome
	OpponentProgression *progression.Outcome
}

// Resolve closes the dispute. Resolving an already-resolved dispute fails
// with ErrAlreadyResolved and re-applies nothing. If the resolution type
// needs a counterparty and none can be determined, the call fails with
// ErrMissingParty and the dispute stays in its current status so the admin
// can retry with an explicit opponent.
func (e *Executor) Resolve(ctx context.Context, params ResolveParams) (ResolveResult, error) {
	if params.Resolution == "" {
		return ResolveResult{}, fmt.Errorf("%w: resolution text is required", ErrValidation)
	}
	if !IsValidResolutionType(params.Type) {
		return ResolveResult{}, fmt.Errorf("%w: unknown resolution type %q", ErrValidation, params.Type)
	}

	admin, err := e.directory.GetByID(ctx, params.AdminID)
	if err != nil {
		if errors.Is(err, fighter.ErrNotFound) {
			return ResolveResult{}, ErrUnauthorized
		}
		return ResolveResult{}, err
	}
	if !admin.IsAdmin() {
		return ResolveResult{}, ErrUnauthorized
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("dispute: begin resolution: %w", err)
	}
	defer tx.Rollback(ctx)

	d, err := e.disputes.GetForUpdate(ctx, tx, params.DisputeID)
	if err != nil {
		return ResolveResult{}, err
	}
	if d.Status == StatusResolved {
		return ResolveResult{}, ErrAlreadyResolved
	}

	if params.OpponentID != "" {
		d.OpponentID = &params.OpponentID
	}

	result := ResolveResult{}
	if params.Type.RequiresOpponent() {
		opponentID, ok, err := e.resolver.Resolve(ctx, d)
		if err != nil {
			return ResolveResult{}, err
		}
		if !ok {
			return ResolveResult{}, fmt.Errorf("dispute: resolution %q needs a counterparty: %w", params.Type, ErrMissingParty)
		}
		result.OpponentID = opponentID

		if err := e.applySideEffects(ctx, tx, d, params.Type, opponentID, &result); err != nil {
			return ResolveResult{}, err
		}
	}

	if err := e.postDecisionMessages(ctx, tx, d.ID, params); err != nil {
		return ResolveResult{}, err
	}

	resolved, err := e.disputes.ResolveTerminal(ctx, tx, d.ID, params.Type, params.Resolution, params.AdminNotes)
	if err != nil {
		return ResolveResult{}, err
	}
	result.Dispute = resolved

	if e.outbox != nil {
		payload := map[string]any{
			"dispute_id":      resolved.ID,
			"disputer_id":     resolved.DisputerID,
			"resolution_type": string(params.Type),
			"admin_id":        params.AdminID,
		}
		if result.OpponentID != "" {
			payload["opponent_id"] = result.OpponentID
		}
		if err := e.outbox.Enqueue(ctx, tx, "dispute.resolved", payload); err != nil {
			return ResolveResult{}, fmt.Errorf("dispute: enqueue resolved event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ResolveResult{}, fmt.Errorf("dispute: commit resolution: %w", err)
	}

	metrics.ObserveResolution(string(params.Type), "applied")
	return result, nil
}

func (e *Executor) applySideEffects(ctx context.Context, tx pgx.Tx, d Dispute, rt ResolutionType, opponentID string, result *ResolveResult) error {
	switch {
	case rt == ResolutionGiveWinToSubmitter:
		return e.overturnResult(ctx, tx, d, opponentID, result)

	case rt == ResolutionBannedFromLeague:
		if err := e.fighters.ApplySuspension(ctx, tx, opponentID, fighter.PermanentBan, banReason(d)); err != nil {
			return err
		}
		return e.enqueueSuspension(ctx, tx, d.ID, opponentID, fighter.PermanentBan, true)

	default:
		dur, ok := rt.SuspensionDuration()
		if !ok {
			return nil
		}
		until := e.now().UTC().Add(dur)
		if err := e.fighters.ApplySuspension(ctx, tx, opponentID, until, banReason(d)); err != nil {
			return err
		}
		return e.enqueueSuspension(ctx, tx, d.ID, opponentID, until, false)
	}
}

// overturnResult awards the disputed fight to the submitter: a win record
// for the disputer, a mirrored loss record for the opponent, point and tier
// updates for both, and the linked fight marked completed.
func (e *Executor) overturnResult(ctx context.Context, tx pgx.Tx, d Dispute, opponentID string, result *ResolveResult) error {
	disputer, err := e.fighters.GetByIDTx(ctx, tx, d.DisputerID)
	if err != nil {
		return err
	}
	opponent, err := e.fighters.GetByIDTx(ctx, tx, opponentID)
	if err != nil {
		return err
	}

	foughtAt := e.now().UTC()
	winPoints := progression.CalculatePoints(progression.ResultWin, progression.MethodDecision)
	lossPoints := progression.CalculatePoints(progression.ResultLoss, progression.MethodDecision)

	if _, err := e.records.InsertRecord(ctx, tx, fight.CreateRecordParams{
		FighterID:    disputer.ID,
		OpponentName: opponent.DisplayName,
		Result:       progression.ResultWin,
		Method:       progression.MethodDecision,
		FoughtAt:     foughtAt,
		PointsEarned: winPoints,
	}); err != nil {
		return err
	}
	if err := e.fighters.IncrementRecord(ctx, tx, disputer.ID, progression.ResultWin); err != nil {
		return err
	}
	disputerOutcome, err := e.engine.ApplyDelta(ctx, tx, disputer.ID, winPoints)
	if err != nil {
		return err
	}
	result.DisputerProgression = &disputerOutcome

	if _, err := e.records.InsertRecord(ctx, tx, fight.CreateRecordParams{
		FighterID:    opponent.ID,
		OpponentName: disputer.DisplayName,
		Result:       progression.ResultLoss,
		Method:       progression.MethodDecision,
		FoughtAt:     foughtAt,
		PointsEarned: lossPoints,
	}); err != nil {
		return err
	}
	if err := e.fighters.IncrementRecord(ctx, tx, opponent.ID, progression.ResultLoss); err != nil {
		return err
	}
	opponentOutcome, err := e.engine.ApplyDelta(ctx, tx, opponent.ID, lossPoints)
	if err != nil {
		return err
	}
	result.OpponentProgression = &opponentOutcome

	if d.FightID != nil {
		if err := e.records.MarkCompleted(ctx, tx, *d.FightID); err != nil {
			// A dangling fight reference does not block the overturn.
			if !errors.Is(err, fight.ErrScheduledNotFound) {
				return err
			}
		}
	}
	return nil
}

func (e *Executor) postDecisionMessages(ctx context.Context, tx pgx.Tx, disputeID string, params ResolveParams) error {
	for _, body := range []string{params.MessageToDisputer, params.MessageToOpponent} {
		if body == "" {
			continue
		}
		if _, err := e.disputes.InsertMessage(ctx, tx, MessageParams{
			DisputeID:  disputeID,
			SenderID:   params.AdminID,
			SenderRole: fighter.RoleAdmin,
			Body:       body,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) enqueueSuspension(ctx context.Context, tx pgx.Tx, disputeID, fighterID string, until time.Time, permanent bool) error {
	if e.outbox == nil {
		return nil
	}
	err := e.outbox.Enqueue(ctx, tx, "fighter.suspended", map[string]any{
		"dispute_id":   disputeID,
		"fighter_id":   fighterID,
		"banned_until": until.Format(time.RFC3339),
		"permanent":    permanent,
	})
	if err != nil {
		return fmt.Errorf("dispute: enqueue suspension event: %w", err)
	}
	return nil
}

func banReason(d Dispute) string {
	return fmt.Sprintf("dispute %s: %s", d.ID, d.Category)
}
