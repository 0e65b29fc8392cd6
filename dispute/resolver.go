package dispute

import (
	"context"
	"errors"
	"fmt"

	"fightleague/fight"
	"fightleague/fighter"
)

// FighterDirectory is the fighter-store surface the resolver and executor
// consume.
type FighterDirectory interface {
	GetByID(ctx context.Context, id string) (fighter.Account, error)
	GetByName(ctx context.Context, displayName string) (fighter.Account, error)
}

// FightRefReader looks up scheduled fights referenced by disputes.
type FightRefReader interface {
	GetScheduled(ctx context.Context, id string) (fight.ScheduledFight, error)
}

// OpponentResolver determines the counterparty of a dispute when it was not
// recorded explicitly. Sources are tried in order; the first hit wins:
// explicit opponent id, the non-disputer party of the linked scheduled
// fight, then an exact display-name match. A full miss is recoverable: the
// caller asks the admin to supply the opponent and retry.
type OpponentResolver struct {
	directory FighterDirectory
	fights    FightRefReader
}

func NewOpponentResolver(directory FighterDirectory, fights FightRefReader) *OpponentResolver {
	return &OpponentResolver{directory: directory, fights: fights}
}

// Resolve returns the opponent's fighter id and whether one was found.
func (r *OpponentResolver) Resolve(ctx context.Context, d Dispute) (string, bool, error) {
	if d.OpponentID != nil && *d.OpponentID != "" {
		return *d.OpponentID, true, nil
	}

	if d.FightID != nil && *d.FightID != "" {
		ref, err := r.fights.GetScheduled(ctx, *d.FightID)
		switch {
		case err == nil:
			if other := counterparty(ref, d.DisputerID); other != "" {
				return other, true, nil
			}
		case errors.Is(err, fight.ErrScheduledNotFound):
			// stale reference, fall through to the name match
		default:
			return "", false, fmt.Errorf("dispute: resolve via fight: %w", err)
		}
	}

	if d.OpponentName != nil && *d.OpponentName != "" {
		acct, err := r.directory.GetByName(ctx, *d.OpponentName)
		switch {
		case err == nil:
			return acct.ID, true, nil
		case errors.Is(err, fighter.ErrNotFound):
			// no account with that name
		default:
			return "", false, fmt.Errorf("dispute: resolve via name: %w", err)
		}
	}

	return "", false, nil
}

func counterparty(ref fight.ScheduledFight, disputerID string) string {
	switch disputerID {
	case ref.FighterAID:
		return ref.FighterBID
	case ref.FighterBID:
		return ref.FighterAID
	}
	return ""
}
