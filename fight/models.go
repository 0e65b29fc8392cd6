package fight

import (
	"time"

	"fightleague/progression"
)

// Record is an immutable append-only fight outcome entry. PointsEarned is
// the delta actually applied when the record was created; later scoring rule
// changes must not retroactively alter it.
type Record struct {
	ID           string
	FighterID    string
	OpponentName string
	Result       progression.Result
	Method       progression.Method
	Round        *int
	FoughtAt     time.Time
	WeightClass  *string
	PointsEarned int
	CreatedAt    time.Time
}

// ScheduledStatus is the lifecycle of a scheduled fight reference.
type ScheduledStatus string

const (
	ScheduledStatusScheduled ScheduledStatus = "scheduled"
	ScheduledStatusCompleted ScheduledStatus = "completed"
	ScheduledStatusCancelled ScheduledStatus = "cancelled"
)

// ScheduledFight mirrors the scheduled_fights table. Matchmaking happens
// outside the engine; disputes reference these rows to identify the
// counterparty and to mark the underlying fight completed on resolution.
type ScheduledFight struct {
	ID          string
	FighterAID  string
	FighterBID  string
	Status      ScheduledStatus
	WeightClass *string
	ScheduledAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRecordParams enumerates the fields required to append a fight record.
type CreateRecordParams struct {
	FighterID    string
	OpponentName string
	Result       progression.Result
	Method       progression.Method
	Round        *int
	FoughtAt     time.Time
	WeightClass  string
	PointsEarned int
}
