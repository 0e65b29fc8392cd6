package dispute

import (
	"time"

	"fightleague/fighter"
)

// Status represents the dispute lifecycle. Transitions are monotonic:
// open -> in_review -> resolved, with no path back.
type Status string

const (
	StatusOpen     Status = "open"
	StatusInReview Status = "in_review"
	StatusResolved Status = "resolved"
)

// Category enumerates the misconduct types a fighter can raise.
type Category string

const (
	CategoryFalseResult        Category = "false_result"
	CategoryUnsportsmanlike    Category = "unsportsmanlike_conduct"
	CategoryIneligibleOpponent Category = "ineligible_opponent"
	CategoryDoping             Category = "doping"
	CategoryNoShow             Category = "no_show"
	CategoryOther              Category = "other"
)

// IsValidCategory reports whether the category is a known misconduct type.
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryFalseResult, CategoryUnsportsmanlike, CategoryIneligibleOpponent,
		CategoryDoping, CategoryNoShow, CategoryOther:
		return true
	}
	return false
}

// ResolutionType is the category of administrative decision closing a
// dispute. Each carries its own side effects.
type ResolutionType string

const (
	ResolutionWarning            ResolutionType = "warning"
	ResolutionDisputeInvalid     ResolutionType = "dispute_invalid"
	ResolutionGiveWinToSubmitter ResolutionType = "give_win_to_submitter"
	ResolutionOneWeekSuspension  ResolutionType = "one_week_suspension"
	ResolutionTwoWeekSuspension  ResolutionType = "two_week_suspension"
	ResolutionOneMonthSuspension ResolutionType = "one_month_suspension"
	ResolutionBannedFromLeague   ResolutionType = "banned_from_league"
	ResolutionOther              ResolutionType = "other"
)

// IsValidResolutionType reports whether the type is known.
func IsValidResolutionType(rt ResolutionType) bool {
	switch rt {
	case ResolutionWarning, ResolutionDisputeInvalid, ResolutionGiveWinToSubmitter,
		ResolutionOneWeekSuspension, ResolutionTwoWeekSuspension,
		ResolutionOneMonthSuspension, ResolutionBannedFromLeague, ResolutionOther:
		return true
	}
	return false
}

// RequiresOpponent reports whether the resolution type's side effects act on
// the counterparty and therefore need one resolved.
func (rt ResolutionType) RequiresOpponent() bool {
	switch rt {
	case ResolutionGiveWinToSubmitter, ResolutionOneWeekSuspension,
		ResolutionTwoWeekSuspension, ResolutionOneMonthSuspension,
		ResolutionBannedFromLeague:
		return true
	}
	return false
}

// SuspensionDuration returns the ban window for suspension types and false
// for types that do not suspend (the permanent ban is handled separately).
func (rt ResolutionType) SuspensionDuration() (time.Duration, bool) {
	switch rt {
	case ResolutionOneWeekSuspension:
		return 7 * 24 * time.Hour, true
	case ResolutionTwoWeekSuspension:
		return 14 * 24 * time.Hour, true
	case ResolutionOneMonthSuspension:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// Dispute mirrors the disputes table. Resolution fields are set exactly once
// when the dispute reaches its terminal status.
type Dispute struct {
	ID             string
	DisputerID     string
	OpponentID     *string
	OpponentName   *string
	Category       Category
	Reason         string
	EvidenceRefs   []string
	FightID        *string
	Status         Status
	ResolutionType *ResolutionType
	Resolution     *string
	AdminNotes     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}

// Message is an append-only thread entry tied to a dispute.
type Message struct {
	ID         string
	DisputeID  string
	SenderID   string
	SenderRole fighter.Role
	Body       string
	CreatedAt  time.Time
}
