package fighter

import (
	"time"

	"fightleague/progression"
)

// Role separates league participants from administrators.
type Role string

const (
	RoleFighter Role = "fighter"
	RoleAdmin   Role = "admin"
)

// PermanentBan is the sentinel banned_until value meaning banned for life.
var PermanentBan = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// Account is the domain representation of a fighter row. It mirrors the
// fighters table and carries no JSON annotations so it can be reused by
// different presentation layers. Accounts are never deleted; bans are
// recorded on the row instead.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         Role
	Points       int
	Tier         progression.Tier
	Wins         int
	Losses       int
	Draws        int
	WeightClass  *string
	BannedUntil  *time.Time
	BanReason    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the account holds the administrator role.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsBanned reports whether the account is suspended at the given instant.
func (a Account) IsBanned(at time.Time) bool {
	return a.BannedUntil != nil && a.BannedUntil.After(at)
}

// IsPermanentlyBanned reports whether the sentinel ban is in effect.
func (a Account) IsPermanentlyBanned() bool {
	return a.BannedUntil != nil && a.BannedUntil.Equal(PermanentBan)
}
