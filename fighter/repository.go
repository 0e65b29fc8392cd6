package fighter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fightleague/progression"
)

var (
	// ErrNotFound signals that no fighter row matches the lookup.
	ErrNotFound = errors.New("fighter: not found")
)

// Directory is the read side of the fighter store consumed by the dispute
// and fight packages.
type Directory interface {
	GetByID(ctx context.Context, id string) (Account, error)
	GetByName(ctx context.Context, displayName string) (Account, error)
}

// Repository handles data access for fighter accounts.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, email, display_name, password_hash, role::text, points, tier::text,
	wins, losses, draws, weight_class, banned_until, ban_reason, created_at, updated_at`

// GetByID retrieves a fighter account by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM fighters WHERE id = $1`, id)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("fighter: get by id: %w", err)
	}
	return acct, nil
}

// GetByName retrieves a fighter account by exact display name.
func (r *Repository) GetByName(ctx context.Context, displayName string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM fighters WHERE display_name = $1`, displayName)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("fighter: get by name: %w", err)
	}
	return acct, nil
}

// GetByIDTx reads the account inside the caller's transaction, taking the
// row lock so subsequent writes in the same unit cannot race.
func (r *Repository) GetByIDTx(ctx context.Context, tx pgx.Tx, id string) (Account, error) {
	row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM fighters WHERE id = $1 FOR UPDATE`, id)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("fighter: get by id for update: %w", err)
	}
	return acct, nil
}

// ApplySuspension sets the ban window inside the caller's transaction.
func (r *Repository) ApplySuspension(ctx context.Context, tx pgx.Tx, fighterID string, until time.Time, reason string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE fighters
		SET banned_until = $2,
		    ban_reason = $3,
		    updated_at = now()
		WHERE id = $1
	`, fighterID, until, reason)
	if err != nil {
		return fmt.Errorf("fighter: apply suspension: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRecord bumps the win/loss/draw counter matching the result inside
// the caller's transaction. The streak counter is not stored; it is derived
// from fight history when needed.
func (r *Repository) IncrementRecord(ctx context.Context, tx pgx.Tx, fighterID string, result progression.Result) error {
	var column string
	switch result {
	case progression.ResultWin:
		column = "wins"
	case progression.ResultLoss:
		column = "losses"
	case progression.ResultDraw:
		column = "draws"
	default:
		return fmt.Errorf("fighter: unknown result %q", result)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE fighters SET `+column+` = `+column+` + 1, updated_at = now() WHERE id = $1
	`, fighterID)
	if err != nil {
		return fmt.Errorf("fighter: increment %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.PasswordHash,
		&a.Role,
		&a.Points,
		&a.Tier,
		&a.Wins,
		&a.Losses,
		&a.Draws,
		&a.WeightClass,
		&a.BannedUntil,
		&a.BanReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}
