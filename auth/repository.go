package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fightleague/fighter"
)

var (
	// ErrAccountNotFound signals that the account does not exist.
	ErrAccountNotFound = errors.New("auth: account not found")
	// ErrDuplicateAccount signals that the email or display name is taken.
	ErrDuplicateAccount = errors.New("auth: email or display name already registered")
)

// Repository handles data access for authentication.
type Repository interface {
	CreateAccount(ctx context.Context, params CreateAccountParams) (fighter.Account, error)
	GetByEmail(ctx context.Context, email string) (fighter.Account, error)
	GetByID(ctx context.Context, id string) (fighter.Account, error)
}

// CreateAccountParams contains write parameters for registration.
type CreateAccountParams struct {
	Email        string
	DisplayName  string
	PasswordHash string
	WeightClass  string
	Role         fighter.Role
}

// PGRepository implements Repository backed by PostgreSQL. It shares the
// fighters table with the fighter package; the auth side is the only writer
// of credential columns.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, email, display_name, password_hash, role::text, points, tier::text,
	wins, losses, draws, weight_class, banned_until, ban_reason, created_at, updated_at`

// CreateAccount inserts a new fighter row with hashed credentials.
func (r *PGRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (fighter.Account, error) {
	const insertSQL = `
		INSERT INTO fighters (email, display_name, password_hash, weight_class, role)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5::fighter_role)
		RETURNING ` + accountColumns

	acct, err := scanAccount(r.pool.QueryRow(ctx, insertSQL,
		params.Email, params.DisplayName, params.PasswordHash, params.WeightClass, params.Role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fighter.Account{}, ErrDuplicateAccount
		}
		return fighter.Account{}, fmt.Errorf("auth: create account: %w", err)
	}
	return acct, nil
}

// GetByEmail retrieves an account by email address.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (fighter.Account, error) {
	acct, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM fighters WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fighter.Account{}, ErrAccountNotFound
		}
		return fighter.Account{}, fmt.Errorf("auth: get by email: %w", err)
	}
	return acct, nil
}

// GetByID retrieves an account by identifier.
func (r *PGRepository) GetByID(ctx context.Context, id string) (fighter.Account, error) {
	acct, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM fighters WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fighter.Account{}, ErrAccountNotFound
		}
		return fighter.Account{}, fmt.Errorf("auth: get by id: %w", err)
	}
	return acct, nil
}

func scanAccount(row pgx.Row) (fighter.Account, error) {
	var a fighter.Account
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
		return fighter.Account{}, err
	}
	return a, nil
}
