package dispute

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fightleague/fighter"
)

var (
	// ErrNotFound signals that the dispute does not exist.
	ErrNotFound = errors.New("dispute: not found")
	// ErrInvalidTransition signals an attempt to move a dispute backwards or
	// act on a terminal one.
	ErrInvalidTransition = errors.New("dispute: invalid status transition")
	// ErrAlreadyResolved is the terminal-guard failure; it matches
	// ErrInvalidTransition under errors.Is.
	ErrAlreadyResolved = fmt.Errorf("dispute: already resolved: %w", ErrInvalidTransition)
	// ErrUnauthorized signals the caller lacks the role or participation
	// required for the operation.
	ErrUnauthorized = errors.New("dispute: unauthorized")
	// ErrValidation signals malformed input. Wrapped with a reason.
	ErrValidation = errors.New("dispute: invalid input")
	// ErrMissingParty signals the opponent could not be resolved for a
	// resolution type that requires one.
	ErrMissingParty = errors.New("dispute: opponent could not be resolved")
)

// queryRower is satisfied by both *pgxpool.Pool and pgx.Tx, letting message
// appends run standalone or inside a resolution transaction.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles data access for disputes and their message threads.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const disputeColumns = `id, disputer_id, opponent_id, opponent_name, category::text, reason,
	evidence_refs, fight_id, status::text, resolution_type::text, resolution, admin_notes,
	created_at, updated_at, resolved_at`

// CreateParams enumerates the fields required to open a dispute.
type CreateParams struct {
	DisputerID   string
	OpponentID   string
	OpponentName string
	Category     Category
	Reason       string
	EvidenceRefs []string
	FightID      string
}

// Create inserts a new open dispute inside the caller's transaction.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, params CreateParams) (Dispute, error) {
	const insertSQL = `
		INSERT INTO disputes (disputer_id, opponent_id, opponent_name, category, reason, evidence_refs, fight_id)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, ''), $4::dispute_category, $5, $6, NULLIF($7, '')::uuid)
		RETURNING ` + disputeColumns

	d, err := scanDispute(tx.QueryRow(ctx, insertSQL,
		params.DisputerID,
		params.OpponentID,
		params.OpponentName,
		params.Category,
		params.Reason,
		params.EvidenceRefs,
		params.FightID,
	))
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: create: %w", err)
	}
	return d, nil
}

// GetByID retrieves a dispute by identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (Dispute, error) {
	d, err := scanDispute(r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, fmt.Errorf("dispute: get: %w", err)
	}
	return d, nil
}

// GetForUpdate loads the dispute inside the caller's transaction with the
// row lock that serializes concurrent resolution attempts.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Dispute, error) {
	d, err := scanDispute(tx.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, fmt.Errorf("dispute: get for update: %w", err)
	}
	return d, nil
}

// ListForFighter returns disputes where the fighter is either party,
// most recent first.
func (r *Repository) ListForFighter(ctx context.Context, fighterID string) ([]Dispute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE disputer_id = $1 OR opponent_id = $1
		ORDER BY created_at DESC
	`, fighterID)
	if err != nil {
		return nil, fmt.Errorf("dispute: list for fighter: %w", err)
	}
	return collectDisputes(rows)
}

// ListByStatus returns the admin work queue for one status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Dispute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE status = $1::dispute_status
		ORDER BY created_at
	`, status)
	if err != nil {
		return nil, fmt.Errorf("dispute: list by status: %w", err)
	}
	return collectDisputes(rows)
}

// MarkInReview advances an open dispute to in_review. The conditional write
// makes repeated calls idempotent: once the dispute is past open, nothing
// fires again. It reports whether this call performed the transition.
func (r *Repository) MarkInReview(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE disputes
		SET status = 'in_review', updated_at = now()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, fmt.Errorf("dispute: mark in review: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM disputes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("dispute: verify exists: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// ResolveTerminal performs the status-guarded terminal write. The guard
// ensures at most one resolution succeeds under concurrency; the loser is
// classified as ErrAlreadyResolved rather than silently re-applied.
func (r *Repository) ResolveTerminal(ctx context.Context, tx pgx.Tx, id string, rt ResolutionType, resolution, adminNotes string) (Dispute, error) {
	const updateSQL = `
		UPDATE disputes
		SET status = 'resolved',
		    resolution_type = $2::dispute_resolution_type,
		    resolution = $3,
		    admin_notes = NULLIF($4, ''),
		    resolved_at = now(),
		    updated_at = now()
		WHERE id = $1 AND status <> 'resolved'
		RETURNING ` + disputeColumns

	d, err := scanDispute(tx.QueryRow(ctx, updateSQL, id, rt, resolution, adminNotes))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Dispute{}, fmt.Errorf("dispute: resolve: %w", err)
	}

	var status Status
	if err := tx.QueryRow(ctx, `SELECT status::text FROM disputes WHERE id = $1`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, fmt.Errorf("dispute: resolve fetch: %w", err)
	}
	if status == StatusResolved {
		return Dispute{}, ErrAlreadyResolved
	}
	return Dispute{}, ErrNotFound
}

// MessageParams enumerates the fields required to append a thread entry.
type MessageParams struct {
	DisputeID  string
	SenderID   string
	SenderRole fighter.Role
	Body       string
}

// InsertMessage appends a thread entry. It accepts either the pool or an
// open transaction so resolution messages commit with the resolution.
func (r *Repository) InsertMessage(ctx context.Context, db queryRower, params MessageParams) (Message, error) {
	if db == nil {
		db = r.pool
	}
	const insertSQL = `
		INSERT INTO dispute_messages (dispute_id, sender_id, sender_role, body)
		VALUES ($1, $2, $3::message_sender_role, $4)
		RETURNING id, dispute_id, sender_id, sender_role::text, body, created_at
	`

	var m Message
	err := db.QueryRow(ctx, insertSQL, params.DisputeID, params.SenderID, params.SenderRole, params.Body).
		Scan(&m.ID, &m.DisputeID, &m.SenderID, &m.SenderRole, &m.Body, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("dispute: insert message: %w", err)
	}
	return m, nil
}

// ListMessages returns the dispute thread in chronological order.
func (r *Repository) ListMessages(ctx context.Context, disputeID string) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dispute_id, sender_id, sender_role::text, body, created_at
		FROM dispute_messages
		WHERE dispute_id = $1
		ORDER BY created_at
	`, disputeID)
	if err != nil {
		return nil, fmt.Errorf("dispute: list messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, 8)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DisputeID, &m.SenderID, &m.SenderRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("dispute: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate messages: %w", err)
	}
	return out, nil
}

// CountOpen returns the number of non-terminal disputes.
func (r *Repository) CountOpen(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM disputes WHERE status <> 'resolved'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("dispute: count open: %w", err)
	}
	return n, nil
}

func scanDispute(row pgx.Row) (Dispute, error) {
	var d Dispute
	err := row.Scan(
		&d.ID,
		&d.DisputerID,
		&d.OpponentID,
		&d.OpponentName,
		&d.Category,
		&d.Reason,
		&d.EvidenceRefs,
		&d.FightID,
		&d.Status,
		&d.ResolutionType,
		&d.Resolution,
		&d.AdminNotes,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.ResolvedAt,
	)
	if err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func collectDisputes(rows pgx.Rows) ([]Dispute, error) {
	defer rows.Close()

	out := make([]Dispute, 0, 8)
	for rows.Next() {
		var d Dispute
		if err := rows.Scan(
			&d.ID,
			&d.DisputerID,
			&d.OpponentID,
			&d.OpponentName,
			&d.Category,
			&d.Reason,
			&d.EvidenceRefs,
			&d.FightID,
			&d.Status,
			&d.ResolutionType,
			&d.Resolution,
			&d.AdminNotes,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	return out, nil
}
