package dispute

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fightleague/fighter"
	"fightleague/metrics"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the repository surface the service consumes.
type Store interface {
	Create(ctx context.Context, tx pgx.Tx, params CreateParams) (Dispute, error)
	GetByID(ctx context.Context, id string) (Dispute, error)
	ListForFighter(ctx context.Context, fighterID string) ([]Dispute, error)
	ListByStatus(ctx context.Context, status Status) ([]Dispute, error)
	MarkInReview(ctx context.Context, id string) (bool, error)
	InsertMessage(ctx context.Context, db queryRower, params MessageParams) (Message, error)
	ListMessages(ctx context.Context, disputeID string) ([]Message, error)
}

// OutboxWriter appends notification events in the same transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service governs the dispute lifecycle outside of resolution: opening,
// viewing, the explicit in-review transition, and the message thread.
type Service struct {
	pool      TxBeginner
	repo      Store
	directory FighterDirectory
	outbox    OutboxWriter
}

func NewService(pool TxBeginner, repo Store, directory FighterDirectory, outbox OutboxWriter) *Service {
	return &Service{
		pool:      pool,
		repo:      repo,
		directory: directory,
		outbox:    outbox,
	}
}

// OpenParams carries a fighter's request to contest a result. The opponent
// may be named by id, by display name, or implied by the linked fight.
type OpenParams struct {
	DisputerID   string
	OpponentID   string
	OpponentName string
	Category     Category
	Reason       string
	EvidenceRefs []string
	FightID      string
}

// Open creates a new dispute with initial status open.
func (s *Service) Open(ctx context.Context, params OpenParams) (Dispute, error) {
	if params.DisputerID == "" {
		return Dispute{}, fmt.Errorf("%w: missing disputer id", ErrValidation)
	}
	if params.Reason == "" {
		return Dispute{}, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if !IsValidCategory(params.Category) {
		return Dispute{}, fmt.Errorf("%w: unknown category %q", ErrValidation, params.Category)
	}

	disputer, err := s.directory.GetByID(ctx, params.DisputerID)
	if err != nil {
		if errors.Is(err, fighter.ErrNotFound) {
			return Dispute{}, ErrNotFound
		}
		return Dispute{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Dispute{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	d, err := s.repo.Create(ctx, tx, CreateParams{
		DisputerID:   disputer.ID,
		OpponentID:   params.OpponentID,
		OpponentName: params.OpponentName,
		Category:     params.Category,
		Reason:       params.Reason,
		EvidenceRefs: params.EvidenceRefs,
		FightID:      params.FightID,
	})
	if err != nil {
		return Dispute{}, err
	}

	if s.outbox != nil {
		payload := map[string]any{
			"dispute_id":  d.ID,
			"disputer_id": d.DisputerID,
			"category":    string(d.Category),
		}
		if err := s.outbox.Enqueue(ctx, tx, "dispute.opened", payload); err != nil {
			return Dispute{}, fmt.Errorf("dispute: enqueue opened event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Dispute{}, fmt.Errorf("dispute: commit open: %w", err)
	}

	return d, nil
}

// View returns the dispute and its thread. Viewing never mutates state; the
// in-review transition is the explicit MarkInReview call.
func (s *Service) View(ctx context.Context, disputeID, viewerID string) (Dispute, []Message, error) {
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Dispute{}, nil, err
	}

	viewer, err := s.directory.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, fighter.ErrNotFound) {
			return Dispute{}, nil, ErrUnauthorized
		}
		return Dispute{}, nil, err
	}
	if !canAccess(d, viewer) {
		return Dispute{}, nil, ErrUnauthorized
	}

	msgs, err := s.repo.ListMessages(ctx, disputeID)
	if err != nil {
		return Dispute{}, nil, err
	}
	return d, msgs, nil
}

// MarkInReview advances an open dispute to in_review on behalf of an
// administrator. Repeated calls are idempotent no-ops.
func (s *Service) MarkInReview(ctx context.Context, disputeID, adminID string) error {
	admin, err := s.directory.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, fighter.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if !admin.IsAdmin() {
		return ErrUnauthorized
	}

	transitioned, err := s.repo.MarkInReview(ctx, disputeID)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	if s.outbox != nil {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("dispute: begin event tx: %w", err)
		}
		defer tx.Rollback(ctx)

		payload := map[string]any{"dispute_id": disputeID, "admin_id": adminID}
		if err := s.outbox.Enqueue(ctx, tx, "dispute.in_review", payload); err != nil {
			return fmt.Errorf("dispute: enqueue in-review event: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("dispute: commit event: %w", err)
		}
	}
	return nil
}

// PostMessage appends a thread entry while the dispute is non-terminal.
// Only the two parties and administrators may write.
func (s *Service) PostMessage(ctx context.Context, disputeID, senderID, body string) (Message, error) {
	if body == "" {
		return Message{}, fmt.Errorf("%w: empty message body", ErrValidation)
	}

	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Message{}, err
	}
	if d.Status == StatusResolved {
		return Message{}, fmt.Errorf("dispute: message on resolved dispute: %w", ErrInvalidTransition)
	}

	sender, err := s.directory.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, fighter.ErrNotFound) {
			return Message{}, ErrUnauthorized
		}
		return Message{}, err
	}
	if !canAccess(d, sender) {
		return Message{}, ErrUnauthorized
	}

	role := fighter.RoleFighter
	if sender.IsAdmin() {
		role = fighter.RoleAdmin
	}

	return s.repo.InsertMessage(ctx, nil, MessageParams{
		DisputeID:  disputeID,
		SenderID:   senderID,
		SenderRole: role,
		Body:       body,
	})
}

// ListForFighter returns the fighter's disputes, either side of the table.
func (s *Service) ListForFighter(ctx context.Context, fighterID string) ([]Dispute, error) {
	return s.repo.ListForFighter(ctx, fighterID)
}

// Queue returns the admin work queue for the given status.
func (s *Service) Queue(ctx context.Context, status Status) ([]Dispute, error) {
	disputes, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if status == StatusOpen {
		metrics.SetOpenDisputes(len(disputes))
	}
	return disputes, nil
}

func canAccess(d Dispute, acct fighter.Account) bool {
	if acct.IsAdmin() {
		return true
	}
	if acct.ID == d.DisputerID {
		return true
	}
	return d.OpponentID != nil && acct.ID == *d.OpponentID
}
