package dispute

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"fightleague/fighter"
)

func TestOpen_Validation(t *testing.T) {
	svc := NewService(&fakePool{}, &fakeLifecycleStore{}, adminDirectory(), &fakeOutbox{})

	cases := []struct {
		name   string
		params OpenParams
	}{
		{"missing disputer", OpenParams{Reason: "r", Category: CategoryDoping}},
		{"missing reason", OpenParams{DisputerID: "fighter-a", Category: CategoryDoping}},
		{"unknown category", OpenParams{DisputerID: "fighter-a", Reason: "r", Category: Category("vibes")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Open(context.Background(), tc.params); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestOpen_Success(t *testing.T) {
	pool := &fakePool{}
	store := &fakeLifecycleStore{}
	outbox := &fakeOutbox{}
	svc := NewService(pool, store, adminDirectory(), outbox)

	d, err := svc.Open(context.Background(), OpenParams{
		DisputerID:   "fighter-a",
		OpponentName: "Boris Kovac",
		Category:     CategoryFalseResult,
		Reason:       "judges scored the wrong fighter",
		EvidenceRefs: []string{"https://example.com/clip.mp4"},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if d.Status != StatusOpen {
		t.Errorf("expected new dispute to be open, got %q", d.Status)
	}
	if !pool.tx.committed {
		t.Errorf("expected commit")
	}
	if !outbox.hasTopic("dispute.opened") {
		t.Errorf("expected dispute.opened event")
	}
}

func TestOpen_UnknownDisputer(t *testing.T) {
	svc := NewService(&fakePool{}, &fakeLifecycleStore{}, adminDirectory(), &fakeOutbox{})

	_, err := svc.Open(context.Background(), OpenParams{
		DisputerID: "ghost",
		Category:   CategoryNoShow,
		Reason:     "opponent never arrived",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkInReview_AdminOnly(t *testing.T) {
	store := &fakeLifecycleStore{disputes: map[string]Dispute{"dispute-1": openStoredDispute()}}
	svc := NewService(&fakePool{}, store, adminDirectory(), &fakeOutbox{})

	if err := svc.MarkInReview(context.Background(), "dispute-1", "fighter-a"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}
	if store.inReviewCalls != 0 {
		t.Errorf("expected no transition attempt")
	}
}

func TestMarkInReview_TransitionAndIdempotency(t *testing.T) {
	store := &fakeLifecycleStore{disputes: map[string]Dispute{"dispute-1": openStoredDispute()}}
	outbox := &fakeOutbox{}
	svc := NewService(&fakePool{}, store, adminDirectory(), outbox)

	if err := svc.MarkInReview(context.Background(), "dispute-1", "admin-1"); err != nil {
		t.Fatalf("expected transition, got %v", err)
	}
	if got := store.disputes["dispute-1"].Status; got != StatusInReview {
		t.Fatalf("expected in_review, got %q", got)
	}
	if !outbox.hasTopic("dispute.in_review") {
		t.Errorf("expected dispute.in_review event on actual transition")
	}

	// Second call is a no-op and emits nothing.
	before := len(outbox.topics)
	if err := svc.MarkInReview(context.Background(), "dispute-1", "admin-1"); err != nil {
		t.Fatalf("expected idempotent no-op, got %v", err)
	}
	if len(outbox.topics) != before {
		t.Errorf("expected no event on repeated call")
	}
}

func TestPostMessage_ResolvedDisputeIsClosed(t *testing.T) {
	d := openStoredDispute()
	d.Status = StatusResolved
	store := &fakeLifecycleStore{disputes: map[string]Dispute{"dispute-1": d}}
	svc := NewService(&fakePool{}, store, adminDirectory(), &fakeOutbox{})

	_, err := svc.PostMessage(context.Background(), "dispute-1", "fighter-a", "any update?")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPostMessage_AccessControl(t *testing.T) {
	store := &fakeLifecycleStore{disputes: map[string]Dispute{"dispute-1": openStoredDispute()}}
	svc := NewService(&fakePool{}, store, adminDirectory(), &fakeOutbox{})

	// A bystander may not write to the thread.
	if _, err := svc.PostMessage(context.Background(), "dispute-1", "no-admin-1", "popcorn"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bystander, got %v", err)
	}

	// Both parties and admins may.
	for _, sender := range []string{"fighter-a", "fighter-b", "admin-1"} {
		if _, err := svc.PostMessage(context.Background(), "dispute-1", sender, "noted"); err != nil {
			t.Fatalf("expected %s to post, got %v", sender, err)
		}
	}

	msgs := store.messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[2].SenderRole != fighter.RoleAdmin {
		t.Errorf("expected admin role on admin message, got %q", msgs[2].SenderRole)
	}
	if msgs[0].SenderRole != fighter.RoleFighter {
		t.Errorf("expected fighter role on party message, got %q", msgs[0].SenderRole)
	}
}

func TestView_AccessControl(t *testing.T) {
	store := &fakeLifecycleStore{disputes: map[string]Dispute{"dispute-1": openStoredDispute()}}
	svc := NewService(&fakePool{}, store, adminDirectory(), &fakeOutbox{})

	if _, _, err := svc.View(context.Background(), "dispute-1", "no-admin-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bystander, got %v", err)
	}

	d, _, err := svc.View(context.Background(), "dispute-1", "fighter-b")
	if err != nil {
		t.Fatalf("expected opponent to view, got %v", err)
	}
	// Viewing never advances the lifecycle.
	if d.Status != StatusOpen || store.disputes["dispute-1"].Status != StatusOpen {
		t.Errorf("expected view to leave status untouched")
	}
}

func openStoredDispute() Dispute {
	opp := "fighter-b"
	return Dispute{
		ID:         "dispute-1",
		DisputerID: "fighter-a",
		OpponentID: &opp,
		Category:   CategoryFalseResult,
		Reason:     "wrong call",
		Status:     StatusOpen,
	}
}

type fakeLifecycleStore struct {
	disputes      map[string]Dispute
	messages      []MessageParams
	inReviewCalls int
}

func (f *fakeLifecycleStore) Create(ctx context.Context, tx pgx.Tx, params CreateParams) (Dispute, error) {
	d := Dispute{
		ID:         "dispute-new",
		DisputerID: params.DisputerID,
		Category:   params.Category,
		Reason:     params.Reason,
		Status:     StatusOpen,
	}
	if params.OpponentID != "" {
		opp := params.OpponentID
		d.OpponentID = &opp
	}
	if f.disputes == nil {
		f.disputes = map[string]Dispute{}
	}
	f.disputes[d.ID] = d
	return d, nil
}

func (f *fakeLifecycleStore) GetByID(ctx context.Context, id string) (Dispute, error) {
	d, ok := f.disputes[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	return d, nil
}

func (f *fakeLifecycleStore) ListForFighter(ctx context.Context, fighterID string) ([]Dispute, error) {
	var out []Dispute
	for _, d := range f.disputes {
		if d.DisputerID == fighterID || (d.OpponentID != nil && *d.OpponentID == fighterID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeLifecycleStore) ListByStatus(ctx context.Context, status Status) ([]Dispute, error) {
	var out []Dispute
	for _, d := range f.disputes {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeLifecycleStore) MarkInReview(ctx context.Context, id string) (bool, error) {
	f.inReviewCalls++
	d, ok := f.disputes[id]
	if !ok {
		return false, ErrNotFound
	}
	if d.Status != StatusOpen {
		return false, nil
	}
	d.Status = StatusInReview
	f.disputes[id] = d
	return true, nil
}

func (f *fakeLifecycleStore) InsertMessage(ctx context.Context, db queryRower, params MessageParams) (Message, error) {
	f.messages = append(f.messages, params)
	return Message{ID: "msg", DisputeID: params.DisputeID, SenderID: params.SenderID, SenderRole: params.SenderRole, Body: params.Body}, nil
}

func (f *fakeLifecycleStore) ListMessages(ctx context.Context, disputeID string) ([]Message, error) {
	var out []Message
	for _, m := range f.messages {
		if m.DisputeID == disputeID {
			out = append(out, Message{DisputeID: m.DisputeID, SenderID: m.SenderID, SenderRole: m.SenderRole, Body: m.Body})
		}
	}
	return out, nil
}
