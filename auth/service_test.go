package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fightleague/fighter"
	"fightleague/progression"
)

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Email:       "rocky@example.com",
		Password:    "supersafe",
		DisplayName: "Rocky Graziano",
	}

	ctx := context.Background()
	acct, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if acct.Email != req.Email {
		t.Fatalf("expected email %q got %q", req.Email, acct.Email)
	}
	if acct.Role != fighter.RoleFighter {
		t.Fatalf("register: expected default role %s got %s", fighter.RoleFighter, acct.Role)
	}
	if acct.Tier != progression.TierAmateur {
		t.Fatalf("register: expected starting tier %s got %s", progression.TierAmateur, acct.Tier)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.Account.ID != acct.ID {
		t.Fatalf("login: expected account id %q got %q", acct.ID, resp.Account.ID)
	}

	tokenID, tokenRole, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenID != acct.ID {
		t.Fatalf("verify token: expected %q got %q", acct.ID, tokenID)
	}
	if tokenRole != fighter.RoleFighter {
		t.Fatalf("verify token: expected role %s got %s", fighter.RoleFighter, tokenRole)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "rocky@example.com",
		Password:    "short",
		DisplayName: "Rocky Graziano",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "",
		Password:    "strongpassword",
		DisplayName: "",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "judge@example.com",
		Password:    "strongpassword",
		DisplayName: "Judge",
		Role:        "commissioner",
	}); err == nil {
		t.Fatal("expected validation error for unknown role")
	}
}

func TestService_DuplicateAccount(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Email:       "rocky@example.com",
		Password:    "strongpassword",
		DisplayName: "Rocky Graziano",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "unknown@example.com",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

type fakeRepository struct {
	byEmail map[string]fighter.Account
	byID    map[string]fighter.Account
	nextID  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byEmail: make(map[string]fighter.Account),
		byID:    make(map[string]fighter.Account),
		nextID:  1,
	}
}

func (f *fakeRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (fighter.Account, error) {
	if _, exists := f.byEmail[strings.ToLower(params.Email)]; exists {
		return fighter.Account{}, ErrDuplicateAccount
	}

	id := fmt.Sprintf("fighter-%d", f.nextID)
	f.nextID++
	role := params.Role
	if role == "" {
		role = fighter.RoleFighter
	}

	acct := fighter.Account{
		ID:           id,
		Email:        params.Email,
		DisplayName:  params.DisplayName,
		PasswordHash: params.PasswordHash,
		Role:         role,
		Tier:         progression.TierAmateur,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	f.byEmail[strings.ToLower(acct.Email)] = acct
	f.byID[acct.ID] = acct

	return acct, nil
}

func (f *fakeRepository) GetByEmail(ctx context.Context, email string) (fighter.Account, error) {
	acct, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return fighter.Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id string) (fighter.Account, error) {
	acct, ok := f.byID[id]
	if !ok {
		return fighter.Account{}, ErrAccountNotFound
	}
	return acct, nil
}
