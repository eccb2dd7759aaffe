package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcrypt input limit
)

// Service handles registration, login and session lookup.
type Service struct {
	accounts   AccountRepository
	sessions   SessionStore
	bcryptCost int
	now        func() time.Time
}

// NewService creates an auth service. A cost of 0 uses bcrypt.DefaultCost.
func NewService(accounts AccountRepository, sessions SessionStore, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		accounts:   accounts,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// RegisterRequest contains registration data.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Session is an authenticated account with its token.
type Session struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// Register creates an account and opens a session for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d to %d characters", ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate account ID: %w", err)
	}

	account := Account{
		ID:           id.String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	// The repository enforces uniqueness too, for concurrent registrations.
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	slog.Info("account registered", "account_id", account.ID, "role", account.Role)
	return s.openSession(ctx, &account)
}

// Login checks credentials and opens a session. Unknown email and wrong
// password return the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(ctx, account)
}

func (s *Service) openSession(ctx context.Context, account *Account) (*Session, error) {
	token, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Session{Token: token, Account: account}, nil
}

// Authenticate resolves a session token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	accountID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// Logout ends a session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Account returns an account by id.
func (s *Service) Account(ctx context.Context, id string) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// Learners lists every learner account ordered by name.
func (s *Service) Learners(ctx context.Context) ([]Account, error) {
	return s.accounts.ListByRole(ctx, RoleLearner)
}
