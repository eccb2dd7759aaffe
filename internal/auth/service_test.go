package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amagraneronline/curso-python/internal/auth"
)

func newService(t *testing.T) (*auth.Service, *auth.MemoryAccountRepository) {
	t.Helper()
	repo := auth.NewMemoryAccountRepository()
	sessions := auth.NewMemorySessionStore(time.Hour)
	return auth.NewService(repo, sessions, bcrypt.MinCost), repo
}

func register(t *testing.T, svc *auth.Service, email, role string) *auth.Session {
	t.Helper()
	sess, err := svc.Register(context.Background(), auth.RegisterRequest{
		Name:     "Ana",
		Email:    email,
		Password: "secreto123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return sess
}

func TestRegister(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	sess := register(t, svc, "ana@example.com", "")

	if sess.Token == "" {
		t.Error("Register() should open a session")
	}
	if sess.Account.Role != auth.RoleLearner {
		t.Errorf("Role = %q, want learner", sess.Account.Role)
	}
	if sess.Account.ID == "" {
		t.Error("ID should be assigned")
	}

	stored, err := repo.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if stored.PasswordHash == "secreto123" || stored.PasswordHash == "" {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", stored.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreto123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	got, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != sess.Account.ID {
		t.Errorf("Authenticate() = %q, want %q", got.ID, sess.Account.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, repo := newService(t)
	register(t, svc, "ana@example.com", "learner")

	_, err := svc.Register(context.Background(), auth.RegisterRequest{
		Name:     "Otra Ana",
		Email:    "ana@example.com",
		Password: "distinta99",
	})
	if !errors.Is(err, auth.ErrDuplicateEmail) {
		t.Fatalf("Register() error = %v, want ErrDuplicateEmail", err)
	}
	if repo.Len() != 1 {
		t.Errorf("accounts = %d, want 1 (no duplicate appended)", repo.Len())
	}
}

func TestRegister_LegacyRoles(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		role string
		want auth.Role
	}{
		{"student", auth.RoleLearner},
		{"teacher", auth.RoleInstructor},
		{"Instructor", auth.RoleInstructor},
	}
	for i, tt := range tests {
		sess := register(t, svc, string(rune('a'+i))+"@example.com", tt.role)
		if sess.Account.Role != tt.want {
			t.Errorf("role %q mapped to %q, want %q", tt.role, sess.Account.Role, tt.want)
		}
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name string
		req  auth.RegisterRequest
	}{
		{"missing name", auth.RegisterRequest{Email: "a@b.c", Password: "secreto123"}},
		{"missing email", auth.RegisterRequest{Name: "A", Password: "secreto123"}},
		{"malformed email", auth.RegisterRequest{Name: "A", Email: "ab.c", Password: "secreto123"}},
		{"short password", auth.RegisterRequest{Name: "A", Email: "a@b.c", Password: "123"}},
		{"unknown role", auth.RegisterRequest{Name: "A", Email: "a@b.c", Password: "secreto123", Role: "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			if !errors.Is(err, auth.ErrInvalidInput) {
				t.Errorf("Register() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "ana@example.com", "learner")

	sess, err := svc.Login(ctx, "ana@example.com", "secreto123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.Token == "" || sess.Account.Email != "ana@example.com" {
		t.Errorf("Login() = %+v", sess)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "ana@example.com", "otra-clave"},
		{"unknown email", "nadie@example.com", "secreto123"},
		{"email is case sensitive", "ANA@example.com", "secreto123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	sess := register(t, svc, "ana@example.com", "")

	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("Authenticate() after logout error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.Authenticate(ctx, ""); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("Authenticate(\"\") error = %v, want ErrSessionNotFound", err)
	}
}

func TestLearners(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "ana@example.com", "learner")
	register(t, svc, "profe@example.com", "instructor")

	learners, err := svc.Learners(context.Background())
	if err != nil {
		t.Fatalf("Learners() error = %v", err)
	}
	if len(learners) != 1 || learners[0].Email != "ana@example.com" {
		t.Errorf("Learners() = %+v, want only the learner", learners)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    auth.Role
		wantErr bool
	}{
		{"", auth.RoleLearner, false},
		{"learner", auth.RoleLearner, false},
		{" Student ", auth.RoleLearner, false},
		{"teacher", auth.RoleInstructor, false},
		{"root", "", true},
	}
	for _, tt := range tests {
		got, err := auth.ParseRole(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
