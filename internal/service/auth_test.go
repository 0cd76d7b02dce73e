package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/issuetracker/internal/apperr"
	"github.com/atinyakov/issuetracker/internal/models"
	"github.com/atinyakov/issuetracker/internal/token"
)

type mockAuthRepo struct {
	CreateUserFunc     func(ctx context.Context, u models.User) (models.User, error)
	GetUserByEmailFunc func(ctx context.Context, email string) (models.User, error)
	GetUserByIDFunc    func(ctx context.Context, id string) (models.User, error)
	RevokeTokenFunc    func(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *mockAuthRepo) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockAuthRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return m.GetUserByEmailFunc(ctx, email)
}
func (m *mockAuthRepo) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return m.GetUserByIDFunc(ctx, id)
}
func (m *mockAuthRepo) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	return m.RevokeTokenFunc(ctx, jti, expiresAt)
}
func (m *mockAuthRepo) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return m.IsTokenRevokedFunc(ctx, jti)
}

func newTokens(t *testing.T, now func() time.Time) *token.Manager {
	t.Helper()
	m, err := token.NewManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, token.WithClock(now))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func hashed(t *testing.T, password string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return h
}

var alice = models.User{ID: "u-1", Username: "alice", Email: "alice@example.com"}

func TestRegister_Success(t *testing.T) {
	var stored models.User
	repo := &mockAuthRepo{
		CreateUserFunc: func(ctx context.Context, u models.User) (models.User, error) {
			stored = u
			u.ID = "u-1"
			return u, nil
		},
	}
	tokens := newTokens(t, time.Now)
	svc := NewAuthService(repo, tokens, WithHashCost(bcrypt.MinCost))

	user, raw, err := svc.Register(context.Background(), "  alice ", "Alice@Example.COM", "secret1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID != "u-1" || user.Username != "alice" || user.Email != "alice@example.com" {
		t.Errorf("unexpected user %+v", user)
	}
	if bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("secret1")) != nil {
		t.Error("password was not hashed with bcrypt")
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID() != "u-1" {
		t.Errorf("token subject = %q", claims.UserID())
	}
}

func TestRegister_Validation(t *testing.T) {
	repo := &mockAuthRepo{
		CreateUserFunc: func(ctx context.Context, u models.User) (models.User, error) {
			t.Fatal("CreateUser must not be called on invalid input")
			return u, nil
		},
	}
	svc := NewAuthService(repo, newTokens(t, time.Now), WithHashCost(bcrypt.MinCost))

	cases := []struct {
		name, username, email, password string
	}{
		{"short username", "al", "a@b.io", "secret1"},
		{"long username", string(make([]byte, 51)), "a@b.io", "secret1"},
		{"bad email", "alice", "not-an-email", "secret1"},
		{"display name email", "alice", "Alice <a@b.io>", "secret1"},
		{"short password", "alice", "a@b.io", "12345"},
		{"long password", "alice", "a@b.io", string(make([]byte, 73))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Register error = %v; want validation error", err)
			}
		})
	}
}

func TestRegister_DuplicatePassesThrough(t *testing.T) {
	dup := apperr.Validation("email is already registered")
	repo := &mockAuthRepo{
		CreateUserFunc: func(ctx context.Context, u models.User) (models.User, error) {
			return models.User{}, dup
		},
	}
	svc := NewAuthService(repo, newTokens(t, time.Now), WithHashCost(bcrypt.MinCost))

	_, _, err := svc.Register(context.Background(), "alice", "a@b.io", "secret1")
	if err != dup {
		t.Fatalf("Register error = %v; want %v", err, dup)
	}
}

func TestLogin(t *testing.T) {
	stored := alice
	stored.PasswordHash = hashed(t, "secret1")
	repo := &mockAuthRepo{
		GetUserByEmailFunc: func(ctx context.Context, email string) (models.User, error) {
			if email == "alice@example.com" {
				return stored, nil
			}
			return models.User{}, apperr.NotFound("user")
		},
	}
	svc := NewAuthService(repo, newTokens(t, time.Now))

	user, raw, err := svc.Login(context.Background(), " ALICE@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != "u-1" || raw == "" {
		t.Errorf("Login = %+v, %q", user, raw)
	}

	cases := []struct{ email, password string }{
		{"alice@example.com", "wrong-password"},
		{"nobody@example.com", "secret1"},
	}
	for _, tc := range cases {
		_, _, err := svc.Login(context.Background(), tc.email, tc.password)
		if !errors.Is(err, apperr.ErrAuth) {
			t.Errorf("Login(%q) error = %v; want auth error", tc.email, err)
		}
		if apperr.Detail(err) != "invalid email or password" {
			t.Errorf("Login(%q) detail = %q", tc.email, apperr.Detail(err))
		}
	}

	if _, _, err := svc.Login(context.Background(), "", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty login error = %v; want validation error", err)
	}
}

func TestLogin_RepoError(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockAuthRepo{
		GetUserByEmailFunc: func(ctx context.Context, email string) (models.User, error) {
			return models.User{}, boom
		},
	}
	svc := NewAuthService(repo, newTokens(t, time.Now))

	if _, _, err := svc.Login(context.Background(), "a@b.io", "secret1"); err != boom {
		t.Fatalf("Login error = %v; want %v", err, boom)
	}
}

func TestVerify(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tokens := newTokens(t, clock)
	raw, issued, err := tokens.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}

	revoked := map[string]bool{}
	users := map[string]models.User{"u-1": alice}
	repo := &mockAuthRepo{
		IsTokenRevokedFunc: func(ctx context.Context, jti string) (bool, error) { return revoked[jti], nil },
		GetUserByIDFunc: func(ctx context.Context, id string) (models.User, error) {
			if u, ok := users[id]; ok {
				return u, nil
			}
			return models.User{}, apperr.NotFound("user")
		},
	}
	svc := NewAuthService(repo, tokens)

	user, claims, err := svc.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if user.Username != "alice" || claims.ID != issued.ID {
		t.Errorf("Verify = %+v, %+v", user, claims)
	}

	if _, _, err := svc.Verify(context.Background(), "garbage"); !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("garbage token error = %v; want auth error", err)
	}

	revoked[issued.ID] = true
	if _, _, err := svc.Verify(context.Background(), raw); apperr.Detail(err) != "token revoked" {
		t.Errorf("revoked token error = %v", err)
	}
	revoked[issued.ID] = false

	delete(users, "u-1")
	if _, _, err := svc.Verify(context.Background(), raw); apperr.Detail(err) != "user no longer exists" {
		t.Errorf("deleted user error = %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, _, err := svc.Verify(context.Background(), raw); apperr.Detail(err) != "token expired" {
		t.Errorf("expired token error = %v", err)
	}
}

func TestLogout(t *testing.T) {
	tokens := newTokens(t, time.Now)
	raw, issued, err := tokens.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}

	var gotJTI string
	var gotExp time.Time
	repo := &mockAuthRepo{
		RevokeTokenFunc: func(ctx context.Context, jti string, expiresAt time.Time) error {
			gotJTI, gotExp = jti, expiresAt
			return nil
		},
	}
	svc := NewAuthService(repo, tokens)

	if err := svc.Logout(context.Background(), raw); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if gotJTI != issued.ID || !gotExp.Equal(issued.ExpiresAtTime()) {
		t.Errorf("RevokeToken(%q, %v); want (%q, %v)", gotJTI, gotExp, issued.ID, issued.ExpiresAtTime())
	}

	gotJTI = ""
	if err := svc.Logout(context.Background(), "garbage"); err != nil {
		t.Errorf("Logout with bad token returned %v; want nil", err)
	}
	if gotJTI != "" {
		t.Error("bad token must not be revoked")
	}
}
