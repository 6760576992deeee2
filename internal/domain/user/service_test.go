package user_test

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"velvet-server/internal/domain/user"
	"velvet-server/internal/utils/platformerrors"
)

type mockRepo struct {
	createFunc       func(ctx context.Context, u *user.User) error
	findByEmailFunc  func(ctx context.Context, email string) (*user.User, error)
	findByPublicFunc func(ctx context.Context, publicID string) (*user.User, error)
	updateFunc       func(ctx context.Context, u *user.User) error
}

func (m *mockRepo) Create(ctx context.Context, u *user.User) error { return m.createFunc(ctx, u) }

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockRepo) FindByPublicID(ctx context.Context, publicID string) (*user.User, error) {
	return m.findByPublicFunc(ctx, publicID)
}

func (m *mockRepo) Update(ctx context.Context, u *user.User) error { return m.updateFunc(ctx, u) }

type mockTokens struct {
	issueFunc  func(userPublicID string) (string, time.Time, error)
	verifyFunc func(token string) (string, error)
}

func (m *mockTokens) Issue(userPublicID string) (string, time.Time, error) {
	return m.issueFunc(userPublicID)
}

func (m *mockTokens) Verify(token string) (string, error) { return m.verifyFunc(token) }

func notFound() error {
	return platformerrors.NewError(context.Background(), platformerrors.LayerRepository,
		platformerrors.ErrorTypeNotFound, "user not found", nil, "")
}

func staticTokens() *mockTokens {
	return &mockTokens{
		issueFunc: func(userPublicID string) (string, time.Time, error) {
			return "tok-" + userPublicID, time.Now().Add(time.Hour), nil
		},
		verifyFunc: func(token string) (string, error) { return "", nil },
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	var created *user.User
	repo := &mockRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return nil, notFound()
		},
		createFunc: func(ctx context.Context, u *user.User) error {
			created = u
			return nil
		},
	}
	svc := user.NewService(repo, staticTokens(), bcrypt.MinCost)

	sess, err := svc.Register(context.Background(), "  Alice@Example.COM ", "alice", "sup3rsecret")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("email not normalized, got %q", created.Email)
	}
	if created.PasswordHash == "sup3rsecret" || created.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
	if !created.IsActive {
		t.Error("new account should be active")
	}
	if sess.Token == "" {
		t.Error("expected session token")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := &mockRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return &user.User{Email: email}, nil
		},
	}
	svc := user.NewService(repo, staticTokens(), bcrypt.MinCost)

	_, err := svc.Register(context.Background(), "alice@example.com", "alice", "sup3rsecret")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterSurfacesConflictFromConcurrentInsert(t *testing.T) {
	// The email pre-check races with concurrent registrations, the unique
	// index is the real guard. A duplicate-key insert must come back as a
	// conflict, not an internal error.
	repo := &mockRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return nil, notFound()
		},
		createFunc: func(ctx context.Context, u *user.User) error {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository,
				platformerrors.ErrorTypeConflict, "email already registered", nil, "")
		},
	}
	svc := user.NewService(repo, staticTokens(), bcrypt.MinCost)

	_, err := svc.Register(context.Background(), "alice@example.com", "alice", "sup3rsecret")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := user.NewService(&mockRepo{}, staticTokens(), bcrypt.MinCost)

	cases := []struct {
		name     string
		email    string
		username string
		password string
	}{
		{"bad email", "not-an-email", "alice", "sup3rsecret"},
		{"empty username", "alice@example.com", "   ", "sup3rsecret"},
		{"short password", "alice@example.com", "alice", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.email, tc.username, tc.password)
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	accounts := map[string]*user.User{
		"known@example.com":    {PublicID: "user_known", Email: "known@example.com", PasswordHash: string(hash), IsActive: true},
		"inactive@example.com": {PublicID: "user_inactive", Email: "inactive@example.com", PasswordHash: string(hash), IsActive: false},
	}
	repo := &mockRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			if u, ok := accounts[email]; ok {
				return u, nil
			}
			return nil, notFound()
		},
	}
	svc := user.NewService(repo, staticTokens(), bcrypt.MinCost)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "rightpassword"},
		{"wrong password", "known@example.com", "wrongpassword"},
		{"deactivated account", "inactive@example.com", "rightpassword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			pe := platformerrors.GetPlatformError(err)
			if pe == nil || pe.Type != platformerrors.ErrorTypeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if pe.Message != "invalid email or password" {
				t.Errorf("login failure leaks cause: %q", pe.Message)
			}
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	repo := &mockRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
			return &user.User{PublicID: "user_known", Email: email, PasswordHash: string(hash), IsActive: true}, nil
		},
	}
	svc := user.NewService(repo, staticTokens(), bcrypt.MinCost)

	sess, err := svc.Login(context.Background(), "Known@Example.com", "rightpassword")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if sess.Token != "tok-user_known" {
		t.Errorf("unexpected token %q", sess.Token)
	}
}

func TestVerifyTokenRejectsDeactivated(t *testing.T) {
	repo := &mockRepo{
		findByPublicFunc: func(ctx context.Context, publicID string) (*user.User, error) {
			return &user.User{PublicID: publicID, IsActive: false}, nil
		},
	}
	tokens := &mockTokens{
		verifyFunc: func(token string) (string, error) { return "user_x", nil },
	}
	svc := user.NewService(repo, tokens, bcrypt.MinCost)

	_, err := svc.VerifyToken(context.Background(), "sometoken")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	var updated *user.User
	repo := &mockRepo{
		findByPublicFunc: func(ctx context.Context, publicID string) (*user.User, error) {
			return &user.User{PublicID: publicID, Username: "old"}, nil
		},
		updateFunc: func(ctx context.Context, u *user.User) error {
			updated = u
			return nil
		},
	}
	svc := user.NewService(repo, staticTokens(), bcrypt.MinCost)

	u, err := svc.UpdateProfile(context.Background(), "user_x", "  newname ")
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if u.Username != "newname" || updated == nil {
		t.Errorf("username not updated, got %+v", u)
	}
}
