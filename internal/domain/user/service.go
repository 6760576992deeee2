package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"velvet-server/internal/utils/idgen"
	"velvet-server/internal/utils/platformerrors"
)

const (
	publicIDLength    = 16
	minPasswordLength = 8
	maxPasswordLength = 128
	maxUsernameLength = 100
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Session is the result of a successful login or registration.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// Service implements account operations on top of a Repository.
type Service struct {
	repo       Repository
	tokens     TokenManager
	bcryptCost int
}

func NewService(repo Repository, tokens TokenManager, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates an account and returns a live session. Email comparison is
// case-insensitive so the address is normalized to lowercase before storage.
func (s *Service) Register(ctx context.Context, email, username, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if err := validateCredentials(ctx, email, username, password); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"email already registered", nil, "")
	} else if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to hash password", err, "")
	}

	publicID, err := idgen.GenerateSecureID("user", publicIDLength)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate user id", err, "")
	}

	u := &User{
		PublicID:     publicID,
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return s.newSession(ctx, u)
}

// Login verifies credentials and returns a live session. Unknown email, wrong
// password and deactivated account all yield the same UNAUTHORIZED error so
// the response does not reveal which part failed.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, invalidCredentials(ctx)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, invalidCredentials(ctx)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, invalidCredentials(ctx)
	}

	return s.newSession(ctx, u)
}

// VerifyToken resolves a bearer token to the account it was issued for.
func (s *Service) VerifyToken(ctx context.Context, token string) (*User, error) {
	publicID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"invalid or expired token", err, "")
	}

	u, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
				"invalid or expired token", nil, "")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"account is deactivated", nil, "")
	}
	return u, nil
}

// GetProfile returns the account for a user public id.
func (s *Service) GetProfile(ctx context.Context, publicID string) (*User, error) {
	return s.repo.FindByPublicID(ctx, publicID)
}

// UpdateProfile changes the username of an account.
func (s *Service) UpdateProfile(ctx context.Context, publicID, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"username must be between 1 and 100 characters", nil, "")
	}

	u, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	u.Username = username
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) newSession(ctx context.Context, u *User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(u.PublicID)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to issue token", err, "")
	}
	return &Session{User: u, Token: token, ExpiresAt: expiresAt}, nil
}

func validateCredentials(ctx context.Context, email, username, password string) error {
	if !emailPattern.MatchString(email) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"invalid email address", nil, "")
	}
	if username == "" || len(username) > maxUsernameLength {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"username must be between 1 and 100 characters", nil, "")
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"password must be between 8 and 128 characters", nil, "")
	}
	return nil
}

func invalidCredentials(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
		"invalid email or password", nil, "")
}
