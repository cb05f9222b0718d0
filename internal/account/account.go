package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"newsrelay/internal/auth"
	"newsrelay/internal/database"
	"newsrelay/internal/domain"

	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input limit
	maxUsernameLen = 64
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = database.ErrEmailTaken
	ErrNotFound           = database.ErrNotFound
)

// ValidationError describes a rejected registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Store is the persistence the service needs.
type Store interface {
	CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
	GetAccountByID(ctx context.Context, id int64) (domain.Account, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Country  string
}

// Session is the result of a successful login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Account   domain.Account `json:"account"`
}

type Service struct {
	store  Store
	issuer *auth.Issuer
	log    *slog.Logger
}

func NewService(store Store, issuer *auth.Issuer, log *slog.Logger) *Service {
	return &Service{store: store, issuer: issuer, log: log}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	if err := validateInput(&in); err != nil {
		return domain.Account{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.Account{}, err
	}

	a, err := s.store.CreateAccount(ctx, domain.Account{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Country:      in.Country,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return domain.Account{}, err
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.log.InfoContext(ctx, "Account registered", "accountID", a.ID)

	return a, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	a, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("get account: %w", err)
	}

	if !auth.CheckPassword(a.PasswordHash, password) {
		s.log.WarnContext(ctx, "Login with wrong password", "accountID", a.ID)
		return Session{}, ErrInvalidCredentials
	}

	tok, err := s.issuer.Issue(auth.Identity{AccountID: a.ID, Email: a.Email})
	if err != nil {
		return Session{}, err
	}

	return Session{Token: tok.Value, ExpiresAt: tok.ExpiresAt, Account: a}, nil
}

// Authenticate resolves a bearer token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Account, error) {
	id, err := s.issuer.Verify(token)
	if err != nil {
		return domain.Account{}, err
	}

	a, err := s.store.GetAccountByID(ctx, id.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Account{}, fmt.Errorf("%w: account is gone", auth.ErrInvalidToken)
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	if a.Email != id.Email {
		return domain.Account{}, fmt.Errorf("%w: email does not match account", auth.ErrInvalidToken)
	}

	return a, nil
}

func validateInput(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Country = strings.ToLower(strings.TrimSpace(in.Country))

	if in.Username == "" {
		return &ValidationError{Field: "username", Reason: "is required"}
	}
	if validate.Var(in.Username, fmt.Sprintf("max=%d", maxUsernameLen)) != nil {
		return &ValidationError{Field: "username", Reason: fmt.Sprintf("must be at most %d characters", maxUsernameLen)}
	}

	if validate.Var(in.Email, "required,email") != nil {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}

	if utf8.RuneCountInString(in.Password) < MinPasswordLen {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLen)}
	}
	if len(in.Password) > maxPasswordLen {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordLen)}
	}

	if validate.Var(in.Country, "omitempty,len=2,alpha") != nil {
		return &ValidationError{Field: "country", Reason: "must be a two-letter code"}
	}

	return nil
}
