package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newsrelay/internal/auth"
	"newsrelay/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.New(context.Background(), database.Config{
		DSN: filepath.Join(t.TempDir(), "accounts.db"),
	}, log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewService(db, auth.NewIssuer("test-secret"), log)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{
		Username: " reader ",
		Email:    "Reader@Example.com",
		Password: "longenough",
		Country:  "DE",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ID == 0 || a.Username != "reader" || a.Email != "reader@example.com" || a.Country != "de" {
		t.Fatalf("unexpected account: %+v", a)
	}
	if a.PasswordHash == "longenough" {
		t.Fatalf("password must be hashed")
	}

	sess, err := svc.Login(ctx, "READER@example.com", "longenough")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Token == "" || sess.Account.ID != a.ID {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if time.Until(sess.ExpiresAt) <= 0 {
		t.Fatalf("expected expiry in the future")
	}

	me, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if me.ID != a.ID {
		t.Fatalf("expected account %d, got %d", a.ID, me.ID)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "u", Email: "u@example.com", Password: "password1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "u@example.com", "password2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := RegisterInput{Username: "u", Email: "dup@example.com", Password: "password1"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}

	in.Email = "DUP@example.com"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "password1"}, "username"},
		{"bad email", RegisterInput{Username: "a", Email: "not-an-email", Password: "password1"}, "email"},
		{"display name email", RegisterInput{Username: "a", Email: "A <a@example.com>", Password: "password1"}, "email"},
		{"short password", RegisterInput{Username: "a", Email: "a@example.com", Password: "short"}, "password"},
		{"bad country", RegisterInput{Username: "a", Email: "a@example.com", Password: "password1", Country: "usa"}, "country"},
		{"numeric country", RegisterInput{Username: "a", Email: "a@example.com", Password: "password1", Country: "u1"}, "country"},
		{"long username", RegisterInput{Username: strings.Repeat("ü", 65), Email: "a@example.com", Password: "password1"}, "username"},
		{"email without domain", RegisterInput{Username: "a", Email: "a@", Password: "password1"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	tok, err := auth.NewIssuer("test-secret").Issue(auth.Identity{AccountID: 999, Email: "ghost@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err = svc.Authenticate(context.Background(), tok.Value); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing account, got %v", err)
	}
}

func TestAuthenticateRejectsEmailMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{Username: "reader", Email: "reader@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tok, err := auth.NewIssuer("test-secret").Issue(auth.Identity{AccountID: a.ID, Email: "someone@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err = svc.Authenticate(ctx, tok.Value); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
