package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsrelay/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	gosqlite3 "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email is already registered")
)

var accountColumns = []string{"id", "username", "email", "password_hash", "country", "created_at"}

// CreateAccount inserts a and returns it with ID and CreatedAt set.
func (d *Database) CreateAccount(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Username = strings.TrimSpace(a.Username)
	a.Country = strings.ToLower(strings.TrimSpace(a.Country))
	a.CreatedAt = time.Now().UTC().Truncate(time.Second)

	query, args, err := d.sb.
		Insert("accounts").
		Columns("username", "email", "password_hash", "country", "created_at").
		Values(a.Username, a.Email, a.PasswordHash, a.Country, a.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Account{}, fmt.Errorf("build query: %w", err)
	}

	if err = d.db.QueryRowContext(ctx, query, args...).Scan(&a.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, ErrEmailTaken
		}
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return a, nil
}

func (d *Database) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return d.getAccount(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (d *Database) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	return d.getAccount(ctx, "id", id)
}

func (d *Database) getAccount(ctx context.Context, column string, value any) (domain.Account, error) {
	query, args, err := d.sb.
		Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{column: value}).
		ToSql()
	if err != nil {
		return domain.Account{}, fmt.Errorf("build query: %w", err)
	}

	var a domain.Account
	err = d.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.Country,
		&a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("select account (%s): %w", column, err)
	}

	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr gosqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == gosqlite3.ErrConstraintUnique {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}

	return false
}
