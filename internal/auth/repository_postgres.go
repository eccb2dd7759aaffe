package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout         = 5 * time.Second
	pgUniqueViolation = "23505"
)

// PostgresAccountRepository stores accounts in the accounts table.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository creates a PostgreSQL-backed account repository.
func NewPostgresAccountRepository(pool *pgxpool.Pool) (*PostgresAccountRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresAccountRepository{pool: pool}, nil
}

func (r *PostgresAccountRepository) Create(ctx context.Context, a Account) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, role, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getOne(ctx,
		`SELECT id::text, name, email, password_hash, role, created_at
		 FROM accounts WHERE email = $1`,
		email,
	)
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.getOne(ctx,
		`SELECT id::text, name, email, password_hash, role, created_at
		 FROM accounts WHERE id::text = $1`,
		id,
	)
}

func (r *PostgresAccountRepository) ListByRole(ctx context.Context, role Role) ([]Account, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT id::text, name, email, password_hash, role, created_at
		 FROM accounts WHERE role = $1
		 ORDER BY name, id`,
		string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}

func (r *PostgresAccountRepository) getOne(ctx context.Context, query string, arg string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var role string
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.Role = Role(role)
	return &a, nil
}
