package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"winshirt-sync/internal/model"
)

// MySQLAccountRepository implements AccountRepository using MySQL.
type MySQLAccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewMySQLAccountRepository creates a new MySQL account repository.
func NewMySQLAccountRepository(db *sql.DB, logger zerolog.Logger) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db, log: logger}
}

// EnsureSchema creates the accounts table if needed.
func (r *MySQLAccountRepository) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		confirmed TINYINT(1) NOT NULL DEFAULT 0,
		confirm_token VARCHAR(64) NULL,
		role VARCHAR(32) NOT NULL DEFAULT 'customer',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_confirm_token (confirm_token)
	)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

const accountColumns = `id, email, password_hash, confirmed, COALESCE(confirm_token, ''), role, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Confirmed, &a.ConfirmToken, &a.Role, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAccount inserts a new account. Returns ErrDuplicate if the email is taken.
func (r *MySQLAccountRepository) CreateAccount(ctx context.Context, account *model.Account) (int64, error) {
	role := account.Role
	if role == "" {
		role = model.RoleCustomer
	}

	query := `INSERT INTO accounts (email, password_hash, confirmed, confirm_token, role) VALUES (?, ?, ?, NULLIF(?, ''), ?)`
	result, err := r.db.ExecContext(ctx, query,
		strings.ToLower(account.Email), account.PasswordHash, account.Confirmed, account.ConfirmToken, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to create account: %w", err)
	}
	return result.LastInsertId()
}

// GetByEmail finds an account by email.
func (r *MySQLAccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ? LIMIT 1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetByID finds an account by id.
func (r *MySQLAccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ? LIMIT 1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// SetConfirmToken replaces the pending confirmation token of an account.
func (r *MySQLAccountRepository) SetConfirmToken(ctx context.Context, id int64, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET confirm_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("failed to set confirm token: %w", err)
	}
	return requireAffected(result)
}

// Confirm marks the account holding token as confirmed and clears the token.
func (r *MySQLAccountRepository) Confirm(ctx context.Context, token string) (*model.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE confirm_token = ? LIMIT 1 FOR UPDATE`
	a, err := scanAccount(tx.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find confirm token: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET confirmed = 1, confirm_token = NULL WHERE id = ?`, a.ID); err != nil {
		return nil, fmt.Errorf("failed to confirm account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.Confirmed = true
	a.ConfirmToken = ""
	r.log.Info().Int64("account_id", a.ID).Msg("account confirmed")
	return a, nil
}

// List returns accounts newest first with the total count.
func (r *MySQLAccountRepository) List(ctx context.Context, limit, offset int) ([]model.Account, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, total, rows.Err()
}

// SetRole changes the role of an account.
func (r *MySQLAccountRepository) SetRole(ctx context.Context, id int64, role string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return requireAffected(result)
}

// DeleteAccount removes an account.
func (r *MySQLAccountRepository) DeleteAccount(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure MySQLAccountRepository implements AccountRepository
var _ AccountRepository = (*MySQLAccountRepository)(nil)
