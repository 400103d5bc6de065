package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/utils/pagination"
)

const accountColumns = `account_id, code, name, account_type, currency_code, parent_account_id, description, is_active, created_at, created_by, last_updated_at, last_updated_by`

// PgxAccountRepository persists the chart of accounts in PostgreSQL.
type PgxAccountRepository struct {
	BaseRepository
}

// NewPgxAccountRepository creates a new repository for account data.
func NewPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ ports.AccountRepository = (*PgxAccountRepository)(nil)

func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	var parentID *string
	if account.ParentAccountID != nil {
		s := account.ParentAccountID.String()
		parentID = &s
	}

	_, err := r.Pool.Exec(ctx, query,
		account.AccountID,
		account.Code,
		account.Name,
		account.AccountType,
		account.CurrencyCode,
		parentID,
		account.Description,
		account.IsActive,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: account code %q", apperrors.ErrDuplicate, account.Code)
		}
		return fmt.Errorf("failed to save account %s: %w", account.AccountID, err)
	}
	return nil
}

func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID domain.AccountID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1;`
	row := r.Pool.QueryRow(ctx, query, accountID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return account, nil
}

func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []domain.AccountID) (map[domain.AccountID]domain.Account, error) {
	ids := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		ids[i] = id.String()
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1);`
	rows, err := r.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by IDs: %w", err)
	}
	defer rows.Close()

	found := make(map[domain.AccountID]domain.Account, len(accountIDs))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		found[account.AccountID] = *account
	}
	return found, rows.Err()
}

func (r *PgxAccountRepository) ListAccounts(ctx context.Context, limit int, nextToken *string) ([]domain.Account, *string, error) {
	afterCode := ""
	if nextToken != nil {
		decoded, err := pagination.DecodeKeyToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
		}
		afterCode = decoded
	}
	if limit <= 0 {
		limit = 50
	}

	// Fetch one extra row to know whether another page exists.
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE code > $1
		ORDER BY code
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, afterCode, limit+1)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var token *string
	if len(accounts) > limit {
		accounts = accounts[:limit]
		t := pagination.EncodeKeyToken(accounts[len(accounts)-1].Code)
		token = &t
	}
	return accounts, token, nil
}

func (r *PgxAccountRepository) UpdateAccountStatus(ctx context.Context, accountID domain.AccountID, active bool, updatedBy string, updatedAt time.Time) error {
	query := `
		UPDATE accounts
		SET is_active = $2, last_updated_by = $3, last_updated_at = $4
		WHERE account_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, accountID, active, updatedBy, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account status %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	var parentID *string
	err := row.Scan(
		&account.AccountID,
		&account.Code,
		&account.Name,
		&account.AccountType,
		&account.CurrencyCode,
		&parentID,
		&account.Description,
		&account.IsActive,
		&account.CreatedAt,
		&account.CreatedBy,
		&account.LastUpdatedAt,
		&account.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		pid := domain.AccountID(*parentID)
		account.ParentAccountID = &pid
	}
	return &account, nil
}
