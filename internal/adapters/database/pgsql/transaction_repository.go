package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
)

// PgxTransactionRepository persists committed transactions and their
// postings in PostgreSQL.
type PgxTransactionRepository struct {
	BaseRepository
}

// NewPgxTransactionRepository creates a new repository for transaction data.
func NewPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ ports.TransactionRepository = (*PgxTransactionRepository)(nil)

// AppendTransaction commits the transaction header and every posting inside
// one database transaction.
func (r *PgxTransactionRepository) AppendTransaction(ctx context.Context, txn domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := appendTransactionTx(ctx, tx, txn); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// AppendReversal claims the original (fails if it is already reversed) and
// commits the reversing transaction, all inside one database transaction so
// the loser of a concurrent reversal race writes nothing.
func (r *PgxTransactionRepository) AppendReversal(ctx context.Context, originalID domain.TransactionID, reversal domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	claimQuery := `
		UPDATE transactions
		SET reversed_by = $2, last_updated_at = $3
		WHERE transaction_id = $1 AND reversed_by IS NULL;
	`
	tag, err := tx.Exec(ctx, claimQuery, originalID, reversal.TransactionID, reversal.PostedAt)
	if err != nil {
		return fmt.Errorf("failed to claim transaction %s for reversal: %w", originalID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		checkErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1);`, originalID).Scan(&exists)
		if checkErr != nil {
			return fmt.Errorf("failed to check transaction %s: %w", originalID, checkErr)
		}
		if !exists {
			return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, originalID)
		}
		return fmt.Errorf("%w: transaction %s is already reversed", apperrors.ErrConflict, originalID)
	}

	if err := appendTransactionTx(ctx, tx, reversal); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// appendTransactionTx writes one transaction and its postings on the given
// database transaction. Referenced accounts are share-locked so a concurrent
// deactivation cannot slip between validation and commit. The locking clause
// lives in a subquery; PostgreSQL rejects FOR SHARE combined with aggregates.
func appendTransactionTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error {
	accountIDs := make([]string, 0, len(txn.Postings))
	seen := make(map[domain.AccountID]struct{}, len(txn.Postings))
	for _, p := range txn.Postings {
		if _, ok := seen[p.AccountID]; !ok {
			seen[p.AccountID] = struct{}{}
			accountIDs = append(accountIDs, p.AccountID.String())
		}
	}

	lockQuery := `
		SELECT count(*) FROM (
			SELECT 1
			FROM accounts
			WHERE account_id = ANY($1) AND is_active
			FOR SHARE
		) locked;
	`
	var activeCount int
	if err := tx.QueryRow(ctx, lockQuery, accountIDs).Scan(&activeCount); err != nil {
		return fmt.Errorf("failed to lock accounts for posting: %w", err)
	}
	if activeCount != len(accountIDs) {
		return fmt.Errorf("%w: a referenced account is missing or inactive", apperrors.ErrConflict)
	}

	var refType, refID *string
	if txn.Reference != nil {
		refType, refID = &txn.Reference.Type, &txn.Reference.ID
	}
	txnQuery := `
		INSERT INTO transactions (
			transaction_id, description, reference_type, reference_id,
			occurred_at, posted_at, reversal_of, reversed_by,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := tx.Exec(ctx, txnQuery,
		txn.TransactionID,
		txn.Description,
		refType,
		refID,
		txn.OccurredAt,
		txn.PostedAt,
		txn.ReversalOf,
		txn.ReversedBy,
		txn.CreatedAt,
		txn.CreatedBy,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", txn.TransactionID, err)
	}

	batch := &pgx.Batch{}
	postingQuery := `
		INSERT INTO postings (posting_id, transaction_id, account_id, amount, currency_code, posting_type, description, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for i, p := range txn.Postings {
		batch.Queue(postingQuery,
			p.PostingID,
			txn.TransactionID,
			p.AccountID,
			p.Amount.Amount(),
			p.Amount.CurrencyCode(),
			p.Type,
			p.Description,
			i,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for range txn.Postings {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert postings for %s: %w", txn.TransactionID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close posting batch for %s: %w", txn.TransactionID, err)
	}
	return nil
}

func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, txnID domain.TransactionID) (*domain.Transaction, error) {
	txnQuery := `
		SELECT transaction_id, description, reference_type, reference_id,
		       occurred_at, posted_at, reversal_of, reversed_by,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM transactions
		WHERE transaction_id = $1;
	`
	var txn domain.Transaction
	var refType, refID *string
	err := r.Pool.QueryRow(ctx, txnQuery, txnID).Scan(
		&txn.TransactionID,
		&txn.Description,
		&refType,
		&refID,
		&txn.OccurredAt,
		&txn.PostedAt,
		&txn.ReversalOf,
		&txn.ReversedBy,
		&txn.CreatedAt,
		&txn.CreatedBy,
		&txn.LastUpdatedAt,
		&txn.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, txnID)
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", txnID, err)
	}
	if refType != nil && refID != nil {
		txn.Reference = &domain.Reference{Type: *refType, ID: *refID}
	}

	postingQuery := `
		SELECT posting_id, account_id, amount, currency_code, posting_type, description
		FROM postings
		WHERE transaction_id = $1
		ORDER BY seq;
	`
	rows, err := r.Pool.Query(ctx, postingQuery, txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings for %s: %w", txnID, err)
	}
	defer rows.Close()

	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		txn.Postings = append(txn.Postings, posting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *PgxTransactionRepository) ReadPostings(ctx context.Context, accountID domain.AccountID, upTo time.Time) ([]domain.Posting, error) {
	query := `
		SELECT p.posting_id, p.account_id, p.amount, p.currency_code, p.posting_type, p.description
		FROM postings p
		JOIN transactions t ON t.transaction_id = p.transaction_id
		WHERE p.account_id = $1 AND t.posted_at <= $2
		ORDER BY t.posted_at, p.seq;
	`
	rows, err := r.Pool.Query(ctx, query, accountID, upTo)
	if err != nil {
		return nil, fmt.Errorf("failed to read postings for %s: %w", accountID, err)
	}
	defer rows.Close()

	var postings []domain.Posting
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, posting)
	}
	return postings, rows.Err()
}

func scanPosting(row pgx.Row) (domain.Posting, error) {
	var posting domain.Posting
	var amount decimal.Decimal
	var currency string
	err := row.Scan(
		&posting.PostingID,
		&posting.AccountID,
		&amount,
		&currency,
		&posting.Type,
		&posting.Description,
	)
	if err != nil {
		return domain.Posting{}, fmt.Errorf("failed to scan posting: %w", err)
	}
	money, err := domain.NewMoney(amount, currency)
	if err != nil {
		return domain.Posting{}, fmt.Errorf("failed to rebuild posting amount: %w", err)
	}
	posting.Amount = money
	return posting, nil
}
