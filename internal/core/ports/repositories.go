package ports

import (
	"context"
	"time"

	"github.com/polisys/ledgercore/internal/core/domain"
)

// Persistence port contracts. Adapters translate storage errors into the
// apperrors taxonomy before they cross this boundary; SQL state never leaks.

// AccountRepository persists the chart of accounts.
type AccountRepository interface {
	// SaveAccount stores a new account. Returns apperrors.ErrDuplicate when
	// the chart code is already taken.
	SaveAccount(ctx context.Context, account domain.Account) error
	FindAccountByID(ctx context.Context, accountID domain.AccountID) (*domain.Account, error)
	// FindAccountsByIDs returns the subset of requested accounts that exist,
	// keyed by ID. Missing IDs are simply absent from the map.
	FindAccountsByIDs(ctx context.Context, accountIDs []domain.AccountID) (map[domain.AccountID]domain.Account, error)
	// ListAccounts pages through the chart ordered by code.
	ListAccounts(ctx context.Context, limit int, nextToken *string) ([]domain.Account, *string, error)
	// UpdateAccountStatus flips the activation flag. Accounts are never deleted.
	UpdateAccountStatus(ctx context.Context, accountID domain.AccountID, active bool, updatedBy string, updatedAt time.Time) error
}

// TransactionRepository persists committed transactions and their postings.
type TransactionRepository interface {
	// AppendTransaction commits the transaction and all postings as one
	// atomic unit; no partial application is ever observable. Returns
	// apperrors.ErrConflict when a referenced account was deactivated after
	// the service validated it.
	AppendTransaction(ctx context.Context, txn domain.Transaction) error
	FindTransactionByID(ctx context.Context, txnID domain.TransactionID) (*domain.Transaction, error)
	// ReadPostings returns the account's postings whose transaction was
	// posted at or before upTo, in posting order.
	ReadPostings(ctx context.Context, accountID domain.AccountID, upTo time.Time) ([]domain.Posting, error)
	// AppendReversal claims the original transaction and commits the
	// reversing transaction as one atomic unit. A loser of a concurrent
	// reversal race gets apperrors.ErrConflict and writes nothing; a missing
	// original gets apperrors.ErrNotFound.
	AppendReversal(ctx context.Context, originalID domain.TransactionID, reversal domain.Transaction) error
}

// VersionRepository is the append-only bi-temporal version store.
type VersionRepository[T any] interface {
	// AppendVersion stores the first (or a re-opened) version of an entity.
	// Returns domain.ErrTemporalOverlap when an open version already exists
	// for the entity.
	AppendVersion(ctx context.Context, rec domain.BiTemporalRecord[T]) error
	// CloseVersion sets the superseded_at of the identified version. Returns
	// apperrors.ErrConflict when the version is already closed or is not the
	// entity's current version.
	CloseVersion(ctx context.Context, entityID string, versionID domain.VersionID, supersededAt time.Time) error
	// SupersedeVersion atomically closes the identified open version and
	// appends its replacement. The compare on openVersionID is the optimistic
	// concurrency check: a concurrent correction makes it fail with
	// apperrors.ErrConflict and no state change.
	SupersedeVersion(ctx context.Context, entityID string, openVersionID domain.VersionID, replacement domain.BiTemporalRecord[T]) error
	// FindOpenVersion returns the entity's current version, or
	// apperrors.ErrNotFound when none is open.
	FindOpenVersion(ctx context.Context, entityID string) (*domain.BiTemporalRecord[T], error)
	// FindAsOf returns the version valid at validTime among versions the
	// system knew at systemTime, or apperrors.ErrNotFound.
	FindAsOf(ctx context.Context, entityID string, validTime, systemTime time.Time) (*domain.BiTemporalRecord[T], error)
	// ListVersions pages through the entity's version chain ordered by
	// recorded_at, for audit trails.
	ListVersions(ctx context.Context, entityID string, limit int, nextToken *string) ([]domain.BiTemporalRecord[T], *string, error)
}
