package ports

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/dto"
)

// LedgerSvc is the service surface consumed by the HTTP layer and by
// collaborating domain modules (billing, claims, fund).
type LedgerSvc interface {
	OpenAccount(ctx context.Context, req dto.CreateAccountRequest, creatorID string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID domain.AccountID) (*domain.Account, error)
	ListAccounts(ctx context.Context, limit int, nextToken *string) ([]domain.Account, *string, error)
	DeactivateAccount(ctx context.Context, accountID domain.AccountID, userID string) error
	Post(ctx context.Context, txn domain.Transaction, postedBy string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, txnID domain.TransactionID) (*domain.Transaction, error)
	Balance(ctx context.Context, accountID domain.AccountID, asOf time.Time) (domain.Money, error)
	Reverse(ctx context.Context, txnID domain.TransactionID, reason, userID string) (*domain.Transaction, error)
	TrialBalance(ctx context.Context, asOf time.Time) (*domain.TrialBalance, error)
}

// VersionSvc manages one entity family's bi-temporal version chains.
type VersionSvc[T any] interface {
	Record(ctx context.Context, entityID string, payload T, valid domain.ValidPeriod) (*domain.BiTemporalRecord[T], error)
	Correct(ctx context.Context, entityID string, payload T, valid domain.ValidPeriod) (*domain.BiTemporalRecord[T], error)
	AsOf(ctx context.Context, entityID string, validTime, systemTime time.Time) (T, error)
	History(ctx context.Context, entityID string) iter.Seq2[domain.BiTemporalRecord[T], error]
}

// ServiceContainer bundles the services handed to route registration. The
// HTTP layer stores version payloads as raw JSON; typed payloads are for
// in-process collaborators.
type ServiceContainer struct {
	Ledger   LedgerSvc
	Versions VersionSvc[json.RawMessage]
}
