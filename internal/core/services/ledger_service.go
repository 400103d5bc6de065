package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/dto"
	"github.com/polisys/ledgercore/internal/middleware"
	"github.com/polisys/ledgercore/internal/platform/metrics"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrDuplicateAccount   = errors.New("account code already exists")
	ErrAlreadyReversed    = errors.New("transaction is already reversed")
	ErrReverseOfReversal  = errors.New("cannot reverse a reversing transaction")
	ErrInvalidAccountType = errors.New("invalid account type")
)

// UnbalancedTransactionError reports the first currency whose debit and
// credit legs do not sum to the same amount.
type UnbalancedTransactionError struct {
	Currency string
	Debits   decimal.Decimal
	Credits  decimal.Decimal
}

func (e *UnbalancedTransactionError) Error() string {
	return fmt.Sprintf("transaction does not balance in %s: debits %s, credits %s",
		e.Currency, e.Debits.String(), e.Credits.String())
}

const trialBalancePageSize = 100

// ledgerService provides the chart of accounts and double-entry posting
// operations on top of the persistence ports.
type ledgerService struct {
	accountRepo ports.AccountRepository
	txnRepo     ports.TransactionRepository
	metrics     *metrics.Metrics
}

// NewLedgerService creates a new LedgerSvc.
func NewLedgerService(accountRepo ports.AccountRepository, txnRepo ports.TransactionRepository, m *metrics.Metrics) ports.LedgerSvc {
	return &ledgerService{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		metrics:     m,
	}
}

var _ ports.LedgerSvc = (*ledgerService)(nil)

// OpenAccount adds a new account to the chart of accounts.
func (s *ledgerService) OpenAccount(ctx context.Context, req dto.CreateAccountRequest, creatorID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.AccountType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccountType, req.AccountType)
	}
	if !domain.IsKnownCurrency(req.CurrencyCode) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCurrency, req.CurrencyCode)
	}

	var parentID *domain.AccountID
	if req.ParentAccountID != nil {
		parsed, err := domain.ParseAccountID(*req.ParentAccountID)
		if err != nil {
			return nil, fmt.Errorf("%w: parent account: %s", apperrors.ErrValidation, err)
		}
		if _, err := s.accountRepo.FindAccountByID(ctx, parsed); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: parent account %s", ErrAccountNotFound, parsed)
			}
			return nil, err
		}
		parentID = &parsed
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:       domain.NewAccountID(),
		Code:            req.Code,
		Name:            req.Name,
		AccountType:     req.AccountType,
		CurrencyCode:    req.CurrencyCode,
		ParentAccountID: parentID,
		Description:     req.Description,
		IsActive:        true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorID,
		},
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Account code already taken", slog.String("code", req.Code))
			return nil, fmt.Errorf("%w: code %q", ErrDuplicateAccount, req.Code)
		}
		logger.Error("Failed to save account", slog.String("error", err.Error()), slog.String("code", req.Code))
		return nil, err
	}

	logger.Info("Account opened", slog.String("account_id", account.AccountID.String()), slog.String("code", account.Code))
	return &account, nil
}

// GetAccount fetches a single account by ID.
func (s *ledgerService) GetAccount(ctx context.Context, accountID domain.AccountID) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts pages through the chart of accounts ordered by code.
func (s *ledgerService) ListAccounts(ctx context.Context, limit int, nextToken *string) ([]domain.Account, *string, error) {
	return s.accountRepo.ListAccounts(ctx, limit, nextToken)
}

// DeactivateAccount flips the activation flag. The account and its postings
// remain queryable forever.
func (s *ledgerService) DeactivateAccount(ctx context.Context, accountID domain.AccountID, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	err := s.accountRepo.UpdateAccountStatus(ctx, accountID, false, userID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
		}
		logger.Error("Failed to deactivate account", slog.String("error", err.Error()), slog.String("account_id", accountID.String()))
		return err
	}

	logger.Info("Account deactivated", slog.String("account_id", accountID.String()), slog.String("by", userID))
	return nil
}

// Post validates and commits a transaction. Validation is fail-closed: every
// check runs before any posting is written, so a rejected transaction leaves
// no trace in the ledger.
func (s *ledgerService) Post(ctx context.Context, txn domain.Transaction, postedBy string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Structural checks run here as well as in the builder: in-process
	// callers can hand over a transaction literal that never saw Build.
	if len(txn.Postings) < 2 {
		s.metrics.IncRejected("too_few_postings")
		return nil, domain.ErrTooFewPostings
	}
	accountIDs := make([]domain.AccountID, 0, len(txn.Postings))
	seen := make(map[domain.AccountID]struct{}, len(txn.Postings))
	for _, p := range txn.Postings {
		if !p.Amount.IsPositive() {
			s.metrics.IncRejected("non_positive_amount")
			return nil, fmt.Errorf("%w: account %s", domain.ErrNonPositiveAmount, p.AccountID)
		}
		if _, ok := seen[p.AccountID]; !ok {
			seen[p.AccountID] = struct{}{}
			accountIDs = append(accountIDs, p.AccountID)
		}
	}
	if len(accountIDs) < 2 {
		s.metrics.IncRejected("too_few_accounts")
		return nil, domain.ErrTooFewAccounts
	}

	for currency, totals := range txn.Totals() {
		if !totals.Debits.Equal(totals.Credits) {
			s.metrics.IncRejected("unbalanced")
			return nil, &UnbalancedTransactionError{Currency: currency, Debits: totals.Debits, Credits: totals.Credits}
		}
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		logger.Error("Failed to fetch accounts for posting", slog.String("error", err.Error()))
		return nil, err
	}

	for _, p := range txn.Postings {
		account, ok := accounts[p.AccountID]
		if !ok {
			s.metrics.IncRejected("account_not_found")
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, p.AccountID)
		}
		if !account.IsActive {
			s.metrics.IncRejected("inactive_account")
			return nil, fmt.Errorf("%w: %s", ErrInactiveAccount, p.AccountID)
		}
		if account.CurrencyCode != p.Amount.CurrencyCode() {
			s.metrics.IncRejected("currency_mismatch")
			return nil, &domain.CurrencyMismatchError{Left: p.Amount.CurrencyCode(), Right: account.CurrencyCode}
		}
	}

	now := time.Now().UTC()
	if txn.TransactionID == "" {
		txn.TransactionID = domain.NewTransactionID()
	}
	if txn.OccurredAt.IsZero() {
		txn.OccurredAt = now
	}
	txn.PostedAt = now
	txn.AuditFields = domain.AuditFields{
		CreatedAt:     now,
		CreatedBy:     postedBy,
		LastUpdatedAt: now,
		LastUpdatedBy: postedBy,
	}

	if err := s.txnRepo.AppendTransaction(ctx, txn); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// An account was deactivated between validation and commit.
			s.metrics.IncRejected("inactive_account")
			return nil, fmt.Errorf("%w: deactivated during post", ErrInactiveAccount)
		}
		logger.Error("Failed to append transaction", slog.String("error", err.Error()), slog.String("transaction_id", txn.TransactionID.String()))
		return nil, err
	}

	s.metrics.IncPosted()
	logger.Info("Transaction posted",
		slog.String("transaction_id", txn.TransactionID.String()),
		slog.Int("postings", len(txn.Postings)),
	)
	return &txn, nil
}

// GetTransaction fetches a committed transaction with its postings.
func (s *ledgerService) GetTransaction(ctx context.Context, txnID domain.TransactionID) (*domain.Transaction, error) {
	return s.txnRepo.FindTransactionByID(ctx, txnID)
}

// Balance folds the account's postings up to asOf according to its normal
// balance: debit-normal accounts grow with debits, credit-normal with credits.
func (s *ledgerService) Balance(ctx context.Context, accountID domain.AccountID, asOf time.Time) (domain.Money, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Money{}, err
	}

	postings, err := s.txnRepo.ReadPostings(ctx, accountID, asOf)
	if err != nil {
		return domain.Money{}, err
	}

	balance, err := domain.ZeroMoney(account.CurrencyCode)
	if err != nil {
		return domain.Money{}, err
	}
	debitNormal := account.AccountType.NormalBalance() == domain.DebitNormal
	for _, p := range postings {
		grows := (p.Type == domain.Debit) == debitNormal
		if grows {
			balance, err = balance.Add(p.Amount)
		} else {
			balance, err = balance.Sub(p.Amount)
		}
		if err != nil {
			return domain.Money{}, err
		}
	}
	return balance, nil
}

// Reverse posts a new transaction mirroring the original's postings and links
// the two. The original is never mutated beyond the ReversedBy marker; the
// net effect of the pair on every account is zero.
func (s *ledgerService) Reverse(ctx context.Context, txnID domain.TransactionID, reason, userID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.txnRepo.FindTransactionByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if original.ReversedBy != nil {
		return nil, fmt.Errorf("%w: by %s", ErrAlreadyReversed, original.ReversedBy)
	}
	if original.ReversalOf != nil {
		return nil, fmt.Errorf("%w: %s reverses %s", ErrReverseOfReversal, txnID, original.ReversalOf)
	}

	now := time.Now().UTC()
	reversal := domain.Transaction{
		TransactionID: domain.NewTransactionID(),
		Description:   fmt.Sprintf("Reversal of %s: %s", txnID, reason),
		Reference:     original.Reference,
		Postings:      make([]domain.Posting, len(original.Postings)),
		OccurredAt:    now,
		PostedAt:      now,
		ReversalOf:    &original.TransactionID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	for i, p := range original.Postings {
		mirrored := domain.Credit
		if p.Type == domain.Credit {
			mirrored = domain.Debit
		}
		reversal.Postings[i] = domain.Posting{
			PostingID:   domain.NewPostingID(),
			AccountID:   p.AccountID,
			Amount:      p.Amount,
			Type:        mirrored,
			Description: p.Description,
		}
	}

	// Claiming the original and committing the reversal is one repository
	// operation: the loser of a concurrent reversal race writes nothing.
	if err := s.txnRepo.AppendReversal(ctx, original.TransactionID, reversal); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: concurrent reversal", ErrAlreadyReversed)
		}
		logger.Error("Failed to append reversal", slog.String("error", err.Error()), slog.String("original_id", txnID.String()))
		return nil, err
	}

	s.metrics.IncReversed()
	logger.Info("Transaction reversed",
		slog.String("original_id", original.TransactionID.String()),
		slog.String("reversal_id", reversal.TransactionID.String()),
	)
	return &reversal, nil
}

// TrialBalance computes every account's balance as of the given time and
// places it in the debit or credit column. A ledger fed only through Post
// always reports balanced totals per currency.
func (s *ledgerService) TrialBalance(ctx context.Context, asOf time.Time) (*domain.TrialBalance, error) {
	report := &domain.TrialBalance{
		AsOf:   asOf,
		Totals: make(map[string]domain.CurrencyTotals),
	}

	var nextToken *string
	for {
		accounts, token, err := s.accountRepo.ListAccounts(ctx, trialBalancePageSize, nextToken)
		if err != nil {
			return nil, err
		}
		for i := range accounts {
			row, err := s.trialBalanceRow(ctx, &accounts[i], asOf)
			if err != nil {
				return nil, err
			}
			report.Rows = append(report.Rows, row)

			currency := accounts[i].CurrencyCode
			totals := report.Totals[currency]
			totals.Debits = totals.Debits.Add(row.Debit.Amount())
			totals.Credits = totals.Credits.Add(row.Credit.Amount())
			report.Totals[currency] = totals
		}
		if token == nil {
			break
		}
		nextToken = token
	}

	report.IsBalanced = true
	for _, totals := range report.Totals {
		if !totals.Debits.Equal(totals.Credits) {
			report.IsBalanced = false
			break
		}
	}
	return report, nil
}

// trialBalanceRow builds one report row. Accounts with no postings as of the
// report time still get a row, with zero in both columns.
func (s *ledgerService) trialBalanceRow(ctx context.Context, account *domain.Account, asOf time.Time) (domain.TrialBalanceRow, error) {
	postings, err := s.txnRepo.ReadPostings(ctx, account.AccountID, asOf)
	if err != nil {
		return domain.TrialBalanceRow{}, err
	}

	net, err := domain.ZeroMoney(account.CurrencyCode)
	if err != nil {
		return domain.TrialBalanceRow{}, err
	}
	// Net is computed debit-positive regardless of account type; the sign
	// decides which report column the balance lands in.
	for _, p := range postings {
		if p.Type == domain.Debit {
			net, err = net.Add(p.Amount)
		} else {
			net, err = net.Sub(p.Amount)
		}
		if err != nil {
			return domain.TrialBalanceRow{}, err
		}
	}

	zero, err := domain.ZeroMoney(account.CurrencyCode)
	if err != nil {
		return domain.TrialBalanceRow{}, err
	}
	row := domain.TrialBalanceRow{
		AccountID:   account.AccountID,
		Code:        account.Code,
		Name:        account.Name,
		AccountType: account.AccountType,
		Debit:       zero,
		Credit:      zero,
	}
	if net.IsNegative() {
		row.Credit = net.Abs()
	} else {
		row.Debit = net
	}
	return row, nil
}
