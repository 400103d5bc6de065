// Package memory provides mutex-guarded in-memory implementations of the
// persistence ports, used for tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/utils/pagination"
)

// AccountStore keeps the chart of accounts in memory.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]domain.Account
	byCode   map[string]domain.AccountID
}

// NewAccountStore creates an empty in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[domain.AccountID]domain.Account),
		byCode:   make(map[string]domain.AccountID),
	}
}

var _ ports.AccountRepository = (*AccountStore)(nil)

func (s *AccountStore) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[account.Code]; taken {
		return fmt.Errorf("%w: account code %q", apperrors.ErrDuplicate, account.Code)
	}
	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("%w: account %s", apperrors.ErrDuplicate, account.AccountID)
	}
	s.accounts[account.AccountID] = account
	s.byCode[account.Code] = account.AccountID
	return nil
}

func (s *AccountStore) FindAccountByID(_ context.Context, accountID domain.AccountID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return &account, nil
}

func (s *AccountStore) FindAccountsByIDs(_ context.Context, accountIDs []domain.AccountID) (map[domain.AccountID]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[domain.AccountID]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if account, ok := s.accounts[id]; ok {
			found[id] = account
		}
	}
	return found, nil
}

func (s *AccountStore) ListAccounts(_ context.Context, limit int, nextToken *string) ([]domain.Account, *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	afterCode := ""
	if nextToken != nil {
		decoded, err := pagination.DecodeKeyToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
		}
		afterCode = decoded
	}

	all := make([]domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		if account.Code > afterCode {
			all = append(all, account)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })

	if limit <= 0 || limit > len(all) {
		return all, nil, nil
	}
	page := all[:limit]
	token := pagination.EncodeKeyToken(page[len(page)-1].Code)
	return page, &token, nil
}

func (s *AccountStore) UpdateAccountStatus(_ context.Context, accountID domain.AccountID, active bool, updatedBy string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	account.IsActive = active
	account.LastUpdatedBy = updatedBy
	account.LastUpdatedAt = updatedAt
	s.accounts[accountID] = account
	return nil
}

// isActive reports the account's activation flag for the transaction store's
// commit-time re-check. Missing accounts report false.
func (s *AccountStore) isActive(accountID domain.AccountID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	return ok && account.IsActive
}
