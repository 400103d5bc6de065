package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
)

// postingEntry pairs a posting with its transaction's commit time for
// as-of balance queries.
type postingEntry struct {
	posting  domain.Posting
	postedAt time.Time
}

// TransactionStore keeps committed transactions in memory. It re-checks
// account activation at commit time against the paired account store, the
// same guarantee the SQL adapter gets from row locks.
type TransactionStore struct {
	mu        sync.RWMutex
	accounts  *AccountStore
	txns      map[domain.TransactionID]domain.Transaction
	byAccount map[domain.AccountID][]postingEntry
}

// NewTransactionStore creates an empty in-memory transaction store backed by
// the given account store.
func NewTransactionStore(accounts *AccountStore) *TransactionStore {
	return &TransactionStore{
		accounts:  accounts,
		txns:      make(map[domain.TransactionID]domain.Transaction),
		byAccount: make(map[domain.AccountID][]postingEntry),
	}
}

var _ ports.TransactionRepository = (*TransactionStore)(nil)

func (s *TransactionStore) AppendTransaction(_ context.Context, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(txn)
}

// AppendReversal claims the original and commits the reversing transaction
// under one lock hold, so the loser of a concurrent reversal race writes
// nothing.
func (s *TransactionStore) AppendReversal(_ context.Context, originalID domain.TransactionID, reversal domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.txns[originalID]
	if !ok {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, originalID)
	}
	if original.ReversedBy != nil {
		return fmt.Errorf("%w: transaction %s is already reversed by %s", apperrors.ErrConflict, originalID, *original.ReversedBy)
	}

	if err := s.appendLocked(reversal); err != nil {
		return err
	}
	reversingID := reversal.TransactionID
	original.ReversedBy = &reversingID
	original.LastUpdatedAt = reversal.PostedAt
	s.txns[originalID] = original
	return nil
}

// appendLocked commits one transaction. Callers hold s.mu.
func (s *TransactionStore) appendLocked(txn domain.Transaction) error {
	if _, exists := s.txns[txn.TransactionID]; exists {
		return fmt.Errorf("%w: transaction %s", apperrors.ErrDuplicate, txn.TransactionID)
	}
	for _, p := range txn.Postings {
		if !s.accounts.isActive(p.AccountID) {
			return fmt.Errorf("%w: account %s is not active", apperrors.ErrConflict, p.AccountID)
		}
	}

	txn.Postings = append([]domain.Posting(nil), txn.Postings...)
	s.txns[txn.TransactionID] = txn
	for _, p := range txn.Postings {
		s.byAccount[p.AccountID] = append(s.byAccount[p.AccountID], postingEntry{posting: p, postedAt: txn.PostedAt})
	}
	return nil
}

func (s *TransactionStore) FindTransactionByID(_ context.Context, txnID domain.TransactionID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.txns[txnID]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, txnID)
	}
	txn.Postings = append([]domain.Posting(nil), txn.Postings...)
	return &txn, nil
}

func (s *TransactionStore) ReadPostings(_ context.Context, accountID domain.AccountID, upTo time.Time) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byAccount[accountID]
	postings := make([]domain.Posting, 0, len(entries))
	for _, e := range entries {
		if !e.postedAt.After(upTo) {
			postings = append(postings, e.posting)
		}
	}
	return postings, nil
}
