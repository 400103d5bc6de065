package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrDescriptionMissing indicates a transaction built without a description.
	ErrDescriptionMissing = errors.New("transaction description is required")
	// ErrTooFewPostings indicates fewer than two posting legs.
	ErrTooFewPostings = errors.New("transaction must have at least two postings")
	// ErrTooFewAccounts indicates a transaction touching fewer than two accounts.
	ErrTooFewAccounts = errors.New("transaction must affect at least two different accounts")
	// ErrNonPositiveAmount indicates a posting amount that is zero or negative.
	ErrNonPositiveAmount = errors.New("posting amount must be positive")
)

// PostingType indicates whether a posting is a debit or a credit leg.
type PostingType string

const (
	Debit  PostingType = "DEBIT"
	Credit PostingType = "CREDIT"
)

// Posting is a single debit or credit leg of a transaction, denominated in
// Money. Postings are owned exclusively by their parent transaction.
type Posting struct {
	PostingID   PostingID   `json:"postingID"`
	AccountID   AccountID   `json:"accountID"`
	Amount      Money       `json:"amount"` // always positive; the type carries the sign
	Type        PostingType `json:"type"`
	Description string      `json:"description,omitempty"`
}

// DebitPosting builds a debit leg against the given account.
func DebitPosting(accountID AccountID, amount Money) Posting {
	return Posting{PostingID: NewPostingID(), AccountID: accountID, Amount: amount, Type: Debit}
}

// CreditPosting builds a credit leg against the given account.
func CreditPosting(accountID AccountID, amount Money) Posting {
	return Posting{PostingID: NewPostingID(), AccountID: accountID, Amount: amount, Type: Credit}
}

// Reference links a transaction back to the domain fact that caused it
// (a policy premium, a claim payment, a fund unit movement).
type Reference struct {
	Type string `json:"type"` // e.g. "policy", "claim", "fund"
	ID   string `json:"id"`
}

// Transaction is a balanced set of postings committed as one immutable unit.
// Once posted it is never mutated; corrections happen through a new,
// explicitly linked reversing transaction.
type Transaction struct {
	TransactionID TransactionID  `json:"transactionID"`
	Description   string         `json:"description"`
	Reference     *Reference     `json:"reference,omitempty"`
	Postings      []Posting      `json:"postings"`
	OccurredAt    time.Time      `json:"occurredAt"`
	PostedAt      time.Time      `json:"postedAt"` // server-assigned at commit
	ReversalOf    *TransactionID `json:"reversalOf,omitempty"`
	ReversedBy    *TransactionID `json:"reversedBy,omitempty"`
	AuditFields
}

// CurrencyTotals holds the summed debit and credit legs for one currency.
type CurrencyTotals struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// Totals sums debit and credit amounts per currency present in the transaction.
func (t Transaction) Totals() map[string]CurrencyTotals {
	totals := make(map[string]CurrencyTotals)
	for _, p := range t.Postings {
		cur := p.Amount.CurrencyCode()
		entry := totals[cur]
		if p.Type == Debit {
			entry.Debits = entry.Debits.Add(p.Amount.Amount())
		} else {
			entry.Credits = entry.Credits.Add(p.Amount.Amount())
		}
		totals[cur] = entry
	}
	return totals
}

// IsBalanced reports whether debits equal credits for every currency present.
func (t Transaction) IsBalanced() bool {
	for _, totals := range t.Totals() {
		if !totals.Debits.Equal(totals.Credits) {
			return false
		}
	}
	return true
}

// TransactionBuilder assembles a transaction. Validation happens once, at
// Build, not per chained call.
type TransactionBuilder struct {
	txn Transaction
}

// NewTransaction starts a builder for a transaction with the given description.
func NewTransaction(description string) *TransactionBuilder {
	return &TransactionBuilder{txn: Transaction{Description: description}}
}

// OccurredAt sets the real-world event time. Defaults to the posting time.
func (b *TransactionBuilder) OccurredAt(t time.Time) *TransactionBuilder {
	b.txn.OccurredAt = t
	return b
}

// WithReference links the transaction to its originating domain fact.
func (b *TransactionBuilder) WithReference(refType, refID string) *TransactionBuilder {
	b.txn.Reference = &Reference{Type: refType, ID: refID}
	return b
}

// Debit appends a debit leg.
func (b *TransactionBuilder) Debit(accountID AccountID, amount Money) *TransactionBuilder {
	b.txn.Postings = append(b.txn.Postings, DebitPosting(accountID, amount))
	return b
}

// Credit appends a credit leg.
func (b *TransactionBuilder) Credit(accountID AccountID, amount Money) *TransactionBuilder {
	b.txn.Postings = append(b.txn.Postings, CreditPosting(accountID, amount))
	return b
}

// Posting appends a pre-built leg.
func (b *TransactionBuilder) Posting(p Posting) *TransactionBuilder {
	b.txn.Postings = append(b.txn.Postings, p)
	return b
}

// Build validates the structural invariants and returns the transaction.
// Per-currency balance is re-checked by the ledger before commit; the
// builder rejects what can never become postable.
func (b *TransactionBuilder) Build() (Transaction, error) {
	if b.txn.Description == "" {
		return Transaction{}, ErrDescriptionMissing
	}
	if len(b.txn.Postings) < 2 {
		return Transaction{}, ErrTooFewPostings
	}
	accounts := make(map[AccountID]struct{}, len(b.txn.Postings))
	for _, p := range b.txn.Postings {
		if !p.Amount.IsPositive() {
			return Transaction{}, fmt.Errorf("%w: account %s", ErrNonPositiveAmount, p.AccountID)
		}
		accounts[p.AccountID] = struct{}{}
	}
	if len(accounts) < 2 {
		return Transaction{}, ErrTooFewAccounts
	}
	return b.txn, nil
}
