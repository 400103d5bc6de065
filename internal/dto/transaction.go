package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polisys/ledgercore/internal/core/domain"
)

// CreatePostingRequest is one debit or credit leg of a transaction request.
type CreatePostingRequest struct {
	AccountID    string             `json:"accountID" binding:"required"`
	Amount       decimal.Decimal    `json:"amount" binding:"required"`
	CurrencyCode string             `json:"currencyCode" binding:"required,currency"`
	Type         domain.PostingType `json:"type" binding:"required,oneof=DEBIT CREDIT"`
	Description  string             `json:"description"`
}

// ReferenceRequest links the transaction to its originating domain fact.
type ReferenceRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// CreateTransactionRequest defines the data needed to post a transaction.
type CreateTransactionRequest struct {
	Description string                 `json:"description" binding:"required"`
	OccurredAt  *time.Time             `json:"occurredAt"`
	Reference   *ReferenceRequest      `json:"reference"`
	Postings    []CreatePostingRequest `json:"postings" binding:"required,min=2,dive"`
}

// ToDomainTransaction builds the domain transaction from the request,
// validating identifiers and currency codes along the way.
func (r CreateTransactionRequest) ToDomainTransaction() (domain.Transaction, error) {
	b := domain.NewTransaction(r.Description)
	if r.OccurredAt != nil {
		b.OccurredAt(*r.OccurredAt)
	}
	if r.Reference != nil {
		b.WithReference(r.Reference.Type, r.Reference.ID)
	}
	for i, p := range r.Postings {
		accountID, err := domain.ParseAccountID(p.AccountID)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("posting %d: %w", i, err)
		}
		amount, err := domain.NewMoney(p.Amount, p.CurrencyCode)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("posting %d: %w", i, err)
		}
		posting := domain.Posting{
			PostingID:   domain.NewPostingID(),
			AccountID:   accountID,
			Amount:      amount,
			Type:        p.Type,
			Description: p.Description,
		}
		b.Posting(posting)
	}
	return b.Build()
}

// ReverseTransactionRequest carries the reason for a reversal.
type ReverseTransactionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PostingResponse mirrors domain.Posting for the wire.
type PostingResponse struct {
	PostingID    string             `json:"postingID"`
	AccountID    string             `json:"accountID"`
	Amount       decimal.Decimal    `json:"amount"`
	CurrencyCode string             `json:"currencyCode"`
	Type         domain.PostingType `json:"type"`
	Description  string             `json:"description,omitempty"`
}

// TransactionResponse mirrors domain.Transaction for the wire.
type TransactionResponse struct {
	TransactionID string            `json:"transactionID"`
	Description   string            `json:"description"`
	Reference     *ReferenceRequest `json:"reference,omitempty"`
	Postings      []PostingResponse `json:"postings"`
	OccurredAt    time.Time         `json:"occurredAt"`
	PostedAt      time.Time         `json:"postedAt"`
	ReversalOf    string            `json:"reversalOf,omitempty"`
	ReversedBy    string            `json:"reversedBy,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to its response DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID: txn.TransactionID.String(),
		Description:   txn.Description,
		Postings:      make([]PostingResponse, len(txn.Postings)),
		OccurredAt:    txn.OccurredAt,
		PostedAt:      txn.PostedAt,
	}
	if txn.Reference != nil {
		resp.Reference = &ReferenceRequest{Type: txn.Reference.Type, ID: txn.Reference.ID}
	}
	if txn.ReversalOf != nil {
		resp.ReversalOf = txn.ReversalOf.String()
	}
	if txn.ReversedBy != nil {
		resp.ReversedBy = txn.ReversedBy.String()
	}
	for i, p := range txn.Postings {
		resp.Postings[i] = PostingResponse{
			PostingID:    p.PostingID.String(),
			AccountID:    p.AccountID.String(),
			Amount:       p.Amount.Amount(),
			CurrencyCode: p.Amount.CurrencyCode(),
			Type:         p.Type,
			Description:  p.Description,
		}
	}
	return resp
}

// TrialBalanceRowResponse is one account line of the trial balance report.
type TrialBalanceRowResponse struct {
	AccountID    string             `json:"accountID"`
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	AccountType  domain.AccountType `json:"accountType"`
	CurrencyCode string             `json:"currencyCode"`
	Debit        decimal.Decimal    `json:"debit"`
	Credit       decimal.Decimal    `json:"credit"`
}

// TrialBalanceTotalsResponse carries per-currency column totals.
type TrialBalanceTotalsResponse struct {
	CurrencyCode string          `json:"currencyCode"`
	Debits       decimal.Decimal `json:"debits"`
	Credits      decimal.Decimal `json:"credits"`
}

// TrialBalanceResponse is the full-ledger snapshot as of a given time.
type TrialBalanceResponse struct {
	AsOf       time.Time                    `json:"asOf"`
	Rows       []TrialBalanceRowResponse    `json:"rows"`
	Totals     []TrialBalanceTotalsResponse `json:"totals"`
	IsBalanced bool                         `json:"isBalanced"`
}

// ToTrialBalanceResponse converts the domain report to its wire shape.
func ToTrialBalanceResponse(tb *domain.TrialBalance) TrialBalanceResponse {
	resp := TrialBalanceResponse{
		AsOf:       tb.AsOf,
		Rows:       make([]TrialBalanceRowResponse, len(tb.Rows)),
		IsBalanced: tb.IsBalanced,
	}
	for i, row := range tb.Rows {
		resp.Rows[i] = TrialBalanceRowResponse{
			AccountID:    row.AccountID.String(),
			Code:         row.Code,
			Name:         row.Name,
			AccountType:  row.AccountType,
			CurrencyCode: row.Debit.CurrencyCode(),
			Debit:        row.Debit.Amount(),
			Credit:       row.Credit.Amount(),
		}
	}
	for currency, totals := range tb.Totals {
		resp.Totals = append(resp.Totals, TrialBalanceTotalsResponse{
			CurrencyCode: currency,
			Debits:       totals.Debits,
			Credits:      totals.Credits,
		})
	}
	return resp
}
