package domain

import "time"

// TrialBalanceRow is one account's balance as of the report time, placed in
// the debit or credit column according to its normal balance.
type TrialBalanceRow struct {
	AccountID   AccountID   `json:"accountID"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	AccountType AccountType `json:"accountType"`
	Debit       Money       `json:"debit"`
	Credit      Money       `json:"credit"`
}

// TrialBalance is the full-ledger snapshot as of a given time. Totals are
// kept per currency; the ledger never nets across currencies.
type TrialBalance struct {
	AsOf       time.Time                 `json:"asOf"`
	Rows       []TrialBalanceRow         `json:"rows"`
	Totals     map[string]CurrencyTotals `json:"totals"` // keyed by currency code
	IsBalanced bool                      `json:"isBalanced"`
}
