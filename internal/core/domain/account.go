package domain

// AccountType is the fundamental accounting classification of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// Valid reports whether the value is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account naturally increases.
type NormalBalance string

const (
	DebitNormal  NormalBalance = "DEBIT"
	CreditNormal NormalBalance = "CREDIT"
)

// NormalBalance derives the sign convention from the account type:
// assets and expenses grow with debits, everything else with credits.
func (t AccountType) NormalBalance() NormalBalance {
	switch t {
	case Asset, Expense:
		return DebitNormal
	default:
		return CreditNormal
	}
}

// Account is one entry in the chart of accounts. Accounts are created once
// and never deleted; once postings reference an account only the activation
// flag and hierarchy metadata may change.
type Account struct {
	AccountID       AccountID   `json:"accountID"`
	Code            string      `json:"code"` // unique chart-of-accounts code, e.g. "1000"
	Name            string      `json:"name"`
	AccountType     AccountType `json:"accountType"`
	CurrencyCode    string      `json:"currencyCode"`
	ParentAccountID *AccountID  `json:"parentAccountID,omitempty"`
	Description     string      `json:"description"`
	IsActive        bool        `json:"isActive"`
	AuditFields
}
