package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identifiers are type-tagged: each entity kind gets its own Go type and a
// display prefix, so an AccountID can never be passed where a TransactionID
// is expected even when the underlying UUID is the same. ParseXxxID enforces
// the prefix at construction for identifiers arriving over the wire.

const (
	accountIDPrefix     = "ACC"
	transactionIDPrefix = "TXN"
	postingIDPrefix     = "PST"
	versionIDPrefix     = "VER"
	policyIDPrefix      = "POL"
	claimIDPrefix       = "CLM"
	partyIDPrefix       = "PTY"
	fundIDPrefix        = "FND"
)

func newPrefixedID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func parsePrefixedID(s, prefix string) (string, error) {
	raw, ok := strings.CutPrefix(s, prefix+"-")
	if !ok {
		return "", fmt.Errorf("identifier %q does not carry the %s tag", s, prefix)
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", fmt.Errorf("identifier %q is not a valid %s id: %w", s, prefix, err)
	}
	return s, nil
}

// AccountID identifies a ledger account.
type AccountID string

// NewAccountID mints a fresh account identifier.
func NewAccountID() AccountID { return AccountID(newPrefixedID(accountIDPrefix)) }

// ParseAccountID validates the ACC tag and UUID shape.
func ParseAccountID(s string) (AccountID, error) {
	v, err := parsePrefixedID(s, accountIDPrefix)
	return AccountID(v), err
}

func (id AccountID) String() string { return string(id) }

// TransactionID identifies a committed ledger transaction.
type TransactionID string

// NewTransactionID mints a fresh transaction identifier.
func NewTransactionID() TransactionID { return TransactionID(newPrefixedID(transactionIDPrefix)) }

// ParseTransactionID validates the TXN tag and UUID shape.
func ParseTransactionID(s string) (TransactionID, error) {
	v, err := parsePrefixedID(s, transactionIDPrefix)
	return TransactionID(v), err
}

func (id TransactionID) String() string { return string(id) }

// PostingID identifies a single debit or credit leg.
type PostingID string

// NewPostingID mints a fresh posting identifier.
func NewPostingID() PostingID { return PostingID(newPrefixedID(postingIDPrefix)) }

// ParsePostingID validates the PST tag and UUID shape.
func ParsePostingID(s string) (PostingID, error) {
	v, err := parsePrefixedID(s, postingIDPrefix)
	return PostingID(v), err
}

func (id PostingID) String() string { return string(id) }

// VersionID identifies one version in a bi-temporal chain.
type VersionID string

// NewVersionID mints a fresh version identifier.
func NewVersionID() VersionID { return VersionID(newPrefixedID(versionIDPrefix)) }

// ParseVersionID validates the VER tag and UUID shape.
func ParseVersionID(s string) (VersionID, error) {
	v, err := parsePrefixedID(s, versionIDPrefix)
	return VersionID(v), err
}

func (id VersionID) String() string { return string(id) }

// PolicyID identifies a policy in the collaborating policy domain.
type PolicyID string

// NewPolicyID mints a fresh policy identifier.
func NewPolicyID() PolicyID { return PolicyID(newPrefixedID(policyIDPrefix)) }

// ParsePolicyID validates the POL tag and UUID shape.
func ParsePolicyID(s string) (PolicyID, error) {
	v, err := parsePrefixedID(s, policyIDPrefix)
	return PolicyID(v), err
}

func (id PolicyID) String() string { return string(id) }

// ClaimID identifies a claim in the collaborating claims domain.
type ClaimID string

// NewClaimID mints a fresh claim identifier.
func NewClaimID() ClaimID { return ClaimID(newPrefixedID(claimIDPrefix)) }

// ParseClaimID validates the CLM tag and UUID shape.
func ParseClaimID(s string) (ClaimID, error) {
	v, err := parsePrefixedID(s, claimIDPrefix)
	return ClaimID(v), err
}

func (id ClaimID) String() string { return string(id) }

// PartyID identifies a party in the collaborating party domain.
type PartyID string

// NewPartyID mints a fresh party identifier.
func NewPartyID() PartyID { return PartyID(newPrefixedID(partyIDPrefix)) }

// ParsePartyID validates the PTY tag and UUID shape.
func ParsePartyID(s string) (PartyID, error) {
	v, err := parsePrefixedID(s, partyIDPrefix)
	return PartyID(v), err
}

func (id PartyID) String() string { return string(id) }

// FundID identifies a fund in the collaborating fund domain.
type FundID string

// NewFundID mints a fresh fund identifier.
func NewFundID() FundID { return FundID(newPrefixedID(fundIDPrefix)) }

// ParseFundID validates the FND tag and UUID shape.
func ParseFundID(s string) (FundID, error) {
	v, err := parsePrefixedID(s, fundIDPrefix)
	return FundID(v), err
}

func (id FundID) String() string { return string(id) }
