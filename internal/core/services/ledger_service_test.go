package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/polisys/ledgercore/internal/apperrors"
	"github.com/polisys/ledgercore/internal/core/domain"
	"github.com/polisys/ledgercore/internal/core/ports"
	"github.com/polisys/ledgercore/internal/core/services"
	"github.com/polisys/ledgercore/internal/dto"
)

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

var _ ports.AccountRepository = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID domain.AccountID) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []domain.AccountID) (map[domain.AccountID]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.AccountID]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, limit int, nextToken *string) ([]domain.Account, *string, error) {
	args := m.Called(ctx, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var token *string
	if args.Get(1) != nil {
		t := args.Get(1).(string)
		token = &t
	}
	return args.Get(0).([]domain.Account), token, args.Error(2)
}

func (m *MockAccountRepository) UpdateAccountStatus(ctx context.Context, accountID domain.AccountID, active bool, updatedBy string, updatedAt time.Time) error {
	args := m.Called(ctx, accountID, active, updatedBy, updatedAt)
	return args.Error(0)
}

// --- Mock TransactionRepository ---

type MockTransactionRepository struct {
	mock.Mock
}

var _ ports.TransactionRepository = (*MockTransactionRepository)(nil)

func (m *MockTransactionRepository) AppendTransaction(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, txnID domain.TransactionID) (*domain.Transaction, error) {
	args := m.Called(ctx, txnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ReadPostings(ctx context.Context, accountID domain.AccountID, upTo time.Time) ([]domain.Posting, error) {
	args := m.Called(ctx, accountID, upTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Posting), args.Error(1)
}

func (m *MockTransactionRepository) AppendReversal(ctx context.Context, originalID domain.TransactionID, reversal domain.Transaction) error {
	args := m.Called(ctx, originalID, reversal)
	return args.Error(0)
}

// --- Suite ---

type LedgerServiceTestSuite struct {
	suite.Suite
	mockAccountRepo *MockAccountRepository
	mockTxnRepo     *MockTransactionRepository
	service         ports.LedgerSvc

	cashAccount    domain.Account
	premiumAccount domain.Account
	userID         string
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.mockAccountRepo = new(MockAccountRepository)
	s.mockTxnRepo = new(MockTransactionRepository)
	s.service = services.NewLedgerService(s.mockAccountRepo, s.mockTxnRepo, nil)

	s.userID = "user-1"
	s.cashAccount = domain.Account{
		AccountID:    domain.NewAccountID(),
		Code:         "1000",
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
		IsActive:     true,
	}
	s.premiumAccount = domain.Account{
		AccountID:    domain.NewAccountID(),
		Code:         "4000",
		Name:         "Written Premium",
		AccountType:  domain.Revenue,
		CurrencyCode: "USD",
		IsActive:     true,
	}
}

func (s *LedgerServiceTestSuite) buildPremiumTxn(debit, credit string) domain.Transaction {
	txn, err := domain.NewTransaction("Premium for policy POL-123").
		Debit(s.cashAccount.AccountID, usdAmount(debit)).
		Credit(s.premiumAccount.AccountID, usdAmount(credit)).
		Build()
	s.Require().NoError(err)
	return txn
}

func usdAmount(s string) domain.Money {
	return domain.MustMoney(decimal.RequireFromString(s), "USD")
}

func (s *LedgerServiceTestSuite) accountsMap() map[domain.AccountID]domain.Account {
	return map[domain.AccountID]domain.Account{
		s.cashAccount.AccountID:    s.cashAccount,
		s.premiumAccount.AccountID: s.premiumAccount,
	}
}

func (s *LedgerServiceTestSuite) TestPost_Success() {
	ctx := context.Background()
	txn := s.buildPremiumTxn("100.00", "100.00")

	s.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.AnythingOfType("[]domain.AccountID")).Return(s.accountsMap(), nil).Once()
	s.mockTxnRepo.On("AppendTransaction", ctx, mock.AnythingOfType("domain.Transaction")).Return(nil).Once()

	posted, err := s.service.Post(ctx, txn, s.userID)

	s.Require().NoError(err)
	s.Require().NotNil(posted)
	s.NotEmpty(posted.TransactionID)
	s.False(posted.PostedAt.IsZero())
	s.Equal(s.userID, posted.CreatedBy)
	s.mockTxnRepo.AssertExpectations(s.T())
}

func (s *LedgerServiceTestSuite) TestPost_UnbalancedRejectedWithTotals() {
	ctx := context.Background()
	txn := s.buildPremiumTxn("100.00", "90.00")

	_, err := s.service.Post(ctx, txn, s.userID)

	s.Require().Error(err)
	var unbalanced *services.UnbalancedTransactionError
	s.Require().ErrorAs(err, &unbalanced)
	s.Equal("USD", unbalanced.Currency)
	s.True(unbalanced.Debits.Equal(decimal.NewFromInt(100)))
	s.True(unbalanced.Credits.Equal(decimal.NewFromInt(90)))
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

// A transaction literal bypasses the builder, so Post has to repeat the
// structural checks itself. Nothing may reach the repository.
func (s *LedgerServiceTestSuite) TestPost_EmptyTransactionRejected() {
	ctx := context.Background()

	_, err := s.service.Post(ctx, domain.Transaction{Description: "nothing to post"}, s.userID)

	s.Require().ErrorIs(err, domain.ErrTooFewPostings)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestPost_SingleAccountRejected() {
	ctx := context.Background()

	txn := domain.Transaction{
		Description: "both legs on cash",
		Postings: []domain.Posting{
			{AccountID: s.cashAccount.AccountID, Amount: usdAmount("100.00"), Type: domain.Debit},
			{AccountID: s.cashAccount.AccountID, Amount: usdAmount("100.00"), Type: domain.Credit},
		},
	}

	_, err := s.service.Post(ctx, txn, s.userID)

	s.Require().ErrorIs(err, domain.ErrTooFewAccounts)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestPost_ZeroAmountRejected() {
	ctx := context.Background()

	txn := domain.Transaction{
		Description: "zero-value legs",
		Postings: []domain.Posting{
			{AccountID: s.cashAccount.AccountID, Amount: usdAmount("0"), Type: domain.Debit},
			{AccountID: s.premiumAccount.AccountID, Amount: usdAmount("0"), Type: domain.Credit},
		},
	}

	_, err := s.service.Post(ctx, txn, s.userID)

	s.Require().ErrorIs(err, domain.ErrNonPositiveAmount)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestPost_UnknownAccountRejected() {
	ctx := context.Background()
	txn := s.buildPremiumTxn("100.00", "100.00")

	// Only the cash account exists.
	partial := map[domain.AccountID]domain.Account{
		s.cashAccount.AccountID: s.cashAccount,
	}
	s.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.AnythingOfType("[]domain.AccountID")).Return(partial, nil).Once()

	_, err := s.service.Post(ctx, txn, s.userID)

	s.Require().ErrorIs(err, services.ErrAccountNotFound)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestPost_InactiveAccountRejected() {
	ctx := context.Background()
	txn := s.buildPremiumTxn("100.00", "100.00")

	s.premiumAccount.IsActive = false
	s.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.AnythingOfType("[]domain.AccountID")).Return(s.accountsMap(), nil).Once()

	_, err := s.service.Post(ctx, txn, s.userID)

	s.Require().ErrorIs(err, services.ErrInactiveAccount)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestPost_CurrencyMismatchRejected() {
	ctx := context.Background()

	eur := domain.MustMoney(decimal.NewFromInt(100), "EUR")
	txn, err := domain.NewTransaction("EUR into USD accounts").
		Debit(s.cashAccount.AccountID, eur).
		Credit(s.premiumAccount.AccountID, eur).
		Build()
	s.Require().NoError(err)

	s.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.AnythingOfType("[]domain.AccountID")).Return(s.accountsMap(), nil).Once()

	_, err = s.service.Post(ctx, txn, s.userID)

	var mismatch *domain.CurrencyMismatchError
	s.Require().ErrorAs(err, &mismatch)
	s.Equal("EUR", mismatch.Left)
	s.Equal("USD", mismatch.Right)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendTransaction", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestPost_CommitConflictSurfacesAsInactive() {
	ctx := context.Background()
	txn := s.buildPremiumTxn("100.00", "100.00")

	s.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.AnythingOfType("[]domain.AccountID")).Return(s.accountsMap(), nil).Once()
	s.mockTxnRepo.On("AppendTransaction", ctx, mock.AnythingOfType("domain.Transaction")).Return(apperrors.ErrConflict).Once()

	_, err := s.service.Post(ctx, txn, s.userID)

	s.Require().ErrorIs(err, services.ErrInactiveAccount)
}

func (s *LedgerServiceTestSuite) TestBalance_DebitNormalAccount() {
	ctx := context.Background()
	asOf := time.Now().UTC()

	s.mockAccountRepo.On("FindAccountByID", ctx, s.cashAccount.AccountID).Return(&s.cashAccount, nil).Once()
	postings := []domain.Posting{
		{AccountID: s.cashAccount.AccountID, Amount: usdAmount("100.00"), Type: domain.Debit},
		{AccountID: s.cashAccount.AccountID, Amount: usdAmount("30.00"), Type: domain.Credit},
	}
	s.mockTxnRepo.On("ReadPostings", ctx, s.cashAccount.AccountID, asOf).Return(postings, nil).Once()

	balance, err := s.service.Balance(ctx, s.cashAccount.AccountID, asOf)

	s.Require().NoError(err)
	s.True(balance.Amount().Equal(decimal.NewFromInt(70)), "asset grows with debits: 100 - 30")
	s.Equal("USD", balance.CurrencyCode())
}

func (s *LedgerServiceTestSuite) TestBalance_CreditNormalAccount() {
	ctx := context.Background()
	asOf := time.Now().UTC()

	s.mockAccountRepo.On("FindAccountByID", ctx, s.premiumAccount.AccountID).Return(&s.premiumAccount, nil).Once()
	postings := []domain.Posting{
		{AccountID: s.premiumAccount.AccountID, Amount: usdAmount("100.00"), Type: domain.Credit},
		{AccountID: s.premiumAccount.AccountID, Amount: usdAmount("30.00"), Type: domain.Debit},
	}
	s.mockTxnRepo.On("ReadPostings", ctx, s.premiumAccount.AccountID, asOf).Return(postings, nil).Once()

	balance, err := s.service.Balance(ctx, s.premiumAccount.AccountID, asOf)

	s.Require().NoError(err)
	s.True(balance.Amount().Equal(decimal.NewFromInt(70)), "revenue grows with credits: 100 - 30")
}

func (s *LedgerServiceTestSuite) TestBalance_UnknownAccount() {
	ctx := context.Background()

	missing := domain.NewAccountID()
	s.mockAccountRepo.On("FindAccountByID", ctx, missing).Return(nil, apperrors.ErrNotFound).Once()

	_, err := s.service.Balance(ctx, missing, time.Now().UTC())

	s.Require().ErrorIs(err, services.ErrAccountNotFound)
}

func (s *LedgerServiceTestSuite) TestReverse_MirrorsPostings() {
	ctx := context.Background()

	original := s.buildPremiumTxn("100.00", "100.00")
	original.TransactionID = domain.NewTransactionID()

	var captured domain.Transaction
	s.mockTxnRepo.On("FindTransactionByID", ctx, original.TransactionID).Return(&original, nil).Once()
	s.mockTxnRepo.On("AppendReversal", ctx, original.TransactionID, mock.AnythingOfType("domain.Transaction")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(domain.Transaction)
		}).Return(nil).Once()

	reversal, err := s.service.Reverse(ctx, original.TransactionID, "premium booked twice", s.userID)

	s.Require().NoError(err)
	s.Require().NotNil(reversal)
	s.Require().NotNil(reversal.ReversalOf)
	s.Equal(original.TransactionID, *reversal.ReversalOf)
	s.Require().Len(captured.Postings, 2)
	s.Equal(domain.Credit, captured.Postings[0].Type, "original debit becomes credit")
	s.Equal(domain.Debit, captured.Postings[1].Type, "original credit becomes debit")
	s.True(captured.Postings[0].Amount.Equal(original.Postings[0].Amount))
	s.True(captured.IsBalanced())
}

func (s *LedgerServiceTestSuite) TestReverse_AlreadyReversedRejected() {
	ctx := context.Background()

	original := s.buildPremiumTxn("100.00", "100.00")
	original.TransactionID = domain.NewTransactionID()
	reversedBy := domain.NewTransactionID()
	original.ReversedBy = &reversedBy

	s.mockTxnRepo.On("FindTransactionByID", ctx, original.TransactionID).Return(&original, nil).Once()

	_, err := s.service.Reverse(ctx, original.TransactionID, "again", s.userID)

	s.Require().ErrorIs(err, services.ErrAlreadyReversed)
	s.mockTxnRepo.AssertNotCalled(s.T(), "AppendReversal", mock.Anything, mock.Anything, mock.Anything)
}

// Two reversal attempts race; the repository rejects the loser's claim and
// the service reports the original as already reversed.
func (s *LedgerServiceTestSuite) TestReverse_ConcurrentRaceLoser() {
	ctx := context.Background()

	original := s.buildPremiumTxn("100.00", "100.00")
	original.TransactionID = domain.NewTransactionID()

	s.mockTxnRepo.On("FindTransactionByID", ctx, original.TransactionID).Return(&original, nil).Once()
	s.mockTxnRepo.On("AppendReversal", ctx, original.TransactionID, mock.AnythingOfType("domain.Transaction")).Return(apperrors.ErrConflict).Once()

	_, err := s.service.Reverse(ctx, original.TransactionID, "premium booked twice", s.userID)

	s.Require().ErrorIs(err, services.ErrAlreadyReversed)
	s.mockTxnRepo.AssertExpectations(s.T())
}

func (s *LedgerServiceTestSuite) TestReverse_ReversalOfReversalRejected() {
	ctx := context.Background()

	reversal := s.buildPremiumTxn("100.00", "100.00")
	reversal.TransactionID = domain.NewTransactionID()
	originalID := domain.NewTransactionID()
	reversal.ReversalOf = &originalID

	s.mockTxnRepo.On("FindTransactionByID", ctx, reversal.TransactionID).Return(&reversal, nil).Once()

	_, err := s.service.Reverse(ctx, reversal.TransactionID, "undo the undo", s.userID)

	s.Require().ErrorIs(err, services.ErrReverseOfReversal)
}

func (s *LedgerServiceTestSuite) TestOpenAccount_Duplicate() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:         "1000",
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
	}

	s.mockAccountRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(apperrors.ErrDuplicate).Once()

	_, err := s.service.OpenAccount(ctx, req, s.userID)

	s.Require().ErrorIs(err, services.ErrDuplicateAccount)
}

func (s *LedgerServiceTestSuite) TestOpenAccount_UnknownCurrency() {
	ctx := context.Background()
	req := dto.CreateAccountRequest{
		Code:         "1000",
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "ZZZ",
	}

	_, err := s.service.OpenAccount(ctx, req, s.userID)

	s.Require().ErrorIs(err, domain.ErrUnknownCurrency)
	s.mockAccountRepo.AssertNotCalled(s.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (s *LedgerServiceTestSuite) TestDeactivateAccount_NotFound() {
	ctx := context.Background()
	missing := domain.NewAccountID()

	s.mockAccountRepo.On("UpdateAccountStatus", ctx, missing, false, s.userID, mock.AnythingOfType("time.Time")).Return(apperrors.ErrNotFound).Once()

	err := s.service.DeactivateAccount(ctx, missing, s.userID)

	s.Require().ErrorIs(err, services.ErrAccountNotFound)
}

func (s *LedgerServiceTestSuite) TestTrialBalance_BalancedLedger() {
	ctx := context.Background()
	asOf := time.Now().UTC()

	accounts := []domain.Account{s.cashAccount, s.premiumAccount}
	s.mockAccountRepo.On("ListAccounts", ctx, mock.AnythingOfType("int"), (*string)(nil)).Return(accounts, nil, nil).Once()

	s.mockTxnRepo.On("ReadPostings", ctx, s.cashAccount.AccountID, asOf).Return([]domain.Posting{
		{AccountID: s.cashAccount.AccountID, Amount: usdAmount("100.00"), Type: domain.Debit},
	}, nil).Once()
	s.mockTxnRepo.On("ReadPostings", ctx, s.premiumAccount.AccountID, asOf).Return([]domain.Posting{
		{AccountID: s.premiumAccount.AccountID, Amount: usdAmount("100.00"), Type: domain.Credit},
	}, nil).Once()

	report, err := s.service.TrialBalance(ctx, asOf)

	s.Require().NoError(err)
	s.Require().Len(report.Rows, 2)
	s.True(report.IsBalanced)
	s.True(report.Rows[0].Debit.Amount().Equal(decimal.NewFromInt(100)))
	s.True(report.Rows[1].Credit.Amount().Equal(decimal.NewFromInt(100)))
	s.True(report.Totals["USD"].Debits.Equal(report.Totals["USD"].Credits))
}

// The report covers the whole chart: an account with no postings still gets
// a row, zero in both columns.
func (s *LedgerServiceTestSuite) TestTrialBalance_IncludesZeroBalanceAccounts() {
	ctx := context.Background()
	asOf := time.Now().UTC()

	accounts := []domain.Account{s.cashAccount}
	s.mockAccountRepo.On("ListAccounts", ctx, mock.AnythingOfType("int"), (*string)(nil)).Return(accounts, nil, nil).Once()
	s.mockTxnRepo.On("ReadPostings", ctx, s.cashAccount.AccountID, asOf).Return([]domain.Posting{}, nil).Once()

	report, err := s.service.TrialBalance(ctx, asOf)

	s.Require().NoError(err)
	s.Require().Len(report.Rows, 1)
	s.Equal(s.cashAccount.AccountID, report.Rows[0].AccountID)
	s.True(report.Rows[0].Debit.IsZero())
	s.True(report.Rows[0].Credit.IsZero())
	s.True(report.IsBalanced)
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func TestUnbalancedTransactionError_Message(t *testing.T) {
	err := &services.UnbalancedTransactionError{
		Currency: "USD",
		Debits:   decimal.NewFromInt(100),
		Credits:  decimal.NewFromInt(90),
	}
	assert.Contains(t, err.Error(), "USD")
	assert.Contains(t, err.Error(), "100")
	assert.Contains(t, err.Error(), "90")
}
