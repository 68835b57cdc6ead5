package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wallet_ledger/internal/dbtest"
	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/events"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...events.LedgerEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

func newTestStore(t *testing.T, opts Options) (*Store, *gorm.DB) {
	t.Helper()
	gdb := dbtest.Open(t)
	return New(gdb, opts), gdb
}

func ref(s string) *string {
	return &s
}

func credit(t *testing.T, s *Store, userID uint, amount int64) *domain.MutationResult {
	t.Helper()
	res, err := s.Credit(context.Background(), domain.MutationRequest{UserID: userID, Amount: amount, Description: "top up"})
	require.NoError(t, err)
	return res
}

func assertReconciled(t *testing.T, s *Store, userID uint) {
	t.Helper()
	rec, err := s.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "balance %d, ledger %d", rec.Balance, rec.LedgerBalance)
	assert.Zero(t, rec.Drift)
}

func TestCreditThenDebitScenario(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	res, err := s.Credit(ctx, domain.MutationRequest{UserID: 1, Amount: 50000, Description: "bonus"})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), res.Wallet.Balance)
	assert.Equal(t, "XOF", res.Wallet.Currency)
	assert.Equal(t, domain.TypeCredit, res.Transaction.Type)
	assert.Equal(t, domain.StatusCompleted, res.Transaction.Status)
	assert.Equal(t, domain.CategoryGeneral, res.Transaction.Category)
	assert.Equal(t, int64(50000), res.Transaction.BalanceAfter)

	res, err = s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 20000, Description: "payment"})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), res.Wallet.Balance)
	assert.Equal(t, int64(30000), res.Transaction.BalanceAfter)

	stats, err := s.GetStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.WalletStats{
		Balance:          30000,
		Currency:         "XOF",
		TotalCredited:    50000,
		TotalDebited:     20000,
		TransactionCount: 2,
	}, *stats)
	assertReconciled(t, s, 1)
}

func TestDebitInsufficientBalanceLeavesNoTrace(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	ctx := context.Background()
	credit(t, s, 1, 100)

	_, err := s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 101, Description: "too much"})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	var count int64
	require.NoError(t, gdb.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	w, err := s.FindWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), w.Balance)
}

func TestDebitOnFreshWalletFails(t *testing.T) {
	s, _ := newTestStore(t, Options{})

	_, err := s.Debit(context.Background(), domain.MutationRequest{UserID: 5, Amount: 1, Description: "x"})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	w, err := s.FindWallet(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, w.Balance)
}

func TestOverdraftLimit(t *testing.T) {
	s, _ := newTestStore(t, Options{OverdraftLimit: 50})
	ctx := context.Background()
	credit(t, s, 1, 100)

	res, err := s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 150, Description: "into overdraft"})
	require.NoError(t, err)
	assert.Equal(t, int64(-50), res.Wallet.Balance)

	_, err = s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 1, Description: "past the limit"})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assertReconciled(t, s, 1)
}

func TestMutationValidation(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	ctx := context.Background()

	for _, amount := range []int64{0, -1} {
		_, err := s.Credit(ctx, domain.MutationRequest{UserID: 1, Amount: amount, Description: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		_, err = s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: amount, Description: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
	_, err := s.Credit(ctx, domain.MutationRequest{UserID: 1, Amount: 10, Description: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = s.Credit(ctx, domain.MutationRequest{Amount: 10, Description: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	var wallets int64
	require.NoError(t, gdb.Model(&domain.Wallet{}).Count(&wallets).Error)
	assert.Zero(t, wallets, "validation must fail before any write")
}

func TestCreditIsIdempotentOnReference(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(evts []events.LedgerEvent) bool {
		return len(evts) == 1 && evts[0].Kind == events.KindWalletCredited
	})).Return(nil).Once()

	s, gdb := newTestStore(t, Options{Publisher: pub})
	ctx := context.Background()
	req := domain.MutationRequest{UserID: 1, Amount: 700, Description: "refund", Category: "Refund", ReferenceID: ref("order-9"), Metadata: domain.JSON{"orderId": "9"}}

	first, err := s.Credit(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := s.Credit(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, int64(700), second.Wallet.Balance)
	assert.Equal(t, "9", second.Transaction.Metadata["orderId"])

	var count int64
	require.NoError(t, gdb.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	pub.AssertExpectations(t)
}

func TestCreditReferenceReuseWithDifferentAmount(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	ctx := context.Background()
	req := domain.MutationRequest{UserID: 1, Amount: 700, Description: "refund", Category: "Refund", ReferenceID: ref("order-9")}
	_, err := s.Credit(ctx, req)
	require.NoError(t, err)

	req.Amount = 800
	_, err = s.Credit(ctx, req)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.NotErrorIs(t, err, domain.ErrConcurrencyConflict)

	wallet, err := s.FindWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(700), wallet.Balance)
	assert.Equal(t, int64(1), countByReference(t, gdb, "order-9"))
}

func TestReferenceIsScopedByCategory(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	ctx := context.Background()
	credit(t, s, 1, 2000)

	// A debit under one category does not block a settlement reusing its reference
	_, err := s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 10, Description: "fee", ReferenceID: ref("D1")})
	require.NoError(t, err)
	settled, err := s.Transfer(ctx, transferReq(1, 2, 1000, 825, "D1"))
	require.NoError(t, err)
	assert.False(t, settled.Replayed)
	assert.Equal(t, int64(990), settled.PayerWallet.Balance)

	// A bonus credit reusing a settled reference is its own entry
	bonus, err := s.Credit(ctx, domain.MutationRequest{UserID: 2, Amount: 5000, Description: "welcome", Category: "Bonus", ReferenceID: ref("D1")})
	require.NoError(t, err)
	assert.False(t, bonus.Replayed)
	assert.Equal(t, int64(5000), bonus.Transaction.Amount)
	assert.Equal(t, int64(5825), bonus.Wallet.Balance)

	assert.Equal(t, int64(4), countByReference(t, gdb, "D1"))
	assertReconciled(t, s, 1)
	assertReconciled(t, s, 2)
}

func TestSettlementCategoryIsReserved(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	_, err := s.Credit(context.Background(), domain.MutationRequest{
		UserID: 2, Amount: 825, Description: "manual", Category: domain.CategoryDeliveryPayment, ReferenceID: ref("D2"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Zero(t, countByReference(t, gdb, "D2"))
}

func TestUnmatchedDuplicateKeyIsNotRetried(t *testing.T) {
	s, gdb := newTestStore(t, Options{MaxRetries: 3})
	attempts := 0
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("reject_entry", func(db *gorm.DB) {
		if _, ok := db.Statement.Dest.(*domain.Transaction); ok {
			attempts++
			db.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	_, err := s.Credit(context.Background(), domain.MutationRequest{UserID: 1, Amount: 50, Description: "top up", ReferenceID: ref("order-1")})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.NotErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 1, attempts)

	wallet, err := s.FindWallet(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, wallet.Balance)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	s, _ := newTestStore(t, Options{Publisher: pub})
	res := credit(t, s, 1, 10)
	assert.Equal(t, int64(10), res.Wallet.Balance)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestConcurrentDebitRace(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	credit(t, s, 1, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 80, Description: "race"})
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	w, err := s.FindWallet(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), w.Balance)
	assertReconciled(t, s, 1)
}

func TestConcurrentGetOrCreateWallet(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	ids := make([]uint, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := s.GetOrCreateWallet(ctx, 7)
			if assert.NoError(t, err) {
				ids[i] = w.ID
			}
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, gdb.Model(&domain.Wallet{}).Where("user_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestListTransactions(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()

	credit(t, s, 1, 100)
	credit(t, s, 1, 200)
	_, err := s.Debit(ctx, domain.MutationRequest{UserID: 1, Amount: 50, Description: "spend"})
	require.NoError(t, err)
	credit(t, s, 2, 999)

	all, err := s.ListTransactions(ctx, 1, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.TypeDebit, all[0].Type, "newest first")
	assert.Equal(t, int64(100), all[2].Amount)

	credits, err := s.ListTransactions(ctx, 1, domain.TransactionFilter{Type: domain.TypeCredit})
	require.NoError(t, err)
	assert.Len(t, credits, 2)

	page, err := s.ListTransactions(ctx, 1, domain.TransactionFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(200), page[0].Amount)

	_, err = s.ListTransactions(ctx, 1, domain.TransactionFilter{Type: "refund"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestReadsDoNotCreateWallets(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	ctx := context.Background()

	txs, err := s.ListTransactions(ctx, 42, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = s.GetStats(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = s.Reconcile(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	var count int64
	require.NoError(t, gdb.Model(&domain.Wallet{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReconcileDetectsDrift(t *testing.T) {
	s, gdb := newTestStore(t, Options{})
	credit(t, s, 1, 100)

	require.NoError(t, gdb.Model(&domain.Wallet{}).Where("user_id = ?", 1).Update("balance", 90).Error)

	rec, err := s.Reconcile(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.Equal(t, int64(-10), rec.Drift)
	assert.Equal(t, int64(100), rec.LedgerBalance)
}

func TestListAllTransactions(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		credit(t, s, 1, int64(10+i))
	}
	credit(t, s, 2, 500)

	page, err := s.ListAllTransactions(ctx, domain.AdminTransactionFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Transactions, 2)

	page, err = s.ListAllTransactions(ctx, domain.AdminTransactionFilter{UserID: 2})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, int64(500), page.Transactions[0].Amount)

	_, err = s.ListAllTransactions(ctx, domain.AdminTransactionFilter{Status: "pending"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
