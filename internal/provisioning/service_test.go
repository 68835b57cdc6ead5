package provisioning

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wallet_ledger/internal/dbtest"
	"wallet_ledger/internal/directory"
	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store"
)

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(ctx context.Context, userIDs ...uint) {
	m.Called(ctx, userIDs)
}

func seedUsers(t *testing.T, gdb *gorm.DB, n int) []domain.User {
	t.Helper()
	users := make([]domain.User, n)
	for i := range users {
		users[i] = domain.User{Username: "user" + string(rune('a'+i)), Name: "User", Email: "u" + string(rune('a'+i)) + "@example.com", Password: "x"}
	}
	require.NoError(t, gdb.Create(&users).Error)
	return users
}

func newTestService(t *testing.T, cfg Config, inv Invalidator) (*Service, *store.Store, *gorm.DB) {
	t.Helper()
	gdb := dbtest.Open(t)
	st := store.New(gdb, store.Options{})
	dir := directory.NewSQLDirectory(dbtest.SQLX(t, gdb))
	return NewService(dir, st, inv, cfg), st, gdb
}

func TestInitializeAllWalletsIsIdempotent(t *testing.T) {
	svc, st, gdb := newTestService(t, Config{Concurrency: 3}, nil)
	users := seedUsers(t, gdb, 5)
	_, err := st.Credit(context.Background(), domain.MutationRequest{UserID: users[0].ID, Amount: 10, Description: "existing"})
	require.NoError(t, err)

	report, err := svc.InitializeAllWallets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalUsers)
	assert.Equal(t, 5, report.Successful)
	assert.Zero(t, report.Failed)
	for i, r := range report.Results {
		assert.Equal(t, users[i].ID, r.UserID, "results keep directory order")
		require.NotNil(t, r.Wallet)
		assert.Equal(t, "XOF", r.Wallet.Currency)
	}
	assert.Equal(t, int64(10), report.Results[0].Wallet.Balance)

	_, err = svc.InitializeAllWallets(context.Background())
	require.NoError(t, err)
	var wallets int64
	require.NoError(t, gdb.Model(&domain.Wallet{}).Count(&wallets).Error)
	assert.Equal(t, int64(5), wallets)
}

type flakyWallets struct {
	Wallets
	failFor uint
}

func (f flakyWallets) GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	if userID == f.failFor {
		return nil, errors.New("boom")
	}
	return f.Wallets.GetOrCreateWallet(ctx, userID)
}

func TestInitializeAllWalletsContinuesPastFailures(t *testing.T) {
	gdb := dbtest.Open(t)
	users := seedUsers(t, gdb, 4)
	st := store.New(gdb, store.Options{})
	dir := directory.NewSQLDirectory(dbtest.SQLX(t, gdb))
	svc := NewService(dir, flakyWallets{Wallets: st, failFor: users[1].ID}, nil, Config{})

	report, err := svc.InitializeAllWallets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalUsers)
	assert.Equal(t, 3, report.Successful)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "boom", report.Results[1].Error)
	assert.Nil(t, report.Results[1].Wallet)
	assert.NotNil(t, report.Results[2].Wallet)
}

func TestFundForTesting(t *testing.T) {
	inv := &mockInvalidator{}
	svc, _, gdb := newTestService(t, Config{TestFundingEnabled: true}, inv)
	users := seedUsers(t, gdb, 1)
	inv.On("Invalidate", mock.Anything, []uint{users[0].ID}).Once()

	res, err := svc.FundForTesting(context.Background(), users[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), res.Wallet.Balance)
	assert.Equal(t, domain.CategoryBonus, res.Transaction.Category)
	assert.True(t, strings.HasPrefix(res.Transaction.Reference(), "TEST-FUND-"))
	assert.Equal(t, true, res.Transaction.Metadata["testFunding"])
	assert.NotEmpty(t, res.Transaction.Metadata["fundedAt"])

	res, err = svc.FundForTesting(context.Background(), users[0].ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), res.Wallet.Balance, "each call gets a fresh reference")
	inv.AssertNumberOfCalls(t, "Invalidate", 2)

	_, err = svc.FundForTesting(context.Background(), 999, 10)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = svc.FundForTesting(context.Background(), users[0].ID, -10)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestFundAllForTesting(t *testing.T) {
	svc, st, gdb := newTestService(t, Config{TestFundingEnabled: true, TestFundAmount: 5000}, nil)
	users := seedUsers(t, gdb, 3)

	report, err := svc.FundAllForTesting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Successful)
	assert.Equal(t, int64(5000), report.FundAmount)
	for _, u := range users {
		stats, err := st.GetStats(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), stats.Balance)
		assert.Equal(t, int64(5000), stats.TotalCredited)
	}
}

func TestTestFundingCanBeDisabled(t *testing.T) {
	svc, _, gdb := newTestService(t, Config{TestFundingEnabled: false}, nil)
	users := seedUsers(t, gdb, 1)

	_, err := svc.FundForTesting(context.Background(), users[0].ID, 100)
	assert.ErrorIs(t, err, domain.ErrTestFundingDisabled)
	_, err = svc.FundAllForTesting(context.Background())
	assert.ErrorIs(t, err, domain.ErrTestFundingDisabled)

	var txs int64
	require.NoError(t, gdb.Model(&domain.Transaction{}).Count(&txs).Error)
	assert.Zero(t, txs)
}
