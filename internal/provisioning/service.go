// Package provisioning opens wallets in bulk and seeds balances for testing.
package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wallet_ledger/internal/domain"
)

// Users lists and looks up directory users
type Users interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// Wallets is the part of the wallet store provisioning needs
type Wallets interface {
	GetOrCreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error)
	Credit(ctx context.Context, req domain.MutationRequest) (*domain.MutationResult, error)
}

// Invalidator drops cached views after balances change
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...uint)
}

// Config controls bulk runs and test funding
type Config struct {
	Concurrency        int
	TestFundingEnabled bool
	TestFundAmount     int64
}

// Service provisions wallets
type Service struct {
	users       Users
	wallets     Wallets
	invalidator Invalidator
	cfg         Config
}

// NewService builds a Service. invalidator may be nil.
func NewService(users Users, wallets Wallets, invalidator Invalidator, cfg Config) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.TestFundAmount <= 0 {
		cfg.TestFundAmount = 100000
	}
	return &Service{users: users, wallets: wallets, invalidator: invalidator, cfg: cfg}
}

// TestFundingEnabled reports whether test funding may run
func (s *Service) TestFundingEnabled() bool {
	return s.cfg.TestFundingEnabled
}

// InitializeAllWallets makes sure every directory user has a wallet. A failure
// for one user is recorded in the report and the run carries on.
func (s *Service) InitializeAllWallets(ctx context.Context) (*domain.ProvisioningReport, error) {
	return s.forEachUser(ctx, "init", 0, func(ctx context.Context, u domain.User) (*domain.Wallet, error) {
		return s.wallets.GetOrCreateWallet(ctx, u.ID)
	})
}

// FundForTesting credits amount (or the configured default when amount is 0)
// to one user under the Bonus category.
func (s *Service) FundForTesting(ctx context.Context, userID uint, amount int64) (*domain.MutationResult, error) {
	if !s.cfg.TestFundingEnabled {
		return nil, domain.ErrTestFundingDisabled
	}
	if amount == 0 {
		amount = s.cfg.TestFundAmount
	}
	if amount < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	res, err := s.fund(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return res, nil
}

// FundAllForTesting credits the configured test amount to every directory user
func (s *Service) FundAllForTesting(ctx context.Context) (*domain.ProvisioningReport, error) {
	if !s.cfg.TestFundingEnabled {
		return nil, domain.ErrTestFundingDisabled
	}
	amount := s.cfg.TestFundAmount
	report, err := s.forEachUser(ctx, "test_fund", amount, func(ctx context.Context, u domain.User) (*domain.Wallet, error) {
		res, err := s.fund(ctx, u.ID, amount)
		if err != nil {
			return nil, err
		}
		return &res.Wallet, nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, report.Successful)
	for _, r := range report.Results {
		if r.Error == "" {
			ids = append(ids, r.UserID)
		}
	}
	s.invalidate(ctx, ids...)
	return report, nil
}

func (s *Service) fund(ctx context.Context, userID uint, amount int64) (*domain.MutationResult, error) {
	reference := "TEST-FUND-" + uuid.NewString()
	return s.wallets.Credit(ctx, domain.MutationRequest{
		UserID:      userID,
		Amount:      amount,
		Description: "Test funding",
		Category:    domain.CategoryBonus,
		ReferenceID: &reference,
		Metadata: domain.JSON{
			"testFunding": true,
			"fundedAt":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Service) invalidate(ctx context.Context, userIDs ...uint) {
	if s.invalidator != nil && len(userIDs) > 0 {
		s.invalidator.Invalidate(ctx, userIDs...)
	}
}

// forEachUser runs fn for every user with bounded parallelism. Results keep
// directory order. fn errors land in the report and never cancel siblings.
func (s *Service) forEachUser(ctx context.Context, op string, fundAmount int64, fn func(context.Context, domain.User) (*domain.Wallet, error)) (*domain.ProvisioningReport, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	results := make([]domain.ProvisioningResult, len(users))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			result := domain.ProvisioningResult{UserID: u.ID, Name: u.Name, Email: u.Email}
			wallet, err := fn(ctx, u)
			if err != nil {
				result.Error = err.Error()
				logrus.WithFields(logrus.Fields{
					"op":      op,
					"user_id": u.ID,
					"error":   err.Error(),
				}).Warn("Provisioning failed for user")
			} else {
				result.Wallet = wallet.Summary()
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.ProvisioningReport{TotalUsers: len(users), FundAmount: fundAmount, Results: results}
	for _, r := range results {
		if r.Error == "" {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	logrus.WithFields(logrus.Fields{
		"op":         op,
		"total":      report.TotalUsers,
		"successful": report.Successful,
		"failed":     report.Failed,
	}).Info("Provisioning run finished")
	return report, nil
}
