// Package query serves read-only views of the ledger: wallet statistics and
// transaction history, behind an optional Redis read-through cache.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/store"
	"wallet_ledger/internal/utils"
)

// Reader is the read side of the wallet store
type Reader interface {
	GetStats(ctx context.Context, userID uint) (*domain.WalletStats, error)
	ListTransactions(ctx context.Context, userID uint, filter domain.TransactionFilter) ([]domain.Transaction, error)
}

// Overview is the response shape of a wallet lookup
type Overview struct {
	UserID       uint                 `json:"userId"`
	Stats        domain.WalletStats   `json:"stats"`
	Transactions []domain.Transaction `json:"transactions"`
	Cached       bool                 `json:"cached"`
}

// Service answers ledger reads
type Service struct {
	reader   Reader
	rdb      redis.UniversalClient
	ttl      time.Duration
	currency string
}

// NewService builds a Service. A nil rdb disables caching.
func NewService(reader Reader, rdb redis.UniversalClient, ttl time.Duration, currency string) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{reader: reader, rdb: rdb, ttl: ttl, currency: currency}
}

func generationKey(userID uint) string {
	return fmt.Sprintf("ledger:gen:user:%d", userID)
}

func (s *Service) cacheKey(ctx context.Context, userID uint, view string) (string, bool) {
	gen, err := utils.Generation(ctx, s.rdb, generationKey(userID))
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache generation lookup failed")
		return "", false
	}
	return fmt.Sprintf("ledger:user:%d:gen:%d:%s", userID, gen, view), true
}

// GetWalletStats returns the user's statistics. A user without a wallet gets
// zeroed statistics in the default currency; no wallet is created.
func (s *Service) GetWalletStats(ctx context.Context, userID uint) (*domain.WalletStats, error) {
	stats, err := s.reader.GetStats(ctx, userID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return &domain.WalletStats{Currency: s.currency}, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GetUserTransactions returns the user's history, newest first
func (s *Service) GetUserTransactions(ctx context.Context, userID uint, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	return s.reader.ListTransactions(ctx, userID, filter)
}

// GetWalletOverview returns statistics and history together, from cache when fresh
func (s *Service) GetWalletOverview(ctx context.Context, userID uint, filter domain.TransactionFilter) (*Overview, error) {
	filter, err := store.NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	view := fmt.Sprintf("overview:type=%s:status=%s:limit=%d:offset=%d", filter.Type, filter.Status, filter.Limit, filter.Offset)
	key, cacheable := s.cacheKey(ctx, userID, view)
	if cacheable {
		var cached Overview
		found, err := utils.GetCache(ctx, s.rdb, key, &cached)
		if err == nil && found {
			cached.Cached = true
			return &cached, nil
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache read failed")
		}
	}

	stats, err := s.GetWalletStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.GetUserTransactions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	overview := &Overview{UserID: userID, Stats: *stats, Transactions: txs}

	if cacheable {
		if err := utils.SetCache(ctx, s.rdb, key, overview, s.ttl); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache write failed")
		}
	}
	return overview, nil
}

// Invalidate retires every cached view of the given users
func (s *Service) Invalidate(ctx context.Context, userIDs ...uint) {
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		if err := utils.BumpGeneration(ctx, s.rdb, generationKey(id)); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Warn("Cache invalidation failed")
		}
	}
}
