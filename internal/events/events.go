// Package events publishes committed ledger changes to downstream consumers.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"wallet_ledger/internal/domain"
)

// Event kinds
const (
	KindWalletCredited      = "wallet.credited"
	KindWalletDebited       = "wallet.debited"
	KindSettlementCompleted = "settlement.completed"
)

// LedgerEvent describes one committed ledger entry
type LedgerEvent struct {
	ID            string                 `json:"id"`
	Kind          string                 `json:"kind"`
	UserID        uint                   `json:"userId"`
	WalletID      uint                   `json:"walletId"`
	TransactionID uint                   `json:"transactionId"`
	Type          domain.TransactionType `json:"type"`
	Amount        int64                  `json:"amount"`
	Currency      string                 `json:"currency"`
	Category      string                 `json:"category"`
	ReferenceID   string                 `json:"referenceId,omitempty"`
	BalanceAfter  int64                  `json:"balanceAfter"`
	OccurredAt    int64                  `json:"occurredAt"`
}

// GetId returns the event id
func (e LedgerEvent) GetId() string {
	return e.ID
}

// PartitionKey keeps every event of one user on the same partition
func (e LedgerEvent) PartitionKey() string {
	return strconv.FormatUint(uint64(e.UserID), 10)
}

// FromTransaction builds the event for a committed entry on wallet w
func FromTransaction(kind string, w domain.Wallet, tx domain.Transaction) LedgerEvent {
	return LedgerEvent{
		ID:            uuid.NewString(),
		Kind:          kind,
		UserID:        w.UserID,
		WalletID:      w.ID,
		TransactionID: tx.ID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Category:      tx.Category,
		ReferenceID:   tx.Reference(),
		BalanceAfter:  tx.BalanceAfter,
		OccurredAt:    time.Now().UnixMilli(),
	}
}

// Publisher delivers ledger events after their database transaction commits
type Publisher interface {
	Publish(ctx context.Context, events ...LedgerEvent) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, ...LedgerEvent) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }
