package domain

// Wallet Model
type Wallet struct {
	ID        uint   `gorm:"primaryKey" json:"id"`                  // Primary key
	UserID    uint   `gorm:"uniqueIndex;not null" json:"userId"`    // Owning user, one wallet per user
	Balance   int64  `gorm:"not null;default:0" json:"balance"`     // Balance in minor currency units
	Currency  string `gorm:"size:3;not null" json:"currency"`       // ISO currency code, fixed at creation
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"createdAt"` // Timestamp of creation in milliseconds
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updatedAt"` // Timestamp of last balance change in milliseconds
}

// WalletSummary is the compact wallet view used in bulk reports
type WalletSummary struct {
	ID       uint   `json:"id"`       // Wallet ID
	Balance  int64  `json:"balance"`  // Current balance
	Currency string `json:"currency"` // Wallet currency
}

// Summary returns the compact view of the wallet
func (w Wallet) Summary() *WalletSummary {
	return &WalletSummary{ID: w.ID, Balance: w.Balance, Currency: w.Currency}
}

// WalletStats is derived by aggregation over the ledger, never stored
type WalletStats struct {
	Balance          int64  `json:"balance"`          // Current balance
	Currency         string `json:"currency"`         // Wallet currency
	TotalCredited    int64  `json:"totalCredited"`    // Sum of completed credits
	TotalDebited     int64  `json:"totalDebited"`     // Sum of completed debits
	TransactionCount int64  `json:"transactionCount"` // Number of ledger rows
}

// Reconciliation compares a stored balance with the sum of its ledger
type Reconciliation struct {
	WalletID      uint  `json:"walletId"`
	UserID        uint  `json:"userId"`
	Balance       int64 `json:"balance"`
	TotalCredited int64 `json:"totalCredited"`
	TotalDebited  int64 `json:"totalDebited"`
	LedgerBalance int64 `json:"ledgerBalance"`
	Drift         int64 `json:"drift"`
	Consistent    bool  `json:"consistent"`
}
