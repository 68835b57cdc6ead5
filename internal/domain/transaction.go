package domain

// TransactionType is the direction of a ledger entry
type TransactionType string

// TransactionStatus is the lifecycle state of a ledger entry
type TransactionStatus string

// Ledger entry directions and states
const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"

	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Well-known categories
const (
	CategoryGeneral         = "General"
	CategoryDeliveryPayment = "Delivery Payment"
	CategoryBonus           = "Bonus"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TypeCredit || t == TypeDebit
}

// Valid reports whether s is a known transaction status
func (s TransactionStatus) Valid() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction Model. Rows are append-only: nothing updates or deletes them.
// A reference id is unique per wallet, direction and category.
type Transaction struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	WalletID     uint              `gorm:"not null;index;uniqueIndex:idx_transactions_wallet_type_category_ref,priority:1" json:"walletId"`
	Type         TransactionType   `gorm:"size:16;not null;uniqueIndex:idx_transactions_wallet_type_category_ref,priority:2" json:"type"`
	Amount       int64             `gorm:"not null" json:"amount"`
	Currency     string            `gorm:"size:3;not null" json:"currency"`
	Status       TransactionStatus `gorm:"size:16;not null;default:completed" json:"status"`
	Description  string            `gorm:"size:255" json:"description"`
	Category     string            `gorm:"size:64;not null;default:General;uniqueIndex:idx_transactions_wallet_type_category_ref,priority:3" json:"category"`
	ReferenceID  *string           `gorm:"size:128;index;uniqueIndex:idx_transactions_wallet_type_category_ref,priority:4" json:"referenceId,omitempty"`
	BalanceAfter int64             `gorm:"not null" json:"balanceAfter"`
	Metadata     JSON              `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    int64             `gorm:"autoCreateTime:milli;index" json:"createdAt"`
}

// Reference returns the reference id or an empty string
func (t Transaction) Reference() string {
	if t.ReferenceID == nil {
		return ""
	}
	return *t.ReferenceID
}

// TransactionFilter narrows a per-user history query
type TransactionFilter struct {
	Type   TransactionType   `json:"type,omitempty"`
	Status TransactionStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// AdminTransactionFilter narrows the ledger-wide listing
type AdminTransactionFilter struct {
	UserID   uint
	Type     TransactionType
	Status   TransactionStatus
	From     int64 // Inclusive lower bound on created_at, unix millis
	To       int64 // Inclusive upper bound on created_at, unix millis
	Page     int
	PageSize int
}

// TransactionPage is one page of the ledger-wide listing
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	Total        int64         `json:"total"`
	TotalPages   int           `json:"total_pages"`
}

// MutationRequest is the input of a single-wallet credit or debit
type MutationRequest struct {
	UserID      uint
	Amount      int64
	Description string
	Category    string
	ReferenceID *string
	Metadata    JSON
}

// MutationResult is the post-operation wallet snapshot and the appended entry.
// Replayed is set when an earlier entry with the same reference was returned.
type MutationResult struct {
	Wallet      Wallet      `json:"wallet"`
	Transaction Transaction `json:"transaction"`
	Replayed    bool        `json:"replayed"`
}

// TransferRequest moves Gross out of the payer wallet and Net into the
// recipient wallet. Gross - Net is retained by the platform.
type TransferRequest struct {
	PayerID           uint
	RecipientID       uint
	Gross             int64
	Net               int64
	ReferenceID       string
	Category          string
	DebitDescription  string
	CreditDescription string
	DebitMetadata     JSON
	CreditMetadata    JSON
}

// TransferResult holds both legs of a committed (or replayed) transfer
type TransferResult struct {
	PayerWallet     Wallet      `json:"payerWallet"`
	RecipientWallet Wallet      `json:"recipientWallet"`
	Debit           Transaction `json:"debit"`
	Credit          Transaction `json:"credit"`
	Replayed        bool        `json:"replayed"`
}
