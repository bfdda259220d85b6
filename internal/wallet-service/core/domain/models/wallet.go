package models

import "time"

const DefaultCurrency = "XAF"

type Wallet struct {
	WalletID  string    `json:"wallet_id"`
	Owner     UserRef   `json:"owner"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction lifecycle. Only COMPLETED rows count toward the balance, and
// the sum of signed completed amounts must always equal it.
const (
	TxPending    = "PENDING"
	TxProcessing = "PROCESSING"
	TxCompleted  = "COMPLETED"
	TxFailed     = "FAILED"
	TxCancelled  = "CANCELLED"
)

const (
	TxTypeDeposit    = "DEPOSIT"
	TxTypeWithdrawal = "WITHDRAWAL"
	TxTypeBonus      = "BONUS"
)

type WalletTransaction struct {
	TransactionID string    `json:"transaction_id"`
	WalletID      string    `json:"wallet_id"`
	Reference     string    `json:"reference"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	BalanceBefore float64   `json:"balance_before"`
	BalanceAfter  float64   `json:"balance_after"`
	Phone         string    `json:"phone,omitempty"`
	Provider      string    `json:"provider,omitempty"`
	ProviderRef   string    `json:"provider_ref,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Terminal reports whether the transaction can still change state.
func (t WalletTransaction) Terminal() bool {
	return t.Status == TxCompleted || t.Status == TxFailed || t.Status == TxCancelled
}

// Signed returns the amount with the sign it contributes to the balance.
func (t WalletTransaction) Signed() float64 {
	if t.Type == TxTypeWithdrawal {
		return -t.Amount
	}
	return t.Amount
}
