package dto

import "vtc-platform/internal/wallet-service/core/domain/models"

type BalanceResponse struct {
	WalletID string  `json:"wallet_id"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

type DepositRequest struct {
	Phone  string  `json:"phone"`
	Amount float64 `json:"amount"`
}

type WithdrawalRequest struct {
	Phone  string  `json:"phone"`
	Amount float64 `json:"amount"`
}

type TransactionResponse struct {
	Reference     string  `json:"reference"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	Provider      string  `json:"provider,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func FromTransaction(t models.WalletTransaction) TransactionResponse {
	return TransactionResponse{
		Reference:     t.Reference,
		Type:          t.Type,
		Status:        t.Status,
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		Provider:      t.Provider,
		Reason:        t.Reason,
		CreatedAt:     t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
