package ports

import (
	"context"

	"vtc-platform/internal/wallet-service/core/domain/models"
)

// IWalletRepo persists wallets and their ledger. Every balance mutation
// happens inside a transaction that locks the wallet row and writes the
// WalletTransaction row with before/after snapshots in the same commit.
type IWalletRepo interface {
	GetOrCreateWallet(ctx context.Context, owner models.UserRef) (models.Wallet, error)

	// Credit atomically adds amount and records a COMPLETED transaction.
	// A reference that already exists returns ErrDuplicateReference and
	// leaves the balance untouched.
	Credit(ctx context.Context, owner models.UserRef, amount float64, txType, reference, provider string) (models.WalletTransaction, error)

	// Debit atomically subtracts amount and records a PROCESSING
	// transaction. ErrInsufficientBalance when the locked balance is too
	// low.
	Debit(ctx context.Context, owner models.UserRef, amount float64, reference, phone, provider string) (models.WalletTransaction, error)

	// SettleDebit finishes a PROCESSING withdrawal. On failure the exact
	// debited amount goes back to the wallet in the same transaction.
	SettleDebit(ctx context.Context, reference string, success bool, providerRef, reason string) (models.WalletTransaction, error)

	// CreatePending records a deposit row with no balance change.
	CreatePending(ctx context.Context, owner models.UserRef, amount float64, reference, phone, provider string) (models.WalletTransaction, error)

	// MarkProcessing attaches the provider reference to a PENDING row.
	MarkProcessing(ctx context.Context, reference, providerRef string) error

	// SettleDeposit finishes a PENDING/PROCESSING deposit: on success the
	// wallet is credited, on failure only the row status changes. Settling
	// an already-terminal row returns ErrTransactionSettled.
	SettleDeposit(ctx context.Context, reference string, success bool, reason string) (models.WalletTransaction, error)

	GetTransactionByReference(ctx context.Context, reference string) (models.WalletTransaction, error)
	ListTransactions(ctx context.Context, owner models.UserRef, limit int) ([]models.WalletTransaction, error)
}

// FreeMoPay statuses normalized by the adapter.
const (
	ProviderStatusPending = "PENDING"
	ProviderStatusSuccess = "SUCCESS"
	ProviderStatusFailed  = "FAILED"
)

// IPaymentProvider is the mobile-money gateway face (FreeMoPay).
type IPaymentProvider interface {
	InitDeposit(ctx context.Context, phone string, amount float64, externalRef string) (providerRef string, err error)
	InitWithdrawal(ctx context.Context, phone string, amount float64, externalRef string) (providerRef string, err error)
	PaymentStatus(ctx context.Context, providerRef string) (status, reason string, err error)
}
