package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vtc-platform/internal/config"
	"vtc-platform/internal/mylogger"
	"vtc-platform/internal/wallet-service/core/domain/models"
	"vtc-platform/internal/wallet-service/core/myerrors"
	"vtc-platform/internal/wallet-service/core/ports"

	"github.com/google/uuid"
)

const providerName = "FREEMOPAY"

type WalletService struct {
	ctx      context.Context
	cfg      *config.Config
	repo     ports.IWalletRepo
	provider ports.IPaymentProvider
	mylog    mylogger.Logger
}

func NewWalletService(
	ctx context.Context,
	cfg *config.Config,
	repo ports.IWalletRepo,
	provider ports.IPaymentProvider,
	mylog mylogger.Logger,
) *WalletService {
	return &WalletService{
		ctx:      ctx,
		cfg:      cfg,
		repo:     repo,
		provider: provider,
		mylog:    mylog,
	}
}

func (ws *WalletService) Balance(ctx context.Context, owner models.UserRef) (models.Wallet, error) {
	if !owner.Valid() {
		return models.Wallet{}, models.ErrInvalidUserRef
	}
	return ws.repo.GetOrCreateWallet(ctx, owner)
}

// Deposit initiates a FreeMoPay collection and polls it to completion in the
// background. The wallet is credited only when the provider confirms.
func (ws *WalletService) Deposit(ctx context.Context, owner models.UserRef, phone string, amount float64) (models.WalletTransaction, error) {
	mylog := ws.mylog.Action("Deposit").With("owner", owner.String())

	if !owner.Valid() {
		return models.WalletTransaction{}, models.ErrInvalidUserRef
	}
	if amount <= 0 {
		return models.WalletTransaction{}, myerrors.ErrInvalidAmount
	}

	reference := "DEP_" + uuid.NewString()
	tx, err := ws.repo.CreatePending(ctx, owner, amount, reference, phone, providerName)
	if err != nil {
		return models.WalletTransaction{}, fmt.Errorf("create deposit: %w", err)
	}

	providerRef, err := ws.provider.InitDeposit(ctx, phone, amount, reference)
	if err != nil {
		mylog.Error("provider rejected deposit", err, "reference", reference)
		if _, settleErr := ws.repo.SettleDeposit(ctx, reference, false, err.Error()); settleErr != nil {
			mylog.Error("failed to mark deposit failed", settleErr, "reference", reference)
		}
		return models.WalletTransaction{}, fmt.Errorf("payment provider: %w", err)
	}

	if err := ws.repo.MarkProcessing(ctx, reference, providerRef); err != nil {
		mylog.Error("failed to attach provider ref", err, "reference", reference)
	}
	tx.Status = models.TxProcessing
	tx.ProviderRef = providerRef

	go ws.pollDeposit(reference, providerRef)

	mylog.Info("deposit initiated", "reference", reference, "amount", amount)
	return tx, nil
}

func (ws *WalletService) pollDeposit(reference, providerRef string) {
	mylog := ws.mylog.Action("pollDeposit").With("reference", reference)

	interval := time.Duration(ws.cfg.Payments.PollIntervalSec) * time.Second
	t := time.NewTicker(interval)
	defer t.Stop()

	for attempt := 0; attempt < ws.cfg.Payments.PollMaxAttempts; attempt++ {
		select {
		case <-ws.ctx.Done():
			return
		case <-t.C:
		}

		status, reason, err := ws.provider.PaymentStatus(ws.ctx, providerRef)
		if err != nil {
			mylog.Warn("status poll failed", "attempt", attempt)
			continue
		}
		switch status {
		case ports.ProviderStatusSuccess:
			if _, err := ws.repo.SettleDeposit(ws.ctx, reference, true, ""); err != nil &&
				!errors.Is(err, myerrors.ErrTransactionSettled) {
				mylog.Error("failed to complete deposit", err)
			}
			mylog.Info("deposit completed")
			return
		case ports.ProviderStatusFailed:
			if _, err := ws.repo.SettleDeposit(ws.ctx, reference, false, reason); err != nil &&
				!errors.Is(err, myerrors.ErrTransactionSettled) {
				mylog.Error("failed to mark deposit failed", err)
			}
			mylog.Info("deposit failed", "reason", reason)
			return
		}
	}
	// Left PROCESSING. A later check-status call settles it.
	mylog.Warn("deposit poll budget exhausted")
}

// Withdraw pre-debits the wallet, then asks the provider to pay out. A
// provider failure restores the exact debited amount.
func (ws *WalletService) Withdraw(ctx context.Context, owner models.UserRef, phone string, amount float64) (models.WalletTransaction, error) {
	mylog := ws.mylog.Action("Withdraw").With("owner", owner.String())

	if !owner.Valid() {
		return models.WalletTransaction{}, models.ErrInvalidUserRef
	}
	if amount <= 0 {
		return models.WalletTransaction{}, myerrors.ErrInvalidAmount
	}

	reference := "WD_" + uuid.NewString()
	tx, err := ws.repo.Debit(ctx, owner, amount, reference, phone, providerName)
	if err != nil {
		if errors.Is(err, myerrors.ErrInsufficientBalance) {
			return models.WalletTransaction{}, err
		}
		return models.WalletTransaction{}, fmt.Errorf("debit wallet: %w", err)
	}

	providerRef, err := ws.provider.InitWithdrawal(ctx, phone, amount, reference)
	if err != nil {
		mylog.Error("provider rejected withdrawal, restoring balance", err, "reference", reference)
		restored, settleErr := ws.repo.SettleDebit(ctx, reference, false, "", err.Error())
		if settleErr != nil {
			mylog.Error("FAILED TO RESTORE DEBITED AMOUNT", settleErr, "reference", reference)
			return models.WalletTransaction{}, fmt.Errorf("restore after provider failure: %w", settleErr)
		}
		return restored, fmt.Errorf("payment provider: %w", err)
	}

	settled, err := ws.repo.SettleDebit(ctx, reference, true, providerRef, "")
	if err != nil {
		return tx, fmt.Errorf("settle withdrawal: %w", err)
	}

	mylog.Info("withdrawal completed", "reference", reference, "amount", amount)
	return settled, nil
}

func (ws *WalletService) Transactions(ctx context.Context, owner models.UserRef, limit int) ([]models.WalletTransaction, error) {
	if !owner.Valid() {
		return nil, models.ErrInvalidUserRef
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return ws.repo.ListTransactions(ctx, owner, limit)
}

func (ws *WalletService) TransactionByReference(ctx context.Context, reference string) (models.WalletTransaction, error) {
	if reference == "" {
		return models.WalletTransaction{}, myerrors.ErrTransactionNotFound
	}
	return ws.repo.GetTransactionByReference(ctx, reference)
}

// CheckStatus re-queries the provider for a non-terminal transaction and
// settles it with the answer.
func (ws *WalletService) CheckStatus(ctx context.Context, reference string) (models.WalletTransaction, error) {
	mylog := ws.mylog.Action("CheckStatus").With("reference", reference)

	tx, err := ws.repo.GetTransactionByReference(ctx, reference)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	if tx.Terminal() || tx.ProviderRef == "" {
		return tx, nil
	}

	status, reason, err := ws.provider.PaymentStatus(ctx, tx.ProviderRef)
	if err != nil {
		return tx, fmt.Errorf("payment provider: %w", err)
	}
	if status == ports.ProviderStatusPending {
		return tx, nil
	}

	success := status == ports.ProviderStatusSuccess
	var settled models.WalletTransaction
	switch tx.Type {
	case models.TxTypeDeposit:
		settled, err = ws.repo.SettleDeposit(ctx, reference, success, reason)
	case models.TxTypeWithdrawal:
		settled, err = ws.repo.SettleDebit(ctx, reference, success, tx.ProviderRef, reason)
	default:
		return tx, nil
	}
	if err != nil {
		if errors.Is(err, myerrors.ErrTransactionSettled) {
			return ws.repo.GetTransactionByReference(ctx, reference)
		}
		return tx, err
	}

	mylog.Info("transaction settled via status check", "status", settled.Status)
	return settled, nil
}

// CreditBonus is the single entry point for welcome and referral bonuses.
// Idempotent on reference: replays from the broker credit at most once.
func (ws *WalletService) CreditBonus(ctx context.Context, owner models.UserRef, kind string, amount float64, reference string) error {
	mylog := ws.mylog.Action("CreditBonus").With("owner", owner.String(), "reference", reference)

	if !owner.Valid() {
		return models.ErrInvalidUserRef
	}
	if amount <= 0 {
		return myerrors.ErrInvalidAmount
	}
	if reference == "" {
		return fmt.Errorf("bonus reference required")
	}

	if _, err := ws.repo.Credit(ctx, owner, amount, models.TxTypeBonus, reference, kind); err != nil {
		if errors.Is(err, myerrors.ErrDuplicateReference) {
			mylog.Info("bonus already credited, skipping")
			return nil
		}
		mylog.Error("failed to credit bonus", err)
		return err
	}

	mylog.Info("bonus credited", "kind", kind, "amount", amount)
	return nil
}
