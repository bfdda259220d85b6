package db

import (
	"context"
	"errors"
	"fmt"

	"vtc-platform/internal/wallet-service/core/domain/models"
	"vtc-platform/internal/wallet-service/core/myerrors"
	"vtc-platform/internal/wallet-service/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type WalletRepo struct {
	db *DB
}

var _ ports.IWalletRepo = (*WalletRepo)(nil)

func NewWalletRepo(db *DB) *WalletRepo {
	return &WalletRepo{db: db}
}

const txColumns = `
	t.transaction_id, t.wallet_id, t.reference, t.type, t.status, t.amount,
	t.balance_before, t.balance_after, COALESCE(t.phone, ''),
	COALESCE(t.provider, ''), COALESCE(t.provider_ref, ''),
	COALESCE(t.reason, ''), t.created_at, t.updated_at`

func (r *WalletRepo) GetOrCreateWallet(ctx context.Context, owner models.UserRef) (models.Wallet, error) {
	q := `INSERT INTO wallets (owner_type, owner_id, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_type, owner_id) DO NOTHING`
	if _, err := r.db.pool.Exec(ctx, q, owner.Type, owner.ID, models.DefaultCurrency); err != nil {
		return models.Wallet{}, fmt.Errorf("ensure wallet: %v", err)
	}

	q = `SELECT wallet_id, owner_type, owner_id, balance, currency, created_at, updated_at
		FROM wallets WHERE owner_type = $1 AND owner_id = $2`
	var w models.Wallet
	err := r.db.pool.QueryRow(ctx, q, owner.Type, owner.ID).Scan(
		&w.WalletID, &w.Owner.Type, &w.Owner.ID, &w.Balance, &w.Currency,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return models.Wallet{}, fmt.Errorf("load wallet: %v", err)
	}
	return w, nil
}

// lockWallet creates the wallet if needed and returns it locked for the
// duration of tx.
func (r *WalletRepo) lockWallet(ctx context.Context, tx pgx.Tx, owner models.UserRef) (models.Wallet, error) {
	q := `INSERT INTO wallets (owner_type, owner_id, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_type, owner_id) DO NOTHING`
	if _, err := tx.Exec(ctx, q, owner.Type, owner.ID, models.DefaultCurrency); err != nil {
		return models.Wallet{}, fmt.Errorf("ensure wallet: %v", err)
	}

	q = `SELECT wallet_id, owner_type, owner_id, balance, currency, created_at, updated_at
		FROM wallets WHERE owner_type = $1 AND owner_id = $2 FOR UPDATE`
	var w models.Wallet
	err := tx.QueryRow(ctx, q, owner.Type, owner.ID).Scan(
		&w.WalletID, &w.Owner.Type, &w.Owner.ID, &w.Balance, &w.Currency,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return models.Wallet{}, fmt.Errorf("lock wallet: %v", err)
	}
	return w, nil
}

func (r *WalletRepo) Credit(ctx context.Context, owner models.UserRef, amount float64, txType, reference, provider string) (models.WalletTransaction, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return models.WalletTransaction{}, fmt.Errorf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w, err := r.lockWallet(ctx, tx, owner)
	if err != nil {
		return models.WalletTransaction{}, err
	}

	var out models.WalletTransaction
	q := `INSERT INTO wallet_transactions (
		wallet_id, reference, type, status, amount, balance_before, balance_after, provider
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING transaction_id, created_at, updated_at`
	row := tx.QueryRow(ctx, q,
		w.WalletID, reference, txType, models.TxCompleted,
		amount, w.Balance, w.Balance+amount, provider,
	)
	if err := row.Scan(&out.TransactionID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.WalletTransaction{}, myerrors.ErrDuplicateReference
		}
		return models.WalletTransaction{}, fmt.Errorf("insert transaction: %v", err)
	}

	q = `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE wallet_id = $2`
	if _, err := tx.Exec(ctx, q, amount, w.WalletID); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("credit wallet: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("commit: %v", err)
	}

	out.WalletID = w.WalletID
	out.Reference = reference
	out.Type = txType
	out.Status = models.TxCompleted
	out.Amount = amount
	out.BalanceBefore = w.Balance
	out.BalanceAfter = w.Balance + amount
	out.Provider = provider
	return out, nil
}

func (r *WalletRepo) Debit(ctx context.Context, owner models.UserRef, amount float64, reference, phone, provider string) (models.WalletTransaction, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return models.WalletTransaction{}, fmt.Errorf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w, err := r.lockWallet(ctx, tx, owner)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	if w.Balance < amount {
		return models.WalletTransaction{}, myerrors.ErrInsufficientBalance
	}

	var out models.WalletTransaction
	q := `INSERT INTO wallet_transactions (
		wallet_id, reference, type, status, amount, balance_before, balance_after, phone, provider
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING transaction_id, created_at, updated_at`
	row := tx.QueryRow(ctx, q,
		w.WalletID, reference, models.TxTypeWithdrawal, models.TxProcessing,
		amount, w.Balance, w.Balance-amount, phone, provider,
	)
	if err := row.Scan(&out.TransactionID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.WalletTransaction{}, myerrors.ErrDuplicateReference
		}
		return models.WalletTransaction{}, fmt.Errorf("insert transaction: %v", err)
	}

	q = `UPDATE wallets SET balance = balance - $1, updated_at = NOW() WHERE wallet_id = $2`
	if _, err := tx.Exec(ctx, q, amount, w.WalletID); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("debit wallet: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("commit: %v", err)
	}

	out.WalletID = w.WalletID
	out.Reference = reference
	out.Type = models.TxTypeWithdrawal
	out.Status = models.TxProcessing
	out.Amount = amount
	out.BalanceBefore = w.Balance
	out.BalanceAfter = w.Balance - amount
	out.Phone = phone
	out.Provider = provider
	return out, nil
}

func (r *WalletRepo) SettleDebit(ctx context.Context, reference string, success bool, providerRef, reason string) (models.WalletTransaction, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return models.WalletTransaction{}, fmt.Errorf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := r.lockTransaction(ctx, tx, reference)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	if cur.Terminal() {
		return models.WalletTransaction{}, myerrors.ErrTransactionSettled
	}

	status := models.TxCompleted
	if !success {
		status = models.TxFailed
		// put the exact pre-debited amount back
		q := `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE wallet_id = $2`
		if _, err := tx.Exec(ctx, q, cur.Amount, cur.WalletID); err != nil {
			return models.WalletTransaction{}, fmt.Errorf("restore balance: %v", err)
		}
	}

	q := `UPDATE wallet_transactions
		SET status = $1, provider_ref = NULLIF($2, ''), reason = NULLIF($3, ''), updated_at = NOW()
		WHERE reference = $4`
	if _, err := tx.Exec(ctx, q, status, providerRef, reason, reference); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("settle transaction: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("commit: %v", err)
	}

	cur.Status = status
	cur.ProviderRef = providerRef
	cur.Reason = reason
	return cur, nil
}

func (r *WalletRepo) CreatePending(ctx context.Context, owner models.UserRef, amount float64, reference, phone, provider string) (models.WalletTransaction, error) {
	w, err := r.GetOrCreateWallet(ctx, owner)
	if err != nil {
		return models.WalletTransaction{}, err
	}

	var out models.WalletTransaction
	q := `INSERT INTO wallet_transactions (
		wallet_id, reference, type, status, amount, balance_before, balance_after, phone, provider
	) VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8)
	RETURNING transaction_id, created_at, updated_at`
	row := r.db.pool.QueryRow(ctx, q,
		w.WalletID, reference, models.TxTypeDeposit, models.TxPending,
		amount, w.Balance, phone, provider,
	)
	if err := row.Scan(&out.TransactionID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.WalletTransaction{}, myerrors.ErrDuplicateReference
		}
		return models.WalletTransaction{}, fmt.Errorf("insert transaction: %v", err)
	}

	out.WalletID = w.WalletID
	out.Reference = reference
	out.Type = models.TxTypeDeposit
	out.Status = models.TxPending
	out.Amount = amount
	out.BalanceBefore = w.Balance
	out.BalanceAfter = w.Balance
	out.Phone = phone
	out.Provider = provider
	return out, nil
}

func (r *WalletRepo) MarkProcessing(ctx context.Context, reference, providerRef string) error {
	q := `UPDATE wallet_transactions
		SET status = $1, provider_ref = $2, updated_at = NOW()
		WHERE reference = $3 AND status = $4`
	ct, err := r.db.pool.Exec(ctx, q, models.TxProcessing, providerRef, reference, models.TxPending)
	if err != nil {
		return fmt.Errorf("mark processing: %v", err)
	}
	if ct.RowsAffected() == 0 {
		return myerrors.ErrTransactionNotFound
	}
	return nil
}

func (r *WalletRepo) SettleDeposit(ctx context.Context, reference string, success bool, reason string) (models.WalletTransaction, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return models.WalletTransaction{}, fmt.Errorf("begin: %v", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := r.lockTransaction(ctx, tx, reference)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	if cur.Terminal() {
		return models.WalletTransaction{}, myerrors.ErrTransactionSettled
	}

	status := models.TxFailed
	balanceAfter := cur.BalanceBefore
	if success {
		status = models.TxCompleted

		// lock the wallet row and take fresh snapshots, the balance may
		// have moved since the deposit was created
		var balance float64
		q := `SELECT balance FROM wallets WHERE wallet_id = $1 FOR UPDATE`
		if err := tx.QueryRow(ctx, q, cur.WalletID).Scan(&balance); err != nil {
			return models.WalletTransaction{}, fmt.Errorf("lock wallet: %v", err)
		}
		cur.BalanceBefore = balance
		balanceAfter = balance + cur.Amount

		q = `UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE wallet_id = $2`
		if _, err := tx.Exec(ctx, q, cur.Amount, cur.WalletID); err != nil {
			return models.WalletTransaction{}, fmt.Errorf("credit wallet: %v", err)
		}
	}

	q := `UPDATE wallet_transactions
		SET status = $1, balance_before = $2, balance_after = $3,
			reason = NULLIF($4, ''), updated_at = NOW()
		WHERE reference = $5`
	if _, err := tx.Exec(ctx, q, status, cur.BalanceBefore, balanceAfter, reason, reference); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("settle transaction: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.WalletTransaction{}, fmt.Errorf("commit: %v", err)
	}

	cur.Status = status
	cur.BalanceAfter = balanceAfter
	cur.Reason = reason
	return cur, nil
}

func (r *WalletRepo) GetTransactionByReference(ctx context.Context, reference string) (models.WalletTransaction, error) {
	q := `SELECT` + txColumns + ` FROM wallet_transactions t WHERE t.reference = $1`

	t, err := r.scanTransaction(r.db.pool.QueryRow(ctx, q, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WalletTransaction{}, myerrors.ErrTransactionNotFound
		}
		return models.WalletTransaction{}, err
	}
	return t, nil
}

func (r *WalletRepo) ListTransactions(ctx context.Context, owner models.UserRef, limit int) ([]models.WalletTransaction, error) {
	q := `SELECT` + txColumns + `
		FROM wallet_transactions t
		JOIN wallets w ON w.wallet_id = t.wallet_id
		WHERE w.owner_type = $1 AND w.owner_id = $2
		ORDER BY t.created_at DESC
		LIMIT $3`

	rows, err := r.db.pool.Query(ctx, q, owner.Type, owner.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %v", err)
	}
	defer rows.Close()

	var out []models.WalletTransaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *WalletRepo) lockTransaction(ctx context.Context, tx pgx.Tx, reference string) (models.WalletTransaction, error) {
	q := `SELECT` + txColumns + ` FROM wallet_transactions t WHERE t.reference = $1 FOR UPDATE`

	t, err := r.scanTransaction(tx.QueryRow(ctx, q, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WalletTransaction{}, myerrors.ErrTransactionNotFound
		}
		return models.WalletTransaction{}, err
	}
	return t, nil
}

func (r *WalletRepo) scanTransaction(row pgx.Row) (models.WalletTransaction, error) {
	var t models.WalletTransaction
	err := row.Scan(
		&t.TransactionID, &t.WalletID, &t.Reference, &t.Type, &t.Status,
		&t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Phone,
		&t.Provider, &t.ProviderRef, &t.Reason, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
