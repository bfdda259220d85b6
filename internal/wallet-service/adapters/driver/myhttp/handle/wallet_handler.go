package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vtc-platform/internal/mylogger"
	"vtc-platform/internal/wallet-service/core/domain/dto"
	"vtc-platform/internal/wallet-service/core/domain/models"
	"vtc-platform/internal/wallet-service/core/myerrors"
	"vtc-platform/internal/wallet-service/core/services"
)

type WalletHandler struct {
	wallet *services.WalletService
	mylog  mylogger.Logger
}

func NewWalletHandler(wallet *services.WalletService, mylog mylogger.Logger) *WalletHandler {
	return &WalletHandler{
		wallet: wallet,
		mylog:  mylog,
	}
}

func (wh *WalletHandler) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := callerRef(r)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		wallet, err := wh.wallet.Balance(ctx, owner)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.BalanceResponse{
			WalletID: wallet.WalletID,
			Balance:  wallet.Balance,
			Currency: wallet.Currency,
		})
	}
}

func (wh *WalletHandler) Deposit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := wh.mylog.Action("Deposit")

		owner, err := callerRef(r)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, err)
			return
		}

		var req dto.DepositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		tx, err := wh.wallet.Deposit(ctx, owner, req.Phone, req.Amount)
		if err != nil {
			if errors.Is(err, myerrors.ErrInvalidAmount) {
				jsonError(w, http.StatusBadRequest, err)
				return
			}
			mylog.Error("deposit failed", err)
			jsonError(w, http.StatusBadGateway, err)
			return
		}

		jsonResponse(w, http.StatusAccepted, dto.FromTransaction(tx))
	}
}

func (wh *WalletHandler) Withdrawal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mylog := wh.mylog.Action("Withdrawal")

		owner, err := callerRef(r)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, err)
			return
		}

		var req dto.WithdrawalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		tx, err := wh.wallet.Withdraw(ctx, owner, req.Phone, req.Amount)
		if err != nil {
			switch {
			case errors.Is(err, myerrors.ErrInvalidAmount),
				errors.Is(err, myerrors.ErrInsufficientBalance):
				jsonError(w, http.StatusBadRequest, err)
			default:
				mylog.Error("withdrawal failed", err)
				jsonError(w, http.StatusBadGateway, err)
			}
			return
		}

		jsonResponse(w, http.StatusOK, dto.FromTransaction(tx))
	}
}

func (wh *WalletHandler) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := callerRef(r)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, err)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		txs, err := wh.wallet.Transactions(ctx, owner, limit)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err)
			return
		}

		out := make([]dto.TransactionResponse, 0, len(txs))
		for _, t := range txs {
			out = append(out, dto.FromTransaction(t))
		}
		jsonResponse(w, http.StatusOK, out)
	}
}

func (wh *WalletHandler) TransactionByReference() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.PathValue("reference")

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		tx, err := wh.wallet.TransactionByReference(ctx, reference)
		if err != nil {
			wh.writeTxError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.FromTransaction(tx))
	}
}

func (wh *WalletHandler) CheckStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.PathValue("reference")

		ctx, cancel := context.WithTimeout(r.Context(), WaitTime*time.Second)
		defer cancel()

		tx, err := wh.wallet.CheckStatus(ctx, reference)
		if err != nil {
			wh.writeTxError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.FromTransaction(tx))
	}
}

func (wh *WalletHandler) writeTxError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, myerrors.ErrTransactionNotFound):
		jsonError(w, http.StatusNotFound, err)
	case errors.Is(err, models.ErrInvalidUserRef):
		jsonError(w, http.StatusUnauthorized, err)
	default:
		jsonError(w, http.StatusInternalServerError, err)
	}
}
