package myerrors

import "errors"

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrDuplicateReference  = errors.New("transaction reference already exists")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrTransactionSettled  = errors.New("transaction already settled")
)
