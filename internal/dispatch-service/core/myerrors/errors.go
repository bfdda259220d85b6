package myerrors

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderTaken        = errors.New("order already taken by another driver")
	ErrNoPendingOffer    = errors.New("no pending offer for this driver")
	ErrNoDriversFound    = errors.New("no drivers found")
	ErrDriverBusy        = errors.New("driver is busy")
	ErrDriverOffline     = errors.New("driver is offline")
)
