package model

import "time"

const (
	PoolPending   = "PENDING"
	PoolAccepted  = "ACCEPTED"
	PoolRejected  = "REJECTED"
	PoolTimeout   = "TIMEOUT"
	PoolCancelled = "CANCELLED"
)

// PoolEntry is one candidate driver's offer for one order. At most one
// non-terminal (PENDING) entry may exist per (order, driver) pair, and
// exactly one entry per order may end ACCEPTED.
type PoolEntry struct {
	ID            string // uuid
	OrderID       string // uuid
	DriverID      string // uuid
	PriorityRank  int
	DistanceKm    float64 // distance at the time of the offer
	RequestStatus string
	RequestedAt   time.Time
	RespondedAt   time.Time
	RejectReason  string
	ResponseTime  time.Duration
}

// Terminal reports whether the offer can no longer change.
func (p *PoolEntry) Terminal() bool {
	return p.RequestStatus != PoolPending
}
