package model

import (
	"errors"
	"time"
)

// PointsEntryType is the business reason of a ledger movement.
type PointsEntryType string

const (
	PointsCharge PointsEntryType = "CHARGE"
	PointsUse    PointsEntryType = "USE"
	PointsRefund PointsEntryType = "REFUND"
	PointsAdmin  PointsEntryType = "ADMIN"
)

var (
	ErrLedgerSnapshot = errors.New("ledger entry balance_after must equal balance_before + amount")
	ErrLedgerNegative = errors.New("ledger entry would leave a negative balance")
)

// PointsEntry is one row of the points ledger. Amount is signed: USE is
// negative, CHARGE and REFUND are positive, ADMIN may be either.
type PointsEntry struct {
	ID            uint64          `json:"id"`
	UserID        uint64          `json:"user_id"`
	Type          PointsEntryType `json:"type"`
	Amount        int64           `json:"amount"`
	BalanceBefore int64           `json:"balance_before"`
	BalanceAfter  int64           `json:"balance_after"`
	ReservationID *uint64         `json:"reservation_id,omitempty"`
	Memo          string          `json:"memo,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewPointsEntry builds an entry with a consistent before/after snapshot.
func NewPointsEntry(userID uint64, typ PointsEntryType, amount, before int64, reservationID *uint64, memo string) PointsEntry {
	return PointsEntry{
		UserID:        userID,
		Type:          typ,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  before + amount,
		ReservationID: reservationID,
		Memo:          memo,
	}
}

// Validate enforces the ledger invariants.
func (e PointsEntry) Validate() error {
	if e.BalanceAfter != e.BalanceBefore+e.Amount {
		return ErrLedgerSnapshot
	}
	if e.BalanceAfter < 0 {
		return ErrLedgerNegative
	}
	return nil
}
