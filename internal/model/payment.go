package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a fare debit against a user's balance. Amount snapshots the
// travel's fare at creation time, so later fare changes do not rewrite
// history; revising a payment refunds the old fare and debits the new one.
type Payment struct {
	ID        uint64          // payments.id
	UserID    uint64          // payments.user_id
	TravelID  uint64          // payments.travel_id
	Amount    decimal.Decimal // payments.amount (fare charged)
	IsDeleted bool            // payments.is_deleted
	CreatedAt time.Time       // payments.created_at
	UpdatedAt time.Time       // payments.updated_at
}
