package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the single mutable monetary total owned by a user. It is
// created together with the account, seeded at zero, and must never go
// negative after a committed mutation. Total uses decimal arithmetic to
// avoid floating point drift on money.
type Balance struct {
	ID        uint64          // balances.id
	UserID    uint64          // balances.user_id (one-to-one with users)
	Total     decimal.Decimal // balances.total, DECIMAL(12,2), >= 0
	IsDeleted bool            // balances.is_deleted
	CreatedAt time.Time       // balances.created_at
	UpdatedAt time.Time       // balances.updated_at
}
