package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types. A deposit increases the owning balance, a withdrawal
// decreases it.
const (
	TransactionDeposit  = "deposit"
	TransactionWithdraw = "withdraw"
)

// ValidTransactionType reports whether t is one of the accepted ledger
// entry types.
func ValidTransactionType(t string) bool {
	return t == TransactionDeposit || t == TransactionWithdraw
}

// Transaction is a deposit/withdraw ledger entry against a balance. The
// row is a historical record: editing or deleting it requires reversing
// its effect on the balance before applying the new one, which is the
// ledger engine's job.
type Transaction struct {
	ID        uint64          // transactions.id
	UserID    uint64          // transactions.user_id
	BalanceID uint64          // transactions.balance_id
	Type      string          // transactions.type ('deposit'|'withdraw')
	Amount    decimal.Decimal // transactions.amount, > 0
	IsDeleted bool            // transactions.is_deleted
	CreatedAt time.Time       // transactions.created_at
	UpdatedAt time.Time       // transactions.updated_at
}
