// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// PaymentSettledEvent is published after a fare has been debited from a
// user's balance. It carries enough context for downstream consumers to
// log or notify without querying the primary database.
type PaymentSettledEvent struct {
	PaymentID    uint64 `json:"payment_id"`
	UserID       uint64 `json:"user_id"`
	TravelID     uint64 `json:"travel_id"`
	TrainID      uint64 `json:"train_id"`
	DepartureID  uint64 `json:"departure_id"`
	ArrivalID    uint64 `json:"arrival_id"`
	Fare         string `json:"fare"`
	BalanceAfter string `json:"balance_after"`
	SettledAt    string `json:"settled_at"`
}
