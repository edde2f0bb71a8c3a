package domain

import (
	"math/big"
	"time"
)

// EventType represents the type of vesting notification
type EventType string

const (
	// EventTypeScheduleCreated is emitted when a deposit opens a new schedule or cycle
	EventTypeScheduleCreated EventType = "schedule_created"
	// EventTypeScheduleUpdated is emitted when a deposit merges into an active slot
	EventTypeScheduleUpdated EventType = "schedule_updated"
	// EventTypeTokensReleased is emitted when vested tokens are paid out
	EventTypeTokensReleased EventType = "tokens_released"
)

// VestingEvent represents a notification published after a state commit.
// This is the standard format published to NATS.
type VestingEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Beneficiary Address   `json:"beneficiary"`
	Token       Address   `json:"token"`
	StartTime   time.Time `json:"start_time,omitempty"`
	TotalAmount string    `json:"total_amount,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Valid checks the event carries the fields its type requires
func (e *VestingEvent) Valid() bool {
	if !e.Beneficiary.Valid() || !e.Token.Valid() {
		return false
	}
	switch e.Type {
	case EventTypeScheduleCreated, EventTypeScheduleUpdated:
		return validAmountString(e.TotalAmount)
	case EventTypeTokensReleased:
		return validAmountString(e.Amount)
	}
	return false
}

func validAmountString(s string) bool {
	amount, ok := new(big.Int).SetString(s, 10)
	return ok && amount.Sign() > 0
}
