// Package aggregate implements the single-slot vesting ledger variant: one
// folded record per (beneficiary, token) pair with a fixed release window.
// Deposits merge into the slot; unclaimed residue rolls forward when a new
// deposit arrives after the prior window fully elapsed.
package aggregate

import (
	"fmt"
	"math/big"
	"time"

	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/vesting"
)

// Book owns the aggregated slots. Like the multi-schedule book it is a pure
// state machine; the engine serializes access and journals mutations.
type Book struct {
	window time.Duration
	slots  map[domain.PairKey]*domain.AggregatedSlot
}

// NewBook creates an empty aggregated-slot book with the given release window.
// A zero window falls back to the contract-wide default of 60 days.
func NewBook(window time.Duration) *Book {
	if window <= 0 {
		window = domain.DEFAULT_RELEASE_WINDOW
	}
	return &Book{
		window: window,
		slots:  make(map[domain.PairKey]*domain.AggregatedSlot),
	}
}

// Restore replays a stored snapshot into the book
func (b *Book) Restore(state *domain.State) {
	for key, slot := range state.Slots {
		b.slots[key] = slot.Clone()
	}
}

// CheckDeposit verifies the slot variant's window rule: deposits may not be
// backdated
func (b *Book) CheckDeposit(req *domain.DepositRequest, now time.Time) error {
	if req.StartTime.Before(now) {
		return fmt.Errorf("%w: start %s is in the past",
			domain.ErrWindowViolation, req.StartTime.UTC().Format(time.RFC3339))
	}
	return nil
}

// ApplyDeposit folds the deposit into the pair's slot.
//
// A stale slot (prior window fully elapsed) resets: the unclaimed residue of
// the old cycle carries forward into the new total and the released counter
// starts over. An active slot merges additively, and the start time is
// overwritten to the latest deposit's start, restarting the vesting clock for
// the whole merged balance.
func (b *Book) ApplyDeposit(req *domain.DepositRequest, now time.Time) *domain.Mutation {
	key := domain.PairKey{Beneficiary: req.Beneficiary, Token: req.Token}
	mutation := &domain.Mutation{
		Beneficiary: req.Beneficiary,
		SlotToken:   req.Token,
	}

	slot, ok := b.slots[key]
	switch {
	case !ok:
		slot = &domain.AggregatedSlot{
			TotalAmount:    new(big.Int).Set(req.Amount),
			ReleasedAmount: new(big.Int),
			StartTime:      req.StartTime,
		}
		b.slots[key] = slot
		mutation.Event = domain.EventTypeScheduleCreated
	case slot.StartTime.Add(b.window).Before(now):
		// Stale cycle: roll the unclaimed residue into the new one
		residue := new(big.Int).Sub(slot.TotalAmount, slot.ReleasedAmount)
		slot.TotalAmount = residue.Add(residue, req.Amount)
		slot.ReleasedAmount = new(big.Int)
		slot.StartTime = req.StartTime
		mutation.Event = domain.EventTypeScheduleCreated
	default:
		slot.TotalAmount.Add(slot.TotalAmount, req.Amount)
		slot.StartTime = req.StartTime
		mutation.Event = domain.EventTypeScheduleUpdated
	}

	mutation.Slot = slot.Clone()
	return mutation
}

// Releasable computes the slot's vested-but-unclaimed amount at now
func (b *Book) Releasable(beneficiary, token domain.Address, now time.Time) *big.Int {
	slot, ok := b.slots[domain.PairKey{Beneficiary: beneficiary, Token: token}]
	if !ok {
		return new(big.Int)
	}
	vested := vesting.SlotVestedAmount(slot, b.window, now)
	return vested.Sub(vested, slot.ReleasedAmount)
}

// ApplyRelease drains the slot's releasable amount. O(1) always: there is one
// slot per pair, no scanning.
func (b *Book) ApplyRelease(beneficiary, token domain.Address, now time.Time) (*big.Int, *domain.Mutation) {
	mutation := &domain.Mutation{
		Beneficiary: beneficiary,
		Event:       domain.EventTypeTokensReleased,
		SlotToken:   token,
	}

	slot, ok := b.slots[domain.PairKey{Beneficiary: beneficiary, Token: token}]
	if !ok {
		return new(big.Int), mutation
	}

	vested := vesting.SlotVestedAmount(slot, b.window, now)
	releasable := vested.Sub(vested, slot.ReleasedAmount)
	if releasable.Sign() > 0 {
		slot.ReleasedAmount.Add(slot.ReleasedAmount, releasable)
		mutation.Slot = slot.Clone()
	}

	return releasable, mutation
}

// Schedules returns the pair's slot as a single read-only view, or the
// beneficiary's slots across tokens when token is empty
func (b *Book) Schedules(beneficiary, token domain.Address, now time.Time) []*domain.ScheduleView {
	var views []*domain.ScheduleView
	for key, slot := range b.slots {
		if key.Beneficiary != beneficiary {
			continue
		}
		if token != "" && key.Token != token {
			continue
		}
		vested := vesting.SlotVestedAmount(slot, b.window, now)
		views = append(views, &domain.ScheduleView{
			Token:            key.Token,
			TotalAmount:      new(big.Int).Set(slot.TotalAmount),
			ReleasedAmount:   new(big.Int).Set(slot.ReleasedAmount),
			VestedAmount:     vested,
			ReleasableAmount: new(big.Int).Sub(vested, slot.ReleasedAmount),
			StartTime:        slot.StartTime,
		})
	}
	return views
}

// Pairs returns every (beneficiary, token) pair with a live slot
func (b *Book) Pairs() []domain.PairKey {
	pairs := make([]domain.PairKey, 0, len(b.slots))
	for key := range b.slots {
		pairs = append(pairs, key)
	}
	return pairs
}

// Slot returns a copy of the stored slot for a pair, or nil if none exists
func (b *Book) Slot(beneficiary, token domain.Address) *domain.AggregatedSlot {
	slot, ok := b.slots[domain.PairKey{Beneficiary: beneficiary, Token: token}]
	if !ok {
		return nil
	}
	return slot.Clone()
}
