package aggregate

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-vesting/internal/domain"
)

var (
	beneficiary = domain.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	token       = domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	depositor   = domain.Address("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
)

func slotDeposit(start time.Time, amount int64) *domain.DepositRequest {
	return &domain.DepositRequest{
		Beneficiary:  beneficiary,
		Depositor:    depositor,
		Token:        token,
		StartTime:    start,
		DurationUnit: domain.DurationUnitDays,
		Amount:       big.NewInt(amount),
	}
}

func TestCheckDeposit_RejectsBackdatedStart(t *testing.T) {
	book := NewBook(0)
	now := time.Unix(1_700_000_000, 0).UTC()

	assert.NoError(t, book.CheckDeposit(slotDeposit(now, 100), now))
	assert.NoError(t, book.CheckDeposit(slotDeposit(now.Add(time.Hour), 100), now))

	err := book.CheckDeposit(slotDeposit(now.Add(-time.Second), 100), now)
	assert.ErrorIs(t, err, domain.ErrWindowViolation)
}

func TestApplyDeposit_CreateMergeReset(t *testing.T) {
	book := NewBook(0)
	start := time.Unix(1_700_000_000, 0).UTC()

	// First deposit creates the slot
	mutation := book.ApplyDeposit(slotDeposit(start, 1000), start)
	assert.Equal(t, domain.EventTypeScheduleCreated, mutation.Event)
	require.NotNil(t, mutation.Slot)
	assert.Equal(t, "1000", mutation.Slot.TotalAmount.String())

	// A deposit within the active window merges additively and restarts the
	// vesting clock for the whole merged balance
	mergeStart := start.Add(10 * 24 * time.Hour)
	mutation = book.ApplyDeposit(slotDeposit(mergeStart, 500), mergeStart)
	assert.Equal(t, domain.EventTypeScheduleUpdated, mutation.Event)
	assert.Equal(t, "1500", mutation.Slot.TotalAmount.String())
	assert.Equal(t, mergeStart, mutation.Slot.StartTime)
	assert.Equal(t, "0", mutation.Slot.ReleasedAmount.String())
}

func TestApplyDeposit_ResidueCarry(t *testing.T) {
	book := NewBook(0)
	start := time.Unix(1_700_000_000, 0).UTC()

	// Deposit 1000, let the 60-day window fully lapse unclaimed
	book.ApplyDeposit(slotDeposit(start, 1000), start)

	// Deposit 500 after the lapse: residue 1000 carries forward
	newStart := start.Add(61 * 24 * time.Hour)
	mutation := book.ApplyDeposit(slotDeposit(newStart, 500), newStart)
	assert.Equal(t, domain.EventTypeScheduleCreated, mutation.Event)
	assert.Equal(t, "1500", mutation.Slot.TotalAmount.String())
	assert.Equal(t, "0", mutation.Slot.ReleasedAmount.String())
	assert.Equal(t, newStart, mutation.Slot.StartTime)

	// 30 days into the new cycle half the merged balance has vested
	releasable := book.Releasable(beneficiary, token, newStart.Add(30*24*time.Hour))
	assert.Equal(t, "750", releasable.String())
}

func TestApplyDeposit_PartialResidue(t *testing.T) {
	book := NewBook(0)
	start := time.Unix(1_700_000_000, 0).UTC()

	book.ApplyDeposit(slotDeposit(start, 1000), start)

	// Claim part of the first cycle
	total, _ := book.ApplyRelease(beneficiary, token, start.Add(30*24*time.Hour))
	assert.Equal(t, "500", total.String())

	// After the window lapses, only the unclaimed residue rolls forward
	newStart := start.Add(90 * 24 * time.Hour)
	mutation := book.ApplyDeposit(slotDeposit(newStart, 200), newStart)
	assert.Equal(t, "700", mutation.Slot.TotalAmount.String())
	assert.Equal(t, "0", mutation.Slot.ReleasedAmount.String())
}

func TestMergeRestartsVestingClock(t *testing.T) {
	// Pins the specified clock-reset semantics: a later deposit restarts the
	// vesting curve for previously-vested-but-unclaimed amounts too
	book := NewBook(0)
	start := time.Unix(1_700_000_000, 0).UTC()

	book.ApplyDeposit(slotDeposit(start, 1000), start)

	// 30 days in, 500 has vested but nothing is claimed
	halfway := start.Add(30 * 24 * time.Hour)
	assert.Equal(t, "500", book.Releasable(beneficiary, token, halfway).String())

	// Merging a deposit resets the clock: immediately after, nothing is
	// releasable even though 500 was releasable a moment before
	book.ApplyDeposit(slotDeposit(halfway, 500), halfway)
	assert.Equal(t, "0", book.Releasable(beneficiary, token, halfway).String())
}

func TestApplyRelease_SingleSlot(t *testing.T) {
	book := NewBook(0)
	start := time.Unix(1_700_000_000, 0).UTC()
	book.ApplyDeposit(slotDeposit(start, 1000), start)

	// Unknown pair releases nothing
	total, mutation := book.ApplyRelease(depositor, token, start)
	assert.Equal(t, "0", total.String())
	assert.Nil(t, mutation.Slot)

	// Halfway through the window
	total, mutation = book.ApplyRelease(beneficiary, token, start.Add(30*24*time.Hour))
	assert.Equal(t, "500", total.String())
	require.NotNil(t, mutation.Slot)
	assert.Equal(t, "500", mutation.Slot.ReleasedAmount.String())

	// Released amount is monotone; immediate repeat is a no-op
	total, mutation = book.ApplyRelease(beneficiary, token, start.Add(30*24*time.Hour))
	assert.Equal(t, "0", total.String())
	assert.Nil(t, mutation.Slot)

	// Fully-released slot reads as zero-releasable until reused
	total, _ = book.ApplyRelease(beneficiary, token, start.Add(61*24*time.Hour))
	assert.Equal(t, "500", total.String())
	assert.Equal(t, "0", book.Releasable(beneficiary, token, start.Add(90*24*time.Hour)).String())
}

func TestRestore_RebuildsSlots(t *testing.T) {
	state := domain.NewState()
	state.Slots[domain.PairKey{Beneficiary: beneficiary, Token: token}] = &domain.AggregatedSlot{
		TotalAmount:    big.NewInt(1000),
		ReleasedAmount: big.NewInt(250),
		StartTime:      time.Unix(1_700_000_000, 0).UTC(),
	}

	book := NewBook(0)
	book.Restore(state)

	now := time.Unix(1_700_000_000, 0).UTC().Add(30 * 24 * time.Hour)
	assert.Equal(t, "250", book.Releasable(beneficiary, token, now).String())

	slot := book.Slot(beneficiary, token)
	require.NotNil(t, slot)
	assert.Equal(t, "1000", slot.TotalAmount.String())
}

func TestSchedules_SlotView(t *testing.T) {
	book := NewBook(0)
	start := time.Unix(1_700_000_000, 0).UTC()
	book.ApplyDeposit(slotDeposit(start, 1000), start)

	views := book.Schedules(beneficiary, token, start.Add(30*24*time.Hour))
	require.Len(t, views, 1)
	assert.Equal(t, token, views[0].Token)
	assert.Equal(t, "1000", views[0].TotalAmount.String())
	assert.Equal(t, "500", views[0].VestedAmount.String())

	assert.Empty(t, book.Schedules(beneficiary, depositor, start))
}
