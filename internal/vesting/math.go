// Package vesting implements the pure release-accounting math: how much of a
// linear schedule has unlocked at a given observation time.
package vesting

import (
	"math/big"
	"time"

	"github.com/feral-file/ff-vesting/internal/domain"
)

// VestedAmount computes the portion of total that has linearly vested by now.
// Before start nothing is vested; a zero duration vests the full total at
// start; otherwise the amount is interpolated as total * elapsed / window with
// truncating division. The multiply happens before the divide on big.Int
// values, so wei-scale totals never overflow or lose precision.
func VestedAmount(total *big.Int, start time.Time, duration uint64, unit domain.DurationUnit, now time.Time) *big.Int {
	window := new(big.Int).Mul(
		new(big.Int).SetUint64(duration),
		big.NewInt(unit.Seconds()),
	)
	return linearVested(total, start, window, now)
}

// SlotVestedAmount computes the vested portion of an aggregated slot whose
// window is a fixed contract-wide duration rather than a per-record unit count
func SlotVestedAmount(slot *domain.AggregatedSlot, window time.Duration, now time.Time) *big.Int {
	windowSeconds := big.NewInt(int64(window / time.Second))
	return linearVested(slot.TotalAmount, slot.StartTime, windowSeconds, now)
}

// ReleasableAmount computes the vested-but-unclaimed portion of a record.
// Callers maintain released <= vested as a class invariant, so the
// subtraction cannot go negative.
func ReleasableAmount(record *domain.ScheduleRecord, now time.Time) *big.Int {
	vested := VestedAmount(record.TotalAmount, record.StartTime, record.Duration, record.DurationUnit, now)
	return vested.Sub(vested, record.ReleasedAmount)
}

func linearVested(total *big.Int, start time.Time, windowSeconds *big.Int, now time.Time) *big.Int {
	if now.Before(start) {
		return new(big.Int)
	}

	elapsed := now.Unix() - start.Unix()
	if windowSeconds.Sign() == 0 || windowSeconds.Cmp(big.NewInt(elapsed)) <= 0 {
		return new(big.Int).Set(total)
	}

	vested := new(big.Int).Mul(total, big.NewInt(elapsed))
	return vested.Quo(vested, windowSeconds)
}
