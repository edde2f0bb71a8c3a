package domain

import (
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Address represents a normalized (EIP-55 checksummed) Ethereum address used
// to identify beneficiaries, depositors, and token contracts
type Address string

// NewAddress validates and normalizes an address string
func NewAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: invalid address %q", ErrInvalidArgument, s)
	}
	normalized := common.HexToAddress(s).String()
	if normalized == ETHEREUM_ZERO_ADDRESS {
		return "", fmt.Errorf("%w: zero address", ErrInvalidArgument)
	}
	return Address(normalized), nil
}

// String returns the string representation of the address
func (a Address) String() string {
	return string(a)
}

// Valid checks if the address is a non-zero hex address
func (a Address) Valid() bool {
	return common.IsHexAddress(string(a)) && string(a) != ETHEREUM_ZERO_ADDRESS
}

// DurationUnit represents the unit a schedule's duration is counted in
type DurationUnit string

const (
	DurationUnitDays   DurationUnit = "days"
	DurationUnitWeeks  DurationUnit = "weeks"
	DurationUnitMonths DurationUnit = "months"
)

// Seconds returns the fixed number of seconds one duration unit spans.
// Unknown units return 0; they are rejected at construction via Valid.
func (u DurationUnit) Seconds() int64 {
	switch u {
	case DurationUnitDays:
		return 86400
	case DurationUnitWeeks:
		return 604800
	case DurationUnitMonths:
		return 2592000
	}
	return 0
}

// Valid checks if the duration unit is a known unit
func (u DurationUnit) Valid() bool {
	return u == DurationUnitDays || u == DurationUnitWeeks || u == DurationUnitMonths
}

// ScheduleRecord represents one deposit's entitlement in a beneficiary's ledger.
// ReleasedAmount is monotonically non-decreasing and bounded above by the
// vested amount at every observation.
type ScheduleRecord struct {
	Token          Address
	TotalAmount    *big.Int
	ReleasedAmount *big.Int
	StartTime      time.Time
	Duration       uint64
	DurationUnit   DurationUnit
}

// FullyReleased checks if every unit of the record's total has been released
func (r *ScheduleRecord) FullyReleased() bool {
	return r.ReleasedAmount.Cmp(r.TotalAmount) >= 0
}

// Clone returns a deep copy of the record
func (r *ScheduleRecord) Clone() *ScheduleRecord {
	return &ScheduleRecord{
		Token:          r.Token,
		TotalAmount:    new(big.Int).Set(r.TotalAmount),
		ReleasedAmount: new(big.Int).Set(r.ReleasedAmount),
		StartTime:      r.StartTime,
		Duration:       r.Duration,
		DurationUnit:   r.DurationUnit,
	}
}

// AggregatedSlot represents the folded per-(beneficiary, token) record used by
// the aggregated single-slot ledger variant
type AggregatedSlot struct {
	TotalAmount    *big.Int
	ReleasedAmount *big.Int
	StartTime      time.Time
}

// Clone returns a deep copy of the slot
func (s *AggregatedSlot) Clone() *AggregatedSlot {
	return &AggregatedSlot{
		TotalAmount:    new(big.Int).Set(s.TotalAmount),
		ReleasedAmount: new(big.Int).Set(s.ReleasedAmount),
		StartTime:      s.StartTime,
	}
}

// PairKey identifies a (beneficiary, token) pair
type PairKey struct {
	Beneficiary Address
	Token       Address
}

// DepositRequest represents a request to lock tokens into a new vesting schedule
type DepositRequest struct {
	Beneficiary  Address
	Depositor    Address
	Token        Address
	StartTime    time.Time
	Duration     uint64
	DurationUnit DurationUnit
	Amount       *big.Int
}

// Validate checks the request's arguments. Order and window rules are enforced
// by the ledger variants, not here.
func (r *DepositRequest) Validate() error {
	if !r.Beneficiary.Valid() {
		return fmt.Errorf("%w: beneficiary %q", ErrInvalidArgument, r.Beneficiary)
	}
	if !r.Depositor.Valid() {
		return fmt.Errorf("%w: depositor %q", ErrInvalidArgument, r.Depositor)
	}
	if !r.Token.Valid() {
		return fmt.Errorf("%w: token %q", ErrInvalidArgument, r.Token)
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if !r.DurationUnit.Valid() {
		return fmt.Errorf("%w: duration unit %q", ErrInvalidArgument, r.DurationUnit)
	}
	if r.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidArgument)
	}
	return nil
}

// ScheduleView is a read-only projection of a schedule record with amounts
// computed at a given observation time
type ScheduleView struct {
	Token            Address
	TotalAmount      *big.Int
	ReleasedAmount   *big.Int
	VestedAmount     *big.Int
	ReleasableAmount *big.Int
	StartTime        time.Time
	Duration         uint64
	DurationUnit     DurationUnit
}

var numericRegex = regexp.MustCompile(`^[1-9][0-9]*$`)

// ParseAmount parses a positive wei-precision decimal string into a big integer
func ParseAmount(s string) (*big.Int, error) {
	if !numericRegex.MatchString(s) {
		return nil, fmt.Errorf("%w: amount %q is not a positive integer", ErrInvalidArgument, s)
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidArgument, s)
	}
	return amount, nil
}
