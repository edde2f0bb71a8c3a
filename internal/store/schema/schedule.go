package schema

import (
	"time"
)

// VestingSchedule represents the vesting_schedules table - one row per deposit
// in a beneficiary's chronological ledger
type VestingSchedule struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Beneficiary is the address entitled to the released tokens
	Beneficiary string `gorm:"column:beneficiary;not null;type:text;uniqueIndex:idx_schedules_beneficiary_seq,priority:1"`
	// SeqIndex is the record's position in the beneficiary's chronological sequence
	SeqIndex int `gorm:"column:seq_index;not null;uniqueIndex:idx_schedules_beneficiary_seq,priority:2"`
	// Token is the token contract address this schedule vests
	Token string `gorm:"column:token;not null;type:text;index:idx_schedules_token"`
	// TotalAmount is the deposited entitlement (stored as string to support up to 78 digits for wei precision)
	TotalAmount string `gorm:"column:total_amount;not null;type:numeric(78,0)"`
	// ReleasedAmount is the portion already paid out
	ReleasedAmount string `gorm:"column:released_amount;not null;type:numeric(78,0)"`
	// StartTime is when the schedule begins vesting
	StartTime time.Time `gorm:"column:start_time;not null;type:timestamptz"`
	// Duration is the vesting length counted in DurationUnit units
	Duration uint64 `gorm:"column:duration;not null"`
	// DurationUnit is days, weeks, or months
	DurationUnit string `gorm:"column:duration_unit;not null;type:text"`
	// CreatedAt is the timestamp when this row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the VestingSchedule model
func (VestingSchedule) TableName() string {
	return "vesting_schedules"
}
