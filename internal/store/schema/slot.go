package schema

import "time"

// VestingSlot represents the vesting_slots table - the folded per-pair record
// used by the aggregated single-slot ledger variant
type VestingSlot struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Beneficiary is the slot owner
	Beneficiary string `gorm:"column:beneficiary;not null;type:text;uniqueIndex:idx_slots_pair,priority:1"`
	// Token is the token the slot vests
	Token string `gorm:"column:token;not null;type:text;uniqueIndex:idx_slots_pair,priority:2"`
	// TotalAmount is the cumulative deposited amount for the current cycle, including rolled-forward residue
	TotalAmount string `gorm:"column:total_amount;not null;type:numeric(78,0)"`
	// ReleasedAmount is the portion of the current cycle already paid out
	ReleasedAmount string `gorm:"column:released_amount;not null;type:numeric(78,0)"`
	// StartTime is the current cycle's vesting start
	StartTime time.Time `gorm:"column:start_time;not null;type:timestamptz"`
	// CreatedAt is the timestamp when this row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the VestingSlot model
func (VestingSlot) TableName() string {
	return "vesting_slots"
}
