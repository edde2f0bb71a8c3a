package schema

import "time"

// ReleaseBookmark represents the release_bookmarks table - the persisted
// amortized cursor per (beneficiary, token) pair
type ReleaseBookmark struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Beneficiary is the ledger owner
	Beneficiary string `gorm:"column:beneficiary;not null;type:text;uniqueIndex:idx_bookmarks_pair,priority:1"`
	// Token is the token the cursor applies to
	Token string `gorm:"column:token;not null;type:text;uniqueIndex:idx_bookmarks_pair,priority:2"`
	// NextIndex is the lowest sequence index not yet confirmed fully released
	NextIndex int `gorm:"column:next_index;not null"`
	// UpdatedAt is the timestamp when this row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ReleaseBookmark model
func (ReleaseBookmark) TableName() string {
	return "release_bookmarks"
}
