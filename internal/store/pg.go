package store

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the journal tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.VestingSchedule{},
		&schema.ReleaseBookmark{},
		&schema.VestingSlot{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// ApplyMutation persists all rows touched by one committed ledger operation in
// a single transaction
func (s *pgStore) ApplyMutation(ctx context.Context, mutation *domain.Mutation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		for _, row := range mutation.Schedules {
			record := schema.VestingSchedule{
				Beneficiary:    mutation.Beneficiary.String(),
				SeqIndex:       row.Index,
				Token:          row.Record.Token.String(),
				TotalAmount:    row.Record.TotalAmount.String(),
				ReleasedAmount: row.Record.ReleasedAmount.String(),
				StartTime:      row.Record.StartTime.UTC(),
				Duration:       row.Record.Duration,
				DurationUnit:   string(row.Record.DurationUnit),
				UpdatedAt:      now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "beneficiary"}, {Name: "seq_index"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"released_amount", "updated_at",
				}),
			}).Create(&record).Error
			if err != nil {
				return fmt.Errorf("failed to upsert schedule: %w", err)
			}
		}

		if mutation.Bookmark != nil {
			bookmark := schema.ReleaseBookmark{
				Beneficiary: mutation.Beneficiary.String(),
				Token:       mutation.Bookmark.Token.String(),
				NextIndex:   mutation.Bookmark.Index,
				UpdatedAt:   now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "beneficiary"}, {Name: "token"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"next_index", "updated_at",
				}),
			}).Create(&bookmark).Error
			if err != nil {
				return fmt.Errorf("failed to upsert bookmark: %w", err)
			}
		}

		if mutation.Slot != nil {
			slot := schema.VestingSlot{
				Beneficiary:    mutation.Beneficiary.String(),
				Token:          mutation.SlotToken.String(),
				TotalAmount:    mutation.Slot.TotalAmount.String(),
				ReleasedAmount: mutation.Slot.ReleasedAmount.String(),
				StartTime:      mutation.Slot.StartTime.UTC(),
				UpdatedAt:      now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "beneficiary"}, {Name: "token"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"total_amount", "released_amount", "start_time", "updated_at",
				}),
			}).Create(&slot).Error
			if err != nil {
				return fmt.Errorf("failed to upsert slot: %w", err)
			}
		}

		return nil
	})
}

// LoadState loads the full ledger snapshot for replay on boot
func (s *pgStore) LoadState(ctx context.Context) (*domain.State, error) {
	state := domain.NewState()

	var schedules []schema.VestingSchedule
	err := s.db.WithContext(ctx).
		Order("beneficiary, seq_index").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	for _, row := range schedules {
		record, err := scheduleFromRow(row)
		if err != nil {
			return nil, err
		}
		beneficiary := domain.Address(row.Beneficiary)
		state.Schedules[beneficiary] = append(state.Schedules[beneficiary], record)
	}

	var bookmarks []schema.ReleaseBookmark
	if err := s.db.WithContext(ctx).Find(&bookmarks).Error; err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}
	for _, row := range bookmarks {
		key := domain.PairKey{
			Beneficiary: domain.Address(row.Beneficiary),
			Token:       domain.Address(row.Token),
		}
		state.Bookmarks[key] = row.NextIndex
	}

	var slots []schema.VestingSlot
	if err := s.db.WithContext(ctx).Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to load slots: %w", err)
	}
	for _, row := range slots {
		slot, err := slotFromRow(row)
		if err != nil {
			return nil, err
		}
		key := domain.PairKey{
			Beneficiary: domain.Address(row.Beneficiary),
			Token:       domain.Address(row.Token),
		}
		state.Slots[key] = slot
	}

	return state, nil
}

// Ping verifies database connectivity
func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func scheduleFromRow(row schema.VestingSchedule) (*domain.ScheduleRecord, error) {
	total, ok := new(big.Int).SetString(row.TotalAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid total amount %q for schedule %d", row.TotalAmount, row.ID)
	}
	released, ok := new(big.Int).SetString(row.ReleasedAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid released amount %q for schedule %d", row.ReleasedAmount, row.ID)
	}
	return &domain.ScheduleRecord{
		Token:          domain.Address(row.Token),
		TotalAmount:    total,
		ReleasedAmount: released,
		StartTime:      row.StartTime.UTC(),
		Duration:       row.Duration,
		DurationUnit:   domain.DurationUnit(row.DurationUnit),
	}, nil
}

func slotFromRow(row schema.VestingSlot) (*domain.AggregatedSlot, error) {
	total, ok := new(big.Int).SetString(row.TotalAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid total amount %q for slot %d", row.TotalAmount, row.ID)
	}
	released, ok := new(big.Int).SetString(row.ReleasedAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid released amount %q for slot %d", row.ReleasedAmount, row.ID)
	}
	return &domain.AggregatedSlot{
		TotalAmount:    total,
		ReleasedAmount: released,
		StartTime:      row.StartTime.UTC(),
	}, nil
}
