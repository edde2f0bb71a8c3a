package store

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/feral-file/ff-vesting/internal/domain"
)

var (
	testDB      *gorm.DB
	pgContainer *postgres.PostgresContainer
)

// TestMain sets up the test database before running tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	// Check if we should use an external database (for CI or local development)
	dbHost := os.Getenv("TEST_DB_HOST")
	dbPort := os.Getenv("TEST_DB_PORT")
	dbUser := os.Getenv("TEST_DB_USER")
	dbPassword := os.Getenv("TEST_DB_PASSWORD")
	dbName := os.Getenv("TEST_DB_NAME")

	var dsn string
	var err error

	if dbHost != "" {
		// Use external database
		if dbPort == "" {
			dbPort = "5432"
		}
		if dbUser == "" {
			dbUser = "postgres"
		}
		if dbPassword == "" {
			dbPassword = "postgres"
		}
		if dbName == "" {
			dbName = "test_db"
		}

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPassword, dbName)

		fmt.Printf("Using external database: %s:%s/%s\n", dbHost, dbPort, dbName)
	} else {
		// Start a PostgreSQL container for testing
		pgContainer, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("test_db"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			fmt.Printf("Failed to start PostgreSQL container: %v\n", err)
			os.Exit(1)
		}

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Printf("Failed to get connection string: %v\n", err)
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
			os.Exit(1)
		}

		fmt.Printf("Started PostgreSQL container\n")
	}

	// Connect to the database
	testDB, err = gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		if pgContainer != nil {
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
		}
		os.Exit(1)
	}

	// Initialize the database schema
	if err := Migrate(testDB); err != nil {
		fmt.Printf("Failed to migrate database: %v\n", err)
		if pgContainer != nil {
			if err := pgContainer.Terminate(ctx); err != nil {
				fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
			}
		}
		os.Exit(1)
	}

	// Run tests
	code := m.Run()

	// Cleanup
	if pgContainer != nil {
		if err := pgContainer.Terminate(ctx); err != nil {
			fmt.Printf("Failed to terminate PostgreSQL container: %v\n", err)
		}
	}

	os.Exit(code)
}

// initPGTestDB creates a store backed by a transaction that rolls back after
// the test, so each test sees a clean database
func initPGTestDB(t *testing.T) Store {
	tx := testDB.Begin()
	require.NotNil(t, tx)
	require.NoError(t, tx.Error)

	t.Cleanup(func() {
		tx.Rollback()
	})

	return NewPGStore(tx)
}

var (
	testBeneficiary = domain.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	testToken       = domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func scheduleRecord(token domain.Address, total int64, start time.Time) *domain.ScheduleRecord {
	return &domain.ScheduleRecord{
		Token:          token,
		TotalAmount:    big.NewInt(total),
		ReleasedAmount: new(big.Int),
		StartTime:      start,
		Duration:       10,
		DurationUnit:   domain.DurationUnitDays,
	}
}

func TestApplyMutationSchedules(t *testing.T) {
	st := initPGTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mutation := &domain.Mutation{
		Beneficiary: testBeneficiary,
		Event:       domain.EventTypeScheduleCreated,
		Schedules: []domain.ScheduleRow{
			{Index: 0, Record: scheduleRecord(testToken, 1000, start)},
			{Index: 1, Record: scheduleRecord(testToken, 2000, start.Add(time.Hour))},
		},
	}
	require.NoError(t, st.ApplyMutation(ctx, mutation))

	state, err := st.LoadState(ctx)
	require.NoError(t, err)

	records := state.Schedules[testBeneficiary]
	require.Len(t, records, 2)
	assert.Equal(t, testToken, records[0].Token)
	assert.Equal(t, "1000", records[0].TotalAmount.String())
	assert.Equal(t, "0", records[0].ReleasedAmount.String())
	assert.True(t, records[0].StartTime.Equal(start))
	assert.Equal(t, uint64(10), records[0].Duration)
	assert.Equal(t, domain.DurationUnitDays, records[0].DurationUnit)
	assert.Equal(t, "2000", records[1].TotalAmount.String())
}

func TestApplyMutationUpsertsReleasedAmount(t *testing.T) {
	st := initPGTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	record := scheduleRecord(testToken, 1000, start)
	require.NoError(t, st.ApplyMutation(ctx, &domain.Mutation{
		Beneficiary: testBeneficiary,
		Event:       domain.EventTypeScheduleCreated,
		Schedules:   []domain.ScheduleRow{{Index: 0, Record: record}},
	}))

	// A release touches the same row again with an updated released amount
	record.ReleasedAmount = big.NewInt(400)
	require.NoError(t, st.ApplyMutation(ctx, &domain.Mutation{
		Beneficiary: testBeneficiary,
		Event:       domain.EventTypeTokensReleased,
		Schedules:   []domain.ScheduleRow{{Index: 0, Record: record}},
		Bookmark:    &domain.BookmarkRow{Token: testToken, Index: 0},
	}))

	state, err := st.LoadState(ctx)
	require.NoError(t, err)

	records := state.Schedules[testBeneficiary]
	require.Len(t, records, 1)
	assert.Equal(t, "400", records[0].ReleasedAmount.String())

	key := domain.PairKey{Beneficiary: testBeneficiary, Token: testToken}
	assert.Equal(t, 0, state.Bookmarks[key])
}

func TestApplyMutationBookmarkAdvances(t *testing.T) {
	st := initPGTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, st.ApplyMutation(ctx, &domain.Mutation{
			Beneficiary: testBeneficiary,
			Event:       domain.EventTypeTokensReleased,
			Bookmark:    &domain.BookmarkRow{Token: testToken, Index: i},
		}))
	}

	state, err := st.LoadState(ctx)
	require.NoError(t, err)

	key := domain.PairKey{Beneficiary: testBeneficiary, Token: testToken}
	assert.Equal(t, 2, state.Bookmarks[key])
}

func TestApplyMutationSlot(t *testing.T) {
	st := initPGTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.ApplyMutation(ctx, &domain.Mutation{
		Beneficiary: testBeneficiary,
		Event:       domain.EventTypeScheduleCreated,
		SlotToken:   testToken,
		Slot: &domain.AggregatedSlot{
			TotalAmount:    big.NewInt(5000),
			ReleasedAmount: new(big.Int),
			StartTime:      start,
		},
	}))

	// A later deposit folds into the same slot and resets its clock
	require.NoError(t, st.ApplyMutation(ctx, &domain.Mutation{
		Beneficiary: testBeneficiary,
		Event:       domain.EventTypeScheduleUpdated,
		SlotToken:   testToken,
		Slot: &domain.AggregatedSlot{
			TotalAmount:    big.NewInt(8000),
			ReleasedAmount: big.NewInt(1000),
			StartTime:      start.Add(24 * time.Hour),
		},
	}))

	state, err := st.LoadState(ctx)
	require.NoError(t, err)

	key := domain.PairKey{Beneficiary: testBeneficiary, Token: testToken}
	slot := state.Slots[key]
	require.NotNil(t, slot)
	assert.Equal(t, "8000", slot.TotalAmount.String())
	assert.Equal(t, "1000", slot.ReleasedAmount.String())
	assert.True(t, slot.StartTime.Equal(start.Add(24*time.Hour)))
}

func TestLoadStateEmpty(t *testing.T) {
	st := initPGTestDB(t)

	state, err := st.LoadState(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Schedules)
	assert.Empty(t, state.Bookmarks)
	assert.Empty(t, state.Slots)
}

func TestPing(t *testing.T) {
	require.NoError(t, NewPGStore(testDB).Ping(context.Background()))
}
