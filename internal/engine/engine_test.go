package engine_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/engine"
	"github.com/feral-file/ff-vesting/internal/ledger"
	"github.com/feral-file/ff-vesting/internal/logger"
	"github.com/feral-file/ff-vesting/internal/mocks"
)

var (
	beneficiary = domain.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	depositor   = domain.Address("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	tokenA      = domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	tokenB      = domain.Address("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixture struct {
	engine     *engine.Engine
	transferor *mocks.MockTransferor
	store      *mocks.MockStore
	publisher  *mocks.MockPublisher
	clock      *mocks.MockClock
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		transferor: mocks.NewMockTransferor(ctrl),
		store:      mocks.NewMockStore(ctrl),
		publisher:  mocks.NewMockPublisher(ctrl),
		clock:      mocks.NewMockClock(ctrl),
	}
	f.engine = engine.New(ledger.NewBook(), f.transferor, f.store, f.publisher, f.clock)
	return f
}

func depositRequest(start time.Time, amount int64) *domain.DepositRequest {
	return &domain.DepositRequest{
		Beneficiary:  beneficiary,
		Depositor:    depositor,
		Token:        tokenA,
		StartTime:    start,
		Duration:     10,
		DurationUnit: domain.DurationUnitDays,
		Amount:       big.NewInt(amount),
	}
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, big.NewInt(1000)).Return(nil)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, event *domain.VestingEvent) error {
			assert.Equal(t, domain.EventTypeScheduleCreated, event.Type)
			assert.Equal(t, beneficiary, event.Beneficiary)
			assert.Equal(t, tokenA, event.Token)
			assert.Equal(t, "1000", event.TotalAmount)
			return nil
		})

	err := f.engine.Deposit(ctx, depositRequest(now, 1000))
	require.NoError(t, err)

	views, err := f.engine.Schedules(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, big.NewInt(1000), views[0].TotalAmount)
}

func TestDepositInvalidRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := depositRequest(time.Now(), 1000)
	req.Amount = big.NewInt(0)

	err := f.engine.Deposit(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDepositOrderViolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, gomock.Any()).Return(nil)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil)

	require.NoError(t, f.engine.Deposit(ctx, depositRequest(now, 1000)))

	// Earlier start than the existing record; no transfer must happen
	err := f.engine.Deposit(ctx, depositRequest(now.Add(-time.Hour), 500))
	assert.ErrorIs(t, err, domain.ErrOrderViolation)
}

func TestDepositTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, gomock.Any()).
		Return(errors.New("insufficient allowance"))

	err := f.engine.Deposit(ctx, depositRequest(now, 1000))
	assert.ErrorIs(t, err, domain.ErrTransferFailure)

	// The failed deposit must leave no trace in the ledger
	views, err := f.engine.Schedules(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestReleaseZeroIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()

	// Nothing deposited; no transfer, no journal, no notification
	amount, err := f.engine.Release(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	assert.Zero(t, amount.Sign())
}

func TestRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(start).Times(2)
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, gomock.Any()).Return(nil)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil).Times(2)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil)
	require.NoError(t, f.engine.Deposit(ctx, depositRequest(start, 1000)))

	// Halfway through the 10-day window, 500 is releasable
	halfway := start.Add(5 * 24 * time.Hour)
	f.clock.EXPECT().Now().Return(halfway)
	f.transferor.EXPECT().TransferOut(ctx, tokenA, beneficiary, big.NewInt(500)).Return(nil)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, event *domain.VestingEvent) error {
			assert.Equal(t, domain.EventTypeTokensReleased, event.Type)
			assert.Equal(t, "500", event.Amount)
			return nil
		})

	amount, err := f.engine.Release(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), amount)
}

func TestReleaseTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(start).Times(2)
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, gomock.Any()).Return(nil)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil)
	require.NoError(t, f.engine.Deposit(ctx, depositRequest(start, 1000)))

	halfway := start.Add(5 * 24 * time.Hour)
	f.clock.EXPECT().Now().Return(halfway).Times(2)
	f.transferor.EXPECT().TransferOut(ctx, tokenA, beneficiary, big.NewInt(500)).
		Return(errors.New("transfer reverted"))

	_, err := f.engine.Release(ctx, beneficiary, tokenA)
	assert.ErrorIs(t, err, domain.ErrTransferFailure)

	// The failed payout must not burn the entitlement
	releasable, err := f.engine.Releasable(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(500), releasable)
}

func TestReleaseInvalidAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Release(ctx, domain.Address("not-an-address"), tokenA)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.engine.Release(ctx, beneficiary, domain.Address(domain.ETHEREUM_ZERO_ADDRESS))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestJournalFailureDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, gomock.Any()).Return(nil)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(errors.New("connection refused"))
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil)

	// The in-memory book is authoritative; a journal failure is logged only
	err := f.engine.Deposit(ctx, depositRequest(now, 1000))
	require.NoError(t, err)

	views, err := f.engine.Schedules(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestCreateManyBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, tokenA, depositor, gomock.Any()).Return(nil).Times(2)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil).Times(2)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil).Times(2)

	reqs := []*domain.DepositRequest{
		depositRequest(now, 1000),
		depositRequest(now.Add(-time.Hour), 500), // order violation
		depositRequest(now.Add(time.Hour), 200),
	}

	results := f.engine.CreateMany(ctx, reqs)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, domain.ErrOrderViolation)
	assert.NoError(t, results[2].Err)

	// The failing element must not block the later one
	views, err := f.engine.Schedules(ctx, beneficiary, tokenA)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestReleaseMany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(start).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, gomock.Any(), depositor, gomock.Any()).Return(nil).Times(2)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil).AnyTimes()
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil).AnyTimes()

	reqA := depositRequest(start.Add(-10*24*time.Hour), 1000)
	reqB := depositRequest(start.Add(-9*24*time.Hour), 600)
	reqB.Token = tokenB
	require.NoError(t, f.engine.Deposit(ctx, reqA))
	require.NoError(t, f.engine.Deposit(ctx, reqB))

	f.transferor.EXPECT().TransferOut(ctx, tokenA, beneficiary, big.NewInt(1000)).Return(nil)
	f.transferor.EXPECT().TransferOut(ctx, tokenB, beneficiary, big.NewInt(540)).Return(nil)

	results := f.engine.ReleaseMany(ctx, beneficiary, []domain.Address{tokenA, tokenB})
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, big.NewInt(1000), results[0].Amount)
	assert.Equal(t, big.NewInt(540), results[1].Amount)
}

func TestPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	f.clock.EXPECT().Now().Return(now).AnyTimes()
	f.transferor.EXPECT().TransferIn(ctx, gomock.Any(), depositor, gomock.Any()).Return(nil).Times(2)
	f.store.EXPECT().ApplyMutation(ctx, gomock.Any()).Return(nil).Times(2)
	f.publisher.EXPECT().PublishEvent(ctx, gomock.Any()).Return(nil).Times(2)

	reqA := depositRequest(now, 1000)
	reqB := depositRequest(now, 600)
	reqB.Token = tokenB
	require.NoError(t, f.engine.Deposit(ctx, reqA))
	require.NoError(t, f.engine.Deposit(ctx, reqB))

	pairs := f.engine.Pairs(ctx)
	assert.ElementsMatch(t, []domain.PairKey{
		{Beneficiary: beneficiary, Token: tokenA},
		{Beneficiary: beneficiary, Token: tokenB},
	}, pairs)
}
