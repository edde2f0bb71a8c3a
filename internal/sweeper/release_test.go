package sweeper_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/logger"
	"github.com/feral-file/ff-vesting/internal/mocks"
	"github.com/feral-file/ff-vesting/internal/sweeper"
)

var (
	testBeneficiary = domain.Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	testToken       = domain.Address("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	testOtherToken  = domain.Address("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

// testSweeperMocks contains all the mocks needed for testing the sweeper
type testSweeperMocks struct {
	ctrl     *gomock.Controller
	releaser *mocks.MockReleaser
	clock    *mocks.MockClock
	sweeper  sweeper.Sweeper
}

// setupTestSweeper creates all the mocks and sweeper for testing
func setupTestSweeper(t *testing.T) *testSweeperMocks {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: true,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctrl := gomock.NewController(t)

	tm := &testSweeperMocks{
		ctrl:     ctrl,
		releaser: mocks.NewMockReleaser(ctrl),
		clock:    mocks.NewMockClock(ctrl),
	}

	config := &sweeper.ReleaseSweeperConfig{
		Interval:       time.Hour,
		WorkerPoolSize: 2,
		QueueSize:      10,
	}

	tm.sweeper = sweeper.NewReleaseSweeper(config, tm.releaser, tm.clock)

	return tm
}

// tearDownTestSweeper cleans up the test mocks
func tearDownTestSweeper(mocks *testSweeperMocks) {
	mocks.ctrl.Finish()
}

// expectClock wires the standard clock expectations: Now and Since are
// unrestricted, and After returns a channel that fires shortly so the sweep
// loop keeps cycling until the test stops it
func expectClock(tm *testSweeperMocks) {
	now := time.Now()
	tm.clock.EXPECT().Now().Return(now).AnyTimes()
	tm.clock.EXPECT().Since(gomock.Any()).Return(time.Second).AnyTimes()
	tm.clock.EXPECT().After(gomock.Any()).DoAndReturn(func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		go func() {
			time.Sleep(50 * time.Millisecond)
			ch <- time.Now()
		}()
		return ch
	}).AnyTimes()
}

func TestReleaseSweeper_Name(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	assert.Equal(t, "release-sweeper", mocks.sweeper.Name())
}

func TestReleaseSweeper_ReleasesAllPairs(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	ctx := context.Background()
	expectClock(mocks)

	pairs := []domain.PairKey{
		{Beneficiary: testBeneficiary, Token: testToken},
		{Beneficiary: testBeneficiary, Token: testOtherToken},
	}

	// First cycle sees both pairs, later cycles see none
	gomock.InOrder(
		mocks.releaser.EXPECT().
			Pairs(gomock.Any()).
			Return(pairs).
			Times(1),
		mocks.releaser.EXPECT().
			Pairs(gomock.Any()).
			Return([]domain.PairKey{}).
			AnyTimes(),
	)

	mocks.releaser.EXPECT().
		Release(gomock.Any(), testBeneficiary, testToken).
		Return(big.NewInt(500), nil).
		Times(1)
	mocks.releaser.EXPECT().
		Release(gomock.Any(), testBeneficiary, testOtherToken).
		Return(new(big.Int), nil).
		Times(1)

	// Start sweeper in goroutine and stop it after processing
	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = mocks.sweeper.Stop(ctx)
	}()

	err := mocks.sweeper.Start(ctx)
	require.NoError(t, err)
}

func TestReleaseSweeper_ReleaseFailureDoesNotAbortCycle(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	ctx := context.Background()
	expectClock(mocks)

	pairs := []domain.PairKey{
		{Beneficiary: testBeneficiary, Token: testToken},
		{Beneficiary: testBeneficiary, Token: testOtherToken},
	}

	gomock.InOrder(
		mocks.releaser.EXPECT().
			Pairs(gomock.Any()).
			Return(pairs).
			Times(1),
		mocks.releaser.EXPECT().
			Pairs(gomock.Any()).
			Return([]domain.PairKey{}).
			AnyTimes(),
	)

	// One pair fails, the other still gets released
	mocks.releaser.EXPECT().
		Release(gomock.Any(), testBeneficiary, testToken).
		Return(nil, errors.New("rpc unavailable")).
		Times(1)
	mocks.releaser.EXPECT().
		Release(gomock.Any(), testBeneficiary, testOtherToken).
		Return(big.NewInt(42), nil).
		Times(1)

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = mocks.sweeper.Stop(ctx)
	}()

	err := mocks.sweeper.Start(ctx)
	require.NoError(t, err)
}

func TestReleaseSweeper_NoPairs(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	ctx := context.Background()
	expectClock(mocks)

	mocks.releaser.EXPECT().
		Pairs(gomock.Any()).
		Return([]domain.PairKey{}).
		MinTimes(1)

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = mocks.sweeper.Stop(ctx)
	}()

	err := mocks.sweeper.Start(ctx)
	require.NoError(t, err)
}

func TestReleaseSweeper_StartTwice(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	ctx := context.Background()
	expectClock(mocks)

	mocks.releaser.EXPECT().
		Pairs(gomock.Any()).
		Return([]domain.PairKey{}).
		AnyTimes()

	started := make(chan struct{})
	go func() {
		close(started)
		_ = mocks.sweeper.Start(ctx)
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	err := mocks.sweeper.Start(ctx)
	assert.ErrorContains(t, err, "already running")

	require.NoError(t, mocks.sweeper.Stop(ctx))
}

func TestReleaseSweeper_StopWithoutStart(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	// Stopping a sweeper that never ran is a no-op
	require.NoError(t, mocks.sweeper.Stop(context.Background()))
}

func TestReleaseSweeper_ContextCancellation(t *testing.T) {
	mocks := setupTestSweeper(t)
	defer tearDownTestSweeper(mocks)

	ctx, cancel := context.WithCancel(context.Background())
	expectClock(mocks)

	mocks.releaser.EXPECT().
		Pairs(gomock.Any()).
		Return([]domain.PairKey{}).
		AnyTimes()

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err := mocks.sweeper.Start(ctx)
	require.NoError(t, err)
}
