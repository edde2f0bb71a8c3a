package sweeper

import (
	"context"
)

// Sweeper is a long-running background loop that pays out matured vesting
// entitlements on a fixed cadence
//
//go:generate mockgen -source=sweeper.go -destination=../mocks/sweeper.go -package=mocks -mock_names=Sweeper=MockSweeper
type Sweeper interface {
	// Start begins the sweep loop. It blocks until the context is canceled
	// or Stop is called.
	Start(ctx context.Context) error

	// Stop requests a graceful stop and waits for in-flight releases to
	// finish, bounded by ctx
	Stop(ctx context.Context) error

	// Name identifies the sweeper in logs
	Name() string
}
