package store

import (
	"context"

	"github.com/feral-file/ff-vesting/internal/domain"
)

// Store defines the interface for the ledger journal. The in-memory book is
// authoritative within a process; the store records committed mutations so the
// book can be rebuilt on restart.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// ApplyMutation persists the rows touched by one committed ledger operation
	ApplyMutation(ctx context.Context, mutation *domain.Mutation) error
	// LoadState loads the full ledger snapshot for replay on boot
	LoadState(ctx context.Context) (*domain.State, error)
	// Ping verifies database connectivity
	Ping(ctx context.Context) error
}
