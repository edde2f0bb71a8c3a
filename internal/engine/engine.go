// Package engine orchestrates the vesting ledger: it validates requests,
// drives the external token transfer, applies the ledger mutation, journals it
// to the store, and emits notifications. One mutex is the global serialization
// point; every operation runs to completion atomically with respect to all
// others, so the books need no locking of their own.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-vesting/internal/adapter"
	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/logger"
	"github.com/feral-file/ff-vesting/internal/messaging"
	"github.com/feral-file/ff-vesting/internal/store"
	"github.com/feral-file/ff-vesting/internal/transfer"
)

// Book defines the interface both ledger variants implement: the
// multi-schedule book and the aggregated single-slot book plug into the same
// engine.
type Book interface {
	// CheckDeposit validates the variant's insertion invariant
	CheckDeposit(req *domain.DepositRequest, now time.Time) error
	// ApplyDeposit commits the deposit and reports the touched rows
	ApplyDeposit(req *domain.DepositRequest, now time.Time) *domain.Mutation
	// Releasable previews the releasable amount without mutating state
	Releasable(beneficiary, token domain.Address, now time.Time) *big.Int
	// ApplyRelease drains the releasable amount and reports the touched rows
	ApplyRelease(beneficiary, token domain.Address, now time.Time) (*big.Int, *domain.Mutation)
	// Schedules returns read-only views at now, optionally filtered by token
	Schedules(beneficiary, token domain.Address, now time.Time) []*domain.ScheduleView
	// Pairs returns every (beneficiary, token) pair known to the book
	Pairs() []domain.PairKey
	// Restore replays a stored snapshot into the book
	Restore(state *domain.State)
}

// Engine owns the ledger book and coordinates its collaborators
type Engine struct {
	mu         sync.Mutex
	book       Book
	transferor transfer.Transferor
	store      store.Store
	publisher  messaging.Publisher
	clock      adapter.Clock
}

// New creates a vesting engine. The store and publisher may be nil: the book
// then runs unjournaled and silent, which the tests use.
func New(book Book, transferor transfer.Transferor, st store.Store, pub messaging.Publisher, clock adapter.Clock) *Engine {
	return &Engine{
		book:       book,
		transferor: transferor,
		store:      st,
		publisher:  pub,
		clock:      clock,
	}
}

// Restore replays a stored snapshot into the engine's book
func (e *Engine) Restore(state *domain.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.book.Restore(state)
}

// Deposit locks tokens into a new vesting schedule. The transfer-in happens
// before the append; a failed transfer aborts the operation with zero state
// mutation.
func (e *Engine) Deposit(ctx context.Context, req *domain.DepositRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if err := e.book.CheckDeposit(req, now); err != nil {
		return err
	}

	if err := e.transferor.TransferIn(ctx, req.Token, req.Depositor, req.Amount); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferFailure, err)
	}

	mutation := e.book.ApplyDeposit(req, now)
	e.journal(ctx, mutation)
	e.notifyDeposit(ctx, req, mutation)

	return nil
}

// Release pays out the vested-but-unclaimed portion for a (beneficiary, token)
// pair. A zero releasable amount is a silent no-op: no transfer, no
// notification. The transfer-out happens before the book commit, so a failed
// transfer leaves the ledger untouched.
func (e *Engine) Release(ctx context.Context, beneficiary, token domain.Address) (*big.Int, error) {
	if !beneficiary.Valid() {
		return nil, fmt.Errorf("%w: beneficiary %q", domain.ErrInvalidArgument, beneficiary)
	}
	if !token.Valid() {
		return nil, fmt.Errorf("%w: token %q", domain.ErrInvalidArgument, token)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	releasable := e.book.Releasable(beneficiary, token, now)
	if releasable.Sign() == 0 {
		return new(big.Int), nil
	}

	if err := e.transferor.TransferOut(ctx, token, beneficiary, releasable); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransferFailure, err)
	}

	// The preview and the drain run at the same observation time, so the
	// drained total always equals the transferred amount
	total, mutation := e.book.ApplyRelease(beneficiary, token, now)
	e.journal(ctx, mutation)
	e.publish(ctx, &domain.VestingEvent{
		ID:          uuid.NewString(),
		Type:        domain.EventTypeTokensReleased,
		Beneficiary: beneficiary,
		Token:       token,
		Amount:      total.String(),
		Timestamp:   now,
	})

	return total, nil
}

// Releasable previews what Release would transfer if invoked now
func (e *Engine) Releasable(_ context.Context, beneficiary, token domain.Address) (*big.Int, error) {
	if !beneficiary.Valid() {
		return nil, fmt.Errorf("%w: beneficiary %q", domain.ErrInvalidArgument, beneficiary)
	}
	if !token.Valid() {
		return nil, fmt.Errorf("%w: token %q", domain.ErrInvalidArgument, token)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.book.Releasable(beneficiary, token, e.clock.Now()), nil
}

// Schedules returns read-only schedule views for a beneficiary, optionally
// filtered by token (empty token means all)
func (e *Engine) Schedules(_ context.Context, beneficiary, token domain.Address) ([]*domain.ScheduleView, error) {
	if !beneficiary.Valid() {
		return nil, fmt.Errorf("%w: beneficiary %q", domain.ErrInvalidArgument, beneficiary)
	}
	if token != "" && !token.Valid() {
		return nil, fmt.Errorf("%w: token %q", domain.ErrInvalidArgument, token)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.book.Schedules(beneficiary, token, e.clock.Now()), nil
}

// Pairs returns every (beneficiary, token) pair known to the ledger. The
// sweeper uses it to enumerate release candidates.
func (e *Engine) Pairs(_ context.Context) []domain.PairKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Pairs()
}

// DepositResult reports the outcome of one element of a batch deposit
type DepositResult struct {
	Request *domain.DepositRequest
	Err     error
}

// ReleaseResult reports the outcome of one element of a batch release
type ReleaseResult struct {
	Token  domain.Address
	Amount *big.Int
	Err    error
}

// CreateMany applies deposits sequentially in list order. Batches are
// best-effort per item: each element commits or fails independently, and an
// element failure never rolls back earlier elements.
func (e *Engine) CreateMany(ctx context.Context, reqs []*domain.DepositRequest) []DepositResult {
	results := make([]DepositResult, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, DepositResult{
			Request: req,
			Err:     e.Deposit(ctx, req),
		})
	}
	return results
}

// ReleaseMany releases each listed token for the beneficiary sequentially in
// list order, best-effort per item
func (e *Engine) ReleaseMany(ctx context.Context, beneficiary domain.Address, tokens []domain.Address) []ReleaseResult {
	results := make([]ReleaseResult, 0, len(tokens))
	for _, token := range tokens {
		amount, err := e.Release(ctx, beneficiary, token)
		results = append(results, ReleaseResult{
			Token:  token,
			Amount: amount,
			Err:    err,
		})
	}
	return results
}

// journal records a committed mutation to the store. The in-memory book is
// authoritative within the process; journal failures are logged, not
// propagated, because the operation has already committed.
func (e *Engine) journal(ctx context.Context, mutation *domain.Mutation) {
	if e.store == nil || mutation == nil {
		return
	}
	if err := e.store.ApplyMutation(ctx, mutation); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("beneficiary", mutation.Beneficiary.String()),
			zap.String("event", string(mutation.Event)))
	}
}

func (e *Engine) notifyDeposit(ctx context.Context, req *domain.DepositRequest, mutation *domain.Mutation) {
	event := &domain.VestingEvent{
		ID:          uuid.NewString(),
		Type:        mutation.Event,
		Beneficiary: req.Beneficiary,
		Token:       req.Token,
		StartTime:   req.StartTime,
		TotalAmount: req.Amount.String(),
		Timestamp:   e.clock.Now(),
	}
	if mutation.Slot != nil {
		// The slot variant reports the folded cycle total, residue included
		event.TotalAmount = mutation.Slot.TotalAmount.String()
		event.StartTime = mutation.Slot.StartTime
	}
	e.publish(ctx, event)
}

// publish emits a notification after a state commit, fire-and-forget
func (e *Engine) publish(ctx context.Context, event *domain.VestingEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)))
	}
}
