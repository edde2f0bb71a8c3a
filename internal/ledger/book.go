// Package ledger implements the multi-schedule vesting ledger: per
// beneficiary, an append-only sequence of schedule records ordered by start
// time, with a per-(beneficiary, token) bookmark that lets release calls skip
// fully-drained history in amortized O(1).
package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/feral-file/ff-vesting/internal/domain"
	"github.com/feral-file/ff-vesting/internal/vesting"
)

// Book owns every beneficiary's schedule sequence and the release bookmarks.
// It is a pure state machine: no I/O, no locking. The engine serializes all
// access and journals the returned mutations.
type Book struct {
	schedules map[domain.Address][]*domain.ScheduleRecord
	bookmarks map[domain.PairKey]int
}

// NewBook creates an empty multi-schedule ledger book
func NewBook() *Book {
	return &Book{
		schedules: make(map[domain.Address][]*domain.ScheduleRecord),
		bookmarks: make(map[domain.PairKey]int),
	}
}

// Restore replays a stored snapshot into the book
func (b *Book) Restore(state *domain.State) {
	for beneficiary, records := range state.Schedules {
		seq := make([]*domain.ScheduleRecord, 0, len(records))
		for _, record := range records {
			seq = append(seq, record.Clone())
		}
		b.schedules[beneficiary] = seq
	}
	for key, index := range state.Bookmarks {
		b.bookmarks[key] = index
	}
}

// CheckDeposit verifies the chronological-order invariant: a new schedule may
// tie the beneficiary's last start time but never precede it. The check runs
// against the beneficiary's global sequence regardless of token, because the
// bookmark optimization depends on a single global order per beneficiary.
func (b *Book) CheckDeposit(req *domain.DepositRequest, _ time.Time) error {
	seq := b.schedules[req.Beneficiary]
	if len(seq) == 0 {
		return nil
	}
	last := seq[len(seq)-1]
	if req.StartTime.Before(last.StartTime) {
		return fmt.Errorf("%w: start %s precedes last start %s",
			domain.ErrOrderViolation,
			req.StartTime.UTC().Format(time.RFC3339),
			last.StartTime.UTC().Format(time.RFC3339))
	}
	return nil
}

// ApplyDeposit appends a new schedule record. Callers must have run
// CheckDeposit and the deposit-side transfer first; appending never fails.
func (b *Book) ApplyDeposit(req *domain.DepositRequest, _ time.Time) *domain.Mutation {
	record := &domain.ScheduleRecord{
		Token:          req.Token,
		TotalAmount:    new(big.Int).Set(req.Amount),
		ReleasedAmount: new(big.Int),
		StartTime:      req.StartTime,
		Duration:       req.Duration,
		DurationUnit:   req.DurationUnit,
	}
	b.schedules[req.Beneficiary] = append(b.schedules[req.Beneficiary], record)
	index := len(b.schedules[req.Beneficiary]) - 1

	return &domain.Mutation{
		Beneficiary: req.Beneficiary,
		Event:       domain.EventTypeScheduleCreated,
		Schedules:   []domain.ScheduleRow{{Index: index, Record: record.Clone()}},
	}
}

// Releasable computes the total amount releasable for a (beneficiary, token)
// pair at now. It mirrors the mutating scan exactly, so the result equals what
// ApplyRelease would drain if invoked at the same instant.
func (b *Book) Releasable(beneficiary, token domain.Address, now time.Time) *big.Int {
	total := new(big.Int)
	b.scan(beneficiary, token, now, func(record *domain.ScheduleRecord, _ int) {
		total.Add(total, vesting.ReleasableAmount(record, now))
	})
	return total
}

// ApplyRelease drains every releasable record for the pair, advances the
// bookmark past the contiguous fully-drained prefix, and returns the total
// drained amount together with the rows that changed. A zero total means
// nothing vested since the last call; no rows change in that case beyond a
// possible bookmark advance.
func (b *Book) ApplyRelease(beneficiary, token domain.Address, now time.Time) (*big.Int, *domain.Mutation) {
	total := new(big.Int)
	var rows []domain.ScheduleRow

	newBookmark := b.scan(beneficiary, token, now, func(record *domain.ScheduleRecord, index int) {
		releasable := vesting.ReleasableAmount(record, now)
		if releasable.Sign() > 0 {
			record.ReleasedAmount.Add(record.ReleasedAmount, releasable)
			total.Add(total, releasable)
			rows = append(rows, domain.ScheduleRow{Index: index, Record: record.Clone()})
		}
	})

	key := domain.PairKey{Beneficiary: beneficiary, Token: token}
	mutation := &domain.Mutation{
		Beneficiary: beneficiary,
		Event:       domain.EventTypeTokensReleased,
		Schedules:   rows,
	}
	// The bookmark never regresses
	if newBookmark > b.bookmarks[key] {
		b.bookmarks[key] = newBookmark
		mutation.Bookmark = &domain.BookmarkRow{Token: token, Index: newBookmark}
	}

	return total, mutation
}

// scan walks the beneficiary's sequence from the stored bookmark, invoking
// visit for each record matching the token that has already started. It
// returns the candidate bookmark: the index just past the contiguous prefix of
// fully-drained matching records.
//
// Two rules carry the amortization:
//   - A record with a future start time halts the scan entirely. The sequence
//     is sorted by start time, so no later record can have started either,
//     regardless of token.
//   - A record of another token is skipped but pins the candidate bookmark:
//     the cursor never jumps past a record it has not confirmed drained for
//     its own token's key.
func (b *Book) scan(beneficiary, token domain.Address, now time.Time, visit func(*domain.ScheduleRecord, int)) int {
	seq := b.schedules[beneficiary]
	key := domain.PairKey{Beneficiary: beneficiary, Token: token}

	candidate := b.bookmarks[key]
	advancing := true

	for i := b.bookmarks[key]; i < len(seq); i++ {
		record := seq[i]
		if record.StartTime.After(now) {
			break
		}
		if record.Token != token {
			advancing = false
			continue
		}

		visit(record, i)

		if advancing && record.FullyReleased() {
			candidate = i + 1
		} else {
			advancing = false
		}
	}

	return candidate
}

// Schedules returns read-only views of a beneficiary's records at now,
// optionally filtered by token (empty token means all)
func (b *Book) Schedules(beneficiary, token domain.Address, now time.Time) []*domain.ScheduleView {
	var views []*domain.ScheduleView
	for _, record := range b.schedules[beneficiary] {
		if token != "" && record.Token != token {
			continue
		}
		vested := vesting.VestedAmount(record.TotalAmount, record.StartTime, record.Duration, record.DurationUnit, now)
		views = append(views, &domain.ScheduleView{
			Token:            record.Token,
			TotalAmount:      new(big.Int).Set(record.TotalAmount),
			ReleasedAmount:   new(big.Int).Set(record.ReleasedAmount),
			VestedAmount:     vested,
			ReleasableAmount: new(big.Int).Sub(vested, record.ReleasedAmount),
			StartTime:        record.StartTime,
			Duration:         record.Duration,
			DurationUnit:     record.DurationUnit,
		})
	}
	return views
}

// Bookmark returns the stored bookmark index for a (beneficiary, token) pair
func (b *Book) Bookmark(beneficiary, token domain.Address) int {
	return b.bookmarks[domain.PairKey{Beneficiary: beneficiary, Token: token}]
}

// Pairs returns every (beneficiary, token) pair with at least one record
func (b *Book) Pairs() []domain.PairKey {
	seen := make(map[domain.PairKey]struct{})
	var pairs []domain.PairKey
	for beneficiary, records := range b.schedules {
		for _, record := range records {
			key := domain.PairKey{Beneficiary: beneficiary, Token: record.Token}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, key)
		}
	}
	return pairs
}
