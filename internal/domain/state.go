package domain

// ScheduleRow pairs a schedule record with its index in the beneficiary's
// chronological sequence
type ScheduleRow struct {
	Index  int
	Record *ScheduleRecord
}

// BookmarkRow carries a persisted release bookmark for a (beneficiary, token) pair
type BookmarkRow struct {
	Token Address
	Index int
}

// Mutation describes the rows touched by one committed ledger operation.
// The engine journals mutations to the store after each commit so the
// in-memory book can be rebuilt on restart.
type Mutation struct {
	Beneficiary Address
	Event       EventType
	Schedules   []ScheduleRow
	Bookmark    *BookmarkRow
	Slot        *AggregatedSlot
	SlotToken   Address
}

// State is a full snapshot of a ledger book, loaded from the store on boot
type State struct {
	Schedules map[Address][]*ScheduleRecord
	Bookmarks map[PairKey]int
	Slots     map[PairKey]*AggregatedSlot
}

// NewState creates an empty state
func NewState() *State {
	return &State{
		Schedules: make(map[Address][]*ScheduleRecord),
		Bookmarks: make(map[PairKey]int),
		Slots:     make(map[PairKey]*AggregatedSlot),
	}
}
