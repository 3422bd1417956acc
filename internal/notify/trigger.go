package notify

import "time"

// Each category owns a disjoint integer ID namespace so a whole category can
// be cancelled in bulk without enumerating record IDs.
const (
	BaseMedication = 100000
	BaseChore      = 200000
	BaseReminder   = 300000

	// NamespaceSpan is the width of each category's ID range.
	NamespaceSpan = 100000

	// hashRange bounds HashID so that per-slot and per-day offsets never
	// spill into the next namespace.
	hashRange = 90000

	// tomorrowOffset distinguishes a "tomorrow" trigger from the "today"
	// trigger for the same medication time slot.
	tomorrowOffset = 1000
)

// Trigger action types, carried through to the client tap handler.
const (
	ActionMedication = "MEDICATION_REMINDER"
	ActionChore      = "CHORE_REMINDER"
	ActionReminder   = "REMINDER"
)

// Extra identifies the domain record a trigger was derived from. The tap
// handler uses Type to navigate to the matching list page.
type Extra struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Trigger is a fully resolved notification descriptor handed to the Sink.
// Triggers are rebuilt from domain records on every scheduling pass and never
// persisted by this package.
type Trigger struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	FireAt     time.Time `json:"fireAt"`
	Sound      string    `json:"sound"`
	ActionType string    `json:"actionType"`
	Extra      Extra     `json:"extra"`
}

// HashID maps a record's string identifier to a deterministic integer in
// [0, 90000). It is the classic hash*31 accumulator with 32-bit wraparound,
// not a slot allocator: two records can hash to the same value, in which case
// the later one silently overwrites the earlier one's trigger. With typical
// family-sized data the odds are negligible; this is a known, accepted risk
// rather than something the scheduler tries to repair.
func HashID(s string) int {
	var h int32
	for i := 0; i < len(s); i++ {
		h = h*31 + int32(s[i])
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % hashRange)
}
