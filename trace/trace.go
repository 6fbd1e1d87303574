// Package trace describes the step events emitted by the matching algorithms when a caller asks to watch them work.
// The algorithms only construct events; formatting them is left to whoever consumes them.
package trace

// An Event describes one step taken by an algorithm.  The meaning of I and J depends on the phase:
//
//   - PhaseLPS: I is the pattern index being filled and J is the length of the current matched prefix.
//   - PhaseKMP and PhaseBruteForce: I is the text index and J is the pattern index being compared.
//
// Value carries the result of the step when there is one, such as the lps entry that was assigned, the fallback
// target or the position of a match.
type Event struct {
	Phase    Phase    `json:"phase"`
	Step     int      `json:"step"` // 1-based, counted per phase.
	I        int      `json:"i"`
	J        int      `json:"j"`
	Decision Decision `json:"decision"`
	Value    int      `json:"value,omitempty"`
}

// A Func receives events in the order they occur.  A nil Func disables tracing.
type Func func(Event)

// Emit calls fn with evt if fn is not nil.
func (fn Func) Emit(evt Event) {
	if fn != nil {
		fn(evt)
	}
}

// Phase identifies the algorithm that produced an event.
type Phase string

const (
	PhaseLPS        Phase = `lps`
	PhaseKMP        Phase = `kmp`
	PhaseBruteForce Phase = `brute_force`
)

// Decision identifies what an algorithm did after comparing two code units.
type Decision string

const (
	Extend   Decision = `extend`   // code units matched, the matched prefix grows.
	Fallback Decision = `fallback` // mismatch, the matched prefix shrinks to an earlier border.
	Advance  Decision = `advance`  // mismatch with nothing to salvage, move on.
	Mismatch Decision = `mismatch` // brute force mismatch, restart at the next offset.
	Found    Decision = `found`    // a full occurrence of the pattern ends here; Value is its position.
)
