package bingo

import "sync"

type EdgeState int

const (
	StateNoLine EdgeState = iota
	StateHasLine
)

func (that EdgeState) String() string {
	if that == StateHasLine {
		return "has-line"
	}
	return "no-line"
}

// EdgeTrigger fires once per transition from no line to at least one line.
// Observing no lines re-arms it.
type EdgeTrigger struct {
	mu    sync.Mutex
	state EdgeState
}

func NewEdgeTrigger() *EdgeTrigger {
	return &EdgeTrigger{state: StateNoLine}
}

// Observe records the result of a state read and reports whether it is a rising edge.
func (that *EdgeTrigger) Observe(hasLine bool) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch {
	case hasLine && that.state == StateNoLine:
		that.state = StateHasLine
		return true
	case !hasLine:
		that.state = StateNoLine
	}

	return false
}

func (that *EdgeTrigger) State() EdgeState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}
