// Package extract turns rendered listing pages into raw product candidates.
//
// Card scanning, merging, detail and trend parsing are pure functions over
// HTML strings. Only Engine talks to a browser, through the Renderer and
// Page interfaces.
package extract

import (
	"time"

	"github.com/IshaanNene/trendscout/internal/types"
)

// State is a step of the per-source extraction state machine.
type State int32

const (
	StateInit State = iota
	StateNavigate
	StateInitialWait
	StateIncrementalScroll
	StateExtract
	StateScrollForImages
	StateMerge
	StateFilter
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNavigate:
		return "navigate"
	case StateInitialWait:
		return "initial_wait"
	case StateIncrementalScroll:
		return "incremental_scroll"
	case StateExtract:
		return "extract"
	case StateScrollForImages:
		return "scroll_for_images"
	case StateMerge:
		return "merge"
	case StateFilter:
		return "filter"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result is what one source run produced. Err is set when the source
// yielded nothing because of a failure; Items is then empty.
type Result struct {
	SourceID string
	Items    []types.RawCandidate
	Trail    []State
	Pages    int // pages navigated successfully
	Duration time.Duration
	Err      error
}

// Reached reports whether the run passed through s.
func (r Result) Reached(s State) bool {
	for _, st := range r.Trail {
		if st == s {
			return true
		}
	}
	return false
}
