package replay

import (
	"errors"
	"strings"

	"github.com/willibrandon/scripttrace/pkg/recorder"
)

// ErrAtBeginning is returned by StepBackward at the first entry.
var ErrAtBeginning = errors.New("already at the beginning")

// Filter selects which entries a replay shows, like the script console's
// level and source pickers.
type Filter struct {
	// MinLevel hides entries below this level.
	MinLevel recorder.Level
	// Source keeps only entries whose source equals it (case-insensitive). Empty keeps all.
	Source string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e recorder.Entry) bool {
	if e.Level < f.MinLevel {
		return false
	}
	if f.Source != "" && !strings.EqualFold(f.Source, e.Source) {
		return false
	}
	return true
}

// Replayer interface defines methods for replaying recorded entries
type Replayer interface {
	// Load replaces the loaded entries, keeping only those matching the filter.
	Load(entries []recorder.Entry) error

	// ReplayForward delivers all entries from the current position
	ReplayForward(fn func(recorder.Entry)) error

	// ReplayUntil delivers entries until stop returns true for one
	ReplayUntil(stop func(recorder.Entry) bool, fn func(recorder.Entry)) error

	// ReplayToIndex moves the cursor to idx
	ReplayToIndex(idx int) error

	// StepBackward steps backward from the current index
	// returns the new index after stepping back
	StepBackward() (int, error)

	// CurrentIndex returns the current entry index
	CurrentIndex() int

	// Entries returns all loaded entries
	Entries() []recorder.Entry
}

// BasicReplayer implements the Replayer interface
type BasicReplayer struct {
	filter     Filter
	entries    []recorder.Entry
	currentIdx int
}

// NewBasicReplayer creates a new BasicReplayer
func NewBasicReplayer(filter Filter) *BasicReplayer {
	return &BasicReplayer{
		filter:     filter,
		currentIdx: -1,
	}
}

// Load loads the matching entries into the replayer
func (r *BasicReplayer) Load(entries []recorder.Entry) error {
	r.entries = r.entries[:0]
	for _, e := range entries {
		if r.filter.Match(e) {
			r.entries = append(r.entries, e)
		}
	}
	r.currentIdx = -1
	return nil
}

// ReplayForward delivers all entries from current position to the end
func (r *BasicReplayer) ReplayForward(fn func(recorder.Entry)) error {
	return r.ReplayUntil(nil, fn)
}

// ReplayUntil delivers entries until stop matches one. The matching entry
// becomes current and is not delivered. A nil stop replays everything.
func (r *BasicReplayer) ReplayUntil(stop func(recorder.Entry) bool, fn func(recorder.Entry)) error {
	for i := r.currentIdx + 1; i < len(r.entries); i++ {
		e := r.entries[i]
		if stop != nil && stop(e) {
			r.currentIdx = i
			return nil
		}
		if fn != nil {
			fn(e)
		}
		r.currentIdx = i
	}
	return nil
}

// ReplayToIndex moves the cursor to idx
func (r *BasicReplayer) ReplayToIndex(idx int) error {
	if idx < 0 || idx >= len(r.entries) {
		return nil
	}

	r.currentIdx = idx
	return nil
}

// StepBackward moves one step backward in the log
func (r *BasicReplayer) StepBackward() (int, error) {
	if r.currentIdx <= 0 {
		return 0, ErrAtBeginning
	}

	r.currentIdx--
	return r.currentIdx, nil
}

// CurrentIndex returns the current entry index
func (r *BasicReplayer) CurrentIndex() int {
	return r.currentIdx
}

// Entries returns all loaded entries
func (r *BasicReplayer) Entries() []recorder.Entry {
	return r.entries
}
