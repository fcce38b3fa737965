package core

import (
	"errors"
	"fmt"
)

// ErrSequenceGap is returned for a block whose predecessor was never applied.
var ErrSequenceGap = errors.New("block sequence gap")

// SequenceValidator enforces that blocks are applied at consecutive heights.
// Not thread-safe: only the processor loop touches it.
type SequenceValidator struct {
	next    uint32
	started bool
}

func NewSequenceValidator() *SequenceValidator {
	return &SequenceValidator{}
}

// Start sets the last committed height, typically recovered from storage.
func (sv *SequenceValidator) Start(lastHeight uint32) {
	sv.next = lastHeight + 1
	sv.started = true
}

// Check classifies height. Before Start any height is accepted and becomes
// the start of the sequence once advanced.
func (sv *SequenceValidator) Check(height uint32) (duplicate bool, err error) {
	if !sv.started {
		return false, nil
	}
	switch {
	case height < sv.next:
		return true, nil
	case height == sv.next:
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected=%d, got=%d", ErrSequenceGap, sv.next, height)
	}
}

// Advance records height as committed.
func (sv *SequenceValidator) Advance(height uint32) {
	sv.next = height + 1
	sv.started = true
}

// Expected returns the next height to apply, ok=false before the first block.
func (sv *SequenceValidator) Expected() (uint32, bool) {
	return sv.next, sv.started
}
