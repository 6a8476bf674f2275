// Package scheduler drives the node's slot/interval timer and turns it
// into proposer/attester duty calls against forkchoice.Store. Grounded on
// geanlabs-gean/clock/clock.go's SlotClock shape, adapted for the
// three-interval slot (propose/attest/observe) instead of the teacher's
// four-interval one.
package scheduler

import (
	"time"

	"github.com/leanconsensus/node/params"
	"github.com/leanconsensus/node/types"
)

// Clock converts wall-clock time to slots and intervals. All time values
// are Unix seconds.
type Clock struct {
	GenesisTime uint64
	timeFunc    func() time.Time
}

// NewClock builds a Clock anchored at genesisTime.
func NewClock(genesisTime uint64) *Clock {
	return &Clock{GenesisTime: genesisTime, timeFunc: time.Now}
}

// NewClockWithTimeFunc builds a Clock with an injectable time source, for
// deterministic tests.
func NewClockWithTimeFunc(genesisTime uint64, timeFunc func() time.Time) *Clock {
	return &Clock{GenesisTime: genesisTime, timeFunc: timeFunc}
}

func (c *Clock) secondsSinceGenesis() uint64 {
	now := uint64(c.timeFunc().Unix())
	if now < c.GenesisTime {
		return 0
	}
	return now - c.GenesisTime
}

// IsBeforeGenesis reports whether wall-clock time precedes GenesisTime.
func (c *Clock) IsBeforeGenesis() bool {
	return uint64(c.timeFunc().Unix()) < c.GenesisTime
}

// CurrentSlot returns the current slot (0 before genesis).
func (c *Clock) CurrentSlot() types.Slot {
	return types.Slot(c.secondsSinceGenesis() / params.SecondsPerSlot)
}

// CurrentInterval returns the current interval within the current slot.
// params.SecondsPerSlot (4) does not divide evenly by
// params.IntervalsPerSlot (3), so the boundary is computed by scaled
// integer division rather than a fixed seconds-per-interval constant:
// interval = floor(secondsIntoSlot * IntervalsPerSlot / SecondsPerSlot).
func (c *Clock) CurrentInterval() params.Interval {
	secondsIntoSlot := c.secondsSinceGenesis() % params.SecondsPerSlot
	return params.Interval(secondsIntoSlot * params.IntervalsPerSlot / params.SecondsPerSlot)
}

// SlotStartTime returns the Unix timestamp when slot begins.
func (c *Clock) SlotStartTime(slot types.Slot) uint64 {
	return c.GenesisTime + uint64(slot)*params.SecondsPerSlot
}

// IntervalStartTime returns the Unix timestamp when the given interval of
// the given slot begins, inverting CurrentInterval's scaled division: the
// first whole second at which CurrentInterval reports interval.
func (c *Clock) IntervalStartTime(slot types.Slot, interval params.Interval) uint64 {
	secondsIntoSlot := (uint64(interval)*params.SecondsPerSlot + params.IntervalsPerSlot - 1) / params.IntervalsPerSlot
	return c.SlotStartTime(slot) + secondsIntoSlot
}

// NextTick returns the duration until the next interval boundary strictly
// after now, so a scheduler loop can sleep precisely instead of polling.
func (c *Clock) NextTick() time.Duration {
	slot := c.CurrentSlot()
	interval := c.CurrentInterval()
	next := uint64(interval) + 1
	var nextBoundary uint64
	if next >= params.IntervalsPerSlot {
		nextBoundary = c.SlotStartTime(slot + 1)
	} else {
		nextBoundary = c.IntervalStartTime(slot, params.Interval(next))
	}
	now := uint64(c.timeFunc().Unix())
	if nextBoundary <= now {
		return 0
	}
	return time.Duration(nextBoundary-now) * time.Second
}
