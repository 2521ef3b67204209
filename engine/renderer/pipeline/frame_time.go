package pipeline

import (
	"fmt"
	"time"
)

// FrameTime is a frame timestamp tagged with its validity. An invalid time marks the frame right
// after a timer restart: elapsed time measured across it is meaningless.
type FrameTime struct {
	t     time.Duration
	valid bool
}

// ValidTime returns a valid frame time.
//
// Parameters:
//   - t: the timestamp, measured from any fixed origin
//
// Returns:
//   - FrameTime: the tagged time
func ValidTime(t time.Duration) FrameTime {
	return FrameTime{t: t, valid: true}
}

// InvalidTime returns the frame time fed after a timer restart.
func InvalidTime() FrameTime {
	return FrameTime{}
}

// Value returns the timestamp and whether it is valid.
func (f FrameTime) Value() (time.Duration, bool) {
	return f.t, f.valid
}

// Valid reports whether the time can be used to measure elapsed time.
func (f FrameTime) Valid() bool {
	return f.valid
}

func (f FrameTime) String() string {
	if !f.valid {
		return "FrameTime(invalid)"
	}
	return fmt.Sprintf("FrameTime(%v)", f.t)
}

// frameClock turns a stream of FrameTimes into per-frame elapsed durations.
type frameClock struct {
	last    time.Duration
	hasLast bool
	elapsed time.Duration
	valid   bool
}

// advance records t and computes the time elapsed since the previous valid time. The elapsed
// value is invalid for an invalid time and for the first valid time after one.
func (c *frameClock) advance(t FrameTime) {
	now, ok := t.Value()
	if !ok {
		c.hasLast = false
		c.valid = false
		return
	}
	c.valid = c.hasLast && now >= c.last
	if c.valid {
		c.elapsed = now - c.last
	}
	c.last = now
	c.hasLast = true
}

// frame returns the last elapsed duration and its validity.
func (c *frameClock) frame() (time.Duration, bool) {
	return c.elapsed, c.valid
}
