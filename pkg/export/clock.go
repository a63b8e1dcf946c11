// Package export holds the deterministic per-frame clock and the
// reproducibility hash used to verify that two export runs consumed
// identical timing/track inputs.
package export

import (
	"context"
	"fmt"

	"github.com/Maokus/MVMNT-sub010/pkg/timing"
)

// yieldEvery is how many frames the export loop processes between
// cancellation checks, so a long export never blocks the host loop
// indefinitely.
const yieldEvery = 64

// Options configures a Clock. PrePadding is subtracted from the play-range
// start so frame 0 can land before the first audible event.
type Options struct {
	FPS            float64
	StartFrame     int64
	TotalFrames    int64
	PlayRangeStart float64 // seconds
	PrePadding     float64 // seconds
}

// Clock is a stateless per-frame time generator bound to an immutable timing
// snapshot frozen at export start. Because it never consults live state,
// repeated runs produce identical sequences regardless of concurrent edits to
// the session's TimingManager.
type Clock struct {
	snap *timing.Snapshot
	opts Options
}

// NewClock binds a clock to a snapshot. fps must be positive and the frame
// counts non-negative; anything else would corrupt every frame time.
func NewClock(snap *timing.Snapshot, opts Options) (*Clock, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %v (must be positive)", opts.FPS)
	}
	if opts.StartFrame < 0 || opts.TotalFrames < 0 {
		return nil, fmt.Errorf("invalid frame range: start=%d total=%d", opts.StartFrame, opts.TotalFrames)
	}
	return &Clock{snap: snap, opts: opts}, nil
}

// TimeForFrame returns the absolute time of frame i:
// playRangeStart - prePadding + (startFrame+i)/fps.
func (c *Clock) TimeForFrame(i int64) float64 {
	return c.opts.PlayRangeStart - c.opts.PrePadding + float64(c.opts.StartFrame+i)/c.opts.FPS
}

// TicksForFrame resolves frame i to a canonical tick through the frozen
// snapshot. ok is false when the clock has no snapshot to resolve with.
func (c *Clock) TicksForFrame(i int64) (int64, bool) {
	if c.snap == nil {
		return 0, false
	}
	return c.snap.SecondsToTicks(c.TimeForFrame(i)), true
}

// SecondsForTick resolves a canonical tick to seconds through the frozen
// snapshot. Without a snapshot it falls back to the frame formula's zero
// point.
func (c *Clock) SecondsForTick(tick int64) float64 {
	if c.snap == nil {
		return 0
	}
	return c.snap.TicksToSeconds(tick)
}

// FrameTime is one emitted frame: its index, absolute seconds, and the
// snapshot-resolved tick (HasTicks false when no snapshot is bound).
type FrameTime struct {
	Frame    int64
	Seconds  float64
	Ticks    int64
	HasTicks bool
}

// FrameIter is a lazy, finite, restartable sequence of per-frame times.
// Nothing is buffered; each Next computes one frame.
type FrameIter struct {
	c    *Clock
	next int64
}

// Frames returns a fresh iterator over frames [0, TotalFrames).
func (c *Clock) Frames() *FrameIter {
	return &FrameIter{c: c}
}

// Next returns the next frame, or ok=false when the sequence is exhausted.
func (it *FrameIter) Next() (FrameTime, bool) {
	if it.next >= it.c.opts.TotalFrames {
		return FrameTime{}, false
	}
	i := it.next
	it.next++
	ft := FrameTime{Frame: i, Seconds: it.c.TimeForFrame(i)}
	ft.Ticks, ft.HasTicks = it.c.TicksForFrame(i)
	return ft, true
}

// Reset rewinds the iterator to frame 0.
func (it *FrameIter) Reset() {
	it.next = 0
}

// Run drives fn over every frame, checking ctx between batches of yieldEvery
// frames so cancellation stops the loop at a yield point without touching any
// shared timing state. fn errors stop the loop and are returned; frames
// already emitted stand, which is what lets export failures degrade to
// partial output.
func (c *Clock) Run(ctx context.Context, fn func(FrameTime) error) error {
	it := c.Frames()
	processed := 0
	for {
		if processed%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ft, ok := it.Next()
		if !ok {
			return nil
		}
		if err := fn(ft); err != nil {
			return fmt.Errorf("frame %d: %w", ft.Frame, err)
		}
		processed++
	}
}
