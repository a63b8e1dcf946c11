package timing

import (
	"sort"
)

// TempoMapUnit identifies the domain of TempoMapEntry.Time values handed to
// SetTempoMap. Tick-domain times are converted to seconds using the fixed
// tempo that is current at the moment the map is installed; the map itself is
// never consulted for that conversion.
type TempoMapUnit int

const (
	// UnitSeconds means entry times are absolute seconds.
	UnitSeconds TempoMapUnit = iota
	// UnitTicks means entry times are canonical-PPQ ticks.
	UnitTicks
)

// TempoCurve tags how tempo transitions into an entry. Only step transitions
// are implemented; linear is accepted and preserved but looked up as step.
type TempoCurve string

const (
	CurveStep   TempoCurve = "step"
	CurveLinear TempoCurve = "linear"
)

// TempoMapEntry is one tempo change as supplied by the caller. At least one
// of MicrosPerQuarter or BPM must be set (> 0); the other is derived. Entries
// with neither, or with a negative time, are filtered out silently.
type TempoMapEntry struct {
	Time             float64 // seconds, or ticks per the unit given to SetTempoMap
	MicrosPerQuarter float64
	BPM              float64
	Curve            TempoCurve
}

// tempoSegment is one normalized span of constant tempo.
type tempoSegment struct {
	time           float64 // absolute seconds at segment start
	micros         float64 // µs per quarter note
	bpm            float64
	secondsPerBeat float64
	beatsAtStart   float64 // cumulative beats at segment start
}

// segmentIndex is the derived lookup structure over a normalized tempo map.
// It is rebuilt synchronously on every map mutation, so readers never observe
// a stale index. Segment times are strictly ascending and cumulative beats
// are non-decreasing.
//
// The first segment's tempo is extrapolated backwards to t=0, which makes
// beatsAtStart[0] = time[0]/secondsPerBeat[0] and keeps lookupAtTime and
// lookupAtBeats exact inverses even before the first entry.
type segmentIndex struct {
	segments []tempoSegment
}

// normalizeEntries resolves tempo<->bpm, drops unusable entries, converts
// tick-domain times to seconds with fixedSecondsPerBeat, sorts ascending and
// deduplicates by time (last entry wins).
func normalizeEntries(entries []TempoMapEntry, unit TempoMapUnit, fixedSecondsPerBeat float64, ppq int) []TempoMapEntry {
	out := make([]TempoMapEntry, 0, len(entries))
	for _, e := range entries {
		if e.Time < 0 {
			continue
		}
		micros := e.MicrosPerQuarter
		bpm := e.BPM
		switch {
		case micros > 0:
			bpm = microsPerMinute / micros
		case bpm > 0:
			micros = microsPerMinute / bpm
		default:
			continue
		}
		t := e.Time
		if unit == UnitTicks {
			t = e.Time / float64(ppq) * fixedSecondsPerBeat
		}
		curve := e.Curve
		if curve == "" {
			curve = CurveStep
		}
		out = append(out, TempoMapEntry{Time: t, MicrosPerQuarter: micros, BPM: bpm, Curve: curve})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	dedup := out[:0]
	for _, e := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time == e.Time {
			dedup[n-1] = e
			continue
		}
		dedup = append(dedup, e)
	}
	return dedup
}

// newSegmentIndex builds the index from already-normalized entries.
// Returns nil for an empty map; callers then use the constant-tempo fast path.
func newSegmentIndex(entries []TempoMapEntry) *segmentIndex {
	if len(entries) == 0 {
		return nil
	}
	segs := make([]tempoSegment, len(entries))
	for i, e := range entries {
		spb := e.MicrosPerQuarter / 1e6
		beats := 0.0
		if i == 0 {
			beats = e.Time / spb
		} else {
			prev := segs[i-1]
			beats = prev.beatsAtStart + (e.Time-prev.time)/prev.secondsPerBeat
		}
		segs[i] = tempoSegment{
			time:           e.Time,
			micros:         e.MicrosPerQuarter,
			bpm:            e.BPM,
			secondsPerBeat: spb,
			beatsAtStart:   beats,
		}
	}
	return &segmentIndex{segments: segs}
}

// lookupAtTime returns the last segment with time <= t (segment 0 for
// anything earlier).
func (idx *segmentIndex) lookupAtTime(t float64) tempoSegment {
	i := sort.Search(len(idx.segments), func(i int) bool {
		return idx.segments[i].time > t
	})
	if i > 0 {
		i--
	}
	return idx.segments[i]
}

// lookupAtBeats returns the last segment with beatsAtStart <= b.
func (idx *segmentIndex) lookupAtBeats(b float64) tempoSegment {
	i := sort.Search(len(idx.segments), func(i int) bool {
		return idx.segments[i].beatsAtStart > b
	})
	if i > 0 {
		i--
	}
	return idx.segments[i]
}

func (idx *segmentIndex) secondsToBeats(t float64) float64 {
	seg := idx.lookupAtTime(t)
	return seg.beatsAtStart + (t-seg.time)/seg.secondsPerBeat
}

func (idx *segmentIndex) beatsToSeconds(b float64) float64 {
	seg := idx.lookupAtBeats(b)
	return seg.time + (b-seg.beatsAtStart)*seg.secondsPerBeat
}

// clone deep-copies the index so snapshots stay stable under live mutation.
func (idx *segmentIndex) clone() *segmentIndex {
	if idx == nil {
		return nil
	}
	segs := make([]tempoSegment, len(idx.segments))
	copy(segs, idx.segments)
	return &segmentIndex{segments: segs}
}
