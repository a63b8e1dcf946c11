// Package timing is the musical-time engine: tempo-map-aware conversion
// between integer ticks, musical beats and wall-clock seconds, bar/beat/tick
// decomposition, beat-grid generation and immutable snapshots for export.
//
// All state lives in a Manager instance passed explicitly to consumers; there
// is no ambient global. The math is synchronous and unsynchronized: the host
// drives the engine from a single event loop, and setters rebuild derived
// caches before returning, so no stale reads are possible.
package timing

import (
	"fmt"
	"math"
)

// CanonicalPPQ is the one process-wide tick resolution. Every stored tick in
// the system lives in this domain; MIDI files at other resolutions are
// rescaled once at load. Mixing resolutions (the historical 480/960 split)
// is what caused the doubling bugs this constant exists to prevent.
const CanonicalPPQ = 960

// DefaultMicrosPerQuarter is 120 BPM, the MIDI default tempo.
const DefaultMicrosPerQuarter = 500000

const microsPerMinute = 60000000.0

const (
	minBPM         = 20.0
	maxBPM         = 300.0
	minBeatsPerBar = 1
	maxBeatsPerBar = 16
)

// gridEpsilon guards against float boundary exclusion when enumerating
// integer beats in a window.
const gridEpsilon = 1e-9

// TimeSignature is a plain numerator/denominator pair.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// Manager is the single source of truth for session tempo state. One
// instance is created per session and passed by reference to every consumer.
// It is not safe for concurrent mutation; see the package comment.
type Manager struct {
	bpm         float64
	micros      float64 // µs per quarter note, always consistent with bpm
	beatsPerBar int
	timeSig     TimeSignature
	ppq         int

	entries []TempoMapEntry // normalized map, times in seconds
	index   *segmentIndex   // nil when no map is set (constant-tempo fast path)
}

// NewManager returns a manager at 120 BPM, 4/4, canonical PPQ, no tempo map.
func NewManager() *Manager {
	return &Manager{
		bpm:         120,
		micros:      DefaultMicrosPerQuarter,
		beatsPerBar: 4,
		timeSig:     TimeSignature{Numerator: 4, Denominator: 4},
		ppq:         CanonicalPPQ,
	}
}

func clampBPM(bpm float64) float64 {
	return math.Min(maxBPM, math.Max(minBPM, bpm))
}

// SetBPM sets the fixed tempo in beats per minute, clamped to [20, 300].
// A no-op when the clamped value equals the current one.
func (m *Manager) SetBPM(bpm float64) {
	bpm = clampBPM(bpm)
	if bpm == m.bpm {
		return
	}
	m.bpm = bpm
	m.micros = microsPerMinute / bpm
}

// SetTempo sets the fixed tempo in microseconds per quarter note. The derived
// BPM is clamped to [20, 300] and the stored tempo re-derived from the clamp.
// micros <= 0 is rejected: it would corrupt every downstream conversion.
func (m *Manager) SetTempo(micros float64) error {
	if micros <= 0 {
		return fmt.Errorf("invalid tempo: %v µs/quarter (must be positive)", micros)
	}
	bpm := clampBPM(microsPerMinute / micros)
	if bpm == m.bpm {
		return nil
	}
	m.bpm = bpm
	m.micros = microsPerMinute / bpm
	return nil
}

// SetBeatsPerBar sets the bar length in beats, clamped to [1, 16].
func (m *Manager) SetBeatsPerBar(n int) {
	if n < minBeatsPerBar {
		n = minBeatsPerBar
	}
	if n > maxBeatsPerBar {
		n = maxBeatsPerBar
	}
	m.beatsPerBar = n
}

// SetTimeSignature stores the signature and derives beatsPerBar from the
// numerator (clamped).
func (m *Manager) SetTimeSignature(numerator, denominator int) error {
	if numerator <= 0 || denominator <= 0 {
		return fmt.Errorf("invalid time signature: %d/%d", numerator, denominator)
	}
	m.timeSig = TimeSignature{Numerator: numerator, Denominator: denominator}
	m.SetBeatsPerBar(numerator)
	return nil
}

// SetTicksPerQuarter sets the tick resolution. ppq <= 0 is rejected.
func (m *Manager) SetTicksPerQuarter(ppq int) error {
	if ppq <= 0 {
		return fmt.Errorf("invalid PPQ: %d (must be positive)", ppq)
	}
	m.ppq = ppq
	return nil
}

// SetTempoMap installs a tempo map. Entries are normalized (tempo<->bpm
// resolved, unusable entries filtered, tick-domain times converted to seconds
// at the current fixed tempo, sorted, deduplicated) and the segment index is
// rebuilt synchronously before the call returns. An empty resulting map
// clears the index and the manager falls back to the constant-tempo fast
// path. The tick-to-seconds conversion deliberately happens before the new
// map becomes authoritative.
func (m *Manager) SetTempoMap(entries []TempoMapEntry, unit TempoMapUnit) {
	normalized := normalizeEntries(entries, unit, m.secondsPerBeat(), m.ppq)
	if len(normalized) == 0 {
		m.entries = nil
		m.index = nil
		return
	}
	m.entries = normalized
	m.index = newSegmentIndex(normalized)
}

// ResolveMap builds a frozen converter for an overriding tempo map (a track's
// per-track map) without touching the manager's own state. Tick-domain entry
// times are converted with the manager's current fixed tempo, the same rule
// SetTempoMap applies. If every entry is filtered out, the returned snapshot
// carries no segments and converts at the manager's fixed tempo, which is the
// documented fall-back-to-master behavior.
func (m *Manager) ResolveMap(entries []TempoMapEntry, unit TempoMapUnit) *Snapshot {
	normalized := normalizeEntries(entries, unit, m.secondsPerBeat(), m.ppq)
	return &Snapshot{
		bpm:         m.bpm,
		micros:      m.micros,
		beatsPerBar: m.beatsPerBar,
		timeSig:     m.timeSig,
		ppq:         m.ppq,
		index:       newSegmentIndex(normalized),
	}
}

// BPM returns the fixed tempo in beats per minute.
func (m *Manager) BPM() float64 { return m.bpm }

// Tempo returns the fixed tempo in microseconds per quarter note.
func (m *Manager) Tempo() float64 { return m.micros }

// BeatsPerBar returns the bar length in beats.
func (m *Manager) BeatsPerBar() int { return m.beatsPerBar }

// TimeSig returns the stored time signature.
func (m *Manager) TimeSig() TimeSignature { return m.timeSig }

// TicksPerQuarter returns the tick resolution.
func (m *Manager) TicksPerQuarter() int { return m.ppq }

// TempoMap returns the normalized tempo map (times in seconds). The returned
// slice must not be mutated.
func (m *Manager) TempoMap() []TempoMapEntry { return m.entries }

func (m *Manager) secondsPerBeat() float64 { return m.micros / 1e6 }

// SecondsToBeats converts absolute seconds to cumulative beats, via the
// segment index when a map is set, else the O(1) fast path.
func (m *Manager) SecondsToBeats(t float64) float64 {
	return secondsToBeats(m.index, m.secondsPerBeat(), t)
}

// BeatsToSeconds is the exact inverse of SecondsToBeats.
func (m *Manager) BeatsToSeconds(b float64) float64 {
	return beatsToSeconds(m.index, m.secondsPerBeat(), b)
}

// TicksToSeconds converts canonical-domain ticks to absolute seconds.
func (m *Manager) TicksToSeconds(ticks int64) float64 {
	return m.BeatsToSeconds(float64(ticks) / float64(m.ppq))
}

// SecondsToTicks converts absolute seconds to the nearest integer tick.
func (m *Manager) SecondsToTicks(t float64) int64 {
	return int64(math.Round(m.SecondsToBeats(t) * float64(m.ppq)))
}

// TimeToBarBeatTick decomposes absolute seconds into 1-based bar, 1-based
// beat and the 0-based tick remainder. Negative times clamp to position
// 1.1.0.
func (m *Manager) TimeToBarBeatTick(t float64) (bar, beat, tick int64) {
	return decomposeTicks(m.SecondsToTicks(t), m.ppq, m.beatsPerBar)
}

// BarBeatTickToTime is the exact inverse of TimeToBarBeatTick:
// compose(decompose(t)) == t for any non-negative integer tick.
func (m *Manager) BarBeatTickToTime(bar, beat, tick int64) float64 {
	return m.TicksToSeconds(composeTicks(bar, beat, tick, m.ppq, m.beatsPerBar))
}

// TimeUnitWindow returns the bar-aligned window of the given length in bars
// that contains ref. bars < 1 is treated as 1.
func (m *Manager) TimeUnitWindow(ref float64, bars int) (start, end float64) {
	if bars < 1 {
		bars = 1
	}
	bpb := float64(m.beatsPerBar)
	barIdx := math.Floor(m.SecondsToBeats(ref) / bpb)
	start = m.BeatsToSeconds(barIdx * bpb)
	end = m.BeatsToSeconds((barIdx + float64(bars)) * bpb)
	return start, end
}

// GridBeat is one entry of a generated beat grid.
type GridBeat struct {
	Beat     int64   // integer beat index from session start
	Time     float64 // absolute seconds
	BarStart bool    // Beat % beatsPerBar == 0
}

// BeatGridInWindow enumerates the integer beats whose times fall inside
// [start, end], epsilon-guarded so beats sitting exactly on a window edge
// are not lost to float rounding. Beats before zero are not emitted.
func (m *Manager) BeatGridInWindow(start, end float64) []GridBeat {
	first := int64(math.Ceil(m.SecondsToBeats(start) - gridEpsilon))
	last := int64(math.Floor(m.SecondsToBeats(end) + gridEpsilon))
	if first < 0 {
		first = 0
	}
	if last < first {
		return nil
	}
	grid := make([]GridBeat, 0, last-first+1)
	for n := first; n <= last; n++ {
		grid = append(grid, GridBeat{
			Beat:     n,
			Time:     m.BeatsToSeconds(float64(n)),
			BarStart: n%int64(m.beatsPerBar) == 0,
		})
	}
	return grid
}

// Shared conversion cores, used by Manager and Snapshot.

func secondsToBeats(idx *segmentIndex, fixedSecondsPerBeat, t float64) float64 {
	if idx != nil {
		return idx.secondsToBeats(t)
	}
	return t / fixedSecondsPerBeat
}

func beatsToSeconds(idx *segmentIndex, fixedSecondsPerBeat, b float64) float64 {
	if idx != nil {
		return idx.beatsToSeconds(b)
	}
	return b * fixedSecondsPerBeat
}

func decomposeTicks(total int64, ppq, beatsPerBar int) (bar, beat, tick int64) {
	if total < 0 {
		total = 0
	}
	ticksPerBar := int64(ppq) * int64(beatsPerBar)
	bar = total/ticksPerBar + 1
	rem := total % ticksPerBar
	beat = rem/int64(ppq) + 1
	tick = rem % int64(ppq)
	return bar, beat, tick
}

func composeTicks(bar, beat, tick int64, ppq, beatsPerBar int) int64 {
	return ((bar-1)*int64(beatsPerBar)+(beat-1))*int64(ppq) + tick
}
