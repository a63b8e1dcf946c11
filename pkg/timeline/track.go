// Package timeline holds the track model and the windowed note-query engine.
// Tracks own their note slices and flags; the query engine borrows references
// and never mutates its inputs.
package timeline

import (
	"github.com/Maokus/MVMNT-sub010/pkg/timing"
)

// TrackType discriminates track content.
type TrackType string

const (
	TrackMIDI  TrackType = "midi"
	TrackAudio TrackType = "audio"
)

// PositionUnit tags which representation a Position carries.
type PositionUnit int

const (
	UnitTicks PositionUnit = iota
	UnitBeats
	UnitSeconds
)

// Position is a tagged musical position. Exactly one representation is
// canonical per value; the others are derived on demand through Seconds,
// never stored redundantly.
type Position struct {
	unit    PositionUnit
	ticks   int64
	beats   float64
	seconds float64
}

// TickPos makes a tick-domain position.
func TickPos(t int64) Position { return Position{unit: UnitTicks, ticks: t} }

// BeatPos makes a beat-domain position.
func BeatPos(b float64) Position { return Position{unit: UnitBeats, beats: b} }

// SecondPos makes a second-domain position.
func SecondPos(s float64) Position { return Position{unit: UnitSeconds, seconds: s} }

// Unit reports the canonical representation.
func (p Position) Unit() PositionUnit { return p.unit }

// Converter is the slice of timing state a Position needs to resolve itself.
// Both *timing.Manager and *timing.Snapshot satisfy it.
type Converter interface {
	BeatsToSeconds(float64) float64
	SecondsToBeats(float64) float64
}

// Seconds resolves the position to local seconds: second-domain values pass
// through, beat-domain values go through the converter, tick-domain values go
// through ppq then the converter. This is the single resolution function for
// every representation.
func (p Position) Seconds(conv Converter, ppq int) float64 {
	switch p.unit {
	case UnitSeconds:
		return p.seconds
	case UnitBeats:
		return conv.BeatsToSeconds(p.beats)
	default:
		return conv.BeatsToSeconds(float64(p.ticks) / float64(ppq))
	}
}

// Note is one MIDI note. Start and End each carry exactly one canonical
// representation; duration in seconds is derived at query time.
type Note struct {
	Note     uint8
	Channel  uint8
	Velocity uint8
	Start    Position
	End      Position
}

// Track is the shared per-track state. Offset and region bounds live in
// canonical ticks only; seconds are computed views through the master timing
// state, never stored.
type Track struct {
	ID      string
	Name    string
	Type    TrackType
	Enabled bool
	Mute    bool
	Solo    bool
	Gain    float64

	OffsetTicks      int64
	RegionStartTicks *int64 // nil = no trim
	RegionEndTicks   *int64

	// TempoMap is an optional per-track override, tick-domain entry times.
	// Offsets still anchor to the master timeline; only note and region
	// resolution inside the track goes through this map.
	TempoMap []timing.TempoMapEntry
}

// MidiTrack is a Track carrying an ordered note sequence.
type MidiTrack struct {
	Track
	TicksPerQuarter int
	Notes           []Note
}

// NewMidiTrack returns an enabled, unity-gain MIDI track at canonical PPQ.
func NewMidiTrack(id, name string) *MidiTrack {
	return &MidiTrack{
		Track: Track{
			ID:      id,
			Name:    name,
			Type:    TrackMIDI,
			Enabled: true,
			Gain:    1.0,
		},
		TicksPerQuarter: timing.CanonicalPPQ,
	}
}

// Timeline is the track container.
type Timeline struct {
	tracks []*MidiTrack
	byID   map[string]*MidiTrack
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{byID: make(map[string]*MidiTrack)}
}

// AddTrack appends a track. A track with a duplicate ID replaces the lookup
// entry but both remain in insertion order.
func (tl *Timeline) AddTrack(t *MidiTrack) {
	tl.tracks = append(tl.tracks, t)
	tl.byID[t.ID] = t
}

// Tracks returns all tracks in insertion order.
func (tl *Timeline) Tracks() []*MidiTrack { return tl.tracks }

// TrackByID looks a track up by ID.
func (tl *Timeline) TrackByID(id string) (*MidiTrack, bool) {
	t, ok := tl.byID[id]
	return t, ok
}
