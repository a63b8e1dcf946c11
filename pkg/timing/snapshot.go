package timing

import "math"

// Snapshot is an immutable copy of a Manager's timing state, taken at export
// start. An export clock bound to a snapshot keeps producing identical
// results while the live manager mutates underneath it; that isolation is the
// export determinism guarantee, not any form of locking.
type Snapshot struct {
	bpm         float64
	micros      float64
	beatsPerBar int
	timeSig     TimeSignature
	ppq         int
	index       *segmentIndex
}

// Snapshot freezes the manager's current tempo map, fixed tempo and PPQ.
func (m *Manager) Snapshot() *Snapshot {
	return &Snapshot{
		bpm:         m.bpm,
		micros:      m.micros,
		beatsPerBar: m.beatsPerBar,
		timeSig:     m.timeSig,
		ppq:         m.ppq,
		index:       m.index.clone(),
	}
}

// BPM returns the frozen fixed tempo in beats per minute.
func (s *Snapshot) BPM() float64 { return s.bpm }

// Tempo returns the frozen fixed tempo in microseconds per quarter note.
func (s *Snapshot) Tempo() float64 { return s.micros }

// BeatsPerBar returns the frozen bar length in beats.
func (s *Snapshot) BeatsPerBar() int { return s.beatsPerBar }

// TicksPerQuarter returns the frozen tick resolution.
func (s *Snapshot) TicksPerQuarter() int { return s.ppq }

// TicksPerSecond returns the tick rate under the frozen fixed tempo.
func (s *Snapshot) TicksPerSecond() float64 {
	return float64(s.ppq) / (s.micros / 1e6)
}

// SecondsToBeats converts absolute seconds to beats under the frozen state.
func (s *Snapshot) SecondsToBeats(t float64) float64 {
	return secondsToBeats(s.index, s.micros/1e6, t)
}

// BeatsToSeconds converts beats to absolute seconds under the frozen state.
func (s *Snapshot) BeatsToSeconds(b float64) float64 {
	return beatsToSeconds(s.index, s.micros/1e6, b)
}

// TicksToSeconds converts canonical-domain ticks to seconds under the frozen
// state.
func (s *Snapshot) TicksToSeconds(ticks int64) float64 {
	return s.BeatsToSeconds(float64(ticks) / float64(s.ppq))
}

// SecondsToTicks converts seconds to the nearest integer tick under the
// frozen state.
func (s *Snapshot) SecondsToTicks(t float64) int64 {
	return int64(math.Round(s.SecondsToBeats(t) * float64(s.ppq)))
}
