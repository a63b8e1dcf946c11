package timeline

import (
	"math"
	"sort"

	"github.com/Maokus/MVMNT-sub010/pkg/timing"
)

// NoteQueryResult is one resolved note in absolute time. Results are
// ephemeral: produced per call, never persisted.
type NoteQueryResult struct {
	TrackID  string
	Note     uint8
	Channel  uint8
	StartSec float64
	EndSec   float64
	Velocity uint8
	Duration float64
}

// QueryEngine merges tracks into absolute-time windowed note queries. It
// borrows the timing manager and timeline by reference and never mutates
// either.
type QueryEngine struct {
	timing   *timing.Manager
	timeline *Timeline
}

// NewQueryEngine binds a query engine to its timing state and timeline.
func NewQueryEngine(tm *timing.Manager, tl *Timeline) *QueryEngine {
	return &QueryEngine{timing: tm, timeline: tl}
}

// NotesInWindow returns every audible note overlapping the half-open
// absolute window [startSec, endSec), sorted ascending by start time.
//
// Candidate selection: all MIDI tracks when ids is empty, else the named
// tracks. Disabled tracks are dropped first. If any remaining candidate is
// soloed, the set narrows to the soloed subset; mute is honored within it.
// Solo never resurrects a disabled track.
//
// Per track, the window shifts into local time by the track's offset.
// Offsets are canonical ticks converted through the master timing state,
// since they anchor the track to the master timeline. The local window then
// clips to the region intersection.
// A note overlapping the clipped window is returned whole. Notes resolve
// through the track's own tempo map when one is set, else the master state.
// A note is included iff end > lo && start < hi.
//
// An inverted or zero-width window yields an empty result, not an error.
func (qe *QueryEngine) NotesInWindow(ids []string, startSec, endSec float64) []NoteQueryResult {
	if endSec <= startSec {
		return nil
	}

	candidates := qe.candidates(ids)
	if len(candidates) == 0 {
		return nil
	}

	var results []NoteQueryResult
	for _, tr := range candidates {
		results = append(results, qe.trackNotes(tr, startSec, endSec)...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].StartSec != results[j].StartSec {
			return results[i].StartSec < results[j].StartSec
		}
		if results[i].TrackID != results[j].TrackID {
			return results[i].TrackID < results[j].TrackID
		}
		return results[i].Note < results[j].Note
	})
	return results
}

// candidates applies the enabled/solo/mute precedence chain.
func (qe *QueryEngine) candidates(ids []string) []*MidiTrack {
	var picked []*MidiTrack
	if len(ids) == 0 {
		for _, tr := range qe.timeline.Tracks() {
			if tr.Type == TrackMIDI {
				picked = append(picked, tr)
			}
		}
	} else {
		for _, id := range ids {
			if tr, ok := qe.timeline.TrackByID(id); ok && tr.Type == TrackMIDI {
				picked = append(picked, tr)
			}
		}
	}

	enabled := picked[:0]
	anySolo := false
	for _, tr := range picked {
		if !tr.Enabled {
			continue
		}
		enabled = append(enabled, tr)
		if tr.Solo {
			anySolo = true
		}
	}

	out := enabled[:0]
	for _, tr := range enabled {
		if anySolo && !tr.Solo {
			continue
		}
		if tr.Mute {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// converter returns the resolver for a track's note and region positions:
// the track's own tempo map when present, else the master manager.
func (qe *QueryEngine) converter(tr *MidiTrack) Converter {
	if len(tr.TempoMap) > 0 {
		return qe.timing.ResolveMap(tr.TempoMap, timing.UnitTicks)
	}
	return qe.timing
}

func (qe *QueryEngine) trackNotes(tr *MidiTrack, startSec, endSec float64) []NoteQueryResult {
	offsetSec := qe.timing.TicksToSeconds(tr.OffsetTicks)
	lo := startSec - offsetSec
	hi := endSec - offsetSec

	conv := qe.converter(tr)
	ppq := tr.TicksPerQuarter
	if ppq <= 0 {
		ppq = timing.CanonicalPPQ
	}

	// Region trim clips the query window, not note inclusion: a note
	// straddling a region edge still comes back whole once it overlaps the
	// clipped window.
	if tr.RegionStartTicks != nil {
		if r := TickPos(*tr.RegionStartTicks).Seconds(conv, ppq); r > lo {
			lo = r
		}
	}
	if tr.RegionEndTicks != nil {
		if r := TickPos(*tr.RegionEndTicks).Seconds(conv, ppq); r < hi {
			hi = r
		}
	}
	if hi <= lo {
		return nil
	}

	var out []NoteQueryResult
	for _, n := range tr.Notes {
		s := n.Start.Seconds(conv, ppq)
		e := n.End.Seconds(conv, ppq)
		if e > lo && s < hi {
			out = append(out, NoteQueryResult{
				TrackID:  tr.ID,
				Note:     n.Note,
				Channel:  n.Channel,
				StartSec: s + offsetSec,
				EndSec:   e + offsetSec,
				Velocity: n.Velocity,
				Duration: e - s,
			})
		}
	}
	return out
}

// NotesNearTimeUnit queries the bar-aligned window of the given length in
// bars that contains centerSec, derived in the track's own beat space and
// anchored back to absolute time through the track's offset.
func (qe *QueryEngine) NotesNearTimeUnit(trackID string, centerSec float64, bars int) []NoteQueryResult {
	tr, ok := qe.timeline.TrackByID(trackID)
	if !ok {
		return nil
	}
	if bars < 1 {
		bars = 1
	}

	offsetSec := qe.timing.TicksToSeconds(tr.OffsetTicks)
	conv := qe.converter(tr)
	bpb := float64(qe.timing.BeatsPerBar())

	localCenter := centerSec - offsetSec
	barIdx := math.Floor(conv.SecondsToBeats(localCenter) / bpb)
	if barIdx < 0 {
		barIdx = 0
	}
	localStart := conv.BeatsToSeconds(barIdx * bpb)
	localEnd := conv.BeatsToSeconds((barIdx + float64(bars)) * bpb)

	return qe.NotesInWindow([]string{trackID}, localStart+offsetSec, localEnd+offsetSec)
}
