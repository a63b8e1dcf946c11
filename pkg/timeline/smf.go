package timeline

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/Maokus/MVMNT-sub010/pkg/timing"
)

// LoadSMFFile reads a Standard MIDI File from disk into a timeline plus a
// tick-domain tempo map suitable for Manager.SetTempoMap with UnitTicks.
func LoadSMFFile(path string) (*Timeline, []timing.TempoMapEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open MIDI file: %w", err)
	}
	defer f.Close()
	return LoadSMF(f)
}

// LoadSMF parses SMF data. All tick values are rescaled from the file's
// resolution to the canonical PPQ so every stored tick lives in one domain.
// Note-on/note-off pairs become Notes with tick-domain positions; tempo meta
// events across all file tracks merge into one tick-domain tempo map with the
// MIDI default tempo injected at tick 0 when the file sets none there.
func LoadSMF(r io.Reader) (*Timeline, []timing.TempoMapEntry, error) {
	data, err := smf.ReadFrom(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse SMF: %w", err)
	}
	mt, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, nil, fmt.Errorf("unsupported SMF time format %v (SMPTE is not metric)", data.TimeFormat)
	}
	filePPQ := int64(mt)
	if filePPQ <= 0 {
		return nil, nil, fmt.Errorf("invalid SMF resolution: %d", filePPQ)
	}
	scale := float64(timing.CanonicalPPQ) / float64(filePPQ)
	rescale := func(tick int64) int64 {
		return int64(math.Round(float64(tick) * scale))
	}

	tl := NewTimeline()
	var tempo []timing.TempoMapEntry

	type noteKey struct{ channel, key uint8 }
	for ti, fileTrack := range data.Tracks {
		track := NewMidiTrack(fmt.Sprintf("midi-%d", ti), fmt.Sprintf("Track %d", ti+1))
		open := make(map[noteKey]Note)

		var abs int64
		for _, ev := range fileTrack {
			abs += int64(ev.Delta)
			msg := ev.Message

			var (
				ch, key, vel uint8
				bpm          float64
				name         string
			)
			switch {
			case msg.GetMetaTempo(&bpm):
				tempo = append(tempo, timing.TempoMapEntry{
					Time: float64(rescale(abs)),
					BPM:  bpm,
				})
			case msg.GetMetaTrackName(&name):
				track.Name = name
			case msg.GetNoteStart(&ch, &key, &vel):
				open[noteKey{ch, key}] = Note{
					Note:     key,
					Channel:  ch,
					Velocity: vel,
					Start:    TickPos(rescale(abs)),
				}
			case msg.GetNoteEnd(&ch, &key):
				n, pending := open[noteKey{ch, key}]
				if !pending {
					continue
				}
				delete(open, noteKey{ch, key})
				n.End = TickPos(rescale(abs))
				track.Notes = append(track.Notes, n)
			}
		}

		// Close any notes left hanging at end of track.
		for _, n := range open {
			n.End = TickPos(rescale(abs))
			track.Notes = append(track.Notes, n)
		}

		if len(track.Notes) > 0 {
			tl.AddTrack(track)
		}
	}

	hasOrigin := false
	for _, e := range tempo {
		if e.Time == 0 {
			hasOrigin = true
			break
		}
	}
	if !hasOrigin {
		// Default 120 BPM (500000 µs/quarter) at tick 0, same rule the MIDI
		// spec applies to files that set no tempo.
		tempo = append([]timing.TempoMapEntry{{Time: 0, MicrosPerQuarter: timing.DefaultMicrosPerQuarter}}, tempo...)
	}

	slog.Debug("loaded SMF",
		"fileTracks", len(data.Tracks),
		"noteTracks", len(tl.Tracks()),
		"tempoEvents", len(tempo),
		"filePPQ", filePPQ)

	return tl, tempo, nil
}
