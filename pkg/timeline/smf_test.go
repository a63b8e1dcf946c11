package timeline

import (
	"bytes"
	"testing"

	"github.com/Maokus/MVMNT-sub010/pkg/timing"
)

// buildTestSMF builds a minimal format-0 MIDI file at 480 PPQ with the given
// tempo events followed by one note (C4, tick 0 to 16 file ticks).
func buildTestSMF(tempos []struct {
	tick int
	bpm  float64
}) []byte {
	var buf bytes.Buffer

	buf.Write([]byte("MThd"))
	buf.Write([]byte{0x00, 0x00, 0x00, 0x06}) // Header length: 6 bytes
	buf.Write([]byte{0x00, 0x00})             // Format: 0 (single track)
	buf.Write([]byte{0x00, 0x01})             // Number of tracks: 1
	buf.Write([]byte{0x01, 0xE0})             // Time division: 480 PPQ

	var trackData bytes.Buffer

	lastTick := 0
	for _, tempo := range tempos {
		delta := tempo.tick - lastTick
		trackData.Write(encodeVarInt(delta))

		microsPerBeat := int(60000000 / tempo.bpm)
		trackData.Write([]byte{0xFF, 0x51, 0x03}) // Meta event: Set Tempo
		trackData.Write([]byte{
			byte(microsPerBeat >> 16),
			byte(microsPerBeat >> 8),
			byte(microsPerBeat),
		})

		lastTick = tempo.tick
	}

	trackData.Write([]byte{0x00})             // Delta time: 0
	trackData.Write([]byte{0x90, 0x3C, 0x40}) // Note On, C4, vel 64
	trackData.Write([]byte{0x10})             // Delta time: 16
	trackData.Write([]byte{0x80, 0x3C, 0x00}) // Note Off

	trackData.Write([]byte{0x00})             // Delta time: 0
	trackData.Write([]byte{0xFF, 0x2F, 0x00}) // Meta event: End of Track

	buf.Write([]byte("MTrk"))
	trackLen := trackData.Len()
	buf.Write([]byte{
		byte(trackLen >> 24),
		byte(trackLen >> 16),
		byte(trackLen >> 8),
		byte(trackLen),
	})
	buf.Write(trackData.Bytes())

	return buf.Bytes()
}

// encodeVarInt encodes an integer as a variable-length quantity.
func encodeVarInt(value int) []byte {
	if value == 0 {
		return []byte{0}
	}

	var result []byte
	for value > 0 {
		b := byte(value & 0x7F)
		value >>= 7
		if len(result) > 0 {
			b |= 0x80
		}
		result = append([]byte{b}, result...)
	}
	return result
}

func TestLoadSMF_DefaultTempoInjected(t *testing.T) {
	tl, tempoMap, err := LoadSMF(bytes.NewReader(buildTestSMF(nil)))
	if err != nil {
		t.Fatalf("LoadSMF failed: %v", err)
	}

	if len(tempoMap) != 1 {
		t.Fatalf("expected 1 tempo entry (injected default), got %d", len(tempoMap))
	}
	if tempoMap[0].Time != 0 || tempoMap[0].MicrosPerQuarter != timing.DefaultMicrosPerQuarter {
		t.Errorf("expected default 500000 µs/quarter at tick 0, got %+v", tempoMap[0])
	}

	if len(tl.Tracks()) != 1 {
		t.Fatalf("expected 1 note track, got %d", len(tl.Tracks()))
	}
}

func TestLoadSMF_PPQRescaledToCanonical(t *testing.T) {
	tl, _, err := LoadSMF(bytes.NewReader(buildTestSMF(nil)))
	if err != nil {
		t.Fatalf("LoadSMF failed: %v", err)
	}

	track := tl.Tracks()[0]
	if track.TicksPerQuarter != timing.CanonicalPPQ {
		t.Errorf("expected canonical PPQ %d, got %d", timing.CanonicalPPQ, track.TicksPerQuarter)
	}
	if len(track.Notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(track.Notes))
	}

	// File is 480 PPQ; 16 file ticks scale ×2 into the 960 domain.
	n := track.Notes[0]
	if n.Note != 0x3C || n.Velocity != 0x40 {
		t.Errorf("unexpected note %+v", n)
	}
	tm := timing.NewManager()
	if got := n.End.Seconds(tm, track.TicksPerQuarter); got != tm.TicksToSeconds(32) {
		t.Errorf("expected note end at 32 canonical ticks, got %v", got)
	}
}

func TestLoadSMF_TempoEventsRescaled(t *testing.T) {
	data := buildTestSMF([]struct {
		tick int
		bpm  float64
	}{
		{0, 120},
		{480, 140},
	})

	_, tempoMap, err := LoadSMF(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadSMF failed: %v", err)
	}

	if len(tempoMap) != 2 {
		t.Fatalf("expected 2 tempo entries, got %d", len(tempoMap))
	}
	// File tick 480 is one quarter: canonical tick 960.
	if tempoMap[1].Time != 960 {
		t.Errorf("expected tempo change at canonical tick 960, got %v", tempoMap[1].Time)
	}

	// Feeding the map into a manager gives tempo-aware conversion: the
	// first beat runs at 120 BPM, the second at the file's quantized 140
	// (428571 µs per quarter).
	tm := timing.NewManager()
	tm.SetTempoMap(tempoMap, timing.UnitTicks)
	want := 0.5 + 428571.0/1e6
	if got := tm.BeatsToSeconds(2); got < want-1e-6 || got > want+1e-6 {
		t.Errorf("expected 2 beats to span %v s, got %v", want, got)
	}
}

func TestLoadSMF_RejectsGarbage(t *testing.T) {
	if _, _, err := LoadSMF(bytes.NewReader([]byte("not a midi file"))); err == nil {
		t.Error("expected error for malformed input")
	}
}
