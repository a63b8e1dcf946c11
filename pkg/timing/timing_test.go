package timing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSetBPM_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"below_min", 5, 20},
		{"above_max", 500, 300},
		{"in_range", 128, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			m.SetBPM(tt.input)
			if m.BPM() != tt.expected {
				t.Errorf("SetBPM(%v): expected %v, got %v", tt.input, tt.expected, m.BPM())
			}
		})
	}
}

func TestSetBPM_NoOpWhenUnchanged(t *testing.T) {
	m := NewManager()
	m.SetBPM(128)
	tempoBefore := m.Tempo()
	m.SetBPM(128)
	if m.Tempo() != tempoBefore {
		t.Error("repeated SetBPM with the same value must not change tempo")
	}
}

func TestSetTempo_DerivesBPM(t *testing.T) {
	m := NewManager()
	if err := m.SetTempo(400000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.BPM() != 150 {
		t.Errorf("expected 150 BPM from 400000 µs/quarter, got %v", m.BPM())
	}
}

func TestSetTempo_RejectsNonPositive(t *testing.T) {
	m := NewManager()
	if err := m.SetTempo(0); err == nil {
		t.Error("expected error for tempo 0")
	}
	if err := m.SetTempo(-100); err == nil {
		t.Error("expected error for negative tempo")
	}
}

func TestSetTicksPerQuarter_RejectsNonPositive(t *testing.T) {
	m := NewManager()
	if err := m.SetTicksPerQuarter(0); err == nil {
		t.Error("expected error for PPQ 0")
	}
	if err := m.SetTicksPerQuarter(-480); err == nil {
		t.Error("expected error for negative PPQ")
	}
	if m.TicksPerQuarter() != CanonicalPPQ {
		t.Errorf("rejected setter must not change PPQ, got %d", m.TicksPerQuarter())
	}
}

func TestSetBeatsPerBar_Clamping(t *testing.T) {
	m := NewManager()
	m.SetBeatsPerBar(0)
	if m.BeatsPerBar() != 1 {
		t.Errorf("expected clamp to 1, got %d", m.BeatsPerBar())
	}
	m.SetBeatsPerBar(99)
	if m.BeatsPerBar() != 16 {
		t.Errorf("expected clamp to 16, got %d", m.BeatsPerBar())
	}
}

func TestSetTimeSignature(t *testing.T) {
	m := NewManager()
	if err := m.SetTimeSignature(3, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.BeatsPerBar() != 3 {
		t.Errorf("expected beatsPerBar derived from numerator, got %d", m.BeatsPerBar())
	}
	if err := m.SetTimeSignature(0, 4); err == nil {
		t.Error("expected error for zero numerator")
	}
}

func TestTicksSecondsRoundTrip(t *testing.T) {
	m := NewManager()
	m.SetTempoMap([]TempoMapEntry{
		{Time: 0, BPM: 120},
		{Time: 2, BPM: 90},
		{Time: 5, BPM: 180},
	}, UnitSeconds)

	for _, tick := range []int64{0, 1, 480, 960, 12345, 1000000} {
		back := m.SecondsToTicks(m.TicksToSeconds(tick))
		if back != tick {
			t.Errorf("round trip of tick %d gave %d", tick, back)
		}
	}
}

// TestBarBeatTickComposeDecompose checks compose(decompose(t)) == t for
// arbitrary non-negative ticks under fixed PPQ, with and without a tempo map.
func TestBarBeatTickComposeDecompose(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	properties.Property("compose inverts decompose", prop.ForAll(
		func(tick int64, useMap bool) bool {
			m := NewManager()
			if useMap {
				m.SetTempoMap([]TempoMapEntry{
					{Time: 0, BPM: 120},
					{Time: 1.5, BPM: 66},
				}, UnitSeconds)
			}
			sec := m.TicksToSeconds(tick)
			bar, beat, rem := m.TimeToBarBeatTick(sec)
			back := m.BarBeatTickToTime(bar, beat, rem)
			return m.SecondsToTicks(back) == tick
		},
		gen.Int64Range(0, 1<<32),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestTimeToBarBeatTick(t *testing.T) {
	m := NewManager() // 120 BPM, 4/4, 960 PPQ: one bar = 2s

	tests := []struct {
		name    string
		seconds float64
		bar     int64
		beat    int64
		tick    int64
	}{
		{"origin", 0, 1, 1, 0},
		{"second_beat", 0.5, 1, 2, 0},
		{"second_bar", 2.0, 2, 1, 0},
		{"negative_clamps", -1, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, beat, tick := m.TimeToBarBeatTick(tt.seconds)
			if bar != tt.bar || beat != tt.beat || tick != tt.tick {
				t.Errorf("TimeToBarBeatTick(%v) = %d.%d.%d, expected %d.%d.%d",
					tt.seconds, bar, beat, tick, tt.bar, tt.beat, tt.tick)
			}
		})
	}
}

func TestTimeUnitWindow(t *testing.T) {
	m := NewManager() // one bar = 2s

	start, end := m.TimeUnitWindow(2.5, 1)
	if start != 2.0 || end != 4.0 {
		t.Errorf("expected window [2, 4], got [%v, %v]", start, end)
	}

	start, end = m.TimeUnitWindow(0.1, 2)
	if start != 0.0 || end != 4.0 {
		t.Errorf("expected window [0, 4], got [%v, %v]", start, end)
	}

	// bars < 1 treated as 1
	start, end = m.TimeUnitWindow(0, 0)
	if start != 0.0 || end != 2.0 {
		t.Errorf("expected window [0, 2], got [%v, %v]", start, end)
	}
}

func TestBeatGridInWindow(t *testing.T) {
	m := NewManager() // 120 BPM: beats at 0, 0.5, 1.0, ...

	grid := m.BeatGridInWindow(0, 2.0)
	if len(grid) != 5 {
		t.Fatalf("expected 5 beats in [0, 2], got %d", len(grid))
	}
	for i, g := range grid {
		if g.Beat != int64(i) {
			t.Errorf("grid[%d].Beat = %d", i, g.Beat)
		}
		wantBar := i%4 == 0
		if g.BarStart != wantBar {
			t.Errorf("grid[%d].BarStart = %v, expected %v", i, g.BarStart, wantBar)
		}
	}

	// Boundary beats survive float rounding: 0.5s is exactly beat 1.
	grid = m.BeatGridInWindow(0.5, 0.5)
	if len(grid) != 1 || grid[0].Beat != 1 {
		t.Fatalf("expected exactly beat 1 in degenerate window, got %+v", grid)
	}

	// Inverted window yields nothing.
	if got := m.BeatGridInWindow(2, 1); got != nil {
		t.Errorf("expected nil grid for inverted window, got %v", got)
	}
}

func TestFastPathEquivalence(t *testing.T) {
	m := NewManager()
	m.SetBPM(100)
	for _, b := range []float64{0, 0.5, 1, 7.25, 1000} {
		if got, want := m.BeatsToSeconds(b), b*(60.0/100.0); got != want {
			t.Errorf("BeatsToSeconds(%v) = %v, expected exactly %v", b, got, want)
		}
	}
}

func TestTimeToBarBeatTick_ZeroDurationInput(t *testing.T) {
	// The core never errors on degenerate input.
	m := NewManager()
	if got := m.BeatsToSeconds(0); got != 0 {
		t.Errorf("BeatsToSeconds(0) = %v", got)
	}
	if got := m.SecondsToTicks(0); got != 0 {
		t.Errorf("SecondsToTicks(0) = %v", got)
	}
	if got := math.Abs(m.TicksToSeconds(0)); got != 0 {
		t.Errorf("TicksToSeconds(0) = %v", got)
	}
}
