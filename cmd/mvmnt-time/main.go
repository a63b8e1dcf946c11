package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Maokus/MVMNT-sub010/pkg/cli"
	"github.com/Maokus/MVMNT-sub010/pkg/export"
	"github.com/Maokus/MVMNT-sub010/pkg/logger"
	"github.com/Maokus/MVMNT-sub010/pkg/timeline"
	"github.com/Maokus/MVMNT-sub010/pkg/timing"
)

const appVersion = "0.1.0"

func main() {
	config, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if config.ShowHelp || config.MIDIPath == "" {
		cli.PrintHelp()
		if config.ShowHelp {
			return
		}
		os.Exit(1)
	}

	if err := logger.InitLogger(config.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(config *cli.Config) error {
	tl, tempoMap, err := timeline.LoadSMFFile(config.MIDIPath)
	if err != nil {
		return err
	}

	tm := timing.NewManager()
	tm.SetTempoMap(tempoMap, timing.UnitTicks)

	fmt.Printf("tempo map (%d entries):\n", len(tm.TempoMap()))
	for _, e := range tm.TempoMap() {
		fmt.Printf("  %8.3fs  %7.2f BPM  (%s)\n", e.Time, e.BPM, e.Curve)
	}

	qe := timeline.NewQueryEngine(tm, tl)
	windowEnd := config.WindowEnd
	if windowEnd <= config.WindowStart {
		windowEnd = lastNoteEnd(qe)
	}

	notes := qe.NotesInWindow(nil, config.WindowStart, windowEnd)
	fmt.Printf("\n%d notes in [%.3fs, %.3fs):\n", len(notes), config.WindowStart, windowEnd)
	for _, n := range notes {
		bbt := timing.FormatBBT(tm.SecondsToTicks(n.StartSec), tm.TicksPerQuarter(), tm.BeatsPerBar())
		fmt.Printf("  %-10s %8.3fs  note=%3d ch=%d vel=%3d dur=%.3fs  track=%s\n",
			bbt, n.StartSec, n.Note, n.Channel, n.Velocity, n.Duration, n.TrackID)
	}

	hash, err := export.Compute(export.HashInput{
		AppVersion:     appVersion,
		BPM:            tm.BPM(),
		PPQ:            tm.TicksPerQuarter(),
		TicksPerSecond: tm.Snapshot().TicksPerSecond(),
		ExportStart:    config.WindowStart,
		ExportEnd:      windowEnd,
		FPS:            config.FPS,
		Tracks:         export.NormalizeTracks(tl.Tracks(), nil),
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nreproducibility hash: %s\n", hash)

	clock, err := export.NewClock(tm.Snapshot(), export.Options{
		FPS:            config.FPS,
		TotalFrames:    int64(config.Frames),
		PlayRangeStart: config.WindowStart,
	})
	if err != nil {
		return err
	}
	fmt.Printf("\nfirst %d export frames at %.0f fps:\n", config.Frames, config.FPS)
	return clock.Run(context.Background(), func(ft export.FrameTime) error {
		fmt.Printf("  frame %4d  %9.4fs  tick %d\n", ft.Frame, ft.Seconds, ft.Ticks)
		return nil
	})
}

// lastNoteEnd scans the full timeline for the latest note end, used as the
// default query window end.
func lastNoteEnd(qe *timeline.QueryEngine) float64 {
	const horizon = 1 << 20 // seconds, effectively unbounded
	end := 0.0
	for _, n := range qe.NotesInWindow(nil, 0, horizon) {
		if n.EndSec > end {
			end = n.EndSec
		}
	}
	return end
}
