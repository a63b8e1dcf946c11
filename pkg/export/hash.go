package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Maokus/MVMNT-sub010/pkg/timeline"
)

// NormalizedTrack is the per-track slice of state that affects timing or the
// mix. Field order is fixed by declaration order, which fixes the key order
// of the canonical JSON serialization.
type NormalizedTrack struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"`
	OffsetTicks      int64   `json:"offsetTicks"`
	RegionStartTicks *int64  `json:"regionStartTicks"`
	RegionEndTicks   *int64  `json:"regionEndTicks"`
	Gain             float64 `json:"gain"`
	Mute             bool    `json:"mute"`
	Solo             bool    `json:"solo"`
}

// HashInput is everything the reproducibility digest covers. Identical
// normalized inputs always hash identically, independent of live object
// iteration order or when the hash is computed.
type HashInput struct {
	AppVersion     string            `json:"appVersion"`
	BPM            float64           `json:"bpm"`
	PPQ            int               `json:"ppq"`
	TicksPerSecond float64           `json:"ticksPerSecond"`
	ExportStart    float64           `json:"exportStart"`
	ExportEnd      float64           `json:"exportEnd"`
	FPS            float64           `json:"fps"`
	Tracks         []NormalizedTrack `json:"tracks"`
}

// NormalizeTracks projects tracks down to their hash-relevant fields in a
// caller-fixed ID order. IDs in order that name no track are skipped; with an
// empty order the tracks come back sorted by ID, so the result never depends
// on live iteration order.
func NormalizeTracks(tracks []*timeline.MidiTrack, order []string) []NormalizedTrack {
	byID := make(map[string]*timeline.MidiTrack, len(tracks))
	for _, tr := range tracks {
		byID[tr.ID] = tr
	}

	if len(order) == 0 {
		order = make([]string, 0, len(tracks))
		for _, tr := range tracks {
			order = append(order, tr.ID)
		}
		sort.Strings(order)
	}

	out := make([]NormalizedTrack, 0, len(order))
	for _, id := range order {
		tr, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, NormalizedTrack{
			ID:               tr.ID,
			Type:             string(tr.Type),
			OffsetTicks:      tr.OffsetTicks,
			RegionStartTicks: tr.RegionStartTicks,
			RegionEndTicks:   tr.RegionEndTicks,
			Gain:             tr.Gain,
			Mute:             tr.Mute,
			Solo:             tr.Solo,
		})
	}
	return out
}

// Compute serializes the input canonically (UTF-8 JSON, fixed key order) and
// returns the lowercase-hex SHA-256 of those bytes.
func Compute(in HashInput) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("serialize hash input: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
