// Package curve turns quantized, model-authored effect curves into smooth,
// render-ready series.
//
// Every function in this package is pure: inputs are never mutated, results are
// freshly allocated, and malformed input (empty or undersized sequences) degrades
// to a defined trivial result instead of an error or panic.
//
// Basic usage:
//
//	smoothed := curve.Smooth(c.Baseline, 2)
//	vp := curve.Viewport{Width: 800, Height: 300, MaxHour: 24, MaxValue: 100}
//	d := curve.SmoothPath(smoothed, vp)
//	peak, _ := curve.Peak(c.Baseline)
package curve

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// PhasePoint is a single (hour, value) sample of a time-indexed effect curve.
// Hours are expected to increase strictly within a sequence, but nothing here
// relies on it without a fallback.
type PhasePoint struct {
	Hour  float64 `json:"hour"`
	Value float64 `json:"value"`
}

// Curve is a named effect time series as authored by a planning stage.
type Curve struct {
	Name     string       `json:"name"`
	Baseline []PhasePoint `json:"baseline"`
	Desired  []PhasePoint `json:"desired,omitempty"`
	Levels   Levels       `json:"levels,omitempty"`
}

// LevelEntry is one threshold/label pair of a list-shaped descriptor table.
type LevelEntry struct {
	Threshold float64 `json:"threshold"`
	Label     string  `json:"label"`
}

// Levels holds the descriptor labels of a curve. Models author them either as an
// object keyed by intensity level or as a list of threshold entries; exactly one
// of Map or List is populated after decoding.
type Levels struct {
	Map  map[float64]string
	List []LevelEntry
}

// IsZero reports whether no descriptors are present.
func (l Levels) IsZero() bool {
	return len(l.Map) == 0 && len(l.List) == 0
}

// Labels returns the descriptors as a level->label map regardless of the
// authored shape.
func (l Levels) Labels() map[float64]string {
	out := make(map[float64]string, len(l.Map)+len(l.List))
	for k, v := range l.Map {
		out[k] = v
	}
	for _, e := range l.List {
		out[e.Threshold] = e.Label
	}
	return out
}

// UnmarshalJSON accepts either `{"25": "mild"}` or `[{"threshold": 25, "label": "mild"}]`.
func (l *Levels) UnmarshalJSON(data []byte) error {
	var list []LevelEntry
	if err := json.Unmarshal(data, &list); err == nil {
		l.List = list
		l.Map = nil
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("levels must be an object or a list: %w", err)
	}
	m := make(map[float64]string, len(raw))
	for k, v := range raw {
		level, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("level key %q is not numeric: %w", k, err)
		}
		m[level] = v
	}
	l.Map = m
	l.List = nil
	return nil
}

// MarshalJSON writes the descriptors back in the shape they were read.
func (l Levels) MarshalJSON() ([]byte, error) {
	if len(l.List) > 0 {
		return json.Marshal(l.List)
	}
	raw := make(map[string]string, len(l.Map))
	for k, v := range l.Map {
		raw[strconv.FormatFloat(k, 'f', -1, 64)] = v
	}
	return json.Marshal(raw)
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys(m map[float64]string) []float64 {
	keys := make([]float64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
