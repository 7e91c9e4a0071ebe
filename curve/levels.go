package curve

import "math"

// IntensityLevels is the current ascending set of discrete intensity levels that
// descriptor labels are attached to.
var IntensityLevels = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// LegacyLevels is the coarse level set older descriptor maps were authored against.
var LegacyLevels = []float64{0, 25, 50, 75, 100}

// NearestLevel maps value onto the closest entry of IntensityLevels. Ties break
// toward the earlier (lower) level.
func NearestLevel(value float64) float64 {
	return IntensityLevels[LevelIndex(value)]
}

// LevelIndex returns the ordinal of NearestLevel(value) within IntensityLevels.
func LevelIndex(value float64) int {
	return nearestIndex(IntensityLevels, value)
}

// StepLevel moves the level nearest to value by delta positions, clamped to the
// valid range, and returns the resulting level.
func StepLevel(value float64, delta int) float64 {
	i := LevelIndex(value) + delta
	i = max(0, min(len(IntensityLevels)-1, i))
	return IntensityLevels[i]
}

// nearestIndex returns the index of the candidate closest to value, preferring
// the first candidate on ties. An empty candidate set yields 0.
func nearestIndex(candidates []float64, value float64) int {
	if math.IsInf(value, 1) && len(candidates) > 0 {
		return len(candidates) - 1
	}
	best := 0
	bestDist := math.Inf(1)
	for i, c := range candidates {
		if d := math.Abs(c - value); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// MigrateDescriptors upgrades a descriptor map authored against a coarser level
// set to IntensityLevels: each new level copies the label of the nearest old
// level key. Maps already holding at least len(IntensityLevels) entries, and
// empty maps, are returned as a copy without migration.
func MigrateDescriptors(labels map[float64]string) map[float64]string {
	out := make(map[float64]string, max(len(labels), len(IntensityLevels)))
	if len(labels) == 0 || len(labels) >= len(IntensityLevels) {
		for k, v := range labels {
			out[k] = v
		}
		return out
	}

	old := sortedKeys(labels)
	for _, level := range IntensityLevels {
		out[level] = labels[old[nearestIndex(old, level)]]
	}
	return out
}

// Migrate returns a copy of l whose descriptors cover IntensityLevels. List-shaped
// descriptors are left as authored since their thresholds are explicit.
func (l Levels) Migrate() Levels {
	if len(l.List) > 0 {
		return Levels{List: append([]LevelEntry(nil), l.List...)}
	}
	return Levels{Map: MigrateDescriptors(l.Map)}
}
