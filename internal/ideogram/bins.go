package ideogram

import "sort"

// Bin places a mean into a heatmap color bin: the 1-based index of the
// first threshold at or above v, clamped to the last bin. A value
// exactly on a boundary lands in the lower bin, so thresholds [3, 8]
// bin 3.0 as 1 and 10.0 as 2. Thresholds must be sorted ascending,
// which the threshold reader enforces. Returns 0 when there are no
// thresholds.
func Bin(v float64, thresholds []float64) int {
	if len(thresholds) == 0 {
		return 0
	}
	bin := sort.SearchFloat64s(thresholds, v) + 1
	if bin > len(thresholds) {
		return len(thresholds)
	}
	return bin
}
