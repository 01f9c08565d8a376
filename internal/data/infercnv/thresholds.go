package infercnv

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// ReadHeatmapThresholds parses the inferCNV heatmap threshold file:
// one numeric bin boundary per line, strictly increasing. The
// boundaries are forwarded to the visualization unchanged and also
// drive bin derivation at emission, so ordering is enforced here.
func ReadHeatmapThresholds(path string) ([]float64, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var thresholds []float64
	sc := bufio.NewScanner(rc)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("threshold %q is not numeric", text),
			}
		}
		if n := len(thresholds); n > 0 && v <= thresholds[n-1] {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("threshold %v not greater than previous %v", v, thresholds[n-1]),
			}
		}
		thresholds = append(thresholds, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(thresholds) == 0 {
		return nil, &data.FormatError{Path: path, Msg: "no thresholds"}
	}
	return thresholds, nil
}
