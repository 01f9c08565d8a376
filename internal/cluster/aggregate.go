package cluster

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/infercnv"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

// Means holds per-gene mean expression for each label of one
// clustering. Genes keep matrix row order; Values[i][j] is the mean of
// gene i across the cells labeled Labels[j], rounded to 3 decimals.
type Means struct {
	Clustering string
	Labels     []string
	Genes      []string
	Values     [][]float64
}

// Aggregate computes every matrix gene's mean expression per label of
// one clustering. Every label cell must be a matrix column; a cell the
// matrix does not have is a LookupError, never a silent skip. A
// clustering without labels, or a label without cells, cannot produce
// a meaningful track and is a DataQualityError. A cell labeled more
// than once is counted under each of its labels independently.
func Aggregate(m *infercnv.Matrix, c *scp.Clustering) (*Means, error) {
	if len(c.Labels) == 0 {
		return nil, &data.DataQualityError{Subject: c.Name, Msg: "no cluster labels with cells"}
	}

	cols := make([][]int, len(c.Labels))
	for j, l := range c.Labels {
		if len(l.Cells) == 0 {
			return nil, &data.DataQualityError{
				Subject: fmt.Sprintf("%s/%s", c.Name, l.Name),
				Msg:     "no cells",
			}
		}
		idx := make([]int, 0, len(l.Cells))
		for _, cell := range l.Cells {
			i, ok := m.CellIndex(cell)
			if !ok {
				return nil, &data.LookupError{Kind: data.LookupCell, Name: cell, Path: m.Path}
			}
			idx = append(idx, i)
		}
		// Accumulate in matrix column order so the arithmetic is
		// identical no matter how the label listed its cells.
		sort.Ints(idx)
		cols[j] = idx
	}

	means := &Means{
		Clustering: c.Name,
		Labels:     c.LabelNames(),
		Genes:      append([]string(nil), m.Genes...),
		Values:     make([][]float64, m.GeneCount()),
	}
	buf := make([]float64, 0, m.CellCount())
	for gi := 0; gi < m.GeneCount(); gi++ {
		row := m.Row(gi)
		vals := make([]float64, len(cols))
		for j, idx := range cols {
			buf = buf[:0]
			for _, ci := range idx {
				buf = append(buf, row[ci])
			}
			vals[j] = round3(stat.Mean(buf, nil))
		}
		means.Values[gi] = vals
	}
	return means, nil
}

// round3 rounds half away from zero to 3 decimals, the precision the
// annotation files have always carried.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
