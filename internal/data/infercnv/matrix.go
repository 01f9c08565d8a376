// Package infercnv reads the artifacts an inferCNV run leaves behind
// (the processed expression matrix, the genomic position file and the
// heatmap threshold list) and prepares inferCNV annotation inputs
// from SCP files.
package infercnv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// Matrix is an inferCNV-processed expression matrix held fully in
// memory: genes in row order, cells in header order. Downstream
// aggregation iterates Genes by index, so output order always matches
// the file.
type Matrix struct {
	Path  string
	Cells []string
	Genes []string

	values  [][]float64
	cellIdx map[string]int
	geneIdx map[string]int
}

// GeneCount returns the number of gene rows.
func (m *Matrix) GeneCount() int { return len(m.Genes) }

// CellCount returns the number of cell columns.
func (m *Matrix) CellCount() int { return len(m.Cells) }

// Row returns gene i's expression values in cell column order. The
// slice is shared, not copied; callers must not modify it.
func (m *Matrix) Row(i int) []float64 { return m.values[i] }

// CellIndex returns the column of the named cell.
func (m *Matrix) CellIndex(name string) (int, bool) {
	i, ok := m.cellIdx[name]
	return i, ok
}

// GeneIndex returns the row of the named gene.
func (m *Matrix) GeneIndex(name string) (int, bool) {
	i, ok := m.geneIdx[name]
	return i, ok
}

// NormalizeCellName undoes the name mangling R applies to cell
// identifiers on their way through inferCNV: surrounding quotes are
// dropped, a PREVIZ. prefix is cut, and remaining dots revert to
// dashes ("PREVIZ.AAACATACAAGGGC.1" becomes "AAACATACAAGGGC-1").
func NormalizeCellName(name string) string {
	name = strings.Trim(name, `"`)
	if i := strings.Index(name, "PREVIZ."); i >= 0 {
		name = name[i+len("PREVIZ."):]
	}
	return strings.ReplaceAll(name, ".", "-")
}

// ReadMatrix parses a delimited expression matrix: a header row of
// cell identifiers, then one row per gene holding the gene identifier
// and one numeric value per cell. A header written by R may carry a
// placeholder over the gene-ID column; the first data row disambiguates
// the two layouts.
func ReadMatrix(path string, delim byte) (*Matrix, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readMatrix(rc, path, delim)
}

func readMatrix(r io.Reader, path string, delim byte) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.Comma = rune(delim)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &data.FormatError{Path: path, Msg: "empty matrix"}
	}
	if err != nil {
		return nil, &data.FormatError{Path: path, Line: 1, Msg: err.Error()}
	}

	m := &Matrix{
		Path:    path,
		geneIdx: make(map[string]int),
	}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &data.FormatError{Path: path, Line: line, Msg: err.Error()}
		}
		if m.Cells == nil {
			switch len(rec) {
			case len(header) + 1:
				err = m.setCells(header, path)
			case len(header):
				err = m.setCells(header[1:], path)
			default:
				err = &data.FormatError{
					Path: path, Line: line,
					Msg: fmt.Sprintf("header has %d fields but row has %d", len(header), len(rec)),
				}
			}
			if err != nil {
				return nil, err
			}
		}
		if len(rec) != len(m.Cells)+1 {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("expected %d fields, got %d", len(m.Cells)+1, len(rec)),
			}
		}
		gene := strings.Trim(rec[0], `"`)
		if gene == "" {
			return nil, &data.FormatError{Path: path, Line: line, Msg: "empty gene identifier"}
		}
		if _, dup := m.geneIdx[gene]; dup {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("duplicate gene %q", gene),
			}
		}
		vals := make([]float64, len(rec)-1)
		for i, s := range rec[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, &data.FormatError{
					Path: path, Line: line,
					Msg: fmt.Sprintf("value %q in column %d is not numeric", s, i+2),
				}
			}
			vals[i] = v
		}
		m.geneIdx[gene] = len(m.Genes)
		m.Genes = append(m.Genes, gene)
		m.values = append(m.values, vals)
	}
	if m.Cells == nil {
		return nil, &data.FormatError{Path: path, Msg: "no data rows"}
	}
	return m, nil
}

func (m *Matrix) setCells(raw []string, path string) error {
	m.Cells = make([]string, len(raw))
	m.cellIdx = make(map[string]int, len(raw))
	for i, c := range raw {
		c = NormalizeCellName(c)
		if _, dup := m.cellIdx[c]; dup {
			return &data.FormatError{
				Path: path, Line: 1,
				Msg: fmt.Sprintf("duplicate cell %q after name normalization", c),
			}
		}
		m.Cells[i] = c
		m.cellIdx[c] = i
	}
	return nil
}
