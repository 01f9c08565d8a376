// Package scp reads and validates Single Cell Portal annotation files.
//
// SCP cluster, coordinate and metadata files are delimited text with a
// two-row header: row one names each column and begins with NAME, row
// two declares each column's type and begins with TYPE. Data rows
// follow from the third row, with the cell identifier in the first
// column. group-typed columns partition cells into labeled clusters;
// numeric-typed columns carry per-cell measurements. Expression
// matrices and gene-list files share the delimiter conventions but
// have single-row headers keyed by GENE and GENE NAMES.
package scp

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// Column types declared in the TYPE header row.
const (
	TypeGroup   = "group"
	TypeNumeric = "numeric"
)

// Header row identifiers.
const (
	NameHeaderID     = "NAME"
	TypeHeaderID     = "TYPE"
	GeneHeaderID     = "GENE"
	GeneListHeaderID = "GENE NAMES"
)

// DefaultDelimiter is the delimiter of portal files unless a caller
// says otherwise.
const DefaultDelimiter byte = '\t'

// Header is the two-row SCP header: column names and column types.
// Names[0] and Types[0] hold the NAME and TYPE row identifiers.
type Header struct {
	Names []string
	Types []string
}

// Columns returns the number of columns declared by the header.
func (h Header) Columns() int { return len(h.Names) }

// Label is one cluster label and its member cells, in file order.
type Label struct {
	Name  string
	Cells []string
}

// Clustering is the partition of cells induced by one group-typed
// column of an SCP file. Labels appear in first-seen file order.
type Clustering struct {
	Name   string
	Path   string
	Labels []Label
}

// Label returns the named label, or false when the clustering does not
// have it.
func (c *Clustering) Label(name string) (*Label, bool) {
	for i := range c.Labels {
		if c.Labels[i].Name == name {
			return &c.Labels[i], true
		}
	}
	return nil, false
}

// LabelNames returns the label names in clustering order.
func (c *Clustering) LabelNames() []string {
	names := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		names[i] = l.Name
	}
	return names
}

// ClusterFile is the parsed group content of an SCP cluster or
// metadata file.
type ClusterFile struct {
	Path        string
	Header      Header
	Cells       []string // cell IDs in file order
	Clusterings []Clustering
}

// Clustering returns the clustering parsed from the named group
// column, or false when the file has no such column.
func (f *ClusterFile) Clustering(name string) (*Clustering, bool) {
	for i := range f.Clusterings {
		if f.Clusterings[i].Name == name {
			return &f.Clusterings[i], true
		}
	}
	return nil, false
}

// ReadClusters parses the group-typed columns of an SCP cluster or
// metadata file. Cells whose label appears in refLabels are excluded
// from every clustering: reference cells are a baseline, not an
// observation. The file's full cell list is kept unfiltered.
func ReadClusters(path string, delim byte, refLabels []string) (*ClusterFile, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readClusters(rc, path, delim, refLabels)
}

func readClusters(r io.Reader, path string, delim byte, refLabels []string) (*ClusterFile, error) {
	cr := newDelimitedReader(r, delim)

	hdr, err := readHeader(cr, path)
	if err != nil {
		return nil, err
	}

	ref := make(map[string]bool, len(refLabels))
	for _, l := range refLabels {
		ref[l] = true
	}

	var groupCols []int
	for i := 1; i < len(hdr.Types); i++ {
		if hdr.Types[i] == TypeGroup {
			groupCols = append(groupCols, i)
		}
	}

	f := &ClusterFile{Path: path, Header: hdr}
	f.Clusterings = make([]Clustering, len(groupCols))
	byLabel := make([]map[string]int, len(groupCols))
	for i, col := range groupCols {
		f.Clusterings[i] = Clustering{Name: hdr.Names[col], Path: path}
		byLabel[i] = make(map[string]int)
	}

	line := 2
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &data.FormatError{Path: path, Line: line, Msg: err.Error()}
		}
		if len(rec) != hdr.Columns() {
			return nil, &data.FormatError{
				Path: path, Line: line,
				Msg: fmt.Sprintf("expected %d fields, got %d", hdr.Columns(), len(rec)),
			}
		}
		cell := rec[0]
		f.Cells = append(f.Cells, cell)
		for i, col := range groupCols {
			label := strings.TrimSpace(rec[col])
			if ref[label] {
				continue
			}
			c := &f.Clusterings[i]
			j, ok := byLabel[i][label]
			if !ok {
				j = len(c.Labels)
				byLabel[i][label] = j
				c.Labels = append(c.Labels, Label{Name: label})
			}
			c.Labels[j].Cells = append(c.Labels[j].Cells, cell)
		}
	}
	if len(f.Cells) == 0 {
		return nil, &data.FormatError{Path: path, Msg: "no data rows"}
	}
	return f, nil
}

// ReadRaw reads every row of a delimited portal file without
// interpreting the header. Rows keep their file order; callers index
// header rows themselves.
func ReadRaw(path string, delim byte) ([][]string, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr := newDelimitedReader(rc, delim)
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &data.FormatError{Path: path, Line: len(rows) + 1, Msg: err.Error()}
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, &data.FormatError{Path: path, Msg: "empty file"}
	}
	return rows, nil
}

func newDelimitedReader(r io.Reader, delim byte) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = rune(delim)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func readHeader(cr *csv.Reader, path string) (Header, error) {
	names, err := cr.Read()
	if err != nil {
		return Header{}, &data.FormatError{Path: path, Line: 1, Msg: "missing NAME header row"}
	}
	types, err := cr.Read()
	if err != nil {
		return Header{}, &data.FormatError{Path: path, Line: 2, Msg: "missing TYPE header row"}
	}
	if names[0] != NameHeaderID {
		return Header{}, &data.FormatError{
			Path: path, Line: 1,
			Msg: fmt.Sprintf("first header field is %q, want %q", names[0], NameHeaderID),
		}
	}
	if types[0] != TypeHeaderID {
		return Header{}, &data.FormatError{
			Path: path, Line: 2,
			Msg: fmt.Sprintf("first type field is %q, want %q", types[0], TypeHeaderID),
		}
	}
	if len(types) != len(names) {
		return Header{}, &data.FormatError{
			Path: path, Line: 2,
			Msg: fmt.Sprintf("type row has %d fields, name row has %d", len(types), len(names)),
		}
	}
	return Header{Names: names, Types: types}, nil
}
