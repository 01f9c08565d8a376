package scp

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// naSpellings are the missing-value spellings tolerated in numeric
// metadata columns.
var naSpellings = map[string]bool{"NA": true, "nA": true, "Na": true, "na": true}

// Finding is one verification failure.
type Finding struct {
	Path string
	Line int // 1-based, 0 when the finding is about the whole file
	Msg  string
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", f.Path, f.Line, f.Msg)
	}
	return fmt.Sprintf("%s: %s", f.Path, f.Msg)
}

// Report accumulates verification findings and notes across files.
// Verification never stops at the first problem: a report lists every
// defect found so a submitter can fix a file in one pass.
type Report struct {
	Findings []Finding
	Notes    []string
}

// OK reports whether verification found no failures. Notes do not
// count against a file.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

func (r *Report) addf(path string, line int, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Path: path, Line: line, Msg: fmt.Sprintf(format, args...)})
}

func (r *Report) notef(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// VerifiedFile carries the identifiers a checked file contributes to
// cross-file comparisons.
type VerifiedFile struct {
	Path  string
	Cells []string
	Genes []string
}

// VerifyMetadata checks an SCP metadata file: NAME/TYPE header rows,
// declared column types, row widths, value types (numeric columns must
// parse, NA spellings tolerated), empty fields, duplicate cell names.
func VerifyMetadata(rep *Report, path string, delim byte) (*VerifiedFile, error) {
	return verifyAnnotated(rep, path, delim, nil, true)
}

// coordinatesHeader is the required leading header of a cluster
// coordinates file.
var coordinatesHeader = []string{NameHeaderID, "X", "Y"}

// VerifyCoordinates checks an SCP cluster coordinates file. The
// required NAME/X/Y columns may be followed by further annotations; a
// Z column is noted as producing a 3-D plot.
func VerifyCoordinates(rep *Report, path string, delim byte) (*VerifiedFile, error) {
	return verifyAnnotated(rep, path, delim, coordinatesHeader, false)
}

// verifyAnnotated checks the shared two-header-row shape of metadata
// and coordinate files. expected pins leading header fields;
// tolerateNA admits NA spellings in numeric columns.
func verifyAnnotated(rep *Report, path string, delim byte, expected []string, tolerateNA bool) (*VerifiedFile, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	cr := newDelimitedReader(rc, delim)

	names, err := cr.Read()
	if err != nil {
		rep.addf(path, 1, "missing %s header row", NameHeaderID)
		return &VerifiedFile{Path: path}, nil
	}
	types, err := cr.Read()
	if err != nil {
		rep.addf(path, 2, "missing %s header row", TypeHeaderID)
		return &VerifiedFile{Path: path}, nil
	}

	if len(expected) > 0 {
		if len(names) < len(expected) {
			rep.addf(path, 1, "expected at least %d columns, got %d", len(expected), len(names))
		}
		for i := 0; i < len(expected) && i < len(names); i++ {
			if names[i] != expected[i] {
				rep.addf(path, 1, "header column %d is %q, want %q", i+1, names[i], expected[i])
			}
		}
		for _, n := range names {
			if n == "Z" {
				rep.notef("%s has a Z column; expect a 3-D plot from this file", path)
				break
			}
		}
	} else {
		if names[0] != NameHeaderID {
			rep.addf(path, 1, "first header field is %q, want %q", names[0], NameHeaderID)
		}
		if len(names) < 2 {
			rep.addf(path, 1, "need at least a cell ID column and one annotation column")
		}
	}
	if dups := duplicates(names); len(dups) > 0 {
		rep.addf(path, 1, "duplicate header names: %s", strings.Join(dups, ", "))
	}
	checkTypeRow(rep, path, names, types)

	var cells []string
	line := 2
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rep.addf(path, line, "%v", err)
			continue
		}
		if len(rec) != len(names) {
			rep.addf(path, line, "expected %d fields, got %d", len(names), len(rec))
		}
		for i, v := range rec {
			if v == "" {
				rep.addf(path, line, "empty value in column %d", i+1)
				continue
			}
			if tolerateNA && naSpellings[v] {
				continue
			}
			if i < len(types) && types[i] == TypeNumeric {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					rep.addf(path, line, "value %q in column %d is not numeric", v, i+1)
				}
			}
		}
		if len(rec) > 0 {
			cells = append(cells, rec[0])
		}
	}
	if dups := duplicates(cells); len(dups) > 0 {
		rep.addf(path, 0, "duplicate cell names: %s", strings.Join(dups, ", "))
	}
	return &VerifiedFile{Path: path, Cells: cells}, nil
}

func checkTypeRow(rep *Report, path string, names, types []string) {
	if len(types) != len(names) {
		rep.addf(path, 2, "type row has %d fields, name row has %d", len(types), len(names))
	}
	if types[0] != TypeHeaderID {
		rep.addf(path, 2, "first type field is %q, want %q", types[0], TypeHeaderID)
	}
	var bad []string
	for _, t := range types[1:] {
		if t != TypeGroup && t != TypeNumeric {
			bad = append(bad, t)
		}
	}
	if len(bad) > 0 {
		rep.addf(path, 2, "unrecognized types: %s (valid types: %s, %s)",
			strings.Join(bad, ", "), TypeNumeric, TypeGroup)
	}
}

// VerifyExpression checks an expression matrix: GENE header keyword,
// row widths, numeric values, duplicate cell and gene names.
func VerifyExpression(rep *Report, path string, delim byte) (*VerifiedFile, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	cr := newDelimitedReader(rc, delim)

	header, err := cr.Read()
	if err != nil {
		rep.addf(path, 1, "missing header row")
		return &VerifiedFile{Path: path}, nil
	}
	if header[0] != GeneHeaderID {
		rep.addf(path, 1, "first header field is %q, want %q", header[0], GeneHeaderID)
	}

	var genes []string
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rep.addf(path, line, "%v", err)
			continue
		}
		if len(rec) != len(header) {
			rep.addf(path, line, "expected %d fields, got %d", len(header), len(rec))
		}
		for _, v := range rec[1:] {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				rep.addf(path, line, "value %q is not numeric", v)
			}
		}
		if len(rec) > 0 {
			genes = append(genes, rec[0])
		}
	}

	cells := header[1:]
	if dups := duplicates(cells); len(dups) > 0 {
		rep.addf(path, 1, "duplicate cell names: %s", strings.Join(dups, ", "))
	}
	if dups := duplicates(genes); len(dups) > 0 {
		rep.addf(path, 0, "duplicate gene names: %s", strings.Join(dups, ", "))
	}
	return &VerifiedFile{Path: path, Cells: cells, Genes: genes}, nil
}

// VerifyGeneList checks a gene-list file: GENE NAMES header keyword,
// row widths, numeric measurements.
func VerifyGeneList(rep *Report, path string, delim byte) (*VerifiedFile, error) {
	rc, err := data.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	cr := newDelimitedReader(rc, delim)

	header, err := cr.Read()
	if err != nil {
		rep.addf(path, 1, "missing header row")
		return &VerifiedFile{Path: path}, nil
	}
	if header[0] != GeneListHeaderID {
		rep.addf(path, 1, "first header field is %q, want %q", header[0], GeneListHeaderID)
	}

	var genes []string
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rep.addf(path, line, "%v", err)
			continue
		}
		if len(rec) != len(header) {
			rep.addf(path, line, "expected %d fields, got %d", len(header), len(rec))
		}
		for i, v := range rec[1:] {
			if v == "" {
				rep.addf(path, line, "empty value in column %d", i+2)
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				rep.addf(path, line, "value %q in column %d is not numeric", v, i+2)
			}
		}
		if len(rec) > 0 {
			genes = append(genes, rec[0])
		}
	}
	return &VerifiedFile{Path: path, Genes: genes}, nil
}

// duplicates returns the values appearing more than once, in
// first-repeat order.
func duplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	reported := make(map[string]bool)
	var dups []string
	for _, it := range items {
		if seen[it] && !reported[it] {
			reported[it] = true
			dups = append(dups, it)
		}
		seen[it] = true
	}
	return dups
}
