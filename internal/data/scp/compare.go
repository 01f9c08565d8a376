package scp

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

// CompareCellNames checks that two verified files describe the same
// cell population: same unique count, no cells unique to either side.
func CompareCellNames(rep *Report, a, b *VerifiedFile) {
	as := uniqueSet(a.Cells)
	bs := uniqueSet(b.Cells)
	if len(as) != len(bs) {
		rep.addf(a.Path, 0, "expected the same cells as %s: %d unique cells here, %d there",
			b.Path, len(as), len(bs))
	}
	if only := setDifference(as, bs); len(only) > 0 {
		rep.addf(a.Path, 0, "cell names not in %s: %s", b.Path, strings.Join(only, ", "))
	}
	if only := setDifference(bs, as); len(only) > 0 {
		rep.addf(b.Path, 0, "cell names not in %s: %s", a.Path, strings.Join(only, ", "))
	}
}

// CompareGeneNames checks that every gene of a gene-list file exists
// in an expression file.
func CompareGeneNames(rep *Report, list, expr *VerifiedFile) {
	have := uniqueSet(expr.Genes)
	for _, g := range list.Genes {
		if !have[g] {
			rep.addf(list.Path, 0, "gene %q not found in expression file %s", g, expr.Path)
		}
	}
}

// RepairExpressionHeader writes a sibling copy of an expression matrix
// whose header gains the GENE keyword over the gene-ID column, for
// matrices written by tools that leave the corner cell empty. The
// input file is never modified. repaired is false when the header
// already carries the keyword or the widths rule out the missing-cell
// layout.
func RepairExpressionHeader(path string, delim byte) (newPath string, repaired bool, err error) {
	rc, err := data.Open(path)
	if err != nil {
		return "", false, err
	}
	defer rc.Close()
	cr := newDelimitedReader(rc, delim)

	header, err := cr.Read()
	if err != nil {
		return "", false, &data.FormatError{Path: path, Line: 1, Msg: "missing header row"}
	}
	if header[0] == GeneHeaderID {
		return "", false, nil
	}
	first, err := cr.Read()
	if err != nil {
		return "", false, &data.FormatError{Path: path, Line: 2, Msg: "no data rows"}
	}
	if len(header)+1 != len(first) {
		return "", false, nil
	}

	newPath, err = safeSiblingName(path)
	if err != nil {
		return "", false, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", false, err
	}
	defer os.Remove(tmp.Name())

	var out io.Writer = tmp
	var zw *gzip.Writer
	if filepath.Ext(path) == ".gz" {
		zw = gzip.NewWriter(tmp)
		out = zw
	}
	cw := csv.NewWriter(out)
	cw.Comma = rune(delim)
	if err := cw.Write(append([]string{GeneHeaderID}, header...)); err != nil {
		tmp.Close()
		return "", false, err
	}
	if err := cw.Write(first); err != nil {
		tmp.Close()
		return "", false, err
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tmp.Close()
			return "", false, fmt.Errorf("copying %s: %w", path, err)
		}
		if err := cw.Write(rec); err != nil {
			tmp.Close()
			return "", false, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		tmp.Close()
		return "", false, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			tmp.Close()
			return "", false, err
		}
	}
	if err := tmp.Close(); err != nil {
		return "", false, err
	}
	if err := os.Rename(tmp.Name(), newPath); err != nil {
		return "", false, err
	}
	return newPath, true, nil
}

// safeSiblingName returns a path next to the input that does not
// collide with an existing file, prefixing a counter when needed.
func safeSiblingName(path string) (string, error) {
	dir, base := filepath.Dir(path), filepath.Base(path)
	for n := 1; n < 1000; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%d_%s", n, base))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free sibling name for %s", path)
}

func uniqueSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

func setDifference(a, b map[string]bool) []string {
	var only []string
	for it := range a {
		if !b[it] {
			only = append(only, it)
		}
	}
	sort.Strings(only)
	return only
}
