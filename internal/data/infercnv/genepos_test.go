package infercnv

import (
	"errors"
	"testing"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
)

func TestReadGenePositions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gen_pos.txt",
		"ACOX3\tchr4\t8368009\t8442450\n"+
			"geneA\tchr1\t1000\t2000\n")

	p, err := ReadGenePositions(path)
	if err != nil {
		t.Fatalf("ReadGenePositions: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	pos, ok := p.Lookup("ACOX3")
	if !ok {
		t.Fatal("ACOX3 not found")
	}
	if pos.Chr != "chr4" || pos.Start != 8368009 || pos.Stop != 8442450 {
		t.Errorf("ACOX3 = %+v", pos)
	}
	if got, want := pos.Length(), int64(74441); got != want {
		t.Errorf("Length = %d, want %d", got, want)
	}
	if _, ok := p.Lookup("missing"); ok {
		t.Error("Lookup(missing) reported ok")
	}
}

func TestReadGenePositionsSpaceDelimited(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gen_pos.txt", "geneA chr1 1000 2000\n\n")

	p, err := ReadGenePositions(path)
	if err != nil {
		t.Fatalf("ReadGenePositions: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len = %d, want 1", p.Len())
	}
}

func TestReadGenePositionsFormatErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"missing field", "geneA chr1 1000\n"},
		{"extra field", "geneA chr1 1000 2000 3000\n"},
		{"non-integer start", "geneA chr1 one 2000\n"},
		{"non-integer stop", "geneA chr1 1000 two\n"},
		{"start after stop", "geneA chr1 2000 1000\n"},
		{"duplicate gene", "geneA chr1 1000 2000\ngeneA chr2 10 20\n"},
		{"empty", "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "gen_pos.txt", tt.content)
			_, err := ReadGenePositions(path)
			var ferr *data.FormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("err = %v, want *data.FormatError", err)
			}
		})
	}
}

func TestReadHeatmapThresholds(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, dir, "thresholds.txt", "3\n8\n12.5\n")
		got, err := ReadHeatmapThresholds(path)
		if err != nil {
			t.Fatalf("ReadHeatmapThresholds: %v", err)
		}
		want := []float64{3, 8, 12.5}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("thresholds[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("non-numeric", func(t *testing.T) {
		path := writeFile(t, dir, "thresholds.txt", "3\nhigh\n")
		_, err := ReadHeatmapThresholds(path)
		var ferr *data.FormatError
		if !errors.As(err, &ferr) {
			t.Fatalf("err = %v, want *data.FormatError", err)
		}
	})

	t.Run("not increasing", func(t *testing.T) {
		path := writeFile(t, dir, "thresholds.txt", "3\n3\n")
		if _, err := ReadHeatmapThresholds(path); err == nil {
			t.Fatal("equal thresholds accepted")
		}
	})

	t.Run("empty", func(t *testing.T) {
		path := writeFile(t, dir, "thresholds.txt", "")
		if _, err := ReadHeatmapThresholds(path); err == nil {
			t.Fatal("empty threshold file accepted")
		}
	})
}
