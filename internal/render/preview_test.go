package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/ideogram"
)

func previewDoc() *ideogram.Document {
	return &ideogram.Document{
		Keys:     []string{"name", "start", "length", "obs", "ref", "obs--bin", "ref--bin"},
		Metadata: ideogram.Metadata{HeatmapThresholds: []float64{3, 8}},
		Annots: []ideogram.ChromosomeAnnots{
			{
				Chr: "1",
				Annots: []ideogram.Annot{
					{Name: "geneA", Start: 0, Length: 500000, Values: []float64{2, 9, 1, 2}},
					{Name: "geneB", Start: 600000, Length: 400000, Values: []float64{5, 4, 2, 2}},
				},
			},
			{
				Chr: "2",
				Annots: []ideogram.Annot{
					{Name: "geneC", Start: 100, Length: 200, Values: []float64{1, 1, 1, 1}},
				},
			},
		},
	}
}

func TestPreviewDimensions(t *testing.T) {
	r := NewRenderer(Config{Width: 200, TrackHeight: 20})

	b, err := r.Preview(previewDoc(), "1", Options{})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 200 || bounds.Dy() != 20 {
		t.Errorf("bounds = %v, want 200x20", bounds)
	}

	// A custom width bypasses the pooled context but must be honored.
	b, err = r.Preview(previewDoc(), "1", Options{Width: 64})
	if err != nil {
		t.Fatalf("Preview width=64: %v", err)
	}
	img, err = png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 64 {
		t.Errorf("width = %d, want 64", img.Bounds().Dx())
	}
}

func TestPreviewDeterministic(t *testing.T) {
	r := NewRenderer(Config{Width: 128, TrackHeight: 16})

	a, err := r.Preview(previewDoc(), "1", Options{Track: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Preview(previewDoc(), "1", Options{Track: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical renders differ")
	}

	other, err := r.Preview(previewDoc(), "1", Options{Track: 0})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, other) {
		t.Error("different tracks rendered identically")
	}
}

func TestPreviewWithoutThresholds(t *testing.T) {
	doc := previewDoc()
	doc.Keys = []string{"name", "start", "length", "obs", "ref"}
	doc.Metadata.HeatmapThresholds = nil
	for ci := range doc.Annots {
		for ai := range doc.Annots[ci].Annots {
			a := &doc.Annots[ci].Annots[ai]
			a.Values = a.Values[:2]
		}
	}

	r := NewRenderer(Config{Width: 64, TrackHeight: 8})
	if _, err := r.Preview(doc, "1", Options{Track: 1}); err != nil {
		t.Fatalf("Preview without thresholds: %v", err)
	}
}

func TestPreviewLookupErrors(t *testing.T) {
	r := NewRenderer(DefaultConfig())
	doc := previewDoc()

	_, err := r.Preview(doc, "17", Options{})
	var lerr *data.LookupError
	if !errors.As(err, &lerr) || lerr.Kind != data.LookupChromosome {
		t.Errorf("unknown chromosome err = %v, want chromosome LookupError", err)
	}

	_, err = r.Preview(doc, "1", Options{Track: 9})
	if !errors.As(err, &lerr) || lerr.Kind != data.LookupTrack {
		t.Errorf("bad track err = %v, want track LookupError", err)
	}

	if _, err := r.Preview(doc, "1", Options{Colormap: "sunset"}); err == nil {
		t.Error("unknown colormap accepted")
	}
}
