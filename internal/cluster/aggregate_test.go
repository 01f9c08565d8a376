package cluster

import (
	"errors"
	"reflect"
	"testing"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/infercnv"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

func readTestMatrix(t *testing.T, content string) *infercnv.Matrix {
	t.Helper()
	path := writeFile(t, t.TempDir(), "matrix.txt", content)
	m, err := infercnv.ReadMatrix(path, '\t')
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	return m
}

func TestAggregate(t *testing.T) {
	m := readTestMatrix(t, "cellA\tcellB\tcellC\tcellD\tcellE\n"+
		"gene1\t1\t2\t3\t4\t7\n"+
		"gene2\t2\t4\t6\t8\t10\n")
	c := &scp.Clustering{
		Name: "Category",
		Path: "cluster.txt",
		Labels: []scp.Label{
			{Name: "low", Cells: []string{"cellA", "cellB"}},
			{Name: "high", Cells: []string{"cellC", "cellD", "cellE"}},
		},
	}

	means, err := Aggregate(m, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if means.Clustering != "Category" {
		t.Errorf("Clustering = %q", means.Clustering)
	}
	if !reflect.DeepEqual(means.Labels, []string{"low", "high"}) {
		t.Errorf("Labels = %v", means.Labels)
	}
	if !reflect.DeepEqual(means.Genes, []string{"gene1", "gene2"}) {
		t.Errorf("Genes = %v, want matrix row order", means.Genes)
	}
	want := [][]float64{
		{1.5, 4.667}, // (3+4+7)/3 rounded to 3 decimals
		{3, 8},
	}
	if !reflect.DeepEqual(means.Values, want) {
		t.Errorf("Values = %v, want %v", means.Values, want)
	}
}

func TestAggregateSingleCellRoundTrip(t *testing.T) {
	m := readTestMatrix(t, "cell1\ngeneA\t2.725\n")
	c := &scp.Clustering{
		Name:   "CLUSTER",
		Labels: []scp.Label{{Name: "obs", Cells: []string{"cell1"}}},
	}

	means, err := Aggregate(m, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// One cell in one cluster: the mean is exactly the cell's value.
	if got := means.Values[0][0]; got != 2.725 {
		t.Errorf("mean = %v, want 2.725", got)
	}
}

func TestAggregateCellOrderIrrelevant(t *testing.T) {
	m := readTestMatrix(t, "cellA\tcellB\tcellC\n"+
		"gene1\t0.1\t0.2\t0.7\n")
	forward := &scp.Clustering{
		Name:   "CLUSTER",
		Labels: []scp.Label{{Name: "all", Cells: []string{"cellA", "cellB", "cellC"}}},
	}
	reversed := &scp.Clustering{
		Name:   "CLUSTER",
		Labels: []scp.Label{{Name: "all", Cells: []string{"cellC", "cellB", "cellA"}}},
	}

	a, err := Aggregate(m, forward)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Aggregate(m, reversed)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Values, b.Values) {
		t.Errorf("means differ by cell listing order: %v vs %v", a.Values, b.Values)
	}
}

func TestAggregateSharedCell(t *testing.T) {
	m := readTestMatrix(t, "cellA\tcellB\n"+
		"gene1\t2\t4\n")
	// cellB belongs to both labels and is counted in each.
	c := &scp.Clustering{
		Name: "CLUSTER",
		Labels: []scp.Label{
			{Name: "one", Cells: []string{"cellA", "cellB"}},
			{Name: "two", Cells: []string{"cellB"}},
		},
	}

	means, err := Aggregate(m, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := [][]float64{{3, 4}}
	if !reflect.DeepEqual(means.Values, want) {
		t.Errorf("Values = %v, want %v", means.Values, want)
	}
}

func TestAggregateUnknownCell(t *testing.T) {
	m := readTestMatrix(t, "cellA\ngene1\t1\n")
	c := &scp.Clustering{
		Name:   "CLUSTER",
		Path:   "cluster.txt",
		Labels: []scp.Label{{Name: "obs", Cells: []string{"cellA", "ghost"}}},
	}

	_, err := Aggregate(m, c)
	var lerr *data.LookupError
	if !errors.As(err, &lerr) {
		t.Fatalf("err = %v, want *data.LookupError", err)
	}
	if lerr.Kind != data.LookupCell || lerr.Name != "ghost" {
		t.Errorf("LookupError = %+v, want cell ghost", lerr)
	}
}

func TestAggregateEmptyClustering(t *testing.T) {
	m := readTestMatrix(t, "cellA\ngene1\t1\n")

	tests := []struct {
		name string
		c    *scp.Clustering
	}{
		{"no labels", &scp.Clustering{Name: "CLUSTER"}},
		{"label without cells", &scp.Clustering{
			Name:   "CLUSTER",
			Labels: []scp.Label{{Name: "obs"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(m, tt.c)
			var derr *data.DataQualityError
			if !errors.As(err, &derr) {
				t.Fatalf("err = %v, want *data.DataQualityError", err)
			}
		})
	}
}
