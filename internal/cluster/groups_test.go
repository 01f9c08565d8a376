package cluster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data"
	"github.com/NCBI-Hackathons/The-Broad-Institute-Single-Cell-RNA-Seq-Data-Set/internal/data/scp"
)

const clusterFixture = "NAME\tX\tY\tCategory\n" +
	"TYPE\tnumeric\tnumeric\tgroup\n" +
	"cellA\t1\t1\tMalignant\n" +
	"cellB\t2\t2\tMicroglia\n" +
	"cellC\t3\t3\tMalignant\n"

const metadataFixture = "NAME\tCLUSTER\tSUB\n" +
	"TYPE\tgroup\tgroup\n" +
	"cellA\tTumor\ts1\n" +
	"cellB\tImmune\ts1\n" +
	"cellC\tTumor\ts2\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func labelCells(t *testing.T, c *scp.Clustering, label string) []string {
	t.Helper()
	l, ok := c.Label(label)
	if !ok {
		t.Fatalf("clustering %s has no label %q", c.Name, label)
	}
	return l.Cells
}

func TestBuildGroups(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Names:        []string{"tSNE"},
		Paths:        []string{writeFile(t, dir, "tsne.txt", clusterFixture)},
		MetadataPath: writeFile(t, dir, "metadata.txt", metadataFixture),
	}

	groups, err := BuildGroups(cfg)
	if err != nil {
		t.Fatalf("BuildGroups: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Name != "tSNE" {
		t.Errorf("Name = %q, want tSNE", g.Name)
	}
	if len(g.Cells) != 3 || g.Cells[0] != "cellA" || g.Cells[2] != "cellC" {
		t.Errorf("Cells = %v", g.Cells)
	}

	if len(g.Cluster) != 1 || g.Cluster[0].Name != "Category" {
		t.Fatalf("Cluster clusterings = %+v", g.Cluster)
	}
	cat := &g.Cluster[0]
	if got := cat.LabelNames(); len(got) != 2 || got[0] != "Malignant" || got[1] != "Microglia" {
		t.Errorf("Category labels = %v, want file order [Malignant Microglia]", got)
	}
	if cells := labelCells(t, cat, "Malignant"); len(cells) != 2 || cells[0] != "cellA" || cells[1] != "cellC" {
		t.Errorf("Malignant cells = %v", cells)
	}

	if len(g.Study) != 2 || g.Study[0].Name != "CLUSTER" || g.Study[1].Name != "SUB" {
		t.Fatalf("Study clusterings = %+v", g.Study)
	}
	if cells := labelCells(t, &g.Study[1], "s1"); len(cells) != 2 {
		t.Errorf("SUB/s1 cells = %v", cells)
	}

	if got := g.Clusterings(ScopeCluster); len(got) != 1 || got[0].Name != "Category" {
		t.Errorf("Clusterings(cluster) = %+v", got)
	}
	if got := g.Clusterings(ScopeStudy); len(got) != 2 {
		t.Errorf("Clusterings(study) = %+v", got)
	}
}

func TestBuildGroupsExcludesReferenceLabels(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Names:        []string{"tSNE"},
		Paths:        []string{writeFile(t, dir, "tsne.txt", clusterFixture)},
		MetadataPath: writeFile(t, dir, "metadata.txt", metadataFixture),
		RefLabels:    []string{"Microglia", "s1"},
	}

	groups, err := BuildGroups(cfg)
	if err != nil {
		t.Fatalf("BuildGroups: %v", err)
	}
	g := groups[0]

	if got := g.Cluster[0].LabelNames(); len(got) != 1 || got[0] != "Malignant" {
		t.Errorf("Category labels = %v, want [Malignant]", got)
	}
	// Reference labels are excluded from metadata clusterings too.
	if got := g.Study[1].LabelNames(); len(got) != 1 || got[0] != "s2" {
		t.Errorf("SUB labels = %v, want [s2]", got)
	}
	if got := g.Study[0].LabelNames(); len(got) != 2 {
		t.Errorf("CLUSTER labels = %v, want both kept", got)
	}
}

func TestBuildGroupsOrderedLabels(t *testing.T) {
	const cluster = "NAME\tCategory\nTYPE\tgroup\ncellA\tbeta\ncellB\talpha\n"
	const metadata = "NAME\tCLUSTER\nTYPE\tgroup\ncellA\tbeta\ncellB\talpha\n"

	dir := t.TempDir()
	base := Config{
		Names:        []string{"g"},
		Paths:        []string{writeFile(t, dir, "cluster.txt", cluster)},
		MetadataPath: writeFile(t, dir, "metadata.txt", metadata),
	}

	t.Run("reorder", func(t *testing.T) {
		cfg := base
		cfg.OrderedLabels = []string{"alpha", "beta"}
		groups, err := BuildGroups(cfg)
		if err != nil {
			t.Fatalf("BuildGroups: %v", err)
		}
		for _, c := range []*scp.Clustering{&groups[0].Cluster[0], &groups[0].Study[0]} {
			if got := c.LabelNames(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
				t.Errorf("%s labels = %v, want [alpha beta]", c.Name, got)
			}
		}
	})

	t.Run("drops unlisted", func(t *testing.T) {
		cfg := base
		cfg.OrderedLabels = []string{"alpha"}
		groups, err := BuildGroups(cfg)
		if err != nil {
			t.Fatalf("BuildGroups: %v", err)
		}
		if got := groups[0].Cluster[0].LabelNames(); len(got) != 1 || got[0] != "alpha" {
			t.Errorf("labels = %v, want [alpha]", got)
		}
	})

	t.Run("missing listed label", func(t *testing.T) {
		cfg := base
		cfg.OrderedLabels = []string{"alpha", "gamma"}
		_, err := BuildGroups(cfg)
		var lerr *data.LookupError
		if !errors.As(err, &lerr) {
			t.Fatalf("err = %v, want *data.LookupError", err)
		}
		if lerr.Kind != data.LookupLabel || lerr.Name != "gamma" {
			t.Errorf("LookupError = %+v, want label gamma", lerr)
		}
	})
}

func TestBuildGroupsConfigErrors(t *testing.T) {
	dir := t.TempDir()
	meta := writeFile(t, dir, "metadata.txt", metadataFixture)
	path := writeFile(t, dir, "tsne.txt", clusterFixture)

	if _, err := BuildGroups(Config{MetadataPath: meta}); err == nil {
		t.Error("no cluster groups accepted")
	}
	cfg := Config{Names: []string{"a", "b"}, Paths: []string{path}, MetadataPath: meta}
	if _, err := BuildGroups(cfg); err == nil {
		t.Error("mismatched names and paths accepted")
	}
}
