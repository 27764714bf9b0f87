package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/mappingsvc"
	"github.com/mcsrc/pipeline/internal/store"
	"github.com/mcsrc/pipeline/search"
)

const sampleYarnTiny = "tiny\t2\t0\tofficial\tintermediary\tnamed\n" +
	"c\ta\tnet/minecraft/class_1297\tnet/minecraft/entity/Entity\n" +
	"\tm\t()I\tb\tmethod_6024\tgetHealth\n"

const sampleMojmapTiny = "tiny\t2\t0\tintermediary\tnamed\n" +
	"c\tnet/minecraft/class_1297\tnet/minecraft/entity/Entity\n" +
	"\tm\t()I\tmethod_6024\tgetHealth\n"

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(l.MetadataDB())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	ix, err := search.Open(l.Path(layout.ArtifactKey{Kind: layout.SearchIndex}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })

	return &Coordinator{Layout: l, Store: st, Search: ix}
}

func writeMappingFixture(t *testing.T, c *Coordinator, version string, m layout.Mapping, body string) {
	t.Helper()
	path := c.Layout.Path(layout.ArtifactKey{Kind: layout.TinyFile, Version: version, Mapping: m})
	if err := layout.EnsureDir(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c.Mappings = &mappingsvc.Service{Layout: c.Layout, Merger: mappingsvc.InProcessMerger{}}
}

func writeDecompiledFile(t *testing.T, c *Coordinator, version string, m layout.Mapping, relPath, body string) {
	t.Helper()
	root := c.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: version, Mapping: m})
	full := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSchemeTreeMapsEveryMappingScheme(t *testing.T) {
	t.Parallel()
	cases := []struct {
		m         layout.Mapping
		wantTree  layout.Mapping
		wantNS    string
	}{
		{layout.Official, layout.Yarn, "official"},
		{layout.Intermediary, layout.Yarn, "intermediary"},
		{layout.Yarn, layout.Yarn, "named"},
		{layout.Mojmap, layout.Mojmap, "named"},
	}
	for _, c := range cases {
		gotTree, gotNS := schemeTree(c.m)
		if gotTree != c.wantTree || gotNS != c.wantNS {
			t.Fatalf("schemeTree(%s) = (%s, %s), want (%s, %s)", c.m, gotTree, gotNS, c.wantTree, c.wantNS)
		}
	}
	if tree, ns := schemeTree(layout.Mapping("bogus")); tree != "" || ns != "" {
		t.Fatalf("expected zero values for unknown scheme, got (%s, %s)", tree, ns)
	}
}

func TestFindMappingSameScheme(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	res, err := c.FindMapping(context.Background(), "Entity", "1.21.10", layout.Official, layout.Official)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Target != "Entity" {
		t.Fatalf("got %+v", res)
	}
}

func TestFindMappingWithinYarnTree(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeMappingFixture(t, c, "1.21.10", layout.Yarn, sampleYarnTiny)

	res, err := c.FindMapping(context.Background(), "getHealth", "1.21.10", layout.Yarn, layout.Official)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Target != "b" {
		t.Fatalf("got %+v", res)
	}
}

func TestFindMappingBridgesYarnToMojmap(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeMappingFixture(t, c, "1.21.10", layout.Yarn, sampleYarnTiny)
	writeMappingFixture(t, c, "1.21.10", layout.Mojmap, sampleMojmapTiny)

	res, err := c.FindMapping(context.Background(), "getHealth", "1.21.10", layout.Yarn, layout.Mojmap)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Target != "getHealth" {
		t.Fatalf("got %+v", res)
	}
}

func TestFindMappingNotFoundStopsBeforeSecondTree(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeMappingFixture(t, c, "1.21.10", layout.Yarn, sampleYarnTiny)
	// Mojmap tree intentionally absent: a successful Find that returns
	// Found=false on the first tree must short-circuit before trying to
	// load the second tree, or this call would fail on a missing file
	// instead of returning a clean not-found result.
	res, err := c.FindMapping(context.Background(), "nonexistentSymbol", "1.21.10", layout.Yarn, layout.Mojmap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Fatalf("expected not found, got %+v", res)
	}
}

const sampleEntitySource = `package net.minecraft.entity;

public class Entity {
    private int health;

    public int getHealth() {
        return health;
    }

    public void damage(int amount) {
        health -= amount;
    }
}
`

func TestSearchMinecraftCodeFindsMethodByName(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)

	results, err := c.SearchMinecraftCode(context.Background(), "1.21.10", "getHealth", "method", layout.Official, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "getHealth" {
		t.Fatalf("got %+v", results)
	}
}

func TestSearchMinecraftCodeMissingTree(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	if _, err := c.SearchMinecraftCode(context.Background(), "1.21.10", "getHealth", "method", layout.Official, 10); err == nil {
		t.Fatal("expected error for missing decompiled tree")
	}
}

func TestSearchMinecraftCodeRespectsLimit(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Zombie.java", strings.ReplaceAll(sampleEntitySource, "Entity", "Zombie"))

	results, err := c.SearchMinecraftCode(context.Background(), "1.21.10", "get", "all", layout.Official, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected limit of 1 result, got %d", len(results))
	}
}

func TestListDecompiledClassesSortsDottedNames(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, rel := range []string{"b/B.java", "a/A.java"} {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("class stub"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	classes, err := listDecompiledClasses(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.A", "b.B"}
	if len(classes) != 2 || classes[0] != want[0] || classes[1] != want[1] {
		t.Fatalf("got %v want %v", classes, want)
	}
}

func TestCompareVersionsClasses(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeDecompiledFile(t, c, "1.21.9", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Zombie.java", sampleEntitySource)

	res, err := c.CompareVersions(context.Background(), "1.21.9", "1.21.10", layout.Official, "classes")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.AddedClasses) != 1 || res.AddedClasses[0] != "net.minecraft.entity.Zombie" {
		t.Fatalf("added = %v", res.AddedClasses)
	}
	if len(res.RemovedClasses) != 0 {
		t.Fatalf("removed = %v", res.RemovedClasses)
	}
}

func TestCompareVersionsRequiresBothDecompiled(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeDecompiledFile(t, c, "1.21.9", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)

	if _, err := c.CompareVersions(context.Background(), "1.21.9", "1.21.10", layout.Official, "classes"); err == nil {
		t.Fatal("expected error when target version is not decompiled")
	}
}

func TestRegistryKeysDiffsEntrySets(t *testing.T) {
	t.Parallel()
	from := json.RawMessage(`{"entries":{"minecraft:block":{},"minecraft:item":{}}}`)
	to := json.RawMessage(`{"entries":{"minecraft:block":{},"minecraft:entity_type":{}}}`)

	fromKeys, err := registryKeys(from)
	if err != nil {
		t.Fatal(err)
	}
	toKeys, err := registryKeys(to)
	if err != nil {
		t.Fatal(err)
	}
	added := setDiff(toKeys, fromKeys)
	removed := setDiff(fromKeys, toKeys)
	if len(added) != 1 || added[0] != "minecraft:entity_type" {
		t.Fatalf("added = %v", added)
	}
	if len(removed) != 1 || removed[0] != "minecraft:item" {
		t.Fatalf("removed = %v", removed)
	}
}

func TestIndexAndSearchIndexedRoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)

	fileCount, _, err := c.IndexMinecraftVersion(context.Background(), "1.21.10", layout.Official)
	if err != nil {
		t.Fatal(err)
	}
	if fileCount != 1 {
		t.Fatalf("fileCount = %d", fileCount)
	}

	results, err := c.SearchIndexed(context.Background(), "getHealth", "1.21.10", layout.Official, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one indexed hit")
	}
}

func TestInvalidateVersionClearsArtifactsAndIndex(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	writeDecompiledFile(t, c, "1.21.10", layout.Official, "net/minecraft/entity/Entity.java", sampleEntitySource)
	if _, _, err := c.IndexMinecraftVersion(context.Background(), "1.21.10", layout.Official); err != nil {
		t.Fatal(err)
	}

	if err := c.InvalidateVersion(context.Background(), "1.21.10", layout.Official); err != nil {
		t.Fatal(err)
	}

	root := c.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: "1.21.10", Mapping: layout.Official})
	if layout.DirExists(root) {
		t.Fatal("expected decompiled tree to be removed")
	}
	indexed, err := c.Search.IsIndexed(context.Background(), "1.21.10", layout.Official)
	if err != nil {
		t.Fatal(err)
	}
	if indexed {
		t.Fatal("expected index to be cleared")
	}
}

func TestStatsReflectsUnindexedVersion(t *testing.T) {
	t.Parallel()
	c := newTestCoordinator(t)
	stats, err := c.Stats(context.Background(), "1.21.10", layout.Official)
	if err != nil {
		t.Fatal(err)
	}
	if stats.VersionCached {
		t.Fatal("expected no cached version record")
	}
	if stats.Index.IsIndexed {
		t.Fatal("expected no index record")
	}
}
