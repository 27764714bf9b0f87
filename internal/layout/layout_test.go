package layout

import (
	"path/filepath"
	"testing"
)

func TestPathInjective(t *testing.T) {
	t.Parallel()
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	keys := []ArtifactKey{
		{Kind: ClientJar, Version: "1.21.10"},
		{Kind: ServerJar, Version: "1.21.10"},
		{Kind: TinyFile, Version: "1.21.10", Mapping: Yarn},
		{Kind: TinyFile, Version: "1.21.10", Mapping: Mojmap},
		{Kind: TinyFile, Version: "1.21.10", Mapping: Intermediary},
		{Kind: RemappedJar, Version: "1.21.10", Mapping: Yarn},
		{Kind: RemappedJar, Version: "1.21.10", Mapping: Mojmap},
		{Kind: Decompiled, Version: "1.21.10", Mapping: Yarn},
		{Kind: Registry, Version: "1.21.10"},
	}
	seen := map[string]ArtifactKey{}
	for _, k := range keys {
		p := svc.Path(k)
		if other, ok := seen[p]; ok {
			t.Fatalf("path collision for %+v and %+v: %q", k, other, p)
		}
		seen[p] = k
	}
}

func TestDecompiledClassFilePath(t *testing.T) {
	t.Parallel()
	svc, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got := svc.Path(ArtifactKey{
		Kind:      DecompiledClassFile,
		Version:   "1.21.10",
		Mapping:   Yarn,
		ClassName: "net.minecraft.entity.Entity",
	})
	want := filepath.Join(svc.Root, "decompiled", "1.21.10", "yarn", "net", "minecraft", "entity", "Entity.java")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestMappingValid(t *testing.T) {
	t.Parallel()
	for _, m := range []Mapping{Official, Intermediary, Yarn, Mojmap} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Mapping("bogus").Valid() {
		t.Error("bogus should be invalid")
	}
}
