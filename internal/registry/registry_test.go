package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcsrc/pipeline/internal/fetch"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/mcmeta"
	"github.com/mcsrc/pipeline/mcerr"
)

func TestParseMajorMinor(t *testing.T) {
	cases := []struct {
		v                string
		major, minor     int
		ok               bool
	}{
		{"1.21.10", 1, 21, true},
		{"1.17.1", 1, 17, true},
		{"1.8", 1, 8, true},
		{"24w10a", 0, 0, false},
	}
	for _, c := range cases {
		major, minor, ok := parseMajorMinor(c.v)
		if ok != c.ok {
			t.Fatalf("%s: ok=%v want %v", c.v, ok, c.ok)
		}
		if ok && (major != c.major || minor != c.minor) {
			t.Fatalf("%s: got %d.%d want %d.%d", c.v, major, minor, c.major, c.minor)
		}
	}
}

func seedRegistryCache(t *testing.T, l *layout.Service, version, body string) {
	t.Helper()
	path := l.Path(layout.ArtifactKey{Kind: layout.Registry, Version: version})
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetRegistryDataWholeDocument(t *testing.T) {
	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seedRegistryCache(t, l, "1.21.10", `{"entries":{"minecraft:block":{"entries":{"minecraft:stone":{}}}}}`)
	e := New(l, mcmeta.New(&fetch.Client{}, l), "java")

	out, err := e.GetRegistryData(context.Background(), "1.21.10", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty document")
	}
}

func TestGetRegistryDataByTypeAutoPrefixes(t *testing.T) {
	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seedRegistryCache(t, l, "1.21.10", `{"entries":{"minecraft:block":{"entries":{"minecraft:stone":{}}}}}`)
	e := New(l, mcmeta.New(&fetch.Client{}, l), "java")

	out, err := e.GetRegistryData(context.Background(), "1.21.10", "block")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("expected a registry entry body")
	}
}

func TestGetRegistryDataUnknownType(t *testing.T) {
	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seedRegistryCache(t, l, "1.21.10", `{"entries":{"minecraft:block":{}}}`)
	e := New(l, mcmeta.New(&fetch.Client{}, l), "java")

	_, err = e.GetRegistryData(context.Background(), "1.21.10", "nonexistent")
	if err == nil {
		t.Fatal("expected an error for an unknown registry type")
	}
	if kind, _ := mcerr.KindOf(err); kind != mcerr.NotFoundRegistry {
		t.Fatalf("got kind %v", kind)
	}
}
