package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mcsrc/pipeline/internal/fetch"
	"github.com/mcsrc/pipeline/internal/layout"
)

func TestGetDownloadsOnFirstUse(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("fake-jar-bytes"))
	}))
	defer srv.Close()

	orig := registry[Decompiler]
	registry[Decompiler] = asset{toolName: orig.toolName, version: "test", url: srv.URL}
	defer func() { registry[Decompiler] = orig }()

	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := New(l, &fetch.Client{})

	path, err := p.Get(context.Background(), Decompiler)
	if err != nil {
		t.Fatal(err)
	}
	if !layout.Exists(path) {
		t.Fatalf("expected %s to exist", path)
	}

	if _, err := p.Get(context.Background(), Decompiler); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one download, got %d", hits)
	}
}

func TestGetReturnsExistingWithoutDownload(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("should-not-be-fetched"))
	}))
	defer srv.Close()

	orig := registry[Remapper]
	registry[Remapper] = asset{toolName: orig.toolName, version: "test2", url: srv.URL}
	defer func() { registry[Remapper] = orig }()

	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := New(l, &fetch.Client{})

	path := l.ResourceJar("tiny-remapper", "test2")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("preexisting"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := p.Get(context.Background(), Remapper)
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Fatalf("got %q want %q", got, path)
	}
	if hits != 0 {
		t.Fatalf("expected no download, got %d hits", hits)
	}
}

func TestGetUnknownAsset(t *testing.T) {
	l, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := New(l, &fetch.Client{})
	if _, err := p.Get(context.Background(), Name("bogus")); err == nil {
		t.Fatal("expected an error for unknown asset name")
	}
}
