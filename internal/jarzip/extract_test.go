package jarzip

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTestJar(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jar")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadEntryUsesKlauspostDeflate(t *testing.T) {
	t.Parallel()
	jar := writeTestJar(t, map[string]string{"net/minecraft/Entity.class": "classfile bytes"})

	got, err := ReadEntry(jar, "net/minecraft/Entity.class")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("classfile bytes")) {
		t.Fatalf("got %q", got)
	}
}

func TestExtractEntryWritesDestPath(t *testing.T) {
	t.Parallel()
	jar := writeTestJar(t, map[string]string{"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n"})
	dest := filepath.Join(t.TempDir(), "nested", "MANIFEST.MF")

	if err := ExtractEntry(jar, "META-INF/MANIFEST.MF", dest); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Manifest-Version: 1.0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReadEntryMissingEntry(t *testing.T) {
	t.Parallel()
	jar := writeTestJar(t, map[string]string{"a.txt": "hi"})
	if _, err := ReadEntry(jar, "b.txt"); err == nil {
		t.Fatal("expected an error for a missing entry")
	}
}
