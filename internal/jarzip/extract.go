// Package jarzip extracts a single named entry out of a JAR (a zip archive
// with JVM conventions), the minimal slice of JAR handling this pipeline
// needs.
//
// Grounded on the teacher's own archive/zip usage for reading jar entries
// (java/jar/jar.go), with klauspost/compress/flate registered as the
// Deflate decompressor per the teacher's compress-library habit
// (internal/indexer/fetcher, pkg/tarfs use klauspost's gzip/zstd readers
// for the same reason: faster pure-Go decompression than the standard
// library for archive-sized payloads).
package jarzip

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/mcsrc/pipeline/mcerr"
)

// openJar opens jarPath as a zip archive, registering klauspost/compress's
// flate implementation in place of the standard library's for the Deflate
// method — a drop-in decoder with the same io.ReadCloser shape but faster
// decompression, which matters here since client/server jars carry tens of
// thousands of entries.
func openJar(jarPath string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "opening jar as zip").With("jar", jarPath)
	}
	r.RegisterDecompressor(zip.Deflate, flate.NewReader)
	return r, nil
}

// ExtractEntry opens jarPath as a zip archive and copies the named entry's
// decompressed bytes to destPath, creating destPath's parent directory as
// needed.
func ExtractEntry(jarPath, entryName, destPath string) error {
	r, err := openJar(jarPath)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := findEntry(&r.Reader, entryName)
	if err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "opening jar entry").With("entry", entryName)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating destination directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating temp file")
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, rc); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "extracting jar entry")
	}
	if err := tmp.Close(); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "closing temp file")
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "renaming into place")
	}
	cleanup = false
	return nil
}

// ReadEntry returns the decompressed bytes of the named entry without
// writing anything to disk.
func ReadEntry(jarPath, entryName string) ([]byte, error) {
	r, err := openJar(jarPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := findEntry(&r.Reader, entryName)
	if err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "opening jar entry").With("entry", entryName)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func findEntry(r *zip.Reader, name string) (*zip.File, error) {
	for _, f := range r.File {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, mcerr.Newf(mcerr.FSIO, "jar entry %q not found", name).With("entry", name)
}

