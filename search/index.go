package search

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/mcerr"
)

// EntryType classifies one indexed row.
type EntryType string

const (
	EntryClass  EntryType = "class"
	EntryMethod EntryType = "method"
	EntryField  EntryType = "field"
)

// ProgressFunc reports (filesIndexed, totalFiles) during IndexVersion.
type ProgressFunc func(indexed, total int)

// Stats is the getStats() result from spec.md §4.14.
type Stats struct {
	IsIndexed   bool
	FileCount   int
	ClassCount  int
	MethodCount int
	FieldCount  int
	IndexedAt   *time.Time
}

const batchSize = 100

var (
	classDeclLine = regexp.MustCompile(`\b(class|interface|enum|record)\s+[A-Za-z_$][A-Za-z0-9_$]*`)
	// (access)[mods...] <TypeParams>? Type name( — a method signature line.
	methodLine = regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+|final\s+|abstract\s+|synchronized\s+|native\s+)*(?:<[^>]*>\s*)?[\w.\[\]<>,? ]+?\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)
	// (access)[mods...] Type name (; | =) and no '(' on the line — a field line.
	fieldLine = regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+|final\s+|volatile\s+|transient\s+)*[\w.\[\]<>,?]+\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*[;=]`)
)

// IndexVersion rebuilds the search index for (version, mapping) by
// walking the decompiled source tree, per spec.md §4.14's algorithm.
func (ix *Index) IndexVersion(ctx context.Context, l *layout.Service, version string, m layout.Mapping, progress ProgressFunc) (fileCount int, duration time.Duration, err error) {
	root := l.Path(layoutKey(layout.Decompiled, version, m))
	if !layout.DirExists(root) {
		return 0, 0, mcerr.Newf(mcerr.IndexNotIndexed, "no decompiled tree for %s/%s", version, m).
			With("version", version).With("mapping", string(m))
	}

	if err := ix.ClearIndex(ctx, version, m); err != nil {
		return 0, 0, err
	}

	start := time.Now()
	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".java") {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return 0, 0, mcerr.Wrap(mcerr.FSIO, walkErr, "walking decompiled tree")
	}

	var classCount, methodCount, fieldCount int

	// Files are grouped into fixed-size batches and each batch committed
	// in its own transaction, per spec.md §4.14 step 4 (the teacher's
	// pkg/microbatch plays the same role for pgx.Batch writes).
	for batchStart := 0; batchStart < len(files); batchStart += batchSize {
		batchEnd := min(batchStart+batchSize, len(files))
		batch := files[batchStart:batchEnd]

		if err := ix.indexBatch(ctx, root, version, m, batch, &classCount, &methodCount, &fieldCount); err != nil {
			return 0, 0, err
		}
		if progress != nil {
			progress(batchEnd, len(files))
		}
	}

	if err := ix.upsertMeta(ctx, version, m, len(files), classCount, methodCount, fieldCount); err != nil {
		return 0, 0, err
	}
	return len(files), time.Since(start), nil
}

// indexBatch scans and inserts one batch of files inside a single
// transaction.
func (ix *Index) indexBatch(ctx context.Context, root, version string, m layout.Mapping, batch []string, classCount, methodCount, fieldCount *int) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "beginning index batch transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries_fts (version, mapping, entry_type, class_name, symbol, file, line, context) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "preparing index insert")
	}
	defer stmt.Close()

	for _, path := range batch {
		rel, _ := filepath.Rel(root, path)
		className := strings.TrimSuffix(strings.ReplaceAll(rel, string(filepath.Separator), "."), ".java")

		entries, classes, methods, fields, err := scanFile(path, className)
		if err != nil {
			return err
		}
		*classCount += classes
		*methodCount += methods
		*fieldCount += fields

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, version, string(m), string(e.Type), className, e.Symbol, rel, e.Line, e.Context); err != nil {
				return mcerr.Wrap(mcerr.FSIO, err, "inserting index entry")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "committing index batch")
	}
	return nil
}

func (ix *Index) upsertMeta(ctx context.Context, version string, m layout.Mapping, fileCount, classCount, methodCount, fieldCount int) error {
	now := time.Now().UTC()
	if _, err := ix.db.ExecContext(ctx, `
		INSERT INTO index_meta (version, mapping, file_count, class_count, method_count, field_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (version, mapping) DO UPDATE SET
			file_count = excluded.file_count, class_count = excluded.class_count,
			method_count = excluded.method_count, field_count = excluded.field_count,
			indexed_at = excluded.indexed_at`,
		version, string(m), fileCount, classCount, methodCount, fieldCount, now.Unix()); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "upserting index_meta")
	}
	return nil
}

// Entry is one classified line from a decompiled Java source file.
type Entry struct {
	Type    EntryType
	Symbol  string
	Line    int
	Context string
}

// ScanFile classifies each line of the Java source file at path into
// class/method/field entries, per spec.md §4.14 step 3. It performs no
// database I/O, so callers needing an on-demand, non-persisted scan (e.g.
// pipeline.Coordinator.SearchMinecraftCode) can use it directly.
func ScanFile(path, className string) ([]Entry, error) {
	entries, _, _, _, err := scanFile(path, className)
	return entries, err
}

func scanFile(path, className string) (entries []Entry, classCount, methodCount, fieldCount int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, mcerr.Wrap(mcerr.FSIO, err, "opening source file for indexing")
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	sawClass := false
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if !sawClass && classDeclLine.MatchString(line) {
			entries = append(entries, Entry{Type: EntryClass, Symbol: className, Line: 1, Context: truncate(line, 300)})
			classCount++
			sawClass = true
			continue
		}
		if strings.Contains(line, "(") {
			if m := methodLine.FindStringSubmatch(line); m != nil {
				entries = append(entries, Entry{Type: EntryMethod, Symbol: m[1], Line: lineNo, Context: truncate(line, 300)})
				methodCount++
			}
			continue
		}
		if m := fieldLine.FindStringSubmatch(line); m != nil {
			entries = append(entries, Entry{Type: EntryField, Symbol: m[1], Line: lineNo, Context: truncate(line, 300)})
			fieldCount++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, 0, 0, mcerr.Wrap(mcerr.FSIO, err, "scanning source file")
	}
	if !sawClass {
		entries = append([]Entry{{Type: EntryClass, Symbol: className, Line: 1, Context: className}}, entries...)
		classCount++
	}
	return entries, classCount, methodCount, fieldCount, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ClearIndex removes every row for (version, mapping).
func (ix *Index) ClearIndex(ctx context.Context, version string, m layout.Mapping) error {
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM entries_fts WHERE version = ? AND mapping = ?`, version, string(m)); err != nil {
		return mcerr.Wrap(mcerr.IndexClear, err, "clearing fts rows")
	}
	if _, err := ix.db.ExecContext(ctx, `DELETE FROM index_meta WHERE version = ? AND mapping = ?`, version, string(m)); err != nil {
		return mcerr.Wrap(mcerr.IndexClear, err, "clearing index_meta row")
	}
	return nil
}

// IsIndexed reports whether (version, mapping) has a search index.
func (ix *Index) IsIndexed(ctx context.Context, version string, m layout.Mapping) (bool, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM index_meta WHERE version = ? AND mapping = ?`, version, string(m)).Scan(&n)
	if err != nil {
		return false, mcerr.Wrap(mcerr.FSIO, err, "checking index_meta")
	}
	return n > 0, nil
}

// GetStats returns the indexing rollup for (version, mapping).
func (ix *Index) GetStats(ctx context.Context, version string, m layout.Mapping) (Stats, error) {
	row := ix.db.QueryRowContext(ctx, `
		SELECT file_count, class_count, method_count, field_count, indexed_at
		FROM index_meta WHERE version = ? AND mapping = ?`, version, string(m))
	var s Stats
	var indexedAt int64
	err := row.Scan(&s.FileCount, &s.ClassCount, &s.MethodCount, &s.FieldCount, &indexedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Stats{}, nil
		}
		return Stats{}, mcerr.Wrap(mcerr.FSIO, err, "reading index stats")
	}
	s.IsIndexed = true
	t := time.Unix(indexedAt, 0).UTC()
	s.IndexedAt = &t
	return s, nil
}

// IndexedVersion names one (version, mapping) pair with a built index.
type IndexedVersion struct {
	Version string
	Mapping string
}

// ListIndexedVersions returns every (version, mapping) pair with a
// built index.
func (ix *Index) ListIndexedVersions(ctx context.Context) ([]IndexedVersion, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT version, mapping FROM index_meta ORDER BY indexed_at DESC`)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "listing indexed versions")
	}
	defer rows.Close()
	var out []IndexedVersion
	for rows.Next() {
		var v IndexedVersion
		if err := rows.Scan(&v.Version, &v.Mapping); err != nil {
			return nil, mcerr.Wrap(mcerr.FSIO, err, "scanning indexed version row")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func layoutKey(kind layout.Kind, version string, m layout.Mapping) layout.ArtifactKey {
	return layout.ArtifactKey{Kind: kind, Version: version, Mapping: m}
}
