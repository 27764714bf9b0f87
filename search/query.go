package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/doug-martin/goqu/v8"

	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/mcerr"
)

// dialect builds WHERE/IN clauses for entries_fts the way the teacher's
// postgres datastore builds dynamic queries (datastore/postgres/querybuilder.go),
// in place of hand-joined placeholder strings; goqu's generic dialect
// produces standard positional-parameter SQL that modernc.org/sqlite accepts
// without needing a sqlite-specific goqu dialect registered.
var dialect = goqu.Dialect("default")

// Result is one ranked search hit.
type Result struct {
	Type    EntryType
	Name    string
	File    string
	Line    int
	Context string // highlighted snippet when available
	Score   float64
}

// Options configures a Search call.
type Options struct {
	Version    string
	Mapping    layout.Mapping
	Types      []EntryType // empty means all types
	Limit      int         // 0 means a default of 50
	AnyContent bool        // when true, also match against the context column (searchContent)
}

var nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)

// sanitize drops quotes and punctuation before building an FTS5 MATCH
// expression, per spec.md §4.14.
func sanitize(query string) string {
	q := strings.ReplaceAll(query, `"`, "")
	q = nonWordOrSpace.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// Search runs a prefix/BM25 ranked query, falling back to a LIKE scan if
// the FTS5 query fails to parse.
func (ix *Index) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 50
	}
	clean := sanitize(query)
	if clean == "" {
		return nil, nil
	}

	results, err := ix.searchFTS(ctx, clean, opts, limit)
	if err == nil {
		return results, nil
	}
	return ix.searchLike(ctx, clean, opts, limit)
}

func (ix *Index) searchFTS(ctx context.Context, clean string, opts Options, limit int) ([]Result, error) {
	matchExpr := buildMatchExpr(clean, opts.AnyContent)

	ds := dialect.From("entries_fts").
		Select(
			goqu.I("entry_type"), goqu.I("symbol"), goqu.I("class_name"), goqu.I("file"), goqu.I("line"),
			goqu.L("snippet(entries_fts, 7, '[', ']', '...', 32)"),
			goqu.L("bm25(entries_fts)"),
		).
		Where(goqu.L("entries_fts MATCH ?", matchExpr)).
		Order(goqu.L("bm25(entries_fts)").Asc()).
		Limit(uint(limit)).
		Prepared(true)
	ds = ds.Where(versionMappingFilter(opts)...)
	if len(opts.Types) > 0 {
		ds = ds.Where(goqu.Ex{"entry_type": entryTypeStrings(opts.Types)})
	}

	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "building FTS search query")
	}
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var entryType, className string
		var rawScore float64
		if err := rows.Scan(&entryType, &r.Name, &className, &r.File, &r.Line, &r.Context, &rawScore); err != nil {
			return nil, mcerr.Wrap(mcerr.FSIO, err, "scanning search result")
		}
		r.Type = EntryType(entryType)
		r.Score = -rawScore // bm25() is negative-is-better; flip to positive magnitude
		out = append(out, r)
	}
	return out, rows.Err()
}

// buildMatchExpr builds an FTS5 MATCH expression restricted to the symbol
// column (and, when anyContent is set, also the context column) with a
// prefix wildcard on each term.
func buildMatchExpr(clean string, anyContent bool) string {
	terms := strings.Fields(clean)
	for i, t := range terms {
		terms[i] = t + "*"
	}
	prefixQuery := strings.Join(terms, " ")
	// FTS5 applies a column filter only to the phrase right after it, so
	// the whole term list is parenthesized.
	symbolExpr := "symbol: (" + prefixQuery + ")"
	if !anyContent {
		return symbolExpr
	}
	return "(" + symbolExpr + ") OR (context: (" + prefixQuery + "))"
}

// searchLike is the fallback path when the FTS5 query fails to parse
// (pathological user input); a plain substring scan over symbol (and
// context, when AnyContent is set).
func (ix *Index) searchLike(ctx context.Context, clean string, opts Options, limit int) ([]Result, error) {
	like := "%" + clean + "%"

	ds := dialect.From("entries_fts").
		Select("entry_type", "symbol", "file", "line", "context").
		Limit(uint(limit)).
		Prepared(true)
	ds = ds.Where(versionMappingFilter(opts)...)
	if opts.AnyContent {
		ds = ds.Where(goqu.Or(
			goqu.Ex{"symbol": goqu.Op{"like": like}},
			goqu.Ex{"context": goqu.Op{"like": like}},
		))
	} else {
		ds = ds.Where(goqu.Ex{"symbol": goqu.Op{"like": like}})
	}
	if len(opts.Types) > 0 {
		ds = ds.Where(goqu.Ex{"entry_type": entryTypeStrings(opts.Types)})
	}

	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "building fallback LIKE query")
	}
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "running fallback LIKE search")
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var entryType string
		if err := rows.Scan(&entryType, &r.Name, &r.File, &r.Line, &r.Context); err != nil {
			return nil, mcerr.Wrap(mcerr.FSIO, err, "scanning fallback search result")
		}
		r.Type = EntryType(entryType)
		out = append(out, r)
	}
	return out, rows.Err()
}

// versionMappingFilter builds the WHERE expressions restricting a query to
// opts.Version/opts.Mapping, omitting either side that's left at its zero
// value so an empty Options.Version searches every indexed version (per
// cmd/mcsrc's "-version" flag: "empty searches every indexed version")
// instead of matching nothing.
func versionMappingFilter(opts Options) []goqu.Expression {
	var exprs []goqu.Expression
	if opts.Version != "" {
		exprs = append(exprs, goqu.Ex{"version": opts.Version})
	}
	if opts.Mapping != "" {
		exprs = append(exprs, goqu.Ex{"mapping": string(opts.Mapping)})
	}
	return exprs
}

// entryTypeStrings converts EntryType values to the strings stored in the
// entry_type column, for use with goqu.Ex's slice-becomes-IN handling.
func entryTypeStrings(types []EntryType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// SearchClasses restricts results to class entries with content matching
// disabled.
func (ix *Index) SearchClasses(ctx context.Context, query, version string, m layout.Mapping, limit int) ([]Result, error) {
	return ix.Search(ctx, query, Options{Version: version, Mapping: m, Types: []EntryType{EntryClass}, Limit: limit})
}

// SearchMethods restricts results to method entries.
func (ix *Index) SearchMethods(ctx context.Context, query, version string, m layout.Mapping, limit int) ([]Result, error) {
	return ix.Search(ctx, query, Options{Version: version, Mapping: m, Types: []EntryType{EntryMethod}, Limit: limit})
}

// SearchFields restricts results to field entries.
func (ix *Index) SearchFields(ctx context.Context, query, version string, m layout.Mapping, limit int) ([]Result, error) {
	return ix.Search(ctx, query, Options{Version: version, Mapping: m, Types: []EntryType{EntryField}, Limit: limit})
}

// SearchContent searches across all entry types with context matching
// enabled.
func (ix *Index) SearchContent(ctx context.Context, query, version string, m layout.Mapping, limit int) ([]Result, error) {
	return ix.Search(ctx, query, Options{Version: version, Mapping: m, AnyContent: true, Limit: limit})
}
