package search

import (
	"context"
	"strings"
	"testing"

	"github.com/mcsrc/pipeline/internal/layout"
)

func TestSanitizeDropsQuotesAndPunctuation(t *testing.T) {
	t.Parallel()
	got := sanitize(`getHealth(); "drop"`)
	if strings.ContainsAny(got, `"();`) {
		t.Fatalf("expected punctuation stripped, got %q", got)
	}
	if strings.Join(strings.Fields(got), " ") != "getHealth drop" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildMatchExprPrefixesEachTerm(t *testing.T) {
	t.Parallel()
	got := buildMatchExpr("get Health", false)
	want := "symbol: (get* Health*)"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	withContent := buildMatchExpr("get", true)
	if withContent != "(symbol: (get*)) OR (context: (get*))" {
		t.Fatalf("got %q", withContent)
	}
}

func TestSearchFindsIndexedMethod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := openTestIndex(t)
	l := seedDecompiledTree(t)

	if _, _, err := ix.IndexVersion(ctx, l, "1.21.10", layout.Yarn, nil); err != nil {
		t.Fatal(err)
	}

	results, err := ix.SearchMethods(ctx, "damage", "1.21.10", layout.Yarn, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result for \"damage\"")
	}
	found := false
	for _, r := range results {
		if r.Name == "damage" && r.Type == EntryMethod {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a method result named damage, got %+v", results)
	}
}

func TestSearchClassesRestrictsType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := openTestIndex(t)
	l := seedDecompiledTree(t)

	if _, _, err := ix.IndexVersion(ctx, l, "1.21.10", layout.Yarn, nil); err != nil {
		t.Fatal(err)
	}

	results, err := ix.SearchClasses(ctx, "Entity", "1.21.10", layout.Yarn, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Type != EntryClass {
			t.Fatalf("expected only class results, got %+v", r)
		}
	}
}

func TestSearchEmptyQueryReturnsNil(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := openTestIndex(t)

	results, err := ix.Search(ctx, `"""`, Options{Version: "1.21.10", Mapping: layout.Yarn})
	if err != nil {
		t.Fatal(err)
	}
	if results != nil {
		t.Fatalf("expected nil results for empty sanitized query, got %+v", results)
	}
}

func TestSearchFTSPathExecutesAndRanks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := openTestIndex(t)
	l := seedDecompiledTree(t)

	if _, _, err := ix.IndexVersion(ctx, l, "1.21.10", layout.Yarn, nil); err != nil {
		t.Fatal(err)
	}

	// Calling searchFTS directly (rather than through Search) catches a
	// malformed query — like the out-of-range snippet() column index this
	// regresses — that Search's fallback to searchLike would otherwise
	// mask.
	results, err := ix.searchFTS(ctx, "damage", Options{Version: "1.21.10", Mapping: layout.Yarn}, 10)
	if err != nil {
		t.Fatalf("FTS query failed (snippet()/bm25() misuse?): %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one FTS result for \"damage\"")
	}
	found := false
	for _, r := range results {
		if r.Name != "damage" {
			continue
		}
		found = true
		if r.Score == 0 {
			t.Fatalf("expected a non-zero bm25 score, got %+v", r)
		}
		if r.Context == "" {
			t.Fatalf("expected a non-empty snippet, got %+v", r)
		}
	}
	if !found {
		t.Fatalf("expected a result named damage, got %+v", results)
	}
}

// TestSearchEmptyVersionSearchesEveryIndexedVersion regresses an always-false
// `version = ''` filter: cmd/mcsrc documents an empty -version flag as
// "searches every indexed version", so Options{} (zero Version) must not
// restrict results to a literal empty-string version that no row has.
func TestSearchEmptyVersionSearchesEveryIndexedVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := openTestIndex(t)
	l := seedDecompiledTree(t)

	if _, _, err := ix.IndexVersion(ctx, l, "1.21.10", layout.Yarn, nil); err != nil {
		t.Fatal(err)
	}

	results, err := ix.Search(ctx, "damage", Options{Mapping: layout.Yarn})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected results across every indexed version when Version is empty")
	}
}

func TestSearchLikeFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ix := openTestIndex(t)
	l := seedDecompiledTree(t)

	if _, _, err := ix.IndexVersion(ctx, l, "1.21.10", layout.Yarn, nil); err != nil {
		t.Fatal(err)
	}

	results, err := ix.searchLike(ctx, "damage", Options{Version: "1.21.10", Mapping: layout.Yarn}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected LIKE fallback to find the damage method")
	}
}
