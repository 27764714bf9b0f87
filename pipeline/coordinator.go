package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/time/rate"

	"github.com/mcsrc/pipeline/internal/assets"
	"github.com/mcsrc/pipeline/internal/decompile"
	"github.com/mcsrc/pipeline/internal/fetch"
	"github.com/mcsrc/pipeline/internal/javatool"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/mappingsvc"
	"github.com/mcsrc/pipeline/internal/mcmeta"
	"github.com/mcsrc/pipeline/internal/registry"
	"github.com/mcsrc/pipeline/internal/remap"
	"github.com/mcsrc/pipeline/internal/store"
	"github.com/mcsrc/pipeline/mapping"
	"github.com/mcsrc/pipeline/mapping/lookup"
	"github.com/mcsrc/pipeline/mcerr"
	"github.com/mcsrc/pipeline/search"
)

// Coordinator composes every component into the front-end tool contract
// from spec.md §6.1, per C16's stated responsibility: look up by key,
// single-flight, track job lifecycle, invoke, persist.
type Coordinator struct {
	Layout    *layout.Service
	Store     *store.Store
	Search    *search.Index
	MCMeta    *mcmeta.Service
	Mappings  *mappingsvc.Service
	Assets    *assets.Provisioner
	Remap     *remap.Engine
	Decompile *decompile.Engine
	Registry  *registry.Engine
	JavaBin   string

	metrics *Metrics
}

// New wires up every component against a single cache root, discovering
// (and version-checking) the Java runtime unless cfg.JavaBin is set.
// Per spec.md §6.4, failure to satisfy the minimum Java version is fatal.
func New(ctx context.Context, cfg Config) (*Coordinator, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, fmt.Errorf("pipeline: defaulting config: %w", err)
	}

	javaBin := cfg.JavaBin
	if javaBin == "" {
		found, err := javatool.FindJava(ctx)
		if err != nil {
			return nil, fmt.Errorf("pipeline: java runtime unavailable: %w", err)
		}
		javaBin = found
	}

	l, err := layout.New(cfg.CacheRoot)
	if err != nil {
		return nil, fmt.Errorf("pipeline: building layout service: %w", err)
	}
	st, err := store.Open(l.MetadataDB())
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening metadata store: %w", err)
	}
	ix, err := search.Open(l.Path(layout.ArtifactKey{Kind: layout.SearchIndex}))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("pipeline: opening search index: %w", err)
	}

	fc := &fetch.Client{HTTP: cfg.HTTPClient}
	if cfg.FetchRateLimit > 0 {
		fc.Limiter = rate.NewLimiter(cfg.FetchRateLimit, cfg.FetchRateBurst)
	}
	mm := mcmeta.New(fc, l)
	ms := mappingsvc.New(fc, l, st, mm, cfg.Merger)
	as := assets.New(l, fc)
	re := remap.New(l, as, ms, mm, javaBin)
	re.Timeout = cfg.RemapTimeout
	de := decompile.New(l, as, re, st, javaBin)
	de.Timeout = cfg.DecompileTimeout
	rg := registry.New(l, mm, javaBin)
	rg.Timeout = cfg.DataGenTimeout

	zlog.Info(ctx).Str("cacheRoot", cfg.CacheRoot).Str("java", javaBin).Msg("pipeline coordinator ready")

	return &Coordinator{
		Layout:    l,
		Store:     st,
		Search:    ix,
		MCMeta:    mm,
		Mappings:  ms,
		Assets:    as,
		Remap:     re,
		Decompile: de,
		Registry:  rg,
		JavaBin:   javaBin,
		metrics:   cfg.Metrics,
	}, nil
}

// Close releases every on-disk handle the Coordinator owns.
func (c *Coordinator) Close() error {
	err1 := c.Store.Close()
	err2 := c.Search.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (c *Coordinator) time(stage string, m layout.Mapping, err *error) func() {
	start := time.Now()
	return func() {
		c.metrics.observe(stage, string(m), time.Since(start).Seconds(), *err)
	}
}

// GetMinecraftSource implements getMinecraftSource(version, className,
// mapping) -> string from spec.md §6.1.
func (c *Coordinator) GetMinecraftSource(ctx context.Context, version, className string, m layout.Mapping) (src string, err error) {
	defer c.time("getMinecraftSource", m, &err)()
	return c.Decompile.GetClassSource(ctx, version, className, m)
}

// DecompileResult is the decompileMinecraftVersion() result shape from
// spec.md §6.1.
type DecompileResult struct {
	OutputDir string
	Classes   []string
}

// DecompileMinecraftVersion implements decompileMinecraftVersion(version,
// mapping, force?) -> {outputDir, classes}. When force is true, any
// existing (version, mapping) artifacts are invalidated first, per the
// force-rebuild Open Question resolution recorded in SPEC_FULL.md.
func (c *Coordinator) DecompileMinecraftVersion(ctx context.Context, version string, m layout.Mapping, force bool) (res DecompileResult, err error) {
	defer c.time("decompileMinecraftVersion", m, &err)()

	if force {
		if err = c.InvalidateVersion(ctx, version, m); err != nil {
			return DecompileResult{}, err
		}
	}
	outDir, err := c.Decompile.DecompileVersion(ctx, version, m, nil)
	if err != nil {
		return DecompileResult{}, err
	}
	classes, walkErr := listDecompiledClasses(outDir)
	if walkErr != nil {
		return DecompileResult{}, mcerr.Wrap(mcerr.FSIO, walkErr, "listing decompiled classes")
	}
	return DecompileResult{OutputDir: outDir, Classes: classes}, nil
}

func listDecompiledClasses(root string) ([]string, error) {
	var classes []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".java") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		classes = append(classes, strings.TrimSuffix(strings.ReplaceAll(rel, string(filepath.Separator), "."), ".java"))
		return nil
	})
	sort.Strings(classes)
	return classes, err
}

// VersionsResult is the listMinecraftVersions() result shape from
// spec.md §6.1.
type VersionsResult struct {
	Cached         []string
	Available      []string
	TotalAvailable int
}

// ListMinecraftVersions implements listMinecraftVersions() ->
// {cached, available, totalAvailable}.
func (c *Coordinator) ListMinecraftVersions(ctx context.Context) (res VersionsResult, err error) {
	defer c.time("listMinecraftVersions", "", &err)()

	cachedRecords, err := c.Store.ListVersions()
	if err != nil {
		return VersionsResult{}, err
	}
	cached := make([]string, len(cachedRecords))
	for i, r := range cachedRecords {
		cached[i] = r.Version
	}

	entries, err := c.MCMeta.ListVersions(ctx)
	if err != nil {
		return VersionsResult{}, err
	}
	available := make([]string, len(entries))
	for i, e := range entries {
		available[i] = e.ID
	}
	return VersionsResult{Cached: cached, Available: available, TotalAvailable: len(available)}, nil
}

// GetRegistryData implements getRegistryData(version, type?) -> Json.
func (c *Coordinator) GetRegistryData(ctx context.Context, version, typ string) (data json.RawMessage, err error) {
	defer c.time("getRegistryData", "", &err)()
	return c.Registry.GetRegistryData(ctx, version, typ)
}

// RemapModJar implements remapModJar(inputPath, outputPath, mcVersion,
// toMapping) -> outputPath.
func (c *Coordinator) RemapModJar(ctx context.Context, inputPath, outputPath, mcVersion string, toMapping layout.Mapping) (out string, err error) {
	defer c.time("remapModJar", toMapping, &err)()
	return c.Remap.RemapModJar(ctx, inputPath, outputPath, mcVersion, toMapping)
}

// schemeTree names which tiny tree a mapping scheme's lookups resolve
// against and the namespace column within it, per the mojmap-namespace
// Open Question resolution in spec.md §9: mojmap lookups go through the
// merged (intermediary, named) tiny, everything else through the yarn
// (official, intermediary, named) tiny.
func schemeTree(m layout.Mapping) (tree layout.Mapping, namespace string) {
	switch m {
	case layout.Official:
		return layout.Yarn, "official"
	case layout.Intermediary:
		return layout.Yarn, "intermediary"
	case layout.Yarn:
		return layout.Yarn, "named"
	case layout.Mojmap:
		return layout.Mojmap, "named"
	default:
		return "", ""
	}
}

func (c *Coordinator) loadTree(ctx context.Context, version string, tree layout.Mapping) (*mapping.Tree, error) {
	path, err := c.Mappings.GetMappings(ctx, version, tree)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "opening mapping tree")
	}
	defer f.Close()
	return mapping.ParseTinyV2(f)
}

// FindMapping implements findMapping(symbol, version, srcMapping,
// dstMapping) -> {found, kind?, source, target?, className?}.
func (c *Coordinator) FindMapping(ctx context.Context, symbol, version string, srcMapping, dstMapping layout.Mapping) (res lookup.Result, err error) {
	defer c.time("findMapping", dstMapping, &err)()

	if srcMapping == dstMapping {
		return lookup.Result{Found: true, Source: symbol, Target: symbol}, nil
	}

	srcTreeKind, srcNS := schemeTree(srcMapping)
	dstTreeKind, dstNS := schemeTree(dstMapping)
	if srcTreeKind == "" || dstTreeKind == "" {
		return lookup.Result{}, mcerr.Newf(mcerr.NotFoundMapping, "unsupported mapping scheme pair (%s, %s)", srcMapping, dstMapping)
	}

	if srcTreeKind == dstTreeKind {
		tree, err := c.loadTree(ctx, version, srcTreeKind)
		if err != nil {
			return lookup.Result{}, err
		}
		return lookup.Find(tree, symbol, srcNS, dstNS), nil
	}

	// Crossing between the yarn tree and the merged mojmap tree requires a
	// two-step bridge through their shared "intermediary" namespace.
	srcTree, err := c.loadTree(ctx, version, srcTreeKind)
	if err != nil {
		return lookup.Result{}, err
	}
	first := lookup.Find(srcTree, symbol, srcNS, "intermediary")
	if !first.Found {
		return lookup.Result{Found: false}, nil
	}
	dstTree, err := c.loadTree(ctx, version, dstTreeKind)
	if err != nil {
		return lookup.Result{}, err
	}
	second := lookup.Find(dstTree, first.Target, "intermediary", dstNS)
	return lookup.Bridge(first, second), nil
}

// CodeSearchResult is one hit from SearchMinecraftCode.
type CodeSearchResult struct {
	Type    search.EntryType
	Name    string
	File    string
	Line    int
	Context string
}

// SearchMinecraftCode implements searchMinecraftCode(version, query,
// searchType, mapping, limit?): an ad hoc walk over the already-decompiled
// source tree, as distinct from the persisted FTS index behind
// IndexMinecraftVersion/SearchIndexed.
func (c *Coordinator) SearchMinecraftCode(ctx context.Context, version, query, searchType string, m layout.Mapping, limit int) (results []CodeSearchResult, err error) {
	defer c.time("searchMinecraftCode", m, &err)()

	root := c.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: version, Mapping: m})
	if !layout.DirExists(root) {
		return nil, mcerr.Newf(mcerr.IndexNotIndexed, "no decompiled tree for %s/%s", version, m).
			With("version", version).With("mapping", string(m))
	}
	if limit <= 0 {
		limit = 50
	}

	needle := strings.ToLower(query)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if len(results) >= limit {
			return fs.SkipAll
		}
		if d.IsDir() || !strings.HasSuffix(path, ".java") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		className := strings.TrimSuffix(strings.ReplaceAll(rel, string(filepath.Separator), "."), ".java")
		entries, scanErr := search.ScanFile(path, className)
		if scanErr != nil {
			return scanErr
		}
		for _, e := range entries {
			if len(results) >= limit {
				return fs.SkipAll
			}
			if !matchesSearchType(e.Type, searchType) {
				continue
			}
			haystack := strings.ToLower(e.Symbol)
			if searchType == "content" || searchType == "all" {
				haystack += " " + strings.ToLower(e.Context)
			}
			if !strings.Contains(haystack, needle) {
				continue
			}
			results = append(results, CodeSearchResult{Type: e.Type, Name: e.Symbol, File: rel, Line: e.Line, Context: e.Context})
		}
		return nil
	})
	if walkErr != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, walkErr, "walking decompiled tree")
	}
	return results, nil
}

func matchesSearchType(t search.EntryType, searchType string) bool {
	switch searchType {
	case "", "all", "content":
		return true
	case "class":
		return t == search.EntryClass
	case "method":
		return t == search.EntryMethod
	case "field":
		return t == search.EntryField
	default:
		return false
	}
}

// CompareResult is the compareVersions() result shape from spec.md §6.1.
type CompareResult struct {
	AddedClasses    []string
	RemovedClasses  []string
	AddedRegistry   []string `json:",omitempty"`
	RemovedRegistry []string `json:",omitempty"`
}

// CompareVersions implements compareVersions(fromVersion, toVersion,
// mapping, category): a diff of decompiled file sets and/or registry-entry
// sets between two already-decompiled versions.
func (c *Coordinator) CompareVersions(ctx context.Context, fromVersion, toVersion string, m layout.Mapping, category string) (res CompareResult, err error) {
	defer c.time("compareVersions", m, &err)()

	if category == "" {
		category = "all"
	}
	if category == "classes" || category == "all" {
		fromClasses, toClasses, classErr := c.loadClassSets(fromVersion, toVersion, m)
		if classErr != nil {
			return CompareResult{}, classErr
		}
		res.AddedClasses = setDiff(toClasses, fromClasses)
		res.RemovedClasses = setDiff(fromClasses, toClasses)
	}
	if category == "registry" || category == "all" {
		fromKeys, toKeys, regErr := c.loadRegistryKeySets(ctx, fromVersion, toVersion)
		if regErr != nil {
			return CompareResult{}, regErr
		}
		res.AddedRegistry = setDiff(toKeys, fromKeys)
		res.RemovedRegistry = setDiff(fromKeys, toKeys)
	}
	return res, nil
}

func (c *Coordinator) loadClassSets(fromVersion, toVersion string, m layout.Mapping) (from, to []string, err error) {
	fromRoot := c.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: fromVersion, Mapping: m})
	toRoot := c.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: toVersion, Mapping: m})
	if !layout.DirExists(fromRoot) || !layout.DirExists(toRoot) {
		return nil, nil, mcerr.Newf(mcerr.IndexNotIndexed, "both versions must already be decompiled under mapping %q to compare", m)
	}
	from, err = listDecompiledClasses(fromRoot)
	if err != nil {
		return nil, nil, mcerr.Wrap(mcerr.FSIO, err, "listing source classes")
	}
	to, err = listDecompiledClasses(toRoot)
	if err != nil {
		return nil, nil, mcerr.Wrap(mcerr.FSIO, err, "listing target classes")
	}
	return from, to, nil
}

func (c *Coordinator) loadRegistryKeySets(ctx context.Context, fromVersion, toVersion string) (from, to []string, err error) {
	fromData, err := c.Registry.GetRegistryData(ctx, fromVersion, "")
	if err != nil {
		return nil, nil, err
	}
	toData, err := c.Registry.GetRegistryData(ctx, toVersion, "")
	if err != nil {
		return nil, nil, err
	}
	from, err = registryKeys(fromData)
	if err != nil {
		return nil, nil, err
	}
	to, err = registryKeys(toData)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func registryKeys(data json.RawMessage) ([]string, error) {
	var doc struct {
		Entries map[string]json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, mcerr.Wrap(mcerr.RegistryExtraction, err, "decoding registries.json for comparison")
	}
	keys := make([]string, 0, len(doc.Entries))
	for k := range doc.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// setDiff returns the elements of a (sorted) not present in b (sorted).
func setDiff(a, b []string) []string {
	bSet := make(map[string]struct{}, len(b))
	for _, v := range b {
		bSet[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := bSet[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// IndexMinecraftVersion implements indexMinecraftVersion(version, mapping)
// -> {fileCount, duration}, building the persisted FTS index (C14).
func (c *Coordinator) IndexMinecraftVersion(ctx context.Context, version string, m layout.Mapping) (fileCount int, duration time.Duration, err error) {
	defer c.time("indexMinecraftVersion", m, &err)()
	return c.Search.IndexVersion(ctx, c.Layout, version, m, nil)
}

// SearchIndexed implements searchIndexed(query, version, mapping, types?,
// limit?) -> ranked results, against the persisted FTS index (C15).
func (c *Coordinator) SearchIndexed(ctx context.Context, query, version string, m layout.Mapping, types []search.EntryType, limit int) (results []search.Result, err error) {
	defer c.time("searchIndexed", m, &err)()
	return c.Search.Search(ctx, query, search.Options{Version: version, Mapping: m, Types: types, Limit: limit})
}

// Stats is a read-only rollup of everything cached for (version, mapping),
// supplemented per SPEC_FULL.md to give an inspection point that performs
// no I/O beyond what's already on disk.
type Stats struct {
	VersionCached bool
	Mapping       *store.MappingRecord
	Job           *store.JobRecord
	Index         search.Stats
}

// Stats implements pipeline.Coordinator.Stats(version, mapping) from
// SPEC_FULL.md's supplemented features.
func (c *Coordinator) Stats(ctx context.Context, version string, m layout.Mapping) (Stats, error) {
	versionRecord, err := c.Store.GetVersion(version)
	if err != nil {
		return Stats{}, err
	}
	mappingRecord, err := c.Store.GetMapping(version, string(m))
	if err != nil {
		return Stats{}, err
	}
	job, err := c.Store.GetJob(version, string(m))
	if err != nil {
		return Stats{}, err
	}
	indexStats, err := c.Search.GetStats(ctx, version, m)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		VersionCached: versionRecord != nil,
		Mapping:       mappingRecord,
		Job:           job,
		Index:         indexStats,
	}, nil
}

// InvalidateVersion deletes the decompiled tree, the remapped jar, the
// search index rows and the job record for (version, mapping), per the
// force-rebuild Open Question resolution in spec.md §9: a housekeeping
// operation the original tool's cache layer performed implicitly on
// corruption, supplemented here as an explicit operation used by
// force=true and available for test/ops use. The mapping record, the
// mapping file and the client jar are left in place.
func (c *Coordinator) InvalidateVersion(ctx context.Context, version string, m layout.Mapping) error {
	decompiledDir := c.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: version, Mapping: m})
	if err := os.RemoveAll(decompiledDir); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "removing decompiled tree")
	}
	remappedJar := c.Layout.Path(layout.ArtifactKey{Kind: layout.RemappedJar, Version: version, Mapping: m})
	if err := os.Remove(remappedJar); err != nil && !os.IsNotExist(err) {
		return mcerr.Wrap(mcerr.FSIO, err, "removing remapped jar")
	}
	if err := c.Search.ClearIndex(ctx, version, m); err != nil {
		return err
	}
	if err := c.Store.DeleteJob(version, string(m)); err != nil {
		return err
	}
	return nil
}
