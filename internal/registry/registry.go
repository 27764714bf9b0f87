// Package registry implements C12: invoking the game's bundled data
// generator against the server JAR to extract registry contents
// (blocks, items, and friends) as JSON.
//
// Grounded on the teacher's exec.CommandContext + parse-output-directory
// idiom (cmd/cctool/inspector.go combined with internal/indexer report
// handling), adapted to the version-dependent invocation shape this
// extractor needs.
package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mcsrc/pipeline/internal/javatool"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/mcmeta"
	"github.com/mcsrc/pipeline/mcerr"
)

const dataGeneratorMainClass = "net.minecraft.data.Main"

// DefaultTimeout is the per-invocation data-generator timeout from
// spec.md §5.
const DefaultTimeout = 5 * time.Minute

// Engine drives the registry extractor.
type Engine struct {
	Layout  *layout.Service
	MCMeta  *mcmeta.Service
	JavaBin string
	Timeout time.Duration // defaults to DefaultTimeout
}

// New builds an Engine.
func New(l *layout.Service, mm *mcmeta.Service, javaBin string) *Engine {
	return &Engine{Layout: l, MCMeta: mm, JavaBin: javaBin, Timeout: DefaultTimeout}
}

// GetRegistryData extracts the full registries.json for version (running
// the data generator once per version, cached thereafter) and, if typ is
// non-empty, returns only entries[typ].
func (e *Engine) GetRegistryData(ctx context.Context, version, typ string) (json.RawMessage, error) {
	outPath := e.Layout.Path(layout.ArtifactKey{Kind: layout.Registry, Version: version})
	if !layout.Exists(outPath) {
		if err := e.extract(ctx, version, outPath); err != nil {
			return nil, err
		}
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		return nil, mcerr.Wrap(mcerr.FSIO, err, "reading cached registry data")
	}
	if typ == "" {
		return json.RawMessage(b), nil
	}

	key := typ
	if !strings.Contains(key, ":") {
		key = "minecraft:" + key
	}
	var doc struct {
		Entries map[string]json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, mcerr.Wrap(mcerr.RegistryExtraction, err, "decoding cached registries.json")
	}
	entry, ok := doc.Entries[key]
	if !ok {
		return nil, mcerr.Newf(mcerr.NotFoundRegistry, "registry type %q not found", key).With("type", key)
	}
	return entry, nil
}

func (e *Engine) extract(ctx context.Context, version, outPath string) error {
	serverJar, err := e.MCMeta.DownloadServer(ctx, version)
	if err != nil {
		return err
	}

	reportDir, err := os.MkdirTemp("", "mcsrc-registry-*")
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating report temp dir")
	}
	defer os.RemoveAll(reportDir)

	major, minor, ok := parseMajorMinor(version)
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	opts := javatool.Options{Timeout: timeout}
	args := []string{"--reports", "--all", "--server", "--output", reportDir}

	var runErr error
	if ok && major == 1 && minor >= 18 {
		opts.ExtraJVMArgs = []string{"-DbundlerMainClass=" + dataGeneratorMainClass}
		_, runErr = javatool.Execute(ctx, e.JavaBin, serverJar, args, opts, nil, nil)
	} else {
		opts.MainClass = dataGeneratorMainClass
		_, runErr = javatool.Execute(ctx, e.JavaBin, serverJar, args, opts, nil, nil)
	}
	if runErr != nil {
		return mcerr.Wrap(mcerr.RegistryExtraction, runErr, "data generator invocation failed").With("version", version)
	}

	found := ""
	for _, candidate := range []string{
		filepath.Join(reportDir, "reports", "registries.json"),
		filepath.Join(reportDir, "generated", "reports", "registries.json"),
	} {
		if layout.Exists(candidate) {
			found = candidate
			break
		}
	}
	if found == "" {
		return mcerr.Newf(mcerr.RegistryExtraction, "registries.json not produced for version %q", version).With("version", version)
	}

	if err := layout.EnsureDir(outPath); err != nil {
		return err
	}
	data, err := os.ReadFile(found)
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "reading generated registries.json")
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), "registries.json.tmp-*")
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return mcerr.Wrap(mcerr.FSIO, err, "writing registry cache")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return mcerr.Wrap(mcerr.FSIO, err, "closing temp file")
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "renaming registry cache into place")
	}
	return nil
}

// parseMajorMinor extracts the first two dot-separated numeric components
// of a version string like "1.18.2"; ok is false for non-numeric/snapshot
// identifiers, in which case callers fall back to the legacy invocation
// shape as the conservative choice.
func parseMajorMinor(version string) (major, minor int, ok bool) {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}
