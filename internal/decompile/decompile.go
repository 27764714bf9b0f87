// Package decompile implements C11: driving the bundled decompiler JAR
// over a remapped client JAR, tracking job lifecycle in the metadata
// store, and serving individual decompiled class source files.
//
// Grounded on the teacher's job/lifecycle bookkeeping idiom (internal/
// updater/manager.go's run-then-record-outcome pattern) adapted from
// vulnerability-update runs to decompile jobs.
package decompile

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/mcsrc/pipeline/internal/assets"
	"github.com/mcsrc/pipeline/internal/flight"
	"github.com/mcsrc/pipeline/internal/javatool"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/remap"
	"github.com/mcsrc/pipeline/internal/store"
	"github.com/mcsrc/pipeline/mcerr"
)

// DefaultTimeout is the per-invocation decompiler timeout from spec.md §5.
const DefaultTimeout = 30 * time.Minute

// ProgressFunc receives (current, total) class counts as the decompiler
// reports them.
type ProgressFunc func(current, total int)

var progressLine = regexp.MustCompile(`Decompiling class (\d+)/(\d+)`)

// Engine drives the decompiler.
type Engine struct {
	Layout  *layout.Service
	Assets  *assets.Provisioner
	Remap   *remap.Engine
	Store   *store.Store
	JavaBin string
	Timeout time.Duration // defaults to DefaultTimeout

	flight flight.Keyed[flight.StageKey, string]
}

// New builds an Engine.
func New(l *layout.Service, a *assets.Provisioner, re *remap.Engine, st *store.Store, javaBin string) *Engine {
	return &Engine{Layout: l, Assets: a, Remap: re, Store: st, JavaBin: javaBin, Timeout: DefaultTimeout}
}

// DecompileVersion ensures (version, mapping) is fully decompiled,
// returning the root directory of the decompiled source tree.
func (e *Engine) DecompileVersion(ctx context.Context, version string, m layout.Mapping, progress ProgressFunc) (string, error) {
	key := flight.StageKey{Stage: "decompile", Version: version, Mapping: string(m)}
	return e.flight.Do(ctx, key, func() (string, error) {
		outDir := e.Layout.Path(layout.ArtifactKey{Kind: layout.Decompiled, Version: version, Mapping: m})
		if layout.DirExists(outDir) {
			return outDir, nil
		}

		jobID, err := e.Store.CreateJob(version, string(m))
		if err != nil {
			return "", err
		}
		_ = e.Store.UpdateJob(jobID, store.JobRunning, nil, "")

		remappedJar, err := e.Remap.GetRemappedJar(ctx, version, m)
		if err != nil {
			_ = e.Store.UpdateJob(jobID, store.JobFailed, nil, err.Error())
			return "", err
		}
		decompilerJar, err := e.Assets.Get(ctx, assets.Decompiler)
		if err != nil {
			_ = e.Store.UpdateJob(jobID, store.JobFailed, nil, err.Error())
			return "", err
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			_ = e.Store.UpdateJob(jobID, store.JobFailed, nil, err.Error())
			return "", mcerr.Wrap(mcerr.FSIO, err, "creating decompiled output directory")
		}

		sink := func(line string) {
			groups := progressLine.FindStringSubmatch(line)
			if groups == nil {
				return
			}
			cur, errA := strconv.Atoi(groups[1])
			total, errB := strconv.Atoi(groups[2])
			if errA != nil || errB != nil {
				return
			}
			frac := 0.0
			if total > 0 {
				frac = float64(cur) / float64(total)
			}
			_ = e.Store.UpdateJob(jobID, store.JobRunning, &frac, "")
			if progress != nil {
				progress(cur, total)
			}
		}

		timeout := e.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		opts := javatool.Options{Timeout: timeout}
		args := []string{
			"-t", "4", // threads=4
			"--decompile-generics=1",
			"--decompile-preview=1",
			"--literals-as-is=1",
			"--ascii-strings=1",
			"--remove-synthetic=1",
			remappedJar,
			outDir,
		}
		_, err = javatool.Execute(ctx, e.JavaBin, decompilerJar, args, opts, sink, nil)
		if err != nil {
			_ = os.RemoveAll(outDir)
			wrapped := mcerr.Wrap(mcerr.DecompileFailed, err, "decompiler invocation failed").With("version", version).With("mapping", string(m))
			_ = e.Store.UpdateJob(jobID, store.JobFailed, nil, wrapped.Error())
			return "", wrapped
		}

		done := 1.0
		_ = e.Store.UpdateJob(jobID, store.JobCompleted, &done, "")
		return outDir, nil
	})
}

// GetClassSource ensures version is decompiled under mapping, then reads
// the source file for the dotted class name.
func (e *Engine) GetClassSource(ctx context.Context, version, className string, m layout.Mapping) (string, error) {
	if _, err := e.DecompileVersion(ctx, version, m, nil); err != nil {
		return "", err
	}
	path := e.Layout.Path(layout.ArtifactKey{Kind: layout.DecompiledClassFile, Version: version, Mapping: m, ClassName: className})
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", mcerr.Newf(mcerr.NotFoundClass, "class %q not found for version %q", className, version).
				With("class", className).With("version", version)
		}
		return "", mcerr.Wrap(mcerr.FSIO, err, "reading decompiled class source")
	}
	return string(b), nil
}
