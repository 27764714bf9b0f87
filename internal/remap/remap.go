// Package remap implements C10: driving the bundled remapper JAR to
// translate a Minecraft (or mod) JAR from one symbol namespace to another.
//
// Grounded on the teacher's exec.CommandContext subprocess idiom
// (cmd/cctool/inspector.go) via internal/javatool, composed with the
// fetch-or-build-then-cache shape used throughout the corpus's indexer
// fetchers.
package remap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mcsrc/pipeline/internal/assets"
	"github.com/mcsrc/pipeline/internal/flight"
	"github.com/mcsrc/pipeline/internal/javatool"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/mappingsvc"
	"github.com/mcsrc/pipeline/internal/mcmeta"
	"github.com/mcsrc/pipeline/mcerr"
)

// DefaultTimeout is the per-invocation remap timeout from spec.md §5.
const DefaultTimeout = 20 * time.Minute

// Engine drives the remapper JAR for both the Minecraft-version pipeline
// and ad hoc mod-JAR remapping.
type Engine struct {
	Layout   *layout.Service
	Assets   *assets.Provisioner
	Mappings *mappingsvc.Service
	MCMeta   *mcmeta.Service
	JavaBin  string        // resolved once at startup via javatool.FindJava
	Timeout  time.Duration // per tiny-remapper invocation; defaults to DefaultTimeout

	flight flight.Keyed[flight.StageKey, string]
}

// New builds an Engine.
func New(l *layout.Service, a *assets.Provisioner, m *mappingsvc.Service, mm *mcmeta.Service, javaBin string) *Engine {
	return &Engine{Layout: l, Assets: a, Mappings: m, MCMeta: mm, JavaBin: javaBin, Timeout: DefaultTimeout}
}

// GetRemappedJar resolves (and if necessary produces) the remapped client
// JAR for (version, mapping), single-flighted by that key per spec.md §5.
func (e *Engine) GetRemappedJar(ctx context.Context, version string, m layout.Mapping) (string, error) {
	key := flight.StageKey{Stage: "remap", Version: version, Mapping: string(m)}
	return e.flight.Do(ctx, key, func() (string, error) {
		outPath := e.Layout.Path(layout.ArtifactKey{Kind: layout.RemappedJar, Version: version, Mapping: m})
		if layout.Exists(outPath) {
			return outPath, nil
		}

		inputJar, err := e.MCMeta.DownloadClient(ctx, version)
		if err != nil {
			return "", err
		}

		if err := layout.EnsureDir(outPath); err != nil {
			return "", err
		}

		if m == layout.Official {
			// official is the as-published obfuscated scheme the client JAR
			// already ships in, per spec.md §4.51; there is nothing to
			// remap, so the "remapped" JAR is just the input JAR in place.
			if err := copyFile(inputJar, outPath); err != nil {
				return "", mcerr.Wrap(mcerr.RemapFailed, err, "staging official jar").With("direction", "official")
			}
			return outPath, nil
		}

		remapperJar, err := e.Assets.Get(ctx, assets.Remapper)
		if err != nil {
			return "", err
		}
		intermediaryTiny, err := e.Mappings.GetMappings(ctx, version, layout.Intermediary)
		if err != nil {
			return "", err
		}

		switch m {
		case layout.Intermediary:
			if err := e.runRemapper(ctx, remapperJar, inputJar, outPath, intermediaryTiny, "official", "intermediary"); err != nil {
				return "", mcerr.Wrap(mcerr.RemapFailed, err, "official->intermediary").With("direction", "official->intermediary")
			}
		case layout.Yarn, layout.Mojmap:
			namedTiny, err := e.Mappings.GetMappings(ctx, version, m)
			if err != nil {
				return "", err
			}
			tmpJar := outPath + ".tmp-pass1.jar"
			defer os.Remove(tmpJar)
			if err := e.runRemapper(ctx, remapperJar, inputJar, tmpJar, intermediaryTiny, "official", "intermediary"); err != nil {
				return "", mcerr.Wrap(mcerr.RemapFailed, err, "official->intermediary").With("direction", "official->intermediary")
			}
			if err := e.runRemapper(ctx, remapperJar, tmpJar, outPath, namedTiny, "intermediary", "named"); err != nil {
				return "", mcerr.Wrap(mcerr.RemapFailed, err, "intermediary->named").With("direction", "intermediary->named")
			}
		default:
			return "", mcerr.Newf(mcerr.RemapFailed, "unsupported mapping scheme %q", m)
		}
		return outPath, nil
	})
}

// RemapModJar remaps a user-supplied mod JAR already in intermediary
// symbols to the requested named scheme, in one pass.
func (e *Engine) RemapModJar(ctx context.Context, inputPath, outputPath, mcVersion string, toMapping layout.Mapping) (string, error) {
	namedTiny, err := e.Mappings.GetMappings(ctx, mcVersion, toMapping)
	if err != nil {
		return "", err
	}
	remapperJar, err := e.Assets.Get(ctx, assets.Remapper)
	if err != nil {
		return "", err
	}
	if err := layout.EnsureDir(outputPath); err != nil {
		return "", err
	}
	if err := e.runRemapper(ctx, remapperJar, inputPath, outputPath, namedTiny, "intermediary", "named"); err != nil {
		return "", mcerr.Wrap(mcerr.RemapFailed, err, "intermediary->named").With("direction", "intermediary->named").With("input", inputPath)
	}
	return outputPath, nil
}

func (e *Engine) runRemapper(ctx context.Context, remapperJar, inputJar, outputJar, tinyPath, fromNS, toNS string) error {
	args := []string{inputJar, outputJar, tinyPath, fromNS, toNS}
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	_, err := javatool.Execute(ctx, e.JavaBin, remapperJar, args, javatool.Options{Timeout: timeout}, nil, nil)
	if err != nil {
		return fmt.Errorf("remap: running tiny-remapper (%s -> %s): %w", fromNS, toNS, err)
	}
	return nil
}

// copyFile copies src to dst, used for the official mapping's "remap" that
// isn't one: the client JAR is already in the scheme that was asked for.
// Written to a temp sibling and renamed into place atomically, the same
// discipline fetch.Download uses, so a kill or full disk mid-copy never
// leaves a truncated file at dst for GetRemappedJar's cache check to adopt.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		tmp.Close()
		if cleanup {
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	cleanup = false
	return nil
}
