// Package mappingsvc implements C8: resolving the canonical mapping file
// (intermediary, yarn, or mojmap tiny) for a Minecraft version, downloading
// and converting upstream artifacts as needed and persisting the result.
//
// Grounded on the corpus's "fetch-or-convert, single-flight by key,
// persist on success" idiom (internal/indexer/fetcher, internal/cache).
package mappingsvc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcsrc/pipeline/internal/fetch"
	"github.com/mcsrc/pipeline/internal/flight"
	"github.com/mcsrc/pipeline/internal/jarzip"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/internal/mcmeta"
	"github.com/mcsrc/pipeline/internal/store"
	"github.com/mcsrc/pipeline/mapping"
	"github.com/mcsrc/pipeline/mapping/merge"
	"github.com/mcsrc/pipeline/mcerr"
)

const intermediaryJarURLFmt = "https://maven.fabricmc.net/net/fabricmc/intermediary/%s/intermediary-%s-v2.jar"

// Merger runs the external (or in-process) mapping-merger stage (C7);
// mappingsvc depends on it only through this seam so the driver can be
// swapped for the real subprocess-backed implementation without touching
// resolution logic.
type Merger interface {
	Merge(proguard []mapping.ProguardClass, intermediary *mapping.Tree) (*mapping.Tree, error)
}

// InProcessMerger implements Merger directly with mapping/merge, per the
// design decision recorded in DESIGN.md to run the merge algorithm
// in-process rather than shelling out, since it is a pure data
// transformation well within Go's reach.
type InProcessMerger struct{}

func (InProcessMerger) Merge(pg []mapping.ProguardClass, inter *mapping.Tree) (*mapping.Tree, error) {
	return merge.Merge(pg, inter)
}

// Service resolves mapping files for (version, mapping) pairs.
type Service struct {
	Fetch  *fetch.Client
	Layout *layout.Service
	Store  *store.Store
	MCMeta *mcmeta.Service
	Merger Merger

	flight flight.Keyed[flight.StageKey, string]
}

// New builds a Service. merger may be nil, defaulting to InProcessMerger.
func New(fc *fetch.Client, l *layout.Service, st *store.Store, mm *mcmeta.Service, merger Merger) *Service {
	if merger == nil {
		merger = InProcessMerger{}
	}
	return &Service{Fetch: fc, Layout: l, Store: st, MCMeta: mm, Merger: merger}
}

// GetMappings resolves the canonical tiny (or ProGuard, for Official —
// not a valid input here) mapping path for (version, mapping), downloading
// and converting it on first use and serving the cached path thereafter.
func (s *Service) GetMappings(ctx context.Context, version string, m layout.Mapping) (string, error) {
	if !m.Valid() || m == layout.Official {
		return "", mcerr.Newf(mcerr.NotFoundMapping, "invalid mapping scheme %q", m)
	}
	key := flight.StageKey{Stage: "mappings", Version: version, Mapping: string(m)}
	return s.flight.Do(ctx, key, func() (string, error) {
		path := s.Layout.Path(layout.ArtifactKey{Kind: layout.TinyFile, Version: version, Mapping: m})
		if layout.Exists(path) {
			return path, nil
		}
		var err error
		switch m {
		case layout.Intermediary:
			err = s.resolveIntermediary(ctx, version, path)
		case layout.Yarn:
			err = s.resolveYarn(ctx, version, path)
		case layout.Mojmap:
			err = s.resolveMojmap(ctx, version, path)
		}
		if err != nil {
			return "", err
		}
		if s.Store != nil {
			_ = s.Store.UpsertMapping(store.MappingRecord{Version: version, Mapping: string(m), FilePath: path})
		}
		return path, nil
	})
}

func (s *Service) resolveIntermediary(ctx context.Context, version, destPath string) error {
	url := fmt.Sprintf(intermediaryJarURLFmt, version, version)
	jarPath := s.Layout.Path(layout.ArtifactKey{Kind: layout.IntermediaryMapJar, Version: version})
	if !layout.Exists(jarPath) {
		if err := s.Fetch.Download(ctx, url, jarPath, fetch.Digest{}, nil); err != nil {
			return fmt.Errorf("mappingsvc: downloading intermediary jar: %w", err)
		}
	}
	return jarzip.ExtractEntry(jarPath, "mappings/mappings.tiny", destPath)
}

func (s *Service) resolveYarn(ctx context.Context, version, destPath string) error {
	builds, err := listAvailableYarnVersions(ctx, s.Fetch, version)
	if err != nil {
		return err
	}
	best := pickHighestBuild(builds)

	jarPath := s.Layout.Path(layout.ArtifactKey{Kind: layout.YarnMapJar, Version: version})
	if !layout.Exists(jarPath) {
		if err := s.Fetch.Download(ctx, yarnJarURL(best), jarPath, fetch.Digest{}, nil); err != nil {
			return fmt.Errorf("mappingsvc: downloading yarn jar: %w", err)
		}
	}
	return jarzip.ExtractEntry(jarPath, "mappings/mappings.tiny", destPath)
}

func (s *Service) resolveMojmap(ctx context.Context, version, destPath string) error {
	proguardPath, err := s.MCMeta.DownloadMojmap(ctx, version)
	if err != nil {
		return err
	}
	interPath, err := s.GetMappings(ctx, version, layout.Intermediary)
	if err != nil {
		return err
	}

	pgFile, err := os.Open(proguardPath)
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "opening proguard map")
	}
	defer pgFile.Close()
	proguard, err := mapping.ParseProguard(pgFile)
	if err != nil {
		return fmt.Errorf("mappingsvc: parsing mojmap proguard file: %w", err)
	}

	interFile, err := os.Open(interPath)
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "opening intermediary tiny")
	}
	defer interFile.Close()
	interTree, err := mapping.ParseTinyV2(interFile)
	if err != nil {
		return fmt.Errorf("mappingsvc: parsing intermediary tiny: %w", err)
	}

	// The external merger historically required Tiny v1 input; round-trip
	// through it even for the in-process merger to exercise the same
	// on-disk contract a subprocess-backed Merger would see.
	var v1Buf bytes.Buffer
	if err := mapping.WriteTinyV1(&v1Buf, interTree); err != nil {
		return fmt.Errorf("mappingsvc: converting intermediary to tiny v1: %w", err)
	}
	v1Tree, err := mapping.ParseTinyV1(&v1Buf)
	if err != nil {
		return fmt.Errorf("mappingsvc: re-parsing tiny v1: %w", err)
	}

	merged, err := s.Merger.Merge(proguard, v1Tree)
	if err != nil {
		return fmt.Errorf("mappingsvc: merging mojmap: %w", err)
	}

	if err := layout.EnsureDir(destPath); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "mojmap.tiny.tmp-*")
	if err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "creating temp file")
	}
	tmpName := tmp.Name()
	if err := mapping.WriteTinyV2(tmp, merged); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("mappingsvc: writing merged tiny: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return mcerr.Wrap(mcerr.FSIO, err, "closing temp file")
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return mcerr.Wrap(mcerr.FSIO, err, "renaming merged tiny into place")
	}
	return nil
}
