// Package mcmeta implements C9: the Mojang version manifest and the client
// /server/mojmap JAR downloader layered on top of it.
//
// Grounded on the corpus's "fetch metadata once, cache in memory, then
// drive per-artifact downloads" idiom (internal/indexer/fetcher), adapted
// from a vulnerability-update feed to the Mojang version manifest.
package mcmeta

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mcsrc/pipeline/internal/fetch"
	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/mcerr"
)

const manifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// VersionEntry is one row of the top-level version manifest.
type VersionEntry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
}

type manifestDoc struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []VersionEntry `json:"versions"`
}

// VersionInfo is the per-version download descriptor, parsed from the
// per-version JSON that VersionEntry.URL points at.
type VersionInfo struct {
	ClientURL      string
	ClientSHA1     string
	ServerURL      string
	ServerSHA1     string
	MappingsURL    string // client_mappings (mojmap ProGuard file); empty for versions predating it
	MappingsSHA1   string
}

type downloadRef struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
}

type versionDoc struct {
	Downloads struct {
		Client         downloadRef `json:"client"`
		Server         downloadRef `json:"server"`
		ClientMappings downloadRef `json:"client_mappings"`
	} `json:"downloads"`
}

// Service resolves Minecraft versions and downloads their artifacts,
// caching the top-level manifest in memory for the process lifetime per
// spec.md §4.9.
type Service struct {
	Fetch  *fetch.Client
	Layout *layout.Service

	mu       sync.Mutex
	manifest *manifestDoc
}

// New builds a Service over the given fetch client and layout.
func New(fc *fetch.Client, l *layout.Service) *Service {
	return &Service{Fetch: fc, Layout: l}
}

// ListVersions returns every version entry in the manifest, fetching and caching the
// manifest on first call.
func (s *Service) ListVersions(ctx context.Context) ([]VersionEntry, error) {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	return m.Versions, nil
}

func (s *Service) loadManifest(ctx context.Context) (*manifestDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest != nil {
		return s.manifest, nil
	}
	b, err := s.Fetch.FetchBytes(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	var m manifestDoc
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, mcerr.Wrap(mcerr.Network, err, "decoding version manifest")
	}
	s.manifest = &m
	return &m, nil
}

func (s *Service) findEntry(ctx context.Context, version string) (VersionEntry, error) {
	m, err := s.loadManifest(ctx)
	if err != nil {
		return VersionEntry{}, err
	}
	for _, v := range m.Versions {
		if v.ID == version {
			return v, nil
		}
	}
	return VersionEntry{}, mcerr.Newf(mcerr.NotFoundVersion, "version %q not found in manifest", version).With("version", version)
}

// GetVersionInfo resolves and parses the per-version metadata document.
func (s *Service) GetVersionInfo(ctx context.Context, version string) (VersionInfo, error) {
	entry, err := s.findEntry(ctx, version)
	if err != nil {
		return VersionInfo{}, err
	}
	b, err := s.Fetch.FetchBytes(ctx, entry.URL)
	if err != nil {
		return VersionInfo{}, err
	}
	var doc versionDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return VersionInfo{}, mcerr.Wrap(mcerr.Network, err, "decoding version metadata").With("version", version)
	}
	return VersionInfo{
		ClientURL:    doc.Downloads.Client.URL,
		ClientSHA1:   doc.Downloads.Client.SHA1,
		ServerURL:    doc.Downloads.Server.URL,
		ServerSHA1:   doc.Downloads.Server.SHA1,
		MappingsURL:  doc.Downloads.ClientMappings.URL,
		MappingsSHA1: doc.Downloads.ClientMappings.SHA1,
	}, nil
}

// DownloadClient ensures the client JAR for version is present at its
// canonical path, returning that path.
func (s *Service) DownloadClient(ctx context.Context, version string) (string, error) {
	return s.downloadArtifact(ctx, version, layout.ClientJar, func(info VersionInfo) (string, string) {
		return info.ClientURL, info.ClientSHA1
	})
}

// DownloadServer ensures the server JAR for version is present.
func (s *Service) DownloadServer(ctx context.Context, version string) (string, error) {
	return s.downloadArtifact(ctx, version, layout.ServerJar, func(info VersionInfo) (string, string) {
		return info.ServerURL, info.ServerSHA1
	})
}

// DownloadMojmap ensures the official client_mappings ProGuard file for
// version is present.
func (s *Service) DownloadMojmap(ctx context.Context, version string) (string, error) {
	return s.downloadArtifact(ctx, version, layout.ProguardMap, func(info VersionInfo) (string, string) {
		return info.MappingsURL, info.MappingsSHA1
	})
}

func (s *Service) downloadArtifact(ctx context.Context, version string, kind layout.Kind, pick func(VersionInfo) (url, sha1 string)) (string, error) {
	path := s.Layout.Path(layout.ArtifactKey{Kind: kind, Version: version})
	if layout.Exists(path) {
		return path, nil
	}
	info, err := s.GetVersionInfo(ctx, version)
	if err != nil {
		return "", err
	}
	url, sha1hex := pick(info)
	if url == "" {
		return "", mcerr.Newf(mcerr.NotFoundVersion, "version %q has no artifact of kind %s", version, kind).With("version", version).With("kind", string(kind))
	}
	var want fetch.Digest
	if sha1hex != "" {
		d, err := fetch.NewDigest(sha1hex)
		if err != nil {
			return "", mcerr.Wrap(mcerr.Integrity, err, "parsing upstream sha1")
		}
		want = d
	}
	if err := s.Fetch.Download(ctx, url, path, want, nil); err != nil {
		return "", err
	}
	return path, nil
}
