// Package layout implements C2: a pure function from an ArtifactKey to an
// absolute on-disk path, so every other component shares one place that
// knows the cache's directory scheme.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

// Mapping is a symbol-naming scheme. The zero value is invalid; use the
// named constants.
type Mapping string

const (
	Official     Mapping = "official"
	Intermediary Mapping = "intermediary"
	Yarn         Mapping = "yarn"
	Mojmap       Mapping = "mojmap"
)

// Valid reports whether m is one of the four supported schemes.
func (m Mapping) Valid() bool {
	switch m {
	case Official, Intermediary, Yarn, Mojmap:
		return true
	}
	return false
}

// Kind enumerates the artifact kinds addressable through an ArtifactKey.
type Kind string

const (
	ClientJar           Kind = "clientJar"
	ServerJar           Kind = "serverJar"
	ProguardMap         Kind = "proguardMap"
	YarnMapJar          Kind = "yarnMapJar"
	IntermediaryMapJar  Kind = "intermediaryMapJar"
	TinyFile            Kind = "tinyFile"
	RemappedJar         Kind = "remappedJar"
	Decompiled          Kind = "decompiled"
	Registry            Kind = "registry"
	SearchIndex         Kind = "searchIndex"
	DecompiledClassFile Kind = "decompiledClassFile"
)

// ArtifactKey names one cacheable artifact. Mapping and ClassName are only
// meaningful for some Kinds; see Path.
type ArtifactKey struct {
	Kind      Kind
	Version   string
	Mapping   Mapping
	ClassName string // dotted form, e.g. "net.minecraft.entity.Entity"; only for DecompiledClassFile
}

// Service computes canonical paths rooted at a single cache directory.
type Service struct {
	Root string
}

// New returns a Service rooted at root, creating it if necessary.
func New(root string) (*Service, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("layout: creating cache root: %w", err)
	}
	return &Service{Root: root}, nil
}

// Path computes the absolute path for key. It is a pure function: calling
// it never creates directories or files; use EnsureDir for that.
func (s *Service) Path(key ArtifactKey) string {
	switch key.Kind {
	case ClientJar:
		return filepath.Join(s.Root, "jars", key.Version, "client.jar")
	case ServerJar:
		return filepath.Join(s.Root, "jars", key.Version, "server.jar")
	case ProguardMap:
		return filepath.Join(s.Root, "mappings", key.Version, "mojmap.txt")
	case YarnMapJar:
		return filepath.Join(s.Root, "mappings", key.Version, "yarn.jar")
	case IntermediaryMapJar:
		return filepath.Join(s.Root, "mappings", key.Version, "intermediary.jar")
	case TinyFile:
		return filepath.Join(s.Root, "mappings", key.Version, tinyFileName(key.Mapping))
	case RemappedJar:
		return filepath.Join(s.Root, "remapped", key.Version, string(key.Mapping)+".jar")
	case Decompiled:
		return filepath.Join(s.Root, "decompiled", key.Version, string(key.Mapping))
	case DecompiledClassFile:
		rel := filepath.Join(splitDotted(key.ClassName)...) + ".java"
		return filepath.Join(s.Root, "decompiled", key.Version, string(key.Mapping), rel)
	case Registry:
		return filepath.Join(s.Root, "registry", key.Version, "registries.json")
	case SearchIndex:
		return filepath.Join(s.Root, "search_index.db")
	}
	panic(fmt.Sprintf("layout: unknown kind %q", key.Kind))
}

func tinyFileName(m Mapping) string {
	switch m {
	case Yarn:
		return "yarn.tiny"
	case Intermediary:
		return "intermediary.tiny"
	case Mojmap:
		return "mojmap.tiny"
	default:
		return string(m) + ".tiny"
	}
}

func splitDotted(className string) []string {
	parts := make([]string, 0, 8)
	start := 0
	for i := 0; i < len(className); i++ {
		if className[i] == '.' {
			parts = append(parts, className[start:i])
			start = i + 1
		}
	}
	parts = append(parts, className[start:])
	return parts
}

// MetadataDB returns the canonical path to the small relational store.
func (s *Service) MetadataDB() string { return filepath.Join(s.Root, "cache.db") }

// ResourceJar returns the canonical path for a bundled external tool JAR,
// named with its version baked in so upgrades don't collide.
func (s *Service) ResourceJar(toolName, version string) string {
	return filepath.Join(s.Root, "resources", fmt.Sprintf("%s-%s.jar", toolName, version))
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Exists reports whether path refers to an existing regular file.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// DirExists reports whether path refers to an existing, non-empty directory.
func DirExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return false
	}
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
