// Package pipeline implements C16: the coordinator that composes every
// other component into the front-end tool contract from spec.md §6.1.
//
// Grounded on libvuln.Options/libindex.Options' "typed options struct with
// defaulting and validation in New" idiom.
package pipeline

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcsrc/pipeline/internal/decompile"
	"github.com/mcsrc/pipeline/internal/mappingsvc"
	"github.com/mcsrc/pipeline/internal/registry"
	"github.com/mcsrc/pipeline/internal/remap"
)

// Config are the dependencies and options for constructing a Coordinator.
// The zero value is valid; setDefaults fills in every unset field.
type Config struct {
	// CacheRoot is the directory under which every artifact kind from
	// spec.md §4.2 is stored. Defaults to os.UserCacheDir()/mcsrc.
	CacheRoot string
	// JavaBin overrides the java binary resolved from PATH. Leave empty
	// to auto-discover via javatool.FindJava, which also enforces the
	// minimum major version (17) per spec.md §6.4.
	JavaBin string
	// HTTPClient is used for every upstream network contract in
	// spec.md §6.2. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// FetchRateLimit caps outbound requests per second to Mojang, Fabric,
	// and GitHub across every component that shares the coordinator's
	// fetch.Client. Zero leaves requests unthrottled.
	FetchRateLimit rate.Limit
	// FetchRateBurst is the token bucket size paired with FetchRateLimit;
	// zero defaults to 1 once FetchRateLimit is set.
	FetchRateBurst int
	// RemapTimeout, DecompileTimeout, and DataGenTimeout bound their
	// respective subprocess invocations, per spec.md §5. Zero means use
	// the package defaults (20m/30m/5m).
	RemapTimeout     time.Duration
	DecompileTimeout time.Duration
	DataGenTimeout   time.Duration
	// Merger overrides the mapping-merge stage (C7); nil defaults to
	// mappingsvc.InProcessMerger, per the design decision in
	// DESIGN.md to run the merge algorithm in-process.
	Merger mappingsvc.Merger
	// Metrics receives stage-duration and job-outcome observations. nil
	// disables metrics collection.
	Metrics *Metrics
}

func (c *Config) setDefaults() error {
	if c.CacheRoot == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return err
		}
		c.CacheRoot = filepath.Join(dir, "mcsrc")
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.RemapTimeout == 0 {
		c.RemapTimeout = remap.DefaultTimeout
	}
	if c.DecompileTimeout == 0 {
		c.DecompileTimeout = decompile.DefaultTimeout
	}
	if c.DataGenTimeout == 0 {
		c.DataGenTimeout = registry.DefaultTimeout
	}
	if c.FetchRateLimit > 0 && c.FetchRateBurst == 0 {
		c.FetchRateBurst = 1
	}
	return nil
}

// ConfigFromEnv builds a Config from MCSRC_* environment variables, the
// way cmd/cctool assembles a commonConfig from flags before calling into
// the library. It is a convenience constructor only and the one place in
// the pipeline package that reads MCSRC_* variables; New uses the Config
// it is given.
func ConfigFromEnv() Config {
	return Config{
		CacheRoot: os.Getenv("MCSRC_CACHE_ROOT"),
		JavaBin:   os.Getenv("MCSRC_JAVA_BIN"),
	}
}
