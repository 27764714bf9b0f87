package mappingsvc

import (
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mcsrc/pipeline/internal/fetch"
	"github.com/mcsrc/pipeline/mcerr"
)

const (
	yarnMetadataURL = "https://maven.fabricmc.net/net/fabricmc/yarn/maven-metadata.xml"
	yarnJarURLFmt   = "https://maven.fabricmc.net/net/fabricmc/yarn/%s/yarn-%s-v2.jar"
)

// mavenMetadata mirrors the subset of a Maven maven-metadata.xml this
// service needs: the list of published <version> strings.
type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	Versioning struct {
		Versions struct {
			Version []string `xml:"version"`
		} `xml:"versions"`
	} `xml:"versioning"`
}

// yarnBuild is a parsed `<mcVersion>+build.<N>` coordinate.
type yarnBuild struct {
	raw       string
	mcVersion string
	build     int
}

// listAvailableYarnVersions fetches the yarn Maven metadata and returns
// every published build coordinate for mcVersion, per spec.md §4.8.
func listAvailableYarnVersions(ctx context.Context, fc *fetch.Client, mcVersion string) ([]yarnBuild, error) {
	b, err := fc.FetchBytes(ctx, yarnMetadataURL)
	if err != nil {
		return nil, err
	}
	var md mavenMetadata
	if err := xml.Unmarshal(b, &md); err != nil {
		return nil, mcerr.Wrap(mcerr.ParseTinyV2, err, "parsing yarn maven-metadata.xml")
	}

	prefix := mcVersion + "+build."
	var out []yarnBuild
	for _, v := range md.Versioning.Versions.Version {
		if !strings.HasPrefix(v, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(v, prefix))
		if err != nil {
			continue
		}
		out = append(out, yarnBuild{raw: v, mcVersion: mcVersion, build: n})
	}
	if len(out) == 0 {
		return nil, mcerr.Newf(mcerr.NotFoundMapping, "no yarn build published for %q", mcVersion).With("version", mcVersion)
	}
	return out, nil
}

// pickHighestBuild selects the highest build number, tie-breaking on the
// higher raw coordinate lexicographically per spec.md §4.8.
func pickHighestBuild(builds []yarnBuild) yarnBuild {
	sort.Slice(builds, func(i, j int) bool {
		if builds[i].build != builds[j].build {
			return builds[i].build > builds[j].build
		}
		return builds[i].raw > builds[j].raw
	})
	return builds[0]
}

func yarnJarURL(build yarnBuild) string {
	return fmt.Sprintf(yarnJarURLFmt, build.raw, build.raw)
}
