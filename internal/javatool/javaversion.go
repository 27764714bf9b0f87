package javatool

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mcsrc/pipeline/mcerr"
)

// MinJavaMajor is the minimum Java major version the bundled tools require,
// per spec.md §6.4.
const MinJavaMajor = 17

// FindJava locates a java binary on PATH and verifies its version satisfies
// MinJavaMajor, returning {java.version} if not.
func FindJava(ctx context.Context) (string, error) {
	javaBin, err := exec.LookPath("java")
	if err != nil {
		return "", mcerr.Wrap(mcerr.JavaVersion, err, "no java executable found on PATH")
	}
	major, err := javaMajorVersion(ctx, javaBin)
	if err != nil {
		return "", err
	}
	if major < MinJavaMajor {
		return "", mcerr.Newf(mcerr.JavaVersion, "java %d found, need >= %d", major, MinJavaMajor).
			With("found", major).With("required", MinJavaMajor)
	}
	return javaBin, nil
}

// javaMajorVersion runs `java -version` and parses the major version out of
// its stderr banner, handling both the old "1.8.0_xxx" and modern "17.0.x"
// version string spellings.
func javaMajorVersion(ctx context.Context, javaBin string) (int, error) {
	cmd := exec.CommandContext(ctx, javaBin, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, mcerr.Wrap(mcerr.JavaVersion, err, "running java -version")
	}
	ver, ok := parseVersionString(string(out))
	if !ok {
		return 0, mcerr.Newf(mcerr.JavaVersion, "could not parse java -version output: %q", firstLine(string(out)))
	}
	return ver, nil
}

func parseVersionString(output string) (int, bool) {
	idx := strings.Index(output, "version \"")
	if idx < 0 {
		return 0, false
	}
	rest := output[idx+len("version \""):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return 0, false
	}
	ver := rest[:end]
	parts := strings.Split(ver, ".")
	if len(parts) == 0 {
		return 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	// Legacy "1.8.0_x" spelling: the real major version is the second
	// component.
	if major == 1 && len(parts) > 1 {
		if m2, err := strconv.Atoi(parts[1]); err == nil {
			return m2, true
		}
	}
	return major, true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
