package javatool

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mcsrc/pipeline/mcerr"
)

// fakeJavaScript lets the timeout and cancellation tests run without a real
// JVM. Execute always puts JVM flags and `-jar <jar>` in front of the
// caller's args, which /bin/sleep rejects at once, so javaBin points at a
// tiny /bin/sh script standing in for "java" that ignores its arguments and
// execs `sleep 5`.
func fakeJavaScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "java")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteNonzeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell script fixture")
	}
	t.Parallel()
	ctx := context.Background()
	// /bin/false ignores all args and argv[0] naming; stand in for `java`.
	res, err := Execute(ctx, "/bin/false", "unused.jar", nil, Options{Timeout: 5 * time.Second}, nil, nil)
	if err == nil {
		t.Fatal("expected an error for nonzero exit")
	}
	kind, ok := mcerr.KindOf(err)
	if !ok || kind != mcerr.SubprocessNonzero {
		t.Fatalf("expected SubprocessNonzero, got %v (%v)", kind, err)
	}
	if res.ExitCode == 0 {
		t.Fatalf("expected nonzero exit code, got %d", res.ExitCode)
	}
}

func TestExecuteTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell script fixture")
	}
	t.Parallel()
	ctx := context.Background()
	_, err := Execute(ctx, fakeJavaScript(t), "unused.jar", []string{"5"}, Options{Timeout: 50 * time.Millisecond}, nil, nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	kind, ok := mcerr.KindOf(err)
	if !ok || kind != mcerr.SubprocessTimeout {
		t.Fatalf("expected SubprocessTimeout, got %v (%v)", kind, err)
	}
}

// TestExecuteParentCancellation regresses a misclassification: canceling
// the caller's own context (distinct from the per-call Timeout expiring)
// was reported as SubprocessSpawn ("failed to start"), even though the
// process started fine and was killed mid-run.
func TestExecuteParentCancellation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell script fixture")
	}
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := Execute(ctx, fakeJavaScript(t), "unused.jar", []string{"5"}, Options{Timeout: 5 * time.Second}, nil, nil)
	if err == nil {
		t.Fatal("expected an error from parent cancellation")
	}
	kind, ok := mcerr.KindOf(err)
	if !ok || kind != mcerr.SubprocessCanceled {
		t.Fatalf("expected SubprocessCanceled, got %v (%v)", kind, err)
	}
}

func TestExecuteStdoutSink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell script fixture")
	}
	t.Parallel()
	ctx := context.Background()
	var lines []string
	_, err := Execute(ctx, "/bin/echo", "unused.jar", []string{"hello"}, Options{Timeout: 5 * time.Second}, func(l string) {
		lines = append(lines, l)
	}, nil)
	// /bin/echo ignores the -jar flags we prepend; this exercises the sink
	// plumbing rather than a faithful "java" invocation.
	if err != nil {
		if kind, _ := mcerr.KindOf(err); kind != mcerr.SubprocessNonzero {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	if o.MaxHeap != "2g" || o.InitialHeap != "512m" || o.Timeout != 10*time.Minute {
		t.Fatalf("got %+v", o)
	}
}

func TestMemorySize(t *testing.T) {
	if got := MemorySize(2, "g"); got != "2g" {
		t.Fatalf("got %q", got)
	}
}
