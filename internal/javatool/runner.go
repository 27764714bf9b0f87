// Package javatool implements C4: invoking the bundled Java runtime with a
// JAR, argument list, memory caps, and a timeout, per spec.md §4.4.
// Grounded on the corpus's exec.CommandContext + buffered
// stdout/stderr idiom (cmd/cctool/inspector.go).
package javatool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"time"

	"github.com/quay/zlog"

	"github.com/mcsrc/pipeline/internal/pathconv"
	"github.com/mcsrc/pipeline/mcerr"
)

// Options configures one subprocess invocation. The zero value is filled
// in with the defaults from spec.md §4.4 by setDefaults.
type Options struct {
	MaxHeap      string // e.g. "2g"; default "2g"
	InitialHeap  string // e.g. "512m"; default "512m"
	Timeout      time.Duration
	MainClass    string // if set, the jar is placed on the classpath instead of run with -jar
	ExtraJVMArgs []string
	WorkingDir   string
	Translator   pathconv.Translator // zero value performs no translation
}

func (o *Options) setDefaults() {
	if o.MaxHeap == "" {
		o.MaxHeap = "2g"
	}
	if o.InitialHeap == "" {
		o.InitialHeap = "512m"
	}
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Minute
	}
}

// Result carries a completed invocation's output.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OutputSink receives output lines as they are produced, for progress
// parsing (e.g. decompiler progress); may be nil.
type OutputSink func(line string)

// Execute runs `java [jvmargs] -jar jarPath args...` (or, if
// opts.MainClass is set, `java [jvmargs] -cp jarPath mainClass args...`),
// enforcing opts.Timeout by SIGKILL-ing the java process on expiry; child
// processes it started are not signalled.
func Execute(ctx context.Context, javaBin, jarPath string, args []string, opts Options, stdoutSink, stderrSink OutputSink) (Result, error) {
	opts.setDefaults()

	translatedJar := jarPath
	if opts.Translator.NeedsTranslation() {
		t, err := opts.Translator.Translate(jarPath)
		if err != nil {
			return Result{}, mcerr.Wrap(mcerr.ValidationPath, err, "translating jar path")
		}
		translatedJar = t
	}
	translatedArgs, err := opts.Translator.TranslateAll(args)
	if err != nil {
		return Result{}, mcerr.Wrap(mcerr.ValidationPath, err, "translating arguments")
	}

	cmdArgs := []string{
		"-Xms" + opts.InitialHeap,
		"-Xmx" + opts.MaxHeap,
	}
	cmdArgs = append(cmdArgs, opts.ExtraJVMArgs...)
	if opts.MainClass != "" {
		cmdArgs = append(cmdArgs, "-cp", translatedJar, opts.MainClass)
	} else {
		cmdArgs = append(cmdArgs, "-jar", translatedJar)
	}
	cmdArgs = append(cmdArgs, translatedArgs...)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	zlog.Debug(ctx).Str("java", javaBin).Strs("args", cmdArgs).Msg("spawning subprocess")

	cmd := exec.CommandContext(ctx, javaBin, cmdArgs...)
	if opts.WorkingDir != "" {
		cmd.Dir = opts.WorkingDir
	}
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeSink(&stdoutBuf, stdoutSink)
	cmd.Stderr = teeSink(&stderrBuf, stderrSink)

	runErr := cmd.Run()

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, mcerr.New(mcerr.SubprocessTimeout, "java subprocess exceeded timeout").With("timeout", opts.Timeout.String())
	case ctx.Err() != nil:
		// The caller's own context ended (not the per-call timeout set
		// above) while the subprocess was running; cmd.Cancel killed it.
		// Distinct from SubprocessSpawn below, which means the process
		// never started at all.
		return res, mcerr.Wrap(mcerr.SubprocessCanceled, ctx.Err(), "java subprocess canceled")
	case runErr != nil && res.ExitCode < 0:
		return res, mcerr.Wrap(mcerr.SubprocessSpawn, runErr, "failed to start java subprocess")
	case res.ExitCode != 0:
		return res, mcerr.Newf(mcerr.SubprocessNonzero, "java exited %d", res.ExitCode).
			With("exitCode", res.ExitCode).With("stderrTail", tail(res.Stderr, 2000))
	}
	return res, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// sinkWriter fans writes out to an underlying buffer and, line by line, to
// an OutputSink.
type sinkWriter struct {
	buf  *bytes.Buffer
	sink OutputSink
	line bytes.Buffer
}

func teeSink(buf *bytes.Buffer, sink OutputSink) *sinkWriter {
	return &sinkWriter{buf: buf, sink: sink}
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.sink == nil {
		return len(p), nil
	}
	for _, b := range p {
		if b == '\n' {
			w.sink(w.line.String())
			w.line.Reset()
			continue
		}
		w.line.WriteByte(b)
	}
	return len(p), nil
}

// MemorySize formats a gibibyte/mebibyte count into the -Xmx/-Xms flag
// spelling, e.g. MemorySize(2, "g") -> "2g".
func MemorySize(n int, unit string) string {
	return strconv.Itoa(n) + unit
}
