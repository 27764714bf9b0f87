// Command mcsrc drives the decompilation pipeline from the command line:
// fetch, remap, decompile, index, and search Minecraft versions against a
// local on-disk cache, per spec.md §6.1's front-end contract.
//
// Grounded on cmd/cctool's subcommand-dispatch shape (commonConfig,
// subcmd, flag.NewFlagSet per subcommand, signal-driven cancellation) and
// cmd/libindexhttp's zerolog.ConsoleWriter + zlog.Set ambient logging
// setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/quay/zlog"
	"github.com/rs/zerolog"

	"github.com/mcsrc/pipeline"
)

type commonConfig struct {
	CacheRoot string
	JavaBin   string
}

type subcmd func(context.Context, *commonConfig, []string) error

var subcommands = map[string]subcmd{
	"source":         cmdSource,
	"decompile":      cmdDecompile,
	"versions":       cmdVersions,
	"registry":       cmdRegistry,
	"remap":          cmdRemap,
	"find-mapping":   cmdFindMapping,
	"search":         cmdSearch,
	"index":          cmdIndex,
	"search-indexed": cmdSearchIndexed,
	"compare":        cmdCompare,
	"invalidate":     cmdInvalidate,
	"stats":          cmdStats,
}

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		With().Timestamp().Logger()
	zlog.Set(&log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		cancel()
	}()
	defer cancel()

	var cfg commonConfig
	fs := flag.NewFlagSet("mcsrc", flag.ExitOnError)
	fs.StringVar(&cfg.CacheRoot, "cache", "", "cache root directory (defaults to the OS user cache dir)")
	fs.StringVar(&cfg.JavaBin, "java", "", "path to a java executable (defaults to $PATH discovery)")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSubcommands\n\n")
		names := make([]string, 0, len(subcommands))
		for n := range subcommands {
			names = append(names, n)
		}
		fmt.Fprintln(out, strings.Join(names, ", "))
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("parsing flags")
	}

	name := fs.Arg(0)
	cmd, ok := subcommands[name]
	if !ok {
		fs.Usage()
		if name != "" {
			fmt.Fprintf(os.Stderr, "\nunknown subcommand %q\n", name)
		}
		exit = 99
		return
	}

	if err := cmd(ctx, &cfg, fs.Args()[1:]); err != nil {
		log.Error().Err(err).Str("subcommand", name).Msg("command failed")
		exit = 1
	}
}

// newCoordinator is shared by every subcommand so cache root / java bin
// flags apply uniformly.
func newCoordinator(ctx context.Context, cfg *commonConfig) (*pipeline.Coordinator, error) {
	pcfg := pipeline.Config{CacheRoot: cfg.CacheRoot, JavaBin: cfg.JavaBin}
	return pipeline.New(ctx, pcfg)
}
