package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mcsrc/pipeline/internal/layout"
	"github.com/mcsrc/pipeline/search"
)

func cmdSource(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("source", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme: official, intermediary, yarn, mojmap")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: mcsrc source <version> <className>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	src, err := c.GetMinecraftSource(ctx, fs.Arg(0), fs.Arg(1), layout.Mapping(*mapping))
	if err != nil {
		return err
	}
	fmt.Println(src)
	return nil
}

func cmdDecompile(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("decompile", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme: official, intermediary, yarn, mojmap")
	force := fs.Bool("force", false, "invalidate any existing cache for this (version, mapping) first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mcsrc decompile <version>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.DecompileMinecraftVersion(ctx, fs.Arg(0), layout.Mapping(*mapping), *force)
	if err != nil {
		return err
	}
	fmt.Printf("decompiled %d classes into %s\n", len(res.Classes), res.OutputDir)
	return nil
}

func cmdVersions(ctx context.Context, cfg *commonConfig, args []string) error {
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.ListMinecraftVersions(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d cached, %d available\n", len(res.Cached), res.TotalAvailable)
	for _, v := range res.Cached {
		fmt.Println(" ", v)
	}
	return nil
}

func cmdRegistry(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("registry", flag.ExitOnError)
	typ := fs.String("type", "", "registry type, e.g. block or minecraft:item (empty means the whole document)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mcsrc registry <version>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	data, err := c.GetRegistryData(ctx, fs.Arg(0), *typ)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(json.RawMessage(data))
}

func cmdRemap(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("remap", flag.ExitOnError)
	to := fs.String("to", "yarn", "destination mapping scheme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("usage: mcsrc remap <input.jar> <output.jar> <mcVersion>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := c.RemapModJar(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2), layout.Mapping(*to))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func cmdFindMapping(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("find-mapping", flag.ExitOnError)
	from := fs.String("from", "official", "source mapping scheme")
	to := fs.String("to", "yarn", "destination mapping scheme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: mcsrc find-mapping <symbol> <version>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.FindMapping(ctx, fs.Arg(0), fs.Arg(1), layout.Mapping(*from), layout.Mapping(*to))
	if err != nil {
		return err
	}
	if !res.Found {
		fmt.Println("not found")
		return nil
	}
	fmt.Printf("%s -> %s (%s, class %s)\n", res.Source, res.Target, res.Kind, res.ClassName)
	return nil
}

func cmdSearch(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme")
	searchType := fs.String("type", "all", "class, method, field, content, or all")
	limit := fs.Int("limit", 50, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: mcsrc search <version> <query>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	results, err := c.SearchMinecraftCode(ctx, fs.Arg(0), fs.Arg(1), *searchType, layout.Mapping(*mapping), *limit)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%s\t%s\t%s:%d\n", r.Type, r.Name, r.File, r.Line)
	}
	return nil
}

func cmdIndex(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mcsrc index <version>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	fileCount, dur, err := c.IndexMinecraftVersion(ctx, fs.Arg(0), layout.Mapping(*mapping))
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d files in %s\n", fileCount, dur)
	return nil
}

func cmdSearchIndexed(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("search-indexed", flag.ExitOnError)
	version := fs.String("version", "", "restrict to one version (empty searches every indexed version)")
	mapping := fs.String("mapping", "official", "mapping scheme")
	limit := fs.Int("limit", 50, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mcsrc search-indexed <query>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	results, err := c.SearchIndexed(ctx, fs.Arg(0), *version, layout.Mapping(*mapping), []search.EntryType(nil), *limit)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%.3f\t%s\t%s\t%s:%d\n", r.Score, r.Type, r.Name, r.File, r.Line)
	}
	return nil
}

func cmdCompare(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme")
	category := fs.String("category", "all", "classes, registry, or all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: mcsrc compare <fromVersion> <toVersion>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.CompareVersions(ctx, fs.Arg(0), fs.Arg(1), layout.Mapping(*mapping), *category)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(res)
}

func cmdInvalidate(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("invalidate", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mcsrc invalidate <version>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.InvalidateVersion(ctx, fs.Arg(0), layout.Mapping(*mapping))
}

func cmdStats(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	mapping := fs.String("mapping", "official", "mapping scheme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mcsrc stats <version>")
	}
	c, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.Stats(ctx, fs.Arg(0), layout.Mapping(*mapping))
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(stats)
}
