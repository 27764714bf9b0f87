// Package lookup implements C13: translating a single symbol between two
// namespaces of one Tiny v2 tree, per spec.md §4.13.
package lookup

import (
	"strings"

	"github.com/mcsrc/pipeline/mapping"
)

// Kind identifies what sort of symbol a Result matched.
type Kind string

const (
	KindClass  Kind = "class"
	KindMethod Kind = "method"
	KindField  Kind = "field"
)

// Result is the outcome of a lookup, mirroring the front-end contract
// shape in spec.md §4.13/§6.1.
type Result struct {
	Found     bool
	Kind      Kind
	Source    string
	Target    string
	ClassName string
}

// Find scans tree for symbol in namespace srcNS and returns its value in
// namespace dstNS. Classes are matched by exact name or by a dotted/slashed
// suffix (so callers can pass either "net/minecraft/entity/Entity" or
// "Entity" or "net.minecraft.entity.Entity"); methods and fields are
// matched by exact equality on the source column, per spec.md §4.13 step 4.
func Find(tree *mapping.Tree, symbol, srcNS, dstNS string) Result {
	srcIdx := tree.NamespaceIndex(srcNS)
	dstIdx := tree.NamespaceIndex(dstNS)
	if srcIdx == -1 || dstIdx == -1 {
		return Result{Found: false}
	}
	for ci := range tree.Classes {
		c := &tree.Classes[ci]
		className := c.Name(srcIdx)
		if classMatches(className, symbol) {
			return Result{Found: true, Kind: KindClass, Source: className, Target: c.Name(dstIdx), ClassName: c.Name(dstIdx)}
		}
		for fi := range c.Fields {
			f := &c.Fields[fi]
			if f.Name(srcIdx) == symbol {
				return Result{Found: true, Kind: KindField, Source: f.Name(srcIdx), Target: f.Name(dstIdx), ClassName: c.Name(dstIdx)}
			}
		}
		for mi := range c.Methods {
			m := &c.Methods[mi]
			if m.Name(srcIdx) == symbol {
				return Result{Found: true, Kind: KindMethod, Source: m.Name(srcIdx), Target: m.Name(dstIdx), ClassName: c.Name(dstIdx)}
			}
		}
	}
	return Result{Found: false}
}

// classMatches accepts exact matches plus dotted-or-slashed suffix matches
// in either direction, e.g. candidate "net/minecraft/entity/Entity" matches
// query "Entity", "entity/Entity", or "net.minecraft.entity.Entity".
func classMatches(candidate, query string) bool {
	if candidate == query {
		return true
	}
	if hasSeparatorSuffix(candidate, query) || hasSeparatorSuffix(query, candidate) {
		return true
	}
	nc := strings.ReplaceAll(candidate, ".", "/")
	nq := strings.ReplaceAll(query, ".", "/")
	return nc == nq
}

func hasSeparatorSuffix(full, suffix string) bool {
	return strings.HasSuffix(full, "/"+suffix) || strings.HasSuffix(full, "."+suffix)
}

// Bridge composes two single-tree lookups through a shared namespace, for
// cross-scheme translations that no single tree spans (e.g. yarn.named to
// mojmap.named, both of which only share "intermediary"). first must have
// been resolved into the bridging namespace already.
func Bridge(first, second Result) Result {
	if !first.Found || !second.Found {
		return Result{Found: false}
	}
	return Result{
		Found:     true,
		Kind:      first.Kind,
		Source:    first.Source,
		Target:    second.Target,
		ClassName: second.ClassName,
	}
}
