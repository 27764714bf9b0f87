// Package merge implements C7: fusing a ProGuard map (named<->obfuscated)
// with an Intermediary Tiny tree (official<->intermediary) into a single
// Tiny v2 file with namespaces [intermediary, named], per the algorithm
// specified in spec.md §4.7.
//
// The spec describes this as the contract an external mapping-merger
// subprocess must honor. This module implements the algorithm in-process
// instead of shelling out, because unlike the decompiler and remapper
// (which wrap substantial external Java tooling with no practical Go
// equivalent) the merge is a pure data transformation well within reach
// of native Go, and keeping it in-process makes the core correctness
// property in spec.md §4.7 directly testable without a JVM.
package merge

import (
	"strings"

	"github.com/mcsrc/pipeline/mapping"
	"github.com/mcsrc/pipeline/mcerr"
)

// Merge fuses proguard and the intermediary tree into a new Tree with
// namespaces [intermediary, named].
func Merge(proguard []mapping.ProguardClass, intermediary *mapping.Tree) (*mapping.Tree, error) {
	if intermediary.NamespaceIndex("official") != 0 {
		return nil, mcerr.New(mcerr.ParseTinyV2, "merge: intermediary tree must have official as namespace 0")
	}
	interIdx := intermediary.NamespaceIndex("intermediary")
	if interIdx == -1 {
		return nil, mcerr.New(mcerr.ParseTinyV2, "merge: intermediary tree missing intermediary namespace")
	}

	pg := indexProguard(proguard)

	clsObfToInter := make(map[string]string, len(intermediary.Classes))
	for _, c := range intermediary.Classes {
		clsObfToInter[c.Name(0)] = c.Name(interIdx)
	}

	out := &mapping.Tree{Namespaces: []string{"intermediary", "named"}}
	for _, c := range intermediary.Classes {
		obfClass := c.Name(0)
		interClass := c.Name(interIdx)
		namedClass, ok := pg.classNamed[obfClass]
		if !ok {
			namedClass = interClass
		}
		oc := mapping.ClassEntry{Names: []string{interClass, namedClass}}

		for _, f := range c.Fields {
			obfName := f.Name(0)
			namedName, ok := pg.field(obfClass, obfName, f.Descriptor)
			if !ok {
				namedName = f.Name(interIdx)
			}
			oc.Fields = append(oc.Fields, mapping.FieldEntry{
				Descriptor: mapping.RewriteDescriptor(f.Descriptor, clsObfToInter),
				Names:      []string{f.Name(interIdx), namedName},
			})
		}
		for _, m := range c.Methods {
			obfName := m.Name(0)
			namedName, ok := pg.method(obfClass, obfName, m.Descriptor)
			if !ok {
				namedName = m.Name(interIdx)
			}
			oc.Methods = append(oc.Methods, mapping.MethodEntry{
				Descriptor: mapping.RewriteDescriptor(m.Descriptor, clsObfToInter),
				Names:      []string{m.Name(interIdx), namedName},
			})
		}
		out.Classes = append(out.Classes, oc)
	}
	return out, nil
}

// proguardIndex holds the lookup tables built from a parsed ProGuard file,
// all keyed on obfuscated (slash-separated) names, per spec.md §4.7 steps
// 1-2.
type proguardIndex struct {
	classNamed    map[string]string // obfClassSlash -> namedClassSlash
	classNamedRev map[string]string // namedClassSlash -> obfClassSlash
	fieldWithDesc map[string]string // obfClass#obfName#obfDesc -> named
	fieldNoDesc   map[string]string // obfClass#obfName -> named
	mtdWithDesc   map[string]string
	mtdNoDesc     map[string]string
}

func indexProguard(classes []mapping.ProguardClass) *proguardIndex {
	idx := &proguardIndex{
		classNamed:    make(map[string]string, len(classes)),
		classNamedRev: make(map[string]string, len(classes)),
		fieldWithDesc: make(map[string]string),
		fieldNoDesc:   make(map[string]string),
		mtdWithDesc:   make(map[string]string),
		mtdNoDesc:     make(map[string]string),
	}
	for _, c := range classes {
		namedSlash := slash(c.Named)
		obfSlash := slash(c.Obfuscated)
		idx.classNamed[obfSlash] = namedSlash
		idx.classNamedRev[namedSlash] = obfSlash
	}
	// Second pass: descriptors reference classes, so the full rename table
	// must be built before computing obfuscated descriptors.
	for _, c := range classes {
		obfSlash := slash(c.Obfuscated)
		for _, f := range c.Fields {
			obfDesc := mapping.RewriteDescriptor(mapping.EncodeType(f.Type), idx.classNamedRev)
			key := obfSlash + "#" + f.Obfuscated
			idx.fieldWithDesc[key+"#"+obfDesc] = f.Named
			idx.fieldNoDesc[key] = f.Named
		}
		for _, m := range c.Methods {
			obfDesc := mapping.RewriteDescriptor(mapping.EncodeMethodDescriptor(m.ParamTypes, m.ReturnType), idx.classNamedRev)
			key := obfSlash + "#" + m.Obfuscated
			idx.mtdWithDesc[key+"#"+obfDesc] = m.Named
			idx.mtdNoDesc[key] = m.Named
		}
	}
	return idx
}

func (p *proguardIndex) field(obfClass, obfName, obfDesc string) (string, bool) {
	key := obfClass + "#" + obfName
	if v, ok := p.fieldWithDesc[key+"#"+obfDesc]; ok {
		return v, true
	}
	v, ok := p.fieldNoDesc[key]
	return v, ok
}

func (p *proguardIndex) method(obfClass, obfName, obfDesc string) (string, bool) {
	key := obfClass + "#" + obfName
	if v, ok := p.mtdWithDesc[key+"#"+obfDesc]; ok {
		return v, true
	}
	v, ok := p.mtdNoDesc[key]
	return v, ok
}

func slash(s string) string { return strings.ReplaceAll(s, ".", "/") }
