// Package mapping implements C6: the Tiny v2 / Tiny v1 / ProGuard mapping
// format codecs and the shared MappingTree data model described in
// spec.md §3.2 and §4.6. Parsers are hand-written line scanners, per the
// teacher's "pattern-matching parsers" design note, grounded on
// internal/rpm's line-oriented parsing style.
package mapping

import "fmt"

// Scheme names one of the four supported naming schemes. It mirrors
// layout.Mapping but lives in this package too so mapping/ has no
// dependency on internal/ (mapping is meant to be usable standalone).
type Scheme string

const (
	Official     Scheme = "official"
	Intermediary Scheme = "intermediary"
	Yarn         Scheme = "yarn"
	Mojmap       Scheme = "mojmap"
	Named        Scheme = "named"
)

// Tree is an in-memory Tiny-format mapping tree: an ordered list of
// namespaces (first is the source namespace that descriptors are encoded
// in) plus the class/field/method entries that carry one name per
// namespace.
type Tree struct {
	Namespaces []string
	Classes    []ClassEntry
}

// NamespaceIndex returns the column index of ns, or -1 if absent.
func (t *Tree) NamespaceIndex(ns string) int {
	for i, n := range t.Namespaces {
		if n == ns {
			return i
		}
	}
	return -1
}

// ClassEntry is one class mapping plus its member mappings.
type ClassEntry struct {
	Names   []string
	Fields  []FieldEntry
	Methods []MethodEntry
}

// Name returns the class's name in namespace column i, falling back to
// column 0 ("source") when column i is empty, per the Tiny v2 inheritance
// rule in spec.md §3.2.
func (c *ClassEntry) Name(i int) string {
	return inherit(c.Names, i)
}

// FieldEntry is one field mapping. Descriptor is always expressed in the
// tree's source namespace (column 0).
type FieldEntry struct {
	Names      []string
	Descriptor string
}

func (f *FieldEntry) Name(i int) string { return inherit(f.Names, i) }

// MethodEntry is one method mapping. Descriptor is a JVM method signature,
// always expressed in the tree's source namespace.
type MethodEntry struct {
	Names      []string
	Descriptor string
}

func (m *MethodEntry) Name(i int) string { return inherit(m.Names, i) }

func inherit(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return ""
	}
	if i == 0 || names[i] != "" {
		return names[i]
	}
	return names[0]
}

// Validate checks the invariants from spec.md §3.2: names[0] non-empty for
// every entry, and at least two namespaces.
func (t *Tree) Validate() error {
	if len(t.Namespaces) < 2 {
		return fmt.Errorf("mapping: tree needs at least 2 namespaces, got %d", len(t.Namespaces))
	}
	for ci, c := range t.Classes {
		if len(c.Names) == 0 || c.Names[0] == "" {
			return fmt.Errorf("mapping: class %d has empty source name", ci)
		}
		for fi, f := range c.Fields {
			if len(f.Names) == 0 || f.Names[0] == "" {
				return fmt.Errorf("mapping: class %d field %d has empty source name", ci, fi)
			}
		}
		for mi, m := range c.Methods {
			if len(m.Names) == 0 || m.Names[0] == "" {
				return fmt.Errorf("mapping: class %d method %d has empty source name", ci, mi)
			}
		}
	}
	return nil
}

// FindClass returns a pointer to the class entry whose name in namespace
// column nsIndex equals name, or nil.
func (t *Tree) FindClass(nsIndex int, name string) *ClassEntry {
	for i := range t.Classes {
		if t.Classes[i].Name(nsIndex) == name {
			return &t.Classes[i]
		}
	}
	return nil
}
