package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mcsrc/pipeline/mcerr"
)

const tinyV2Magic = "tiny\t2\t0"

// ParseTinyV2 reads a Tiny v2 mapping file per the grammar in spec.md §4.6:
//
//	header ::= "tiny\t2\t0\t" NS ("\t" NS)+
//	class  ::= "c\t" NS_NAME ("\t" NS_NAME)+
//	field  ::= "\tf\t" DESC "\t" NS_NAME ("\t" NS_NAME)+
//	method ::= "\tm\t" DESC "\t" NS_NAME ("\t" NS_NAME)+
func ParseTinyV2(r io.Reader) (*Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, mcerr.New(mcerr.ParseTinyV2, "empty input")
	}
	header := sc.Text()
	if !strings.HasPrefix(header, tinyV2Magic) {
		return nil, mcerr.Newf(mcerr.ParseTinyV2, "bad header: %q", header)
	}
	fields := strings.Split(header, "\t")
	if len(fields) < 5 {
		return nil, mcerr.Newf(mcerr.ParseTinyV2, "header has too few namespaces: %q", header)
	}
	tree := &Tree{Namespaces: fields[3:]}

	var cur *ClassEntry
	line := 1
	for sc.Scan() {
		line++
		raw := sc.Text()
		if raw == "" {
			continue
		}
		switch {
		case raw[0] == 'c' && (len(raw) == 1 || raw[1] == '\t'):
			parts := strings.Split(raw, "\t")
			tree.Classes = append(tree.Classes, ClassEntry{Names: parts[1:]})
			cur = &tree.Classes[len(tree.Classes)-1]
		case strings.HasPrefix(raw, "\tf\t"):
			if cur == nil {
				return nil, mcerr.Newf(mcerr.ParseTinyV2, "line %d: field with no enclosing class", line)
			}
			parts := strings.Split(raw[1:], "\t")
			cur.Fields = append(cur.Fields, FieldEntry{Descriptor: parts[1], Names: parts[2:]})
		case strings.HasPrefix(raw, "\tm\t"):
			if cur == nil {
				return nil, mcerr.Newf(mcerr.ParseTinyV2, "line %d: method with no enclosing class", line)
			}
			parts := strings.Split(raw[1:], "\t")
			cur.Methods = append(cur.Methods, MethodEntry{Descriptor: parts[1], Names: parts[2:]})
		default:
			// Unknown nested record kind (e.g. parameter/comment rows in
			// real-world Tiny v2 files); skip, preserving forward
			// compatibility the way a hand-written scanner should.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, mcerr.Wrap(mcerr.ParseTinyV2, err, "scanning")
	}
	return tree, nil
}

// WriteTinyV2 serializes tree in canonical form: no optional whitespace, a
// single header line, one "c" line per class followed immediately by its
// nested "f"/"m" lines in declaration order. WriteTinyV2(ParseTinyV2(x))
// reproduces x byte-for-byte for any x already in this canonical form.
func WriteTinyV2(w io.Writer, tree *Tree) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s", tinyV2Magic); err != nil {
		return err
	}
	for _, ns := range tree.Namespaces {
		if _, err := fmt.Fprintf(bw, "\t%s", ns); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	for _, c := range tree.Classes {
		if _, err := bw.WriteString("c\t" + strings.Join(c.Names, "\t") + "\n"); err != nil {
			return err
		}
		for _, f := range c.Fields {
			if _, err := bw.WriteString("\tf\t" + f.Descriptor + "\t" + strings.Join(f.Names, "\t") + "\n"); err != nil {
				return err
			}
		}
		for _, m := range c.Methods {
			if _, err := bw.WriteString("\tm\t" + m.Descriptor + "\t" + strings.Join(m.Names, "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
