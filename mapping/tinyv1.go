package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mcsrc/pipeline/mcerr"
)

// ParseTinyV1 reads the legacy Tiny v1 grammar (spec.md §4.6):
//
//	header ::= "v1\t" NS ("\t" NS)+
//	class  ::= "CLASS\t" NAME ("\t" NAME)+
//	field  ::= "FIELD\t" CLASS_NAME "\t" DESC "\t" NAME ("\t" NAME)+
//	method ::= "METHOD\t" CLASS_NAME "\t" DESC "\t" NAME ("\t" NAME)+
//
// Only reading is required by the external contract; v1 is never written
// back out except via WriteTinyV1 below, which is used solely to satisfy
// the mojmap merger's historical v1 input requirement (spec.md §4.8).
func ParseTinyV1(r io.Reader) (*Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, mcerr.New(mcerr.ParseTinyV2, "empty v1 input")
	}
	header := sc.Text()
	fields := strings.Split(header, "\t")
	if len(fields) < 3 || fields[0] != "v1" {
		return nil, mcerr.Newf(mcerr.ParseTinyV2, "bad v1 header: %q", header)
	}
	tree := &Tree{Namespaces: fields[1:]}
	classIdx := make(map[string]int)

	for sc.Scan() {
		raw := sc.Text()
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, "\t")
		switch parts[0] {
		case "CLASS":
			names := parts[1:]
			classIdx[names[0]] = len(tree.Classes)
			tree.Classes = append(tree.Classes, ClassEntry{Names: names})
		case "FIELD":
			idx, ok := classIdx[parts[1]]
			if !ok {
				return nil, mcerr.Newf(mcerr.ParseTinyV2, "FIELD references unknown class %q", parts[1])
			}
			tree.Classes[idx].Fields = append(tree.Classes[idx].Fields, FieldEntry{
				Descriptor: parts[2],
				Names:      parts[3:],
			})
		case "METHOD":
			idx, ok := classIdx[parts[1]]
			if !ok {
				return nil, mcerr.Newf(mcerr.ParseTinyV2, "METHOD references unknown class %q", parts[1])
			}
			tree.Classes[idx].Methods = append(tree.Classes[idx].Methods, MethodEntry{
				Descriptor: parts[2],
				Names:      parts[3:],
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, mcerr.Wrap(mcerr.ParseTinyV2, err, "scanning v1")
	}
	return tree, nil
}

// WriteTinyV1 converts tree to the v1 grammar: nested field/method rows are
// hoisted to the top level with their enclosing class name inserted as
// column 2, and record kind tokens are upper-cased, per the v2->v1
// conversion rule in spec.md §4.6.
func WriteTinyV1(w io.Writer, tree *Tree) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "v1\t%s\n", strings.Join(tree.Namespaces, "\t")); err != nil {
		return err
	}
	for _, c := range tree.Classes {
		if _, err := bw.WriteString("CLASS\t" + strings.Join(c.Names, "\t") + "\n"); err != nil {
			return err
		}
	}
	for _, c := range tree.Classes {
		src := c.Names[0]
		for _, f := range c.Fields {
			if _, err := bw.WriteString("FIELD\t" + src + "\t" + f.Descriptor + "\t" + strings.Join(f.Names, "\t") + "\n"); err != nil {
				return err
			}
		}
		for _, m := range c.Methods {
			if _, err := bw.WriteString("METHOD\t" + src + "\t" + m.Descriptor + "\t" + strings.Join(m.Names, "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
