package mapping

import "strings"

// RewriteDescriptor replaces every class reference ("L<name>;") in d with
// classRename[name] where present, leaving everything else (primitives,
// array markers, and class names absent from classRename) unchanged. This
// is used whenever a descriptor is migrated across namespaces, per
// spec.md §4.6.
func RewriteDescriptor(d string, classRename map[string]string) string {
	if len(classRename) == 0 || !strings.ContainsRune(d, 'L') {
		return d
	}
	var b strings.Builder
	b.Grow(len(d))
	for i := 0; i < len(d); i++ {
		c := d[i]
		if c != 'L' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(d[i:], ';')
		if end == -1 {
			// Malformed descriptor; pass the rest through unchanged.
			b.WriteString(d[i:])
			break
		}
		end += i
		name := d[i+1 : end]
		if renamed, ok := classRename[name]; ok {
			name = renamed
		}
		b.WriteByte('L')
		b.WriteString(name)
		b.WriteByte(';')
		i = end
	}
	return b.String()
}

// javaPrimitive maps a ProGuard-style primitive/void type name to its JVM
// descriptor code.
var javaPrimitive = map[string]byte{
	"boolean": 'Z',
	"byte":    'B',
	"char":    'C',
	"short":   'S',
	"int":     'I',
	"long":    'J',
	"float":   'F',
	"double":  'D',
	"void":    'V',
}

// EncodeType converts a ProGuard/Java source type spelling (dotted class
// names, "[]" array suffixes, primitives) into its JVM descriptor
// encoding, per the table in spec.md §4.6.
func EncodeType(t string) string {
	arr := 0
	for strings.HasSuffix(t, "[]") {
		arr++
		t = t[:len(t)-2]
	}
	var core string
	if code, ok := javaPrimitive[t]; ok {
		core = string(code)
	} else {
		core = "L" + strings.ReplaceAll(t, ".", "/") + ";"
	}
	return strings.Repeat("[", arr) + core
}

// EncodeMethodDescriptor builds a full method descriptor "(ptypes)rtype"
// from ProGuard-style source spellings.
func EncodeMethodDescriptor(paramTypes []string, returnType string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range paramTypes {
		b.WriteString(EncodeType(p))
	}
	b.WriteByte(')')
	b.WriteString(EncodeType(returnType))
	return b.String()
}
