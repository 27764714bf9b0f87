package mapping

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/mcsrc/pipeline/mcerr"
)

// ProguardClass is one class block from a ProGuard map: named -> obfuscated.
// All types in Fields/Methods are spelled in the named namespace, per
// spec.md §3.3.
type ProguardClass struct {
	Named, Obfuscated string
	Fields            []ProguardField
	Methods           []ProguardMethod
}

// ProguardField is "type namedField -> obfField".
type ProguardField struct {
	Type              string
	Named, Obfuscated string
}

// ProguardMethod is "(line1:line2:)?returnType namedMethod(paramTypes) -> obfMethod".
// LineFrom/LineTo are 0 when the optional line-range prefix is absent.
type ProguardMethod struct {
	LineFrom, LineTo  int
	ReturnType        string
	Named, Obfuscated string
	ParamTypes        []string
}

// ParseProguard reads a ProGuard mapping file using a hand-written,
// regex-free line classifier (per spec.md §4.6): a top-level "N -> O:"
// line starts a class, an indented line with no '(' before "->" is a
// field, and an indented line with '(' is a method.
func ParseProguard(r io.Reader) ([]ProguardClass, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var classes []ProguardClass
	var cur *ProguardClass
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Text()
		if raw == "" || strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}
		if !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t") {
			named, obf, ok := splitClassLine(raw)
			if !ok {
				return nil, mcerr.Newf(mcerr.ParseProguard, "line %d: malformed class line: %q", line, raw)
			}
			classes = append(classes, ProguardClass{Named: named, Obfuscated: obf})
			cur = &classes[len(classes)-1]
			continue
		}
		if cur == nil {
			return nil, mcerr.Newf(mcerr.ParseProguard, "line %d: member line with no enclosing class", line)
		}
		body := strings.TrimSpace(raw)
		arrow := strings.LastIndex(body, "->")
		if arrow == -1 {
			return nil, mcerr.Newf(mcerr.ParseProguard, "line %d: missing '->': %q", line, raw)
		}
		left := strings.TrimSpace(body[:arrow])
		obf := strings.TrimSpace(body[arrow+2:])
		if paren := strings.IndexByte(left, '('); paren != -1 {
			m, err := parseMethodLeft(left, paren)
			if err != nil {
				return nil, mcerr.Newf(mcerr.ParseProguard, "line %d: %v", line, err)
			}
			m.Obfuscated = obf
			cur.Methods = append(cur.Methods, m)
		} else {
			f, err := parseFieldLeft(left)
			if err != nil {
				return nil, mcerr.Newf(mcerr.ParseProguard, "line %d: %v", line, err)
			}
			f.Obfuscated = obf
			cur.Fields = append(cur.Fields, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, mcerr.Wrap(mcerr.ParseProguard, err, "scanning")
	}
	return classes, nil
}

// splitClassLine parses "named -> obfuscated:" into its two names.
func splitClassLine(raw string) (named, obf string, ok bool) {
	if !strings.HasSuffix(raw, ":") {
		return "", "", false
	}
	body := raw[:len(raw)-1]
	arrow := strings.Index(body, " -> ")
	if arrow == -1 {
		return "", "", false
	}
	return strings.TrimSpace(body[:arrow]), strings.TrimSpace(body[arrow+4:]), true
}

// parseFieldLeft parses "type namedField" (everything left of " -> ").
func parseFieldLeft(left string) (ProguardField, error) {
	sp := strings.LastIndexByte(left, ' ')
	if sp == -1 {
		return ProguardField{}, mcerr.Newf(mcerr.ParseProguard, "malformed field: %q", left)
	}
	return ProguardField{Type: left[:sp], Named: left[sp+1:]}, nil
}

// parseMethodLeft parses "(line1:line2:)?returnType namedMethod(paramTypes)".
// paren is the index of the '(' that opens the parameter list.
func parseMethodLeft(left string, paren int) (ProguardMethod, error) {
	var m ProguardMethod
	rest := left
	if rest[0] >= '0' && rest[0] <= '9' {
		colon1 := strings.IndexByte(rest, ':')
		if colon1 == -1 {
			return m, mcerr.Newf(mcerr.ParseProguard, "malformed line range: %q", left)
		}
		colon2 := strings.IndexByte(rest[colon1+1:], ':')
		if colon2 == -1 {
			return m, mcerr.Newf(mcerr.ParseProguard, "malformed line range: %q", left)
		}
		colon2 += colon1 + 1
		from, err := strconv.Atoi(rest[:colon1])
		if err != nil {
			return m, err
		}
		to, err := strconv.Atoi(rest[colon1+1 : colon2])
		if err != nil {
			return m, err
		}
		m.LineFrom, m.LineTo = from, to
		rest = rest[colon2+1:]
		paren = strings.IndexByte(rest, '(')
	}
	sp := strings.LastIndexByte(rest[:paren], ' ')
	if sp == -1 {
		return m, mcerr.Newf(mcerr.ParseProguard, "malformed method: %q", left)
	}
	m.ReturnType = rest[:sp]
	m.Named = rest[sp+1 : paren]
	if !strings.HasSuffix(rest, ")") {
		return m, mcerr.Newf(mcerr.ParseProguard, "malformed method params: %q", left)
	}
	paramStr := rest[paren+1 : len(rest)-1]
	if paramStr != "" {
		m.ParamTypes = strings.Split(paramStr, ",")
	}
	return m, nil
}
