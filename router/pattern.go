// Package router implements the path-pattern compiler and method+path
// resolver. It is generic over the payload type (T) attached to each route
// so the root wisp package can store its own Route struct (handler,
// middlewares, after-request callback, websocket flag, router
// back-reference) without this package needing to know its shape — the
// matching algorithm is hand-built rather than delegated to net/http's mux,
// so it can report 405-with-Allow and expose ordered, named captures.
package router

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled path pattern: a regular expression with named
// capture groups for `{name}` and `{name:path}` segments.
type Pattern struct {
	Raw    string
	re     *regexp.Regexp
	Params []string
}

// Compile translates a registered pattern into its internal regex form:
// `{name}` segments become `(?P<name>[^/]+)`, a trailing `{name:path}`
// becomes `(?P<name>.+)`, everything else is literal.
func Compile(pattern string) (*Pattern, error) {
	segments := strings.Split(pattern, "/")
	var names []string
	var out strings.Builder
	out.WriteString("^")

	for i, seg := range segments {
		if i > 0 {
			out.WriteString("/")
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			inner := seg[1 : len(seg)-1]
			name, kind, hasKind := strings.Cut(inner, ":")
			if name == "" {
				return nil, fmt.Errorf("router: empty parameter name in %q", pattern)
			}
			for _, n := range names {
				if n == name {
					return nil, fmt.Errorf("router: duplicate parameter name %q in %q", name, pattern)
				}
			}
			names = append(names, name)
			if hasKind && kind == "path" {
				out.WriteString(fmt.Sprintf("(?P<%s>.+)", name))
			} else {
				out.WriteString(fmt.Sprintf("(?P<%s>[^/]+)", name))
			}
			continue
		}
		out.WriteString(regexp.QuoteMeta(seg))
	}
	out.WriteString("$")

	re, err := regexp.Compile(out.String())
	if err != nil {
		return nil, fmt.Errorf("router: invalid pattern %q: %w", pattern, err)
	}
	return &Pattern{Raw: pattern, re: re, Params: names}, nil
}

// Match reports whether path fully matches the pattern, returning named
// captures when it does. The captured value for any `{name}` never
// contains '/'.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	out := make(map[string]string, len(p.Params))
	for i, name := range p.re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		out[name] = m[i]
	}
	return out, true
}
