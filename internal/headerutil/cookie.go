package headerutil

import "strings"

// Cookie is (name, value, attributes); unknown attributes are preserved
// verbatim.
type Cookie struct {
	Name       string
	Value      string
	Attributes map[string]string
}

// Jar is a name -> Cookie mapping parsed from Cookie/Set-Cookie headers.
type Jar struct {
	cookies map[string]Cookie
	order   []string
}

// NewJar builds an empty Jar.
func NewJar() *Jar {
	return &Jar{cookies: map[string]Cookie{}}
}

// Get looks up a cookie by name.
func (j *Jar) Get(name string) (Cookie, bool) {
	c, ok := j.cookies[name]
	return c, ok
}

// Set stores (or replaces) a cookie.
func (j *Jar) Set(c Cookie) {
	if _, exists := j.cookies[c.Name]; !exists {
		j.order = append(j.order, c.Name)
	}
	j.cookies[c.Name] = c
}

// Names returns cookie names in first-seen order.
func (j *Jar) Names() []string { return append([]string(nil), j.order...) }

// ParseCookieHeader parses a request's "Cookie: a=1; b=2" header into a Jar.
// Duplicate names keep the first occurrence.
func ParseCookieHeader(value string) *Jar {
	jar := NewJar()
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if _, exists := jar.cookies[name]; exists {
			continue // first occurrence wins
		}
		jar.Set(Cookie{Name: name, Value: strings.TrimSpace(val), Attributes: map[string]string{}})
	}
	return jar
}

// ParseSetCookie parses a single "Set-Cookie: name=value; Attr=Val; Flag"
// header value into a Cookie, preserving unknown attributes verbatim.
func ParseSetCookie(value string) (Cookie, bool) {
	parts := strings.Split(value, ";")
	if len(parts) == 0 {
		return Cookie{}, false
	}
	name, val, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !found {
		return Cookie{}, false
	}
	c := Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(val), Attributes: map[string]string{}}
	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		key, v, hasVal := strings.Cut(attr, "=")
		key = strings.TrimSpace(key)
		if hasVal {
			c.Attributes[key] = strings.TrimSpace(v)
		} else {
			c.Attributes[key] = ""
		}
	}
	return c, true
}

// WriteSetCookie renders a Cookie back into a Set-Cookie header value.
func WriteSetCookie(c Cookie) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	for k, v := range c.Attributes {
		b.WriteString("; ")
		b.WriteString(k)
		if v != "" {
			b.WriteByte('=')
			b.WriteString(v)
		}
	}
	return b.String()
}
