// Package httpwire implements the HTTP/1.1 request parser and response
// serializer, operating over the streamed streamio.Reader/Writer pair
// rather than a pre-buffered byte slice.
package httpwire

import (
	"fmt"
	"strings"
	"time"

	"github.com/wisphq/wisp/internal/headerutil"
	"github.com/wisphq/wisp/internal/streamio"
	"github.com/wisphq/wisp/internal/urlutil"
)

// ValidMethods lists the standard request methods. The parser does not
// consult it and accepts any method token; routing (not parsing) is where an
// unrecognized method becomes a 405.
var ValidMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "OPTIONS": true, "CONNECT": true, "TRACE": true,
}

// StatusLine is the parsed first line of a request.
type StatusLine struct {
	Method  string
	Target  string
	Version string
}

// ErrMissingVersion is returned when the status line carries no HTTP
// version; the connection is closed with 400.
var ErrMissingVersion = fmt.Errorf("httpwire: missing HTTP version")

// ParseStatusLine splits "METHOD target HTTP/1.x\r\n" into its parts.
func ParseStatusLine(line string) (StatusLine, error) {
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return StatusLine{}, ErrMissingVersion
	}
	method, target, version := parts[0], parts[1], parts[2]
	if !strings.HasPrefix(version, "HTTP/") {
		return StatusLine{}, ErrMissingVersion
	}
	return StatusLine{Method: method, Target: target, Version: version}, nil
}

// ParsedHead is everything read before the body: status line, URL, headers.
type ParsedHead struct {
	Method  string
	URL     *urlutil.URL
	Version string
	Headers *headerutil.Headers
}

// ReadHead reads the status line and headers (up to the blank line) from r.
// It folds obsolete line-continuations and rejects duplicate Content-Length
// headers carrying distinct values.
func ReadHead(r *streamio.Reader, timeout time.Duration) (*ParsedHead, error) {
	rawLine, err := r.ReadUntil('\n', timeout)
	if err != nil {
		return nil, err
	}
	sl, err := ParseStatusLine(string(rawLine))
	if err != nil {
		return nil, err
	}

	headers := headerutil.New()
	var lastName string
	for {
		rawLine, err := r.ReadUntil('\n', timeout)
		if err != nil {
			return nil, err
		}
		line := strings.TrimSuffix(strings.TrimSuffix(string(rawLine), "\n"), "\r")
		if line == "" {
			break // CRLF CRLF reached
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && lastName != "" {
			// obsolete folded continuation
			existing := headers.Values(lastName)
			if len(existing) > 0 {
				folded := existing[len(existing)-1] + " " + strings.TrimSpace(line)
				headers.Del(lastName)
				for _, v := range existing[:len(existing)-1] {
					headers.Add(lastName, v)
				}
				headers.Add(lastName, folded)
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("httpwire: malformed header line %q", line)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if err := headerutil.ValidateName(name); err != nil {
			return nil, err
		}
		if err := headerutil.ValidateValue(value); err != nil {
			return nil, err
		}
		if strings.EqualFold(name, "Content-Length") {
			if existing := headers.Values("Content-Length"); len(existing) > 0 && existing[0] != value {
				return nil, fmt.Errorf("httpwire: conflicting Content-Length values %q and %q", existing[0], value)
			}
		}
		headers.Add(name, value)
		lastName = name
	}

	host, _ := headers.Get("Host")
	u, err := urlutil.Parse(sl.Target, host)
	if err != nil {
		return nil, err
	}

	return &ParsedHead{Method: sl.Method, URL: u, Version: sl.Version, Headers: headers}, nil
}
