// Package wisp is a small, self-contained HTTP/1.1 and WebSocket server
// framework. An Application binds a listening socket, dispatches incoming
// byte streams through a routing table, and returns responses.
package wisp

import (
	"github.com/wisphq/wisp/internal/headerutil"
	"github.com/wisphq/wisp/internal/urlutil"
)

// Headers is a case-insensitive, ordered, duplicate-preserving header
// multi-map.
type Headers = headerutil.Headers

// ContentType is a parsed Content-Type header (media type + parameters).
type ContentType = headerutil.ContentType

// Cookie is (name, value, attributes); CookieJar is a name -> Cookie map.
type Cookie = headerutil.Cookie
type CookieJar = headerutil.Jar

// URL is the parsed form of a request target.
type URL = urlutil.URL

// Query is an ordered multi-map of query-string key/value pairs.
type Query = urlutil.Query
