package weave

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	xslices "github.com/frantjc/x/slice"
)

// ResolvedLocation is the concrete outcome of matching one request
// path: a URL to proxy to when URL is non-nil, a file path to serve
// otherwise.
type ResolvedLocation struct {
	URL  *url.URL
	File string
}

func (r *ResolvedLocation) String() string {
	if r.URL != nil {
		return r.URL.String()
	}

	return r.File
}

// Matcher resolves request paths against the routes bound to a single
// listen address. It is read-only after construction and safe for
// concurrent use.
type Matcher struct {
	routes   []*Route
	elements [][]string
}

// NewMatcher indexes the given routes for matching by path prefix,
// preserving their declaration order.
func NewMatcher(routes []*Route) *Matcher {
	m := &Matcher{routes: routes}

	for _, route := range routes {
		m.elements = append(m.elements, getElements(route.Src.PathPrefix))
	}

	return m
}

// Resolve finds the route whose path prefix is the longest
// segment-boundary prefix of the request path, ties going to the route
// declared first, and returns the destination it resolves to: the
// route's base URL with the unmatched remainder of the path appended
// and the request's query preserved, or the route's filesystem root
// joined with the remainder. Returns nil when no route matches.
func (m *Matcher) Resolve(u *url.URL) *ResolvedLocation {
	var (
		elements  = getElements(u.Path)
		matched   = -1
		strongest = 0
	)
	for i, prefix := range m.elements {
		if weight := matches(prefix, elements); weight > strongest {
			strongest = weight
			matched = i
		}
	}

	if matched < 0 {
		return nil
	}

	var (
		route     = m.routes[matched]
		remainder = strings.Join(elements[len(m.elements[matched]):], "/")
	)
	if dest := route.Dest.URL; dest != nil {
		target := dest.JoinPath(remainder)
		target.RawQuery = u.RawQuery
		return &ResolvedLocation{URL: target}
	}

	// Root the remainder before joining so that ".." segments cannot
	// escape the destination's base path.
	return &ResolvedLocation{
		File: filepath.Join(route.Dest.Path, filepath.FromSlash(path.Clean("/"+remainder))),
	}
}

// matches returns a weight representing how strong of a match prefix
// is to the request path's elements, or 0 for no match.
func matches(prefix, elements []string) int {
	if len(elements) < len(prefix) {
		return 0
	}

	for i, element := range prefix {
		if element != elements[i] {
			return 0
		}
	}

	return len(prefix) + 1
}

func getElements(requestPath string) []string {
	return xslices.Filter(strings.Split(requestPath, "/"), func(element string, _ int) bool {
		return element != ""
	})
}
