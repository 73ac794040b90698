package server

import (
	"net/http"
	"sort"
	"strings"
)

// InitConfig is handed to filters and servlets before the server starts.
type InitConfig struct {
	Name   string
	Params map[string]string
}

// Param returns the init parameter key, or "" when unset.
func (c InitConfig) Param(key string) string {
	return c.Params[key]
}

// Filter intercepts requests before they reach a servlet.
type Filter interface {
	// Init is called once with the merged init parameters.
	Init(cfg InitConfig) error

	// Wrap returns a handler that runs the filter in front of next.
	Wrap(next http.Handler) http.Handler
}

// FilterFunc adapts plain middleware to the Filter interface.
type FilterFunc func(next http.Handler) http.Handler

// Init does nothing.
func (f FilterFunc) Init(InitConfig) error { return nil }

// Wrap calls f.
func (f FilterFunc) Wrap(next http.Handler) http.Handler { return f(next) }

// Initializer is implemented by servlets that want their init parameters.
type Initializer interface {
	Init(cfg InitConfig) error
}

// MappedServlet binds a handler to servlet-style URL patterns.
type MappedServlet struct {
	Name        string
	URLPatterns []string
	Handler     http.Handler
	Params      map[string]string
}

// MappedFilter binds a filter to URL patterns. Lower Order runs first.
type MappedFilter struct {
	Name        string
	URLPatterns []string
	Order       int
	Filter      Filter
	Params      map[string]string
}

// mergeParams overlays configured params on top of declared ones.
func mergeParams(declared, configured map[string]string) map[string]string {
	out := make(map[string]string, len(declared)+len(configured))
	for k, v := range declared {
		out[k] = v
	}
	for k, v := range configured {
		out[k] = v
	}
	return out
}

// urlPattern is a parsed servlet-style mapping:
// exact ("/a/b"), path prefix ("/a/*", "/*"), extension ("*.jsp") or default ("/").
type urlPattern struct {
	raw    string
	kind   patternKind
	prefix string
	ext    string
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternExtension
	patternDefault
)

func parsePattern(p string) urlPattern {
	switch {
	case p == "/" || p == "":
		return urlPattern{raw: p, kind: patternDefault}
	case strings.HasPrefix(p, "*."):
		return urlPattern{raw: p, kind: patternExtension, ext: p[1:]}
	case strings.HasSuffix(p, "/*"):
		return urlPattern{raw: p, kind: patternPrefix, prefix: strings.TrimSuffix(p, "/*")}
	default:
		return urlPattern{raw: p, kind: patternExact}
	}
}

func (u urlPattern) matches(path string) bool {
	switch u.kind {
	case patternExact:
		return path == u.raw
	case patternPrefix:
		return u.prefix == "" || path == u.prefix || strings.HasPrefix(path, u.prefix+"/")
	case patternExtension:
		return strings.HasSuffix(path, u.ext)
	default:
		return true
	}
}

func parsePatterns(raw []string) []urlPattern {
	out := make([]urlPattern, len(raw))
	for i, p := range raw {
		out[i] = parsePattern(p)
	}
	return out
}

func anyMatch(patterns []urlPattern, path string) bool {
	for _, p := range patterns {
		if p.matches(path) {
			return true
		}
	}
	return false
}

type servletRoute struct {
	pattern urlPattern
	handler http.Handler
}

// dispatcher selects a servlet by servlet-mapping precedence:
// exact, then longest prefix, then extension, then default.
type dispatcher struct {
	exact    map[string]http.Handler
	prefixes []servletRoute // longest first
	exts     []servletRoute
	fallback http.Handler
}

func newDispatcher(servlets []MappedServlet) *dispatcher {
	d := &dispatcher{exact: make(map[string]http.Handler)}
	for _, s := range servlets {
		for _, p := range parsePatterns(s.URLPatterns) {
			route := servletRoute{pattern: p, handler: s.Handler}
			switch p.kind {
			case patternExact:
				d.exact[p.raw] = s.Handler
			case patternPrefix:
				d.prefixes = append(d.prefixes, route)
			case patternExtension:
				d.exts = append(d.exts, route)
			case patternDefault:
				d.fallback = s.Handler
			}
		}
	}
	sort.SliceStable(d.prefixes, func(i, j int) bool {
		return len(d.prefixes[i].pattern.prefix) > len(d.prefixes[j].pattern.prefix)
	})
	return d
}

func (d *dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if h, ok := d.exact[path]; ok {
		h.ServeHTTP(w, r)
		return
	}
	for _, route := range d.prefixes {
		if route.pattern.matches(path) {
			route.handler.ServeHTTP(w, r)
			return
		}
	}
	for _, route := range d.exts {
		if route.pattern.matches(path) {
			route.handler.ServeHTTP(w, r)
			return
		}
	}
	if d.fallback != nil {
		d.fallback.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// filterChain wraps h with every filter whose patterns match the request path,
// in ascending Order. Ties keep registration order.
func filterChain(filters []MappedFilter, h http.Handler) http.Handler {
	ordered := make([]MappedFilter, len(filters))
	copy(ordered, filters)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	for i := len(ordered) - 1; i >= 0; i-- {
		h = conditional(parsePatterns(ordered[i].URLPatterns), ordered[i].Filter, h)
	}
	return h
}

func conditional(patterns []urlPattern, f Filter, next http.Handler) http.Handler {
	wrapped := f.Wrap(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if anyMatch(patterns, r.URL.Path) {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
