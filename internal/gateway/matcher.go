package gateway

import (
	"strings"

	"clowdy/internal/database"
)

// normalizePath ensures a single leading slash and strips trailing
// slashes, so "users/42" and "/users/42/" both become "/users/42".
// The root path stays "/".
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

// matchRoute finds the first route matching the request method and
// normalized path. Exact method matches win over ANY routes; within
// each pass, creation order decides.
func matchRoute(routes []database.Route, method, path string) (*database.Route, map[string]string) {
	for _, m := range []string{strings.ToUpper(method), "ANY"} {
		for i := range routes {
			if routes[i].Method != m {
				continue
			}
			if params, ok := matchPattern(routes[i].Path, path); ok {
				return &routes[i], params
			}
		}
	}
	return nil, nil
}

// matchPattern matches a normalized request path against a route
// pattern. Literal segments match byte for byte; a ":name" segment
// matches any single non-empty segment and captures it under "name".
func matchPattern(pattern, path string) (map[string]string, bool) {
	want := patternSegments(pattern)
	got := pathSegments(path)
	if len(want) != len(got) {
		return nil, false
	}

	params := map[string]string{}
	for i, seg := range want {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if got[i] == "" {
				return nil, false
			}
			params[name] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

// patternSegments splits a route pattern on "/", dropping empty
// segments so "/users/:id" and "users/:id/" compile the same way.
func patternSegments(pattern string) []string {
	var segs []string
	for _, s := range strings.Split(pattern, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// pathSegments splits a normalized request path. Interior empty
// segments ("//") are kept so they fail to match, same as a strict
// per-segment comparison would.
func pathSegments(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
