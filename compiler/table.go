// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	"hash/fnv"
	"sort"
	"strings"
)

// domainEntry is the compiled state of one domain key: its segment trie,
// a hash table for parameterless routes fronted by a bloom filter, the
// redirect table, and locale configuration.
type domainEntry struct {
	key           string
	suffix        string // ".example.com" for wildcard keys
	locales       []string
	defaultLocale string

	root      *node
	static    map[uint64]*Route // fnv64a(method + " " + path)
	bloom     *bloomFilter
	redirects map[string]Redirect
}

// Table is the immutable output of Compile. All lookups are read-only and
// safe for unsynchronized concurrent use.
type Table struct {
	exact     map[string]*domainEntry
	wildcards []*domainEntry // declaration order
	fallback  *domainEntry
	names     map[string]*NameEntry
	routes    []*Route
}

// resolveDomain maps a request host to its domain entry. Exact keys win,
// then wildcard-subdomain keys in declaration order with the subdomain
// captured, then the "*" fallback. A port suffix is ignored and matching
// is case-insensitive.
func (t *Table) resolveDomain(host string) (*domainEntry, string) {
	host = normalizeHost(host)

	if e, ok := t.exact[host]; ok {
		return e, ""
	}
	for _, e := range t.wildcards {
		if strings.HasSuffix(host, e.suffix) {
			sub := host[:len(host)-len(e.suffix)]
			if sub != "" {
				return e, sub
			}
		}
	}
	return t.fallback, ""
}

func normalizeHost(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	return strings.ToLower(host)
}

// staticKey is the static hit table key for a method and path.
func staticKey(method, path string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(method))
	h.Write([]byte{' '})
	h.Write([]byte(path))
	return h.Sum64()
}

// Lookup matches a request against the table. path must already be
// normalized by the caller (percent-decoded, lowercased, trailing-slash
// policy applied). Captured parameters are written to ps when it is
// non-nil, otherwise collected into Match.Params. Lookup never fails; a
// miss returns the zero Match with the resolved Domain and Subdomain
// still set when a domain entry exists.
func (t *Table) Lookup(host, method, path string, ps ParamSetter) Match {
	entry, sub := t.resolveDomain(host)
	if entry == nil {
		return Match{}
	}
	m := Match{Domain: entry.key, Subdomain: sub}

	// Parameterless routes resolve in one hash probe. The bloom filter
	// rejects most misses before the map lookup.
	if len(entry.static) > 0 {
		key := staticKey(method, path)
		if entry.bloom.testHash(key) {
			if rt, ok := entry.static[key]; ok && rt.Template == path {
				m.Route = rt
				return m
			}
		}
	}

	var valbuf [8]string
	routes, values := entry.root.lookup(path, valbuf[:0])
	if routes == nil {
		return m
	}
	rt, ok := routes[method]
	if !ok || !rt.checkConstraints(values) {
		return m
	}

	m.Route = rt
	emitParams(rt, values, sub, ps, &m)
	return m
}

func emitParams(rt *Route, values []string, sub string, ps ParamSetter, m *Match) {
	if ps != nil {
		i := 0
		for _, seg := range rt.segs {
			if seg.kind == segLiteral {
				continue
			}
			ps.SetParam(seg.text, values[i])
			i++
		}
		return
	}
	if rt.paramCount == 0 {
		return
	}
	m.Params = make(map[string]string, rt.paramCount)
	i := 0
	for _, seg := range rt.segs {
		if seg.kind == segLiteral {
			continue
		}
		m.Params[seg.text] = values[i]
		i++
	}
}

// Match is the allocation-friendly convenience form of Lookup: captured
// parameters come back in Match.Params.
func (t *Table) Match(host, method, path string) Match {
	return t.Lookup(host, method, path, nil)
}

// AllowedMethods returns the sorted methods that would match the path on
// the given host, for Allow headers on 405 responses. Routes whose
// constraints reject the captured values are excluded.
func (t *Table) AllowedMethods(host, path string) []string {
	entry, _ := t.resolveDomain(host)
	if entry == nil {
		return nil
	}
	var valbuf [8]string
	routes, values := entry.root.lookup(path, valbuf[:0])
	if len(routes) == 0 {
		return nil
	}
	methods := make([]string, 0, len(routes))
	for method, rt := range routes {
		if rt.checkConstraints(values) {
			methods = append(methods, method)
		}
	}
	sort.Strings(methods)
	return methods
}

// RedirectFor consults the domain's redirect table for an exact
// normalized path. ok is false when no entry exists.
func (t *Table) RedirectFor(host, path string) (Redirect, bool) {
	entry, _ := t.resolveDomain(host)
	if entry == nil {
		return Redirect{}, false
	}
	r, ok := entry.redirects[path]
	return r, ok
}

// NameEntryFor returns the reverse-generation record of a named route, or
// nil when the name is unknown.
func (t *Table) NameEntryFor(name string) *NameEntry {
	return t.names[name]
}

// DomainLocales returns the locale list and default locale configured for
// the domain serving host.
func (t *Table) DomainLocales(host string) (locales []string, defaultLocale string) {
	entry, _ := t.resolveDomain(host)
	if entry == nil {
		return nil, ""
	}
	return entry.locales, entry.defaultLocale
}

// Routes returns every compiled route in registration order. The slice is
// shared; callers must not mutate it.
func (t *Table) Routes() []*Route { return t.routes }

// HasDomain reports whether the host resolves to any domain entry,
// including the fallback.
func (t *Table) HasDomain(host string) bool {
	entry, _ := t.resolveDomain(host)
	return entry != nil
}
