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
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unsafe"

	"rivaas.dev/hostmux/spec"
)

// Option configures a compile run.
type Option func(*config)

type config struct {
	warn func(msg string)
}

// WithWarningHandler routes non-fatal compile diagnostics, such as
// incomplete locale coverage, to fn. Without it warnings are dropped.
func WithWarningHandler(fn func(msg string)) Option {
	return func(c *config) { c.warn = fn }
}

// Compile builds an immutable match table from a routing spec. Middleware
// names and handler references resolve through r exactly once, at compile
// time. The first spec problem aborts compilation with a typed error.
func Compile(s *spec.Spec, r Resolver, opts ...Option) (*Table, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &builder{
		resolver: r,
		warn:     cfg.warn,
		table: &Table{
			exact: make(map[string]*domainEntry),
			names: make(map[string]*NameEntry),
		},
		mwCache: make(map[string][]Handler),
	}
	for _, d := range s.Domains {
		if err := b.compileDomain(d); err != nil {
			return nil, err
		}
	}
	return b.table, nil
}

type builder struct {
	resolver Resolver
	warn     func(string)
	table    *Table
	mwCache  map[string][]Handler
}

func (b *builder) warnf(format string, args ...any) {
	if b.warn != nil {
		b.warn(fmt.Sprintf(format, args...))
	}
}

func (b *builder) compileDomain(d *spec.Domain) error {
	entry := &domainEntry{
		key:       d.Host,
		locales:   d.Locales,
		root:      &node{},
		static:    make(map[uint64]*Route),
		redirects: make(map[string]Redirect),
	}

	switch {
	case d.Host == "*":
		if b.table.fallback != nil {
			return &MalformedSpecError{Domain: d.Host, Detail: "fallback domain declared twice"}
		}
		b.table.fallback = entry
	case strings.HasPrefix(d.Host, "*."):
		entry.key = strings.ToLower(d.Host)
		entry.suffix = entry.key[1:] // keeps the dot
		if len(entry.suffix) < 2 {
			return &MalformedSpecError{Domain: d.Host, Detail: "wildcard domain needs a suffix"}
		}
		b.table.wildcards = append(b.table.wildcards, entry)
	case d.Host == "" || strings.Contains(d.Host, "*"):
		return &MalformedSpecError{Domain: d.Host, Detail: "invalid domain key"}
	default:
		entry.key = strings.ToLower(d.Host)
		if _, dup := b.table.exact[entry.key]; dup {
			return &MalformedSpecError{Domain: d.Host, Detail: "domain declared twice"}
		}
		b.table.exact[entry.key] = entry
	}

	entry.defaultLocale = d.DefaultLocale
	if entry.defaultLocale == "" && len(d.Locales) > 0 {
		entry.defaultLocale = d.Locales[0]
	}
	if entry.defaultLocale != "" && !slices.Contains(d.Locales, entry.defaultLocale) {
		return &LocaleError{Domain: d.Host, Locale: entry.defaultLocale, Detail: "is not in the domain's locale list"}
	}
	if d.RootLocaleRedirect {
		if entry.defaultLocale == "" {
			return &LocaleError{Domain: d.Host, Detail: "root_locale_redirect requires locales"}
		}
		entry.redirects["/"] = Redirect{Location: "/" + entry.defaultLocale + "/", Status: 302}
	}

	baseMW := mergeUse(nil, d.Use)
	if d.Root != nil {
		if err := b.walk(d, entry, d.Root, "", baseMW, nil); err != nil {
			return err
		}
	}

	// The bloom filter is sized after the walk, once the static route
	// count is known.
	if n := len(entry.static); n > 0 {
		size := uint64(n * 10)
		if size < 64 {
			size = 64
		}
		entry.bloom = newBloomFilter(size, 3)
		for _, rt := range entry.static {
			entry.bloom.add(rt.Method + " " + rt.Template)
		}
	}
	return nil
}

// walk descends one spec node, carrying the accumulated path, middleware
// names, and constraints. Map iteration is sorted so compile output and
// error order are deterministic.
func (b *builder) walk(d *spec.Domain, entry *domainEntry, n *spec.Node, where string, mw []string, cons map[string]string) error {
	if n == nil {
		return &MalformedSpecError{Domain: d.Host, Where: where, Detail: "nil path node"}
	}
	mw = mergeUse(mw, n.Use)
	cons = mergeConstraints(cons, n.Constraints)

	for _, method := range sortedKeys(n.Methods) {
		if err := b.buildRoute(d, entry, where, method, n.Methods[method], mw, cons); err != nil {
			return err
		}
	}
	for _, key := range sortedKeys(n.Children) {
		if !strings.HasPrefix(key, "/") {
			return &MalformedSpecError{Domain: d.Host, Where: where, Detail: fmt.Sprintf("path key %q must start with '/'", key)}
		}
		child := key
		if child == "/" {
			child = ""
		}
		if err := b.walk(d, entry, n.Children[key], where+child, mw, cons); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) buildRoute(d *spec.Domain, entry *domainEntry, where, methodKey string, rd *spec.RouteDef, mw []string, cons map[string]string) error {
	template := where
	if template == "" {
		template = "/"
	}
	loc := fmt.Sprintf("%s %s", strings.ToUpper(methodKey), template)

	handler, err := b.resolveHandler(d.Host, loc, rd)
	if err != nil {
		return err
	}

	routeMW := mergeUse(mw, rd.Use)
	pipeline, err := b.resolvePipeline(d.Host, loc, routeMW, handler)
	if err != nil {
		return err
	}

	merged := mergeConstraints(cons, rd.Constraints)
	method := strings.ToUpper(methodKey)

	// Localized definitions expand to one variant per covered locale,
	// prefixed with the locale segment. The unprefixed template is not
	// registered for them.
	var variants []routeVariant
	if len(rd.Localized) > 0 {
		if len(d.Locales) == 0 {
			return &LocaleError{Domain: d.Host, Detail: fmt.Sprintf("localized route at %s needs domain locales", loc)}
		}
		for l := range rd.Localized {
			if !slices.Contains(d.Locales, l) {
				return &LocaleError{Domain: d.Host, Locale: l, Detail: fmt.Sprintf("is not declared by the domain (route at %s)", loc)}
			}
		}
		for _, l := range d.Locales {
			body, ok := rd.Localized[l]
			if !ok {
				b.warnf("domain %s: route %s has no %s variant", d.Host, loc, l)
				continue
			}
			variants = append(variants, routeVariant{
				locale:   l,
				template: localizedTemplate(l, body),
			})
		}
	} else {
		variants = []routeVariant{{template: lowerLiterals(template)}}
	}

	var nameEntry *NameEntry
	if rd.As != "" {
		if _, dup := b.table.names[rd.As]; dup {
			return &DuplicateNameError{Name: rd.As, Domain: d.Host, Template: template}
		}
		nameEntry = &NameEntry{Domain: entry.key}
		b.table.names[rd.As] = nameEntry
	}

	var primary *Route
	for _, v := range variants {
		rt, err := b.buildVariant(d, entry, method, v, rd, pipeline, merged)
		if err != nil {
			return err
		}
		if primary == nil || v.locale == entry.defaultLocale {
			primary = rt
		}
		if nameEntry != nil {
			p, err := newPattern(rt.Template)
			if err != nil {
				return &MalformedSpecError{Domain: d.Host, Where: loc, Detail: err.Error()}
			}
			if v.locale == "" {
				nameEntry.Pattern = p
			} else {
				if nameEntry.Localized == nil {
					nameEntry.Localized = make(map[string]*Pattern, len(variants))
				}
				nameEntry.Localized[v.locale] = p
			}
		}
	}

	if len(rd.RedirectsFrom) > 0 {
		if err := b.registerRedirects(d, entry, loc, rd, primary); err != nil {
			return err
		}
	}
	return nil
}

type routeVariant struct {
	locale   string
	template string
}

// localizedTemplate joins a locale prefix and a localized path body. A
// body of "/" collapses so the root variant is "/<locale>".
func localizedTemplate(locale, body string) string {
	body = lowerLiterals(strings.TrimPrefix(body, "/"))
	if body == "" {
		return "/" + locale
	}
	return "/" + locale + "/" + body
}

func (b *builder) buildVariant(d *spec.Domain, entry *domainEntry, method string, v routeVariant, rd *spec.RouteDef, pipeline []Handler, cons map[string]string) (*Route, error) {
	segs, err := parseTemplate(v.template)
	if err != nil {
		return nil, &MalformedSpecError{Domain: d.Host, Where: method + " " + v.template, Detail: err.Error()}
	}
	params := paramNames(segs)

	rt := &Route{
		Domain:     entry.key,
		Method:     method,
		Template:   v.template,
		Name:       rd.As,
		Locale:     v.locale,
		Pipeline:   pipeline,
		Sitemap:    rd.Sitemap,
		Meta:       rd.Meta,
		segs:       segs,
		paramCount: len(params),
	}

	for _, param := range sortedKeys(cons) {
		pattern := cons[param]
		if !slices.Contains(params, param) {
			// Inherited subtree constraints only bind where the
			// parameter actually occurs. An explicit route-level
			// constraint on a parameter the route never captures is a
			// spec bug.
			if rd.Constraints != nil {
				if _, explicit := rd.Constraints[param]; explicit {
					return nil, &ConstraintError{
						Domain: d.Host, Where: method + " " + v.template,
						Param: param, Pattern: pattern,
						Detail: "route does not capture this parameter",
					}
				}
			}
			continue
		}
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, &ConstraintError{
				Domain: d.Host, Where: method + " " + v.template,
				Param: param, Pattern: pattern, Detail: err.Error(),
			}
		}
		rt.constraints = append(rt.constraints, constraint{param: param, re: re})
	}

	if err := entry.root.insert(segs, method, rt); err != nil {
		return nil, &MalformedSpecError{Domain: d.Host, Where: method + " " + v.template, Detail: err.Error()}
	}
	if rt.static() {
		entry.static[staticKey(method, v.template)] = rt
	}
	b.table.routes = append(b.table.routes, rt)
	return rt, nil
}

func (b *builder) registerRedirects(d *spec.Domain, entry *domainEntry, loc string, rd *spec.RouteDef, target *Route) error {
	if target == nil || target.paramCount > 0 {
		return &MalformedSpecError{Domain: d.Host, Where: loc, Detail: "redirects_from requires a parameterless target route"}
	}
	status := rd.RedirectStatus
	if status == 0 {
		status = 301
	}
	if status != 301 && status != 302 {
		return &MalformedSpecError{Domain: d.Host, Where: loc, Detail: fmt.Sprintf("redirect_status %d must be 301 or 302", status)}
	}
	for _, from := range rd.RedirectsFrom {
		from = strings.ToLower(from)
		if !strings.HasPrefix(from, "/") {
			return &MalformedSpecError{Domain: d.Host, Where: loc, Detail: fmt.Sprintf("redirect source %q must start with '/'", from)}
		}
		if _, dup := entry.redirects[from]; dup {
			return &MalformedSpecError{Domain: d.Host, Where: loc, Detail: fmt.Sprintf("redirect source %q declared twice", from)}
		}
		entry.redirects[from] = Redirect{Location: target.Template, Status: status}
	}
	return nil
}

func (b *builder) resolveHandler(domain, loc string, rd *spec.RouteDef) (Handler, error) {
	switch {
	case rd.To != "" && rd.Handler != nil:
		return nil, &MalformedSpecError{Domain: domain, Where: loc, Detail: "route sets both to: and a direct handler"}
	case rd.Handler != nil:
		return rd.Handler, nil
	case rd.To != "":
		h, err := b.resolver.ResolveHandler(rd.To)
		if err != nil {
			return nil, &MalformedSpecError{Domain: domain, Where: loc, Detail: fmt.Sprintf("handler %q: %v", rd.To, err)}
		}
		return h, nil
	default:
		return nil, &MalformedSpecError{Domain: domain, Where: loc, Detail: "route has no handler"}
	}
}

// resolvePipeline expands middleware names in order, appends the terminal
// handler, and deduplicates by identity. The first occurrence keeps its
// position.
func (b *builder) resolvePipeline(domain, loc string, names []string, handler Handler) ([]Handler, error) {
	pipeline := make([]Handler, 0, len(names)+1)
	seen := make(map[uintptr]bool, len(names)+1)

	add := func(h Handler) {
		if id, ok := identity(h); ok {
			if seen[id] {
				return
			}
			seen[id] = true
		}
		pipeline = append(pipeline, h)
	}

	for _, name := range names {
		hs, ok := b.mwCache[name]
		if !ok {
			var err error
			hs, err = b.resolver.ResolveMiddleware(name)
			if err != nil {
				return nil, &UnknownMiddlewareError{Name: name, Domain: domain, Where: loc}
			}
			b.mwCache[name] = hs
		}
		for _, h := range hs {
			add(h)
		}
	}
	// The terminal handler always runs, even if the same function also
	// appears somewhere in the middleware list.
	pipeline = append(pipeline, handler)
	return pipeline, nil
}

// identity returns a comparable identity for handler values of reference
// kinds. Handlers without one are never deduplicated.
func identity(h Handler) (uintptr, bool) {
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Func:
		// reflect's Pointer() returns a code pointer, which cannot tell
		// two closures of the same literal apart. The interface data
		// word is the closure pointer itself.
		type iface struct{ typ, data unsafe.Pointer }
		return uintptr((*iface)(unsafe.Pointer(&h)).data), true
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return v.Pointer(), true
	default:
		return 0, false
	}
}

// mergeUse applies a use: modifier to the inherited middleware list,
// copying so siblings never share backing arrays.
func mergeUse(inherited []string, ml *spec.MiddlewareList) []string {
	if ml == nil {
		return inherited
	}
	var out []string
	if !ml.Clear {
		out = append(out, inherited...)
	}
	return append(out, ml.Names...)
}

func mergeConstraints(inherited, own map[string]string) map[string]string {
	if len(own) == 0 {
		return inherited
	}
	out := make(map[string]string, len(inherited)+len(own))
	for k, v := range inherited {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lowerLiterals lowercases the literal segments of a template while
// leaving capture names untouched, so templates compare equal to
// normalized request paths.
func lowerLiterals(tpl string) string {
	parts := strings.Split(tpl, "/")
	for i, p := range parts {
		if p == "" || p[0] == ':' || p[0] == '*' {
			continue
		}
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "/")
}
