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

import "regexp"

// Handler is an opaque resolved handler value. The compiler stores and
// orders handlers but never invokes them; the dispatching package decides
// their concrete type.
type Handler = any

// Resolver resolves the symbolic references of a spec at compile time.
// Middleware names may expand to several handlers, which keep their
// expansion order in the pipeline.
type Resolver interface {
	// ResolveMiddleware returns the handlers registered under name.
	ResolveMiddleware(name string) ([]Handler, error)

	// ResolveHandler returns the terminal handler registered under ref.
	ResolveHandler(ref string) (Handler, error)
}

// ParamSetter receives captured path parameters during a lookup. The
// dispatcher passes its pooled request context so matching writes straight
// into preallocated storage.
type ParamSetter interface {
	SetParam(key, value string)
}

// constraint is a compiled regex check on one captured parameter.
// Patterns are fully anchored at compile time.
type constraint struct {
	param string
	re    *regexp.Regexp
}

// Route is one immutable compiled route record.
type Route struct {
	// Domain is the domain key the route was declared under.
	Domain string

	// Method is the upper-case HTTP method.
	Method string

	// Template is the compiled path template, including the locale prefix
	// for localized variants.
	Template string

	// Name is the route name, empty when unnamed. Localized variants of
	// one definition share the name.
	Name string

	// Locale is set on localized variants.
	Locale string

	// Pipeline is the resolved middleware chain followed by the terminal
	// handler, deduplicated by identity with first occurrence winning.
	Pipeline []Handler

	// Sitemap is the opaque sitemap metadata from the spec.
	Sitemap map[string]any

	// Meta is the opaque metadata from the spec.
	Meta map[string]any

	segs        []templateSeg
	paramCount  int
	constraints []constraint
}

// ParamCount returns how many parameters the route captures.
func (r *Route) ParamCount() int { return r.paramCount }

// static reports whether the route's path has no captures, making it
// eligible for the static hit table.
func (r *Route) static() bool { return r.paramCount == 0 }

// checkConstraints validates captured values after a structural match.
// Values arrive in template parameter order.
func (r *Route) checkConstraints(values []string) bool {
	if len(r.constraints) == 0 {
		return true
	}
	i := 0
	for _, seg := range r.segs {
		if seg.kind == segLiteral {
			continue
		}
		for _, c := range r.constraints {
			if c.param == seg.text && !c.re.MatchString(values[i]) {
				return false
			}
		}
		i++
	}
	return true
}

// Redirect is one entry of a domain's redirect table.
type Redirect struct {
	Location string
	Status   int
}

// NameEntry is the reverse-generation record of a named route.
type NameEntry struct {
	// Domain is the domain key the route belongs to.
	Domain string

	// Pattern is the non-localized build pattern, nil when the route only
	// exists in localized variants.
	Pattern *Pattern

	// Localized maps locale tags to per-locale build patterns, locale
	// prefix included.
	Localized map[string]*Pattern
}

// Match is the result of a table lookup. The zero value is a miss.
type Match struct {
	// Route is the matched route, nil on a miss.
	Route *Route

	// Domain is the domain key that handled the host, which may be a
	// wildcard pattern or "*".
	Domain string

	// Subdomain is the captured subdomain for wildcard-subdomain domains.
	Subdomain string

	// Params holds captured parameters when no ParamSetter was supplied
	// to the lookup.
	Params map[string]string
}

// Matched reports whether the lookup hit a route.
func (m Match) Matched() bool { return m.Route != nil }
