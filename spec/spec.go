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

// Package spec defines the declarative routing tree consumed by the compiler.
//
// A Spec describes routes for one or more domains. Each domain carries its
// own locale configuration, a middleware list applied to every route under
// it, and a tree of path nodes. Specs can be built programmatically or
// decoded from YAML with Parse or Load.
//
// Domain keys come in three forms:
//   - a literal lowercase hostname ("example.com")
//   - a wildcard-subdomain pattern ("*.example.com")
//   - the catch-all fallback ("*")
//
// Path keys always start with "/" and may span several segments
// ("/users/:id/posts"). A ":name" segment captures a single path segment,
// "*name" captures the remainder of the path and must be last.
package spec

// Spec is the root of a declarative routing table.
// Domain order is preserved: wildcard-subdomain patterns are tried in
// declaration order at match time.
type Spec struct {
	Domains []*Domain
}

// Domain declares routes and locale configuration for a single domain key.
type Domain struct {
	// Host is the domain key: a literal hostname, "*.suffix", or "*".
	Host string

	// Locales is the ordered set of language tags served by this domain.
	Locales []string

	// DefaultLocale is the locale used when none is requested.
	// Must be a member of Locales when both are set.
	DefaultLocale string

	// RootLocaleRedirect redirects "/" to "/<default_locale>/" with 302
	// when enabled.
	RootLocaleRedirect bool

	// Use is the middleware list inherited by every route in this domain.
	Use *MiddlewareList

	// Root is the path tree rooted at "/".
	Root *Node
}

// Node is one level of the path tree. Its middleware and constraints apply
// to every route at or below it.
type Node struct {
	// Use modifies the inherited middleware list for this subtree.
	// A nil pointer means the key is absent; see MiddlewareList for the
	// clear-vs-append distinction.
	Use *MiddlewareList

	// Constraints maps parameter names to regex patterns applying to the
	// whole subtree. Route-level constraints are merged over these.
	Constraints map[string]string

	// Methods maps lowercase HTTP method names ("get", "post", ...) to
	// route definitions terminating at this node's path.
	Methods map[string]*RouteDef

	// Children maps "/"-prefixed path keys, each one or more segments
	// ("/users", "/users/:id"), to child nodes. Order does not matter;
	// match priority is structural (literal > param > wildcard).
	Children map[string]*Node
}

// RouteDef is the definition of a single route endpoint.
type RouteDef struct {
	// To names a handler registered in the router's registry.
	// Resolved once at compile time; never interpreted at request time.
	To string

	// Handler is a direct handler reference, used instead of To when the
	// spec is built in Go. Setting both is a spec error.
	Handler any

	// As is the route name for reverse URL generation. Names are unique
	// across the whole table.
	As string

	// Use appends to (or clears) the inherited middleware list for this
	// route only.
	Use *MiddlewareList

	// Constraints maps captured parameter names to regex patterns checked
	// after a structural match.
	Constraints map[string]string

	// Localized maps locale tags to path templates. The route is expanded
	// into one entry per locale at "/<locale>/<template>". Every key must
	// appear in the domain's Locales list.
	Localized map[string]string

	// RedirectsFrom lists literal paths that redirect to this route.
	RedirectsFrom []string

	// RedirectStatus is the status for RedirectsFrom entries, 301 or 302.
	// Defaults to 301.
	RedirectStatus int

	// Sitemap is opaque sitemap metadata, passed through untouched for
	// external sitemap generators.
	Sitemap map[string]any

	// Meta is opaque metadata carried through to the compiled route.
	Meta map[string]any
}

// MiddlewareList distinguishes the three states of a "use:" key:
// absent (a nil *MiddlewareList), an explicit null that clears all
// inherited middleware (Clear), and a list of names to append.
type MiddlewareList struct {
	Clear bool
	Names []string
}

// Use builds a middleware list that appends the given names to the
// inherited list.
func Use(names ...string) *MiddlewareList {
	return &MiddlewareList{Names: names}
}

// ClearUse builds a middleware list that clears all inherited middleware
// for the subtree it is attached to.
func ClearUse() *MiddlewareList {
	return &MiddlewareList{Clear: true}
}

// DomainByHost returns the domain with the given host key, or nil.
func (s *Spec) DomainByHost(host string) *Domain {
	for _, d := range s.Domains {
		if d.Host == host {
			return d
		}
	}
	return nil
}
