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

package hostmux

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"rivaas.dev/hostmux/compiler"
)

// Params carries values for reverse URL generation. Values named by the
// route template fill path segments; a "locale" key selects the localized
// variant; everything left over becomes the query string, keys sorted,
// values percent-encoded, slices repeating the key.
type Params map[string]any

// Path builds the path for a named route. The locale comes from
// params["locale"] or the route's domain default.
func (r *Router) Path(name string, params Params) (string, error) {
	table := r.table.Load()
	if table == nil {
		return "", ErrNoRoutes
	}
	return r.buildPath(table, name, params, "", "")
}

// PathForDomain builds the path for a named route, defaulting the locale
// from the given domain instead of the route's own. Useful for routes
// declared under a wildcard domain key.
func (r *Router) PathForDomain(domain, name string, params Params) (string, error) {
	table := r.table.Load()
	if table == nil {
		return "", ErrNoRoutes
	}
	_, host := splitProtocol(domain)
	return r.buildPath(table, name, params, "", host)
}

// URL builds an absolute URL for a named route using the default
// protocol. The host comes from WithDefaultDomain, or the route's own
// domain key when it is a literal hostname.
func (r *Router) URL(name string, params Params) (string, error) {
	return r.URLForDomain("", name, params)
}

// URLForDomain builds an absolute URL on an explicit domain. The domain
// may carry a scheme prefix ("http://dev.local"), which overrides the
// default protocol.
func (r *Router) URLForDomain(domain, name string, params Params) (string, error) {
	table := r.table.Load()
	if table == nil {
		return "", ErrNoRoutes
	}
	scheme, host := splitProtocol(domain)
	path, err := r.buildPath(table, name, params, "", host)
	if err != nil {
		return "", err
	}
	if scheme == "" {
		scheme = r.defaultProtocol
	}
	if host == "" {
		host = r.defaultDomain
	}
	if host == "" {
		if entry := table.NameEntryFor(name); entry != nil && !strings.Contains(entry.Domain, "*") {
			host = entry.Domain
		}
	}
	if host == "" {
		return "", fmt.Errorf("%w: route %q", ErrDomainRequired, name)
	}
	return scheme + "://" + host + path, nil
}

// Path builds the path for a named route using the request's ambient
// locale when params carry none.
func (c *Context) Path(name string, params Params) (string, error) {
	table := c.router.table.Load()
	if table == nil {
		return "", ErrNoRoutes
	}
	return c.router.buildPath(table, name, params, c.Locale(), "")
}

// URL builds an absolute URL for a named route on the ambient domain:
// the current request host, unless WithDomain is in effect. The scheme
// follows the current request.
func (c *Context) URL(name string, params Params) (string, error) {
	table := c.router.table.Load()
	if table == nil {
		return "", ErrNoRoutes
	}
	scheme, host := splitProtocol(c.domainOverride)
	path, err := c.router.buildPath(table, name, params, c.Locale(), host)
	if err != nil {
		return "", err
	}
	if host == "" {
		host = c.Request.Host
	}
	if scheme == "" {
		scheme = c.Scheme()
	}
	return scheme + "://" + host + path, nil
}

// WithDomain runs fn with the ambient domain overridden, restoring the
// previous value even if fn panics. URLs built inside fn target the given
// domain.
func (c *Context) WithDomain(domain string, fn func()) {
	prev := c.domainOverride
	c.domainOverride = domain
	defer func() { c.domainOverride = prev }()
	fn()
}

// buildPath resolves the name, picks the locale variant, fills the
// template, and spills leftover params into a sorted query string.
// domainHint, when set, supplies the locale default instead of the
// route's own domain.
func (r *Router) buildPath(table *compiler.Table, name string, params Params, ambientLocale, domainHint string) (string, error) {
	entry := table.NameEntryFor(name)
	if entry == nil {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	// Locale selection: explicit beats ambient beats the domain default.
	locale := ambientLocale
	if v, ok := params["locale"]; ok {
		locale = toString(v)
	}
	if locale == "" {
		domain := domainHint
		if domain == "" {
			domain = entry.Domain
		}
		_, locale = table.DomainLocales(domain)
	}

	pattern := entry.Pattern
	if len(entry.Localized) > 0 {
		p, ok := entry.Localized[locale]
		if !ok {
			return "", fmt.Errorf("%w: route %q has no %q variant", ErrLocaleUnavailable, name, locale)
		}
		pattern = p
	}
	if pattern == nil {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	required := pattern.Params()
	pathParams := make(map[string]string, len(required))
	consumed := make(map[string]bool, len(required)+1)
	consumed["locale"] = true
	for _, p := range required {
		if v, ok := params[p]; ok {
			pathParams[p] = toString(v)
			consumed[p] = true
		}
	}

	path, err := pattern.Build(pathParams)
	if err != nil {
		if errors.Is(err, compiler.ErrMissingParam) {
			return "", fmt.Errorf("%w: route %q: %v", ErrMissingRouteParameter, name, err)
		}
		return "", err
	}

	query := spillQuery(params, consumed)
	if query != "" {
		path += "?" + query
	}
	return path, nil
}

// spillQuery encodes the unconsumed params as a query string. url.Values
// sorts keys and percent-encodes; slice values repeat the key.
func spillQuery(params Params, consumed map[string]bool) string {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		if !consumed[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := params[k].(type) {
		case []string:
			for _, e := range v {
				values.Add(k, e)
			}
		case []any:
			for _, e := range v {
				values.Add(k, toString(e))
			}
		default:
			values.Add(k, toString(v))
		}
	}
	return values.Encode()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// splitProtocol splits an optional scheme prefix off a domain argument.
func splitProtocol(domain string) (scheme, host string) {
	if domain == "" {
		return "", ""
	}
	if rest, ok := strings.CutPrefix(domain, "https://"); ok {
		return "https", rest
	}
	if rest, ok := strings.CutPrefix(domain, "http://"); ok {
		return "http", rest
	}
	return "", domain
}
