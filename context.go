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
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-yaml"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxStackParams is the number of path parameters stored in the fixed
// arrays before falling back to a map. Route tables rarely exceed it.
const maxStackParams = 8

// Context carries one request through its pipeline: the request and
// response, captured path parameters, and the ambient match state (domain,
// subdomain, locale) that reverse URL generation reads.
//
// Contexts are pooled. They are only valid during the request they were
// dispatched for; handlers must not retain them.
type Context struct {
	Request  *http.Request
	Response http.ResponseWriter

	router   *Router
	handlers []any
	index    int16

	// Fixed-size parameter storage with map overflow for unusually deep
	// templates.
	paramKeys     [maxStackParams]string
	paramValues   [maxStackParams]string
	paramCount    int
	paramOverflow map[string]string

	// Ambient match state, set at dispatch entry and cleared on release.
	domain        string
	subdomain     string
	locale        string
	locales       []string
	defaultLocale string
	routeName     string
	routeTemplate string

	// domainOverride scopes URL building to another domain; see WithDomain.
	domainOverride string

	logger *slog.Logger
}

// reset clears the context for reuse. Every exit path of a dispatch runs
// it via the deferred pool release, so ambient state never leaks across
// requests.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.handlers = nil
	c.index = -1

	n := min(c.paramCount, maxStackParams)
	for i := range n {
		c.paramKeys[i] = ""
		c.paramValues[i] = ""
	}
	c.paramCount = 0
	c.paramOverflow = nil

	c.domain = ""
	c.subdomain = ""
	c.locale = ""
	c.locales = nil
	c.defaultLocale = ""
	c.routeName = ""
	c.routeTemplate = ""
	c.domainOverride = ""
	c.logger = nil
}

// SetParam records a captured path parameter. The matcher calls it during
// lookup; handlers normally only read.
func (c *Context) SetParam(key, value string) {
	if c.paramCount < maxStackParams {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	if c.paramOverflow == nil {
		c.paramOverflow = make(map[string]string, 4)
	}
	c.paramOverflow[key] = value
	c.paramCount++
}

// Param returns a captured path parameter, or "" when absent.
func (c *Context) Param(key string) string {
	for i := 0; i < c.paramCount && i < maxStackParams; i++ {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	if c.paramOverflow != nil {
		return c.paramOverflow[key]
	}
	return ""
}

// Params returns all captured path parameters as a fresh map.
func (c *Context) Params() map[string]string {
	out := make(map[string]string, c.paramCount)
	for i := 0; i < c.paramCount && i < maxStackParams; i++ {
		out[c.paramKeys[i]] = c.paramValues[i]
	}
	for k, v := range c.paramOverflow {
		out[k] = v
	}
	return out
}

// Domain returns the domain key that matched the request host. For
// wildcard domains this is the pattern ("*.example.com"), not the host.
func (c *Context) Domain() string { return c.domain }

// Subdomain returns the captured subdomain for wildcard-subdomain
// domains, "" otherwise.
func (c *Context) Subdomain() string { return c.subdomain }

// Locale returns the locale of the matched route variant, or the domain's
// default locale for non-localized routes. Empty when the domain declares
// no locales.
func (c *Context) Locale() string {
	if c.locale != "" {
		return c.locale
	}
	return c.defaultLocale
}

// DefaultLocale returns the matched domain's default locale.
func (c *Context) DefaultLocale() string { return c.defaultLocale }

// AvailableLocales returns the matched domain's declared locales. Callers
// must not mutate the returned slice.
func (c *Context) AvailableLocales() []string { return c.locales }

// RouteName returns the name of the matched route, "" when unnamed.
func (c *Context) RouteName() string { return c.routeName }

// RouteTemplate returns the matched route's path template.
func (c *Context) RouteTemplate() string { return c.routeTemplate }

// Context returns the request's context.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// Hostname returns the request host without any port.
func (c *Context) Hostname() string {
	host := c.Request.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// Scheme returns "https" when the request arrived over TLS, else "http".
func (c *Context) Scheme() string {
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

// BaseURL returns scheme://host for the current request.
func (c *Context) BaseURL() string {
	return c.Scheme() + "://" + c.Request.Host
}

// Query returns the first value of a query parameter.
func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

// DefaultQuery returns the first value of a query parameter, or def when
// absent.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Request.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

// GetHeader returns a request header value.
func (c *Context) GetHeader(key string) string {
	return c.Request.Header.Get(key)
}

// Header sets a response header.
func (c *Context) Header(key, value string) {
	c.Response.Header().Set(key, value)
}

// Status writes the status line. Later calls are no-ops once headers have
// gone out.
func (c *Context) Status(code int) {
	c.Response.WriteHeader(code)
}

// Written reports whether the response has been started.
func (c *Context) Written() bool {
	if rw, ok := c.Response.(*responseWriter); ok {
		return rw.Written()
	}
	return false
}

// JSON writes a JSON response.
func (c *Context) JSON(code int, obj any) error {
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(code)
	return json.NewEncoder(c.Response).Encode(obj)
}

// YAML writes a YAML response.
func (c *Context) YAML(code int, obj any) error {
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.Status(code)
	data, err := yaml.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = c.Response.Write(data)
	return err
}

// String writes a plain text response.
func (c *Context) String(code int, s string) error {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(code)
	_, err := c.Response.Write([]byte(s))
	return err
}

// HTML writes an HTML response.
func (c *Context) HTML(code int, html string) error {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(code)
	_, err := c.Response.Write([]byte(html))
	return err
}

// Data writes raw bytes with an explicit content type.
func (c *Context) Data(code int, contentType string, data []byte) error {
	c.Header("Content-Type", contentType)
	c.Status(code)
	_, err := c.Response.Write(data)
	return err
}

// NoContent writes a 204 response.
func (c *Context) NoContent() {
	c.Status(http.StatusNoContent)
}

// Redirect writes a redirect response with an empty body.
func (c *Context) Redirect(code int, location string) {
	c.Header("Location", location)
	c.Status(code)
}

// Error routes an error to the router's error handler and aborts the
// pipeline.
func (c *Context) Error(err error) {
	if err == nil {
		return
	}
	c.router.handleError(c, err)
	c.Abort()
}

// Logger returns the request-scoped logger: the router's logger enriched
// with the matched domain and route template, or a no-op logger when the
// router has none configured.
func (c *Context) Logger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	base := noopLogger
	if c.router != nil && c.router.logger != nil {
		base = c.router.logger
	}
	attrs := make([]any, 0, 4)
	if c.domain != "" {
		attrs = append(attrs, slog.String("domain", c.domain))
	}
	if c.routeTemplate != "" {
		attrs = append(attrs, slog.String("route", c.routeTemplate))
	}
	c.logger = base.With(attrs...)
	return c.logger
}

// Span returns the active trace span from the request context. It records
// nothing unless tracing middleware put a span there.
func (c *Context) Span() trace.Span {
	return trace.SpanFromContext(c.Request.Context())
}

// SetSpanAttributes adds attributes to the active span, if recording.
func (c *Context) SetSpanAttributes(attrs ...attribute.KeyValue) {
	span := c.Span()
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// PathWithoutLocale returns the request path with the matched locale
// prefix stripped. For non-localized matches it returns the path
// unchanged.
func (c *Context) PathWithoutLocale() string {
	if c.locale == "" {
		return c.Request.URL.Path
	}
	prefix := "/" + c.locale
	path := c.Request.URL.Path
	if path == prefix {
		return "/"
	}
	return strings.TrimPrefix(path, prefix)
}
