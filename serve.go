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
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"rivaas.dev/hostmux/compiler"
)

// overridableMethods is the safe subset _method may switch a POST to.
var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// ServeHTTP implements http.Handler.
//
// Request flow:
//  1. Observability start; the enriched context sticks for the whole
//     request.
//  2. Method override (when enabled), so the matcher sees the effective
//     method.
//  3. Path normalization: lowercase plus the trailing slash policy.
//     net/http has already percent-decoded URL.Path.
//  4. Redirect table: declared redirects answer before any matching.
//  5. Table lookup against the snapshot captured at entry.
//  6. On a hit: pooled context, ambient domain/locale state, pipeline
//     with a panic safety net.
//  7. On a miss: trailing slash redirect, 405 disambiguation, static
//     assets, then the not-found handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	var obsState any
	if r.observability != nil {
		var enriched context.Context
		enriched, obsState = r.observability.OnRequestStart(ctx, req)
		if enriched != ctx {
			ctx = enriched
			req = req.WithContext(ctx)
		}
		if obsState != nil {
			w = r.observability.WrapResponseWriter(w, obsState)
		}
	}
	rw := &responseWriter{ResponseWriter: w}

	finish := func(template string) {
		if obsState != nil {
			r.observability.OnRequestEnd(ctx, obsState, rw, template)
		}
	}

	table := r.table.Load()
	if table == nil {
		r.handleNotFound(rw, req)
		finish("")
		return
	}

	if r.methodOverride {
		applyMethodOverride(req)
	}

	host := req.Host
	path := normalizePath(req.URL.Path)
	if r.trailingSlash == TrailingSlashIgnore && len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	if rd, ok := table.RedirectFor(host, path); ok {
		rw.Header().Set("Location", withQuery(rd.Location, req.URL.RawQuery))
		rw.WriteHeader(rd.Status)
		finish("")
		return
	}

	c := acquireContext(r)
	c.Request = req
	c.Response = rw

	m := table.Lookup(host, req.Method, path, c)
	if m.Route == nil {
		releaseContext(c)
		r.handleMiss(rw, req, table, host, path)
		finish("")
		return
	}

	c.domain = m.Domain
	c.subdomain = m.Subdomain
	c.locale = m.Route.Locale
	c.locales, c.defaultLocale = table.DomainLocales(host)
	c.routeName = m.Route.Name
	c.routeTemplate = m.Route.Template
	c.handlers = m.Route.Pipeline

	r.dispatch(c)
	finish(m.Route.Template)
}

// dispatch runs the pipeline with the panic safety net. The pool release
// is deferred first so it runs on every exit path, after any recovery.
func (r *Router) dispatch(c *Context) {
	defer releaseContext(c)
	defer func() {
		if rec := recover(); rec != nil {
			r.handleError(c, fmt.Errorf("panic: %v", rec))
		}
	}()
	c.index = -1
	c.Next()
}

// handleMiss runs the miss chain: trailing slash redirect, 405
// disambiguation, static assets, not-found handler.
func (r *Router) handleMiss(rw *responseWriter, req *http.Request, table *compiler.Table, host, path string) {
	// Any non-root trailing-slash path redirects to its trimmed form,
	// whether or not the trimmed form matches a route.
	if r.trailingSlash == TrailingSlashRedirect && len(path) > 1 && strings.HasSuffix(path, "/") {
		trimmed := strings.TrimSuffix(path, "/")
		rw.Header().Set("Location", withQuery(trimmed, req.URL.RawQuery))
		rw.WriteHeader(r.trailingSlashStatus)
		return
	}

	if allowed := table.AllowedMethods(host, path); len(allowed) > 0 {
		rw.Header().Set("Allow", strings.Join(allowed, ", "))
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintln(rw, "405 Method Not Allowed")
		return
	}

	if r.staticRoot != "" && req.Method == http.MethodGet {
		if r.serveStaticAsset(rw, req) {
			return
		}
	}

	r.handleNotFound(rw, req)
}

// handleNotFound serves the configured not-found handler, or a plain 404.
// The custom handler runs on a pooled context with no match state.
func (r *Router) handleNotFound(rw *responseWriter, req *http.Request) {
	if r.notFound == nil {
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusNotFound)
		fmt.Fprintln(rw, "404 Not Found")
		return
	}
	c := acquireContext(r)
	c.Request = req
	c.Response = rw
	c.handlers = []any{r.notFound}
	r.dispatch(c)
}

// applyMethodOverride rewrites a POST's method from a _method query or
// form field. Only PUT, PATCH, and DELETE are honored; anything else
// leaves the request untouched.
func applyMethodOverride(req *http.Request) {
	if req.Method != http.MethodPost {
		return
	}
	override := req.URL.Query().Get("_method")
	if override == "" && strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		override = req.PostFormValue("_method")
	}
	if override == "" {
		return
	}
	method := strings.ToUpper(override)
	if overridableMethods[method] {
		req.Method = method
	}
}

// normalizePath lowercases the request path for case-insensitive
// matching. Captured parameter values come from the normalized path.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return strings.ToLower(path)
}

func withQuery(location, rawQuery string) string {
	if rawQuery == "" {
		return location
	}
	return location + "?" + rawQuery
}

// Serve starts the HTTP server on addr with the configured timeouts,
// enabling h2c when requested. It blocks until the server exits; use
// Shutdown from another goroutine for graceful termination.
func (r *Router) Serve(addr string) error {
	h := http.Handler(r)
	if r.enableH2C {
		h = h2c.NewHandler(h, &http2.Server{})
		r.emitDiagnostic(DiagH2CEnabled, "H2C enabled; use only in dev or behind a trusted LB", nil)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: r.timeouts.readHeader,
		ReadTimeout:       r.timeouts.read,
		WriteTimeout:      r.timeouts.write,
		IdleTimeout:       r.timeouts.idle,
	}

	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()

	return srv.ListenAndServe()
}

// ServeTLS starts the HTTPS server. HTTP/2 is enabled automatically via
// ALPN.
func (r *Router) ServeTLS(addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: r.timeouts.readHeader,
		ReadTimeout:       r.timeouts.read,
		WriteTimeout:      r.timeouts.write,
		IdleTimeout:       r.timeouts.idle,
	}

	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()

	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully shuts down the running server, following the
// http.Server.Shutdown pattern. It returns nil when no server is running.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMu.Lock()
	srv := r.server
	r.server = nil
	r.serverMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
