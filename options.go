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
	"log/slog"
	"time"
)

// Option defines functional options for router configuration. Options are
// applied once in New; configuration is immutable afterwards and read
// freely by concurrent requests.
type Option func(*Router)

// TrailingSlashPolicy controls how a trailing slash on the request path
// is treated during matching.
type TrailingSlashPolicy int

const (
	// TrailingSlashStrict treats "/users" and "/users/" as different
	// paths. The default.
	TrailingSlashStrict TrailingSlashPolicy = iota

	// TrailingSlashIgnore strips a trailing slash before matching.
	TrailingSlashIgnore

	// TrailingSlashRedirect redirects "/users/" to "/users" when the
	// stripped path would match. Never applies to "/".
	TrailingSlashRedirect
)

// WithTrailingSlash sets the trailing slash policy.
func WithTrailingSlash(p TrailingSlashPolicy) Option {
	return func(r *Router) { r.trailingSlash = p }
}

// WithTrailingSlashStatus sets the status used by the redirect policy.
// Accepted values are 301 and 308; the default is 301.
func WithTrailingSlashStatus(code int) Option {
	return func(r *Router) { r.trailingSlashStatus = code }
}

// WithDefaultDomain sets the domain used by reverse URL builders when
// neither an explicit nor an ambient domain is available.
func WithDefaultDomain(host string) Option {
	return func(r *Router) { r.defaultDomain = host }
}

// WithDefaultProtocol sets the scheme URL builders use, "https" by
// default.
func WithDefaultProtocol(proto string) Option {
	return func(r *Router) { r.defaultProtocol = proto }
}

// WithNotFoundHandler installs a custom handler for unmatched requests.
// Without one the router writes a plain 404.
func WithNotFoundHandler(h HandlerFunc) Option {
	return func(r *Router) { r.notFound = h }
}

// WithErrorHandler installs the handler for errors returned by handlers
// and recovered panics. Without one the router writes a plain 500.
func WithErrorHandler(h ErrorHandlerFunc) Option {
	return func(r *Router) { r.errorHandler = h }
}

// WithStaticAssets serves files from root for GET requests that miss the
// route table. Defined routes always win over files.
func WithStaticAssets(root string) Option {
	return func(r *Router) { r.staticRoot = root }
}

// WithMimeTypes overlays the extension-to-MIME table used for static
// assets. Keys are extensions with the dot (".woff2").
func WithMimeTypes(overrides map[string]string) Option {
	return func(r *Router) { r.mimeOverrides = overrides }
}

// WithMethodOverride honors a _method form or query field on POST
// requests, rewriting the method before matching. Only PUT, PATCH, and
// DELETE are accepted.
func WithMethodOverride() Option {
	return func(r *Router) { r.methodOverride = true }
}

// WithDiagnostics installs a diagnostic event handler.
func WithDiagnostics(h DiagnosticHandler) Option {
	return func(r *Router) { r.diagnostics = h }
}

// WithObservability installs an observability recorder wrapping the
// request lifecycle.
func WithObservability(rec ObservabilityRecorder) Option {
	return func(r *Router) { r.observability = rec }
}

// WithLogger sets the router's base logger. Without one the router stays
// silent.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithH2C enables cleartext HTTP/2 in Serve. Intended for development or
// behind a TLS-terminating load balancer.
func WithH2C() Option {
	return func(r *Router) { r.enableH2C = true }
}

// WithServerTimeouts overrides the HTTP server timeouts used by Serve and
// ServeTLS. All values must be positive.
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(r *Router) {
		r.timeouts = serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}
