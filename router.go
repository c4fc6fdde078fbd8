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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"rivaas.dev/hostmux/compiler"
	"rivaas.dev/hostmux/spec"
)

// noopLogger is a singleton no-op logger used when no logger is
// configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// responseWriter wraps http.ResponseWriter to capture status code and
// size. It also prevents "superfluous response.WriteHeader call" errors.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

// WriteHeader captures the status code and prevents duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write captures the response size and marks as written.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the HTTP status code.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the response size in bytes.
func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Written returns true if headers have been written.
func (rw *responseWriter) Written() bool {
	return rw.written
}

var _ ResponseInfo = (*responseWriter)(nil)

// Hijack implements http.Hijacker.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Router matches requests against a compiled multi-domain routing table
// and runs the matched pipeline. It implements http.Handler.
//
// Handlers and middleware register by name, the routing spec references
// those names, and Routes compiles and publishes the table. The Router is
// safe for concurrent use; Routes may be called again at runtime and
// swaps the table atomically.
type Router struct {
	registry *registry
	table    atomic.Pointer[compiler.Table]

	// Configuration, immutable after New.
	trailingSlash       TrailingSlashPolicy
	trailingSlashStatus int
	defaultDomain       string
	defaultProtocol     string
	notFound            HandlerFunc
	errorHandler        ErrorHandlerFunc
	staticRoot          string
	mimeOverrides       map[string]string
	methodOverride      bool
	enableH2C           bool
	timeouts            serverTimeouts
	logger              *slog.Logger
	observability       ObservabilityRecorder
	diagnostics         DiagnosticHandler

	server   *http.Server
	serverMu sync.Mutex
}

// serverTimeouts holds HTTP server timeout configuration.
type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

// Server timeout defaults. Generous enough for slow clients, bounded
// enough to shed stuck connections.
const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// New creates a router with optional configuration. Configuration is
// validated immediately rather than at request time.
//
// For a version that panics instead of returning an error, use MustNew.
func New(opts ...Option) (*Router, error) {
	r := &Router{
		registry:            newRegistry(),
		trailingSlashStatus: http.StatusMovedPermanently,
		defaultProtocol:     "https",
		timeouts: serverTimeouts{
			readHeader: defaultReadHeaderTimeout,
			read:       defaultReadTimeout,
			write:      defaultWriteTimeout,
			idle:       defaultIdleTimeout,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew creates a router and panics if the configuration is invalid.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("hostmux: invalid configuration: %v", err))
	}
	return r
}

func (r *Router) validate() error {
	if r.trailingSlashStatus != http.StatusMovedPermanently &&
		r.trailingSlashStatus != http.StatusPermanentRedirect {
		return fmt.Errorf("%w: got %d", ErrTrailingSlashStatusInvalid, r.trailingSlashStatus)
	}
	if r.defaultProtocol != "http" && r.defaultProtocol != "https" {
		return fmt.Errorf("%w: got %q", ErrDefaultProtocolInvalid, r.defaultProtocol)
	}
	if r.staticRoot != "" {
		info, err := os.Stat(r.staticRoot)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %q", ErrStaticRootInvalid, r.staticRoot)
		}
	}
	for _, t := range []time.Duration{r.timeouts.readHeader, r.timeouts.read, r.timeouts.write, r.timeouts.idle} {
		if t <= 0 {
			return fmt.Errorf("%w: got %v", ErrServerTimeoutInvalid, t)
		}
	}
	return nil
}

// Handle registers a named handler for to: references in specs. It
// panics when the name is taken; registration collisions are programmer
// errors caught at boot.
func (r *Router) Handle(name string, h HandlerFunc) {
	if err := r.registry.addHandler(name, h); err != nil {
		panic(fmt.Sprintf("hostmux: %v", err))
	}
}

// HandleValue registers a named value-returning handler. The returned
// value is normalized into a response; see ValueHandlerFunc.
func (r *Router) HandleValue(name string, h ValueHandlerFunc) {
	if err := r.registry.addHandler(name, h); err != nil {
		panic(fmt.Sprintf("hostmux: %v", err))
	}
}

// Middleware registers one or more handlers under a middleware name for
// use: lists in specs. A multi-handler name expands in order wherever it
// is referenced.
func (r *Router) Middleware(name string, handlers ...HandlerFunc) {
	hs := make([]compiler.Handler, len(handlers))
	for i, h := range handlers {
		hs[i] = h
	}
	if err := r.registry.addMiddleware(name, hs); err != nil {
		panic(fmt.Sprintf("hostmux: %v", err))
	}
}

// Routes compiles a routing spec and publishes the resulting table with
// an atomic swap. In-flight requests keep matching against the table they
// started with; on error the previous table stays active.
func (r *Router) Routes(s *spec.Spec) error {
	table, err := compiler.Compile(s, r.registry, compiler.WithWarningHandler(func(msg string) {
		r.emitDiagnostic(DiagLocaleCoverage, msg, nil)
	}))
	if err != nil {
		return err
	}
	r.table.Store(table)
	r.emitDiagnostic(DiagTableSwapped, "routing table swapped",
		map[string]any{"routes": len(table.Routes())})
	return nil
}

// RoutesFromFile loads a YAML spec from disk and publishes it.
func (r *Router) RoutesFromFile(path string) error {
	s, err := spec.Load(path)
	if err != nil {
		return err
	}
	return r.Routes(s)
}

// Table returns the active routing table, or nil before the first
// successful Routes call. The table is immutable and independently
// usable for matching.
func (r *Router) Table() *compiler.Table {
	return r.table.Load()
}

// Match runs a pure lookup against the active table without dispatching.
func (r *Router) Match(host, method, path string) compiler.Match {
	table := r.table.Load()
	if table == nil {
		return compiler.Match{}
	}
	return table.Match(host, method, normalizePath(path))
}

// handleError routes an error to the configured error handler. A panic
// inside the error handler is contained: the client gets a plain 500 and
// a diagnostic fires.
func (r *Router) handleError(c *Context, err error) {
	if r.errorHandler == nil {
		writeFallback500(c.Response)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.emitDiagnostic(DiagErrorHandlerPanic,
				"error handler panicked, serving plain 500",
				map[string]any{"panic": fmt.Sprint(rec)})
			writeFallback500(c.Response)
		}
	}()
	r.errorHandler(c, err)
}

// writeFallback500 is the hard-coded last-resort error response. It uses
// no handler, encoder, or template that could itself fail.
func writeFallback500(w http.ResponseWriter) {
	if rw, ok := w.(*responseWriter); ok && rw.Written() {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, "500 Internal Server Error")
}
