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

// Package accesslog provides middleware for structured HTTP access
// logging with slog.
//
// Each request is logged with method, path, domain, status, response
// size, and duration. The log level follows the status code: 5xx at
// Error, 4xx at Warn, everything else at Info.
package accesslog

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"rivaas.dev/hostmux"
)

type config struct {
	logger       *slog.Logger
	excludePaths map[string]bool
	extraFields  func(c *hostmux.Context) []slog.Attr
}

// Option defines functional options for accesslog middleware
// configuration.
type Option func(*config)

// WithLogger sets the structured logger receiving access records.
// Without one the middleware logs through slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithExcludePaths suppresses logging for exact request paths, typically
// health and readiness probes.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExtraFields appends caller-computed attributes to every record.
// The function runs after the pipeline, so response state is visible.
func WithExtraFields(fn func(c *hostmux.Context) []slog.Attr) Option {
	return func(cfg *config) {
		cfg.extraFields = fn
	}
}

// New returns a middleware that logs one structured record per request
// after the rest of the pipeline has run.
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r.Middleware("access-log", accesslog.New(accesslog.WithLogger(logger)))
func New(opts ...Option) hostmux.HandlerFunc {
	cfg := &config{
		excludePaths: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *hostmux.Context) {
		if cfg.excludePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := http.StatusOK
		var size int64
		if info, ok := c.Response.(hostmux.ResponseInfo); ok {
			status = info.StatusCode()
			size = info.Size()
		}

		logger := cfg.logger
		if logger == nil {
			logger = slog.Default()
		}

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("domain", c.Domain()),
			slog.String("route", c.RouteTemplate()),
			slog.Int("status", status),
			slog.Int64("size", size),
			slog.Duration("duration", duration),
			slog.String("client_ip", clientIP(c.Request)),
		}
		if id := c.Response.Header().Get("X-Request-ID"); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if cfg.extraFields != nil {
			attrs = append(attrs, cfg.extraFields(c)...)
		}

		logger.LogAttrs(c.Request.Context(), levelFor(status), "request", attrs...)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// clientIP prefers proxy headers, then the connection's remote address.
func clientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Forwarded-For"); ip != "" {
		for i := range len(ip) {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		return host
	}
	return req.RemoteAddr
}
