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

// Package recovery provides middleware for recovering from panics in HTTP
// handlers, preventing server crashes and returning proper error responses.
//
// The router carries its own last-resort panic net; this middleware sits
// closer to the handler and adds structured logging, stack capture, and a
// customizable error response.
package recovery

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"

	"rivaas.dev/hostmux"
)

// defaultStackSize bounds captured stack traces to 4KB.
const defaultStackSize = 4 << 10

type config struct {
	logger     *slog.Logger
	handler    func(c *hostmux.Context, err any)
	stackTrace bool
	stackSize  int
}

// Option defines functional options for recovery middleware configuration.
type Option func(*config)

func defaultConfig() *config {
	return &config{
		logger:     slog.New(slog.NewTextHandler(os.Stderr, nil)),
		stackTrace: true,
		stackSize:  defaultStackSize,
	}
}

// New returns a middleware that recovers from panics in downstream
// handlers. A recovered panic is logged with an optional stack trace,
// recorded on the active trace span, and answered with a 500 unless a
// custom handler is installed.
//
//	r.Middleware("recover", recovery.New())
func New(opts ...Option) hostmux.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *hostmux.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if cfg.logger != nil {
				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("domain", c.Domain()),
				}
				if cfg.stackTrace {
					buf := make([]byte, cfg.stackSize)
					n := runtime.Stack(buf, false)
					attrs = append(attrs, slog.String("stack", string(buf[:n])))
				}
				cfg.logger.Error("panic recovered", attrs...)
			}

			if span := c.Span(); span.IsRecording() {
				span.RecordError(fmt.Errorf("panic: %v", rec))
			}

			if cfg.handler != nil {
				cfg.handler(c, rec)
			} else if !c.Written() {
				c.String(http.StatusInternalServerError, "500 Internal Server Error")
			}
			c.Abort()
		}()

		c.Next()
	}
}
