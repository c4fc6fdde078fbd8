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
	"fmt"
	"net/http"
)

// HandlerFunc handles a request through its Context. Middleware call
// c.Next() to run the rest of the pipeline; not calling it, or calling
// c.Abort(), stops the chain.
type HandlerFunc func(*Context)

// ValueHandlerFunc is a handler that returns its response as a value.
// The returned value is normalized after the handler runs:
//
//   - nil, or a response already written through the Context: left as-is
//   - *Response: written with its status, content type, and body
//   - error: routed to the router's error handler
//   - string: text/plain
//   - []byte: application/octet-stream
//   - anything else: JSON
type ValueHandlerFunc func(*Context) any

// ErrorHandlerFunc handles errors surfaced by handlers: returned error
// values and recovered panics. It is expected to write a response; if it
// panics itself, a plain 500 is served.
type ErrorHandlerFunc func(*Context, error)

// Response is an explicit response value for ValueHandlerFunc. Body takes
// precedence over Value; Value is JSON-encoded. Headers are set before the
// status is written.
type Response struct {
	Status      int
	ContentType string
	Headers     map[string]string
	Body        []byte
	Value       any
}

// Next executes the remaining handlers in the pipeline. It is called by
// the dispatcher to start the chain and by middleware to run what follows
// them; after a middleware's Next returns, the rest of the chain has
// completed.
func (c *Context) Next() {
	c.index++
	for c.index < int16(len(c.handlers)) {
		c.invoke(c.handlers[c.index])
		c.index++
	}
}

// Abort stops the pipeline. Pending handlers, including the terminal one,
// do not run. The current handler continues; return after aborting.
func (c *Context) Abort() {
	c.index = int16(len(c.handlers))
}

// AbortWithStatus stops the pipeline and writes a status-only response.
func (c *Context) AbortWithStatus(code int) {
	c.Status(code)
	c.Abort()
}

// IsAborted reports whether the pipeline has been stopped.
func (c *Context) IsAborted() bool {
	return c.index >= int16(len(c.handlers))
}

// invoke runs one pipeline entry. Compiled pipelines hold opaque handler
// values; the supported shapes are normalized here, once per call, so the
// compiler stays independent of this package's types.
func (c *Context) invoke(h any) {
	switch fn := h.(type) {
	case HandlerFunc:
		fn(c)
	case func(*Context):
		fn(c)
	case ValueHandlerFunc:
		c.normalizeReturn(fn(c))
	case func(*Context) any:
		c.normalizeReturn(fn(c))
	case http.Handler:
		fn.ServeHTTP(c.Response, c.Request)
	default:
		c.router.handleError(c, fmt.Errorf("unsupported handler type %T", h))
		c.Abort()
	}
}

// normalizeReturn converts a value handler's return into a response.
func (c *Context) normalizeReturn(v any) {
	if v == nil {
		return
	}
	if err, ok := v.(error); ok {
		c.router.handleError(c, err)
		c.Abort()
		return
	}
	if c.Written() {
		// The handler wrote its response directly; the return value is
		// informational at best.
		return
	}

	switch t := v.(type) {
	case *Response:
		status := t.Status
		if status == 0 {
			status = http.StatusOK
		}
		for k, val := range t.Headers {
			c.Response.Header().Set(k, val)
		}
		switch {
		case t.Body != nil:
			ct := t.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			c.Data(status, ct, t.Body)
		case t.Value != nil:
			c.JSON(status, t.Value)
		default:
			c.Status(status)
		}
	case string:
		c.String(http.StatusOK, t)
	case []byte:
		c.Data(http.StatusOK, "application/octet-stream", t)
	default:
		c.JSON(http.StatusOK, v)
	}
}
