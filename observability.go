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
	"net/http"
)

// ObservabilityRecorder provides observability lifecycle hooks for HTTP
// requests. Implementations typically combine metrics collection,
// distributed tracing, and access logging.
//
// Lifecycle:
//  1. The router calls OnRequestStart(ctx, req) before matching and keeps
//     the enriched context for the whole request, so trace propagation
//     works even for requests the recorder excludes.
//  2. If the returned state is non-nil, the router wraps the
//     ResponseWriter through WrapResponseWriter and calls OnRequestEnd
//     when handling completes. A nil state skips both.
//  3. OnRequestEnd receives the matched route template (not the raw
//     path), or an empty string on a miss, so metric cardinality stays
//     bounded.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	// OnRequestStart is called before routing begins. It returns an
	// enriched context and an opaque state token; nil state excludes the
	// request from wrapping and OnRequestEnd.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// WrapResponseWriter wraps the ResponseWriter to capture response
	// metadata. The wrapped writer should implement ResponseInfo. When
	// state is nil it must return w unchanged.
	WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter

	// OnRequestEnd is called after request handling completes, only when
	// state is non-nil. routeTemplate is the matched template or "" on a
	// miss.
	OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routeTemplate string)
}

// ResponseInfo is implemented by response writers that track response
// metadata, letting OnRequestEnd extract status and size.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
}
