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

// DiagnosticEvent represents a router diagnostic or anomaly. These are
// informational events that may indicate configuration issues; the router
// functions correctly whether they are collected or not.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any // Structured context
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// DiagLocaleCoverage reports a localized route missing a variant for
	// one of its domain's locales.
	DiagLocaleCoverage DiagnosticKind = "locale_coverage_incomplete"

	// DiagTableSwapped reports a successful routing table publication.
	DiagTableSwapped DiagnosticKind = "route_table_swapped"

	// DiagH2CEnabled reports that cleartext HTTP/2 is active.
	DiagH2CEnabled DiagnosticKind = "h2c_enabled"

	// DiagStaticTraversal reports a static asset request that tried to
	// escape the asset root.
	DiagStaticTraversal DiagnosticKind = "static_path_traversal_blocked"

	// DiagErrorHandlerPanic reports that the configured error handler
	// itself panicked and the hard-coded 500 fallback was served.
	DiagErrorHandlerPanic DiagnosticKind = "error_handler_panic"
)

// DiagnosticHandler receives diagnostic events from the router.
// Implementations may log, emit metrics, trace events, or ignore them.
// If not provided, diagnostics are silently dropped.
//
// Example with logging:
//
//	handler := hostmux.DiagnosticHandlerFunc(func(e hostmux.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	r := hostmux.MustNew(hostmux.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) {
	f(e)
}

// emitDiagnostic forwards an event to the configured handler, if any.
func (r *Router) emitDiagnostic(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics == nil {
		return
	}
	r.diagnostics.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: message, Fields: fields})
}
