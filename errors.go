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

import "errors"

var (
	// ErrRouteNotFound indicates that no route is registered under the
	// requested name.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMissingRouteParameter indicates that a required path parameter
	// was not supplied to a reverse URL builder.
	ErrMissingRouteParameter = errors.New("missing required parameter")

	// ErrNoRoutes indicates that no routing table has been compiled yet.
	ErrNoRoutes = errors.New("no routes compiled")

	// ErrDomainRequired indicates that a URL could not be built because
	// no domain was given and none could be inferred.
	ErrDomainRequired = errors.New("domain required to build URL")

	// ErrLocaleUnavailable indicates that a localized route has no
	// variant for the requested locale.
	ErrLocaleUnavailable = errors.New("locale unavailable for route")

	// ErrNameTaken indicates that a registry name is already in use.
	ErrNameTaken = errors.New("registry name already in use")

	// ErrResponseWriterNotHijacker indicates that the underlying
	// ResponseWriter does not implement http.Hijacker.
	ErrResponseWriterNotHijacker = errors.New("responseWriter does not implement http.Hijacker")

	// ErrServerTimeoutInvalid indicates that a server timeout value must
	// be positive.
	ErrServerTimeoutInvalid = errors.New("server timeout must be positive")

	// ErrStaticRootInvalid indicates that the static asset root does not
	// exist or is not a directory.
	ErrStaticRootInvalid = errors.New("static asset root invalid")

	// ErrTrailingSlashStatusInvalid indicates that the trailing slash
	// redirect status must be 301 or 308.
	ErrTrailingSlashStatusInvalid = errors.New("trailing slash redirect status must be 301 or 308")

	// ErrDefaultProtocolInvalid indicates that the default protocol must
	// be http or https.
	ErrDefaultProtocolInvalid = errors.New("default protocol must be http or https")
)
