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

package compiler

import (
	"errors"
	"fmt"
)

// Sentinel errors for compile failures. Every typed error below unwraps to
// one of these, so callers can match broad categories with errors.Is and
// still extract details with errors.As.
var (
	// ErrDuplicateName indicates two routes claimed the same name.
	ErrDuplicateName = errors.New("duplicate route name")

	// ErrUnknownMiddleware indicates a use: list referenced a name the
	// resolver does not know.
	ErrUnknownMiddleware = errors.New("unknown middleware")

	// ErrLocale indicates a localized route referenced a locale the domain
	// does not declare, or a domain's locale configuration is inconsistent.
	ErrLocale = errors.New("invalid locale")

	// ErrMalformedSpec indicates a structural problem in the spec itself:
	// bad path templates, conflicting parameter names, duplicate routes,
	// missing handlers.
	ErrMalformedSpec = errors.New("malformed spec")

	// ErrConstraint indicates an invalid constraint: a pattern that does
	// not compile or a parameter the route does not capture.
	ErrConstraint = errors.New("invalid constraint")
)

// DuplicateNameError reports a route name registered twice. Names are
// unique across all domains of a table.
type DuplicateNameError struct {
	Name     string
	Domain   string
	Template string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%v: %q redeclared by %s %s", ErrDuplicateName, e.Name, e.Domain, e.Template)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// UnknownMiddlewareError reports a use: entry the resolver could not
// resolve.
type UnknownMiddlewareError struct {
	Name   string
	Domain string
	Where  string
}

func (e *UnknownMiddlewareError) Error() string {
	return fmt.Sprintf("%v: %q referenced at %s %s", ErrUnknownMiddleware, e.Name, e.Domain, e.Where)
}

func (e *UnknownMiddlewareError) Unwrap() error { return ErrUnknownMiddleware }

// LocaleError reports a locale problem: an undeclared locale in a
// localized: block or a default_locale outside the domain's locale list.
type LocaleError struct {
	Domain string
	Locale string
	Detail string
}

func (e *LocaleError) Error() string {
	return fmt.Sprintf("%v: %s: locale %q %s", ErrLocale, e.Domain, e.Locale, e.Detail)
}

func (e *LocaleError) Unwrap() error { return ErrLocale }

// MalformedSpecError reports a structural spec problem at a known
// location.
type MalformedSpecError struct {
	Domain string
	Where  string
	Detail string
}

func (e *MalformedSpecError) Error() string {
	return fmt.Sprintf("%v: %s %s: %s", ErrMalformedSpec, e.Domain, e.Where, e.Detail)
}

func (e *MalformedSpecError) Unwrap() error { return ErrMalformedSpec }

// ConstraintError reports an invalid constraint declaration.
type ConstraintError struct {
	Domain  string
	Where   string
	Param   string
	Pattern string
	Detail  string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s %s: param %q pattern %q: %s",
		ErrConstraint, e.Domain, e.Where, e.Param, e.Pattern, e.Detail)
}

func (e *ConstraintError) Unwrap() error { return ErrConstraint }
