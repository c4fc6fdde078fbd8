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

package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullDomain(t *testing.T) {
	t.Parallel()

	doc := `
example.com:
  locales: [en, de]
  default_locale: en
  root_locale_redirect: true
  use: [requestid, accesslog]
  /:
    get: home
  /users/:id:
    constraints:
      id: "[0-9]+"
    get:
      to: users.show
      as: user
    /posts:
      get:
        to: users.posts
        as: user.posts
        use: [cache]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, s.Domains, 1)

	d := s.Domains[0]
	assert.Equal(t, "example.com", d.Host)
	assert.Equal(t, []string{"en", "de"}, d.Locales)
	assert.Equal(t, "en", d.DefaultLocale)
	assert.True(t, d.RootLocaleRedirect)
	require.NotNil(t, d.Use)
	assert.False(t, d.Use.Clear)
	assert.Equal(t, []string{"requestid", "accesslog"}, d.Use.Names)

	require.Contains(t, d.Root.Children, "/")
	root := d.Root.Children["/"]
	require.Contains(t, root.Methods, "get")
	assert.Equal(t, "home", root.Methods["get"].To)

	require.Contains(t, d.Root.Children, "/users/:id")
	users := d.Root.Children["/users/:id"]
	assert.Equal(t, map[string]string{"id": "[0-9]+"}, users.Constraints)
	require.Contains(t, users.Methods, "get")
	assert.Equal(t, "users.show", users.Methods["get"].To)
	assert.Equal(t, "user", users.Methods["get"].As)

	require.Contains(t, users.Children, "/posts")
	posts := users.Children["/posts"]
	require.Contains(t, posts.Methods, "get")
	require.NotNil(t, posts.Methods["get"].Use)
	assert.Equal(t, []string{"cache"}, posts.Methods["get"].Use.Names)
}

func TestParseDomainOrderPreserved(t *testing.T) {
	t.Parallel()

	doc := `
"*.store.example.com":
  /:
    get: store
"*.example.com":
  /:
    get: tenant
"*":
  /:
    get: fallback
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, s.Domains, 3)
	assert.Equal(t, "*.store.example.com", s.Domains[0].Host)
	assert.Equal(t, "*.example.com", s.Domains[1].Host)
	assert.Equal(t, "*", s.Domains[2].Host)
}

func TestParseUseNullClears(t *testing.T) {
	t.Parallel()

	doc := `
example.com:
  use: [auth]
  /public:
    use: ~
    get: public
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	pub := s.Domains[0].Root.Children["/public"]
	require.NotNil(t, pub.Use)
	assert.True(t, pub.Use.Clear)
	assert.Empty(t, pub.Use.Names)
}

func TestParseUseEmptyListAppendsNothing(t *testing.T) {
	t.Parallel()

	doc := `
example.com:
  /a:
    use: []
    get: a
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	n := s.Domains[0].Root.Children["/a"]
	require.NotNil(t, n.Use)
	assert.False(t, n.Use.Clear)
	assert.Empty(t, n.Use.Names)
}

func TestParseRouteExtras(t *testing.T) {
	t.Parallel()

	doc := `
example.com:
  locales: [en, fr]
  /about:
    get:
      to: pages.about
      as: about
      localized:
        en: about-us
        fr: a-propos
      redirects_from: [/who-we-are, /company]
      redirect_status: 302
      meta:
        sitemap: true
        priority: 5
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	rd := s.Domains[0].Root.Children["/about"].Methods["get"]
	assert.Equal(t, map[string]string{"en": "about-us", "fr": "a-propos"}, rd.Localized)
	assert.Equal(t, []string{"/who-we-are", "/company"}, rd.RedirectsFrom)
	assert.Equal(t, 302, rd.RedirectStatus)
	require.NotNil(t, rd.Meta)
	assert.Equal(t, true, rd.Meta["sitemap"])
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"top level list", "- a\n- b\n"},
		{"domain body scalar", "example.com: hello\n"},
		{"unknown domain key", "example.com:\n  bogus: 1\n"},
		{"unknown node key", "example.com:\n  /a:\n    frobnicate: 1\n"},
		{"unknown route key", "example.com:\n  /a:\n    get:\n      nope: 1\n"},
		{"locales not list", "example.com:\n  locales: en\n"},
		{"use scalar", "example.com:\n  /a:\n    use: auth\n"},
		{"constraints scalar", "example.com:\n  /a:\n    constraints: x\n"},
		{"redirect status string", "example.com:\n  /a:\n    get:\n      to: h\n      redirect_status: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedSpec)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	t.Parallel()

	s, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, s.Domains)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("example.com:\n  /:\n    get: home\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Domains, 1)
	assert.Equal(t, "example.com", s.Domains[0].Host)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDomainByHost(t *testing.T) {
	t.Parallel()

	s := &Spec{Domains: []*Domain{{Host: "a.com"}, {Host: "*"}}}
	assert.NotNil(t, s.DomainByHost("a.com"))
	assert.NotNil(t, s.DomainByHost("*"))
	assert.Nil(t, s.DomainByHost("b.com"))
}

func TestUseHelpers(t *testing.T) {
	t.Parallel()

	u := Use("a", "b")
	assert.False(t, u.Clear)
	assert.Equal(t, []string{"a", "b"}, u.Names)

	c := ClearUse()
	assert.True(t, c.Clear)
	assert.Empty(t, c.Names)
}
