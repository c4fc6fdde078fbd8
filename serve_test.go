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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/hostmux/spec"
)

// buildRouter registers the given handlers, parses the YAML spec, and
// publishes the table.
func buildRouter(t *testing.T, specYAML string, handlers map[string]HandlerFunc, opts ...Option) *Router {
	t.Helper()

	r := MustNew(opts...)
	for name, h := range handlers {
		r.Handle(name, h)
	}
	s, err := spec.Parse([]byte(specYAML))
	require.NoError(t, err)
	require.NoError(t, r.Routes(s))
	return r
}

func get(r *Router, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestServeBasicDispatch(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /:
    get: home
  /users/:id:
    get: user
`, map[string]HandlerFunc{
		"home": func(c *Context) { c.String(http.StatusOK, "home") },
		"user": func(c *Context) { c.String(http.StatusOK, "user "+c.Param("id")) },
	})

	w := get(r, "http://example.com/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home", w.Body.String())

	w = get(r, "http://example.com/users/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user 42", w.Body.String())

	w = get(r, "http://other.com/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeCaseInsensitivePath(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /about:
    get: about
  /users/:id:
    get: user
`, map[string]HandlerFunc{
		"about": func(c *Context) { c.String(http.StatusOK, "about") },
		"user":  func(c *Context) { c.String(http.StatusOK, c.Param("id")) },
	})

	w := get(r, "http://example.com/About")
	assert.Equal(t, http.StatusOK, w.Code)

	// Captured values come from the normalized path.
	w = get(r, "http://example.com/users/ABC")
	assert.Equal(t, "abc", w.Body.String())
}

func TestServeWildcardSubdomain(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
"*.example.com":
  /:
    get: tenant
`, map[string]HandlerFunc{
		"tenant": func(c *Context) {
			c.String(http.StatusOK, c.Subdomain()+"@"+c.Domain())
		},
	})

	w := get(r, "http://acme.example.com/")
	assert.Equal(t, "acme@*.example.com", w.Body.String())

	// The bare suffix does not match its own wildcard.
	w = get(r, "http://example.com/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /things:
    get: h
    post: h
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.NoContent() },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "http://example.com/things", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
}

func TestServeTrailingSlashStrict(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /users:
    get: h
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.NoContent() },
	})

	assert.Equal(t, http.StatusNoContent, get(r, "http://example.com/users").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "http://example.com/users/").Code)
}

func TestServeTrailingSlashIgnore(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /users:
    get: h
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.NoContent() },
	}, WithTrailingSlash(TrailingSlashIgnore))

	assert.Equal(t, http.StatusNoContent, get(r, "http://example.com/users/").Code)
	assert.Equal(t, http.StatusNoContent, get(r, "http://example.com/users").Code)
}

func TestServeTrailingSlashRedirect(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /users:
    get: h
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.NoContent() },
	}, WithTrailingSlash(TrailingSlashRedirect))

	w := get(r, "http://example.com/users/?page=2")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/users?page=2", w.Header().Get("Location"))

	// Unknown paths redirect too; the trimmed form is free to 404 on the
	// follow-up request.
	w = get(r, "http://example.com/nonexistent/")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/nonexistent", w.Header().Get("Location"))

	// The root path never redirects.
	assert.Equal(t, http.StatusNotFound, get(r, "http://example.com/").Code)
}

func TestServeTrailingSlashRedirectStatus308(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /users:
    get: h
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.NoContent() },
	}, WithTrailingSlash(TrailingSlashRedirect), WithTrailingSlashStatus(http.StatusPermanentRedirect))

	assert.Equal(t, http.StatusPermanentRedirect, get(r, "http://example.com/users/").Code)
}

func TestServeDeclaredRedirects(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /new-home:
    get:
      to: h
      redirects_from: [/old-home, /ancient-home]
  /temp:
    get:
      to: h
      redirects_from: [/moved]
      redirect_status: 302
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.NoContent() },
	})

	w := get(r, "http://example.com/old-home?q=1")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/new-home?q=1", w.Header().Get("Location"))

	w = get(r, "http://example.com/ancient-home")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)

	w = get(r, "http://example.com/moved")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/temp", w.Header().Get("Location"))
}

func TestServeRootLocaleRedirect(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  locales: [en, de]
  default_locale: de
  root_locale_redirect: true
  /home:
    get:
      to: h
      localized:
        en: /home
        de: /home
`, map[string]HandlerFunc{
		"h": func(c *Context) { c.String(http.StatusOK, c.Locale()) },
	})

	w := get(r, "http://example.com/")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/de/", w.Header().Get("Location"))

	assert.Equal(t, "en", get(r, "http://example.com/en/home").Body.String())
	assert.Equal(t, "de", get(r, "http://example.com/de/home").Body.String())

	// The unprefixed template is not registered.
	assert.Equal(t, http.StatusNotFound, get(r, "http://example.com/home").Code)
}

func TestServeMethodOverride(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /items/:id:
    delete: del
    get: show
`, map[string]HandlerFunc{
		"del":  func(c *Context) { c.String(http.StatusOK, "deleted "+c.Param("id")) },
		"show": func(c *Context) { c.String(http.StatusOK, "shown") },
	}, WithMethodOverride())

	// Query field on POST.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example.com/items/7?_method=delete", nil))
	assert.Equal(t, "deleted 7", w.Body.String())

	// Form field on POST.
	req := httptest.NewRequest(http.MethodPost, "http://example.com/items/7",
		strings.NewReader("_method=DELETE"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "deleted 7", w.Body.String())

	// GET never overrides.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example.com/items/7?_method=delete", nil))
	assert.Equal(t, "shown", w.Body.String())

	// Unsafe targets are ignored; the POST then 405s.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example.com/items/7?_method=get", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServeStaticAssets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "font.woff2"), []byte("wf2"), 0o644))

	r := buildRouter(t, `
example.com:
  /app.css:
    get: route-wins
`, map[string]HandlerFunc{
		"route-wins": func(c *Context) { c.String(http.StatusOK, "route") },
	},
		WithStaticAssets(dir),
		WithMimeTypes(map[string]string{".woff2": "font/woff2"}),
	)

	// Routes win over files.
	assert.Equal(t, "route", get(r, "http://example.com/app.css").Body.String())

	w := get(r, "http://example.com/font.woff2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "font/woff2", w.Header().Get("Content-Type"))
	assert.Equal(t, "wf2", w.Body.String())

	// Only GET serves files.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example.com/font.woff2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNotFound, get(r, "http://example.com/absent.js").Code)
}

func TestServeStaticTraversalRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("ok"), 0o644))

	var events []DiagnosticEvent
	var mu sync.Mutex
	r := buildRouter(t, `
example.com:
  /:
    get: home
`, map[string]HandlerFunc{
		"home": func(c *Context) { c.NoContent() },
	},
		WithStaticAssets(dir),
		WithDiagnostics(DiagnosticHandlerFunc(func(e DiagnosticEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.URL.Path = "/../secrets.txt"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mu.Lock()
	defer mu.Unlock()
	var sawTraversal bool
	for _, e := range events {
		if e.Kind == DiagStaticTraversal {
			sawTraversal = true
		}
	}
	assert.True(t, sawTraversal)
}

func TestServeCustomNotFound(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /:
    get: home
`, map[string]HandlerFunc{
		"home": func(c *Context) { c.NoContent() },
	}, WithNotFoundHandler(func(c *Context) {
		c.JSON(http.StatusNotFound, map[string]string{"error": "nope"})
	}))

	w := get(r, "http://example.com/absent")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "nope")
}

func TestServePanicSafetyNet(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /boom:
    get: boom
`, map[string]HandlerFunc{
		"boom": func(c *Context) { panic("kaboom") },
	})

	w := get(r, "http://example.com/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "500 Internal Server Error")
}

func TestServeErrorHandler(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("handler failed")
	var received error
	r := buildRouter(t, `
example.com:
  /fail:
    get: fail
`, map[string]HandlerFunc{
		"fail": func(c *Context) { c.Error(sentinel) },
	}, WithErrorHandler(func(c *Context, err error) {
		received = err
		c.String(http.StatusBadGateway, "custom error page")
	}))

	w := get(r, "http://example.com/fail")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.ErrorIs(t, received, sentinel)
}

func TestServeErrorHandlerPanicContained(t *testing.T) {
	t.Parallel()

	var events []DiagnosticEvent
	var mu sync.Mutex
	r := buildRouter(t, `
example.com:
  /fail:
    get: fail
`, map[string]HandlerFunc{
		"fail": func(c *Context) { c.Error(errors.New("first failure")) },
	},
		WithErrorHandler(func(c *Context, err error) { panic("error handler broke too") }),
		WithDiagnostics(DiagnosticHandlerFunc(func(e DiagnosticEvent) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		})),
	)

	w := get(r, "http://example.com/fail")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "500 Internal Server Error", w.Body.String())

	mu.Lock()
	defer mu.Unlock()
	var saw bool
	for _, e := range events {
		if e.Kind == DiagErrorHandlerPanic {
			saw = true
		}
	}
	assert.True(t, saw)
}

func TestServeValueHandlers(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.HandleValue("str", func(c *Context) any { return "plain" })
	r.HandleValue("bytes", func(c *Context) any { return []byte{1, 2} })
	r.HandleValue("obj", func(c *Context) any { return map[string]int{"n": 7} })
	r.HandleValue("resp", func(c *Context) any {
		return &Response{Status: http.StatusTeapot, ContentType: "text/x-tea", Body: []byte("tea")}
	})
	r.HandleValue("headers", func(c *Context) any {
		return &Response{
			Status:  http.StatusCreated,
			Headers: map[string]string{"Location": "/things/9", "X-Thing": "9"},
			Value:   map[string]int{"id": 9},
		}
	})
	r.HandleValue("fail", func(c *Context) any { return errors.New("value error") })
	r.HandleValue("already", func(c *Context) any {
		c.String(http.StatusAccepted, "written")
		return "ignored"
	})
	r.HandleValue("none", func(c *Context) any { return nil })

	s, err := spec.Parse([]byte(`
example.com:
  /str:
    get: str
  /bytes:
    get: bytes
  /obj:
    get: obj
  /resp:
    get: resp
  /headers:
    get: headers
  /fail:
    get: fail
  /already:
    get: already
  /none:
    get: none
`))
	require.NoError(t, err)
	require.NoError(t, r.Routes(s))

	w := get(r, "http://example.com/str")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "plain", w.Body.String())

	w = get(r, "http://example.com/bytes")
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = get(r, "http://example.com/obj")
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"n":7`)

	w = get(r, "http://example.com/resp")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "text/x-tea", w.Header().Get("Content-Type"))
	assert.Equal(t, "tea", w.Body.String())

	w = get(r, "http://example.com/headers")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/things/9", w.Header().Get("Location"))
	assert.Equal(t, "9", w.Header().Get("X-Thing"))
	assert.Contains(t, w.Body.String(), `"id":9`)

	w = get(r, "http://example.com/fail")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = get(r, "http://example.com/already")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "written", w.Body.String())

	w = get(r, "http://example.com/none")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestServeAmbientStateIsolation(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  locales: [en, fr]
  /profile:
    get:
      to: who
      localized:
        en: /profile
        fr: /profile
"*.example.com":
  /profile:
    get: who
`, map[string]HandlerFunc{
		"who": func(c *Context) {
			fmt.Fprintf(c.Response, "%s|%s|%s", c.Domain(), c.Subdomain(), c.Locale())
		},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				w := get(r, "http://example.com/fr/profile")
				assert.Equal(t, "example.com||fr", w.Body.String())
				w = get(r, "http://shop.example.com/profile")
				assert.Equal(t, "*.example.com|shop|", w.Body.String())
			}
		}()
	}
	wg.Wait()
}

func TestServeConstraintMiss(t *testing.T) {
	t.Parallel()

	r := buildRouter(t, `
example.com:
  /orders/:id:
    constraints:
      id: "[0-9]+"
    get: order
`, map[string]HandlerFunc{
		"order": func(c *Context) { c.String(http.StatusOK, c.Param("id")) },
	})

	assert.Equal(t, http.StatusOK, get(r, "http://example.com/orders/42").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "http://example.com/orders/abc").Code)
}

func TestServeNoTableYet(t *testing.T) {
	t.Parallel()

	r := MustNew()
	assert.Equal(t, http.StatusNotFound, get(r, "http://example.com/").Code)
}
