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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestContext(method, target string) (*Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := &Context{
		Request:  httptest.NewRequest(method, target, nil),
		Response: &responseWriter{ResponseWriter: rec},
		router:   MustNew(),
		index:    -1,
	}
	return c, rec
}

func TestParamStorage(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/")
	c.SetParam("id", "42")
	c.SetParam("slug", "widget")

	assert.Equal(t, "42", c.Param("id"))
	assert.Equal(t, "widget", c.Param("slug"))
	assert.Empty(t, c.Param("absent"))
	assert.Equal(t, map[string]string{"id": "42", "slug": "widget"}, c.Params())
}

func TestParamOverflowBeyondFixedSlots(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/")
	for i := range maxStackParams + 3 {
		c.SetParam(fmt.Sprintf("p%d", i), fmt.Sprintf("v%d", i))
	}

	// Both the fixed slots and the overflow map must answer.
	assert.Equal(t, "v0", c.Param("p0"))
	assert.Equal(t, fmt.Sprintf("v%d", maxStackParams), c.Param(fmt.Sprintf("p%d", maxStackParams)))
	assert.Len(t, c.Params(), maxStackParams+3)

	c.reset()
	assert.Empty(t, c.Param("p0"))
	assert.Empty(t, c.Params())
}

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/search?q=go&empty=")
	assert.Equal(t, "go", c.Query("q"))
	assert.Equal(t, "fallback", c.DefaultQuery("missing", "fallback"))
	assert.Equal(t, "fallback", c.DefaultQuery("empty", "fallback"))
}

func TestHostnameStripsPort(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com:8080/")
	assert.Equal(t, "example.com", c.Hostname())
	assert.Equal(t, "http://example.com:8080", c.BaseURL())
}

func TestWriters(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		c, rec := newRequestContext(http.MethodGet, "http://example.com/")
		require.NoError(t, c.JSON(http.StatusCreated, map[string]string{"k": "v"}))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"k":"v"}`, rec.Body.String())
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		c, rec := newRequestContext(http.MethodGet, "http://example.com/")
		require.NoError(t, c.YAML(http.StatusOK, map[string]string{"k": "v"}))
		assert.Contains(t, rec.Body.String(), "k: v")
		assert.Equal(t, "application/yaml; charset=utf-8", rec.Header().Get("Content-Type"))
	})

	t.Run("html", func(t *testing.T) {
		t.Parallel()
		c, rec := newRequestContext(http.MethodGet, "http://example.com/")
		require.NoError(t, c.HTML(http.StatusOK, "<p>hi</p>"))
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	})

	t.Run("redirect", func(t *testing.T) {
		t.Parallel()
		c, rec := newRequestContext(http.MethodGet, "http://example.com/")
		c.Redirect(http.StatusFound, "/elsewhere")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/elsewhere", rec.Header().Get("Location"))
	})
}

func TestWrittenTracksResponseStart(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/")
	assert.False(t, c.Written())
	c.NoContent()
	assert.True(t, c.Written())
}

func TestPathWithoutLocale(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/de/products/widget")
	c.locale = "de"
	assert.Equal(t, "/products/widget", c.PathWithoutLocale())

	c.Request = httptest.NewRequest(http.MethodGet, "http://example.com/de", nil)
	assert.Equal(t, "/", c.PathWithoutLocale())

	c.locale = ""
	c.Request = httptest.NewRequest(http.MethodGet, "http://example.com/plain", nil)
	assert.Equal(t, "/plain", c.PathWithoutLocale())
}

func TestLocaleFallsBackToDefault(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/")
	c.defaultLocale = "en"
	assert.Equal(t, "en", c.Locale())
	c.locale = "de"
	assert.Equal(t, "de", c.Locale())
}

func TestLoggerFallsBackToNoop(t *testing.T) {
	t.Parallel()

	c, _ := newRequestContext(http.MethodGet, "http://example.com/")
	require.NotNil(t, c.Logger())
	// Cached after first call.
	assert.Same(t, c.Logger(), c.Logger())
}

func TestPipelineNextAndAbort(t *testing.T) {
	t.Parallel()

	var order []string
	c, rec := newRequestContext(http.MethodGet, "http://example.com/")
	c.handlers = []any{
		HandlerFunc(func(c *Context) {
			order = append(order, "mw-in")
			c.Next()
			order = append(order, "mw-out")
		}),
		HandlerFunc(func(c *Context) {
			order = append(order, "guard")
			c.AbortWithStatus(http.StatusForbidden)
		}),
		HandlerFunc(func(c *Context) {
			order = append(order, "never")
		}),
	}
	c.Next()

	assert.Equal(t, []string{"mw-in", "guard", "mw-out"}, order)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestPipelineHTTPHandlerAdapter(t *testing.T) {
	t.Parallel()

	c, rec := newRequestContext(http.MethodGet, "http://example.com/")
	c.handlers = []any{
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}),
	}
	c.Next()
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestPipelineRejectsUnknownHandlerShape(t *testing.T) {
	t.Parallel()

	c, rec := newRequestContext(http.MethodGet, "http://example.com/")
	c.handlers = []any{42}
	c.Next()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, c.IsAborted())
}
