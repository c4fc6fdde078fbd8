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
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// serveStaticAsset tries to serve the request path as a file under the
// static root. It runs only after the route table missed, so defined
// routes always win over files. Files are read in full and closed before
// the response is written.
//
// Returns false when no file was served, letting the caller fall through
// to the not-found handler.
func (r *Router) serveStaticAsset(rw *responseWriter, req *http.Request) bool {
	rel := req.URL.Path
	if rel == "" || rel == "/" {
		return false
	}

	// Cleaning the rooted path strips any ".." escape before the join,
	// so the resolved file cannot leave the asset root.
	cleaned := path.Clean("/" + strings.TrimPrefix(rel, "/"))
	if cleaned != rel {
		r.emitDiagnostic(DiagStaticTraversal, "static asset path rejected",
			map[string]any{"path": rel})
		return false
	}

	full := filepath.Join(r.staticRoot, filepath.FromSlash(cleaned))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return false
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return false
	}

	rw.Header().Set("Content-Type", r.contentTypeFor(full))
	rw.Header().Set("Content-Length", strconv.Itoa(len(data)))
	rw.WriteHeader(http.StatusOK)
	rw.Write(data)
	return true
}

// contentTypeFor resolves the Content-Type for a file: configured
// overrides first, then the platform MIME table, then octet-stream.
func (r *Router) contentTypeFor(file string) string {
	ext := strings.ToLower(filepath.Ext(file))
	if ct, ok := r.mimeOverrides[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
