// Copyright the webserv contributors.
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

package router

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/FirePh0enix/webserv/config"
	"github.com/FirePh0enix/webserv/httpmsg"
)

// Route resolves req against srv's locations and dispatches to the
// appropriate handler, applying the method check, body-size check, and
// error-page substitution described in spec §4.5. srv.Locations must
// already be sorted longest-prefix-first (config.ServerConfig.SortLocations
// does this at validation time); ties resolve to declaration order,
// which the stable sort preserves.
func Route(srv config.ServerConfig, req httpmsg.Request) *httpmsg.Response {
	loc, ok := matchLocation(srv, req.Path)
	if !ok {
		return withErrorPage(srv, errorResponse(404))
	}

	if !loc.AllowsMethod(config.Method(req.Method)) {
		return withErrorPage(srv, errorResponse(405))
	}

	if req.HasContentLength && req.ContentLength > srv.MaxBodySizeFor(loc) {
		return withErrorPage(srv, errorResponse(413))
	}

	resp := dispatch(srv, req, loc)
	if resp.Status >= 400 {
		resp = withErrorPage(srv, resp)
	}
	return resp
}

// matchLocation returns the location with the longest prefix matching
// path. Determinism (§8): for a fixed ServerConfig and path, this always
// returns the same location.
func matchLocation(srv config.ServerConfig, reqPath string) (config.LocationConfig, bool) {
	for _, loc := range srv.Locations {
		if strings.HasPrefix(reqPath, loc.Prefix) {
			return loc, true
		}
	}
	return config.LocationConfig{}, false
}

func dispatch(srv config.ServerConfig, req httpmsg.Request, loc config.LocationConfig) *httpmsg.Response {
	if loc.HasRedirect {
		return redirectHandler(loc)
	}

	if interpreter, ok := loc.CGIFor(req.Path); ok {
		rel := strings.TrimPrefix(req.Path, loc.Prefix)
		rel = strings.TrimPrefix(rel, "/")
		scriptPath := filepath.Join(loc.Root, rel)
		if _, err := os.Stat(scriptPath); err != nil {
			return errorResponse(404)
		}
		return cgiHandler(req, loc, scriptPath, interpreter)
	}

	return staticHandler(req, loc)
}

// withErrorPage substitutes resp's body with the server's configured
// error_page for resp.Status, if one exists and can be read; otherwise
// resp is returned unchanged.
func withErrorPage(srv config.ServerConfig, resp *httpmsg.Response) *httpmsg.Response {
	path, ok := srv.ErrorPages[resp.Status]
	if !ok {
		return resp
	}
	if _, err := os.Stat(path); err != nil {
		return resp
	}
	resp.Body = httpmsg.FileBody(path)
	resp.SetHeader("Content-Type", contentTypeFor(path))
	return resp
}
