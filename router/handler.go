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

// Package router resolves a parsed request to a virtual host and location,
// applies the method/body-size checks, and dispatches to a Handler: the
// boundary to the out-of-scope concrete response body producers (static
// file serving, CGI, directory autoindex, redirects) described in the
// spec's §6 handler contract.
package router

import (
	"bytes"
	"fmt"
	"html"
	"mime"
	"net/textproto"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/FirePh0enix/webserv/config"
	"github.com/FirePh0enix/webserv/httpmsg"
)

// Handler takes a parsed request plus the location it matched and returns
// a response. The router builds one of the concrete handlers below per
// dispatch; handlers never retain the request or location they're given.
type Handler func(req httpmsg.Request, loc config.LocationConfig) *httpmsg.Response

var extraMIMETypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
}

func contentTypeFor(name string) string {
	ext := filepath.Ext(name)
	if ct, ok := extraMIMETypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// staticHandler serves a file from loc.Root, honoring index files and
// autoindex for directories.
func staticHandler(req httpmsg.Request, loc config.LocationConfig) *httpmsg.Response {
	rel := strings.TrimPrefix(req.Path, loc.Prefix)
	rel = strings.TrimPrefix(rel, "/")

	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return errorResponse(403)
	}

	fullPath := filepath.Join(loc.Root, cleaned)

	info, err := os.Stat(fullPath)
	if err != nil {
		return errorResponse(404)
	}

	if info.IsDir() {
		return serveDirectory(fullPath, loc)
	}

	resp := httpmsg.NewResponse(200)
	resp.SetHeader("Content-Type", contentTypeFor(fullPath))
	resp.Body = httpmsg.FileBody(fullPath)
	if req.Method == httpmsg.HEAD {
		resp.NoBody = true
	}
	return resp
}

func serveDirectory(dirPath string, loc config.LocationConfig) *httpmsg.Response {
	for _, index := range loc.Index {
		candidate := filepath.Join(dirPath, index)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			resp := httpmsg.NewResponse(200)
			resp.SetHeader("Content-Type", contentTypeFor(candidate))
			resp.Body = httpmsg.FileBody(candidate)
			return resp
		}
	}

	if !loc.Autoindex {
		return errorResponse(404)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return errorResponse(404)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("<html><body><ul>\n")
	for _, name := range names {
		fmt.Fprintf(&buf, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(name), html.EscapeString(name))
	}
	buf.WriteString("</ul></body></html>\n")

	resp := httpmsg.NewResponse(200)
	resp.SetHeader("Content-Type", "text/html; charset=utf-8")
	resp.Body = httpmsg.BytesBody(buf.Bytes())
	return resp
}

// redirectHandler emits the location's configured `return` response.
func redirectHandler(loc config.LocationConfig) *httpmsg.Response {
	resp := httpmsg.NewResponse(loc.RedirectCode)
	resp.SetHeader("Location", loc.RedirectURL)
	resp.Body = httpmsg.BytesBody(nil)
	return resp
}

// cgiHandler invokes interpreter as a CGI subprocess, per the handler
// contract's boundary to external body producers. This runs inline and
// therefore blocks the event loop for its duration (§5's acknowledged
// file-I/O simplification, extended to subprocess execution).
func cgiHandler(req httpmsg.Request, loc config.LocationConfig, scriptPath, interpreter string) *httpmsg.Response {
	cmd := exec.Command(interpreter, scriptPath)
	cmd.Env = append(os.Environ(),
		"REQUEST_METHOD="+string(req.Method),
		"PATH_INFO="+req.Path,
		"QUERY_STRING="+req.Query.Encode(),
		"SCRIPT_FILENAME="+scriptPath,
		"SERVER_PROTOCOL="+req.Protocol,
		"CONTENT_LENGTH="+strconv.FormatInt(req.ContentLength, 10),
		"CONTENT_TYPE="+req.Header("Content-Type"),
		"GATEWAY_INTERFACE=CGI/1.1",
	)
	cmd.Stdin = bytes.NewReader(req.Body)

	out, err := cmd.Output()
	if err != nil {
		return errorResponse(500)
	}

	headers, body := splitCGIOutput(out)
	resp := httpmsg.NewResponse(200)
	for key, value := range headers {
		if strings.EqualFold(key, "Status") {
			if code, convErr := strconv.Atoi(strings.Fields(value)[0]); convErr == nil {
				resp.Status = code
			}
			continue
		}
		resp.SetHeader(key, value)
	}
	resp.Body = httpmsg.BytesBody(body)
	return resp
}

// splitCGIOutput separates the CGI header block (Key: Value lines up to a
// blank line) from the response body, the way a CGI gateway does.
func splitCGIOutput(out []byte) (map[string]string, []byte) {
	headers := map[string]string{}
	text := string(out)
	sep := "\r\n\r\n"
	idx := strings.Index(text, sep)
	altSep := false
	if idx < 0 {
		sep = "\n\n"
		idx = strings.Index(text, sep)
		altSep = true
	}
	if idx < 0 {
		return headers, out
	}

	headerSection := text[:idx]
	bodyStart := idx + len(sep)
	lineSep := "\r\n"
	if altSep {
		lineSep = "\n"
	}
	for _, line := range strings.Split(headerSection, lineSep) {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:colon]))
		headers[key] = strings.TrimSpace(line[colon+1:])
	}
	return headers, out[bodyStart:]
}

func errorResponse(status int) *httpmsg.Response {
	resp := httpmsg.NewResponse(status)
	resp.Body = httpmsg.BytesBody([]byte(status2xxBody(status)))
	resp.SetHeader("Content-Type", "text/plain; charset=utf-8")
	return resp
}

func status2xxBody(status int) string {
	if phrase, ok := httpmsg.ReasonPhrase[status]; ok {
		return fmt.Sprintf("%d %s\n", status, phrase)
	}
	return fmt.Sprintf("%d\n", status)
}
