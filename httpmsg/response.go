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

package httpmsg

import (
	"bytes"
	"fmt"
	"net/textproto"
	"os"
	"strconv"
)

// ReasonPhrase maps the handful of status codes this server is required to
// speak (§6) to their standard reason phrase. The full status-code
// registry is an out-of-scope external collaborator; this is just the
// subset the core itself ever constructs.
var ReasonPhrase = map[int]string{
	200: "OK",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	411: "Length Required",
	413: "Payload Too Large",
	500: "Internal Server Error",
}

// BodySource is the body of a Response: either bytes already in memory, or
// a file path whose whole content the writer reads into memory at send
// time. Exactly one of the two
// is meaningful, selected by FromFile.
type BodySource struct {
	Bytes    []byte
	FromFile bool
	FilePath string
}

// BytesBody wraps an in-memory body.
func BytesBody(b []byte) BodySource {
	return BodySource{Bytes: b}
}

// FileBody wraps a body the writer should read from disk at send time.
func FileBody(path string) BodySource {
	return BodySource{FromFile: true, FilePath: path}
}

// Response is a status line, headers, and a body source, ready to be
// serialized onto a connection.
type Response struct {
	Status  int
	Headers textproto.MIMEHeader
	Body    BodySource
	// NoBody forces an empty body even if Body carries bytes, for HEAD
	// responses: the Content-Length header still reflects what a GET of
	// the same resource would have sent.
	NoBody bool
}

// NewResponse starts a response with the given status and an empty header
// set.
func NewResponse(status int) *Response {
	return &Response{Status: status, Headers: textproto.MIMEHeader{}}
}

// SetHeader sets key (case-insensitively) to value, overwriting any
// previous value.
func (r *Response) SetHeader(key, value string) {
	r.Headers.Set(key, value)
}

func reason(code int) string {
	if r, ok := ReasonPhrase[code]; ok {
		return r
	}
	return "Unknown"
}

// Serialize resolves the body (reading it from disk if it is a FileBody),
// sets Content-Length, and returns the full byte sequence ready to be
// written to the socket. The event loop writes it across as many writable
// events as a partially accepting socket needs; Serialize itself always
// produces the complete response in memory.
func (r *Response) Serialize() ([]byte, error) {
	body := r.Body.Bytes
	if r.Body.FromFile {
		data, err := os.ReadFile(r.Body.FilePath)
		if err != nil {
			return nil, err
		}
		body = data
	}

	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, reason(r.Status))
	for key, values := range r.Headers {
		for _, v := range values {
			fmt.Fprintf(&buf, "%s: %s\r\n", key, v)
		}
	}
	buf.WriteString("\r\n")
	if !r.NoBody {
		buf.Write(body)
	}
	return buf.Bytes(), nil
}
