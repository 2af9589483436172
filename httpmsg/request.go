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

// Package httpmsg parses HTTP/1.1 request buffers and serializes
// responses back onto the wire. It is independent of how bytes arrive or
// leave; the event loop in netserv owns the sockets.
package httpmsg

import (
	"errors"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// Method is one of the four methods this server understands.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	DELETE Method = "DELETE"
	HEAD   Method = "HEAD"
)

const headerTerminator = "\r\n\r\n"

// ErrIncompleteHeader is returned by Parse when buf does not yet contain a
// full header section. The event loop is expected to keep reading and
// retry; Parse itself never blocks.
var ErrIncompleteHeader = errors.New("httpmsg: request header not yet complete")

// ErrMalformedRequest is returned when the header section is present but
// cannot be parsed as an HTTP/1.1 request line and headers.
var ErrMalformedRequest = errors.New("httpmsg: malformed request")

// Request is a parsed HTTP/1.1 request, valid only as far as its header
// section; the body is accumulated separately by the connection state
// machine and handed to a handler once complete.
type Request struct {
	Method           Method
	RawPath          string
	Path             string
	Query            url.Values
	Protocol         string
	Headers          textproto.MIMEHeader
	HeaderBytes      int // offset into the source buffer where the body starts
	ContentLength    int64
	HasContentLength bool
	Body             []byte
}

// HeaderSize returns the number of bytes the header section occupies in
// the original buffer, including the terminating blank line.
func (r Request) HeaderSize() int {
	return r.HeaderBytes
}

// Header returns the value of header key (case-insensitive), or "" if not
// set.
func (r Request) Header(key string) string {
	return r.Headers.Get(key)
}

// HasHeader reports whether key is present.
func (r Request) HasHeader(key string) bool {
	_, ok := r.Headers[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

// IsKeepAlive reports whether the client asked to keep the connection
// open. Per this server's deliberate deviation from the RFC 7230 default
// (§9's recorded Open Question), HTTP/1.1 does NOT default to keep-alive
// here: the client must send the literal header value "keep-alive".
func (r Request) IsKeepAlive() bool {
	return r.Header("Connection") == "keep-alive"
}

// IsClosed reports whether the client explicitly asked to close the
// connection. Both the RFC spelling "close" and the literal "closed" (a
// quirk preserved from the original implementation) are accepted.
func (r Request) IsClosed() bool {
	v := r.Header("Connection")
	return v == "close" || v == "closed"
}

// Parse parses an HTTP/1.1 request out of buf, which must already contain
// at least the full header section (the caller, typically the connection
// state machine, is responsible for not calling Parse until it has seen
// the "\r\n\r\n" terminator).
func Parse(buf []byte) (Request, error) {
	text := string(buf)
	idx := strings.Index(text, headerTerminator)
	if idx < 0 {
		return Request{}, ErrIncompleteHeader
	}

	headerSection := text[:idx]
	lines := strings.Split(headerSection, "\r\n")
	if len(lines) == 0 {
		return Request{}, ErrMalformedRequest
	}

	requestLine := strings.Split(lines[0], " ")
	if len(requestLine) != 3 {
		return Request{}, ErrMalformedRequest
	}

	req := Request{
		Method:      Method(requestLine[0]),
		RawPath:     requestLine[1],
		Protocol:    requestLine[2],
		Headers:     textproto.MIMEHeader{},
		HeaderBytes: idx + len(headerTerminator),
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return Request{}, ErrMalformedRequest
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:colon]))
		value := strings.TrimRight(line[colon+1:], " \t")
		value = strings.TrimLeft(value, " \t")
		// last write wins: overwrite rather than append
		req.Headers[key] = []string{value}
	}

	rawPath, query, _ := strings.Cut(req.RawPath, "?")
	req.Path = rawPath
	req.Query, _ = url.ParseQuery(query)
	// last write wins, as for headers: a repeated key keeps its final value
	for k, vs := range req.Query {
		req.Query[k] = vs[len(vs)-1:]
	}

	if cl := req.Header("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			req.ContentLength = n
			req.HasContentLength = true
		}
	}

	return req, nil
}
