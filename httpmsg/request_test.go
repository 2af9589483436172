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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleGet(t *testing.T) {
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"
	req, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, GET, req.Method)
	require.Equal(t, "/index.html", req.Path)
	require.Equal(t, "HTTP/1.1", req.Protocol)
	require.Equal(t, "example.com", req.Header("Host"))
	require.Equal(t, len(raw), req.HeaderSize())
}

func TestParseIncompleteHeaderReturnsSentinel(t *testing.T) {
	_, err := Parse([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n"))
	require.ErrorIs(t, err, ErrIncompleteHeader)
}

func TestParseDuplicateHeadersLastWriteWins(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Thing: one\r\nX-Thing: two\r\n\r\n"
	req, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "two", req.Header("X-Thing"))
}

func TestParseHeaderKeysCaseInsensitive(t *testing.T) {
	raw := "GET / HTTP/1.1\r\ncontent-length: 5\r\n\r\n"
	req, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "5", req.Header("Content-Length"))
	require.True(t, req.HasContentLength)
	require.Equal(t, int64(5), req.ContentLength)
}

func TestParseNoContentLengthMeansNoBody(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n\r\n"
	req, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.False(t, req.HasContentLength)
}

func TestKeepAliveRequiresExplicitHeader(t *testing.T) {
	noHeader, _ := Parse([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.False(t, noHeader.IsKeepAlive())

	withHeader, _ := Parse([]byte("GET / HTTP/1.1\r\nConnection: keep-alive\r\n\r\n"))
	require.True(t, withHeader.IsKeepAlive())
}

func TestConnectionClosedAcceptsBothSpellings(t *testing.T) {
	close1, _ := Parse([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"))
	require.True(t, close1.IsClosed())

	close2, _ := Parse([]byte("GET / HTTP/1.1\r\nConnection: closed\r\n\r\n"))
	require.True(t, close2.IsClosed())
}

func TestParseQueryString(t *testing.T) {
	req, err := Parse([]byte("GET /search?q=go+lang&x=1 HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	require.Equal(t, "/search", req.Path)
	require.Equal(t, "go lang", req.Query.Get("q"))
	require.Equal(t, "1", req.Query.Get("x"))
}
