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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeSetsContentLength(t *testing.T) {
	resp := NewResponse(200)
	resp.Body = BytesBody([]byte("hi"))
	out, err := resp.Serialize()
	require.NoError(t, err)
	s := string(out)
	require.True(t, strings.HasPrefix(s, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, s, "Content-Length: 2\r\n")
	require.True(t, strings.HasSuffix(s, "\r\n\r\nhi"))
}

func TestSerializeHeadOmitsBodyButKeepsLength(t *testing.T) {
	resp := NewResponse(200)
	resp.Body = BytesBody([]byte("hello"))
	resp.NoBody = true
	out, err := resp.Serialize()
	require.NoError(t, err)
	s := string(out)
	require.Contains(t, s, "Content-Length: 5\r\n")
	require.True(t, strings.HasSuffix(s, "\r\n\r\n"))
}

func TestSerializeFileBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

	resp := NewResponse(200)
	resp.Body = FileBody(path)
	out, err := resp.Serialize()
	require.NoError(t, err)
	s := string(out)
	require.Contains(t, s, "Content-Length: 2\r\n")
	require.True(t, strings.HasSuffix(s, "hi"))
}

func TestSerializeMissingFileErrors(t *testing.T) {
	resp := NewResponse(200)
	resp.Body = FileBody("/nonexistent/path/does/not/exist")
	_, err := resp.Serialize()
	require.Error(t, err)
}
