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

package netserv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionStartsInReadingHeader(t *testing.T) {
	c := NewConnection(3, 4, "127.0.0.1:9999")
	require.Equal(t, ReadingHeader, c.State)
	require.Equal(t, 0, c.Transitions)
}

func TestConnectionPartialHeaderStaysInReadingHeader(t *testing.T) {
	c := NewConnection(3, 4, "")
	require.NoError(t, c.Feed([]byte("GET / HTTP/1.1\r\n")))
	require.Equal(t, ReadingHeader, c.State)
	require.Equal(t, 0, c.Transitions)
}

func TestConnectionCompleteHeaderNoBodyGoesStraightToResponding(t *testing.T) {
	c := NewConnection(3, 4, "")
	require.NoError(t, c.Feed([]byte("GET / HTTP/1.1\r\n\r\n")))
	require.Equal(t, Responding, c.State)
	require.Equal(t, 1, c.Transitions)
}

func TestConnectionContentLengthEntersReadingBody(t *testing.T) {
	c := NewConnection(3, 4, "")
	require.NoError(t, c.Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhi")))
	require.Equal(t, ReadingBody, c.State)
	require.Equal(t, 1, c.Transitions)

	require.NoError(t, c.Feed([]byte("llo")))
	require.Equal(t, Responding, c.State)
	require.Equal(t, 2, c.Transitions)
	_, forced := c.ForcedStatus()
	require.False(t, forced)
	require.Equal(t, "hello", string(c.LastRequest.Body))
}

func TestConnectionBodyArrivingWithHeaderIsCaptured(t *testing.T) {
	c := NewConnection(3, 4, "")
	require.NoError(t, c.Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\nhi")))
	require.Equal(t, Responding, c.State)
	require.Equal(t, "hi", string(c.LastRequest.Body))
}

func TestConnectionOverrunBodyLatches413(t *testing.T) {
	c := NewConnection(3, 4, "")
	require.NoError(t, c.Feed([]byte("POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\ntoolong")))
	require.Equal(t, Responding, c.State)
	status, forced := c.ForcedStatus()
	require.True(t, forced)
	require.Equal(t, 413, status)
}

func TestConnectionResetReturnsToReadingHeader(t *testing.T) {
	c := NewConnection(3, 4, "")
	require.NoError(t, c.Feed([]byte("GET / HTTP/1.1\r\n\r\n")))
	require.Equal(t, Responding, c.State)

	c.PrepareResponse([]byte("HTTP/1.1 200 OK\r\n\r\n"))
	c.Reset()
	require.Equal(t, ReadingHeader, c.State)
	require.Equal(t, 0, int(c.BytesRead))
	require.Nil(t, c.PendingResponse)
}

func TestConnectionCloseIsTerminal(t *testing.T) {
	c := NewConnection(3, 4, "")
	c.Close()
	require.Equal(t, Closed, c.State)
}

func TestResponseWriteProgress(t *testing.T) {
	c := NewConnection(3, 4, "")
	c.PrepareResponse([]byte("0123456789"))
	require.Equal(t, "0123456789", string(c.Remaining()))
	c.Advance(4)
	require.Equal(t, "456789", string(c.Remaining()))
	require.False(t, c.FullySent())
	c.Advance(6)
	require.True(t, c.FullySent())
}
