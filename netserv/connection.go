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

// Package netserv implements the single-threaded, epoll-driven connection
// multiplexer: one listening socket per distinct address, a Connection
// state machine per accepted fd, and the event loop that drives both.
package netserv

import (
	"github.com/FirePh0enix/webserv/httpmsg"
)

// State is one of the four states a Connection can be in, per §4.7.
type State int

const (
	// ReadingHeader is the initial state: the connection is accumulating
	// bytes until the header terminator appears.
	ReadingHeader State = iota
	// ReadingBody is entered once a complete header names a Content-Length;
	// the connection accumulates body bytes until bytes_read >= that length.
	ReadingBody
	// Responding means a request is fully received and a response is
	// pending a writable event.
	Responding
	// Closed means the fd has been closed and deregistered.
	Closed
)

func (s State) String() string {
	switch s {
	case ReadingHeader:
		return "ReadingHeader"
	case ReadingBody:
		return "ReadingBody"
	case Responding:
		return "Responding"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Connection is one accepted client socket and its parse state. It belongs
// to exactly one Server (identified by ListenFd) and is addressed by its
// own fd in the event loop's connection map.
type Connection struct {
	Fd         int
	ListenFd   int
	RemoteAddr string

	State State

	// buf accumulates header bytes across ReadingHeader reads; once the
	// terminator is found it is parsed and cleared, per §4.7's "transient
	// parse buffer" note.
	buf []byte

	// bodyBuf accumulates body bytes (the header-terminator leftover, plus
	// every subsequent ReadingBody chunk) so LastRequest.Body is populated
	// once the request reaches Responding, e.g. for CGI stdin.
	bodyBuf []byte

	LastRequest httpmsg.Request
	BytesRead   int64

	// forcedStatus latches a response status the state machine determined
	// before the handler ran (400 for a header section that fails to parse,
	// 413 for a body that overran Content-Length), overriding whatever the
	// router would have produced.
	forcedStatus int

	PendingResponse []byte
	writeOffset     int

	// Transitions counts every state change this connection has made, the
	// invariant §8 tests: each feed/flush call advances it by exactly the
	// number of edges actually taken, never more.
	Transitions int
}

// NewConnection wraps an accepted fd in its initial ReadingHeader state.
func NewConnection(fd, listenFd int, remoteAddr string) *Connection {
	return &Connection{Fd: fd, ListenFd: listenFd, RemoteAddr: remoteAddr, State: ReadingHeader}
}

func (c *Connection) setState(next State) {
	if next != c.State {
		c.Transitions++
	}
	c.State = next
}

// Feed processes the freshly-read bytes in chunk and advances the
// connection's state machine per §4.7. It never blocks and never touches
// the fd directly; the event loop performs the actual epoll registration
// changes based on the resulting State.
func (c *Connection) Feed(chunk []byte) error {
	switch c.State {
	case ReadingHeader:
		c.buf = append(c.buf, chunk...)
		req, err := httpmsg.Parse(c.buf)
		if err == httpmsg.ErrIncompleteHeader {
			return nil
		}
		if err != nil {
			c.forcedStatus = 400
			c.setState(Responding)
			return nil
		}

		c.LastRequest = req
		leftover := c.buf[req.HeaderSize():]
		c.bodyBuf = append(c.bodyBuf, leftover...)
		c.BytesRead = int64(len(leftover))
		c.buf = nil

		if !req.HasContentLength || req.ContentLength == 0 {
			c.setState(Responding)
			return nil
		}

		c.setState(ReadingBody)
		if c.BytesRead >= req.ContentLength {
			if c.BytesRead > req.ContentLength {
				c.forcedStatus = 413
			}
			c.setState(Responding)
		}

	case ReadingBody:
		c.bodyBuf = append(c.bodyBuf, chunk...)
		c.BytesRead += int64(len(chunk))
		if c.BytesRead >= c.LastRequest.ContentLength {
			if c.BytesRead > c.LastRequest.ContentLength {
				c.forcedStatus = 413
			}
			c.setState(Responding)
		}
	}

	if c.State == Responding {
		c.LastRequest.Body = c.bodyBuf
	}
	return nil
}

// ForcedStatus returns the status the state machine determined should
// override the router's own decision (400 for an unparsable header, 413
// for an overrun body), and whether one was latched.
func (c *Connection) ForcedStatus() (int, bool) {
	if c.forcedStatus == 0 {
		return 0, false
	}
	return c.forcedStatus, true
}

// PrepareResponse stashes the serialized bytes to be sent on writable
// events; the event loop writes as much of Remaining as the socket accepts
// and records the progress with Advance.
func (c *Connection) PrepareResponse(b []byte) {
	c.PendingResponse = b
	c.writeOffset = 0
}

// Remaining returns the unsent tail of the pending response.
func (c *Connection) Remaining() []byte {
	return c.PendingResponse[c.writeOffset:]
}

// Advance records that n more bytes of the pending response were written.
func (c *Connection) Advance(n int) {
	c.writeOffset += n
}

// FullySent reports whether the entire pending response has been written.
func (c *Connection) FullySent() bool {
	return c.writeOffset >= len(c.PendingResponse)
}

// Reset returns the connection to ReadingHeader for a keep-alive reuse,
// clearing every field tied to the request just completed.
func (c *Connection) Reset() {
	c.buf = nil
	c.bodyBuf = nil
	c.BytesRead = 0
	c.forcedStatus = 0
	c.PendingResponse = nil
	c.writeOffset = 0
	c.LastRequest = httpmsg.Request{}
	c.setState(ReadingHeader)
}

// Close marks the connection Closed. The event loop is responsible for the
// actual fd close and epoll deregistration.
func (c *Connection) Close() {
	c.setState(Closed)
}
