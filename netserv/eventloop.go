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
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/FirePh0enix/webserv/httpmsg"
	"github.com/FirePh0enix/webserv/internal/wlog"
	"github.com/FirePh0enix/webserv/router"
)

// readSize is the chunk size handed to a single recv(2) call; the original
// fixed-size stack buffer this loop is grounded on used the same shape.
const readSize = 4096

// maxEvents bounds a single epoll_wait(2) call's ready-list size.
const maxEvents = 64

// EventLoop is the single-threaded, epoll-driven multiplexer of §4.8: one
// goroutine, one epoll instance, no worker pool. All state it touches
// (servers, conns) is only ever touched from the goroutine that calls Run.
type EventLoop struct {
	epollFd int
	servers map[int]*Server // keyed by ListenFd
	conns   map[int]*Connection
	running bool
}

// NewEventLoop creates the epoll instance and registers every server's
// listening socket for readability.
func NewEventLoop(servers []*Server) (*EventLoop, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("netserv: epoll_create1: %w", err)
	}

	l := &EventLoop{
		epollFd: fd,
		servers: map[int]*Server{},
		conns:   map[int]*Connection{},
	}

	for _, s := range servers {
		l.servers[s.ListenFd] = s
		if err := l.register(s.ListenFd, unix.EPOLLIN); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("netserv: register listener %d: %w", s.ListenFd, err)
		}
	}

	return l, nil
}

func (l *EventLoop) register(fd int, events uint32) error {
	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *EventLoop) modify(fd int, events uint32) error {
	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (l *EventLoop) deregister(fd int) error {
	return unix.EpollCtl(l.epollFd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Shutdown sets the flag Run checks between wakeups; Run returns once the
// in-flight epoll_wait call completes.
func (l *EventLoop) Shutdown() {
	l.running = false
}

// Run blocks, servicing events until Shutdown is called. On return every
// registered fd (listening sockets and open connections) has been closed.
func (l *EventLoop) Run() error {
	l.running = true
	events := make([]unix.EpollEvent, maxEvents)

	for l.running {
		n, err := unix.EpollWait(l.epollFd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("netserv: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			l.handleEvent(events[i])
		}
	}

	l.closeAll()
	return unix.Close(l.epollFd)
}

func (l *EventLoop) handleEvent(ev unix.EpollEvent) {
	fd := int(ev.Fd)

	if srv, ok := l.servers[fd]; ok {
		l.acceptAll(srv)
		return
	}

	conn, ok := l.conns[fd]
	if !ok {
		return
	}

	if ev.Events&(unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		l.closeConnection(conn)
		return
	}

	switch {
	case ev.Events&unix.EPOLLIN != 0:
		l.handleReadable(conn)
	case ev.Events&unix.EPOLLOUT != 0:
		l.handleWritable(conn)
	}
}

// acceptAll drains the listening socket's accept queue. §4.8's
// known-tradeoff note: accept is the one blocking call in this loop, but
// it is only ever reached because epoll already reported readability, so
// in practice it returns immediately or EAGAINs.
func (l *EventLoop) acceptAll(srv *Server) {
	for {
		fd, sa, err := unix.Accept(srv.ListenFd)
		if err != nil {
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				wlog.Log().Warn("accept failed", zap.Int("listen_fd", srv.ListenFd), zap.Error(err))
			}
			return
		}

		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			continue
		}

		if err := l.register(fd, unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR); err != nil {
			wlog.Log().Warn("epoll_ctl add failed", zap.Int("fd", fd), zap.Error(err))
			unix.Close(fd)
			continue
		}

		conn := NewConnection(fd, srv.ListenFd, remoteAddrString(sa))
		l.conns[fd] = conn
		wlog.Log().Debug("connection accepted", zap.Int("fd", fd))
	}
}

func remoteAddrString(sa unix.Sockaddr) string {
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d:%d", v4.Addr[0], v4.Addr[1], v4.Addr[2], v4.Addr[3], v4.Port)
}

func (l *EventLoop) handleReadable(conn *Connection) {
	buf := make([]byte, readSize)
	n, err := unix.Read(conn.Fd, buf)
	if n == 0 && err == nil {
		l.closeConnection(conn)
		return
	}
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		wlog.Log().Warn("recv failed", zap.Int("fd", conn.Fd), zap.Error(err))
		l.closeConnection(conn)
		return
	}

	if err := conn.Feed(buf[:n]); err != nil {
		l.closeConnection(conn)
		return
	}

	if conn.State == Responding {
		if err := l.modify(conn.Fd, unix.EPOLLOUT|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR); err != nil {
			wlog.Log().Warn("epoll_ctl mod failed", zap.Int("fd", conn.Fd), zap.Error(err))
		}
	}
}

// prepareResponse routes the connection's completed request and serializes
// the result, applying the forced-status latch, HEAD body omission, and the
// Connection header behavior from §4.8/§9.
func (l *EventLoop) prepareResponse(conn *Connection) {
	srv := l.servers[conn.ListenFd]
	req := conn.LastRequest

	var resp *httpmsg.Response
	if status, forced := conn.ForcedStatus(); forced {
		resp = httpmsg.NewResponse(status)
		resp.Body = httpmsg.BytesBody(nil)
	} else {
		host := router.SelectHost(srv.Hosts, srv.DefaultHost, req.Header("Host"))
		resp = router.Route(host, req)
	}

	if req.Method == httpmsg.HEAD {
		resp.NoBody = true
	}

	if req.IsKeepAlive() {
		resp.SetHeader("Connection", "keep-alive")
	}

	out, err := resp.Serialize()
	if err != nil {
		wlog.Log().Error("response serialize failed", zap.Int("fd", conn.Fd), zap.Error(err))
		out, _ = httpmsg.NewResponse(500).Serialize()
	}

	logLevel := wlog.Log().Info
	if resp.Status >= 400 {
		logLevel = wlog.Log().Warn
	}
	logLevel("request", zap.String("method", string(req.Method)), zap.String("path", req.Path), zap.Int("status", resp.Status))

	conn.PrepareResponse(out)
}

func (l *EventLoop) handleWritable(conn *Connection) {
	if conn.PendingResponse == nil {
		l.prepareResponse(conn)
	}
	remaining := conn.Remaining()
	n, err := unix.Write(conn.Fd, remaining)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		wlog.Log().Warn("send failed", zap.Int("fd", conn.Fd), zap.Error(err))
		l.closeConnection(conn)
		return
	}
	conn.Advance(n)
	if !conn.FullySent() {
		return
	}

	req := conn.LastRequest
	keepAlive := req.IsKeepAlive() && !req.IsClosed()
	if _, forced := conn.ForcedStatus(); forced {
		keepAlive = false
	}

	if !keepAlive {
		l.closeConnection(conn)
		return
	}

	conn.Reset()
	if err := l.modify(conn.Fd, unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR); err != nil {
		wlog.Log().Warn("epoll_ctl mod failed", zap.Int("fd", conn.Fd), zap.Error(err))
	}
}

func (l *EventLoop) closeConnection(conn *Connection) {
	_ = l.deregister(conn.Fd)
	unix.Close(conn.Fd)
	delete(l.conns, conn.Fd)
	conn.Close()
}

func (l *EventLoop) closeAll() {
	for fd := range l.conns {
		unix.Close(fd)
	}
	for fd := range l.servers {
		unix.Close(fd)
	}
}
