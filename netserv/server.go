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

	"golang.org/x/sys/unix"

	"github.com/FirePh0enix/webserv/config"
)

// Server is one listening socket shared by every virtual host bound to the
// same listen address, per §3: several ServerConfigs with an identical
// `listen` directive collapse onto a single Server.
type Server struct {
	ListenFd    int
	Addr        string
	Hosts       map[string]config.ServerConfig
	DefaultHost string
}

// NewServer opens a non-blocking, reusable-address TCP listening socket
// bound to host:port.
func NewServer(host string, port int) (*Server, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("netserv: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserv: setsockopt: %w", err)
	}

	addr, err := sockaddrFor(host, port)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserv: bind: %w", err)
	}

	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserv: listen: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netserv: set nonblock: %w", err)
	}

	return &Server{
		ListenFd: fd,
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Hosts:    map[string]config.ServerConfig{},
	}, nil
}

// AddHost registers srv as a virtual host on this listening socket, under
// name. The first host added becomes the default, used when a request
// carries no Host header or one that matches nothing registered (§4.5
// step 1).
func (s *Server) AddHost(name string, srv config.ServerConfig) {
	if len(s.Hosts) == 0 {
		s.DefaultHost = name
	}
	s.Hosts[name] = srv
}

// Close closes the listening socket.
func (s *Server) Close() error {
	return unix.Close(s.ListenFd)
}

func sockaddrFor(host string, port int) (unix.Sockaddr, error) {
	var addr [4]byte
	parts, err := parseIPv4(host)
	if err != nil {
		return nil, err
	}
	addr = parts
	return &unix.SockaddrInet4{Port: port, Addr: addr}, nil
}

func parseIPv4(host string) ([4]byte, error) {
	var out [4]byte
	if host == "" || host == "0.0.0.0" {
		return out, nil
	}
	var a, b, c, d int
	n, err := fmt.Sscanf(host, "%d.%d.%d.%d", &a, &b, &c, &d)
	if err != nil || n != 4 {
		return out, fmt.Errorf("netserv: invalid listen host %q", host)
	}
	out[0], out[1], out[2], out[3] = byte(a), byte(b), byte(c), byte(d)
	return out, nil
}
