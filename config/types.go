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

// Package config implements the configuration grammar's tokenizer,
// recursive block parser, and semantic validator, producing the typed
// ServerConfig tree the router and event loop operate on.
package config

import (
	"sort"
	"strconv"
)

// Method is one of the four HTTP methods this server understands.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	DELETE Method = "DELETE"
	HEAD   Method = "HEAD"
)

// ValidMethods is the set of method tokens the validator accepts in a
// `methods` directive.
var ValidMethods = []string{"GET", "POST", "DELETE", "HEAD"}

func isValidMethod(s string) bool {
	for _, m := range ValidMethods {
		if m == s {
			return true
		}
	}
	return false
}

// CGIMapping binds a file extension to the interpreter that should handle
// requests for files with that extension.
type CGIMapping struct {
	Extension   string
	Interpreter string
}

// LocationConfig is a validated `location <prefix> { ... }` block.
type LocationConfig struct {
	Prefix          string
	Methods         []Method
	Root            string
	Index           []string
	Autoindex       bool
	RedirectCode    int
	RedirectURL     string
	HasRedirect     bool
	CGI             []CGIMapping
	AllowUpload     bool
	MaxBodySize     int64
	HasMaxBodySize  bool
}

// AllowsMethod reports whether m is in the location's allowed-method set.
func (l LocationConfig) AllowsMethod(m Method) bool {
	for _, allowed := range l.Methods {
		if allowed == m {
			return true
		}
	}
	return false
}

// CGIFor returns the interpreter configured for path's extension, and
// whether one was found.
func (l LocationConfig) CGIFor(path string) (string, bool) {
	ext := extensionOf(path)
	if ext == "" {
		return "", false
	}
	for _, m := range l.CGI {
		if m.Extension == ext {
			return m.Interpreter, true
		}
	}
	return "", false
}

func extensionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return ""
		}
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

// ServerConfig is a validated `server { ... }` entry: one virtual host.
type ServerConfig struct {
	ListenHost        string
	ListenPort        int
	ServerName        string
	ErrorPages        map[int]string
	ClientMaxBodySize int64
	Locations         []LocationConfig
}

// ListenAddr is the "host:port" form of the listen directive, used to
// group ServerConfigs that share one listening socket.
func (s ServerConfig) ListenAddr() string {
	return s.ListenHost + ":" + strconv.Itoa(s.ListenPort)
}

// MaxBodySizeFor returns the body-size limit that applies to loc: the
// location's override if it set one, otherwise the server's
// client_max_body_size.
func (s ServerConfig) MaxBodySizeFor(loc LocationConfig) int64 {
	if loc.HasMaxBodySize {
		return loc.MaxBodySize
	}
	return s.ClientMaxBodySize
}

// SortLocations orders Locations by prefix length descending, breaking
// ties by original declaration order (a stable sort), per the router's
// longest-prefix-wins rule.
func (s *ServerConfig) SortLocations() {
	sort.SliceStable(s.Locations, func(i, j int) bool {
		return len(s.Locations[i].Prefix) > len(s.Locations[j].Prefix)
	})
}
