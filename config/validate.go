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

package config

import (
	"strconv"
	"strings"
)

const (
	minPort          = 1
	maxPort          = 65535
	minBodySize      = 0
	maxBodySize      = 1 << 40 // 1 TiB; a directive-level sanity bound, not a protocol limit
	minStatusCode    = 100
	maxStatusCode    = 599
)

var topLevelEntries = []string{"server"}
var serverEntries = []string{"listen", "server_name", "error_page", "client_max_body_size", "location"}
var locationEntries = []string{"methods", "root", "index", "autoindex", "return", "cgi", "allow_upload", "client_max_body_size"}

// Validate walks root's children and produces the validated ServerConfig
// list, along with every semantic diagnostic found. It never stops at the
// first bad directive: the whole tree is checked and all errors are
// collected, so a misconfigured file reports everything wrong with it in
// one pass.
func Validate(root Entry, source string) ([]ServerConfig, Diagnostics) {
	v := &validator{source: source}
	var servers []ServerConfig

	for _, child := range root.Children {
		name := child.Name()
		if name != "server" {
			v.unknown(child.Args[0], topLevelEntries)
			continue
		}
		servers = append(servers, v.validateServer(child))
	}

	return servers, v.diags
}

type validator struct {
	source string
	diags  Diagnostics
}

func (v *validator) add(err *Error) {
	err.Source = v.source
	v.diags = append(v.diags, err)
}

func (v *validator) unknown(tok Token, acceptable []string) {
	v.add(&Error{Kind: UnknownEntry, Token: tok, Acceptable: acceptable})
}

func (v *validator) notInline(tok Token) {
	v.add(&Error{Kind: NotInline, Token: tok})
}

func (v *validator) mismatchEntry(tok Token, usage string) {
	v.add(&Error{Kind: MismatchEntry, Token: tok, Usage: usage})
}

func (v *validator) notInRange(tok Token, min, max int64) {
	v.add(&Error{Kind: NotInRange, Token: tok, Min: min, Max: max})
}

func (v *validator) addr(tok Token) {
	v.add(&Error{Kind: Addr, Token: tok})
}

func (v *validator) invalidMethod(tok Token) {
	v.add(&Error{Kind: InvalidMethod, Token: tok})
}

func (v *validator) validateServer(entry Entry) ServerConfig {
	srv := ServerConfig{
		ErrorPages: map[int]string{},
	}

	for _, child := range entry.Children {
		name := child.Name()
		switch name {
		case "listen":
			v.applyListen(&srv, child)
		case "server_name":
			v.applyServerName(&srv, child)
		case "error_page":
			v.applyErrorPage(&srv, child)
		case "client_max_body_size":
			v.applyClientMaxBodySize(&srv, child)
		case "location":
			if loc, ok := v.validateLocation(child); ok {
				srv.Locations = append(srv.Locations, loc)
			}
		default:
			if len(child.Args) > 0 {
				v.unknown(child.Args[0], serverEntries)
			}
		}
	}

	srv.SortLocations()
	return srv
}

func (v *validator) applyListen(srv *ServerConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], "listen <addr>")
		return
	}
	addrTok := entry.Args[1]
	host, port, ok := splitHostPort(addrTok.Content())
	if !ok {
		v.addr(addrTok)
		return
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		v.addr(addrTok)
		return
	}
	if portNum < minPort || portNum > maxPort {
		v.notInRange(addrTok, minPort, maxPort)
		return
	}
	srv.ListenHost = host
	srv.ListenPort = portNum
}

func splitHostPort(s string) (host, port string, ok bool) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 || idx == len(s)-1 {
		return "", "", false
	}
	host, port = s[:idx], s[idx+1:]
	if host == "" || port == "" {
		return "", "", false
	}
	if !isValidIPv4(host) {
		return "", "", false
	}
	for _, c := range port {
		if c < '0' || c > '9' {
			return "", "", false
		}
	}
	return host, port, true
}

func isValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

func (v *validator) applyServerName(srv *ServerConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], "server_name <name>")
		return
	}
	srv.ServerName = entry.Args[1].Content()
}

func (v *validator) applyErrorPage(srv *ServerConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 3 {
		v.mismatchEntry(entry.Args[0], "error_page <code> <path>")
		return
	}
	codeTok := entry.Args[1]
	if codeTok.Type != TokenNumber {
		v.mismatchEntry(entry.Args[0], "error_page <code> <path>")
		return
	}
	code := int(codeTok.Number)
	if code < minStatusCode || code > maxStatusCode {
		v.notInRange(codeTok, minStatusCode, maxStatusCode)
		return
	}
	srv.ErrorPages[code] = entry.Args[2].Content()
}

func (v *validator) applyClientMaxBodySize(srv *ServerConfig, entry Entry) {
	n, ok := v.bodySizeArg(entry, "client_max_body_size <bytes>")
	if ok {
		srv.ClientMaxBodySize = n
	}
}

func (v *validator) bodySizeArg(entry Entry, usage string) (int64, bool) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return 0, false
	}
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], usage)
		return 0, false
	}
	sizeTok := entry.Args[1]
	if sizeTok.Type != TokenNumber {
		v.mismatchEntry(entry.Args[0], usage)
		return 0, false
	}
	if sizeTok.Number < minBodySize || sizeTok.Number > maxBodySize {
		v.notInRange(sizeTok, minBodySize, maxBodySize)
		return 0, false
	}
	return sizeTok.Number, true
}

func (v *validator) validateLocation(entry Entry) (LocationConfig, bool) {
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], "location <prefix> { ... }")
		return LocationConfig{}, false
	}
	if entry.Inline || !entry.HasBraces {
		v.mismatchEntry(entry.Args[0], "location <prefix> { ... }")
		return LocationConfig{}, false
	}

	loc := LocationConfig{Prefix: entry.Args[1].Content()}

	for _, child := range entry.Children {
		name := child.Name()
		switch name {
		case "methods":
			v.applyMethods(&loc, child)
		case "root":
			v.applyRoot(&loc, child)
		case "index":
			v.applyIndex(&loc, child)
		case "autoindex":
			v.applyAutoindex(&loc, child)
		case "return":
			v.applyReturn(&loc, child)
		case "cgi":
			v.applyCGI(&loc, child)
		case "allow_upload":
			v.applyAllowUpload(&loc, child)
		case "client_max_body_size":
			if n, ok := v.bodySizeArg(child, "client_max_body_size <bytes>"); ok {
				loc.MaxBodySize = n
				loc.HasMaxBodySize = true
			}
		default:
			if len(child.Args) > 0 {
				v.unknown(child.Args[0], locationEntries)
			}
		}
	}

	return loc, true
}

func (v *validator) applyMethods(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) < 2 {
		v.mismatchEntry(entry.Args[0], "methods <method>...")
		return
	}
	for _, tok := range entry.Args[1:] {
		m := tok.Content()
		if !isValidMethod(m) {
			v.invalidMethod(tok)
			continue
		}
		loc.Methods = append(loc.Methods, Method(m))
	}
}

func (v *validator) applyRoot(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], "root <dir>")
		return
	}
	loc.Root = entry.Args[1].Content()
}

func (v *validator) applyIndex(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) < 2 {
		v.mismatchEntry(entry.Args[0], "index <file>...")
		return
	}
	for _, tok := range entry.Args[1:] {
		loc.Index = append(loc.Index, tok.Content())
	}
}

func (v *validator) applyAutoindex(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], "autoindex on|off")
		return
	}
	switch entry.Args[1].Content() {
	case "on":
		loc.Autoindex = true
	case "off":
		loc.Autoindex = false
	default:
		v.mismatchEntry(entry.Args[0], "autoindex on|off")
	}
}

func (v *validator) applyReturn(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 3 {
		v.mismatchEntry(entry.Args[0], "return <code> <url>")
		return
	}
	codeTok := entry.Args[1]
	if codeTok.Type != TokenNumber {
		v.mismatchEntry(entry.Args[0], "return <code> <url>")
		return
	}
	if codeTok.Number < minStatusCode || codeTok.Number > maxStatusCode {
		v.notInRange(codeTok, minStatusCode, maxStatusCode)
		return
	}
	loc.HasRedirect = true
	loc.RedirectCode = int(codeTok.Number)
	loc.RedirectURL = entry.Args[2].Content()
}

func (v *validator) applyCGI(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 3 {
		v.mismatchEntry(entry.Args[0], "cgi <ext> <interpreter>")
		return
	}
	loc.CGI = append(loc.CGI, CGIMapping{
		Extension:   entry.Args[1].Content(),
		Interpreter: entry.Args[2].Content(),
	})
}

func (v *validator) applyAllowUpload(loc *LocationConfig, entry Entry) {
	if !entry.Inline {
		v.notInline(entry.Args[0])
		return
	}
	if len(entry.Args) != 2 {
		v.mismatchEntry(entry.Args[0], "allow_upload on|off")
		return
	}
	switch entry.Args[1].Content() {
	case "on":
		loc.AllowUpload = true
	case "off":
		loc.AllowUpload = false
	default:
		v.mismatchEntry(entry.Args[0], "allow_upload on|off")
	}
}
