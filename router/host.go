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

package router

import (
	"strings"

	"github.com/FirePh0enix/webserv/config"
)

// SelectHost implements §4.5 step 1: pick the virtual host sharing a
// listen address whose server_name matches the Host header's host
// component (port stripped), falling back to defaultHost when absent or
// unmatched.
func SelectHost(hosts map[string]config.ServerConfig, defaultHost, hostHeader string) config.ServerConfig {
	if hostHeader != "" {
		name, _, _ := strings.Cut(hostHeader, ":")
		if srv, ok := hosts[name]; ok {
			return srv
		}
	}
	return hosts[defaultHost]
}
