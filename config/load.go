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
	"os"
)

// LoadFile reads, tokenizes, parses, and validates the configuration file
// at path, returning the list of virtual hosts it declares. Any syntax or
// semantic error aborts the result, but every diagnostic found along the
// way is returned together so all of them can be reported at once.
func LoadFile(path string) ([]ServerConfig, Diagnostics) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, Diagnostics{{Kind: FileNotFound, MissingFile: path}}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Diagnostics{{Kind: FileNotFound, MissingFile: path}}
	}

	source := string(data)
	root, parseDiags := Parse(source)
	for _, d := range parseDiags {
		d.Filename = path
	}
	if len(parseDiags) > 0 {
		return nil, parseDiags
	}

	servers, validateDiags := Validate(root, source)
	for _, d := range validateDiags {
		d.Filename = path
	}
	if len(validateDiags) > 0 {
		return nil, validateDiags
	}

	return servers, nil
}
