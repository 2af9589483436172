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

// Entry is a single node in the configuration tree: a directive's argument
// tokens, plus either nothing (inline entry) or a list of child entries
// (block entry). The synthetic root entry returned by Parse has no
// arguments and is never itself inline.
type Entry struct {
	Args       []Token
	Children   []Entry
	Inline     bool
	HasBraces  bool
	LeftCurly  Token
	RightCurly Token
}

// Name returns the content of the first argument token, the directive's
// name, or "" if the entry has no arguments (only true for the root).
func (e Entry) Name() string {
	if len(e.Args) == 0 {
		return ""
	}
	return e.Args[0].Content()
}

// ArgStrings returns the content of every argument after the directive
// name.
func (e Entry) ArgStrings() []string {
	if len(e.Args) <= 1 {
		return nil
	}
	out := make([]string, 0, len(e.Args)-1)
	for _, a := range e.Args[1:] {
		out = append(out, a.Content())
	}
	return out
}

// AllArgStrings returns the content of every argument token, including the
// directive name.
func (e Entry) AllArgStrings() []string {
	out := make([]string, 0, len(e.Args))
	for _, a := range e.Args {
		out = append(out, a.Content())
	}
	return out
}
