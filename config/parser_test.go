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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInlineEntry(t *testing.T) {
	root, diags := Parse("listen 127.0.0.1:8080\n")
	require.Empty(t, diags)
	require.Len(t, root.Children, 1)
	entry := root.Children[0]
	require.True(t, entry.Inline)
	require.Empty(t, entry.Children)
	require.Equal(t, "listen", entry.Name())
	require.Equal(t, []string{"127.0.0.1:8080"}, entry.ArgStrings())
}

func TestParseBlockEntry(t *testing.T) {
	root, diags := Parse("server {\n    listen 0.0.0.0:8080\n}\n")
	require.Empty(t, diags)
	require.Len(t, root.Children, 1)
	server := root.Children[0]
	require.False(t, server.Inline)
	require.True(t, server.HasBraces)
	require.Len(t, server.Children, 1)
	require.Equal(t, "listen", server.Children[0].Name())
}

func TestParseNestedBlocks(t *testing.T) {
	src := `server {
    listen 0.0.0.0:8080
    location /api {
        methods GET POST
        cgi .py /usr/bin/python3
    }
}
`
	root, diags := Parse(src)
	require.Empty(t, diags)
	server := root.Children[0]
	require.Len(t, server.Children, 2)
	loc := server.Children[1]
	require.Equal(t, "location", loc.Name())
	require.Equal(t, []string{"/api"}, loc.ArgStrings())
	require.Len(t, loc.Children, 2)
}

func TestParseEmptyArgsBeforeBraceIsUnexpectedToken(t *testing.T) {
	_, diags := Parse("server {\n    {\n    }\n}\n")
	require.NotEmpty(t, diags)
	require.Equal(t, UnexpectedToken, diags[0].Kind)
}

func TestParseMismatchedCurlyBraces(t *testing.T) {
	_, diags := Parse("server {\n    listen 0.0.0.0:8080\n")
	require.NotEmpty(t, diags)
	require.Equal(t, MismatchCurly, diags[0].Kind)
}

// TestParseBraceBalanceProperty is the §8 invariant: parsing succeeds iff
// the source has balanced braces.
func TestParseBraceBalanceProperty(t *testing.T) {
	balanced := "server {\n  location / {\n  }\n}\n"
	_, diags := Parse(balanced)
	require.Empty(t, diags)

	unbalanced := "server {\n  location / {\n}\n"
	_, diags = Parse(unbalanced)
	require.NotEmpty(t, diags)
}

func TestParseCollectsMultipleDiagnostics(t *testing.T) {
	src := "server {\n    {\n    }\n    other_bad {\n    }\n}\n"
	root, diags := Parse(src)
	require.NotEmpty(t, root.Children)
	// the first bad entry ({ with no args) is reported; parsing resumes
	// and the rest of the block still parses structurally.
	require.NotEmpty(t, diags)
}
