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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeBasicDirective(t *testing.T) {
	tokens := Tokenize("listen 127.0.0.1:8080\n")
	require.Len(t, tokens, 3)
	require.Equal(t, TokenIdentifier, tokens[0].Type)
	require.Equal(t, "listen", tokens[0].Text)
	require.Equal(t, TokenIdentifier, tokens[1].Type)
	require.Equal(t, "127.0.0.1:8080", tokens[1].Text)
	require.Equal(t, TokenLineBreak, tokens[2].Type)
}

func TestTokenizeNumbersAreDistinctFromIdentifiers(t *testing.T) {
	tokens := Tokenize("client_max_body_size 1048576\n")
	require.Equal(t, TokenNumber, tokens[1].Type)
	require.Equal(t, int64(1048576), tokens[1].Number)
}

func TestTokenizeBraces(t *testing.T) {
	tokens := Tokenize("location / {\n}\n")
	require.Equal(t, TokenIdentifier, tokens[0].Type)
	require.Equal(t, TokenIdentifier, tokens[1].Type)
	require.Equal(t, TokenLeftCurly, tokens[2].Type)
	require.Equal(t, TokenLineBreak, tokens[3].Type)
	require.Equal(t, TokenRightCurly, tokens[4].Type)
	require.Equal(t, TokenLineBreak, tokens[5].Type)
}

func TestTokenizeQuotedStringHasNoEscapeProcessing(t *testing.T) {
	tokens := Tokenize(`root "/var/www/my site"` + "\n")
	require.Equal(t, TokenString, tokens[1].Type)
	require.Equal(t, "/var/www/my site", tokens[1].Text)
}

func TestTokenizeUnterminatedStringAcceptedToEOF(t *testing.T) {
	tokens := Tokenize(`root "unterminated`)
	require.Len(t, tokens, 2)
	require.Equal(t, TokenString, tokens[1].Type)
	require.Equal(t, "unterminated", tokens[1].Text)
}

func TestTokenizeConsecutiveLineBreaksAreTolerated(t *testing.T) {
	tokens := Tokenize("a\n\n\nb\n")
	require.Len(t, tokens, 6)
	require.Equal(t, TokenLineBreak, tokens[1].Type)
	require.Equal(t, TokenLineBreak, tokens[2].Type)
	require.Equal(t, TokenLineBreak, tokens[3].Type)
}

func TestTokenizeColumnsResetOnLineBreak(t *testing.T) {
	tokens := Tokenize("ab\ncd")
	require.Equal(t, 1, tokens[0].Column)
	last := tokens[len(tokens)-1]
	require.Equal(t, "cd", last.Text)
	require.Equal(t, 1, last.Column)
	require.Equal(t, 2, last.Line)
}

// TestTokenizeRoundTripProperty is the §8 tokenizer invariant: concatenating
// the text of every non-whitespace token reproduces the source modulo
// whitespace collapse and quote stripping. Brace tokens have an empty
// Content(), so they are written back as the brace they stand for.
func TestTokenizeRoundTripProperty(t *testing.T) {
	sources := []string{
		"server {\n    listen 0.0.0.0:8080\n    root /var/www\n}\n",
		`location /api { cgi .py /usr/bin/python3 }`,
		"a b c\n\nd",
	}
	for _, src := range sources {
		tokens := Tokenize(src)
		var rebuilt string
		for _, tok := range tokens {
			switch tok.Type {
			case TokenLineBreak:
				continue
			case TokenLeftCurly:
				rebuilt += "{"
			case TokenRightCurly:
				rebuilt += "}"
			default:
				rebuilt += tok.Content()
			}
		}
		// every piece of non-whitespace content from the source must
		// appear, in order, in the rebuilt string
		require.Equal(t, strings.Join(strings.Fields(src), ""), rebuilt)
	}
}
