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

// Parse tokenizes and parses source into the synthetic root Entry whose
// children are the top-level directives. It never stops at the first
// syntax error: every recoverable error is collected into the returned
// Diagnostics, and parsing resumes after it, so a file with several
// mistakes reports all of them in one pass.
func Parse(source string) (Entry, Diagnostics) {
	tokens := Tokenize(source)
	children, diags := parseEntries(source, tokens, 0, len(tokens))
	return Entry{Children: children}, diags
}

// parseEntries parses as many entries as it can find in tokens[start:end],
// the same bounded-span recursion the original tokenizer/parser used: a
// block's children are parsed within the span between its braces,
// exclusive.
func parseEntries(source string, tokens []Token, start, end int) ([]Entry, Diagnostics) {
	var entries []Entry
	var diags Diagnostics

	i := start
	for i < end {
		entry, next, ok, entryDiags := parseOneEntry(source, tokens, i, end)
		diags = append(diags, entryDiags...)
		if !ok {
			if next <= i {
				// nothing more to parse in this span
				break
			}
			i = next
			continue
		}
		entries = append(entries, entry)
		i = next
	}

	return entries, diags
}

// parseOneEntry parses one entry starting at tokens[i] (after skipping any
// leading line breaks), returning the index to resume from. ok is false
// when there was nothing left to parse (end reached, diags is nil) or a
// syntax error was hit (diags is non-nil and next points past the point
// recovery should resume from).
func parseOneEntry(source string, tokens []Token, i, end int) (entry Entry, next int, ok bool, diags Diagnostics) {
	for i < end && tokens[i].Type == TokenLineBreak {
		i++
	}
	if i >= end {
		return Entry{}, i, false, nil
	}

	var args []Token
	for i < end && tokens[i].Type != TokenLineBreak && tokens[i].Type != TokenLeftCurly {
		if tokens[i].Type == TokenRightCurly {
			// a `}` outside any brace scan has no `{` to close
			err := &Error{Kind: MismatchCurly, Token: tokens[i], Source: source}
			return Entry{}, i + 1, false, Diagnostics{err}
		}
		args = append(args, tokens[i])
		i++
	}

	if i >= end || tokens[i].Type == TokenLineBreak {
		return Entry{Args: args, Inline: true}, i + 1, true, nil
	}

	// tokens[i] is TokenLeftCurly.
	if len(args) == 0 {
		err := &Error{Kind: UnexpectedToken, Token: tokens[i], Source: source, Expected: TokenIdentifier.String()}
		return Entry{}, i + 1, false, Diagnostics{err}
	}

	leftCurly := tokens[i]
	i++
	childStart := i

	depth := 0
	closeIdx := -1
	for j := i; j < end; j++ {
		switch tokens[j].Type {
		case TokenRightCurly:
			if depth == 0 {
				closeIdx = j
			} else {
				depth--
			}
		case TokenLeftCurly:
			depth++
		}
		if closeIdx != -1 {
			break
		}
	}

	if closeIdx == -1 {
		err := &Error{Kind: MismatchCurly, Token: leftCurly, Source: source}
		return Entry{}, end, false, Diagnostics{err}
	}

	children, childDiags := parseEntries(source, tokens, childStart, closeIdx)

	result := Entry{
		Args:       args,
		Children:   children,
		Inline:     false,
		HasBraces:  true,
		LeftCurly:  leftCurly,
		RightCurly: tokens[closeIdx],
	}
	return result, closeIdx + 1, true, childDiags
}
