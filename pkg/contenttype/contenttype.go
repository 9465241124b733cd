/*
Copyright 2023 The Funchost Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package contenttype

import (
	"fmt"
	"strings"
)

// Param is a single media type parameter. Order of appearance is preserved.
type Param struct {
	Name  string
	Value string
}

// ContentType is a parsed MIME Content-Type header. It is immutable once
// constructed and always holds a usable value - when the raw header cannot
// be parsed, Parse falls back to text/plain and records the parse failure
// in ErrorMessage rather than returning an error.
type ContentType struct {
	raw           string
	mediaType     string
	subtype       string
	subtypeBase   string
	subtypeFormat string
	params        []Param
	charset       string
	errorMessage  string
}

// Parse parses a raw Content-Type header value. It never fails - malformed
// input yields text/plain with charset us-ascii and a non-empty error
// message. An empty header is treated the same way, without an error
// message.
func Parse(raw string) *ContentType {
	contentType := &ContentType{
		raw:         raw,
		mediaType:   "text",
		subtype:     "plain",
		subtypeBase: "plain",
		charset:     "us-ascii",
	}

	if strings.TrimSpace(raw) == "" {
		return contentType
	}

	parser := &parser{input: raw}
	if err := parser.parse(); err != nil {
		contentType.errorMessage = err.Error()
		return contentType
	}

	contentType.mediaType = parser.mediaType
	contentType.subtype = parser.subtype
	contentType.subtypeBase = parser.subtype
	contentType.subtypeFormat = ""
	if separatorIndex := strings.Index(parser.subtype, "+"); separatorIndex >= 0 {
		contentType.subtypeBase = parser.subtype[:separatorIndex]
		contentType.subtypeFormat = parser.subtype[separatorIndex+1:]
	}
	contentType.params = parser.params

	// last write wins when charset appears more than once
	contentType.charset = ""
	for _, param := range parser.params {
		if param.Name == "charset" {
			contentType.charset = param.Value
		}
	}

	return contentType
}

// String returns the raw header value the content type was parsed from.
func (ct *ContentType) String() string {
	return ct.raw
}

// MediaType returns the lowercased media type, e.g. "application".
func (ct *ContentType) MediaType() string {
	return ct.mediaType
}

// Subtype returns the lowercased full subtype, e.g. "cloudevents+json".
func (ct *ContentType) Subtype() string {
	return ct.subtype
}

// SubtypeBase returns the portion of the subtype before any "+".
func (ct *ContentType) SubtypeBase() string {
	return ct.subtypeBase
}

// SubtypeFormat returns the portion of the subtype after the first "+",
// or an empty string when there is none.
func (ct *ContentType) SubtypeFormat() string {
	return ct.subtypeFormat
}

// Params returns the ordered parameter list.
func (ct *ContentType) Params() []Param {
	return ct.params
}

// Param returns the last value of the named parameter. Name comparison is
// case insensitive (names are stored lowercased).
func (ct *ContentType) Param(name string) string {
	name = strings.ToLower(name)

	value := ""
	for _, param := range ct.params {
		if param.Name == name {
			value = param.Value
		}
	}

	return value
}

// Charset returns the charset parameter value, if any. After a total parse
// failure this is "us-ascii".
func (ct *ContentType) Charset() string {
	return ct.charset
}

// ErrorMessage returns a diagnostic describing why parsing fell back to
// the default content type, or an empty string if parsing succeeded.
func (ct *ContentType) ErrorMessage() string {
	return ct.errorMessage
}

// IsJSON returns whether the content type denotes a JSON payload, either
// application/json or any +json structured syntax suffix.
func (ct *ContentType) IsJSON() bool {
	if ct.mediaType == "application" && ct.subtype == "json" {
		return true
	}

	return ct.subtypeFormat == "json"
}

// Canonical returns a normalized string form: lowercased type and subtype,
// parameters in their original order, values quoted only when they contain
// characters outside the token charset.
func (ct *ContentType) Canonical() string {
	var builder strings.Builder
	builder.WriteString(ct.mediaType)
	builder.WriteString("/")
	builder.WriteString(ct.subtype)

	for _, param := range ct.params {
		builder.WriteString("; ")
		builder.WriteString(param.Name)
		builder.WriteString("=")
		builder.WriteString(quoteValue(param.Value))
	}

	return builder.String()
}

// tspecials per RFC 2045, plus space and controls, terminate a token
func isTokenChar(char byte) bool {
	if char <= ' ' || char >= 0x7f {
		return false
	}

	switch char {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=':
		return false
	}

	return true
}

func quoteValue(value string) string {
	needsQuoting := len(value) == 0
	for charIndex := 0; charIndex < len(value); charIndex++ {
		if !isTokenChar(value[charIndex]) {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	var builder strings.Builder
	builder.WriteString(`"`)
	for charIndex := 0; charIndex < len(value); charIndex++ {
		char := value[charIndex]
		if char == '"' || char == '\\' {
			builder.WriteByte('\\')
		}
		builder.WriteByte(char)
	}
	builder.WriteString(`"`)

	return builder.String()
}

type parser struct {
	input     string
	pos       int
	mediaType string
	subtype   string
	params    []Param
}

func (p *parser) parse() error {
	var err error

	p.skipSeparators()

	if p.mediaType, err = p.readToken("media type"); err != nil {
		return err
	}

	if err = p.expect('/'); err != nil {
		return err
	}

	if p.subtype, err = p.readToken("subtype"); err != nil {
		return err
	}

	p.skipSeparators()

	for p.pos < len(p.input) {
		if err = p.expect(';'); err != nil {
			return err
		}

		paramName, err := p.readToken("parameter name")
		if err != nil {
			return err
		}

		if err = p.expect('='); err != nil {
			return err
		}

		paramValue, err := p.readValue()
		if err != nil {
			return err
		}

		p.params = append(p.params, Param{Name: paramName, Value: paramValue})
		p.skipSeparators()
	}

	return nil
}

// skipSeparators consumes linear whitespace and RFC 2045 comments, which
// may be nested and may contain backslash escapes
func (p *parser) skipSeparators() {
	for p.pos < len(p.input) {
		char := p.input[p.pos]

		switch {
		case char == ' ' || char == '\t' || char == '\r' || char == '\n':
			p.pos++
		case char == '(':
			depth := 0
			for p.pos < len(p.input) {
				switch p.input[p.pos] {
				case '\\':
					p.pos++
				case '(':
					depth++
				case ')':
					depth--
				}
				p.pos++
				if depth == 0 {
					break
				}
			}
		default:
			return
		}
	}
}

func (p *parser) readToken(description string) (string, error) {
	p.skipSeparators()

	start := p.pos
	for p.pos < len(p.input) && isTokenChar(p.input[p.pos]) {
		p.pos++
	}

	if p.pos == start {
		return "", fmt.Errorf("failed to parse %s at position %d", description, p.pos)
	}

	return strings.ToLower(p.input[start:p.pos]), nil
}

func (p *parser) expect(expectedChar byte) error {
	p.skipSeparators()

	if p.pos >= len(p.input) || p.input[p.pos] != expectedChar {
		return fmt.Errorf("expected %q at position %d", string(expectedChar), p.pos)
	}

	p.pos++
	return nil
}

// readValue reads a parameter value - either a bare token or a quoted
// string with backslash escapes. Values keep their original case.
func (p *parser) readValue() (string, error) {
	p.skipSeparators()

	if p.pos < len(p.input) && p.input[p.pos] == '"' {
		p.pos++

		var builder strings.Builder
		for {
			if p.pos >= len(p.input) {
				return "", fmt.Errorf("unterminated quoted string at position %d", p.pos)
			}

			char := p.input[p.pos]
			p.pos++

			switch char {
			case '"':
				return builder.String(), nil
			case '\\':
				if p.pos >= len(p.input) {
					return "", fmt.Errorf("dangling escape at position %d", p.pos)
				}
				builder.WriteByte(p.input[p.pos])
				p.pos++
			default:
				builder.WriteByte(char)
			}
		}
	}

	start := p.pos
	for p.pos < len(p.input) && isTokenChar(p.input[p.pos]) {
		p.pos++
	}

	if p.pos == start {
		return "", fmt.Errorf("failed to parse parameter value at position %d", p.pos)
	}

	return p.input[start:p.pos], nil
}
