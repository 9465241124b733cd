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

package cehttp

import (
	"fmt"
	"strings"
)

// PercentEncode encodes an attribute value for transport in an HTTP
// header. The value is taken as its UTF-8 byte sequence; printable ASCII
// bytes (33-126) other than '%' pass through, every other byte becomes
// %XX with uppercase hex. PercentDecode is the exact inverse for any
// Unicode string.
func PercentEncode(value string) string {
	var builder strings.Builder

	for byteIndex := 0; byteIndex < len(value); byteIndex++ {
		byteValue := value[byteIndex]
		if byteValue >= 33 && byteValue <= 126 && byteValue != '%' {
			builder.WriteByte(byteValue)
		} else {
			fmt.Fprintf(&builder, "%%%02X", byteValue)
		}
	}

	return builder.String()
}

// PercentDecode decodes a header value encoded by PercentEncode. Malformed
// escapes pass through verbatim rather than failing, since header values
// arrive from arbitrary clients.
func PercentDecode(value string) string {
	var builder strings.Builder

	for byteIndex := 0; byteIndex < len(value); byteIndex++ {
		byteValue := value[byteIndex]

		if byteValue == '%' && byteIndex+3 <= len(value) {
			highNibble, highOK := hexDigit(value[byteIndex+1])
			lowNibble, lowOK := hexDigit(value[byteIndex+2])
			if highOK && lowOK {
				builder.WriteByte(highNibble<<4 | lowNibble)
				byteIndex += 2
				continue
			}
		}

		builder.WriteByte(byteValue)
	}

	return builder.String()
}

func hexDigit(char byte) (byte, bool) {
	switch {
	case char >= '0' && char <= '9':
		return char - '0', true
	case char >= 'A' && char <= 'F':
		return char - 'A' + 10, true
	case char >= 'a' && char <= 'f':
		return char - 'a' + 10, true
	default:
		return 0, false
	}
}
