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
	"strings"

	"github.com/nuclio/errors"
	"golang.org/x/text/encoding/htmlindex"
)

// transcodeToUTF8 converts a request body from the charset declared by its
// content type into UTF-8. Bodies already in UTF-8 or plain ASCII pass
// through untouched.
func transcodeToUTF8(body []byte, charset string) ([]byte, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return body, nil
	}

	characterEncoding, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrapf(err, "Unknown charset %q", charset)
	}

	transcodedBody, err := characterEncoding.NewDecoder().Bytes(body)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to transcode body from charset %q", charset)
	}

	return transcodedBody, nil
}
