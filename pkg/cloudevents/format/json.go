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

package format

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/contenttype"

	"github.com/nuclio/errors"
	"github.com/samber/lo"
)

// wire-only field carrying base64 encoded binary data in the v1 envelope
const attributeDataBase64 = "data_base64"

// JSON implements the CloudEvents JSON envelope described by the
// CloudEvents JSON event format spec, for both the 0.3 and 1.x variants.
type JSON struct{}

func NewJSON() *JSON {
	return &JSON{}
}

func (j *JSON) Name() string {
	return "json"
}

// DecodeEvent decodes a single JSON envelope. A JSON array is a format
// mismatch and fails - batched bodies must go through DecodeBatch.
func (j *JSON) DecodeEvent(body []byte) (cloudevents.Event, error) {
	var structure map[string]interface{}
	if err := json.Unmarshal(body, &structure); err != nil {
		return nil, &cloudevents.AttributeError{Name: "body", Reason: err.Error()}
	}

	return j.DecodeMap(structure)
}

// DecodeMap decodes an already parsed JSON envelope, branching on the
// specversion field: the 0.3 path re-parses JSON-typed string data, the
// 1.x path expands data_base64 into binary data.
func (j *JSON) DecodeMap(structure map[string]interface{}) (cloudevents.Event, error) {
	specVersion, _ := structure[cloudevents.AttributeSpecVersion].(string)

	switch {
	case specVersion == cloudevents.SpecVersionV03:
		return j.decodeMapV0(structure)
	case strings.HasPrefix(specVersion, "1."):
		return j.decodeMapV1(structure)
	default:
		return nil, &cloudevents.SpecVersionError{Version: specVersion}
	}
}

// EncodeEvent encodes a single event into its JSON envelope. Key order is
// deterministic (alphabetical), which structured content negotiation and
// the tests rely on.
func (j *JSON) EncodeEvent(event cloudevents.Event) ([]byte, error) {
	structure, err := j.EncodeMap(event)
	if err != nil {
		return nil, err
	}

	encodedBody, err := json.Marshal(structure)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to marshal event structure")
	}

	return encodedBody, nil
}

// EncodeMap returns the JSON-ready envelope map for an event. Binary data
// on a 1.x event is carried as data_base64 rather than data.
func (j *JSON) EncodeMap(event cloudevents.Event) (map[string]interface{}, error) {
	structure := event.Attributes()

	if binaryData, isBinary := structure[cloudevents.AttributeData].([]byte); isBinary {
		if event.SpecVersion() == cloudevents.SpecVersionV03 {
			structure[cloudevents.AttributeData] = string(binaryData)
		} else {
			delete(structure, cloudevents.AttributeData)
			structure[attributeDataBase64] = base64.StdEncoding.EncodeToString(binaryData)
		}
	}

	return structure, nil
}

// DecodeBatch decodes a JSON array of envelopes. The result is always a
// slice - a one element array decodes to a one element slice, and a
// non-array body is a format mismatch.
func (j *JSON) DecodeBatch(body []byte) ([]cloudevents.Event, error) {
	var structures []map[string]interface{}
	if err := json.Unmarshal(body, &structures); err != nil {
		return nil, &cloudevents.AttributeError{Name: "body", Reason: err.Error()}
	}

	events := make([]cloudevents.Event, 0, len(structures))
	for _, structure := range structures {
		event, err := j.DecodeMap(structure)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

// EncodeBatch encodes events into a JSON array of envelopes
func (j *JSON) EncodeBatch(events []cloudevents.Event) ([]byte, error) {
	var encodeErr error

	structures := lo.Map(events, func(event cloudevents.Event, _ int) map[string]interface{} {
		structure, err := j.EncodeMap(event)
		if err != nil && encodeErr == nil {
			encodeErr = err
		}

		return structure
	})

	if encodeErr != nil {
		return nil, encodeErr
	}

	encodedBody, err := json.Marshal(structures)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to marshal event batch")
	}

	return encodedBody, nil
}

func (j *JSON) decodeMapV0(structure map[string]interface{}) (cloudevents.Event, error) {
	structure = copyStructure(structure)

	// string data under a JSON content type is an embedded JSON document
	if stringData, isString := structure[cloudevents.AttributeData].(string); isString {
		rawContentType, _ := structure[cloudevents.AttributeDataContentType].(string)
		if rawContentType != "" && contenttype.Parse(rawContentType).IsJSON() {
			var parsedData interface{}
			if err := json.Unmarshal([]byte(stringData), &parsedData); err == nil {
				structure[cloudevents.AttributeData] = parsedData
			}
		}
	}

	return cloudevents.NewEventV0(structure)
}

func (j *JSON) decodeMapV1(structure map[string]interface{}) (cloudevents.Event, error) {
	structure = copyStructure(structure)

	if rawBase64, found := structure[attributeDataBase64]; found {
		if _, alsoHasData := structure[cloudevents.AttributeData]; alsoHasData {
			return nil, &cloudevents.AttributeError{
				Name:   attributeDataBase64,
				Reason: "data and data_base64 are mutually exclusive",
			}
		}

		base64String, isString := rawBase64.(string)
		if !isString {
			return nil, &cloudevents.AttributeError{Name: attributeDataBase64, Reason: "expected a string"}
		}

		// tolerate whitespace and missing padding emitted by lenient encoders
		base64String = strings.Join(strings.Fields(base64String), "")

		var binaryData []byte
		var err error
		if len(base64String)%4 == 0 {
			binaryData, err = base64.StdEncoding.DecodeString(base64String)
		} else {
			binaryData, err = base64.RawStdEncoding.DecodeString(base64String)
		}
		if err != nil {
			return nil, &cloudevents.AttributeError{Name: attributeDataBase64, Reason: err.Error()}
		}

		delete(structure, attributeDataBase64)
		structure[cloudevents.AttributeData] = binaryData
	}

	return cloudevents.NewEventV1(structure)
}

func copyStructure(structure map[string]interface{}) map[string]interface{} {
	structureCopy := make(map[string]interface{}, len(structure))
	for name, value := range structure {
		structureCopy[name] = value
	}

	return structureCopy
}
