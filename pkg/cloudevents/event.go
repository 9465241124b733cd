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

package cloudevents

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"time"

	"github.com/funchost/funchost/pkg/contenttype"
)

// Wire attribute names shared by both event variants
const (
	AttributeSpecVersion     = "specversion"
	AttributeID              = "id"
	AttributeSource          = "source"
	AttributeType            = "type"
	AttributeDataContentType = "datacontenttype"
	AttributeTime            = "time"
	AttributeData            = "data"

	// version specific
	AttributeDataSchema          = "dataschema"          // v1
	AttributeSubject             = "subject"             // v1
	AttributeSchemaURL           = "schemaurl"           // v0
	AttributeDataContentEncoding = "datacontentencoding" // v0
)

const (
	SpecVersionV03 = "0.3"
	SpecVersionV1  = "1.0"
)

var specVersionV1Pattern = regexp.MustCompile(`^1\.\d+$`)

// Event is one CloudEvent. Implementations are immutable value objects -
// "modification" goes through With, which returns a new event. The two
// implementations are EventV0 (spec 0.3) and EventV1 (spec 1.x).
type Event interface {

	// SpecVersion returns the exact specversion string, e.g. "1.0"
	SpecVersion() string

	// ID returns the event id
	ID() string

	// Source returns the parsed source URI
	Source() *url.URL

	// SourceString returns the source exactly as it appeared on the wire
	SourceString() string

	// Type returns the event type
	Type() string

	// Time returns the event time, or the zero time when unset
	Time() time.Time

	// TimeString returns the RFC 3339 form of the event time, or ""
	TimeString() string

	// Data returns the payload - binary bytes, a text string, or a parsed
	// JSON value - or nil when there is none
	Data() interface{}

	// DataContentType returns the parsed data content type, or nil
	DataContentType() *contenttype.ContentType

	// DataContentTypeString returns the raw data content type, or ""
	DataContentTypeString() string

	// DataSchema returns the parsed schema URI (dataschema on v1,
	// schemaurl on v0), or nil
	DataSchema() *url.URL

	// DataSchemaString returns the raw schema URI, or ""
	DataSchemaString() string

	// Subject returns the subject attribute, or "" (always "" on v0)
	Subject() string

	// Get looks an attribute up by its wire name, extensions included
	Get(name string) (interface{}, bool)

	// Extensions returns the extension attributes as raw strings
	Extensions() map[string]string

	// Attributes returns the full canonical attribute map, keyed by wire
	// names and suitable for direct JSON serialization
	Attributes() map[string]interface{}

	// With returns a new event of the same variant with changes overlaid
	// on the attribute map. A nil change value removes the attribute.
	With(changes map[string]interface{}) (Event, error)
}

// New constructs an event of the variant selected by the specversion
// attribute: "0.3" builds an EventV0, "1.x" builds an EventV1, anything
// else fails with a SpecVersionError.
func New(attributes map[string]interface{}) (Event, error) {
	specVersion, _ := attributes[AttributeSpecVersion].(string)

	switch {
	case specVersion == SpecVersionV03:
		return NewEventV0(attributes)
	case specVersionV1Pattern.MatchString(specVersion):
		return NewEventV1(attributes)
	default:
		return nil, &SpecVersionError{Version: specVersion}
	}
}

// Equal reports attribute-map equality between two events.
func Equal(event Event, otherEvent Event) bool {
	if event == nil || otherEvent == nil {
		return event == otherEvent
	}

	return reflect.DeepEqual(event.Attributes(), otherEvent.Attributes())
}

// attributeParser accumulates canonicalized attributes while consuming a
// raw attribute map, failing fast with AttributeError on bad values
type attributeParser struct {
	raw       map[string]interface{}
	canonical map[string]interface{}
}

func newAttributeParser(raw map[string]interface{}) *attributeParser {
	rawCopy := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		if value != nil {
			rawCopy[name] = value
		}
	}

	return &attributeParser{
		raw:       rawCopy,
		canonical: map[string]interface{}{},
	}
}

func (ap *attributeParser) requiredString(name string) (string, error) {
	value, found := ap.raw[name]
	if !found {
		return "", &AttributeError{Name: name, Reason: "attribute is required"}
	}
	delete(ap.raw, name)

	stringValue, isString := value.(string)
	if !isString {
		return "", &AttributeError{Name: name, Reason: fmt.Sprintf("expected a string, got %T", value)}
	}

	if stringValue == "" {
		return "", &AttributeError{Name: name, Reason: "attribute must not be empty"}
	}

	ap.canonical[name] = stringValue
	return stringValue, nil
}

func (ap *attributeParser) optionalString(name string) (string, error) {
	value, found := ap.raw[name]
	if !found {
		return "", nil
	}
	delete(ap.raw, name)

	stringValue, isString := value.(string)
	if !isString {
		return "", &AttributeError{Name: name, Reason: fmt.Sprintf("expected a string, got %T", value)}
	}

	ap.canonical[name] = stringValue
	return stringValue, nil
}

func (ap *attributeParser) requiredURI(name string) (*url.URL, string, error) {
	rawString, err := ap.requiredString(name)
	if err != nil {
		return nil, "", err
	}

	parsedURI, err := url.Parse(rawString)
	if err != nil {
		return nil, "", &AttributeError{Name: name, Reason: fmt.Sprintf("invalid URI: %s", err)}
	}

	return parsedURI, rawString, nil
}

func (ap *attributeParser) optionalURI(name string) (*url.URL, string, error) {
	rawString, err := ap.optionalString(name)
	if err != nil || rawString == "" {
		return nil, "", err
	}

	parsedURI, err := url.Parse(rawString)
	if err != nil {
		return nil, "", &AttributeError{Name: name, Reason: fmt.Sprintf("invalid URI: %s", err)}
	}

	return parsedURI, rawString, nil
}

// optionalTime accepts either an RFC 3339 string or a time.Time; the
// canonical form is always the RFC 3339 string
func (ap *attributeParser) optionalTime(name string) (time.Time, string, error) {
	value, found := ap.raw[name]
	if !found {
		return time.Time{}, "", nil
	}
	delete(ap.raw, name)

	switch typedValue := value.(type) {
	case string:
		parsedTime, err := time.Parse(time.RFC3339Nano, typedValue)
		if err != nil {
			return time.Time{}, "", &AttributeError{Name: name, Reason: fmt.Sprintf("invalid RFC 3339 timestamp: %s", err)}
		}
		ap.canonical[name] = typedValue
		return parsedTime, typedValue, nil
	case time.Time:
		formattedTime := typedValue.Format(time.RFC3339Nano)
		ap.canonical[name] = formattedTime
		return typedValue, formattedTime, nil
	default:
		return time.Time{}, "", &AttributeError{Name: name, Reason: fmt.Sprintf("expected a string or time.Time, got %T", value)}
	}
}

// optionalContentType accepts either a raw string or an already parsed
// *contenttype.ContentType; the canonical form is the raw string
func (ap *attributeParser) optionalContentType(name string) (*contenttype.ContentType, string, error) {
	value, found := ap.raw[name]
	if !found {
		return nil, "", nil
	}
	delete(ap.raw, name)

	switch typedValue := value.(type) {
	case string:
		ap.canonical[name] = typedValue
		return contenttype.Parse(typedValue), typedValue, nil
	case *contenttype.ContentType:
		ap.canonical[name] = typedValue.String()
		return typedValue, typedValue.String(), nil
	default:
		return nil, "", &AttributeError{Name: name, Reason: fmt.Sprintf("expected a string or content type, got %T", value)}
	}
}

func (ap *attributeParser) data() interface{} {
	value, found := ap.raw[AttributeData]
	if !found {
		return nil
	}
	delete(ap.raw, AttributeData)

	ap.canonical[AttributeData] = value
	return value
}

// extensions consumes every remaining attribute as a raw string
// extension. JSON scalars are stringified; structured values are not
// valid extension values.
func (ap *attributeParser) extensions() (map[string]string, error) {
	extensions := map[string]string{}

	for name, value := range ap.raw {
		switch typedValue := value.(type) {
		case string:
			extensions[name] = typedValue
		case bool, int, int32, int64, float32, float64:
			extensions[name] = fmt.Sprint(typedValue)
		default:
			return nil, &AttributeError{
				Name:   name,
				Reason: fmt.Sprintf("extension attributes must be strings, got %T", value),
			}
		}

		ap.canonical[name] = extensions[name]
	}

	return extensions, nil
}

func copyAttributeMap(attributes map[string]interface{}) map[string]interface{} {
	attributesCopy := make(map[string]interface{}, len(attributes))
	for name, value := range attributes {
		attributesCopy[name] = value
	}

	return attributesCopy
}

// mergeChanges overlays changes onto an existing canonical attribute map.
// A nil change value removes the attribute.
func mergeChanges(attributes map[string]interface{}, changes map[string]interface{}) map[string]interface{} {
	merged := copyAttributeMap(attributes)
	for name, value := range changes {
		if value == nil {
			delete(merged, name)
		} else {
			merged[name] = value
		}
	}

	return merged
}
