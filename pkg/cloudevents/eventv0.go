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
	"net/url"
	"time"

	"github.com/funchost/funchost/pkg/contenttype"
)

// EventV0 is a CloudEvent under spec version 0.3. It differs from V1 in
// its schema attribute name (schemaurl), the datacontentencoding
// attribute, and the absence of subject.
type EventV0 struct {
	attributes map[string]interface{}

	specVersion           string
	id                    string
	source                *url.URL
	sourceString          string
	eventType             string
	time                  time.Time
	timeString            string
	data                  interface{}
	dataContentType       *contenttype.ContentType
	dataContentTypeString string
	schemaURL             *url.URL
	schemaURLString       string
	dataContentEncoding   string
	extensions            map[string]string
}

// NewEventV0 validates the given attribute map and constructs a V0 event.
// specversion must be exactly "0.3".
func NewEventV0(attributes map[string]interface{}) (*EventV0, error) {
	parser := newAttributeParser(attributes)
	event := &EventV0{}

	var err error

	if event.specVersion, err = parser.requiredString(AttributeSpecVersion); err != nil {
		return nil, err
	}
	if event.specVersion != SpecVersionV03 {
		return nil, &SpecVersionError{Version: event.specVersion}
	}

	if event.id, err = parser.requiredString(AttributeID); err != nil {
		return nil, err
	}

	if event.source, event.sourceString, err = parser.requiredURI(AttributeSource); err != nil {
		return nil, err
	}

	if event.eventType, err = parser.requiredString(AttributeType); err != nil {
		return nil, err
	}

	if event.time, event.timeString, err = parser.optionalTime(AttributeTime); err != nil {
		return nil, err
	}

	if event.dataContentType, event.dataContentTypeString, err = parser.optionalContentType(AttributeDataContentType); err != nil {
		return nil, err
	}

	if event.schemaURL, event.schemaURLString, err = parser.optionalURI(AttributeSchemaURL); err != nil {
		return nil, err
	}

	if event.dataContentEncoding, err = parser.optionalString(AttributeDataContentEncoding); err != nil {
		return nil, err
	}

	event.data = parser.data()

	if event.extensions, err = parser.extensions(); err != nil {
		return nil, err
	}

	event.attributes = parser.canonical

	return event, nil
}

func (e *EventV0) SpecVersion() string { return e.specVersion }
func (e *EventV0) ID() string          { return e.id }
func (e *EventV0) Source() *url.URL    { return e.source }
func (e *EventV0) SourceString() string {
	return e.sourceString
}
func (e *EventV0) Type() string       { return e.eventType }
func (e *EventV0) Time() time.Time    { return e.time }
func (e *EventV0) TimeString() string { return e.timeString }
func (e *EventV0) Data() interface{}  { return e.data }

// Subject exists only from spec version 1.0 on
func (e *EventV0) Subject() string { return "" }

func (e *EventV0) DataContentType() *contenttype.ContentType {
	return e.dataContentType
}

func (e *EventV0) DataContentTypeString() string {
	return e.dataContentTypeString
}

// DataSchema returns the schemaurl attribute, the V0 counterpart of
// dataschema
func (e *EventV0) DataSchema() *url.URL {
	return e.schemaURL
}

func (e *EventV0) DataSchemaString() string {
	return e.schemaURLString
}

// DataContentEncoding returns the datacontentencoding attribute, or ""
func (e *EventV0) DataContentEncoding() string {
	return e.dataContentEncoding
}

func (e *EventV0) Get(name string) (interface{}, bool) {
	value, found := e.attributes[name]
	return value, found
}

func (e *EventV0) Extensions() map[string]string {
	extensionsCopy := make(map[string]string, len(e.extensions))
	for name, value := range e.extensions {
		extensionsCopy[name] = value
	}

	return extensionsCopy
}

func (e *EventV0) Attributes() map[string]interface{} {
	return copyAttributeMap(e.attributes)
}

func (e *EventV0) With(changes map[string]interface{}) (Event, error) {
	return NewEventV0(mergeChanges(e.attributes, changes))
}
