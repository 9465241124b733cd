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

// EventV1 is a CloudEvent under spec version 1.x
type EventV1 struct {
	attributes map[string]interface{}

	specVersion     string
	id              string
	source          *url.URL
	sourceString    string
	eventType       string
	subject         string
	time            time.Time
	timeString      string
	data            interface{}
	dataContentType *contenttype.ContentType
	dataContentTypeString string
	dataSchema       *url.URL
	dataSchemaString string
	extensions       map[string]string
}

// NewEventV1 validates the given attribute map and constructs a V1 event.
// specversion must match 1.x; id, source and type are required and
// non-empty. Unrecognized attributes become string extensions.
func NewEventV1(attributes map[string]interface{}) (*EventV1, error) {
	parser := newAttributeParser(attributes)
	event := &EventV1{}

	var err error

	if event.specVersion, err = parser.requiredString(AttributeSpecVersion); err != nil {
		return nil, err
	}
	if !specVersionV1Pattern.MatchString(event.specVersion) {
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

	if event.subject, err = parser.optionalString(AttributeSubject); err != nil {
		return nil, err
	}

	if event.time, event.timeString, err = parser.optionalTime(AttributeTime); err != nil {
		return nil, err
	}

	if event.dataContentType, event.dataContentTypeString, err = parser.optionalContentType(AttributeDataContentType); err != nil {
		return nil, err
	}

	if event.dataSchema, event.dataSchemaString, err = parser.optionalURI(AttributeDataSchema); err != nil {
		return nil, err
	}

	event.data = parser.data()

	if event.extensions, err = parser.extensions(); err != nil {
		return nil, err
	}

	event.attributes = parser.canonical

	return event, nil
}

func (e *EventV1) SpecVersion() string { return e.specVersion }
func (e *EventV1) ID() string          { return e.id }
func (e *EventV1) Source() *url.URL    { return e.source }
func (e *EventV1) SourceString() string {
	return e.sourceString
}
func (e *EventV1) Type() string       { return e.eventType }
func (e *EventV1) Subject() string    { return e.subject }
func (e *EventV1) Time() time.Time    { return e.time }
func (e *EventV1) TimeString() string { return e.timeString }
func (e *EventV1) Data() interface{}  { return e.data }

func (e *EventV1) DataContentType() *contenttype.ContentType {
	return e.dataContentType
}

func (e *EventV1) DataContentTypeString() string {
	return e.dataContentTypeString
}

func (e *EventV1) DataSchema() *url.URL {
	return e.dataSchema
}

func (e *EventV1) DataSchemaString() string {
	return e.dataSchemaString
}

func (e *EventV1) Get(name string) (interface{}, bool) {
	value, found := e.attributes[name]
	return value, found
}

func (e *EventV1) Extensions() map[string]string {
	extensionsCopy := make(map[string]string, len(e.extensions))
	for name, value := range e.extensions {
		extensionsCopy[name] = value
	}

	return extensionsCopy
}

func (e *EventV1) Attributes() map[string]interface{} {
	return copyAttributeMap(e.attributes)
}

func (e *EventV1) With(changes map[string]interface{}) (Event, error) {
	return NewEventV1(mergeChanges(e.attributes, changes))
}
