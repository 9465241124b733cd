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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/cloudevents/format"
	"github.com/funchost/funchost/pkg/contenttype"
	"github.com/funchost/funchost/pkg/registry"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

const (
	headerPrefix          = "ce-"
	subtypeBaseStructured = "cloudevents"
	subtypeBaseBatched    = "cloudevents-batch"
)

// Binding implements the CloudEvents HTTP protocol binding: it inspects an
// inbound request's Content-Type to choose among binary (header-encoded),
// structured (body-encoded) and batched decoding, and encodes events back
// into headers and bodies. Formatters are held in an injected, ordered
// registry - later registrations for the same format name override
// earlier ones without removing them.
type Binding struct {
	logger  logger.Logger
	formats *registry.Registry
}

// NewBinding creates a binding with the JSON formatter pre-registered.
func NewBinding(parentLogger logger.Logger) *Binding {
	binding := &Binding{
		logger:  parentLogger.GetChild("cloudevents"),
		formats: registry.NewRegistry("cloudevents format"),
	}

	binding.RegisterFormat(format.NewJSON())

	return binding
}

// RegisterFormat registers a formatter under its format name. Formats
// registered later take precedence on lookup.
func (b *Binding) RegisterFormat(eventFormat format.Format) {
	b.formats.Register(eventFormat.Name(), eventFormat)
}

// Decode decodes an inbound request into either a single event or a
// batch, never both. A NotCloudEventError means the request carries no
// CloudEvent at all and the caller may try other decode strategies.
func (b *Binding) Decode(rawContentType string,
	headers map[string][]string,
	body []byte) (cloudevents.Event, []cloudevents.Event, error) {

	contentType := contenttype.Parse(rawContentType)

	if contentType.MediaType() == "application" {
		switch contentType.SubtypeBase() {
		case subtypeBaseStructured:
			event, err := b.decodeStructured(contentType, body)
			return event, nil, err

		case subtypeBaseBatched:
			events, err := b.decodeBatched(contentType, body)
			return nil, events, err
		}
	}

	event, err := b.decodeBinary(rawContentType, contentType, headers, body)
	return event, nil, err
}

// EncodeBinary encodes an event into binary content mode: every attribute
// except data and datacontenttype becomes a percent-encoded ce- header,
// the data becomes the body and datacontenttype becomes the Content-Type
// header.
func (b *Binding) EncodeBinary(event cloudevents.Event) (map[string]string, []byte, error) {
	headers := map[string]string{}
	var body []byte

	for attributeName, attributeValue := range event.Attributes() {
		if attributeName == cloudevents.AttributeData || attributeName == cloudevents.AttributeDataContentType {
			continue
		}

		headers[headerPrefix+attributeName] = PercentEncode(fmt.Sprintf("%v", attributeValue))
	}

	contentTypeValue := event.DataContentTypeString()

	switch typedData := event.Data().(type) {
	case nil:
	case []byte:
		body = typedData
	case string:
		body = []byte(typedData)
	default:

		// anything else is a JSON value
		encodedData, err := json.Marshal(typedData)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Failed to marshal event data")
		}

		body = encodedData
		if contentTypeValue == "" {
			contentTypeValue = "application/json"
		}
	}

	if contentTypeValue != "" {
		headers["Content-Type"] = contentTypeValue
	}

	return headers, body, nil
}

// EncodeStructured encodes an event into structured content mode using
// the named format.
func (b *Binding) EncodeStructured(event cloudevents.Event,
	formatName string) (map[string]string, []byte, error) {

	handlers, err := b.formatHandlers(formatName)
	if err != nil {
		return nil, nil, err
	}

	body, err := handlers[0].EncodeEvent(event)
	if err != nil {
		return nil, nil, err
	}

	headers := map[string]string{
		"Content-Type": fmt.Sprintf("application/%s+%s", subtypeBaseStructured, formatName),
	}

	return headers, body, nil
}

// EncodeBatched encodes events into batched content mode using the named
// format.
func (b *Binding) EncodeBatched(events []cloudevents.Event,
	formatName string) (map[string]string, []byte, error) {

	handlers, err := b.formatHandlers(formatName)
	if err != nil {
		return nil, nil, err
	}

	body, err := handlers[0].EncodeBatch(events)
	if err != nil {
		return nil, nil, err
	}

	headers := map[string]string{
		"Content-Type": fmt.Sprintf("application/%s+%s", subtypeBaseBatched, formatName),
	}

	return headers, body, nil
}

func (b *Binding) decodeBinary(rawContentType string,
	contentType *contenttype.ContentType,
	headers map[string][]string,
	body []byte) (cloudevents.Event, error) {

	normalizedHeaders := normalizeHeaders(headers)

	specVersion, found := normalizedHeaders[headerPrefix+cloudevents.AttributeSpecVersion]
	if !found {
		return nil, &cloudevents.NotCloudEventError{Reason: "no ce-specversion header"}
	}

	// binary content mode is only defined from spec version 1.0 on
	if specVersion != cloudevents.SpecVersionV1 {
		return nil, &cloudevents.SpecVersionError{Version: specVersion}
	}

	attributes := map[string]interface{}{}
	for headerName, headerValue := range normalizedHeaders {
		if strings.HasPrefix(headerName, headerPrefix) && len(headerName) > len(headerPrefix) {
			attributes[headerName[len(headerPrefix):]] = PercentDecode(headerValue)
		}
	}

	if len(body) > 0 {
		attributes[cloudevents.AttributeData] = b.binaryModeData(rawContentType, contentType, body)
	}

	if rawContentType != "" {
		attributes[cloudevents.AttributeDataContentType] = rawContentType
	}

	return cloudevents.NewEventV1(attributes)
}

// binaryModeData decides the representation of a binary mode body: text
// content types yield a charset-decoded string, everything else stays an
// opaque byte slice
func (b *Binding) binaryModeData(rawContentType string,
	contentType *contenttype.ContentType,
	body []byte) interface{} {

	if rawContentType == "" {
		return body
	}

	if contentType.MediaType() == "text" || contentType.Charset() != "" {
		decodedBody, err := transcodeToUTF8(body, contentType.Charset())
		if err != nil {
			b.logger.DebugWith("Failed to transcode body, keeping raw bytes",
				"charset", contentType.Charset(),
				"err", err.Error())
			return body
		}

		return string(decodedBody)
	}

	return body
}

func (b *Binding) decodeStructured(contentType *contenttype.ContentType,
	body []byte) (cloudevents.Event, error) {

	handlers, err := b.formatHandlers(contentType.SubtypeFormat())
	if err != nil {
		return nil, err
	}

	body = b.transcodedBody(body, contentType)

	for _, handler := range handlers {
		event, err := handler.DecodeEvent(body)
		if err != nil {
			if cloudevents.IsNotCloudEvent(err) {
				continue
			}
			return nil, err
		}

		return event, nil
	}

	return nil, &cloudevents.UnknownFormatError{Format: contentType.SubtypeFormat()}
}

func (b *Binding) decodeBatched(contentType *contenttype.ContentType,
	body []byte) ([]cloudevents.Event, error) {

	handlers, err := b.formatHandlers(contentType.SubtypeFormat())
	if err != nil {
		return nil, err
	}

	body = b.transcodedBody(body, contentType)

	for _, handler := range handlers {
		events, err := handler.DecodeBatch(body)
		if err != nil {
			if cloudevents.IsNotCloudEvent(err) {
				continue
			}
			return nil, err
		}

		return events, nil
	}

	return nil, &cloudevents.UnknownFormatError{Format: contentType.SubtypeFormat()}
}

func (b *Binding) transcodedBody(body []byte, contentType *contenttype.ContentType) []byte {
	transcodedBody, err := transcodeToUTF8(body, contentType.Charset())
	if err != nil {
		b.logger.DebugWith("Failed to transcode body, using raw bytes",
			"charset", contentType.Charset(),
			"err", err.Error())
		return body
	}

	return transcodedBody
}

// formatHandlers returns the registered formatters for a format name,
// newest registration first
func (b *Binding) formatHandlers(formatName string) ([]format.Format, error) {
	if formatName == "" {
		return nil, &cloudevents.UnknownFormatError{Format: formatName}
	}

	registrees, err := b.formats.Get(formatName)
	if err != nil {
		return nil, &cloudevents.UnknownFormatError{Format: formatName}
	}

	handlers := make([]format.Format, 0, len(registrees))
	for _, registree := range registrees {
		handlers = append(handlers, registree.(format.Format))
	}

	return handlers, nil
}

// normalizeHeaders flattens a raw header map into lowercased, hyphenated
// single-valued form, so CE-Spec_Version, ce-spec-version and
// Ce-Spec_version all land on the same key
func normalizeHeaders(headers map[string][]string) map[string]string {
	normalizedHeaders := make(map[string]string, len(headers))

	for headerName, headerValues := range headers {
		if len(headerValues) == 0 {
			continue
		}

		normalizedName := strings.ReplaceAll(strings.ToLower(headerName), "_", "-")
		normalizedHeaders[normalizedName] = headerValues[0]
	}

	return normalizedHeaders
}
