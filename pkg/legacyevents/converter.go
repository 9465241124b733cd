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

package legacyevents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/contenttype"

	"github.com/mitchellh/mapstructure"
	"github.com/nuclio/logger"
)

var (
	storageResourcePattern   = regexp.MustCompile(`^(projects/[^/]+/buckets/[^/]+)/([^#]+)(#.*)?$`)
	firestoreResourcePattern = regexp.MustCompile(`^(projects/[^/]+/databases/[^/]+)/(documents/.+)$`)
	databaseResourcePattern  = regexp.MustCompile(`^projects/([^/]+)/(instances/[^/]+)/(refs/.+)$`)
	databaseDomainPattern    = regexp.MustCompile(`^([\w-]+)\.`)
)

// legacyContext is the event metadata of an old GCF push payload. It may
// arrive nested under a "context" key or flattened at the top level, and
// the resource may be a bare path string or a structured object.
type legacyContext struct {
	EventID   string      `mapstructure:"eventId"`
	Timestamp string      `mapstructure:"timestamp"`
	EventType string      `mapstructure:"eventType"`
	Resource  interface{} `mapstructure:"resource"`
}

type legacyResource struct {
	Service string `mapstructure:"service"`
	Name    string `mapstructure:"name"`
	Type    string `mapstructure:"type"`
}

// Converter rewrites legacy Google Cloud event payloads (the pre
// CloudEvents push format) into canonical V1 CloudEvents. Conversion is
// best effort by design: any unrecognized or incomplete shape reports
// "not recognized" rather than failing, so the caller can try other
// decode strategies.
type Converter struct {
	logger logger.Logger
}

func NewConverter(parentLogger logger.Logger) *Converter {
	return &Converter{
		logger: parentLogger.GetChild("legacyevents"),
	}
}

// Convert attempts to rewrite a request body into a CloudEvent. The
// second return value reports whether the payload was recognized as a
// legacy event; when false, the event is nil and the payload is simply
// not this format.
func (c *Converter) Convert(body []byte, contentType *contenttype.ContentType) (cloudevents.Event, bool) {

	// legacy events only ever travel as JSON objects
	if contentType.MediaType() != "application" || !contentType.IsJSON() {
		return nil, false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false
	}

	payload = c.normalizeRawPubsubPayload(payload)

	context, recognized := c.normalizeContext(payload)
	if !recognized {
		return nil, false
	}

	resource, recognized := c.normalizeResource(context.Resource)
	if !recognized {
		return nil, false
	}

	service := resource.Service
	if service == "" {
		service = c.serviceFromLegacyType(context.EventType)
	}

	cloudEventType, found := legacyTypeToCloudEventType[context.EventType]

	// the type table is authoritative - no guessing for unknown types
	if service == "" || !found {
		return nil, false
	}

	if _, err := time.Parse(time.RFC3339Nano, context.Timestamp); err != nil {
		return nil, false
	}

	source, subject, recognized := c.convertSource(service, resource.Name, payload)
	if !recognized {
		return nil, false
	}

	data := c.convertData(service, payload["data"], context)

	if service == firebaseAuthService {
		if subject = c.firebaseAuthSubject(data); subject == "" {
			c.logger.DebugWith("Firebase Auth payload has no uid, leaving subject unset")
		}
	}

	attributes := map[string]interface{}{
		cloudevents.AttributeSpecVersion:     cloudevents.SpecVersionV1,
		cloudevents.AttributeID:              context.EventID,
		cloudevents.AttributeSource:          source,
		cloudevents.AttributeType:            cloudEventType,
		cloudevents.AttributeTime:            context.Timestamp,
		cloudevents.AttributeDataContentType: "application/json",
	}

	if data != nil {
		attributes[cloudevents.AttributeData] = data
	}

	if subject != "" {
		attributes[cloudevents.AttributeSubject] = subject
	}

	event, err := cloudevents.NewEventV1(attributes)
	if err != nil {
		c.logger.DebugWith("Converted legacy event failed validation",
			"eventType", context.EventType,
			"err", err.Error())
		return nil, false
	}

	return event, true
}

// normalizeRawPubsubPayload detects the shape the Pub/Sub emulator pushes
// directly - a subscription plus a message, with no legacy context - and
// rewrites it into the standard legacy shape before the rest of the
// pipeline runs.
func (c *Converter) normalizeRawPubsubPayload(payload map[string]interface{}) map[string]interface{} {
	if _, hasContext := payload["context"]; hasContext {
		return payload
	}

	if _, hasSubscription := payload["subscription"]; !hasSubscription {
		return payload
	}

	message, isMap := payload["message"].(map[string]interface{})
	if !isMap {
		return payload
	}

	messageID, _ := message["messageId"].(string)
	if _, hasData := message["data"]; !hasData || messageID == "" {
		return payload
	}

	timestamp, _ := message["publishTime"].(string)
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	return map[string]interface{}{
		"context": map[string]interface{}{
			"eventId":   messageID,
			"timestamp": timestamp,
			"eventType": pubsubPublishLegacyType,
			"resource": map[string]interface{}{
				"service": pubsubService,
				"name":    unknownPubsubTopic,
				"type":    pubsubMessageType,
			},
		},
		"data": map[string]interface{}{
			"@type":      pubsubMessageType,
			"data":       message["data"],
			"attributes": message["attributes"],
		},
	}
}

// normalizeContext reads the event metadata from a nested context object
// or from the top level - both shapes are historically valid
func (c *Converter) normalizeContext(payload map[string]interface{}) (*legacyContext, bool) {
	contextSource := payload
	if nestedContext, isMap := payload["context"].(map[string]interface{}); isMap {
		contextSource = nestedContext
	}

	context := &legacyContext{}
	if err := mapstructure.Decode(contextSource, context); err != nil {
		return nil, false
	}

	if context.EventID == "" || context.Timestamp == "" || context.EventType == "" {
		return nil, false
	}

	return context, true
}

func (c *Converter) normalizeResource(rawResource interface{}) (*legacyResource, bool) {
	switch typedResource := rawResource.(type) {
	case string:
		if typedResource == "" {
			return nil, false
		}
		return &legacyResource{Name: typedResource}, true

	case map[string]interface{}:
		resource := &legacyResource{}
		if err := mapstructure.Decode(typedResource, resource); err != nil {
			return nil, false
		}
		if resource.Name == "" {
			return nil, false
		}
		return resource, true

	default:
		return nil, false
	}
}

func (c *Converter) serviceFromLegacyType(legacyType string) string {
	for typePrefix, service := range legacyTypeToService {
		if strings.HasPrefix(legacyType, typePrefix) {
			return service
		}
	}

	return ""
}

// convertSource reconstructs the CloudEvent source and subject from the
// legacy resource path, using service specific splitting rules
func (c *Converter) convertSource(service string,
	resourceName string,
	payload map[string]interface{}) (string, string, bool) {

	switch service {
	case storageService:
		matches := storageResourcePattern.FindStringSubmatch(resourceName)
		if matches == nil {
			return "", "", false
		}
		return fmt.Sprintf("//%s/%s", service, matches[1]), matches[2], true

	case firestoreService:
		matches := firestoreResourcePattern.FindStringSubmatch(resourceName)
		if matches == nil {
			return "", "", false
		}
		return fmt.Sprintf("//%s/%s", service, matches[1]), matches[2], true

	case firebaseDatabaseService:

		// the instance location is only inferable from the legacy domain field
		domain, _ := payload["domain"].(string)
		if domain == "" {
			return "", "", false
		}

		location := "us-central1"
		if domain != "firebaseio.com" {
			matches := databaseDomainPattern.FindStringSubmatch(domain)
			if matches == nil {
				return "", "", false
			}
			location = matches[1]
		}

		matches := databaseResourcePattern.FindStringSubmatch(resourceName)
		if matches == nil {
			return "", "", false
		}

		source := fmt.Sprintf("//%s/projects/%s/locations/%s/%s",
			service,
			matches[1],
			location,
			matches[2])

		return source, matches[3], true

	default:
		return fmt.Sprintf("//%s/%s", service, resourceName), "", true
	}
}

// convertData applies service specific data reshaping
func (c *Converter) convertData(service string,
	data interface{},
	context *legacyContext) interface{} {

	switch service {
	case pubsubService:
		message := map[string]interface{}{}
		if dataMap, isMap := data.(map[string]interface{}); isMap {
			for fieldName, fieldValue := range dataMap {
				message[fieldName] = fieldValue
			}
		}

		message["messageId"] = context.EventID
		message["publishTime"] = context.Timestamp

		return map[string]interface{}{"message": message}

	case firebaseAuthService:
		dataMap, isMap := data.(map[string]interface{})
		if !isMap {
			return data
		}

		reshapedData := map[string]interface{}{}
		for fieldName, fieldValue := range dataMap {
			reshapedData[fieldName] = fieldValue
		}

		if metadata, isMap := reshapedData["metadata"].(map[string]interface{}); isMap {
			renamedMetadata := map[string]interface{}{}
			for fieldName, fieldValue := range metadata {
				if renamedField, found := firebaseAuthMetadataRenames[fieldName]; found {
					fieldName = renamedField
				}
				renamedMetadata[fieldName] = fieldValue
			}
			reshapedData["metadata"] = renamedMetadata
		}

		return reshapedData

	default:
		return data
	}
}

func (c *Converter) firebaseAuthSubject(data interface{}) string {
	dataMap, isMap := data.(map[string]interface{})
	if !isMap {
		return ""
	}

	uid, _ := dataMap["uid"].(string)
	if uid == "" {
		return ""
	}

	return "users/" + uid
}
