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

// Originating service hostnames
const (
	firebaseService         = "firebase.googleapis.com"
	firebaseAuthService     = "firebaseauth.googleapis.com"
	firebaseDatabaseService = "firebasedatabase.googleapis.com"
	firestoreService        = "firestore.googleapis.com"
	pubsubService           = "pubsub.googleapis.com"
	storageService          = "storage.googleapis.com"
)

const (
	pubsubPublishLegacyType = "google.pubsub.topic.publish"
	pubsubMessageType       = "type.googleapis.com/google.pubsub.v1.PubsubMessage"

	// raw emulator payloads carry no topic; keep conversion total with a
	// placeholder the function can still pattern match on
	unknownPubsubTopic = "projects/unknown/topics/unknown"
)

// legacyTypeToService resolves the originating service from a legacy event
// type when the payload carries no explicit resource.service, by longest
// known provider path prefix.
var legacyTypeToService = map[string]string{
	"providers/cloud.firestore/":           firestoreService,
	"providers/google.firebase.analytics/": firebaseService,
	"providers/firebase.auth/":             firebaseAuthService,
	"providers/google.firebase.database/":  firebaseDatabaseService,
	"providers/cloud.pubsub/":              pubsubService,
	"providers/cloud.storage/":             storageService,
	"google.pubsub":                        pubsubService,
	"google.storage":                       storageService,
}

// legacyTypeToCloudEventType is the authoritative mapping from the old GCF
// push event types to canonical CloudEvent types. An event type outside
// this table is not convertible.
var legacyTypeToCloudEventType = map[string]string{
	"google.pubsub.topic.publish":                               "google.cloud.pubsub.topic.v1.messagePublished",
	"providers/cloud.pubsub/eventTypes/topic.publish":           "google.cloud.pubsub.topic.v1.messagePublished",
	"google.storage.object.finalize":                            "google.cloud.storage.object.v1.finalized",
	"google.storage.object.delete":                              "google.cloud.storage.object.v1.deleted",
	"google.storage.object.archive":                             "google.cloud.storage.object.v1.archived",
	"google.storage.object.metadataUpdate":                      "google.cloud.storage.object.v1.metadataUpdated",
	"providers/cloud.storage/eventTypes/object.change":          "google.cloud.storage.object.v1.finalized",
	"google.firestore.document.write":                           "google.cloud.firestore.document.v1.written",
	"google.firestore.document.create":                          "google.cloud.firestore.document.v1.created",
	"google.firestore.document.update":                          "google.cloud.firestore.document.v1.updated",
	"google.firestore.document.delete":                          "google.cloud.firestore.document.v1.deleted",
	"providers/cloud.firestore/eventTypes/document.write":       "google.cloud.firestore.document.v1.written",
	"providers/cloud.firestore/eventTypes/document.create":      "google.cloud.firestore.document.v1.created",
	"providers/cloud.firestore/eventTypes/document.update":      "google.cloud.firestore.document.v1.updated",
	"providers/cloud.firestore/eventTypes/document.delete":      "google.cloud.firestore.document.v1.deleted",
	"google.firebase.analytics.event.log":                       "google.firebase.analytics.log.v1.written",
	"providers/google.firebase.analytics/eventTypes/event.log":  "google.firebase.analytics.log.v1.written",
	"google.firebase.auth.user.create":                          "google.firebase.auth.user.v1.created",
	"google.firebase.auth.user.delete":                          "google.firebase.auth.user.v1.deleted",
	"providers/firebase.auth/eventTypes/user.create":            "google.firebase.auth.user.v1.created",
	"providers/firebase.auth/eventTypes/user.delete":            "google.firebase.auth.user.v1.deleted",
	"google.firebase.database.ref.create":                       "google.firebase.database.ref.v1.created",
	"google.firebase.database.ref.write":                        "google.firebase.database.ref.v1.written",
	"google.firebase.database.ref.update":                       "google.firebase.database.ref.v1.updated",
	"google.firebase.database.ref.delete":                       "google.firebase.database.ref.v1.deleted",
	"providers/google.firebase.database/eventTypes/ref.create":  "google.firebase.database.ref.v1.created",
	"providers/google.firebase.database/eventTypes/ref.write":   "google.firebase.database.ref.v1.written",
	"providers/google.firebase.database/eventTypes/ref.update":  "google.firebase.database.ref.v1.updated",
	"providers/google.firebase.database/eventTypes/ref.delete":  "google.firebase.database.ref.v1.deleted",
}

// firebaseAuthMetadataRenames maps legacy Firebase Auth user metadata
// field names to their CloudEvents counterparts.
var firebaseAuthMetadataRenames = map[string]string{
	"createdAt":      "createTime",
	"lastSignedInAt": "lastSignInTime",
}
