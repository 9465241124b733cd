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

import "fmt"

// The decode error taxonomy. Each category is a distinct type so the HTTP
// layer can tell a protocol version problem from a malformed attribute or
// an unregistered format, and map each to a client error.

// SpecVersionError indicates a specversion value that is present but not
// supported by any known event variant.
type SpecVersionError struct {
	Version string
}

func (e *SpecVersionError) Error() string {
	return fmt.Sprintf("unsupported CloudEvents spec version %q", e.Version)
}

// AttributeError indicates a required attribute that is missing or empty,
// or an attribute whose value cannot be parsed into its declared form.
type AttributeError struct {
	Name   string
	Reason string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("invalid CloudEvents attribute %q: %s", e.Name, e.Reason)
}

// UnknownFormatError indicates a structured or batched content type naming
// a format for which no formatter is registered.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("no formatter registered for format %q", e.Format)
}

// NotCloudEventError signals "this request is not a CloudEvent at all" -
// a fallthrough marker allowing the caller to try other decode strategies,
// as opposed to a malformed CloudEvent which fails with one of the types
// above. Only if every strategy declines does the dispatcher surface a
// final error.
type NotCloudEventError struct {
	Reason string
}

func (e *NotCloudEventError) Error() string {
	return fmt.Sprintf("not a CloudEvent: %s", e.Reason)
}

// IsNotCloudEvent reports whether err is the fallthrough marker.
func IsNotCloudEvent(err error) bool {
	_, isNotCloudEvent := err.(*NotCloudEventError)
	return isNotCloudEvent
}
