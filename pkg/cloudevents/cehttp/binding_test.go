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
	"testing"

	"github.com/funchost/funchost/pkg/cloudevents"
	"github.com/funchost/funchost/pkg/cloudevents/format"

	"github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type bindingTestSuite struct {
	suite.Suite
	binding *Binding
}

func (suite *bindingTestSuite) SetupTest() {
	testLogger, err := nucliozap.NewNuclioZapTest("test")
	suite.Require().NoError(err)

	suite.binding = NewBinding(testLogger)
}

func (suite *bindingTestSuite) TestBinaryDecode() {
	event, batch, err := suite.binding.Decode("text/plain; charset=utf-8",
		map[string][]string{
			"Ce-Specversion": {"1.0"},
			"Ce-Id":          {"a1"},
			"Ce-Source":      {"/s"},
			"Ce-Type":        {"t"},
			"Ce-Subject":     {"hello%20world"},
			"Ce-Myext":       {"%F0%9F%8C%BB"},
		},
		[]byte("the body"))
	suite.Require().NoError(err)
	suite.Require().Nil(batch)

	suite.Require().Equal("1.0", event.SpecVersion())
	suite.Require().Equal("a1", event.ID())
	suite.Require().Equal("/s", event.SourceString())
	suite.Require().Equal("t", event.Type())
	suite.Require().Equal("hello world", event.Subject())
	suite.Require().Equal(map[string]string{"myext": "🌻"}, event.Extensions())
	suite.Require().Equal("the body", event.Data())
	suite.Require().Equal("text/plain; charset=utf-8", event.DataContentTypeString())
}

func (suite *bindingTestSuite) TestBinaryDecodeHeaderNameNormalization() {
	event, _, err := suite.binding.Decode("",
		map[string][]string{
			"CE-SPECVERSION": {"1.0"},
			"ce_id":          {"a1"},
			"Ce_Source":      {"/s"},
			"cE-tYpE":        {"t"},
		},
		nil)
	suite.Require().NoError(err)
	suite.Require().Equal("a1", event.ID())
	suite.Require().Equal("/s", event.SourceString())
}

func (suite *bindingTestSuite) TestBinaryDecodeOpaqueBody() {
	event, _, err := suite.binding.Decode("application/octet-stream",
		map[string][]string{
			"Ce-Specversion": {"1.0"},
			"Ce-Id":          {"a1"},
			"Ce-Source":      {"/s"},
			"Ce-Type":        {"t"},
		},
		[]byte{0x00, 0xff, 0x10})
	suite.Require().NoError(err)
	suite.Require().Equal([]byte{0x00, 0xff, 0x10}, event.Data())
}

func (suite *bindingTestSuite) TestBinaryDecodeVersionGate() {

	// no ce-specversion header - not a CloudEvent, fall through
	_, _, err := suite.binding.Decode("application/json",
		map[string][]string{"Content-Length": {"2"}},
		[]byte("{}"))
	suite.Require().True(cloudevents.IsNotCloudEvent(err))

	// unsupported version - hard protocol error
	_, _, err = suite.binding.Decode("application/json",
		map[string][]string{"Ce-Specversion": {"0.9"}},
		[]byte("{}"))
	suite.Require().IsType(&cloudevents.SpecVersionError{}, err)

	// 1.0 decodes
	_, _, err = suite.binding.Decode("application/json",
		map[string][]string{
			"Ce-Specversion": {"1.0"},
			"Ce-Id":          {"a1"},
			"Ce-Source":      {"/s"},
			"Ce-Type":        {"t"},
		},
		[]byte("{}"))
	suite.Require().NoError(err)
}

func (suite *bindingTestSuite) TestStructuredDecode() {
	event, batch, err := suite.binding.Decode("application/cloudevents+json",
		nil,
		[]byte(`{"specversion":"1.0","id":"a1","source":"/s","type":"t","data":"hi"}`))
	suite.Require().NoError(err)
	suite.Require().Nil(batch)

	suite.Require().Equal("a1", event.ID())
	suite.Require().Equal("/s", event.SourceString())
	suite.Require().Equal("t", event.Type())
	suite.Require().Equal("hi", event.Data())
}

func (suite *bindingTestSuite) TestBatchedDecode() {
	event, batch, err := suite.binding.Decode("application/cloudevents-batch+json",
		nil,
		[]byte(`[{"specversion":"1.0","id":"a1","source":"/s","type":"t"}]`))
	suite.Require().NoError(err)
	suite.Require().Nil(event)

	// always a slice, even for a single element
	suite.Require().Len(batch, 1)
	suite.Require().Equal("a1", batch[0].ID())
}

func (suite *bindingTestSuite) TestUnknownFormat() {
	_, _, err := suite.binding.Decode("application/cloudevents+avro", nil, []byte("x"))
	suite.Require().IsType(&cloudevents.UnknownFormatError{}, err)

	_, _, err = suite.binding.Decode("application/cloudevents", nil, []byte("x"))
	suite.Require().IsType(&cloudevents.UnknownFormatError{}, err)
}

// a formatter registered later for the same name wins, and may decline to
// let earlier registrations handle the body
func (suite *bindingTestSuite) TestFormatterOverride() {
	suite.binding.RegisterFormat(&decliningFormat{name: "json"})

	// the declining formatter passes, the built-in one still decodes
	event, _, err := suite.binding.Decode("application/cloudevents+json",
		nil,
		[]byte(`{"specversion":"1.0","id":"a1","source":"/s","type":"t"}`))
	suite.Require().NoError(err)
	suite.Require().Equal("a1", event.ID())

	// an overriding formatter that handles the body takes precedence
	suite.binding.RegisterFormat(&fixedFormat{name: "json", eventID: "from-override"})

	event, _, err = suite.binding.Decode("application/cloudevents+json",
		nil,
		[]byte(`{"specversion":"1.0","id":"a1","source":"/s","type":"t"}`))
	suite.Require().NoError(err)
	suite.Require().Equal("from-override", event.ID())
}

func (suite *bindingTestSuite) TestEncodeBinary() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion":     "1.0",
		"id":              "a1",
		"source":          "/s",
		"type":            "t",
		"subject":         "hello world 🌻",
		"datacontenttype": "text/plain",
		"data":            "the body",
	})
	suite.Require().NoError(err)

	headers, body, err := suite.binding.EncodeBinary(event)
	suite.Require().NoError(err)

	suite.Require().Equal("1.0", headers["ce-specversion"])
	suite.Require().Equal("a1", headers["ce-id"])
	suite.Require().Equal("/s", headers["ce-source"])
	suite.Require().Equal("t", headers["ce-type"])
	suite.Require().Equal("hello%20world%20%F0%9F%8C%BB", headers["ce-subject"])
	suite.Require().Equal("text/plain", headers["Content-Type"])
	suite.Require().Equal([]byte("the body"), body)

	_, found := headers["ce-data"]
	suite.Require().False(found)
	_, found = headers["ce-datacontenttype"]
	suite.Require().False(found)
}

func (suite *bindingTestSuite) TestEncodeBinaryJSONData() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0",
		"id":          "a1",
		"source":      "/s",
		"type":        "t",
		"data":        map[string]interface{}{"hello": "world"},
	})
	suite.Require().NoError(err)

	headers, body, err := suite.binding.EncodeBinary(event)
	suite.Require().NoError(err)
	suite.Require().Equal("application/json", headers["Content-Type"])
	suite.Require().JSONEq(`{"hello":"world"}`, string(body))
}

func (suite *bindingTestSuite) TestEncodeStructured() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0",
		"id":          "a1",
		"source":      "/s",
		"type":        "t",
	})
	suite.Require().NoError(err)

	headers, body, err := suite.binding.EncodeStructured(event, "json")
	suite.Require().NoError(err)
	suite.Require().Equal("application/cloudevents+json", headers["Content-Type"])
	suite.Require().JSONEq(`{"specversion":"1.0","id":"a1","source":"/s","type":"t"}`, string(body))

	_, _, err = suite.binding.EncodeStructured(event, "avro")
	suite.Require().IsType(&cloudevents.UnknownFormatError{}, err)
}

func (suite *bindingTestSuite) TestEncodeBatched() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0",
		"id":          "a1",
		"source":      "/s",
		"type":        "t",
	})
	suite.Require().NoError(err)

	headers, body, err := suite.binding.EncodeBatched([]cloudevents.Event{event}, "json")
	suite.Require().NoError(err)
	suite.Require().Equal("application/cloudevents-batch+json", headers["Content-Type"])
	suite.Require().JSONEq(`[{"specversion":"1.0","id":"a1","source":"/s","type":"t"}]`, string(body))
}

func (suite *bindingTestSuite) TestBinaryRoundTrip() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion":     "1.0",
		"id":              "a1",
		"source":          "/s",
		"type":            "t",
		"subject":         "π § 🌻 — done",
		"time":            "2020-01-23T12:34:56Z",
		"datacontenttype": "text/plain; charset=utf-8",
		"data":            "round trip me",
		"myext":           "100% tricky",
	})
	suite.Require().NoError(err)

	headers, body, err := suite.binding.EncodeBinary(event)
	suite.Require().NoError(err)

	rawHeaders := map[string][]string{}
	for headerName, headerValue := range headers {
		if headerName != "Content-Type" {
			rawHeaders[headerName] = []string{headerValue}
		}
	}

	decodedEvent, _, err := suite.binding.Decode(headers["Content-Type"], rawHeaders, body)
	suite.Require().NoError(err)
	suite.Require().True(cloudevents.Equal(event, decodedEvent),
		"round trip mismatch: %v != %v", event.Attributes(), decodedEvent.Attributes())
}

type percentTestSuite struct {
	suite.Suite
}

func (suite *percentTestSuite) TestEncode() {
	suite.Require().Equal("plain", PercentEncode("plain"))
	suite.Require().Equal("hello%20world", PercentEncode("hello world"))
	suite.Require().Equal("100%25", PercentEncode("100%"))
	suite.Require().Equal("%F0%9F%8C%BB", PercentEncode("🌻"))
	suite.Require().Equal("%0A%0D%09", PercentEncode("\n\r\t"))
	suite.Require().Equal("", PercentEncode(""))
}

func (suite *percentTestSuite) TestDecodeMalformedPassesThrough() {
	suite.Require().Equal("100%", PercentDecode("100%"))
	suite.Require().Equal("%zz", PercentDecode("%zz"))
	suite.Require().Equal("%1", PercentDecode("%1"))
}

// the encode/decode pair is an exact inverse for any Unicode string
func (suite *percentTestSuite) TestRoundTrip() {
	for _, value := range []string{
		"",
		"plain",
		"with space",
		"100% of €50",
		"🌻🌻🌻",
		"tabs\tand\nnewlines",
		"中文, русский, عربى",
		"percent %25 literal",
		string([]byte{0x7f}),
	} {
		suite.Require().Equal(value, PercentDecode(PercentEncode(value)), "value: %q", value)
	}
}

// fixtures

type decliningFormat struct {
	name string
}

func (f *decliningFormat) Name() string { return f.name }

func (f *decliningFormat) DecodeEvent([]byte) (cloudevents.Event, error) {
	return nil, &cloudevents.NotCloudEventError{Reason: "declined"}
}

func (f *decliningFormat) EncodeEvent(cloudevents.Event) ([]byte, error) {
	return nil, &cloudevents.NotCloudEventError{Reason: "declined"}
}

func (f *decliningFormat) DecodeBatch([]byte) ([]cloudevents.Event, error) {
	return nil, &cloudevents.NotCloudEventError{Reason: "declined"}
}

func (f *decliningFormat) EncodeBatch([]cloudevents.Event) ([]byte, error) {
	return nil, &cloudevents.NotCloudEventError{Reason: "declined"}
}

type fixedFormat struct {
	format.Format
	name    string
	eventID string
}

func (f *fixedFormat) Name() string { return f.name }

func (f *fixedFormat) DecodeEvent([]byte) (cloudevents.Event, error) {
	return cloudevents.New(map[string]interface{}{
		"specversion": "1.0",
		"id":          f.eventID,
		"source":      "/fixed",
		"type":        "fixed",
	})
}

func TestBindingTestSuite(t *testing.T) {
	suite.Run(t, new(bindingTestSuite))
}

func TestPercentTestSuite(t *testing.T) {
	suite.Run(t, new(percentTestSuite))
}
