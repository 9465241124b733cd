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
	"testing"

	"github.com/funchost/funchost/pkg/cloudevents"

	"github.com/stretchr/testify/suite"
)

type jsonFormatTestSuite struct {
	suite.Suite
	format *JSON
}

func (suite *jsonFormatTestSuite) SetupTest() {
	suite.format = NewJSON()
}

func (suite *jsonFormatTestSuite) TestDecodeV1() {
	event, err := suite.format.DecodeEvent([]byte(`{
		"specversion": "1.0",
		"id": "a1",
		"source": "/s",
		"type": "t",
		"data": "hi"
	}`))
	suite.Require().NoError(err)

	suite.Require().Equal("a1", event.ID())
	suite.Require().Equal("/s", event.SourceString())
	suite.Require().Equal("t", event.Type())
	suite.Require().Equal("hi", event.Data())
	suite.Require().IsType(&cloudevents.EventV1{}, event)
}

func (suite *jsonFormatTestSuite) TestDecodeV1DataBase64() {
	event, err := suite.format.DecodeEvent([]byte(`{
		"specversion": "1.0",
		"id": "a1",
		"source": "/s",
		"type": "t",
		"data_base64": "aGVsbG8="
	}`))
	suite.Require().NoError(err)

	suite.Require().Equal([]byte("hello"), event.Data())

	// the wire-only field must not survive as an attribute
	_, found := event.Get("data_base64")
	suite.Require().False(found)
}

func (suite *jsonFormatTestSuite) TestDecodeV1DataBase64Tolerance() {
	for _, encodedValue := range []string{
		"aGVsbG8=",
		"aGVsbG8",
		"aGVs\nbG8=",
		" aGVsbG8= ",
	} {
		event, err := suite.format.DecodeEvent([]byte(`{
			"specversion": "1.0",
			"id": "a1",
			"source": "/s",
			"type": "t",
			"data_base64": "` + encodedValue + `"
		}`))
		suite.Require().NoError(err, "encoded value: %q", encodedValue)
		suite.Require().Equal([]byte("hello"), event.Data())
	}
}

func (suite *jsonFormatTestSuite) TestDecodeV1DataAndDataBase64Conflict() {
	_, err := suite.format.DecodeEvent([]byte(`{
		"specversion": "1.0",
		"id": "a1",
		"source": "/s",
		"type": "t",
		"data": "hi",
		"data_base64": "aGVsbG8="
	}`))
	suite.Require().IsType(&cloudevents.AttributeError{}, err)
}

func (suite *jsonFormatTestSuite) TestDecodeV0ExpandsJSONStringData() {
	event, err := suite.format.DecodeEvent([]byte(`{
		"specversion": "0.3",
		"id": "a1",
		"source": "/s",
		"type": "t",
		"datacontenttype": "application/json",
		"data": "{\"hello\": \"world\"}"
	}`))
	suite.Require().NoError(err)

	suite.Require().IsType(&cloudevents.EventV0{}, event)
	suite.Require().Equal(map[string]interface{}{"hello": "world"}, event.Data())
}

func (suite *jsonFormatTestSuite) TestDecodeV0KeepsNonJSONStringData() {
	event, err := suite.format.DecodeEvent([]byte(`{
		"specversion": "0.3",
		"id": "a1",
		"source": "/s",
		"type": "t",
		"datacontenttype": "text/plain",
		"data": "{\"hello\": \"world\"}"
	}`))
	suite.Require().NoError(err)
	suite.Require().Equal(`{"hello": "world"}`, event.Data())
}

func (suite *jsonFormatTestSuite) TestDecodeUnknownVersion() {
	_, err := suite.format.DecodeEvent([]byte(`{
		"specversion": "2.0",
		"id": "a1",
		"source": "/s",
		"type": "t"
	}`))
	suite.Require().IsType(&cloudevents.SpecVersionError{}, err)
}

func (suite *jsonFormatTestSuite) TestDecodeArrayBodyFails() {
	_, err := suite.format.DecodeEvent([]byte(`[{"specversion": "1.0", "id": "a1", "source": "/s", "type": "t"}]`))
	suite.Require().Error(err)
}

func (suite *jsonFormatTestSuite) TestEncodeDeterministic() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0",
		"id":          "a1",
		"source":      "/s",
		"type":        "t",
		"data":        "hi",
	})
	suite.Require().NoError(err)

	encodedBody, err := suite.format.EncodeEvent(event)
	suite.Require().NoError(err)
	suite.Require().Equal(`{"data":"hi","id":"a1","source":"/s","specversion":"1.0","type":"t"}`, string(encodedBody))
}

func (suite *jsonFormatTestSuite) TestEncodeBinaryDataAsBase64() {
	event, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0",
		"id":          "a1",
		"source":      "/s",
		"type":        "t",
		"data":        []byte{0x00, 0x01, 0xff},
	})
	suite.Require().NoError(err)

	encodedBody, err := suite.format.EncodeEvent(event)
	suite.Require().NoError(err)
	suite.Require().Equal(`{"data_base64":"AAH/","id":"a1","source":"/s","specversion":"1.0","type":"t"}`, string(encodedBody))
}

func (suite *jsonFormatTestSuite) TestRoundTripV1() {
	for _, attributes := range []map[string]interface{}{
		{
			"specversion": "1.0",
			"id":          "a1",
			"source":      "/s",
			"type":        "t",
			"data":        "plain text",
		},
		{
			"specversion": "1.0",
			"id":          "a2",
			"source":      "//storage.googleapis.com/projects/_/buckets/b",
			"type":        "google.cloud.storage.object.v1.finalized",
			"subject":     "objects/o",
			"time":        "2020-01-23T12:34:56Z",
			"data":        []byte("binary\x00payload"),
			"traceparent": "00-abc-def-01",
		},
		{
			"specversion":     "1.0",
			"id":              "a3",
			"source":          "/s",
			"type":            "t",
			"datacontenttype": "application/json",
			"data":            map[string]interface{}{"hello": "world", "number": 3.5},
		},
	} {
		event, err := cloudevents.New(attributes)
		suite.Require().NoError(err)

		encodedBody, err := suite.format.EncodeEvent(event)
		suite.Require().NoError(err)

		decodedEvent, err := suite.format.DecodeEvent(encodedBody)
		suite.Require().NoError(err)

		suite.Require().True(cloudevents.Equal(event, decodedEvent),
			"round trip mismatch: %v != %v", event.Attributes(), decodedEvent.Attributes())
	}
}

func (suite *jsonFormatTestSuite) TestBatchRoundTrip() {
	firstEvent, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0", "id": "a1", "source": "/s", "type": "t", "data": "one",
	})
	suite.Require().NoError(err)

	secondEvent, err := cloudevents.New(map[string]interface{}{
		"specversion": "1.0", "id": "a2", "source": "/s", "type": "t", "data": []byte("two"),
	})
	suite.Require().NoError(err)

	encodedBody, err := suite.format.EncodeBatch([]cloudevents.Event{firstEvent, secondEvent})
	suite.Require().NoError(err)

	decodedEvents, err := suite.format.DecodeBatch(encodedBody)
	suite.Require().NoError(err)
	suite.Require().Len(decodedEvents, 2)
	suite.Require().True(cloudevents.Equal(firstEvent, decodedEvents[0]))
	suite.Require().True(cloudevents.Equal(secondEvent, decodedEvents[1]))
}

// a one element array stays an array
func (suite *jsonFormatTestSuite) TestBatchDecodeSingleElement() {
	decodedEvents, err := suite.format.DecodeBatch(
		[]byte(`[{"specversion": "1.0", "id": "a1", "source": "/s", "type": "t"}]`))
	suite.Require().NoError(err)
	suite.Require().Len(decodedEvents, 1)
	suite.Require().Equal("a1", decodedEvents[0].ID())
}

func (suite *jsonFormatTestSuite) TestBatchDecodeObjectBodyFails() {
	_, err := suite.format.DecodeBatch([]byte(`{"specversion": "1.0", "id": "a1", "source": "/s", "type": "t"}`))
	suite.Require().Error(err)
}

func TestJSONFormatTestSuite(t *testing.T) {
	suite.Run(t, new(jsonFormatTestSuite))
}
