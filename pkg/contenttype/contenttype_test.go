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

package contenttype

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type contentTypeTestSuite struct {
	suite.Suite
}

func (suite *contentTypeTestSuite) TestSimple() {
	contentType := Parse("application/json")

	suite.Require().Equal("application", contentType.MediaType())
	suite.Require().Equal("json", contentType.Subtype())
	suite.Require().Equal("json", contentType.SubtypeBase())
	suite.Require().Equal("", contentType.SubtypeFormat())
	suite.Require().Equal("", contentType.Charset())
	suite.Require().Empty(contentType.ErrorMessage())
	suite.Require().True(contentType.IsJSON())
}

func (suite *contentTypeTestSuite) TestCaseNormalization() {
	contentType := Parse("Application/CloudEvents+JSON")

	suite.Require().Equal("application", contentType.MediaType())
	suite.Require().Equal("cloudevents+json", contentType.Subtype())
	suite.Require().Equal("cloudevents", contentType.SubtypeBase())
	suite.Require().Equal("json", contentType.SubtypeFormat())
	suite.Require().True(contentType.IsJSON())
}

func (suite *contentTypeTestSuite) TestCharsetParameter() {
	contentType := Parse("text/plain; charset=utf-8")

	suite.Require().Equal("text", contentType.MediaType())
	suite.Require().Equal("plain", contentType.Subtype())
	suite.Require().Equal("utf-8", contentType.Charset())
}

func (suite *contentTypeTestSuite) TestQuotedParameterValue() {
	contentType := Parse(`application/json; charset="utf-8"; note="semi;colon \"quoted\""`)

	suite.Require().Equal("utf-8", contentType.Charset())
	suite.Require().Equal(`semi;colon "quoted"`, contentType.Param("note"))
}

func (suite *contentTypeTestSuite) TestParameterOrderPreserved() {
	contentType := Parse("application/json; a=1; b=2; c=3")

	params := contentType.Params()
	suite.Require().Len(params, 3)
	suite.Require().Equal(Param{Name: "a", Value: "1"}, params[0])
	suite.Require().Equal(Param{Name: "b", Value: "2"}, params[1])
	suite.Require().Equal(Param{Name: "c", Value: "3"}, params[2])
}

// duplicate parameters resolve last-write-wins
func (suite *contentTypeTestSuite) TestDuplicateCharsetLastWins() {
	contentType := Parse("text/plain; charset=us-ascii; charset=utf-8")

	suite.Require().Equal("utf-8", contentType.Charset())
	suite.Require().Len(contentType.Params(), 2)
}

func (suite *contentTypeTestSuite) TestComments() {
	contentType := Parse(`application (a comment (nested \) escaped)) /json; charset=(ignored)utf-8`)

	suite.Require().Equal("application", contentType.MediaType())
	suite.Require().Equal("json", contentType.Subtype())
	suite.Require().Equal("utf-8", contentType.Charset())
	suite.Require().Empty(contentType.ErrorMessage())
}

func (suite *contentTypeTestSuite) TestEmptyString() {
	contentType := Parse("")

	suite.Require().Equal("text", contentType.MediaType())
	suite.Require().Equal("plain", contentType.Subtype())
	suite.Require().Equal("us-ascii", contentType.Charset())
	suite.Require().Empty(contentType.ErrorMessage())
}

func (suite *contentTypeTestSuite) TestMalformedFallsBack() {
	for _, rawValue := range []string{
		"garbage",
		"application/",
		"/json",
		"application/json; charset",
		"application/json; =value",
		`application/json; charset="unterminated`,
		";;;",
	} {
		contentType := Parse(rawValue)

		suite.Require().Equal("text", contentType.MediaType(), "raw value: %s", rawValue)
		suite.Require().Equal("plain", contentType.Subtype(), "raw value: %s", rawValue)
		suite.Require().Equal("us-ascii", contentType.Charset(), "raw value: %s", rawValue)
		suite.Require().NotEmpty(contentType.ErrorMessage(), "raw value: %s", rawValue)
	}
}

func (suite *contentTypeTestSuite) TestNeverPanics() {
	for _, rawValue := range []string{
		"\x00\x01\x02",
		"((((((",
		`text/plain; a="\`,
		"a/b; c=d; e=",
		"\\\\\\",
	} {
		suite.Require().NotPanics(func() {
			contentType := Parse(rawValue)
			suite.Require().NotEmpty(contentType.MediaType())
			suite.Require().NotEmpty(contentType.Subtype())
		})
	}
}

func (suite *contentTypeTestSuite) TestCanonical() {
	contentType := Parse(`Application/CloudEvents+JSON; Charset=utf-8; note="a;b"`)

	suite.Require().Equal(`application/cloudevents+json; charset=utf-8; note="a;b"`, contentType.Canonical())
}

func (suite *contentTypeTestSuite) TestStringReturnsRaw() {
	rawValue := "Application/JSON; charset=UTF-8"
	suite.Require().Equal(rawValue, Parse(rawValue).String())
}

func TestContentTypeTestSuite(t *testing.T) {
	suite.Run(t, new(contentTypeTestSuite))
}
