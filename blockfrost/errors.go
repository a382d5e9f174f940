// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package blockfrost

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/blinklabs-io/snowdrift/transport"
)

// ErrAPI is matched by every APIError.
var ErrAPI = errors.New("indexer API error")

// APIError is returned for any non-2xx indexer response.
type APIError struct {
	StatusCode int
	ErrorName  string
	Message    string
	Body       []byte
	// Structured reports whether the body was the indexer's
	// {status_code, error, message} object.
	Structured bool
}

func (e *APIError) Error() string {
	if e.Structured {
		return fmt.Sprintf(
			"indexer returned %d %s: %s",
			e.StatusCode,
			e.ErrorName,
			e.Message,
		)
	}
	return fmt.Sprintf(
		"indexer returned %d: %s",
		e.StatusCode,
		truncate(e.Body),
	)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// NotFound reports whether the indexer answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func newAPIError(resp *transport.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
	parsed, err := transport.DecodeJSON[ErrorResponse](resp)
	if err == nil && (parsed.Message != "" || parsed.Error != "") {
		apiErr.Structured = true
		apiErr.ErrorName = parsed.Error
		apiErr.Message = parsed.Message
	}
	return apiErr
}

const maxErrorBody = 512

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
