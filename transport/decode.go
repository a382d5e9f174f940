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

package transport

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Response is the raw outcome of a request that reached the
// peer. Non-2xx status codes are not errors at this layer.
type Response struct {
	Header     http.Header
	Body       []byte
	StatusCode int
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON parses the response body as JSON into a T.
func DecodeJSON[T any](resp *Response) (T, error) {
	var ret T
	if resp == nil {
		return ret, &DecodeError{Err: errors.New("nil response")}
	}
	if len(resp.Body) == 0 {
		return ret, &DecodeError{Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(resp.Body, &ret); err != nil {
		return ret, &DecodeError{Err: err, Body: resp.Body}
	}
	return ret, nil
}

// Text returns the response body as text.
func Text(resp *Response) string {
	if resp == nil {
		return ""
	}
	return string(resp.Body)
}
