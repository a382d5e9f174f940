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
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTransport is matched by every network-level failure:
	// DNS, connect, TLS and timeout.
	ErrTransport = errors.New("transport failure")

	// ErrDecode is matched by every response body that could
	// not be parsed. The request itself reached the peer.
	ErrDecode = errors.New("decode failure")

	// ErrResponseTooLarge is wrapped by the *Error returned when
	// a response body exceeds the configured size cap.
	ErrResponseTooLarge = errors.New("response body too large")
)

// Error describes a failed request at the network level.
type Error struct {
	Err    error
	Op     string
	Method string
	URL    string
}

func (e *Error) Error() string {
	return fmt.Sprintf(
		"transport: %s %s %s: %v",
		e.Op,
		e.Method,
		e.URL,
		e.Err,
	)
}

func (e *Error) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Timeout reports whether the request failed because its
// deadline expired.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// DecodeError describes a response body that could not be
// parsed into the requested shape.
type DecodeError struct {
	Err  error
	Body []byte
}

const maxErrorBodyLen = 256

func (e *DecodeError) Error() string {
	body := e.Body
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen]
	}
	return fmt.Sprintf("decode: %v (body: %q)", e.Err, body)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
