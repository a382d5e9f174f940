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
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	DefaultTimeout     = 120 * time.Second
	DefaultContentType = "application/json"
)

// Request is a declarative description of a single outbound
// HTTP call.
type Request struct {
	BaseURL  string
	Endpoint string
	Method   string
	// Headers are matched case-insensitively. When two keys
	// differ only by case, the one that sorts first wins.
	Headers map[string]string
	// Query is a pre-encoded query string without the
	// leading '?'.
	Query       string
	Body        []byte
	ContentType string
	// Timeout of zero uses the transport default.
	Timeout time.Duration
}

// URL joins the base URL, endpoint and query string. The
// endpoint and query are joined with exactly one '?'.
func (r *Request) URL() (string, error) {
	if r.BaseURL == "" {
		return "", errors.New("request base URL is empty")
	}
	base, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf(
			"invalid base URL %q: scheme and host required",
			r.BaseURL,
		)
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(r.BaseURL, "/"))
	endpoint := strings.TrimLeft(r.Endpoint, "/")
	if endpoint != "" {
		sb.WriteString("/")
		sb.WriteString(endpoint)
	}
	query := strings.TrimLeft(r.Query, "?&")
	if query != "" {
		if strings.Contains(endpoint, "?") {
			sb.WriteString("&")
		} else {
			sb.WriteString("?")
		}
		sb.WriteString(query)
	}
	return sb.String(), nil
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// header builds the wire headers. Keys are canonicalized so
// that no header is sent twice.
func (r *Request) header() http.Header {
	h := make(http.Header, len(r.Headers)+1)
	keys := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		ck := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(k))
		if ck == "" {
			continue
		}
		if _, ok := h[ck]; ok {
			continue
		}
		h[ck] = []string{r.Headers[k]}
	}
	if r.Body != nil {
		contentType := r.ContentType
		if contentType == "" {
			contentType = DefaultContentType
		}
		h.Set("Content-Type", contentType)
	}
	return h
}

func (r *Request) newHTTPRequest(
	ctx context.Context,
	target string,
) (*http.Request, error) {
	var body *bytes.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, r.method(), target, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, r.method(), target, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header = r.header()
	return req, nil
}
