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
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestURL(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		expected string
	}{
		{
			name: "endpoint and query",
			req: Request{
				BaseURL:  "https://indexer.example/api/v0",
				Endpoint: "/x",
				Query:    "count=10&page=1",
			},
			expected: "https://indexer.example/api/v0/x?count=10&page=1",
		},
		{
			name: "query with leading separator",
			req: Request{
				BaseURL:  "https://indexer.example/api/v0/",
				Endpoint: "/x",
				Query:    "?count=10&page=1",
			},
			expected: "https://indexer.example/api/v0/x?count=10&page=1",
		},
		{
			name: "endpoint already has a query",
			req: Request{
				BaseURL:  "https://indexer.example",
				Endpoint: "/x?order=desc",
				Query:    "count=10",
			},
			expected: "https://indexer.example/x?order=desc&count=10",
		},
		{
			name: "no query",
			req: Request{
				BaseURL:  "https://indexer.example",
				Endpoint: "blocks/latest",
			},
			expected: "https://indexer.example/blocks/latest",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.req.URL()
			require.NoError(t, err)
			assert.Equal(t, test.expected, got)
			assert.LessOrEqual(t, strings.Count(got, "?"), 1)
		})
	}
}

func TestRequestURLSingleQuestionMark(t *testing.T) {
	req := Request{
		BaseURL:  "http://127.0.0.1:3000",
		Endpoint: "/x",
		Query:    "count=10&page=1",
	}
	got, err := req.URL()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "/x?count=10&page=1"))
	assert.Equal(t, 1, strings.Count(got, "?"))
}

func TestRequestURLInvalidBase(t *testing.T) {
	for _, base := range []string{"", "not a url", "/relative"} {
		req := Request{BaseURL: base, Endpoint: "/x"}
		_, err := req.URL()
		assert.Error(t, err, base)
	}
}

func TestRequestHeaderDeduplication(t *testing.T) {
	req := Request{
		Headers: map[string]string{
			"project_id":   "lower",
			"Project_Id":   "mixed",
			"X-Custom":     "one",
			" x-custom ":   "two",
			"Content-Type": "text/plain",
		},
	}
	h := req.header()
	assert.Equal(t, []string{"mixed"}, h.Values("Project_id"))
	assert.Len(t, h.Values("X-Custom"), 1)
	// Without a body no content type is added
	assert.Equal(t, []string{"text/plain"}, h.Values("Content-Type"))

	req = Request{Body: []byte("abc"), ContentType: "application/cbor"}
	assert.Equal(t, "application/cbor", req.header().Get("Content-Type"))
	req = Request{Body: []byte("{}")}
	assert.Equal(t, DefaultContentType, req.header().Get("Content-Type"))
}

func TestSend(t *testing.T) {
	var gotHeader http.Header
	var gotBody []byte
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotHeader = r.Header.Clone()
			gotURI = r.URL.RequestURI()
			gotBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"hash":"abc"}`))
		},
	))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	tr := New(Config{PromRegistry: registry})
	resp, err := tr.Send(t.Context(), &Request{
		BaseURL:     srv.URL,
		Endpoint:    "/tx/submit",
		Method:      http.MethodPost,
		Query:       "count=1",
		Headers:     map[string]string{"project_id": "key"},
		Body:        []byte{0x84, 0xa4},
		ContentType: "application/cbor",
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "/tx/submit?count=1", gotURI)
	assert.Equal(t, "key", gotHeader.Get("project_id"))
	assert.Equal(t, "application/cbor", gotHeader.Get("Content-Type"))
	assert.Equal(t, []byte{0x84, 0xa4}, gotBody)

	decoded, err := DecodeJSON[map[string]string](resp)
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded["hash"])
	assert.Equal(t, `{"hash":"abc"}`, Text(resp))

	assert.InDelta(
		t,
		1,
		testutil.ToFloat64(
			tr.metrics.requests.WithLabelValues(http.MethodPost, "200"),
		),
		0,
	)
}

func TestSendNon2xxIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status_code":400}`))
		},
	))
	defer srv.Close()

	resp, err := New(Config{}).Send(
		t.Context(),
		&Request{BaseURL: srv.URL, Endpoint: "/x"},
	)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		},
	))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	tr := New(Config{PromRegistry: registry})
	_, err := tr.Send(t.Context(), &Request{
		BaseURL:  srv.URL,
		Endpoint: "/slow",
		Timeout:  50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrDecode)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.True(t, tErr.Timeout())
	assert.InDelta(
		t,
		1,
		testutil.ToFloat64(
			tr.metrics.failures.WithLabelValues(http.MethodGet, "timeout"),
		),
		0,
	)
}

func TestSendResponseSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			size := 16
			if r.URL.Path == "/large" {
				size = 17
			}
			_, _ = w.Write(bytes.Repeat([]byte("a"), size))
		},
	))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	tr := New(Config{PromRegistry: registry, MaxResponseSize: 16})

	resp, err := tr.Send(
		t.Context(),
		&Request{BaseURL: srv.URL, Endpoint: "/exact"},
	)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 16)

	_, err = tr.Send(
		t.Context(),
		&Request{BaseURL: srv.URL, Endpoint: "/large"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "read", tErr.Op)
	assert.InDelta(
		t,
		1,
		testutil.ToFloat64(
			tr.metrics.failures.WithLabelValues(http.MethodGet, "size"),
		),
		0,
	)
}

func TestSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(Config{}).Send(
		t.Context(),
		&Request{BaseURL: addr, Endpoint: "/x"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSendTLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`"ok"`))
		},
	))
	defer srv.Close()
	req := &Request{BaseURL: srv.URL, Endpoint: "/health"}

	t.Run("untrusted certificate is rejected", func(t *testing.T) {
		var logBuf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
		_, err := New(Config{Logger: logger}).Send(t.Context(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		var certErr *tls.CertificateVerificationError
		require.ErrorAs(t, err, &certErr)
		assert.NotEmpty(t, certErr.UnverifiedCertificates)
		assert.Contains(t, logBuf.String(), "certificate validation failed")
		assert.Contains(t, logBuf.String(), "untrusted-root")
		assert.Contains(t, logBuf.String(), "certificate chain entry")
	})

	t.Run("trusted root is accepted", func(t *testing.T) {
		pool := x509.NewCertPool()
		pool.AddCert(srv.Certificate())
		resp, err := New(Config{RootCAs: pool}).Send(t.Context(), req)
		require.NoError(t, err)
		assert.Equal(t, `"ok"`, Text(resp))
	})

	t.Run("insecure mode accepts any certificate", func(t *testing.T) {
		resp, err := New(Config{TLSMode: TLSInsecureSkipVerify}).Send(
			t.Context(),
			req,
		)
		require.NoError(t, err)
		assert.True(t, resp.OK())
	})
}

func TestParseTLSMode(t *testing.T) {
	mode, err := ParseTLSMode("")
	require.NoError(t, err)
	assert.Equal(t, TLSVerify, mode)
	mode, err = ParseTLSMode("INSECURE-SKIP-VERIFY")
	require.NoError(t, err)
	assert.Equal(t, TLSInsecureSkipVerify, mode)
	_, err = ParseTLSMode("trust-me")
	assert.Error(t, err)
}

func TestDecodeJSONErrors(t *testing.T) {
	_, err := DecodeJSON[map[string]any](&Response{Body: []byte("{not json")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, errors.Is(err, ErrTransport))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, []byte("{not json"), decErr.Body)

	_, err = DecodeJSON[string](&Response{})
	assert.ErrorIs(t, err, ErrDecode)
	_, err = DecodeJSON[string](nil)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Empty(t, Text(nil))
}
