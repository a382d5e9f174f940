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

// Package transport issues single HTTP requests built from a
// declarative Request and returns the raw response. It owns
// the TLS validation policy and performs no retries.
package transport

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/snowdrift/transport"

// MaxResponseSize caps the number of body bytes read from a
// single response.
const MaxResponseSize = 32 << 20

// Config configures a Transport.
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	RootCAs      *x509.CertPool
	// RoundTripper replaces the default HTTP transport. The
	// TLS settings below are ignored when it is set.
	RoundTripper http.RoundTripper
	TLSMode      TLSMode
	Timeout      time.Duration
	// MaxResponseSize defaults to MaxResponseSize
	MaxResponseSize int64
}

// Transport sends Requests.
type Transport struct {
	client  *http.Client
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	timeout time.Duration
	maxBody int64
}

// New creates a Transport. Certificate validation is on
// unless cfg.TLSMode is TLSInsecureSkipVerify.
func New(cfg Config) *Transport {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "transport")
	if cfg.TLSMode == "" {
		cfg.TLSMode = TLSVerify
	}
	if cfg.TLSMode == TLSInsecureSkipVerify {
		logger.Warn(
			"TLS certificate validation is disabled, this mode is for testing only",
		)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = MaxResponseSize
	}
	rt := cfg.RoundTripper
	if rt == nil {
		httpTransport := http.DefaultTransport.(*http.Transport).Clone()
		httpTransport.TLSClientConfig = newTLSConfig(
			cfg.TLSMode,
			cfg.RootCAs,
		)
		rt = httpTransport
	}
	metrics := &Metrics{}
	metrics.Register(cfg.PromRegistry)
	return &Transport{
		// Per-request deadlines come from the context
		client:  &http.Client{Transport: rt},
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		timeout: cfg.Timeout,
		maxBody: cfg.MaxResponseSize,
	}
}

// Send issues the request and returns the raw response. Any
// failure before a response is received is returned as an
// *Error matching ErrTransport.
func (t *Transport) Send(
	ctx context.Context,
	req *Request,
) (*Response, error) {
	method := req.method()
	target, err := req.URL()
	if err != nil {
		return nil, &Error{
			Op:     "build",
			Method: method,
			URL:    req.BaseURL + req.Endpoint,
			Err:    err,
		}
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := t.tracer.Start(
		ctx,
		"transport.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.Endpoint),
		),
	)
	defer span.End()

	httpReq, err := req.newHTTPRequest(ctx, target)
	if err != nil {
		return nil, t.fail(span, &Error{
			Op:     "build",
			Method: method,
			URL:    target,
			Err:    err,
		})
	}
	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.fail(span, &Error{
			Op:     "send",
			Method: method,
			URL:    target,
			Err:    err,
		})
	}
	defer httpResp.Body.Close()
	// One byte past the cap tells an oversized body from one
	// that fits exactly
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBody+1))
	if err != nil {
		return nil, t.fail(span, &Error{
			Op:     "read",
			Method: method,
			URL:    target,
			Err:    err,
		})
	}
	if int64(len(body)) > t.maxBody {
		return nil, t.fail(span, &Error{
			Op:     "read",
			Method: method,
			URL:    target,
			Err: fmt.Errorf(
				"%w: exceeds %d bytes",
				ErrResponseTooLarge,
				t.maxBody,
			),
		})
	}
	elapsed := time.Since(start)
	t.metrics.observeResponse(method, httpResp.StatusCode, elapsed)
	span.SetAttributes(
		attribute.Int("http.response.status_code", httpResp.StatusCode),
	)
	if httpResp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, httpResp.Status)
	}
	t.logger.Debug(
		"request completed",
		"method", method,
		"endpoint", req.Endpoint,
		"status", httpResp.StatusCode,
		"duration", elapsed,
	)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (t *Transport) fail(span trace.Span, err *Error) error {
	reason := "network"
	switch {
	case err.Op == "build":
		reason = "build"
	case errors.Is(err.Err, ErrResponseTooLarge):
		reason = "size"
	case err.Timeout():
		reason = "timeout"
	case logCertificateError(t.logger, err.Err):
		reason = "tls"
	}
	t.metrics.observeFailure(err.Method, reason)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	if !errors.Is(err.Err, context.Canceled) {
		t.logger.Debug(
			fmt.Sprintf("request failed: %s", reason),
			"method", err.Method,
			"url", err.URL,
			"error", err.Err,
		)
	}
	return err
}
