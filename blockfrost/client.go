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

// Package blockfrost is a typed client for the subset of the
// Blockfrost indexer API needed to read chain state and to
// submit or evaluate transactions.
package blockfrost

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blinklabs-io/snowdrift/transport"
)

const (
	// ProjectIDHeader carries the API key on every request.
	ProjectIDHeader = "project_id"

	ContentTypeCBOR = "application/cbor"
)

var ErrUnknownNetwork = errors.New("unknown network")

// BaseURL returns the public Blockfrost endpoint for a named
// network.
func BaseURL(network string) (string, error) {
	switch strings.ToLower(network) {
	case "", "mainnet":
		return "https://cardano-mainnet.blockfrost.io/api/v0", nil
	case "preprod":
		return "https://cardano-preprod.blockfrost.io/api/v0", nil
	case "preview":
		return "https://cardano-preview.blockfrost.io/api/v0", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
}

// Sender issues a single request. *transport.Transport
// satisfies it.
type Sender interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// ClientConfig configures a Client. BaseURL overrides the
// URL derived from Network.
type ClientConfig struct {
	Sender    Sender
	Logger    *slog.Logger
	Network   string
	BaseURL   string
	ProjectID string
	Timeout   time.Duration
}

// Client calls the indexer endpoints.
type Client struct {
	sender    Sender
	logger    *slog.Logger
	baseURL   string
	projectID string
	timeout   time.Duration
}

// NewClient creates a Client. A nil Sender gets a default
// verifying transport.
func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		var err error
		baseURL, err = BaseURL(cfg.Network)
		if err != nil {
			return nil, err
		}
	}
	sender := cfg.Sender
	if sender == nil {
		sender = transport.New(transport.Config{Logger: logger})
	}
	return &Client{
		sender:    sender,
		logger:    logger.With("component", "blockfrost"),
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: cfg.ProjectID,
		timeout:   cfg.Timeout,
	}, nil
}

// BaseURL returns the URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) send(
	ctx context.Context,
	req *transport.Request,
) (*transport.Response, error) {
	req.BaseURL = c.baseURL
	if req.Timeout == 0 {
		req.Timeout = c.timeout
	}
	if c.projectID != "" {
		if req.Headers == nil {
			req.Headers = make(map[string]string, 1)
		}
		req.Headers[ProjectIDHeader] = c.projectID
	}
	resp, err := c.sender.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		apiErr := newAPIError(resp)
		c.logger.Debug(
			"indexer returned an error",
			"endpoint", req.Endpoint,
			"status", apiErr.StatusCode,
			"message", apiErr.Message,
		)
		return nil, apiErr
	}
	return resp, nil
}

func get[T any](
	ctx context.Context,
	c *Client,
	endpoint string,
	query string,
) (T, error) {
	var zero T
	resp, err := c.send(ctx, &transport.Request{
		Endpoint: endpoint,
		Method:   http.MethodGet,
		Query:    query,
	})
	if err != nil {
		return zero, err
	}
	return transport.DecodeJSON[T](resp)
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	return get[HealthResponse](ctx, c, "/health", "")
}

// LatestBlock calls GET /blocks/latest.
func (c *Client) LatestBlock(ctx context.Context) (BlockResponse, error) {
	return get[BlockResponse](ctx, c, "/blocks/latest", "")
}

// LatestEpochParameters calls GET /epochs/latest/parameters.
func (c *Client) LatestEpochParameters(
	ctx context.Context,
) (ProtocolParamsResponse, error) {
	return get[ProtocolParamsResponse](
		ctx,
		c,
		"/epochs/latest/parameters",
		"",
	)
}

// LatestEpochParametersRaw returns the protocol parameters
// document as text.
func (c *Client) LatestEpochParametersRaw(
	ctx context.Context,
) (string, error) {
	resp, err := c.send(ctx, &transport.Request{
		Endpoint: "/epochs/latest/parameters",
		Method:   http.MethodGet,
	})
	if err != nil {
		return "", err
	}
	return transport.Text(resp), nil
}

// AddressUtxos fetches one page of UTXOs held by address,
// optionally filtered to a single asset unit. An address the
// indexer has never seen yields an empty page.
func (c *Client) AddressUtxos(
	ctx context.Context,
	address string,
	asset string,
	params PaginationParams,
) ([]UtxoResponse, error) {
	endpoint := "/addresses/" + url.PathEscape(address) + "/utxos"
	if asset != "" {
		endpoint += "/" + url.PathEscape(asset)
	}
	page, err := get[[]UtxoResponse](ctx, c, endpoint, params.Query())
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return []UtxoResponse{}, nil
		}
		return nil, err
	}
	return page, nil
}

// SubmitTx posts the signed transaction bytes and returns the
// transaction id reported by the indexer.
func (c *Client) SubmitTx(ctx context.Context, txCbor []byte) (string, error) {
	resp, err := c.send(ctx, &transport.Request{
		Endpoint:    "/tx/submit",
		Method:      http.MethodPost,
		Body:        txCbor,
		ContentType: ContentTypeCBOR,
	})
	if err != nil {
		return "", err
	}
	return transport.DecodeJSON[string](resp)
}

// EvaluateTx asks the indexer to run the transaction's
// scripts and report their execution units.
func (c *Client) EvaluateTx(
	ctx context.Context,
	txCbor []byte,
) (EvaluateResponse, error) {
	body := make([]byte, base64.StdEncoding.EncodedLen(len(txCbor)))
	base64.StdEncoding.Encode(body, txCbor)
	resp, err := c.send(ctx, &transport.Request{
		Endpoint:    "/utils/txs/evaluate",
		Method:      http.MethodPost,
		Body:        body,
		ContentType: ContentTypeCBOR,
	})
	if err != nil {
		return EvaluateResponse{}, err
	}
	return transport.DecodeJSON[EvaluateResponse](resp)
}
