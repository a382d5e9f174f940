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

// Package txsubmit submits signed transactions to the indexer
// and asks it to evaluate their scripts.
package txsubmit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	gledger "github.com/blinklabs-io/gouroboros/ledger"
	"github.com/blinklabs-io/snowdrift/blockfrost"
	"github.com/blinklabs-io/snowdrift/transport"
	"github.com/blinklabs-io/snowdrift/wallet"
)

// Indexer is the part of the indexer API used here.
// *blockfrost.Client satisfies it.
type Indexer interface {
	SubmitTx(ctx context.Context, txCbor []byte) (string, error)
	EvaluateTx(ctx context.Context, txCbor []byte) (blockfrost.EvaluateResponse, error)
}

// Config configures a Submitter.
type Config struct {
	Indexer Indexer
	Logger  *slog.Logger
}

// Submitter moves serialized transactions to the indexer.
// Nothing is retried.
type Submitter struct {
	indexer Indexer
	logger  *slog.Logger
}

// New creates a Submitter.
func New(cfg Config) (*Submitter, error) {
	if cfg.Indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Submitter{
		indexer: cfg.Indexer,
		logger:  cfg.Logger.With("component", "txsubmit"),
	}, nil
}

// TxID decodes a signed transaction and returns its hash.
func TxID(txCbor []byte) (string, error) {
	txType, err := gledger.DetermineTransactionType(txCbor)
	if err != nil {
		return "", fmt.Errorf("determine transaction type: %w", err)
	}
	tx, err := gledger.NewTransactionFromCbor(txType, txCbor)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction from CBOR: %w", err)
	}
	if tx == nil {
		return "", errors.New("decoded transaction is nil")
	}
	return tx.Hash().String(), nil
}

// Submit posts the transaction bytes and returns the
// transaction id reported by the indexer. Every failure is a
// *SubmitError.
func (s *Submitter) Submit(ctx context.Context, txCbor []byte) (string, error) {
	if len(txCbor) == 0 {
		return "", &SubmitError{Message: "empty transaction"}
	}
	txID, err := s.indexer.SubmitTx(ctx, txCbor)
	if err != nil {
		subErr := &SubmitError{Message: err.Error(), Err: err}
		var apiErr *blockfrost.APIError
		if errors.As(err, &apiErr) {
			subErr.StatusCode = apiErr.StatusCode
			if apiErr.Structured && apiErr.Message != "" {
				subErr.Message = apiErr.Message
			}
		}
		s.logger.Error(
			"transaction submission failed",
			"status", subErr.StatusCode,
			"message", subErr.Message,
		)
		return "", subErr
	}
	if localID, err := TxID(txCbor); err == nil && localID != txID {
		s.logger.Warn(
			"indexer returned an unexpected transaction id",
			"tx_id", txID,
			"computed_tx_id", localID,
		)
	}
	s.logger.Info("transaction submitted", "tx_id", txID)
	return txID, nil
}

// SubmitTransaction serializes tx and submits it.
func (s *Submitter) SubmitTransaction(
	ctx context.Context,
	tx wallet.Serializer,
) (string, error) {
	txCbor, err := tx.Serialize()
	if err != nil {
		return "", &SubmitError{
			Message: "serialize transaction: " + err.Error(),
			Err:     err,
		}
	}
	return s.Submit(ctx, txCbor)
}

// Evaluate asks the indexer for the execution units of every
// redeemer in the transaction. A result whose scripts failed
// is returned without error. When no result could be obtained
// the error is an *EvaluationError.
func (s *Submitter) Evaluate(
	ctx context.Context,
	txCbor []byte,
) (*EvaluationResult, error) {
	resp, err := s.indexer.EvaluateTx(ctx, txCbor)
	if err != nil {
		evalErr := classify(err)
		s.logger.Error(
			"transaction evaluation failed",
			"kind", evalErr.Kind,
			"message", evalErr.Message,
		)
		return nil, evalErr
	}
	result, err := newEvaluationResult(resp)
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			s.logger.Error(
				"transaction evaluation failed",
				"kind", evalErr.Kind,
				"message", evalErr.Message,
			)
		}
		return nil, err
	}
	if result.Failed() {
		s.logger.Info(
			"transaction scripts failed evaluation",
			"redeemers", result.RedeemerKeys(),
		)
	}
	return result, nil
}

// EvaluateTransaction serializes tx and evaluates it.
func (s *Submitter) EvaluateTransaction(
	ctx context.Context,
	tx wallet.Serializer,
) (*EvaluationResult, error) {
	txCbor, err := tx.Serialize()
	if err != nil {
		return nil, &EvaluationError{
			Kind:    KindUnstructured,
			Message: "serialize transaction: " + err.Error(),
			Err:     err,
		}
	}
	return s.Evaluate(ctx, txCbor)
}

func classify(err error) *EvaluationError {
	var apiErr *blockfrost.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Structured:
		return &EvaluationError{Kind: KindAPI, Message: apiErr.Message, Err: err}
	case errors.As(err, &apiErr):
		return &EvaluationError{Kind: KindUnstructured, Message: err.Error(), Err: err}
	case errors.Is(err, transport.ErrTransport), errors.Is(err, transport.ErrDecode):
		return &EvaluationError{Kind: KindTransport, Message: "evaluation request failed", Err: err}
	default:
		return &EvaluationError{Kind: KindUnstructured, Message: err.Error(), Err: err}
	}
}
