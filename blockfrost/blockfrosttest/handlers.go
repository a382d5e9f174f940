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

package blockfrosttest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"slices"

	"github.com/blinklabs-io/snowdrift/blockfrost"
)

const (
	apiVersion  = "0.1.0"
	maxBodySize = 1 << 20
)

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes a Blockfrost-format error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, blockfrost.ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeBackendError maps a Backend error onto a response.
func (s *Server) writeBackendError(
	w http.ResponseWriter,
	op string,
	err error,
) {
	var bErr *Error
	if errors.As(err, &bErr) {
		writeError(w, bErr.StatusCode, bErr.Name, bErr.Message)
		return
	}
	s.logger.Error(
		"backend request failed",
		"op", op,
		"error", err,
	)
	writeError(
		w,
		http.StatusInternalServerError,
		"Internal Server Error",
		"failed to "+op,
	)
}

func (s *Server) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, map[string]string{
		"url":     "https://blockfrost.io/",
		"version": apiVersion,
	})
}

func (s *Server) handleNotFound(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeError(w, ErrNotFound.StatusCode, ErrNotFound.Name, ErrNotFound.Message)
}

func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, blockfrost.HealthResponse{
		IsHealthy: true,
	})
}

func (s *Server) handleLatestBlock(
	w http.ResponseWriter,
	_ *http.Request,
) {
	block, err := s.backend.LatestBlock()
	if err != nil {
		s.writeBackendError(w, "retrieve latest block", err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleLatestEpochParams(
	w http.ResponseWriter,
	_ *http.Request,
) {
	params, err := s.backend.ProtocolParams()
	if err != nil {
		s.writeBackendError(w, "retrieve protocol parameters", err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

// handleAddressUtxos serves one page of an address's UTXOs.
// The backend order is treated as ascending.
func (s *Server) handleAddressUtxos(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := blockfrost.ParsePagination(r)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
		return
	}
	utxos, err := s.backend.AddressUtxos(
		r.PathValue("address"),
		r.PathValue("asset"),
	)
	if err != nil {
		s.writeBackendError(w, "retrieve address utxos", err)
		return
	}
	if params.Order == blockfrost.PaginationOrderDesc {
		utxos = slices.Clone(utxos)
		slices.Reverse(utxos)
	}
	blockfrost.SetPaginationHeaders(w, len(utxos), params)
	start := (params.Page - 1) * params.Count
	if start >= len(utxos) {
		writeJSON(w, http.StatusOK, []blockfrost.UtxoResponse{})
		return
	}
	end := min(start+params.Count, len(utxos))
	writeJSON(w, http.StatusOK, utxos[start:end])
}

// readCborBody checks the content type and reads the request
// body.
func readCborBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != blockfrost.ContentTypeCBOR {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"Invalid Content-Type header value, expected application/cbor.",
		)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || len(body) == 0 {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"Missing or unreadable request body.",
		)
		return nil, false
	}
	return body, true
}

func (s *Server) handleSubmitTx(
	w http.ResponseWriter,
	r *http.Request,
) {
	body, ok := readCborBody(w, r)
	if !ok {
		return
	}
	txID, err := s.backend.SubmitTx(body)
	if err != nil {
		s.writeBackendError(w, "submit transaction", err)
		return
	}
	s.logger.Debug("transaction submitted", "tx_id", txID)
	writeJSON(w, http.StatusOK, txID)
}

// handleEvaluateTx decodes the base64 transaction before
// passing it to the backend.
func (s *Server) handleEvaluateTx(
	w http.ResponseWriter,
	r *http.Request,
) {
	body, ok := readCborBody(w, r)
	if !ok {
		return
	}
	txCbor, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"Request body is not valid base64.",
		)
		return
	}
	result, err := s.backend.EvaluateTx(txCbor)
	if err != nil {
		s.writeBackendError(w, "evaluate transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
