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

package txsubmit

import (
	"errors"
	"fmt"
)

var ErrSubmit = errors.New("transaction submission failed")

// SubmitError reports a rejected or undeliverable
// submission. Message carries the indexer's explanation when
// one was returned.
type SubmitError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmitError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf(
			"transaction submission failed (%d): %s",
			e.StatusCode,
			e.Message,
		)
	}
	return "transaction submission failed: " + e.Message
}

func (e *SubmitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmit}
	}
	return []error{ErrSubmit, e.Err}
}

// EvaluationErrorKind classifies why an evaluation could not
// be obtained.
type EvaluationErrorKind string

const (
	// KindAPI is a structured indexer or evaluator error
	// with a machine-readable message.
	KindAPI EvaluationErrorKind = "api"
	// KindUnstructured is an indexer error without a
	// structured body.
	KindUnstructured EvaluationErrorKind = "unstructured"
	// KindTransport is a network or decode failure.
	KindTransport EvaluationErrorKind = "transport"
)

var ErrEvaluation = errors.New("transaction evaluation unavailable")

// EvaluationError means no evaluation result was obtained.
// Scripts that ran and failed are not an EvaluationError;
// they are reported in EvaluationResult.Failures.
type EvaluationError struct {
	Kind    EvaluationErrorKind
	Message string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("transaction evaluation unavailable (%s): %s", e.Kind, e.Message)
}

func (e *EvaluationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEvaluation}
	}
	return []error{ErrEvaluation, e.Err}
}
