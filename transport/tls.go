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
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// TLSMode selects how server certificates are validated.
type TLSMode string

const (
	// TLSVerify validates the server chain and hostname
	// before the handshake completes.
	TLSVerify TLSMode = "verify"
	// TLSInsecureSkipVerify accepts any certificate. It exists
	// for self-signed test indexers only.
	TLSInsecureSkipVerify TLSMode = "insecure-skip-verify"
)

// ParseTLSMode parses a mode name. An empty name is
// TLSVerify.
func ParseTLSMode(name string) (TLSMode, error) {
	switch TLSMode(strings.ToLower(name)) {
	case "", TLSVerify:
		return TLSVerify, nil
	case TLSInsecureSkipVerify:
		return TLSInsecureSkipVerify, nil
	default:
		return "", fmt.Errorf("unknown TLS mode: %q", name)
	}
}

func newTLSConfig(mode TLSMode, rootCAs *x509.CertPool) *tls.Config {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    rootCAs,
	}
	if mode == TLSInsecureSkipVerify {
		//nolint:gosec
		cfg.InsecureSkipVerify = true
	}
	return cfg
}

// logCertificateError logs the chain detail of a failed
// certificate validation. It returns false when err is not a
// certificate validation failure.
func logCertificateError(logger *slog.Logger, err error) bool {
	var certErr *tls.CertificateVerificationError
	if !errors.As(err, &certErr) {
		return false
	}
	logger.Error(
		"certificate validation failed",
		"error", certErr.Err,
		"chain_status", chainStatus(certErr.Err),
	)
	for depth, cert := range certErr.UnverifiedCertificates {
		logger.Error(
			"certificate chain entry",
			"depth", depth,
			"subject", cert.Subject.String(),
			"issuer", cert.Issuer.String(),
			"not_before", cert.NotBefore,
			"not_after", cert.NotAfter,
			"dns_names", cert.DNSNames,
		)
	}
	return true
}

func chainStatus(err error) string {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	switch {
	case errors.As(err, &unknownAuthority):
		return "untrusted-root"
	case errors.As(err, &hostname):
		return "name-mismatch"
	case errors.As(err, &invalid):
		switch invalid.Reason {
		case x509.Expired:
			return "expired"
		case x509.NotAuthorizedToSign:
			return "not-authorized-to-sign"
		default:
			return "invalid"
		}
	default:
		return "unknown"
	}
}
