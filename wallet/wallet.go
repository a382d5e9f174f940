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

// Package wallet describes the key and serialization
// capabilities the client consumes. Key derivation and
// transaction encoding live outside this module.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"golang.org/x/crypto/blake2b"
)

// KeyHashSize is the length of a key credential hash.
const KeyHashSize = 28

var (
	ErrMissingKey      = errors.New("missing key")
	ErrAliasedKeys     = errors.New("payment and stake keys are identical")
	ErrInvalidAddress  = errors.New("invalid base address")
	ErrAddressMismatch = errors.New("address does not match keys")
)

// KeyPair is an Ed25519 verification and signing key.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// Hash returns the Blake2b-224 hash of the public key.
func (k KeyPair) Hash() lcommon.Blake2b224 {
	return KeyHash(k.PublicKey)
}

func (k KeyPair) validate(name string) error {
	if len(k.PublicKey) != ed25519.PublicKeySize {
		return fmt.Errorf(
			"%w: %s public key must be %d bytes, got %d",
			ErrMissingKey,
			name,
			ed25519.PublicKeySize,
			len(k.PublicKey),
		)
	}
	if len(k.PrivateKey) == 0 {
		return fmt.Errorf("%w: %s private key", ErrMissingKey, name)
	}
	return nil
}

// KeyHash returns the Blake2b-224 hash used for key
// credentials and native-script policies.
func KeyHash(publicKey []byte) lcommon.Blake2b224 {
	h, err := blake2b.New(KeyHashSize, nil)
	if err != nil {
		// Only fails for an invalid size or key
		panic(err)
	}
	h.Write(publicKey)
	return lcommon.NewBlake2b224(h.Sum(nil))
}

// Keys are the keys and base address of one account. The
// payment and stake keys are distinct.
type Keys struct {
	Payment KeyPair
	Stake   KeyPair
	// Address is the bech32 base address
	Address string
}

// KeySupplier derives the keys of an account.
type KeySupplier interface {
	Keys(account uint32) (Keys, error)
}

// Validate checks that both key pairs are present and
// distinct and that Address carries their credentials.
func (k Keys) Validate() error {
	if err := k.Payment.validate("payment"); err != nil {
		return err
	}
	if err := k.Stake.validate("stake"); err != nil {
		return err
	}
	if bytes.Equal(k.Payment.PublicKey, k.Stake.PublicKey) ||
		bytes.Equal(k.Payment.PrivateKey, k.Stake.PrivateKey) {
		return ErrAliasedKeys
	}
	addr, err := lcommon.NewAddress(k.Address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if addr.PaymentKeyHash() != k.Payment.Hash() {
		return fmt.Errorf("%w: payment credential", ErrAddressMismatch)
	}
	if addr.StakeKeyHash() != k.Stake.Hash() {
		return fmt.Errorf("%w: stake credential", ErrAddressMismatch)
	}
	return nil
}

// PolicyKeyHash returns the payment key hash, which signs
// native-script minting policies.
func (k Keys) PolicyKeyHash() (lcommon.Blake2b224, error) {
	if err := k.Payment.validate("payment"); err != nil {
		return lcommon.Blake2b224{}, err
	}
	return k.Payment.Hash(), nil
}

// Serializer turns a constructed transaction into its
// canonical CBOR bytes.
type Serializer interface {
	Serialize() ([]byte, error)
}

// RawTransaction is an already serialized transaction.
type RawTransaction []byte

func (r RawTransaction) Serialize() ([]byte, error) {
	if len(r) == 0 {
		return nil, errors.New("empty transaction")
	}
	return bytes.Clone(r), nil
}

// StaticKeys is a KeySupplier with fixed keys per account.
type StaticKeys map[uint32]Keys

func (s StaticKeys) Keys(account uint32) (Keys, error) {
	keys, ok := s[account]
	if !ok {
		return Keys{}, fmt.Errorf("%w: account %d", ErrMissingKey, account)
	}
	if err := keys.Validate(); err != nil {
		return Keys{}, fmt.Errorf("account %d: %w", account, err)
	}
	return keys, nil
}
