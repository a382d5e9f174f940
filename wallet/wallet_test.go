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

package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPair(seed byte) KeyPair {
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	return KeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}
}

// baseAddress builds a testnet base address from two key
// pairs
func baseAddress(t *testing.T, payment, stake KeyPair) string {
	t.Helper()
	var raw [57]byte
	raw[0] = 0x00
	copy(raw[1:29], payment.Hash().Bytes())
	copy(raw[29:], stake.Hash().Bytes())
	addr, err := lcommon.NewAddressFromBytes(raw[:])
	require.NoError(t, err)
	return addr.String()
}

func testKeys(t *testing.T) Keys {
	t.Helper()
	payment := testKeyPair(1)
	stake := testKeyPair(2)
	return Keys{
		Payment: payment,
		Stake:   stake,
		Address: baseAddress(t, payment, stake),
	}
}

func TestKeyHash(t *testing.T) {
	h := KeyHash(testKeyPair(1).PublicKey)
	assert.Len(t, h.Bytes(), KeyHashSize)
	assert.Equal(t, h, KeyHash(testKeyPair(1).PublicKey))
	assert.NotEqual(t, h, KeyHash(testKeyPair(2).PublicKey))
}

func TestKeysValidate(t *testing.T) {
	keys := testKeys(t)
	require.NoError(t, keys.Validate())
	assert.Contains(t, keys.Address, "addr_test1")
}

func TestKeysValidateRejectsAliasing(t *testing.T) {
	pair := testKeyPair(1)
	keys := Keys{
		Payment: pair,
		Stake:   pair,
		Address: baseAddress(t, pair, pair),
	}
	assert.ErrorIs(t, keys.Validate(), ErrAliasedKeys)
}

func TestKeysValidateErrors(t *testing.T) {
	good := testKeys(t)

	missing := good
	missing.Stake = KeyPair{}
	assert.ErrorIs(t, missing.Validate(), ErrMissingKey)

	short := good
	short.Payment.PublicKey = short.Payment.PublicKey[:16]
	assert.ErrorIs(t, short.Validate(), ErrMissingKey)

	badAddr := good
	badAddr.Address = "addr_test1notbech32"
	assert.ErrorIs(t, badAddr.Validate(), ErrInvalidAddress)

	other := good
	other.Address = baseAddress(t, testKeyPair(3), good.Stake)
	assert.ErrorIs(t, other.Validate(), ErrAddressMismatch)

	otherStake := good
	otherStake.Address = baseAddress(t, good.Payment, testKeyPair(4))
	assert.ErrorIs(t, otherStake.Validate(), ErrAddressMismatch)
}

func TestPolicyKeyHash(t *testing.T) {
	keys := testKeys(t)
	h, err := keys.PolicyKeyHash()
	require.NoError(t, err)
	assert.Equal(t, keys.Payment.Hash(), h)
	assert.Len(t, hex.EncodeToString(h.Bytes()), 56)

	_, err = Keys{}.PolicyKeyHash()
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestStaticKeys(t *testing.T) {
	supplier := StaticKeys{0: testKeys(t)}
	keys, err := supplier.Keys(0)
	require.NoError(t, err)
	assert.NotEqual(t, keys.Payment.PublicKey, keys.Stake.PublicKey)

	_, err = supplier.Keys(1)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestRawTransaction(t *testing.T) {
	raw := RawTransaction{0x84, 0xa4}
	out, err := raw.Serialize()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x84, 0xa4}, out)
	out[0] = 0
	assert.Equal(t, byte(0x84), raw[0])

	_, err = RawTransaction(nil).Serialize()
	assert.Error(t, err)
}
