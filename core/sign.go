// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package core

import (
	"crypto/ed25519"

	"go.chromium.org/luci/common/errors"
)

// PublicKeySize and SecretKeySize are the raw byte widths pkgar accepts.
// SecretKeySize matches Go's standard seed-derived Ed25519 expanded-key
// layout (32-byte seed ∥ 32-byte public key), the same shape
// apptimistco-asn's SecAuth/PubAuth types use for their ed25519 keys.
const (
	PublicKeySize = ed25519.PublicKeySize // 32
	SecretKeySize = ed25519.PrivateKeySize // 64
	SignatureSize = ed25519.SignatureSize // 64
)

// PublicKey is a raw, 32-byte Ed25519 public key.
type PublicKey [PublicKeySize]byte

// SecretKey is a raw, 64-byte Ed25519 expanded secret key (seed ∥ public).
type SecretKey [SecretKeySize]byte

// Public derives the PublicKey embedded in s.
func (s SecretKey) Public() PublicKey {
	var pub PublicKey
	copy(pub[:], ed25519.PrivateKey(s[:]).Public().(ed25519.PublicKey))
	return pub
}

// DeriveKeyPair derives a (PublicKey, SecretKey) pair from a 32-byte seed,
// the same deterministic derivation original_source's SecretKeyFile
// generation relies on. It exists purely as a convenience for tests and
// callers that already manage their own key material -- key *generation*
// and passphrase-encrypted storage remain out of scope for this package.
func DeriveKeyPair(seed [32]byte) (PublicKey, SecretKey) {
	priv := ed25519.NewKeyFromSeed(seed[:])
	var sec SecretKey
	copy(sec[:], priv)
	return sec.Public(), sec
}

// Sign produces a 64-byte detached Ed25519 signature over preimage using
// the given secret key.
func Sign(sec SecretKey, preimage [PreimageSize]byte) [SignatureSize]byte {
	sig := ed25519.Sign(ed25519.PrivateKey(sec[:]), preimage[:])
	var out [SignatureSize]byte
	copy(out[:], sig)
	return out
}

// Verify reports whether sig is a valid detached Ed25519 signature over
// preimage under pub.
func Verify(pub PublicKey, preimage [PreimageSize]byte, sig [SignatureSize]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), preimage[:], sig[:])
}

// TrustSet is a caller-supplied collection of public keys a Reader will
// accept. The core never reads key files from disk; trust policy is always
// injected by the caller (see spec §4.3, §9).
type TrustSet map[PublicKey]struct{}

// NewTrustSet builds a TrustSet from zero or more public keys.
func NewTrustSet(keys ...PublicKey) TrustSet {
	t := make(TrustSet, len(keys))
	for _, k := range keys {
		t[k] = struct{}{}
	}
	return t
}

// Trusts reports whether pub is a member of t. A nil or empty TrustSet
// trusts nothing.
func (t TrustSet) Trusts(pub PublicKey) bool {
	_, ok := t[pub]
	return ok
}

// VerifyHeader performs the full signature check in spec §4.4 step 4: the
// header's signature must validate against its own embedded public key,
// and that key must be a member of trusted.
func VerifyHeader(h *Header, trusted TrustSet) error {
	var pub PublicKey
	copy(pub[:], h.PublicKey[:])

	if !Verify(pub, h.Preimage(), h.Signature) {
		return newErr(KindBadSignature, "", errors.New("signature does not verify against embedded public key"))
	}
	if !trusted.Trusts(pub) {
		return newErr(KindUntrustedKey, "", errors.Reason(
			"key %(key)x is not in the caller's trust set").D("key", pub[:]).Err())
	}
	return nil
}
