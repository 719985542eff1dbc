package types

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/herumi/bls-eth-go-binary/bls"
)

var blsInitOnce sync.Once
var blsInitErr error

// ensureBLSInit performs herumi/bls-eth-go-binary's required one-time curve
// setup. The library panics if Init is called twice with different curves
// and is not safe to call concurrently with itself, hence sync.Once rather
// than an init() func — most of this binary never touches a multisig
// transaction, so paying the BLS setup cost eagerly for every process would
// be wasted work.
func ensureBLSInit() error {
	blsInitOnce.Do(func() {
		blsInitErr = bls.Init(bls.BLS12_381)
		if blsInitErr == nil {
			bls.SetETHmode(bls.EthModeDraft07)
		}
	})
	return blsInitErr
}

// SigningHash returns the hash a transaction's signature covers: tx
// encoded with Signature zeroed, so the signature is never part of its
// own preimage.
func (tx *Transaction) SigningHash() (Hash, error) {
	cp := *tx
	cp.Signature = [64]byte{}
	b, err := EncodeTransaction(&cp)
	if err != nil {
		return Hash{}, err
	}
	return Sha256d(b), nil
}

// VerifySignature checks tx.Signature (a compact r||s pair) against the
// sender's public key over SigningHash, mirroring the teacher's
// ecdsa.Verify(pk.ToECDSA(), hash, r, s) pattern
// (core/compliance.go:VerifyECDSA). The correctness of ecdsa.Verify itself
// is a black-box cryptographic primitive per spec.md §1; this wires the
// call rather than reimplementing curve arithmetic.
func (tx *Transaction) VerifySignature() (bool, error) {
	if tx.Multisig != nil {
		return tx.verifyMultisigSignature()
	}
	if tx.Sender == nil {
		return false, fmt.Errorf("types: transaction has no sender public key")
	}
	r := new(big.Int).SetBytes(tx.Signature[:32])
	s := new(big.Int).SetBytes(tx.Signature[32:])
	if r.Sign() == 0 || s.Sign() == 0 {
		return false, nil
	}
	hash, err := tx.SigningHash()
	if err != nil {
		return false, err
	}
	return ecdsa.Verify(tx.Sender.ToECDSA(), hash[:], r, s), nil
}

// verifyMultisigSignature checks a MultisigPayload's aggregate BLS
// signature against the aggregate of its declared signer keys, the
// threshold-signature path spec.md §3.3's "optional multisig payload"
// describes. Every named signer is treated as having co-signed the same
// SigningHash (a multi-signature, not independent per-signer messages);
// threshold enforcement itself — how many of SignerKeys must actually
// participate — is a policy decision left to whatever assembles
// SignerKeys/AggregateSig before broadcast, not to this black-box
// cryptographic check.
func (tx *Transaction) verifyMultisigSignature() (bool, error) {
	if err := ensureBLSInit(); err != nil {
		return false, fmt.Errorf("types: bls init: %w", err)
	}
	ms := tx.Multisig
	if len(ms.SignerKeys) == 0 {
		return false, fmt.Errorf("types: multisig payload has no signer keys")
	}
	if uint32(len(ms.SignerKeys)) < ms.Threshold {
		return false, fmt.Errorf("types: multisig declares %d signer keys, below its threshold %d", len(ms.SignerKeys), ms.Threshold)
	}
	var aggPub bls.PublicKey
	for i, raw := range ms.SignerKeys {
		var pub bls.PublicKey
		if err := pub.Deserialize(raw); err != nil {
			return false, fmt.Errorf("types: deserialize multisig signer key %d: %w", i, err)
		}
		aggPub.Add(&pub)
	}
	var sig bls.Sign
	if err := sig.Deserialize(ms.AggregateSig); err != nil {
		return false, fmt.Errorf("types: deserialize multisig aggregate signature: %w", err)
	}
	hash, err := tx.SigningHash()
	if err != nil {
		return false, err
	}
	return sig.Verify(&aggPub, string(hash[:])), nil
}
