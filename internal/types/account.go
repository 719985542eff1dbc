package types

import "github.com/btcsuite/btcd/btcec/v2"

// AccountID is the small numeric id every 32-byte account key is mapped to
// internally, per spec.md §3.4 ("Accounts use a small numeric id internally
// to dedupe 32-byte keys across many tables"). 0 is never assigned to a
// real account so it can serve as a "missing" sentinel.
type AccountID uint64

// AssetID identifies a fungible asset (the native coin plus any
// contract-issued asset); 0 is reserved for the native coin.
type AssetID uint64

const NativeAsset AssetID = 0

// Account is the per-key state described in spec.md §3.4. Balances,
// nonces, energy and multisig config are stored as separate Versioned
// records (see internal/storage); Account itself is the thin identity +
// registration record keyed by AccountID.
type Account struct {
	ID                   AccountID
	Key                  Hash // the account's 32-byte public key hash/address
	PublicKey            *btcec.PublicKey
	RegisteredAtTopo     uint64
	HasMultisig          bool
	MultisigThreshold    uint32
	MultisigAggregateKey []byte // serialized BLS aggregate public key, see sign.go's verifyMultisigSignature
}

// Energy is the secondary per-account resource from spec.md §3.4: a
// refillable quota plus a frozen (staked) pool that together gate
// energy-denominated fees and certain transaction kinds.
type Energy struct {
	Quota       uint64 // refills over time, consumed by energy-fee transactions
	QuotaMax    uint64
	Frozen      uint64 // staked principal backing the quota
	LastRefillTopo uint64
}

// Nonce is the strictly monotonic per-account counter from spec.md §3.4.
type Nonce uint64

// AccountKeyFromPubKey derives the address an account is keyed by: the
// hash of its compressed public key, matching Account.Key's doc comment
// ("the account's 32-byte public key hash/address").
func AccountKeyFromPubKey(pub *btcec.PublicKey) Hash {
	return Sha256d(pub.SerializeCompressed())
}
