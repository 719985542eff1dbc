// Package storage implements the versioned, snapshotable column-family KV
// layer described in spec.md §4.A. Column families are modelled as key
// prefixes over a single cockroachdb/pebble LSM instance, the same
// convention other-examples/fdb2d8b2_Irregularshooter-amc__internal-kv-tables.go.go
// and AKJUS-bsc-erigon's erigon-lib/kv/tables.go use for their own "one big
// KV, many logical tables" layout.
package storage

// ColumnFamily names a logical table. Each is a named byte-string constant
// rather than an enum so new domain CFs can be added without renumbering
// existing ones (matching the corpus convention of string table names).
type ColumnFamily string

// Core chain CFs.
const (
	// CFBlocks stores full serialized block bodies.
	// key: block hash (32 bytes) -> value: encoded Block.
	CFBlocks ColumnFamily = "blocks"

	// CFBlocksAtHeight indexes blocks by selected-parent-chain height.
	// key: height (u64 big-endian) + hash -> value: empty (existence only).
	CFBlocksAtHeight ColumnFamily = "blocks_at_height"

	// CFHashAtTopo maps a topoheight to the block hash assigned there.
	// key: topoheight (u64 big-endian) -> value: hash (32 bytes).
	CFHashAtTopo ColumnFamily = "hash_at_topo"

	// CFTopoByHash is the inverse of CFHashAtTopo.
	// key: hash -> value: topoheight (u64 big-endian).
	CFTopoByHash ColumnFamily = "topo_by_hash"

	// CFTransactions stores transactions keyed by their own hash, so mempool
	// and historical queries can look one up without scanning block bodies.
	// key: tx hash -> value: encoded Transaction.
	CFTransactions ColumnFamily = "transactions"
)

// Account/state CFs.
const (
	// CFAccounts maps the small numeric AccountID back to the account's
	// full 32-byte key and registration metadata (spec.md §3.4).
	// key: AccountID (u64 big-endian) -> value: encoded Account.
	CFAccounts ColumnFamily = "accounts"

	// CFAccountsByKey is the reverse index used to resolve a public key or
	// hash into its AccountID on first sight.
	// key: Hash (32 bytes) -> value: AccountID (u64 big-endian).
	CFAccountsByKey ColumnFamily = "accounts_by_key"

	// CFBalances is the pointer CF (spec.md §3.5): latest topoheight per
	// (account, asset).
	// key: AccountID (u64) + AssetID (u64) -> value: topoheight (u64).
	CFBalances ColumnFamily = "balances"

	// CFVersionedBalances is the linked-list CF behind CFBalances.
	// key: AccountID + AssetID + topoheight -> value: Versioned[uint64].
	CFVersionedBalances ColumnFamily = "versioned_balances"

	// CFNonces / CFVersionedNonces mirror the balances pointer/versioned
	// pair for account nonces.
	CFNonces         ColumnFamily = "nonces"
	CFVersionedNonces ColumnFamily = "versioned_nonces"

	// CFEnergy / CFVersionedEnergy mirror the pattern for the energy
	// resource (quota, frozen pool) described in spec.md §3.4.
	CFEnergy         ColumnFamily = "energy"
	CFVersionedEnergy ColumnFamily = "versioned_energy"
)

// Contract CFs.
const (
	CFContracts            ColumnFamily = "contracts"
	CFVersionedContracts   ColumnFamily = "versioned_contracts"
	CFContractsData        ColumnFamily = "contracts_data"
	CFVersionedContractsData ColumnFamily = "versioned_contracts_data"
)

// Reachability/tip CFs.
const (
	// CFReachabilityData stores one reachability record per block hash
	// (spec.md §3.6).
	CFReachabilityData ColumnFamily = "reachability_data"

	// CFTips stores the current DAG leaf set under a single sentinel key
	// (spec.md §3.7).
	CFTips ColumnFamily = "tips"

	// CFCommon is the singleton CF: top_topoheight, top_height, tips,
	// network, genesis_state_hash, pruning_checkpoint (spec.md §6).
	CFCommon ColumnFamily = "common"
)

// Domain-specific CFs (spec.md §1: "their transaction application hooks are
// listed but their policy logic is not redesigned here" — the storage shape
// for each is still a first-class part of the core).
const (
	CFKYCRecords          ColumnFamily = "kyc_records"
	CFArbitrationCases    ColumnFamily = "arbitration_cases"
	CFArbitrationVotes    ColumnFamily = "arbitration_votes"
	CFNFTAssets           ColumnFamily = "nft_assets"
	CFNFTOwners           ColumnFamily = "nft_owners"
	CFStakePositions      ColumnFamily = "stake_positions"
	CFVersionedStake      ColumnFamily = "versioned_stake"
	CFTNSNames            ColumnFamily = "tns_names"
	CFReferralEdges       ColumnFamily = "referral_edges"
	CFScheduledExecutions ColumnFamily = "scheduled_executions"
	CFEvents              ColumnFamily = "events"
	CFRejectedBlocks      ColumnFamily = "rejected_blocks"
)

// allColumnFamilies enumerates every CF this store knows about, used to
// pre-size the compression-policy map and for diagnostic iteration.
var allColumnFamilies = []ColumnFamily{
	CFBlocks, CFBlocksAtHeight, CFHashAtTopo, CFTopoByHash, CFTransactions,
	CFAccounts, CFAccountsByKey, CFBalances, CFVersionedBalances,
	CFNonces, CFVersionedNonces, CFEnergy, CFVersionedEnergy,
	CFContracts, CFVersionedContracts, CFContractsData, CFVersionedContractsData,
	CFReachabilityData, CFTips, CFCommon,
	CFKYCRecords, CFArbitrationCases, CFArbitrationVotes,
	CFNFTAssets, CFNFTOwners, CFStakePositions, CFVersionedStake,
	CFTNSNames, CFReferralEdges, CFScheduledExecutions, CFEvents, CFRejectedBlocks,
}

// Sentinel keys within CFCommon.
const (
	KeyTopTopoheight     = "top_topoheight"
	KeyTopHeight         = "top_height"
	KeyTipsSet           = "tips"
	KeyNetwork           = "network"
	KeyGenesisStateHash  = "genesis_state_hash"
	KeyPruningCheckpoint = "pruning_checkpoint"
)
