package chainstate

import (
	"fmt"

	"ghostdagcore/internal/storage"
)

// versionedFamily names one pointer/versioned CF pair. rollbackFamily
// walks every family's chains with bytesCodec: only the presence of a
// previous-topoheight link matters for unwinding, so the value is
// decoded as opaque bytes and the concrete type never leaves this file.
type versionedFamily struct {
	name        string
	pointerCF   storage.ColumnFamily
	versionedCF storage.ColumnFamily
}

// versionedFamilies enumerates every entity kind the block processor must
// unwind on reorg (spec.md §4.G step 4: "delete_versioned_above_topoheight
// ... for every entity the discarded suffix touched"). Contract data keys
// are variable-width (contract hash + arbitrary sub-key); they go through
// the same loop as the fixed-width families, since rollbackFamily only
// strips the trailing 8-byte topoheight suffix to recover an entity key.
var versionedFamilies = []versionedFamily{
	{"balances", storage.CFBalances, storage.CFVersionedBalances},
	{"nonces", storage.CFNonces, storage.CFVersionedNonces},
	{"energy", storage.CFEnergy, storage.CFVersionedEnergy},
	{"contracts", storage.CFContracts, storage.CFVersionedContracts},
	{"contracts_data", storage.CFContractsData, storage.CFVersionedContractsData},
	{"stake", storage.CFStakePositions, storage.CFVersionedStake},
}

// RollbackAbove undoes every versioned write strictly above topo across
// every entity kind chainstate owns, the storage-level half of the
// reorg unwind internal/blockprocessor drives (spec.md §4.G step 4). It
// scans each versioned CF, collects every entity key present (whatever
// its topoheight suffix), and calls storage.DeleteVersionedAbove on each;
// an entity whose pointer is already at or below topo keeps its versions.
func RollbackAbove(sn *storage.Snapshot, topo uint64) error {
	for _, fam := range versionedFamilies {
		if err := rollbackFamily(sn, fam, topo); err != nil {
			return fmt.Errorf("chainstate: rollback %s above topo %d: %w", fam.name, topo, err)
		}
	}
	return nil
}

func rollbackFamily(sn *storage.Snapshot, fam versionedFamily, topo uint64) error {
	pairs, err := sn.Iterate(fam.versionedCF, storage.IterStart())
	if err != nil {
		return err
	}
	touched := map[string][]byte{}
	for _, p := range pairs {
		if len(p.Key) < 8 {
			continue
		}
		entityKey := p.Key[:len(p.Key)-8]
		touched[string(entityKey)] = entityKey
	}
	for _, entityKey := range touched {
		if err := storage.DeleteVersionedAbove[[]byte](sn, fam.pointerCF, fam.versionedCF, entityKey, topo, bytesCodec{}); err != nil {
			return err
		}
	}
	return nil
}
