package blockprocessor

import (
	"context"

	"ghostdagcore/internal/events"
	"ghostdagcore/internal/types"
)

// mempoolPort is the narrow slice of internal/mempool.Pool the block
// processor needs: evicting transactions a committed block just
// finalized, and re-checking the remaining pool's nonces once chain
// state has moved. Kept as a duck-typed interface rather than importing
// internal/mempool's concrete Pool, mirroring core/consensus.go's
// txPool/networkAdapter/securityAdapter wire-up-interfaces idiom (keep
// the processor independent of any one concrete collaborator).
type mempoolPort interface {
	RemoveCommitted(hash types.Hash)
	Recheck(ctx context.Context) error
}

// eventPort is the narrow slice of internal/events.Bus the block
// processor needs to publish notifications through (spec.md §6:
// "subscribe(event) -> BlockAccepted | BlockReorged | ...").
type eventPort interface {
	Publish(ev events.Event)
}
