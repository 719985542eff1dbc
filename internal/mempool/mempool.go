// Package mempool implements the pending-transaction pool from spec.md
// §4.D: signature/nonce/fee/payload admission checks, per-sender
// nonce-ordered pending queues, create2-address reservation, and
// fee-per-byte eviction under a byte-size cap. It is grounded on the
// teacher's pool-facing pieces (core/system_health_logging.go's
// Prometheus gauge-registration idiom) generalized to the new admission
// policy; the pool itself has no teacher analogue (the teacher's TxPool
// is a black box referenced only by field name), so its internal
// bookkeeping follows the shape of internal/reachability's narrow
// collaborator-interface style instead.
package mempool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ghostdagcore/internal/types"
)

// RejectReason enumerates spec.md §4.D's admission rejection causes.
type RejectReason string

const (
	ReasonBadSignature         RejectReason = "bad_signature"
	ReasonNonceGap             RejectReason = "nonce_gap"
	ReasonDuplicateNonce       RejectReason = "duplicate_nonce"
	ReasonFeeBelowFloor        RejectReason = "fee_below_floor"
	ReasonPayloadInvalid       RejectReason = "payload_invalid"
	ReasonFeeDenomNotPermitted RejectReason = "fee_denom_not_permitted"
	ReasonBlacklistedSender    RejectReason = "blacklisted_sender"
	ReasonCreate2Collision     RejectReason = "create2_collision"
)

// AddResult is the outcome of admitting one transaction (spec.md §4.D:
// "add(tx) -> Ok | Rejected{reason}").
type AddResult struct {
	Accepted bool
	Reason   RejectReason
}

func accepted() AddResult              { return AddResult{Accepted: true} }
func rejectedWith(r RejectReason) AddResult { return AddResult{Reason: r} }

// NonceSource is the narrow view onto confirmed chain state admission
// needs: the sender's current confirmed nonce, and whether a given
// account has ever been registered. Kept as a duck-typed interface
// rather than importing internal/chainstate directly, mirroring
// internal/reachability.Reader/Writer and internal/ghostdag.BlockSource's
// narrow-collaborator pattern.
type NonceSource interface {
	CurrentNonce(ctx context.Context, account types.Hash) (uint64, error)
	AccountIsNew(ctx context.Context, account types.Hash) (bool, error)
}

// Policy bounds pool admission and retention.
type Policy struct {
	MinFeePerByte uint64
	MaxPoolBytes  uint64
}

// DefaultPolicy returns a conservative starting policy; node operators
// override it from internal/config.
func DefaultPolicy() Policy {
	return Policy{MinFeePerByte: 1, MaxPoolBytes: 256 << 20}
}

type pendingTx struct {
	tx         *types.Transaction
	hash       types.Hash
	sender     types.Hash
	size       uint64
	feePerByte uint64
}

// senderQueue holds one sender's pending transactions keyed by nonce.
type senderQueue struct {
	byNonce map[uint64]*pendingTx
}

func (q *senderQueue) sortedNonces() []uint64 {
	out := make([]uint64, 0, len(q.byNonce))
	for n := range q.byNonce {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pool is the mempool from spec.md §4.D. All methods are safe for
// concurrent use.
type Pool struct {
	mu sync.Mutex

	policy    Policy
	nonces    NonceSource
	blacklist map[types.Hash]bool

	bySender   map[types.Hash]*senderQueue
	byHash     map[types.Hash]*pendingTx
	create2    map[types.Hash]types.Hash // reserved create2 address -> reserving tx hash
	totalBytes uint64

	pendingGauge    prometheus.Gauge
	rejectedCounter *prometheus.CounterVec
}

// New builds a Pool. registry may be nil in tests that don't care about
// metrics; production callers pass the node's shared registry, the same
// way the teacher's NewHealthLogger takes a registry its gauges register
// into (core/system_health_logging.go).
func New(policy Policy, nonces NonceSource, registry *prometheus.Registry) *Pool {
	p := &Pool{
		policy:    policy,
		nonces:    nonces,
		blacklist: make(map[types.Hash]bool),
		bySender:  make(map[types.Hash]*senderQueue),
		byHash:    make(map[types.Hash]*pendingTx),
		create2:   make(map[types.Hash]types.Hash),
	}
	p.pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ghostdagcore_mempool_pending_transactions",
		Help: "Number of transactions currently pending in the mempool",
	})
	p.rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ghostdagcore_mempool_rejected_total",
		Help: "Total transactions rejected at admission, by reason",
	}, []string{"reason"})
	if registry != nil {
		registry.MustRegister(p.pendingGauge, p.rejectedCounter)
	}
	return p
}

// Blacklist permanently bars a sender's account key from admission.
func (p *Pool) Blacklist(sender types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blacklist[sender] = true
}

// Add runs tx through spec.md §4.D's admission checks in order (missing
// sender, blacklist, bad signature, nonce gap, fee-denom rule, payload
// size/encode, fee floor, duplicate pending nonce, create2 collision)
// and, on success, inserts it into the pool.
func (p *Pool) Add(ctx context.Context, tx *types.Transaction) (AddResult, error) {
	if tx.Sender == nil {
		return p.reject(ReasonBadSignature), nil
	}
	sender := types.AccountKeyFromPubKey(tx.Sender)

	p.mu.Lock()
	blacklisted := p.blacklist[sender]
	p.mu.Unlock()
	if blacklisted {
		return p.reject(ReasonBlacklistedSender), nil
	}

	verified, err := tx.VerifySignature()
	if err != nil {
		return AddResult{}, fmt.Errorf("mempool: verify signature: %w", err)
	}
	if !verified {
		return p.reject(ReasonBadSignature), nil
	}

	currentNonce, err := p.nonces.CurrentNonce(ctx, sender)
	if err != nil {
		return AddResult{}, fmt.Errorf("mempool: current nonce: %w", err)
	}
	if tx.Nonce < currentNonce {
		return p.reject(ReasonNonceGap), nil
	}

	if tx.FeeDenom == types.FeeEnergy {
		if ra, ok := tx.Payload.(types.RecipientAware); ok {
			if recipient, has := ra.Recipient(); has {
				isNew, err := p.nonces.AccountIsNew(ctx, recipient)
				if err != nil {
					return AddResult{}, fmt.Errorf("mempool: account-is-new check: %w", err)
				}
				if isNew {
					return p.reject(ReasonFeeDenomNotPermitted), nil
				}
			}
		}
	}

	raw, err := types.EncodeTransaction(tx)
	if err != nil {
		return p.reject(ReasonPayloadInvalid), nil
	}
	size := uint64(len(raw))
	if size == 0 {
		return p.reject(ReasonPayloadInvalid), nil
	}
	feePerByte := tx.Fee / size
	if feePerByte < p.policy.MinFeePerByte {
		return p.reject(ReasonFeeBelowFloor), nil
	}

	hash, err := tx.Hash()
	if err != nil {
		return AddResult{}, fmt.Errorf("mempool: hash transaction: %w", err)
	}

	var create2Addr types.Hash
	var reservesCreate2 bool
	if ca, ok := tx.Payload.(types.Create2Aware); ok {
		create2Addr, reservesCreate2 = ca.Create2Address()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	queue, ok := p.bySender[sender]
	if !ok {
		queue = &senderQueue{byNonce: make(map[uint64]*pendingTx)}
		p.bySender[sender] = queue
	}
	if _, dup := queue.byNonce[tx.Nonce]; dup {
		return p.reject(ReasonDuplicateNonce), nil
	}
	if reservesCreate2 {
		if existing, taken := p.create2[create2Addr]; taken && existing != hash {
			return p.reject(ReasonCreate2Collision), nil
		}
	}

	if p.policy.MaxPoolBytes > 0 && p.totalBytes+size > p.policy.MaxPoolBytes {
		p.evictLowestFeeLocked(size)
	}

	pt := &pendingTx{tx: tx, hash: hash, sender: sender, size: size, feePerByte: feePerByte}
	queue.byNonce[tx.Nonce] = pt
	p.byHash[hash] = pt
	p.totalBytes += size
	if reservesCreate2 {
		p.create2[create2Addr] = hash
	}
	p.pendingGauge.Set(float64(len(p.byHash)))
	return accepted(), nil
}

func (p *Pool) reject(reason RejectReason) AddResult {
	p.rejectedCounter.WithLabelValues(string(reason)).Inc()
	return rejectedWith(reason)
}

// evictLowestFeeLocked drops pending transactions in ascending
// fee-per-byte order until at least needBytes of headroom is free, or
// the pool is empty. Callers must hold p.mu.
func (p *Pool) evictLowestFeeLocked(needBytes uint64) {
	all := make([]*pendingTx, 0, len(p.byHash))
	for _, pt := range p.byHash {
		all = append(all, pt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].feePerByte < all[j].feePerByte })

	freed := uint64(0)
	for _, pt := range all {
		if freed >= needBytes {
			return
		}
		p.removeLocked(pt)
		freed += pt.size
	}
}

// removeLocked deletes a pending transaction from every index. Callers
// must hold p.mu.
func (p *Pool) removeLocked(pt *pendingTx) {
	delete(p.byHash, pt.hash)
	p.totalBytes -= pt.size
	if queue, ok := p.bySender[pt.sender]; ok {
		delete(queue.byNonce, pt.tx.Nonce)
		if len(queue.byNonce) == 0 {
			delete(p.bySender, pt.sender)
		}
	}
	if ca, ok := pt.tx.Payload.(types.Create2Aware); ok {
		if addr, has := ca.Create2Address(); has {
			if p.create2[addr] == pt.hash {
				delete(p.create2, addr)
			}
		}
	}
	p.pendingGauge.Set(float64(len(p.byHash)))
}

// GetPendingFor returns sender's pending transactions in ascending
// nonce order, restricted to nonce >= currentNonce (spec.md §4.D:
// "get_pending_for(sender): nonce-ordered, nonce >= current").
func (p *Pool) GetPendingFor(sender types.Hash, currentNonce uint64) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, ok := p.bySender[sender]
	if !ok {
		return nil
	}
	var out []*types.Transaction
	for _, nonce := range queue.sortedNonces() {
		if nonce < currentNonce {
			continue
		}
		out = append(out, queue.byNonce[nonce].tx)
	}
	return out
}

// ReserveCreate2Address reports whether addr is free: true unless it is
// already claimed by a pending contract-creation transaction other than
// excludeHash (spec.md
// §4.D: "reserve_create2_address(hash): prevents duplicate pending
// contract-creation targets"). It does not itself reserve anything —
// reservation happens as a side effect of Add succeeding — this is the
// read used by payload verification to pre-check before building a
// transaction.
func (p *Pool) ReserveCreate2Address(addr types.Hash, excludeHash types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, taken := p.create2[addr]
	return !taken || existing == excludeHash
}

// RemoveCommitted evicts hash from the pool without counting it as a
// rejection, for use once a block carrying it has been committed
// (spec.md §4.D: eviction on commit).
func (p *Pool) RemoveCommitted(hash types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pt, ok := p.byHash[hash]; ok {
		p.removeLocked(pt)
	}
}

// Recheck re-validates every pending transaction's nonce against
// current chain state, dropping any that have fallen behind (spec.md
// §4.D: eviction/re-check after a block commits or a reorg rewinds
// state). It does not re-verify signatures or fees, which cannot change
// underneath a transaction already admitted.
func (p *Pool) Recheck(ctx context.Context) error {
	p.mu.Lock()
	senders := make([]types.Hash, 0, len(p.bySender))
	for s := range p.bySender {
		senders = append(senders, s)
	}
	p.mu.Unlock()

	for _, sender := range senders {
		currentNonce, err := p.nonces.CurrentNonce(ctx, sender)
		if err != nil {
			return fmt.Errorf("mempool: recheck current nonce: %w", err)
		}
		p.mu.Lock()
		queue, ok := p.bySender[sender]
		if ok {
			for nonce, pt := range queue.byNonce {
				if nonce < currentNonce {
					p.removeLocked(pt)
				}
			}
		}
		p.mu.Unlock()
	}
	return nil
}

// SelectForTemplate returns up to limit candidate transactions for the
// next block template, ordered by descending fee-per-byte subject to
// per-sender nonce continuity (spec.md §4.D: "Selection policy: by
// descending fee-per-byte, subject to per-account nonce continuity and
// the per-block account-read/write-set conflict limits imposed by the
// execution scheduler"). Only each sender's lowest pending nonce is ever
// a candidate in a given pass: once chosen, the sender's next nonce
// becomes a candidate for the following pass. The execution-scheduler
// conflict limit itself is enforced downstream, in internal/execution,
// which has the account lock table this package does not.
func (p *Pool) SelectForTemplate(limit int) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	cursor := make(map[types.Hash][]uint64, len(p.bySender))
	for sender, queue := range p.bySender {
		cursor[sender] = queue.sortedNonces()
	}

	var out []*types.Transaction
	for limit <= 0 || len(out) < limit {
		var bestSender types.Hash
		var best *pendingTx
		for sender, nonces := range cursor {
			if len(nonces) == 0 {
				continue
			}
			candidate := p.bySender[sender].byNonce[nonces[0]]
			if best == nil || candidate.feePerByte > best.feePerByte {
				best = candidate
				bestSender = sender
			}
		}
		if best == nil {
			break
		}
		out = append(out, best.tx)
		cursor[bestSender] = cursor[bestSender][1:]
	}
	return out
}

// reasonToKind maps an admission rejection to the typed error kind
// spec.md §7 reports back to the caller: every admission check is a
// validation failure, never transient I/O or a protocol violation — the
// pool itself touches no storage, so it has nothing transient to fail on.
func reasonToKind(RejectReason) types.Kind { return types.KindValidation }

// SubmitTransaction is the mempool half of spec.md §6's sole external
// entry points: "submit_transaction(bytes) -> Result<Admitted |
// Rejected{kind}>". It decodes the wire bytes and runs them through Add,
// translating a malformed encoding or an admission rejection into the
// shared types.Outcome vocabulary internal/blockprocessor's SubmitBlock
// also returns.
func (p *Pool) SubmitTransaction(ctx context.Context, raw []byte) (types.Outcome, error) {
	tx, err := types.DecodeTransaction(raw)
	if err != nil {
		return types.OutcomeRejectedValidation(types.KindValidation, err), nil
	}
	result, err := p.Add(ctx, tx)
	if err != nil {
		return types.OutcomeRejectedTransient(err), err
	}
	if !result.Accepted {
		return types.OutcomeRejectedValidation(reasonToKind(result.Reason), fmt.Errorf("mempool: %s", result.Reason)), nil
	}
	return types.OutcomeAccepted(), nil
}

// Len reports the total number of pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byHash)
}
