// Package pubsub implements the subscription fan-out of spec.md §4.10:
// three independent channels (blocks, transactions, contract events),
// delivered to callbacks in commit order, non-blocking against slow
// consumers. Subscription handles use github.com/google/uuid, the same
// library the teacher's retrieved pack pulls in for handle generation
// elsewhere in the corpus.
package pubsub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ForgeEmpire-Dapp/forge-mini-chain-sub000/internal/types"
)

// Handle identifies one registered subscription, returned by Subscribe* and
// accepted by the matching Unsubscribe* call.
type Handle uuid.UUID

// BlockHandler receives one committed block, in commit order.
type BlockHandler func(*types.Block)

// TxHandler receives one transaction's receipt once its block commits.
type TxHandler func(*types.SignedTransaction, *types.Receipt)

// EventHandler receives one contract event, in the order its emitting
// transaction appears in its block.
type EventHandler func(contractAddrHex string, event types.Event)

// queueDepth bounds each subscriber's own delivery queue (spec.md §4.10:
// "callbacks should be bounded or dispatch to their own queues"). A
// subscriber that falls behind by this many items starts losing the
// oldest queued item rather than stalling the committing goroutine.
const queueDepth = 256

// item is the type-erased payload carried through every subscriber queue;
// exactly one of its fields is populated, matching which Publish* produced it.
type item struct {
	block *types.Block
	tx    *types.SignedTransaction
	rcpt  *types.Receipt
	addr  string
	event *types.Event
}

// subscriber owns one bounded, ordered delivery queue and the goroutine
// draining it. Because delivery is single-threaded per subscriber and the
// committing goroutine enqueues in commit order, items reach the callback
// in exactly that order even though the commit path never blocks on a
// slow consumer.
type subscriber struct {
	queue chan item
	fn    func(item)
}

func newSubscriber(fn func(item)) *subscriber {
	s := &subscriber{queue: make(chan item, queueDepth), fn: fn}
	go func() {
		for it := range s.queue {
			s.fn(it)
		}
	}()
	return s
}

// enqueue delivers it without blocking; if the subscriber's queue is full
// the oldest pending item is dropped to make room, per spec.md §4.10's
// "slow consumers must not block commit".
func (s *subscriber) enqueue(it item) {
	select {
	case s.queue <- it:
	default:
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- it:
		default:
		}
	}
}

func (s *subscriber) close() {
	close(s.queue)
}

// Bus is the process-wide fan-out point. Every Publish* call is made by the
// single committing goroutine after a block is durably written, per
// spec.md §5.
type Bus struct {
	mu     sync.RWMutex
	blocks map[Handle]*subscriber
	txs    map[Handle]*subscriber
	events map[Handle]*subscriber
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{
		blocks: make(map[Handle]*subscriber),
		txs:    make(map[Handle]*subscriber),
		events: make(map[Handle]*subscriber),
	}
}

// SubscribeBlocks registers fn and returns a handle to later unsubscribe it.
func (b *Bus) SubscribeBlocks(fn BlockHandler) Handle {
	h := Handle(uuid.New())
	sub := newSubscriber(func(it item) { fn(it.block) })
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks[h] = sub
	return h
}

// UnsubscribeBlocks removes a block subscription; no replay of missed
// items, per spec.md §4.10.
func (b *Bus) UnsubscribeBlocks(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.blocks[h]; ok {
		sub.close()
		delete(b.blocks, h)
	}
}

// SubscribeTxs registers fn and returns a handle to later unsubscribe it.
func (b *Bus) SubscribeTxs(fn TxHandler) Handle {
	h := Handle(uuid.New())
	sub := newSubscriber(func(it item) { fn(it.tx, it.rcpt) })
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs[h] = sub
	return h
}

// UnsubscribeTxs removes a transaction subscription.
func (b *Bus) UnsubscribeTxs(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.txs[h]; ok {
		sub.close()
		delete(b.txs, h)
	}
}

// SubscribeEvents registers fn and returns a handle to later unsubscribe it.
func (b *Bus) SubscribeEvents(fn EventHandler) Handle {
	h := Handle(uuid.New())
	sub := newSubscriber(func(it item) { fn(it.addr, *it.event) })
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[h] = sub
	return h
}

// UnsubscribeEvents removes a contract-event subscription.
func (b *Bus) UnsubscribeEvents(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.events[h]; ok {
		sub.close()
		delete(b.events, h)
	}
}

// PublishBlock fans out a newly committed block to every block subscriber.
func (b *Bus) PublishBlock(block *types.Block) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.blocks {
		sub.enqueue(item{block: block})
	}
}

// PublishTx fans out one transaction's receipt to every tx subscriber.
func (b *Bus) PublishTx(stx *types.SignedTransaction, receipt *types.Receipt) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.txs {
		sub.enqueue(item{tx: stx, rcpt: receipt})
	}
}

// PublishEvents fans out every event emitted by one transaction's receipt,
// in order, to every event subscriber.
func (b *Bus) PublishEvents(contractAddrHex string, events []types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := range events {
		evt := events[i]
		for _, sub := range b.events {
			sub.enqueue(item{addr: contractAddrHex, event: &evt})
		}
	}
}
