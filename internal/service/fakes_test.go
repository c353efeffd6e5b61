package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/StabilityNexus/Fate/internal/domain"
)

const testPkg = "0xfa7e"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func poolObject(id string) domain.MoveObject {
	return domain.MoveObject{
		ID:   id,
		Type: testPkg + "::prediction_pool::PredictionPool",
		Fields: map[string]any{
			"name":          "pool " + id,
			"asset_address": "0xfeed",
			"pool_creator":  "0xc0ffee",
			"current_price": "1000",
			"bull_reserve":  "600",
			"bear_reserve":  "400",
		},
	}
}

// fakeChain is an in-memory ChainReader counting every call.
type fakeChain struct {
	mu sync.Mutex

	objects     map[string]domain.MoveObject
	objectErrs  map[string]error
	events      []domain.ChainEvent
	eventsErr   error
	txs         []domain.ChainTx
	txsErr      error
	balance     uint64
	balanceErr  error
	inspect     domain.InspectResult
	inspectErr  error
	inspectedBy string

	calls      int
	objectGets map[string]int
	inspected  *domain.Transaction
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		objects:    map[string]domain.MoveObject{},
		objectErrs: map[string]error{},
		objectGets: map[string]int{},
	}
}

func (f *fakeChain) GetObject(_ context.Context, id string) (domain.MoveObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.objectGets[id]++
	if err := f.objectErrs[id]; err != nil {
		return domain.MoveObject{}, err
	}
	obj, ok := f.objects[id]
	if !ok {
		return domain.MoveObject{}, domain.ErrNotFound
	}
	return obj, nil
}

func (f *fakeChain) QueryEvents(context.Context, string, int, bool) ([]domain.ChainEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.events, f.eventsErr
}

func (f *fakeChain) QueryTransactionsByFunction(context.Context, string, string, string, int) ([]domain.ChainTx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.txs, f.txsErr
}

func (f *fakeChain) GetBalance(context.Context, string, string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.balance, f.balanceErr
}

func (f *fakeChain) DevInspect(_ context.Context, sender string, tx *domain.Transaction) (domain.InspectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inspectedBy = sender
	f.inspected = tx
	return f.inspect, f.inspectErr
}

func (f *fakeChain) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeOracle returns a fixed price object.
type fakeOracle struct {
	priceID string
	err     error
	calls   int
	feeds   []string
}

func (o *fakeOracle) UpdatePrice(_ context.Context, feeds []string) (domain.PriceUpdate, error) {
	o.calls++
	o.feeds = feeds
	if o.err != nil {
		return domain.PriceUpdate{}, o.err
	}
	return domain.PriceUpdate{PriceObjectID: o.priceID, PriceObjectIDs: []string{o.priceID}}, nil
}

// fakeWallet records submitted transactions.
type fakeWallet struct {
	addr      string
	result    domain.TxResult
	err       error
	addrCalls int
	submitted []*domain.Transaction
}

func (w *fakeWallet) Address() (string, bool) {
	w.addrCalls++
	return w.addr, w.addr != ""
}

func (w *fakeWallet) SignAndExecute(_ context.Context, tx *domain.Transaction) (domain.TxResult, error) {
	w.submitted = append(w.submitted, tx)
	return w.result, w.err
}

// fakePools serves snapshots and counts refreshes.
type fakePools struct {
	snaps      map[string]domain.PoolSnapshot
	getErr     error
	getCalls   int
	refreshed  []string
	refreshErr error
}

func (p *fakePools) Get(_ context.Context, id string) (domain.PoolSnapshot, error) {
	p.getCalls++
	if p.getErr != nil {
		return domain.PoolSnapshot{}, p.getErr
	}
	s, ok := p.snaps[id]
	if !ok {
		return domain.PoolSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}

func (p *fakePools) Refresh(_ context.Context, id string) (domain.PoolSnapshot, error) {
	p.refreshed = append(p.refreshed, id)
	if p.refreshErr != nil {
		return domain.PoolSnapshot{}, p.refreshErr
	}
	return domain.PoolSnapshot{ID: id}, nil
}

// memTxStore keeps records in a map.
type memTxStore struct {
	recs     map[string]domain.TxRecord
	creates  int
	finishes int
}

func newMemTxStore() *memTxStore { return &memTxStore{recs: map[string]domain.TxRecord{}} }

func (m *memTxStore) Create(_ context.Context, rec domain.TxRecord) error {
	m.creates++
	m.recs[rec.ID] = rec
	return nil
}

func (m *memTxStore) Finish(_ context.Context, rec domain.TxRecord) error {
	m.finishes++
	if _, ok := m.recs[rec.ID]; !ok {
		return domain.ErrNotFound
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *memTxStore) GetByID(_ context.Context, id string) (domain.TxRecord, error) {
	r, ok := m.recs[id]
	if !ok {
		return domain.TxRecord{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memTxStore) ListRecent(context.Context, domain.ListOpts) ([]domain.TxRecord, error) {
	out := make([]domain.TxRecord, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	return out, nil
}

func (m *memTxStore) ListByPool(_ context.Context, poolID string, _ domain.ListOpts) ([]domain.TxRecord, error) {
	var out []domain.TxRecord
	for _, r := range m.recs {
		if r.PoolID == poolID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memCache is a SnapshotCache backed by maps.
type memCache struct {
	mu    sync.Mutex
	snaps map[string]domain.PoolSnapshot
	index []string
}

func newMemCache() *memCache { return &memCache{snaps: map[string]domain.PoolSnapshot{}} }

func (c *memCache) Set(_ context.Context, s domain.PoolSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[s.ID] = s
	return nil
}

func (c *memCache) Get(_ context.Context, id string) (domain.PoolSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snaps[id]
	if !ok {
		return domain.PoolSnapshot{}, domain.ErrNotFound
	}
	return s, nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, id)
	return nil
}

func (c *memCache) SetIndex(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = append([]string(nil), ids...)
	return nil
}

func (c *memCache) GetIndex(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index, nil
}

// memBus records published messages per channel.
type memBus struct {
	mu  sync.Mutex
	msg map[string][][]byte
}

func newMemBus() *memBus { return &memBus{msg: map[string][][]byte{}} }

func (b *memBus) Publish(_ context.Context, ch string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg[ch] = append(b.msg[ch], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *memBus) count(ch string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msg[ch])
}

// heldLocks refuses every acquisition.
type heldLocks struct{}

func (heldLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

// recNotifier collects notified outcomes.
type recNotifier struct{ outcomes []domain.TxOutcome }

func (n *recNotifier) NotifyOutcome(_ context.Context, out domain.TxOutcome) error {
	n.outcomes = append(n.outcomes, out)
	return nil
}
