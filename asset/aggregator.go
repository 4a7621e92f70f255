package asset

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/common/logger"
	"github.com/sgawallet/sga-wallet/common/metrics"
	conf "github.com/sgawallet/sga-wallet/config"
	"github.com/sgawallet/sga-wallet/connect"
	"github.com/sgawallet/sga-wallet/price"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/sgawallet/sga-wallet/storage"
	"golang.org/x/sync/errgroup"
)

// tracked is a connection as the aggregator sees it. epoch changes whenever
// the pair is removed and added again, so results of an older pass can be
// told apart.
type tracked struct {
	conn  prt.ChainConnection
	epoch uint64
}

// Aggregator turns the active connection set into valued asset records.
// It follows the connection manager through connect.Observer.
type Aggregator struct {
	registry *chain.Registry
	oracle   price.Oracle
	basis    *storage.BasisBook
	timeout  time.Duration
	limit    int

	// pass serializes aggregation passes
	pass sync.Mutex

	mtx       sync.RWMutex
	tracked   map[string]tracked
	records   map[string][]AssetRecord // connection key -> records
	epoch     uint64
	lastPass  time.Time
	listeners []Listener

	kick chan struct{}
}

var _ connect.Observer = (*Aggregator)(nil)

// NewAggregator takes the per-call timeout and fan-out width from cfg.
// basis may be nil.
func NewAggregator(cfg conf.Aggregator, registry *chain.Registry, oracle price.Oracle, basis *storage.BasisBook) *Aggregator {
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = 16
	}
	timeout := time.Duration(cfg.CallTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		registry: registry,
		oracle:   oracle,
		basis:    basis,
		timeout:  timeout,
		limit:    limit,
		tracked:  make(map[string]tracked),
		records:  make(map[string][]AssetRecord),
		kick:     make(chan struct{}, 1),
	}
}

// ConnectionAdded starts tracking c and asks the run loop for a pass.
func (p *Aggregator) ConnectionAdded(c prt.ChainConnection) {
	p.mtx.Lock()
	if _, ok := p.tracked[c.Key()]; !ok {
		p.epoch++
		p.tracked[c.Key()] = tracked{conn: c, epoch: p.epoch}
	}
	p.mtx.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// ConnectionRemoved drops the pair and every record it owns. Results still in
// flight for it are discarded when they arrive.
func (p *Aggregator) ConnectionRemoved(family prt.Family, address string) {
	key := prt.ChainConnection{Family: family, Address: address}.Key()

	p.mtx.Lock()
	delete(p.tracked, key)
	delete(p.records, key)
	snapshot := p.snapshotLocked()
	p.mtx.Unlock()

	p.publish(snapshot)
}

// Listener receives the full asset list after every change.
type Listener func(records []AssetRecord)

func (p *Aggregator) OnUpdate(fn Listener) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.listeners = append(p.listeners, fn)
}

// ListAssets returns a copy of the latest records with cost basis applied.
// Order is not meaningful.
func (p *Aggregator) ListAssets() []AssetRecord {
	p.mtx.RLock()
	out := p.snapshotLocked()
	p.mtx.RUnlock()
	return out
}

// LastPass is the finish time of the latest completed pass.
func (p *Aggregator) LastPass() time.Time {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.lastPass
}

// Refresh runs one aggregation pass over every tracked connection. Failed
// queries and price lookups are logged and skipped; only a cancelled ctx
// makes Refresh return an error.
func (p *Aggregator) Refresh(ctx context.Context) error {
	p.pass.Lock()
	defer p.pass.Unlock()

	start := time.Now()
	p.mtx.RLock()
	targets := make([]tracked, 0, len(p.tracked))
	for _, t := range p.tracked {
		targets = append(targets, t)
	}
	p.mtx.RUnlock()

	// pending is filled before any worker starts; workers only append under mtx
	pending := make(map[string][]AssetRecord, len(targets))
	sources := make([]chain.Source, len(targets))
	for i, t := range targets {
		source, err := p.registry.Source(t.conn.Family)
		if err != nil {
			logger.Warn("[Aggregator] no source for ", t.conn.Family, ": ", err)
			continue
		}
		sources[i] = source
		pending[t.conn.Key()] = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for i, t := range targets {
		t := t
		source := sources[i]
		if source == nil {
			continue
		}
		for _, unit := range source.Units(t.conn.Address) {
			unit := unit
			g.Go(func() error {
				recs := p.collect(gctx, t.conn, unit)
				p.accept(t, recs, pending)
				return nil
			})
		}
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mtx.Lock()
	for _, t := range targets {
		key := t.conn.Key()
		cur, ok := p.tracked[key]
		if !ok || cur.epoch != t.epoch {
			continue
		}
		if recs, ok := pending[key]; ok {
			sort.Slice(recs, func(i, j int) bool { return recs[i].AssetID() < recs[j].AssetID() })
			p.records[key] = recs
		}
	}
	p.lastPass = time.Now()
	snapshot := p.snapshotLocked()
	p.mtx.Unlock()

	p.updateGauges(snapshot)
	metrics.AggregationPasses.Inc()
	metrics.PassDuration.Observe(time.Since(start).Seconds())
	logger.Debug("[Aggregator] pass over ", len(targets), " connections produced ", len(snapshot), " records")

	p.publish(snapshot)
	return nil
}

// accept appends recs to the pass result unless the connection was removed
// (or removed and re-added) since the pass started.
func (p *Aggregator) accept(t tracked, recs []AssetRecord, pending map[string][]AssetRecord) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	cur, ok := p.tracked[t.conn.Key()]
	if !ok || cur.epoch != t.epoch {
		metrics.DiscardedResults.Inc()
		return
	}
	pending[t.conn.Key()] = append(pending[t.conn.Key()], recs...)
}

// collect runs one unit and values its holdings.
func (p *Aggregator) collect(ctx context.Context, c prt.ChainConnection, unit chain.Unit) []AssetRecord {
	qctx, cancel := context.WithTimeout(ctx, p.timeout)
	holdings, err := unit.Fetch(qctx)
	cancel()
	if err != nil {
		metrics.QueryFailures.WithLabelValues(string(c.Family)).Inc()
		logger.Warn("[Aggregator] ", fmt.Errorf("%w: %s %s %s: %v", ErrAssetQueryFailed, c.Family, c.Address, unit.Name, err))
		return nil
	}

	out := make([]AssetRecord, 0, len(holdings))
	for _, h := range holdings {
		if h.Amount < 0 {
			continue
		}
		unitPrice, ok := p.quote(ctx, c.Family, h)
		out = append(out, AssetRecord{
			Family:    c.Family,
			Owner:     c.Address,
			Network:   h.Network,
			Symbol:    h.Symbol,
			Amount:    h.Amount,
			UnitPrice: unitPrice,
			FiatValue: h.Amount * unitPrice,
			Unpriced:  !ok,
		})
	}
	return out
}

// quote prices a holding by contract first, then by symbol. A failure yields
// a zero price and ok=false.
func (p *Aggregator) quote(ctx context.Context, family prt.Family, h chain.Holding) (float64, bool) {
	if h.Price.Unpriced || p.oracle == nil {
		return 0, false
	}

	var errs []error
	if h.Price.Contract != "" {
		v, err := p.priceCall(ctx, func(ctx context.Context) (float64, error) {
			return p.oracle.PriceByContract(ctx, h.Price.Platform, h.Price.Contract)
		})
		if err == nil {
			return v, true
		}
		errs = append(errs, err)
	}
	if h.Price.Symbol != "" {
		v, err := p.priceCall(ctx, func(ctx context.Context) (float64, error) {
			return p.oracle.PriceBySymbol(ctx, h.Price.Symbol)
		})
		if err == nil {
			return v, true
		}
		errs = append(errs, err)
	}

	metrics.PriceFailures.WithLabelValues(string(family)).Inc()
	logger.Warn("[Aggregator] ", fmt.Errorf("%w: %s on %s: %v", ErrPriceLookupFailed, h.Symbol, h.Network, errs))
	return 0, false
}

func (p *Aggregator) priceCall(ctx context.Context, fn func(context.Context) (float64, error)) (float64, error) {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(pctx)
}

// Run refreshes every interval and whenever a connection is added, until ctx
// is done. A zero interval leaves only the connection trigger.
func (p *Aggregator) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-p.kick:
		}
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("[Aggregator] pass aborted: ", err)
		}
	}
}

func (p *Aggregator) snapshotLocked() []AssetRecord {
	keys := make([]string, 0, len(p.records))
	for k := range p.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []AssetRecord
	for _, k := range keys {
		t, ok := p.tracked[k]
		if !ok {
			continue
		}
		book := p.costBasis(t.conn)
		for _, r := range p.records[k] {
			r.applyBasis(book)
			out = append(out, r)
		}
	}
	return out
}

func (p *Aggregator) costBasis(c prt.ChainConnection) map[string]float64 {
	if p.basis == nil {
		return nil
	}
	book, err := p.basis.ForOwner(c.Family, c.Address)
	if err != nil {
		logger.Warn("[Aggregator] failed to read cost basis of ", c.Key(), ": ", err)
	}
	return book
}

func (p *Aggregator) updateGauges(records []AssetRecord) {
	counts := make(map[prt.Family]int)
	for _, r := range records {
		counts[r.Family]++
	}
	for _, f := range prt.Families {
		metrics.Records.WithLabelValues(string(f)).Set(float64(counts[f]))
	}
}

func (p *Aggregator) publish(records []AssetRecord) {
	p.mtx.RLock()
	listeners := append([]Listener(nil), p.listeners...)
	p.mtx.RUnlock()
	for _, fn := range listeners {
		fn(records)
	}
}
