package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fundscope/internal/config"
	"fundscope/internal/metrics"
	"fundscope/internal/model"
	"fundscope/internal/storage"
)

// DefaultPollInterval matches the expected block time.
const DefaultPollInterval = 12 * time.Second

// BlockWatcher reports chain head position and transport state.
type BlockWatcher interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	IsStreaming() bool
}

// Options configures a Catalog.
type Options struct {
	ForcedIDBase config.IDBase
	ChunkSize    int
	PollInterval time.Duration
}

// Catalog holds the normalized live list of on-chain campaigns. The list is
// owned by this instance; between explicit refreshes it only grows, via delta
// loads of newly appended ids.
type Catalog struct {
	reader  Reader
	blocks  BlockWatcher
	store   storage.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options

	mu           sync.RWMutex
	base         Base
	baseResolved bool
	campaigns    []model.Campaign
	lastCount    uint64
	lastBlock    uint64
	connected    bool
}

// New builds a Catalog. store and m may be nil.
func New(reader Reader, blocks BlockWatcher, store storage.Storage, m *metrics.Metrics, opts Options, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Catalog{
		reader:  reader,
		blocks:  blocks,
		store:   store,
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
}

// Load performs the initial full load: campaign count, id-base resolution,
// then chunked detail+progress reads. An empty registry is a valid terminal
// state, not an error; only a failed count read propagates.
func (c *Catalog) Load(ctx context.Context) error {
	count, err := c.reader.CampaignCount(ctx)
	if err != nil {
		return fmt.Errorf("campaign count: %w", err)
	}

	base, ids, first, err := ResolveIDs(ctx, c.reader, count, c.opts.ForcedIDBase)
	if err != nil {
		return err
	}

	var loaded []model.Campaign
	if first != nil && len(ids) > 0 && first.ID == ids[0] {
		// The winning probe already fetched the first record; only its
		// live progress is still missing.
		head := *first
		applyProgress(ctx, c.reader, &head, c.logger)
		loaded = append([]model.Campaign{head}, loadIDs(ctx, c.reader, ids[1:], c.opts.ChunkSize, c.logger)...)
	} else {
		loaded = loadIDs(ctx, c.reader, ids, c.opts.ChunkSize, c.logger)
	}

	c.mu.Lock()
	c.base = base
	c.baseResolved = true
	c.campaigns = loaded
	c.lastCount = count
	c.mu.Unlock()

	c.logger.Info("catalog loaded",
		zap.Uint64("count", count),
		zap.Uint64("base", uint64(base)),
		zap.Int("campaigns", len(loaded)),
	)
	c.afterUpdate(loaded)
	return nil
}

// Run polls the chain head on a fixed interval and delta-loads newly
// appended campaigns when the count grows. It returns when ctx is canceled;
// pending timers die with it.
func (c *Catalog) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *Catalog) poll(ctx context.Context) {
	block, err := c.blocks.LatestBlockNumber(ctx)
	if err != nil {
		c.setConnected(false)
		c.logger.Warn("latest block poll failed", zap.Error(err))
		if c.metrics != nil {
			c.metrics.PollErrors.Inc()
		}
		return
	}
	c.mu.Lock()
	c.lastBlock = block
	c.connected = true
	c.mu.Unlock()

	count, err := c.reader.CampaignCount(ctx)
	if err != nil {
		c.logger.Warn("campaign count poll failed", zap.Error(err))
		if c.metrics != nil {
			c.metrics.PollErrors.Inc()
		}
		return
	}

	// Snapshot the last known count before loading: the delta range is
	// derived from it, never from a concurrently-mutating counter.
	c.mu.RLock()
	base := c.base
	resolved := c.baseResolved
	lastCount := c.lastCount
	c.mu.RUnlock()

	if !resolved {
		if err := c.Load(ctx); err != nil {
			c.logger.Warn("initial load retry failed", zap.Error(err))
		}
		return
	}
	if count <= lastCount {
		return
	}

	ids := idRange(base, lastCount, count)
	loaded := loadIDs(ctx, c.reader, ids, c.opts.ChunkSize, c.logger)

	c.mu.Lock()
	if c.lastCount != lastCount {
		// A full reload landed while this delta was in flight; its list
		// already covers these positions. Appending now would duplicate.
		c.mu.Unlock()
		c.logger.Info("stale delta discarded after concurrent reload",
			zap.Uint64("delta_from", lastCount),
			zap.Uint64("count", count),
		)
		return
	}
	c.campaigns = append(c.campaigns, loaded...)
	c.lastCount = count
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("delta load complete",
		zap.Uint64("prev_count", lastCount),
		zap.Uint64("count", count),
		zap.Int("appended", len(loaded)),
	)
	c.afterUpdate(snapshot)
}

// Refresh discards the current list and reloads from scratch. Used after a
// confirmed state-changing transaction: schedules and levels can change from
// other accounts' concurrent actions, so dependent state is recomputed, not
// patched.
func (c *Catalog) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// Snapshot returns a copy of the current campaign list.
func (c *Catalog) Snapshot() []model.Campaign {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Catalog) snapshotLocked() []model.Campaign {
	out := make([]model.Campaign, len(c.campaigns))
	copy(out, c.campaigns)
	return out
}

// Get returns the campaign with the given on-chain id.
func (c *Catalog) Get(id uint64) (model.Campaign, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, campaign := range c.campaigns {
		if campaign.ID == id {
			return campaign, true
		}
	}
	return model.Campaign{}, false
}

// IDs returns the on-chain ids of all loaded campaigns, in catalog order.
func (c *Catalog) IDs() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uint64, 0, len(c.campaigns))
	for _, campaign := range c.campaigns {
		ids = append(ids, campaign.ID)
	}
	return ids
}

// Base returns the resolved id base.
func (c *Catalog) Base() Base {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base
}

// IsConnected reports whether the last head poll succeeded. Informational:
// polling correctness does not depend on transport state.
func (c *Catalog) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// LastBlock returns the most recently observed head block number.
func (c *Catalog) LastBlock() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastBlock
}

func (c *Catalog) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Catalog) afterUpdate(campaigns []model.Campaign) {
	if c.metrics != nil {
		c.metrics.CampaignsLoaded.Set(float64(len(campaigns)))
	}
	if c.store == nil {
		return
	}
	if err := c.store.PutCampaignBatch(context.Background(), campaigns); err != nil {
		c.logger.Warn("campaign snapshot persist failed", zap.Error(err))
	}
}
