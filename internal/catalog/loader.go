package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"fundscope/internal/model"
)

// DefaultChunkSize bounds concurrent in-flight detail reads per chunk.
const DefaultChunkSize = 10

// loadIDs fetches detail and progress for each id in fixed-size chunks.
// Calls within a chunk run concurrently; results keep id order regardless of
// completion order. An individual id's failure drops only that id and is
// logged, never the batch.
func loadIDs(ctx context.Context, r Reader, ids []uint64, chunkSize int, logger *zap.Logger) []model.Campaign {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make([]model.Campaign, 0, len(ids))
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, loadChunk(ctx, r, ids[start:end], logger)...)

		select {
		case <-ctx.Done():
			return out
		default:
		}
	}
	return out
}

func loadChunk(ctx context.Context, r Reader, ids []uint64, logger *zap.Logger) []model.Campaign {
	// Slot per id keeps result order keyed by position, not completion.
	slots := make([]*model.Campaign, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()

			c, err := r.Details(ctx, id)
			if err != nil {
				logger.Warn("campaign detail load failed", zap.Uint64("id", id), zap.Error(err))
				return
			}
			applyProgress(ctx, r, &c, logger)
			slots[i] = &c
		}(i, id)
	}
	wg.Wait()

	out := make([]model.Campaign, 0, len(ids))
	for _, slot := range slots {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return out
}

// applyProgress overwrites the detail read's raised figure with the live
// progress read when available; the detail value stands otherwise.
func applyProgress(ctx context.Context, r Reader, c *model.Campaign, logger *zap.Logger) {
	p, err := r.Progress(ctx, c.ID)
	if err != nil {
		logger.Debug("campaign progress load failed", zap.Uint64("id", c.ID), zap.Error(err))
		return
	}
	if p.Raised != nil {
		c.RaisedAmount = p.Raised
	}
}
