package catalog

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"fundscope/internal/config"
	"fundscope/internal/model"
)

// Base is the resolved identifier base of the registry.
type Base uint64

const (
	BaseZero Base = 0
	BaseOne  Base = 1
)

// Reader is the chain surface the catalog needs.
type Reader interface {
	CampaignCount(ctx context.Context) (uint64, error)
	Details(ctx context.Context, id uint64) (model.Campaign, error)
	Progress(ctx context.Context, id uint64) (model.Progress, error)
}

// ChooseBase picks the identifier base from the first result of each
// hypothesis. primaryFirst is the decoded details for id 1, alternateFirst
// for id 0; nil marks an unusable (failed/empty) read. A forced override
// short-circuits the heuristic.
//
// This is a heuristic, not a protocol guarantee: it inspects only the first
// element of each hypothesis, so a registry whose first slot is empty but
// whose later slots are populated can mis-resolve.
func ChooseBase(primaryFirst, alternateFirst *model.Campaign, forced config.IDBase) Base {
	switch forced {
	case config.IDBaseZero:
		return BaseZero
	case config.IDBaseOne:
		return BaseOne
	}

	if primaryFirst == nil {
		if alternateFirst != nil {
			return BaseZero
		}
		return BaseOne
	}
	if zeroCreator(*primaryFirst) && alternateFirst != nil && !zeroCreator(*alternateFirst) {
		return BaseZero
	}
	return BaseOne
}

// ResolveIDs determines the valid identifier sequence for a registry holding
// count campaigns. It probes both base hypotheses unless a base is forced.
// Both hypotheses unusable is a valid terminal state: the catalog is empty,
// and the returned sequence still covers the chosen base so later delta
// loads line up. The winning hypothesis's already-fetched first record is
// returned alongside so a full load does not read it a second time.
func ResolveIDs(ctx context.Context, r Reader, count uint64, forced config.IDBase) (Base, []uint64, *model.Campaign, error) {
	if count == 0 {
		base := BaseOne
		if forced == config.IDBaseZero {
			base = BaseZero
		}
		return base, nil, nil, nil
	}

	var primaryFirst, alternateFirst *model.Campaign
	if forced == config.IDBaseAuto || forced == config.IDBaseOne {
		primaryFirst = probe(ctx, r, 1)
	}
	if forced == config.IDBaseAuto || forced == config.IDBaseZero {
		alternateFirst = probe(ctx, r, 0)
	}

	base := ChooseBase(primaryFirst, alternateFirst, forced)
	first := primaryFirst
	if base == BaseZero {
		first = alternateFirst
	}
	return base, idRange(base, 0, count), first, nil
}

// idRange returns the ordered ids for positions [fromPos, count) under base.
func idRange(base Base, fromPos, count uint64) []uint64 {
	if fromPos >= count {
		return nil
	}
	ids := make([]uint64, 0, count-fromPos)
	for pos := fromPos; pos < count; pos++ {
		ids = append(ids, uint64(base)+pos)
	}
	return ids
}

func probe(ctx context.Context, r Reader, id uint64) *model.Campaign {
	c, err := r.Details(ctx, id)
	if err != nil {
		return nil
	}
	return &c
}

func zeroCreator(c model.Campaign) bool {
	return c.Creator == "" || c.Creator == (common.Address{}).Hex()
}
