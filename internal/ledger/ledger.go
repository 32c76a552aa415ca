package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fundscope/internal/contract"
	"fundscope/internal/model"
)

// maxFallbackScan caps per-campaign fallback reads to bound RPC fan-out.
const maxFallbackScan = 200

// aggregatePageSize is the page size for the router's aggregate read.
const aggregatePageSize = 500

// Reader is the chain surface the ledger needs.
type Reader interface {
	ListUserDonations(ctx context.Context, account common.Address, offset, limit uint64) ([]uint64, []*big.Int, error)
	DonationAmount(ctx context.Context, id uint64, account common.Address) (*big.Int, error)
}

// View is the reconciled per-account donation map. A campaign counts as
// donated-to if either source reports a positive amount; the displayed amount
// prefers the aggregate read, so the two sources never double-count.
type View struct {
	Account   string
	Donations map[uint64]model.Donation
}

// IsDonor reports whether the account donated to the campaign.
func (v View) IsDonor(campaignID uint64) bool {
	d, ok := v.Donations[campaignID]
	return ok && d.Amount != nil && d.Amount.Sign() > 0
}

// Amount returns the reconciled donated amount for one campaign.
func (v View) Amount(campaignID uint64) *big.Int {
	if d, ok := v.Donations[campaignID]; ok && d.Amount != nil {
		return d.Amount
	}
	return new(big.Int)
}

// BuildView reconciles the account's donations from the aggregate read
// (primary) and per-campaign amount reads over the known catalog (fallback).
// Either source being unavailable degrades to the other; only both failing
// hard is an error.
func BuildView(ctx context.Context, r Reader, account common.Address, campaignIDs []uint64, logger *zap.Logger) (View, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	view := View{
		Account:   account.Hex(),
		Donations: make(map[uint64]model.Donation),
	}

	primaryOK := true
	if err := foldAggregate(ctx, r, account, &view); err != nil {
		primaryOK = false
		if !errors.Is(err, contract.ErrNotConfigured) {
			logger.Warn("aggregate donation read failed", zap.String("account", view.Account), zap.Error(err))
		}
	}

	fallbackOK := foldFallback(ctx, r, account, campaignIDs, &view, logger)

	if !primaryOK && !fallbackOK {
		return View{}, fmt.Errorf("no donation source available for %s", view.Account)
	}
	return view, nil
}

// foldAggregate folds the parallel (ids, amounts) arrays into the view,
// summing amounts for repeated ids: one id may appear once per discrete
// donation.
func foldAggregate(ctx context.Context, r Reader, account common.Address, view *View) error {
	var offset uint64
	for {
		ids, amounts, err := r.ListUserDonations(ctx, account, offset, aggregatePageSize)
		if err != nil {
			return err
		}
		if len(ids) != len(amounts) {
			return fmt.Errorf("aggregate arrays length mismatch: %d ids, %d amounts", len(ids), len(amounts))
		}
		if len(ids) == 0 {
			return nil
		}

		for i, id := range ids {
			amount := amounts[i]
			if amount == nil || amount.Sign() <= 0 {
				continue
			}
			if existing, ok := view.Donations[id]; ok && existing.Source == model.SourceAggregate {
				existing.Amount = new(big.Int).Add(existing.Amount, amount)
				view.Donations[id] = existing
				continue
			}
			view.Donations[id] = model.Donation{
				CampaignID: id,
				Amount:     new(big.Int).Set(amount),
				Source:     model.SourceAggregate,
			}
		}

		if uint64(len(ids)) < aggregatePageSize {
			return nil
		}
		offset += uint64(len(ids))
	}
}

// foldFallback issues per-campaign amount reads. A positive result is
// evidence of a donation even when the aggregate read missed it; aggregate
// values already present are preferred and left untouched.
func foldFallback(ctx context.Context, r Reader, account common.Address, campaignIDs []uint64, view *View, logger *zap.Logger) bool {
	anySuccess := false
	scanned := 0
	for _, id := range campaignIDs {
		if scanned >= maxFallbackScan {
			break
		}
		scanned++

		amount, err := r.DonationAmount(ctx, id, account)
		if err != nil {
			if errors.Is(err, contract.ErrNotConfigured) {
				return anySuccess
			}
			logger.Debug("fallback donation read failed", zap.Uint64("campaign", id), zap.Error(err))
			continue
		}
		anySuccess = true

		if amount == nil || amount.Sign() <= 0 {
			continue
		}
		if _, ok := view.Donations[id]; ok {
			continue
		}
		view.Donations[id] = model.Donation{
			CampaignID: id,
			Amount:     new(big.Int).Set(amount),
			Source:     model.SourceFallback,
		}
	}
	return anySuccess
}
