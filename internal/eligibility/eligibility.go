package eligibility

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fundscope/internal/contract"
	"fundscope/internal/model"
)

// Mode is the decided disbursement path for one action attempt.
type Mode int

const (
	// ModeBlocked: nothing disbursable now; retry at the schedule's NextAt.
	ModeBlocked Mode = iota
	// ModeSingleShot: the direct permission read allows a full disbursement.
	ModeSingleShot
	// ModeScheduled: a tranche is available; schedule tx then claim tx.
	ModeScheduled
)

const bpsDenominator = 10000

// Preflight is the chain surface the evaluator needs. Every read here is
// gasless; SimulateSchedule is a dry run that never mutates state.
type Preflight interface {
	CanRefund(ctx context.Context, id uint64, account common.Address) (bool, string, error)
	SimulateSchedule(ctx context.Context, action model.DisbursementAction, id uint64, amount *big.Int, account common.Address) (model.Schedule, error)
	CommissionRate(ctx context.Context) (uint64, error)
}

// Decide maps the direct permission boolean and the simulated schedule to a
// disbursement mode. Pure: identical inputs always produce the same mode.
func Decide(directOK bool, sched model.Schedule) Mode {
	if directOK {
		return ModeSingleShot
	}
	if sched.AllowedNow != nil && sched.AllowedNow.Sign() > 0 {
		return ModeScheduled
	}
	return ModeBlocked
}

// ExpectedNet computes the estimated payout after commission:
// amount - amount*bps/10000, integer arithmetic, floor division, never
// rounded up.
func ExpectedNet(amount *big.Int, bps uint64) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	fee.Quo(fee, big.NewInt(bpsDenominator))
	return new(big.Int).Sub(amount, fee)
}

// Evaluator produces point-in-time eligibility snapshots. Results are never
// cached across actions: on-chain rate-limit windows advance independently of
// this process, so a snapshot is recomputed before every state-changing
// submission.
type Evaluator struct {
	preflight Preflight
	logger    *zap.Logger
}

func NewEvaluator(preflight Preflight, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{preflight: preflight, logger: logger}
}

// Evaluate decides whether the action can proceed for (campaign, account)
// and with what amounts. A simulation revert is a valid "not eligible now"
// result, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, action model.DisbursementAction, campaign model.Campaign, account common.Address) (model.Eligibility, Mode, error) {
	directOK, reason, err := e.directCheck(ctx, action, campaign, account)
	if err != nil && !errors.Is(err, contract.ErrNotConfigured) {
		return model.Eligibility{}, ModeBlocked, err
	}

	// The preflight maps contract reverts to a zero schedule itself; an
	// error here is a real failure (unreachable endpoint, bad response) and
	// must not read as "blocked".
	sched, err := e.preflight.SimulateSchedule(ctx, action, campaign.ID, nil, account)
	if err != nil {
		if !errors.Is(err, contract.ErrNotConfigured) || !directOK {
			return model.Eligibility{}, ModeBlocked, err
		}
		sched = model.Schedule{AllowedNow: new(big.Int), Remaining: new(big.Int)}
	}

	mode := Decide(directOK, sched)

	result := model.Eligibility{
		CampaignID: campaign.ID,
		Account:    account.Hex(),
		Action:     action,
		AllowedNow: sched.AllowedNow,
		NextAt:     sched.NextAt,
		Remaining:  sched.Remaining,
		Reason:     reason,
	}

	if mode == ModeScheduled {
		if bps, err := e.preflight.CommissionRate(ctx); err == nil {
			result.ExpectedNet = ExpectedNet(sched.AllowedNow, bps)
		} else if !errors.Is(err, contract.ErrNotConfigured) {
			e.logger.Debug("commission rate read failed", zap.Error(err))
		}
	}

	return result, mode, nil
}

// directCheck reads the action's direct permission: canRefund for refunds,
// goal completion from the campaign record for withdrawals.
func (e *Evaluator) directCheck(ctx context.Context, action model.DisbursementAction, campaign model.Campaign, account common.Address) (bool, string, error) {
	if action == model.ActionWithdraw {
		if campaign.IsFlexible() {
			return false, "", nil
		}
		goalReached := campaign.GoalAmount != nil && campaign.RaisedAmount != nil &&
			campaign.RaisedAmount.Cmp(campaign.GoalAmount) >= 0
		return goalReached, "", nil
	}
	return e.preflight.CanRefund(ctx, campaign.ID, account)
}
