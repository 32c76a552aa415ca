package eligibility

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fundscope/internal/model"
)

// Submitter is the transaction surface the runner drives.
type Submitter interface {
	SubmitFull(ctx context.Context, action model.DisbursementAction, id uint64) (common.Hash, error)
	SubmitSchedule(ctx context.Context, action model.DisbursementAction, id uint64, amount *big.Int) (common.Hash, error)
	SubmitClaim(ctx context.Context, action model.DisbursementAction, id uint64) (common.Hash, error)
	WaitConfirmed(ctx context.Context, txHash common.Hash) error
}

// Refresher re-reads dependent state after a confirmed transaction.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Outcome reports how an action attempt ended.
type Outcome struct {
	Mode        Mode              `json:"mode"`
	Eligibility model.Eligibility `json:"eligibility"`
	TxHash      string            `json:"tx_hash,omitempty"`
	ClaimTxHash string            `json:"claim_tx_hash,omitempty"`
	Submitted   bool              `json:"submitted"`
}

// Runner drives the full transaction sequence for refunds and withdrawals:
// re-evaluate, then single-shot or schedule-then-claim, then force a fresh
// read of dependent state. Eligibility is recomputed at entry; stale
// snapshots from an earlier render are never trusted.
type Runner struct {
	evaluator *Evaluator
	submitter Submitter
	refresher Refresher
	logger    *zap.Logger

	mu               sync.Mutex
	pending          bool
	availableRefunds int64
}

// NewRunner builds a Runner. refresher may be nil.
func NewRunner(evaluator *Evaluator, submitter Submitter, refresher Refresher, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		evaluator: evaluator,
		submitter: submitter,
		refresher: refresher,
		logger:    logger,
	}
}

// SetAvailableRefunds seeds the locally cached available-refunds counter.
func (r *Runner) SetAvailableRefunds(n int64) {
	r.mu.Lock()
	r.availableRefunds = n
	r.mu.Unlock()
}

// AvailableRefunds returns the cached counter.
func (r *Runner) AvailableRefunds() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.availableRefunds
}

// Pending reports whether an action attempt is in flight.
func (r *Runner) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Execute runs one action attempt end to end. Any submission failure resets
// the runner to a retry-ready state and returns the error; the pending flag
// can never outlive the attempt.
func (r *Runner) Execute(ctx context.Context, action model.DisbursementAction, campaign model.Campaign, account common.Address) (Outcome, error) {
	r.mu.Lock()
	if r.pending {
		r.mu.Unlock()
		return Outcome{}, fmt.Errorf("action already in flight for this runner")
	}
	r.pending = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.pending = false
		r.mu.Unlock()
	}()

	elig, mode, err := r.evaluator.Evaluate(ctx, action, campaign, account)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Mode: mode, Eligibility: elig}

	switch mode {
	case ModeBlocked:
		// Valid terminal state: surface the retry time and the on-chain
		// reason verbatim, submit nothing.
		return outcome, nil

	case ModeSingleShot:
		txHash, err := r.submitter.SubmitFull(ctx, action, campaign.ID)
		if err != nil {
			return outcome, fmt.Errorf("submit %s: %w", action, err)
		}
		outcome.TxHash = txHash.Hex()
		if err := r.submitter.WaitConfirmed(ctx, txHash); err != nil {
			return outcome, fmt.Errorf("confirm %s: %w", action, err)
		}
		outcome.Submitted = true

	case ModeScheduled:
		txHash, err := r.submitter.SubmitSchedule(ctx, action, campaign.ID, elig.AllowedNow)
		if err != nil {
			return outcome, fmt.Errorf("submit scheduled %s: %w", action, err)
		}
		outcome.TxHash = txHash.Hex()
		if err := r.submitter.WaitConfirmed(ctx, txHash); err != nil {
			return outcome, fmt.Errorf("confirm scheduled %s: %w", action, err)
		}

		claimHash, err := r.submitter.SubmitClaim(ctx, action, campaign.ID)
		if err != nil {
			return outcome, fmt.Errorf("submit claim: %w", err)
		}
		outcome.ClaimTxHash = claimHash.Hex()
		if err := r.submitter.WaitConfirmed(ctx, claimHash); err != nil {
			return outcome, fmt.Errorf("confirm claim: %w", err)
		}
		outcome.Submitted = true

		if action == model.ActionRefund {
			r.mu.Lock()
			if r.availableRefunds > 0 {
				r.availableRefunds--
			}
			r.mu.Unlock()
		}
	}

	// Schedules and levels can change from other accounts' concurrent
	// actions; dependent state is recomputed, not patched.
	if r.refresher != nil {
		if err := r.refresher.Refresh(ctx); err != nil {
			r.logger.Warn("post-action refresh failed", zap.Error(err))
		}
	}

	return outcome, nil
}
