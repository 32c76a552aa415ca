package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"fundscope/internal/metrics"
	"fundscope/internal/model"
)

// ErrNotConfigured marks reads whose contract address is absent from
// configuration. Callers skip the read and propagate "unknown" rather than a
// false negative.
var ErrNotConfigured = errors.New("contract address not configured")

// ChainCaller is the read-only chain surface the Caller needs.
type ChainCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Addresses holds the deployed module addresses.
type Addresses struct {
	Registry common.Address
	Router   common.Address
	Security common.Address
}

// Caller performs read-only and simulated contract calls against the
// crowdfunding modules.
type Caller struct {
	chain   ChainCaller
	addrs   Addresses
	metrics *metrics.Metrics
}

// NewCaller builds a Caller. Zero addresses are allowed; reads against them
// return ErrNotConfigured. m may be nil.
func NewCaller(chain ChainCaller, addrs Addresses, m *metrics.Metrics) *Caller {
	return &Caller{chain: chain, addrs: addrs, metrics: m}
}

// CampaignCount reads the registry's total campaign count.
func (c *Caller) CampaignCount(ctx context.Context) (uint64, error) {
	values, err := c.call(ctx, c.addrs.Registry, RegistryABI, "campaignCount")
	if err != nil {
		return 0, err
	}
	return asUint64(values[0])
}

// Details reads and normalizes one campaign's detail record.
func (c *Caller) Details(ctx context.Context, id uint64) (model.Campaign, error) {
	values, err := c.call(ctx, c.addrs.Registry, RegistryABI, "getDetails", new(big.Int).SetUint64(id))
	if err != nil {
		return model.Campaign{}, err
	}
	return NormalizeCampaign(id, values)
}

// Progress reads and normalizes one campaign's live progress.
func (c *Caller) Progress(ctx context.Context, id uint64) (model.Progress, error) {
	values, err := c.call(ctx, c.addrs.Registry, RegistryABI, "getProgress", new(big.Int).SetUint64(id))
	if err != nil {
		return model.Progress{}, err
	}
	return NormalizeProgress(id, values)
}

// DonationAmount reads the aggregated donation of one account to one campaign.
func (c *Caller) DonationAmount(ctx context.Context, id uint64, account common.Address) (*big.Int, error) {
	values, err := c.call(ctx, c.addrs.Router, RouterABI, "getDonationAmount", new(big.Int).SetUint64(id), account)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// ListUserDonations reads the router's per-account aggregate as parallel
// id/amount arrays.
func (c *Caller) ListUserDonations(ctx context.Context, account common.Address, offset, limit uint64) ([]uint64, []*big.Int, error) {
	values, err := c.call(ctx, c.addrs.Router, RouterABI, "listUserDonations",
		account, new(big.Int).SetUint64(offset), new(big.Int).SetUint64(limit))
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("listUserDonations returned %d values", len(values))
	}

	rawIDs, err := asBigIntSlice(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("ids: %w", err)
	}
	amounts, err := asBigIntSlice(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("amounts: %w", err)
	}

	ids := make([]uint64, 0, len(rawIDs))
	for _, id := range rawIDs {
		if !id.IsUint64() {
			return nil, nil, fmt.Errorf("campaign id does not fit in uint64: %s", id)
		}
		ids = append(ids, id.Uint64())
	}
	return ids, amounts, nil
}

// CanRefund reads the direct refund-permission boolean and reason string.
func (c *Caller) CanRefund(ctx context.Context, id uint64, account common.Address) (bool, string, error) {
	values, err := c.call(ctx, c.addrs.Router, RouterABI, "canRefund", new(big.Int).SetUint64(id), account)
	if err != nil {
		return false, "", err
	}
	if len(values) < 2 {
		return false, "", fmt.Errorf("canRefund returned %d values", len(values))
	}
	allowed, err := asBool(values[0])
	if err != nil {
		return false, "", err
	}
	return allowed, asString(values[1]), nil
}

// CommissionRate reads the platform commission in basis points.
func (c *Caller) CommissionRate(ctx context.Context) (uint64, error) {
	values, err := c.call(ctx, c.addrs.Router, RouterABI, "commissionRate")
	if err != nil {
		return 0, err
	}
	return asUint64(values[0])
}

// SimulateSchedule dry-runs refundWithSchedule/withdrawWithSchedule via
// eth_call from the account's address. A contract revert is not an error
// here: it is reported as a zero schedule so the caller treats it as "not
// eligible now". Transport failures still propagate; an unreachable endpoint
// must never read as ineligibility.
func (c *Caller) SimulateSchedule(ctx context.Context, action model.DisbursementAction, id uint64, amount *big.Int, account common.Address) (model.Schedule, error) {
	method := "refundWithSchedule"
	if action == model.ActionWithdraw {
		method = "withdrawWithSchedule"
	}
	if amount == nil {
		amount = new(big.Int)
	}

	values, err := c.callFrom(ctx, account, c.addrs.Router, RouterABI, method,
		new(big.Int).SetUint64(id), amount)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) || !isRevert(err) {
			return model.Schedule{}, err
		}
		return model.Schedule{AllowedNow: new(big.Int), NextAt: 0, Remaining: new(big.Int)}, nil
	}
	return NormalizeSchedule(values)
}

// isRevert reports whether a call failed inside the EVM rather than in
// transport. Nodes attach revert data through rpc.DataError; some only carry
// the message text.
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// RateLimitStatus reads the security module's rate-limit diagnostic.
func (c *Caller) RateLimitStatus(ctx context.Context, account common.Address) (model.RateLimitStatus, error) {
	values, err := c.call(ctx, c.addrs.Security, SecurityABI, "checkRateLimit", account)
	if err != nil {
		return model.RateLimitStatus{}, err
	}
	if len(values) < 3 {
		return model.RateLimitStatus{}, fmt.Errorf("checkRateLimit returned %d values", len(values))
	}
	within, err := asBool(values[0])
	if err != nil {
		return model.RateLimitStatus{}, err
	}
	remaining, _ := asUint64(values[1])
	reset, _ := asUint64(values[2])
	return model.RateLimitStatus{WithinLimit: within, RemainingCalls: remaining, WindowReset: reset}, nil
}

func (c *Caller) call(ctx context.Context, to common.Address, abiFn func() (abi.ABI, error), method string, args ...interface{}) ([]interface{}, error) {
	return c.callFrom(ctx, common.Address{}, to, abiFn, method, args...)
}

func (c *Caller) callFrom(ctx context.Context, from, to common.Address, abiFn func() (abi.ABI, error), method string, args ...interface{}) ([]interface{}, error) {
	if to == (common.Address{}) {
		return nil, ErrNotConfigured
	}
	parsed, err := abiFn()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{From: from, To: &to, Data: data}
	start := time.Now()
	resp, err := c.chain.CallContract(ctx, msg, nil)
	if c.metrics != nil {
		c.metrics.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

