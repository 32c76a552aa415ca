package eligibility

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"fundscope/internal/model"
)

var testAccount = common.HexToAddress("0x6666666666666666666666666666666666666666")

type fakePreflight struct {
	canRefund     bool
	refundReason  string
	refundErr     error
	sched         model.Schedule
	schedErr      error
	commission    uint64
	commissionErr error
}

func (f *fakePreflight) CanRefund(ctx context.Context, id uint64, account common.Address) (bool, string, error) {
	return f.canRefund, f.refundReason, f.refundErr
}

func (f *fakePreflight) SimulateSchedule(ctx context.Context, action model.DisbursementAction, id uint64, amount *big.Int, account common.Address) (model.Schedule, error) {
	if f.schedErr != nil {
		return model.Schedule{}, f.schedErr
	}
	return f.sched, nil
}

func (f *fakePreflight) CommissionRate(ctx context.Context) (uint64, error) {
	return f.commission, f.commissionErr
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name     string
		directOK bool
		sched    model.Schedule
		want     Mode
	}{
		{"direct wins", true, model.Schedule{}, ModeSingleShot},
		{"direct wins over schedule", true, model.Schedule{AllowedNow: big.NewInt(100)}, ModeSingleShot},
		{"tranche available", false, model.Schedule{AllowedNow: big.NewInt(100)}, ModeScheduled},
		{"zero tranche", false, model.Schedule{AllowedNow: new(big.Int), NextAt: 99, Remaining: big.NewInt(500000)}, ModeBlocked},
		{"nil tranche", false, model.Schedule{}, ModeBlocked},
	}
	for _, tc := range cases {
		// Two runs with identical inputs must agree.
		first := Decide(tc.directOK, tc.sched)
		second := Decide(tc.directOK, tc.sched)
		if first != tc.want || second != tc.want {
			t.Fatalf("%s: expected %v, got %v then %v", tc.name, tc.want, first, second)
		}
	}
}

func TestExpectedNetFloors(t *testing.T) {
	cases := []struct {
		amount int64
		bps    uint64
		want   int64
	}{
		{1_000_000, 250, 975_000},
		{1, 250, 1},     // fee floors to zero
		{100, 250, 98},  // 2.5 floors to 2
		{0, 250, 0},
		{1_000_000, 0, 1_000_000},
		{1_000_000, 10_000, 0},
	}
	for _, tc := range cases {
		got := ExpectedNet(big.NewInt(tc.amount), tc.bps)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("ExpectedNet(%d, %d): expected %d, got %s", tc.amount, tc.bps, tc.want, got)
		}
	}
	if got := ExpectedNet(nil, 250); got.Sign() != 0 {
		t.Fatalf("nil amount must net to zero, got %s", got)
	}
}

func TestEvaluateBlockedRefund(t *testing.T) {
	pf := &fakePreflight{
		canRefund:    false,
		refundReason: "rate_limited",
		sched: model.Schedule{
			AllowedNow: new(big.Int),
			NextAt:     1700000000,
			Remaining:  big.NewInt(500000),
		},
	}
	ev := NewEvaluator(pf, nil)

	elig, mode, err := ev.Evaluate(context.Background(), model.ActionRefund, testCampaign(1), testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeBlocked {
		t.Fatalf("expected ModeBlocked, got %v", mode)
	}
	if elig.NextAt != 1700000000 {
		t.Fatalf("retry time must surface verbatim, got %d", elig.NextAt)
	}
	if elig.Reason != "rate_limited" {
		t.Fatalf("on-chain reason must surface verbatim, got %q", elig.Reason)
	}
	if elig.ExpectedNet != nil {
		t.Fatalf("blocked snapshot must not estimate a net payout")
	}
}

func TestEvaluateScheduledRefundWithCommission(t *testing.T) {
	pf := &fakePreflight{
		canRefund:  false,
		sched:      model.Schedule{AllowedNow: big.NewInt(1_000_000), Remaining: big.NewInt(2_000_000)},
		commission: 250,
	}
	ev := NewEvaluator(pf, nil)

	elig, mode, err := ev.Evaluate(context.Background(), model.ActionRefund, testCampaign(1), testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeScheduled {
		t.Fatalf("expected ModeScheduled, got %v", mode)
	}
	if elig.ExpectedNet == nil || elig.ExpectedNet.Cmp(big.NewInt(975_000)) != 0 {
		t.Fatalf("expected net 975000, got %v", elig.ExpectedNet)
	}
}

func TestEvaluateRevertedSimulationIsBlocked(t *testing.T) {
	// The preflight reports a contract revert as a zero schedule, nil error.
	pf := &fakePreflight{
		canRefund: false,
		sched:     model.Schedule{AllowedNow: new(big.Int), Remaining: new(big.Int)},
	}
	ev := NewEvaluator(pf, nil)

	_, mode, err := ev.Evaluate(context.Background(), model.ActionRefund, testCampaign(1), testAccount)
	if err != nil {
		t.Fatalf("a reverted simulation must not be an error: %v", err)
	}
	if mode != ModeBlocked {
		t.Fatalf("expected ModeBlocked, got %v", mode)
	}
}

func TestEvaluatePreflightFailurePropagates(t *testing.T) {
	pf := &fakePreflight{
		canRefund: false,
		schedErr:  fmt.Errorf("dial tcp 127.0.0.1:8545: connect: connection refused"),
	}
	ev := NewEvaluator(pf, nil)

	_, _, err := ev.Evaluate(context.Background(), model.ActionRefund, testCampaign(1), testAccount)
	if err == nil {
		t.Fatalf("an unreachable chain must surface as an error, never as blocked")
	}
}

func TestEvaluateWithdrawGoalReached(t *testing.T) {
	campaign := testCampaign(2)
	campaign.GoalAmount = big.NewInt(1000)
	campaign.RaisedAmount = big.NewInt(1000)

	ev := NewEvaluator(&fakePreflight{sched: model.Schedule{}}, nil)

	_, mode, err := ev.Evaluate(context.Background(), model.ActionWithdraw, campaign, testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeSingleShot {
		t.Fatalf("goal reached must allow a single-shot withdrawal, got %v", mode)
	}
}

func TestEvaluateWithdrawFlexibleNeverSingleShot(t *testing.T) {
	campaign := testCampaign(3)
	campaign.FundraiserType = model.FundraiserFlexible
	campaign.GoalAmount = big.NewInt(1000)
	campaign.RaisedAmount = big.NewInt(5000)

	ev := NewEvaluator(&fakePreflight{
		sched: model.Schedule{AllowedNow: big.NewInt(100)},
	}, nil)

	_, mode, err := ev.Evaluate(context.Background(), model.ActionWithdraw, campaign, testAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeScheduled {
		t.Fatalf("flexible campaigns disburse through the schedule, got %v", mode)
	}
}

func testCampaign(id uint64) model.Campaign {
	return model.Campaign{
		ID:           id,
		Title:        fmt.Sprintf("campaign %d", id),
		GoalAmount:   big.NewInt(10_000),
		RaisedAmount: big.NewInt(5_000),
		Creator:      testAccount.Hex(),
	}
}
