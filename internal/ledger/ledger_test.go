package ledger

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"fundscope/internal/contract"
	"fundscope/internal/model"
)

var testAccount = common.HexToAddress("0x3333333333333333333333333333333333333333")

type fakeLedgerReader struct {
	aggIDs     []uint64
	aggAmounts []*big.Int
	aggErr     error
	perCamp    map[uint64]*big.Int
	perErr     error
	perCalls   int
}

func (f *fakeLedgerReader) ListUserDonations(ctx context.Context, account common.Address, offset, limit uint64) ([]uint64, []*big.Int, error) {
	if f.aggErr != nil {
		return nil, nil, f.aggErr
	}
	if offset >= uint64(len(f.aggIDs)) {
		return nil, nil, nil
	}
	end := offset + limit
	if end > uint64(len(f.aggIDs)) {
		end = uint64(len(f.aggIDs))
	}
	return f.aggIDs[offset:end], f.aggAmounts[offset:end], nil
}

func (f *fakeLedgerReader) DonationAmount(ctx context.Context, id uint64, account common.Address) (*big.Int, error) {
	f.perCalls++
	if f.perErr != nil {
		return nil, f.perErr
	}
	if amount, ok := f.perCamp[id]; ok {
		return amount, nil
	}
	return big.NewInt(0), nil
}

func TestUnionLaw(t *testing.T) {
	// Campaign 1 visible only in the aggregate, 2 in both, 3 only in the
	// fallback, 4 in neither.
	r := &fakeLedgerReader{
		aggIDs:     []uint64{1, 2},
		aggAmounts: []*big.Int{big.NewInt(100), big.NewInt(200)},
		perCamp: map[uint64]*big.Int{
			2: big.NewInt(200),
			3: big.NewInt(300),
		},
	}

	view, err := BuildView(context.Background(), r, testAccount, []uint64{1, 2, 3, 4}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []uint64{1, 2, 3} {
		if !view.IsDonor(id) {
			t.Fatalf("campaign %d must count as donated-to", id)
		}
	}
	if view.IsDonor(4) {
		t.Fatalf("campaign 4 must not count as donated-to")
	}
}

func TestNoDoubleCountWhenBothSourcesReport(t *testing.T) {
	r := &fakeLedgerReader{
		aggIDs:     []uint64{2},
		aggAmounts: []*big.Int{big.NewInt(200)},
		perCamp:    map[uint64]*big.Int{2: big.NewInt(200)},
	}

	view, err := BuildView(context.Background(), r, testAccount, []uint64{2}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := view.Amount(2); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("amount double-counted: %s", got)
	}
	if view.Donations[2].Source != model.SourceAggregate {
		t.Fatalf("aggregate value must be preferred, got %s", view.Donations[2].Source)
	}
}

func TestRepeatedAggregateIDsSummed(t *testing.T) {
	// One id per discrete donation: three donations to campaign 5.
	r := &fakeLedgerReader{
		aggIDs:     []uint64{5, 5, 5},
		aggAmounts: []*big.Int{big.NewInt(10), big.NewInt(20), big.NewInt(30)},
	}

	view, err := BuildView(context.Background(), r, testAccount, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := view.Amount(5); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("expected summed 60, got %s", got)
	}
}

func TestFallbackOnlyWhenAggregateUnavailable(t *testing.T) {
	r := &fakeLedgerReader{
		aggErr:  fmt.Errorf("rpc timeout"),
		perCamp: map[uint64]*big.Int{1: big.NewInt(50)},
	}

	view, err := BuildView(context.Background(), r, testAccount, []uint64{1, 2}, nil)
	if err != nil {
		t.Fatalf("fallback should carry the view: %v", err)
	}
	if !view.IsDonor(1) || view.IsDonor(2) {
		t.Fatalf("fallback reconciliation wrong: %+v", view.Donations)
	}
}

func TestBothSourcesFailing(t *testing.T) {
	r := &fakeLedgerReader{
		aggErr: fmt.Errorf("rpc timeout"),
		perErr: fmt.Errorf("rpc timeout"),
	}

	if _, err := BuildView(context.Background(), r, testAccount, []uint64{1}, nil); err == nil {
		t.Fatalf("both sources failing must surface an error")
	}
}

func TestRouterNotConfigured(t *testing.T) {
	r := &fakeLedgerReader{
		aggErr: contract.ErrNotConfigured,
		perErr: contract.ErrNotConfigured,
	}

	if _, err := BuildView(context.Background(), r, testAccount, []uint64{1}, nil); err == nil {
		t.Fatalf("unconfigured router must propagate unknown, not an empty view")
	}
}

func TestFallbackFanOutCapped(t *testing.T) {
	ids := make([]uint64, 300)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	r := &fakeLedgerReader{}

	if _, err := BuildView(context.Background(), r, testAccount, ids, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.perCalls > maxFallbackScan {
		t.Fatalf("fallback fan-out exceeded cap: %d calls", r.perCalls)
	}
}
