package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"fundscope/internal/model"
)

var (
	testCreator = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testToken   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func positionalDetails() []interface{} {
	return []interface{}{
		"Clean water",
		"Wells for the region",
		"Nairobi",
		big.NewInt(1700000000),
		uint8(0),
		uint8(0),
		testToken,
		big.NewInt(5_000_000),
		big.NewInt(1_200_000),
		testCreator,
	}
}

func namedDetails() map[string]interface{} {
	return map[string]interface{}{
		"title":          "Clean water",
		"description":    "Wells for the region",
		"location":       "Nairobi",
		"endDate":        big.NewInt(1700000000),
		"fundraiserType": uint8(0),
		"status":         uint8(0),
		"token":          testToken,
		"goalAmount":     big.NewInt(5_000_000),
		"raisedAmount":   big.NewInt(1_200_000),
		"creator":        testCreator,
	}
}

func TestNormalizeCampaignBothShapes(t *testing.T) {
	fromPositional, err := NormalizeCampaign(7, positionalDetails())
	if err != nil {
		t.Fatalf("positional decode failed: %v", err)
	}
	fromNamed, err := NormalizeCampaign(7, namedDetails())
	if err != nil {
		t.Fatalf("named decode failed: %v", err)
	}

	if fromPositional.Title != fromNamed.Title ||
		fromPositional.Creator != fromNamed.Creator ||
		fromPositional.GoalAmount.Cmp(fromNamed.GoalAmount) != 0 ||
		fromPositional.RaisedAmount.Cmp(fromNamed.RaisedAmount) != 0 {
		t.Fatalf("shapes decode differently: %+v vs %+v", fromPositional, fromNamed)
	}
	if fromPositional.ID != 7 {
		t.Fatalf("id not carried: %d", fromPositional.ID)
	}
	if fromPositional.Creator != testCreator.Hex() {
		t.Fatalf("creator mismatch: %s", fromPositional.Creator)
	}
}

func TestNormalizeCampaignEmptyTuple(t *testing.T) {
	if _, err := NormalizeCampaign(1, []interface{}{}); err == nil {
		t.Fatalf("empty tuple must fail")
	}
	if _, err := NormalizeCampaign(1, nil); err == nil {
		t.Fatalf("nil input must fail")
	}
}

func TestNormalizeCampaignMissingCreator(t *testing.T) {
	values := positionalDetails()
	values[9] = "not-an-address"
	if _, err := NormalizeCampaign(1, values); err == nil {
		t.Fatalf("bad creator must fail decode")
	}
}

func TestNormalizeProgressPositional(t *testing.T) {
	p, err := NormalizeProgress(3, []interface{}{
		big.NewInt(1_200_000),
		big.NewInt(5_000_000),
		big.NewInt(24),
		big.NewInt(17),
		big.NewInt(86400),
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.CampaignID != 3 || p.Percentage != 24 || p.DonorsCount != 17 {
		t.Fatalf("progress mismatch: %+v", p)
	}
	if p.Raised.Cmp(big.NewInt(1_200_000)) != 0 {
		t.Fatalf("raised mismatch: %s", p.Raised)
	}
}

func TestNormalizeScheduleNamed(t *testing.T) {
	s, err := NormalizeSchedule(map[string]interface{}{
		"allowedNow": big.NewInt(300_000),
		"nextAt":     big.NewInt(0),
		"remaining":  big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if s.AllowedNow.Cmp(big.NewInt(300_000)) != 0 || s.NextAt != 0 || s.Remaining.Sign() != 0 {
		t.Fatalf("schedule mismatch: %+v", s)
	}
}

func TestTupleFallbackChain(t *testing.T) {
	// Named value wins over the positional slot.
	mixed := Tuple{named: map[string]interface{}{"title": "named"}}
	if got := mixed.Field("title", 0); got != "named" {
		t.Fatalf("named field not preferred: %v", got)
	}

	positional := NewTuple([]interface{}{"positional"})
	if got := positional.Field("title", 0); got != "positional" {
		t.Fatalf("positional fallback broken: %v", got)
	}
	if got := positional.Field("missing", 5); got != nil {
		t.Fatalf("out-of-range index must yield nil, got %v", got)
	}
}

func TestFundraiserTypeFlexible(t *testing.T) {
	values := positionalDetails()
	values[4] = uint8(model.FundraiserFlexible)
	c, err := NormalizeCampaign(2, values)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !c.IsFlexible() {
		t.Fatalf("flexible type not detected")
	}

	// Zero goal is flexible regardless of declared type.
	values = positionalDetails()
	values[7] = big.NewInt(0)
	c, err = NormalizeCampaign(2, values)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !c.IsFlexible() {
		t.Fatalf("zero-goal campaign must be flexible")
	}
}
