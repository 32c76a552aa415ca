package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fundscope/internal/model"
)

// Tuple wraps a loosely-typed contract call result. Depending on the read
// path (direct call vs. batched multicall) the same response surfaces either
// as a named map or a positional slice; Tuple makes both readable through one
// fallback chain so the shape handling lives in exactly one place.
type Tuple struct {
	named map[string]interface{}
	pos   []interface{}
}

// NewTuple accepts a map[string]interface{}, a []interface{}, or a single
// scalar (treated as a one-element positional tuple).
func NewTuple(v interface{}) Tuple {
	switch typed := v.(type) {
	case map[string]interface{}:
		return Tuple{named: typed}
	case []interface{}:
		return Tuple{pos: typed}
	case nil:
		return Tuple{}
	default:
		return Tuple{pos: []interface{}{typed}}
	}
}

// Field resolves name from the named form, falling back to the positional
// index, then to nil.
func (t Tuple) Field(name string, index int) interface{} {
	if t.named != nil {
		if v, ok := t.named[name]; ok {
			return v
		}
	}
	if index >= 0 && index < len(t.pos) {
		return t.pos[index]
	}
	return nil
}

// Len reports how many usable values the tuple carries.
func (t Tuple) Len() int {
	if t.named != nil {
		return len(t.named)
	}
	return len(t.pos)
}

// NormalizeCampaign converts a getDetails result into a Campaign. Field order
// matches the registry ABI output layout.
func NormalizeCampaign(id uint64, v interface{}) (model.Campaign, error) {
	t := NewTuple(v)
	if t.Len() == 0 {
		return model.Campaign{}, fmt.Errorf("empty details tuple for id %d", id)
	}

	creator, err := asAddress(t.Field("creator", 9))
	if err != nil {
		return model.Campaign{}, fmt.Errorf("creator: %w", err)
	}
	token, err := asAddress(t.Field("token", 6))
	if err != nil {
		return model.Campaign{}, fmt.Errorf("token: %w", err)
	}
	goal, err := asBigInt(t.Field("goalAmount", 7))
	if err != nil {
		return model.Campaign{}, fmt.Errorf("goal amount: %w", err)
	}
	raised, err := asBigInt(t.Field("raisedAmount", 8))
	if err != nil {
		return model.Campaign{}, fmt.Errorf("raised amount: %w", err)
	}

	frType, _ := asUint8(t.Field("fundraiserType", 4))
	status, _ := asUint8(t.Field("status", 5))
	endDate, _ := asUint64(t.Field("endDate", 3))

	return model.Campaign{
		ID:             id,
		Title:          asString(t.Field("title", 0)),
		Description:    asString(t.Field("description", 1)),
		Location:       asString(t.Field("location", 2)),
		EndDate:        endDate,
		FundraiserType: model.FundraiserType(frType),
		Status:         model.CampaignStatus(status),
		Token:          token.Hex(),
		GoalAmount:     goal,
		RaisedAmount:   raised,
		Creator:        creator.Hex(),
	}, nil
}

// NormalizeProgress converts a getProgress result into a Progress.
func NormalizeProgress(id uint64, v interface{}) (model.Progress, error) {
	t := NewTuple(v)
	if t.Len() == 0 {
		return model.Progress{}, fmt.Errorf("empty progress tuple for id %d", id)
	}

	raised, err := asBigInt(t.Field("raised", 0))
	if err != nil {
		return model.Progress{}, fmt.Errorf("raised: %w", err)
	}
	goal, err := asBigInt(t.Field("goal", 1))
	if err != nil {
		return model.Progress{}, fmt.Errorf("goal: %w", err)
	}

	percentage, _ := asUint64(t.Field("percentage", 2))
	donors, _ := asUint64(t.Field("donorsCount", 3))
	timeLeft, _ := asUint64(t.Field("timeLeft", 4))

	return model.Progress{
		CampaignID:  id,
		Raised:      raised,
		Goal:        goal,
		Percentage:  percentage,
		DonorsCount: donors,
		TimeLeft:    timeLeft,
	}, nil
}

// NormalizeSchedule converts a schedule simulation result into a Schedule.
func NormalizeSchedule(v interface{}) (model.Schedule, error) {
	t := NewTuple(v)
	if t.Len() == 0 {
		return model.Schedule{}, fmt.Errorf("empty schedule tuple")
	}

	allowed, err := asBigInt(t.Field("allowedNow", 0))
	if err != nil {
		return model.Schedule{}, fmt.Errorf("allowed now: %w", err)
	}
	nextAt, err := asUint64(t.Field("nextAt", 1))
	if err != nil {
		return model.Schedule{}, fmt.Errorf("next at: %w", err)
	}
	remaining, err := asBigInt(t.Field("remaining", 2))
	if err != nil {
		return model.Schedule{}, fmt.Errorf("remaining: %w", err)
	}

	return model.Schedule{AllowedNow: allowed, NextAt: nextAt, Remaining: remaining}, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	case string:
		if common.IsHexAddress(v) {
			return common.HexToAddress(v), nil
		}
		return common.Address{}, fmt.Errorf("invalid address string: %s", v)
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint64(value interface{}) (uint64, error) {
	n, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value does not fit in uint64: %s", n)
	}
	return n.Uint64(), nil
}

func asUint8(value interface{}) (uint8, error) {
	n, err := asUint64(value)
	if err != nil {
		return 0, err
	}
	if n > 255 {
		return 0, fmt.Errorf("value does not fit in uint8: %d", n)
	}
	return uint8(n), nil
}

func asString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func asBool(value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("unsupported bool type %T", value)
}

func asBigIntSlice(value interface{}) ([]*big.Int, error) {
	switch v := value.(type) {
	case []*big.Int:
		out := make([]*big.Int, len(v))
		for i, n := range v {
			out[i] = new(big.Int).Set(n)
		}
		return out, nil
	case []interface{}:
		out := make([]*big.Int, 0, len(v))
		for _, item := range v {
			n, err := asBigInt(item)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported slice type %T", value)
	}
}
