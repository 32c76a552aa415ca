package model

import "math/big"

// DisbursementAction identifies which payout flow is being evaluated.
type DisbursementAction string

const (
	ActionRefund   DisbursementAction = "refund"
	ActionWithdraw DisbursementAction = "withdraw"
)

// Schedule is the result of dry-running a scheduled disbursement call.
type Schedule struct {
	AllowedNow *big.Int `json:"allowed_now"`
	NextAt     uint64   `json:"next_at"`
	Remaining  *big.Int `json:"remaining"`
}

// Eligibility is a point-in-time eligibility snapshot for one
// (campaign, account, action). It must be recomputed before every
// state-changing action; on-chain windows advance independently.
type Eligibility struct {
	CampaignID  uint64             `json:"campaign_id"`
	Account     string             `json:"account"`
	Action      DisbursementAction `json:"action"`
	AllowedNow  *big.Int           `json:"allowed_now"`
	NextAt      uint64             `json:"next_at"`
	Remaining   *big.Int           `json:"remaining"`
	ExpectedNet *big.Int           `json:"expected_net,omitempty"`
	Reason      string             `json:"reason,omitempty"`
}

// RateLimitStatus is the security module's diagnostic read.
type RateLimitStatus struct {
	WithinLimit    bool   `json:"within_limit"`
	RemainingCalls uint64 `json:"remaining_calls"`
	WindowReset    uint64 `json:"window_reset"`
}
