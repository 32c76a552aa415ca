package model

import "math/big"

// DonationSource records which reconciliation path produced an amount.
type DonationSource string

const (
	SourceAggregate DonationSource = "aggregate"
	SourceFallback  DonationSource = "fallback"
)

// Donation is the per-account, per-campaign aggregated donated amount.
type Donation struct {
	CampaignID uint64         `json:"campaign_id"`
	Amount     *big.Int       `json:"amount"`
	Source     DonationSource `json:"source"`
}

// DonationEvent is one historical DonationMade log, enriched with its
// resolved block timestamp.
type DonationEvent struct {
	CampaignID  uint64   `json:"campaign_id"`
	Donor       string   `json:"donor"`
	Token       string   `json:"token"`
	Amount      *big.Int `json:"amount"`
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Timestamp   uint64   `json:"timestamp"`
}
