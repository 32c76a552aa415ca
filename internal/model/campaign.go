package model

import "math/big"

// FundraiserType distinguishes fixed-goal from flexible campaigns.
type FundraiserType uint8

const (
	FundraiserFixedGoal FundraiserType = iota
	FundraiserFlexible
)

// CampaignStatus mirrors the contract-defined lifecycle values.
type CampaignStatus uint8

const (
	StatusActive CampaignStatus = iota
	StatusCompleted
	StatusFailed
	StatusSuspended
)

// Campaign is the normalized on-chain record of one fundraiser.
type Campaign struct {
	ID             uint64         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Location       string         `json:"location"`
	EndDate        uint64         `json:"end_date"`
	FundraiserType FundraiserType `json:"fundraiser_type"`
	Status         CampaignStatus `json:"status"`
	Token          string         `json:"token"`
	GoalAmount     *big.Int       `json:"goal_amount"`
	RaisedAmount   *big.Int       `json:"raised_amount"`
	Creator        string         `json:"creator"`
}

// IsFlexible reports whether funds are withdrawable incrementally.
func (c Campaign) IsFlexible() bool {
	if c.FundraiserType == FundraiserFlexible {
		return true
	}
	return c.GoalAmount != nil && c.GoalAmount.Sign() == 0
}

// Progress is the live progress read for one campaign.
type Progress struct {
	CampaignID  uint64   `json:"campaign_id"`
	Raised      *big.Int `json:"raised"`
	Goal        *big.Int `json:"goal"`
	Percentage  uint64   `json:"percentage"`
	DonorsCount uint64   `json:"donors_count"`
	TimeLeft    uint64   `json:"time_left"`
}

// Metadata is the off-chain enrichment overlay for a campaign. It is never
// authoritative for financial fields.
type Metadata struct {
	CampaignID  uint64 `json:"campaign_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Location    string `json:"location"`
	Creator     string `json:"creator"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
