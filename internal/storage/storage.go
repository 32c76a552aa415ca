package storage

import (
	"context"

	"fundscope/internal/model"
)

// Storage defines a sink for catalog snapshots and donation history.
type Storage interface {
	PutCampaignBatch(ctx context.Context, campaigns []model.Campaign) error
	PutDonationBatch(ctx context.Context, events []model.DonationEvent) error
}

// MetadataStore reads and writes the off-chain enrichment overlay.
type MetadataStore interface {
	GetMetadata(ctx context.Context, campaignID uint64) (model.Metadata, bool, error)
	PutMetadata(ctx context.Context, meta model.Metadata) error
}
