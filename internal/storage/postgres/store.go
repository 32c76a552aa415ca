package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fundscope/internal/model"
)

// Store provides Postgres persistence for campaign snapshots, donation
// history, and the metadata overlay.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutCampaignBatch inserts or updates campaign snapshots.
func (s *Store) PutCampaignBatch(ctx context.Context, campaigns []model.Campaign) error {
	if len(campaigns) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range campaigns {
		batch.Queue(`
			INSERT INTO campaigns (
				campaign_id, title, description, location, end_date,
				fundraiser_type, status, token, goal_amount, raised_amount, creator,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (campaign_id)
			DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				location = EXCLUDED.location,
				end_date = EXCLUDED.end_date,
				fundraiser_type = EXCLUDED.fundraiser_type,
				status = EXCLUDED.status,
				token = EXCLUDED.token,
				goal_amount = EXCLUDED.goal_amount,
				raised_amount = EXCLUDED.raised_amount,
				creator = EXCLUDED.creator,
				updated_at = now()
		`,
			int64(c.ID),
			c.Title,
			c.Description,
			c.Location,
			int64(c.EndDate),
			int16(c.FundraiserType),
			int16(c.Status),
			c.Token,
			bigString(c.GoalAmount),
			bigString(c.RaisedAmount),
			c.Creator,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range campaigns {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutDonationBatch appends donation events, ignoring already-seen logs.
func (s *Store) PutDonationBatch(ctx context.Context, events []model.DonationEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO donations (
				campaign_id, donor, token, amount, block_number, tx_hash, log_index, donated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, to_timestamp($8))
			ON CONFLICT (tx_hash, log_index) DO NOTHING
		`,
			int64(e.CampaignID),
			e.Donor,
			e.Token,
			bigString(e.Amount),
			int64(e.BlockNumber),
			e.TxHash,
			int64(e.LogIndex),
			int64(e.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetMetadata loads the overlay row for one campaign.
func (s *Store) GetMetadata(ctx context.Context, campaignID uint64) (model.Metadata, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT campaign_id, title, description, image_url, location, creator,
		       created_at::text, updated_at::text
		FROM campaign_metadata
		WHERE campaign_id = $1
	`, int64(campaignID))

	var meta model.Metadata
	var id int64
	err := row.Scan(&id, &meta.Title, &meta.Description, &meta.ImageURL,
		&meta.Location, &meta.Creator, &meta.CreatedAt, &meta.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Metadata{}, false, nil
		}
		return model.Metadata{}, false, err
	}
	meta.CampaignID = uint64(id)
	return meta, true, nil
}

// PutMetadata inserts or updates the overlay row for one campaign.
func (s *Store) PutMetadata(ctx context.Context, meta model.Metadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO campaign_metadata (
			campaign_id, title, description, image_url, location, creator, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (campaign_id)
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			location = EXCLUDED.location,
			creator = EXCLUDED.creator,
			updated_at = now()
	`,
		int64(meta.CampaignID),
		meta.Title,
		meta.Description,
		meta.ImageURL,
		meta.Location,
		meta.Creator,
	)
	return err
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
