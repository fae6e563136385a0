package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"outreach_backend/internal/outreach/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const campaignColumns = `
	c.id, c.name, c.status, c.session_name, c.offer_context, c.settings,
	a.id, a.name, a.model, a.temperature, a.system_prompt`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (domain.Campaign, error) {
	var (
		c        domain.Campaign
		status   string
		offerRaw []byte
		setRaw   []byte
	)
	if err := row.Scan(
		&c.ID, &c.Name, &status, &c.SessionName, &offerRaw, &setRaw,
		&c.Agent.ID, &c.Agent.Name, &c.Agent.Model, &c.Agent.Temperature, &c.Agent.SystemPrompt,
	); err != nil {
		return domain.Campaign{}, err
	}

	c.Status = domain.CampaignStatus(status)
	if len(offerRaw) > 0 {
		if err := json.Unmarshal(offerRaw, &c.Offer); err != nil {
			return domain.Campaign{}, fmt.Errorf("decode offer_context for campaign %s: %w", c.ID, err)
		}
	}
	if len(setRaw) > 0 {
		if err := json.Unmarshal(setRaw, &c.Settings); err != nil {
			return domain.Campaign{}, fmt.Errorf("decode settings for campaign %s: %w", c.ID, err)
		}
	}
	return c, nil
}

// ListActiveCampaigns returns active campaigns with their agent, oldest first.
func (r *Repository) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		JOIN agents a ON a.id = c.agent_id
		WHERE c.status = $1
		ORDER BY c.created_at ASC, c.id ASC
	`, string(domain.CampaignActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]domain.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return campaigns, nil
}

// GetCampaign loads one campaign with its agent.
func (r *Repository) GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		JOIN agents a ON a.id = c.agent_id
		WHERE c.id = $1
	`, id)

	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Campaign{}, ErrNotFound
	}
	return c, err
}

// SetCampaignStatus changes the lifecycle status of a campaign.
func (r *Repository) SetCampaignStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
