package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"outreach_backend/internal/outreach/domain"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, campaign_id, phone, name, custom_fields, status, last_interaction`

// LeadUpdate is the outcome of a conversation turn for one lead.
// A nil LastInteraction leaves the stored timestamp untouched.
type LeadUpdate struct {
	Status          domain.LeadStatus
	LastInteraction *time.Time
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		lead      domain.Lead
		status    string
		customRaw []byte
	)
	if err := row.Scan(&lead.ID, &lead.CampaignID, &lead.Phone, &lead.Name, &customRaw, &status, &lead.LastInteraction); err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.LeadStatus(status)
	if len(customRaw) > 0 {
		if err := json.Unmarshal(customRaw, &lead.CustomFields); err != nil {
			return domain.Lead{}, fmt.Errorf("decode custom_fields for lead %s: %w", lead.ID, err)
		}
	}
	return lead, nil
}

// ListActiveLeads returns in-flight leads of a campaign, least recently touched first
// (never touched leads lead the list).
func (r *Repository) ListActiveLeads(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE campaign_id = $1 AND status = ANY($2)
		ORDER BY last_interaction ASC NULLS FIRST, created_at ASC
		LIMIT $3
	`, campaignID, domain.SelectableStatuses(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}

// GetLead loads one lead.
func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// GetLeadStatus reads the current status straight from the table.
func (r *Repository) GetLeadStatus(ctx context.Context, id uuid.UUID) (domain.LeadStatus, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM leads WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.LeadStatus(status), nil
}

// UpdateLead commits a turn outcome. Leads under manual intervention are never
// overwritten; the returned bool is false when the guard kept the row as is.
func (r *Repository) UpdateLead(ctx context.Context, id uuid.UUID, update LeadUpdate) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2,
			last_interaction = COALESCE($3, last_interaction),
			updated_at = now()
		WHERE id = $1 AND status <> $4
	`, id, string(update.Status), update.LastInteraction, string(domain.LeadManualIntervention))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindPendingLeadByPhone finds the oldest pending lead of the campaign whose
// phone canonicalises to digits. Stored phones may be national or international;
// rows are shortlisted by their trailing digits and compared in canonical form.
func (r *Repository) FindPendingLeadByPhone(ctx context.Context, campaignID uuid.UUID, digits string) (domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE campaign_id = $1
			AND status = $2
			AND right(regexp_replace(phone, '\D', '', 'g'), $4) = $3
		ORDER BY created_at ASC
	`, campaignID, string(domain.LeadPending), phone.Suffix(digits), phone.MatchSuffixLen)
	if err != nil {
		return domain.Lead{}, err
	}
	defer rows.Close()

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return domain.Lead{}, err
		}
		if phone.SameNumber(lead.Phone, digits, r.region, r.countryCode) {
			return lead, nil
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Lead{}, err
	}
	return domain.Lead{}, ErrNotFound
}

// CountLeadsTouchedSince counts leads of a campaign with an interaction at or after since.
func (r *Repository) CountLeadsTouchedSince(ctx context.Context, campaignID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM leads
		WHERE campaign_id = $1 AND last_interaction >= $2
	`, campaignID, since).Scan(&count)
	return count, err
}

// SetManualIntervention hands a lead to a human operator.
func (r *Repository) SetManualIntervention(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now() WHERE id = $1
	`, id, string(domain.LeadManualIntervention))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseManualIntervention gives a taken-over lead back to automation.
// It returns ErrNotFound when the lead is missing or not under manual intervention.
func (r *Repository) ReleaseManualIntervention(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, id, string(domain.LeadContacted), string(domain.LeadManualIntervention))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRespondedByPhone moves contacted leads reached through session to responded
// once the contact replies. digits are the international digits of the gateway
// chat. Returns the number of leads moved.
func (r *Repository) MarkRespondedByPhone(ctx context.Context, session, digits string) (int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.phone
		FROM leads l
		JOIN campaigns c ON c.id = l.campaign_id
		WHERE c.session_name = $1
			AND l.status = $2
			AND right(regexp_replace(l.phone, '\D', '', 'g'), $4) = $3
	`, session, string(domain.LeadContacted), phone.Suffix(digits), phone.MatchSuffixLen)
	if err != nil {
		return 0, err
	}

	var ids []uuid.UUID
	for rows.Next() {
		var (
			id     uuid.UUID
			stored string
		)
		if err := rows.Scan(&id, &stored); err != nil {
			rows.Close()
			return 0, err
		}
		if phone.SameNumber(stored, digits, r.region, r.countryCode) {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2, updated_at = now()
		WHERE id = ANY($1) AND status = $3
	`, ids, string(domain.LeadResponded), string(domain.LeadContacted))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
