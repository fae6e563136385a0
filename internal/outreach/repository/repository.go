package repository

import (
	"errors"

	"outreach_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("outreach record not found")

// Repository is the Postgres implementation of the campaign, lead and chat stores.
type Repository struct {
	pool        *pgxpool.Pool
	region      string
	countryCode string
}

// New builds a repository. Lead phones are matched against gateway numbers
// after canonicalising them with the region and country code of phones.
func New(pool *pgxpool.Pool, phones config.PhoneConfig) *Repository {
	return &Repository{
		pool:        pool,
		region:      phones.GetPhoneRegion(),
		countryCode: phones.GetDefaultCountryCode(),
	}
}
