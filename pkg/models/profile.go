package models

import "time"

// OwnerProfile represents the published identity of an account
type OwnerProfile struct {
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Subdomain   *string   `json:"subdomain,omitempty" db:"subdomain"`
	VideoLimit  int       `json:"video_limit" db:"video_limit"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SubdomainValue returns the subdomain or an empty string when unset
func (p *OwnerProfile) SubdomainValue() string {
	if p == nil || p.Subdomain == nil {
		return ""
	}
	return *p.Subdomain
}

// DefaultVideoLimit matches the free plan
const DefaultVideoLimit = 10

// Gallery is the public view of a tenant: profile header plus visible videos in display order
type Gallery struct {
	Profile *OwnerProfile `json:"profile"`
	Videos  []*VideoEntry `json:"videos"`
}
