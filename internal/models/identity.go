package models

import "time"

// AdvocateIdentity is the logged-in advocate as seen on the portal.
type AdvocateIdentity struct {
	KhcID     *string   `json:"khc_id"`
	Name      string    `json:"name"`
	ScrapedAt time.Time `json:"scraped_at"`
	PageURL   string    `json:"page_url"`
	UserAgent string    `json:"user_agent"`
}

// MinNameLength is the shortest advocate name accepted.
const MinNameLength = 2
