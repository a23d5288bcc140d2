package domain

import "time"

// Link maps a public slug to a destination URL owned by one account.
type Link struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	OriginalURL string     `json:"original_url"`
	OwnerID     string     `json:"owner_id"`
	TotalVisits int64      `json:"total_visits"` // Denormalized counter, never decremented
	CreatedAt   time.Time  `json:"created_at"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// LinkView is the public projection of a Link. It never carries the
// internal id or the owner.
type LinkView struct {
	Slug        string    `json:"slug"`
	OriginalURL string    `json:"original_url"`
	Visits      int64     `json:"visits"`
	CreatedAt   time.Time `json:"created_at"`
	ShortURL    string    `json:"short_url,omitempty"`
}

// View builds the public projection. baseURL may be empty.
func (l *Link) View(baseURL string) LinkView {
	v := LinkView{
		Slug:        l.Slug,
		OriginalURL: l.OriginalURL,
		Visits:      l.TotalVisits,
		CreatedAt:   l.CreatedAt,
	}
	if baseURL != "" {
		v.ShortURL = baseURL + "/open/" + l.Slug
	}
	return v
}
