package domain

import "time"

// ClientInfo holds what could be parsed out of a user-agent header.
// A nil field means the attribute was absent or unparseable.
type ClientInfo struct {
	Browser *string `json:"browser"`
	Device  *string `json:"device"`
	OS      *string `json:"os"`
}

// Visit is one immutable redirect event.
type Visit struct {
	ID         int64     `json:"id"`
	LinkID     int64     `json:"link_id"`
	OccurredAt time.Time `json:"occurred_at"`

	// Calendar fields in the recorder's timezone
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
	Hour  int `json:"hour"`

	ClientInfo
}

// NewVisit stamps a visit for linkID at the given instant, decomposing it in loc.
func NewVisit(linkID int64, at time.Time, loc *time.Location, client ClientInfo) *Visit {
	if loc == nil {
		loc = time.Local
	}
	local := at.In(loc)
	return &Visit{
		LinkID:     linkID,
		OccurredAt: at,
		Day:        local.Day(),
		Month:      int(local.Month()),
		Year:       local.Year(),
		Hour:       local.Hour(),
		ClientInfo: client,
	}
}
