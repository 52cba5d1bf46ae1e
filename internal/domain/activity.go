package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// MaxActivityDetails bounds the stored details text.
const MaxActivityDetails = 512

// ActivityLog is one audit trail record.
type ActivityLog struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	UserName   *string   `json:"user_name"`
	Action     string    `json:"action"`
	EntityType *string   `json:"entity_type"`
	EntityID   *int64    `json:"entity_id"`
	Details    *string   `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityFilter narrows an activity listing. Start and End are calendar
// dates; End is applied as created_at < End + 1 day.
type ActivityFilter struct {
	Range      DateRange
	EntityType string
	UserID     *int64
	Limit      int
}

// Matches reports whether a record created at ts passes the date window.
func (f ActivityFilter) Matches(ts time.Time) bool {
	return f.Range.ListWindow(civil.DateOf(ts))
}
