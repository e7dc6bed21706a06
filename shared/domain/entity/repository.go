package entity

import "time"

// Repository tracks when a repository root was last swept.
type Repository struct {
	URL           string     `db:"url" bson:"url"`
	LastCheckedAt *time.Time `db:"last_checked_at" bson:"lastCheckedAt,omitempty"`
	LastUpdatedAt *time.Time `db:"last_updated_at" bson:"lastUpdatedAt,omitempty"`
}

// IsFresh reports whether the repository was checked less than minInterval
// before now. A repository that was never checked is never fresh.
func (r *Repository) IsFresh(now time.Time, minInterval time.Duration) bool {
	if r == nil || r.LastCheckedAt == nil || minInterval <= 0 {
		return false
	}
	return now.Sub(*r.LastCheckedAt) < minInterval
}
