package domain

import "time"

// Timestamps records when a catalog or registry entity was created and last changed.
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Touch sets UpdatedAt to now.
// Call this whenever the underlying entity changes.
func (t *Timestamps) Touch(now time.Time) {
	t.UpdatedAt = now
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (t *Timestamps) InitTimestamps(now time.Time) {
	t.CreatedAt = now
	t.UpdatedAt = now
}
