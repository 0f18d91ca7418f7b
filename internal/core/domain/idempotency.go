package domain

import "time"

// IdempotencyEntry is the cached outcome of a submission, replayed when the
// same token is presented again.
type IdempotencyEntry struct {
	Key           string        `json:"key"`
	Record        PaymentRecord `json:"record"`
	DroppedFields []string      `json:"dropped_fields,omitempty"`
	StoredAt      time.Time     `json:"stored_at"`
}
