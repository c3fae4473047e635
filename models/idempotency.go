package models

import "time"

// IdempotencyKey stores the first successful response for a given request hash.
// Keys are scoped per owner; anonymous callers share the "anonymous" scope.
type IdempotencyKey struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Key            string     `json:"key" gorm:"size:128;not null;uniqueIndex:idx_idempotency_scope_key,priority:2"` // header value
	Scope          string     `json:"scope" gorm:"size:64;not null;uniqueIndex:idx_idempotency_scope_key,priority:1"`
	RequestHash    string     `json:"request_hash" gorm:"size:64"` // sha256 of method|path|body|scope
	Method         string     `json:"method" gorm:"size:10"`
	Path           string     `json:"path" gorm:"size:255"`
	ResponseStatus int        `json:"response_status"` // 0 => not completed yet
	ResponseBody   []byte     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}
