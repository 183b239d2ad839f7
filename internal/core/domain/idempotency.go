package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog caches the outcome of a logical operation so a retried
// client request returns the original transaction instead of re-debiting.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "scope:wallet_id:client_key"
	TransactionID uuid.UUID `json:"transaction_id"`
	ResponseJSON  []byte    `json:"response_json"` // Cached response to return
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey constructs the standard key format for a
// wallet-scoped operation with a client-supplied key.
func BuildIdempotencyKey(scope string, walletID uuid.UUID, clientKey string) string {
	return scope + ":" + walletID.String() + ":" + clientKey
}

// BuildSubjectIdempotencyKey constructs the key for subject-scoped
// operations (settlements and holds keyed per booking/order).
func BuildSubjectIdempotencyKey(scope string, kind SubjectKind, subjectID uuid.UUID, clientKey string) string {
	return scope + ":" + string(kind) + ":" + subjectID.String() + ":" + clientKey
}
