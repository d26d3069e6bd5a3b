package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which flow a request belongs to.
type Kind string

const (
	KindIssuance   Kind = "issuance"
	KindRedemption Kind = "redemption"
	KindMigration  Kind = "migration"
)

// Resolution carries the outcome detail of a processed request.
type Resolution struct {
	Reason        string
	ApprovedCount *int
}

// Request is a client-side snapshot of a server request. It is always
// replaced as a whole, never patched field by field.
type Request struct {
	ID              string
	Kind            Kind
	SubjectID       string
	RequesterID     string
	Status          Status
	CreatedAt       time.Time
	ExpiresAt       time.Time
	ProcessedAt     time.Time
	Resolution      Resolution
	ClientRequestID string

	StoreName string
	Title     string
	Detail    string
}

// HasExpiry reports whether the request carries a deadline.
func (r Request) HasExpiry() bool {
	return !r.ExpiresAt.IsZero()
}

// NewClientRequestID returns a fresh idempotency token. Generate one per
// logical creation attempt and reuse it on every retry of that attempt.
func NewClientRequestID() string {
	return uuid.NewString()
}
