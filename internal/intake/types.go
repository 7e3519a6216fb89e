package intake

import "time"

// Pending import statuses. Transitions are forward-only:
// received -> processing -> committed | failed.
const (
	StatusReceived   = "received"
	StatusProcessing = "processing"
	StatusCommitted  = "committed"
	StatusFailed     = "failed"
)

// PendingLeadImport is the item stored in the lead imports DynamoDB table.
// RawData is kept exactly as received; the queue never parses it.
type PendingLeadImport struct {
	ImportID  string    `dynamodbav:"import_id" json:"import_id"` // PK
	RawData   string    `dynamodbav:"raw_data" json:"raw_data"`
	Source    string    `dynamodbav:"source,omitempty" json:"source,omitempty"` // free-text origin tag, e.g. "make.com"
	Status    string    `dynamodbav:"status" json:"status"`                     // received | processing | committed | failed
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at" json:"updated_at"`
	Note      string    `dynamodbav:"note,omitempty" json:"note,omitempty"` // diagnostic, set on failure transitions
}

// IntakeNotification is the message published to SQS after a successful
// enqueue so a consumer can pick the record up.
type IntakeNotification struct {
	ImportID string `json:"import_id"`
	Source   string `json:"source,omitempty"`
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCommitted || status == StatusFailed
}
