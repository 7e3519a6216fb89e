package quotes

import (
	"encoding/json"
	"time"
)

// QuoteRequest is the record persisted after a successful marketplace
// submission. Written once, never mutated; retention is not this
// service's concern.
type QuoteRequest struct {
	QuoteRequestID string    `dynamodbav:"quote_request_id"` // PK, marketplace-assigned correlation id
	Payload        string    `dynamodbav:"payload"`          // submitted body, verbatim
	SubmittedAt    time.Time `dynamodbav:"submitted_at"`
}

// QuoteReplySet is the marketplace's current view of replies for one
// correlation id at the time of the fetch. It is never persisted here;
// replies may accumulate between calls.
type QuoteReplySet struct {
	CorrelationID string
	Replies       []json.RawMessage
	Raw           json.RawMessage
}
