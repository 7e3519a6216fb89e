package validation

// QuoteSubmission is the payload for POST /quotes. Airport fields take
// ICAO or IATA codes; the marketplace does its own resolution, so only
// shape is checked here.
type QuoteSubmission struct {
	Departure     string                 `json:"departure" validate:"required,min=3,max=4,alphanum"`
	Arrival       string                 `json:"arrival" validate:"required,min=3,max=4,alphanum"`
	AircraftType  string                 `json:"aircraftType" validate:"required"` // e.g. "midsize-jet"
	DepartureDate string                 `json:"departureDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ReturnDate    string                 `json:"returnDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Passengers    int                    `json:"passengers,omitempty" validate:"omitempty,min=1"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"` // optional free-form metadata
}

// LeadWebhook is the payload for POST /leads. Payload is the opaque raw
// lead body; it is stored exactly as received.
type LeadWebhook struct {
	Payload string `json:"payload"`
	Source  string `json:"source,omitempty"` // upstream integration name
}

// StatusChange is the payload for POST /leads/:id/status.
type StatusChange struct {
	Status string `json:"status" validate:"required,oneof=received processing committed failed"`
	Note   string `json:"note,omitempty"`
}

// ContactField carries the single field each verification endpoint takes.
type ContactField struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ReplyQuery is the payload for POST /quotes/replies.
type ReplyQuery struct {
	QuoteRequestID string `json:"quote_request_id"`
}
