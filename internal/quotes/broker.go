package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrCredentialMissing means the broker has no marketplace token. Fatal
// for the request; an operator must fix the environment.
var ErrCredentialMissing = errors.New("marketplace credential missing")

// ErrMarketplaceUnavailable wraps a network-level failure. Retryable, but
// a cancelled or timed-out submit is an unknown outcome: the caller must
// verify with the marketplace before resubmitting.
var ErrMarketplaceUnavailable = errors.New("marketplace unavailable")

// ErrInvalidCorrelationID means the marketplace has no record of the id.
// Distinct from an empty reply set, which is a valid non-error outcome.
var ErrInvalidCorrelationID = errors.New("invalid correlation id")

// MarketplaceError is a response the marketplace processed and refused.
// Status and body are carried verbatim; not retryable without changing
// the payload.
type MarketplaceError struct {
	StatusCode int
	Body       string
}

func (e *MarketplaceError) Error() string {
	return fmt.Sprintf("marketplace rejected: status %d: %s", e.StatusCode, e.Body)
}

// Broker implements the two-phase protocol against the quote marketplace:
// submit a request (phase one, yields a correlation id) and, at arbitrary
// later times, fetch whatever replies have accumulated for that id
// (phase two). The phases never share a network round trip.
type Broker struct {
	baseURL    string
	token      string
	httpClient *http.Client
	store      *RequestStore // optional submission bookkeeping
}

// NewBroker constructs a Broker. store may be nil to skip persisting
// submitted requests.
func NewBroker(baseURL, token string, store *RequestStore) *Broker {
	return &Broker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		store:   store,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SubmitReceipt is phase one's outcome: the correlation id that keys all
// later reply fetches, plus the marketplace's raw response for callers
// that need the untyped rest.
type SubmitReceipt struct {
	CorrelationID string
	Raw           json.RawMessage
}

// SubmitRequest posts the structured quote request and returns the
// marketplace-assigned correlation id. It never waits for replies.
func (b *Broker) SubmitRequest(ctx context.Context, payload json.RawMessage) (*SubmitReceipt, error) {
	if b.token == "" {
		return nil, ErrCredentialMissing
	}

	status, respBytes, err := b.post(ctx, "/api/trip-requests", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &MarketplaceError{StatusCode: status, Body: string(respBytes)}
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode marketplace response: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("marketplace response missing id: %s", string(respBytes))
	}

	if b.store != nil {
		// the marketplace already accepted; bookkeeping failure must not
		// turn a successful submission into an error
		if err := b.store.Record(ctx, QuoteRequest{
			QuoteRequestID: resp.ID,
			Payload:        string(payload),
			SubmittedAt:    time.Now().UTC(),
		}); err != nil {
			log.Printf("quotes: record submission %s failed: %v", resp.ID, err)
		}
	}

	return &SubmitReceipt{CorrelationID: resp.ID, Raw: json.RawMessage(respBytes)}, nil
}

// replySearchResponse is the normalized subset of the reply-listing
// response. Each reply stays an opaque blob.
type replySearchResponse struct {
	Quotes []json.RawMessage `json:"quotes"`
}

// FetchReplies returns the replies accumulated for correlationID so far.
// Zero replies is a valid outcome; an id the marketplace has never seen
// is ErrInvalidCorrelationID. Safe to call any number of times.
func (b *Broker) FetchReplies(ctx context.Context, correlationID string) (*QuoteReplySet, error) {
	if strings.TrimSpace(correlationID) == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidCorrelationID)
	}

	reqBody, err := json.Marshal(map[string]string{"trip_request_id": correlationID})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	status, respBytes, err := b.post(ctx, "/api/quotes/search", reqBody)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCorrelationID, correlationID)
	}
	if status < 200 || status >= 300 {
		return nil, &MarketplaceError{StatusCode: status, Body: string(respBytes)}
	}

	var resp replySearchResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode marketplace response: %w", err)
	}

	return &QuoteReplySet{
		CorrelationID: correlationID,
		Replies:       resp.Quotes,
		Raw:           json.RawMessage(respBytes),
	}, nil
}

func (b *Broker) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMarketplaceUnavailable, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrMarketplaceUnavailable, err)
	}
	return resp.StatusCode, respBytes, nil
}
