package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrInvalidInput is returned before any network call when the field to
// validate is absent or blank.
var ErrInvalidInput = errors.New("invalid input")

// ErrProviderUnavailable wraps a network-level failure reaching the
// verification provider. Retryable by the caller; the validator itself
// never retries.
var ErrProviderUnavailable = errors.New("verification provider unavailable")

// ProviderError is a non-success response from the provider. Status and
// body are surfaced verbatim; validity is unknown, not false.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: status %d: %s", e.StatusCode, e.Body)
}

// Validator performs single-call contact verification against an external
// provider. Stateless: exactly one outbound call per invocation, no retry,
// no cache, no rate limiting.
type Validator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewValidator constructs a Validator for the given provider endpoint.
func NewValidator(baseURL, apiKey string) *Validator {
	return &Validator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ValidateEmail verifies a single email address.
func (v *Validator) ValidateEmail(ctx context.Context, address string) (*ValidationResult, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: empty email", ErrInvalidInput)
	}
	return v.verify(ctx, "/v1/verify/email", map[string]string{"email": address})
}

// ValidatePhone verifies a single phone number.
func (v *Validator) ValidatePhone(ctx context.Context, number string) (*ValidationResult, error) {
	if strings.TrimSpace(number) == "" {
		return nil, fmt.Errorf("%w: empty phone", ErrInvalidInput)
	}
	return v.verify(ctx, "/v1/verify/phone", map[string]string{"phone": number})
}

func (v *Validator) verify(ctx context.Context, path string, payload map[string]string) (*ValidationResult, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	// the verdict is solely the provider's boolean; no regex fallback here
	var verdict struct {
		IsValid *bool `json:"is_valid"`
	}
	if err := json.Unmarshal(respBytes, &verdict); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if verdict.IsValid == nil {
		return nil, fmt.Errorf("provider response missing is_valid: %s", string(respBytes))
	}

	detail := map[string]any{}
	if err := json.Unmarshal(respBytes, &detail); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	delete(detail, "is_valid")

	return &ValidationResult{
		IsValid: *verdict.IsValid,
		Detail:  detail,
		Raw:     json.RawMessage(respBytes),
	}, nil
}
