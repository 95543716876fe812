package aihint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spendah/spendah-backend/internal/apperrors"
)

// Client calls an external AI hint endpoint for merchant name cleanup and
// category suggestions. The capability is strictly optional: every caller
// has a deterministic fallback and treats any failure here as a skip, never
// as a request failure. Only tokenized values are sent; raw descriptions
// and real dates never leave the process.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a hint client. An empty baseURL produces a disabled
// client whose methods return ErrHintUnavailable immediately.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled reports whether a hint endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// MerchantHintRequest asks for a display name for a tokenized merchant.
type MerchantHintRequest struct {
	Token          string `json:"token"`
	DescriptionLen int    `json:"description_len"`
}

// MerchantHintResponse carries the suggested display name, which may echo
// the token back inside the text.
type MerchantHintResponse struct {
	DisplayName string  `json:"display_name"`
	Confidence  float64 `json:"confidence"`
}

// CategoryHintRequest asks for a spending category for a tokenized
// merchant. Amount is bucketed, not exact, to limit what leaves the system.
type CategoryHintRequest struct {
	Token        string `json:"token"`
	AmountBucket string `json:"amount_bucket"`
}

// CategoryHintResponse carries the suggested category.
type CategoryHintResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// FormatHintRequest asks for column roles given only a header row. Headers
// are generic labels, not user data, so nothing is tokenized here.
type FormatHintRequest struct {
	Headers []string `json:"headers"`
}

// FormatHintResponse carries suggested column roles for a file whose
// heuristic detection came back ambiguous.
type FormatHintResponse struct {
	DateColumn        *int    `json:"date_column,omitempty"`
	AmountColumn      *int    `json:"amount_column,omitempty"`
	DescriptionColumn *int    `json:"description_column,omitempty"`
	DateFormat        string  `json:"date_format,omitempty"`
	Confidence        float64 `json:"confidence"`
}

// SuggestFormat requests column-role hints for an ambiguous header row.
func (c *Client) SuggestFormat(ctx context.Context, req FormatHintRequest) (FormatHintResponse, error) {
	var resp FormatHintResponse
	if err := c.post(ctx, "/v1/hints/format", req, &resp); err != nil {
		return FormatHintResponse{}, err
	}
	return resp, nil
}

// SuggestMerchantName requests a cleaned display name for a merchant token.
func (c *Client) SuggestMerchantName(ctx context.Context, req MerchantHintRequest) (MerchantHintResponse, error) {
	var resp MerchantHintResponse
	if err := c.post(ctx, "/v1/hints/merchant", req, &resp); err != nil {
		return MerchantHintResponse{}, err
	}
	if resp.DisplayName == "" {
		return MerchantHintResponse{}, apperrors.ErrHintUnavailable
	}
	return resp, nil
}

// SuggestCategory requests a spending category for a merchant token.
func (c *Client) SuggestCategory(ctx context.Context, req CategoryHintRequest) (CategoryHintResponse, error) {
	var resp CategoryHintResponse
	if err := c.post(ctx, "/v1/hints/category", req, &resp); err != nil {
		return CategoryHintResponse{}, err
	}
	if resp.Category == "" {
		return CategoryHintResponse{}, apperrors.ErrHintUnavailable
	}
	return resp, nil
}

// AmountBucket coarsens an absolute amount into one of a few ranges.
func AmountBucket(amount float64) string {
	if amount < 0 {
		amount = -amount
	}
	switch {
	case amount < 10:
		return "under_10"
	case amount < 50:
		return "10_50"
	case amount < 200:
		return "50_200"
	case amount < 1000:
		return "200_1000"
	default:
		return "over_1000"
	}
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if !c.Enabled() {
		return apperrors.ErrHintUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrHintUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrHintUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrHintUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: hint endpoint returned %d", apperrors.ErrHintUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrHintUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrHintUnavailable, err)
	}
	return nil
}
