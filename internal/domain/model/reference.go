package model

import (
	"encoding/json"
	"strings"

	"karaoke-subscription/internal/domain"
)

// ExternalReference is the decoded correlation payload attached to a payment
// at creation time. It is produced once by the checkout flow and consumed
// exactly once by the reconciler.
type ExternalReference struct {
	OrderID   string `json:"orderId"`
	AccountID string `json:"accountId"`
	Plan      string `json:"plan"`
	Email     string `json:"email,omitempty"`
}

// DecodeExternalReference decodes every historical encoding of the
// correlation reference. Formats are tried in priority order:
//
//  1. canonical JSON object: {"orderId":...,"accountId":...,"plan":...}
//  2. legacy delimited form: <orderId>_<accountId>_<plan>
//
// Both encodings of the same logical reference decode to the same output.
// AccountID and Plan must be non-empty; anything else is a decode failure
// the caller classifies, never a fault that aborts the pipeline. The codec
// only extracts what is literally present; validating the plan against the
// catalog is the reconciler's job.
func DecodeExternalReference(raw string) (*ExternalReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrDecodeReference
	}

	if strings.HasPrefix(raw, "{") {
		// A malformed or incomplete JSON object never falls through to the
		// delimited parser: underscores inside JSON would mis-split.
		var ref ExternalReference
		if err := json.Unmarshal([]byte(raw), &ref); err != nil {
			return nil, domain.ErrDecodeReference
		}
		if ref.AccountID == "" || ref.Plan == "" {
			return nil, domain.ErrDecodeReference
		}
		return &ref, nil
	}

	if parts := strings.Split(raw, "_"); len(parts) == 3 && parts[1] != "" && parts[2] != "" {
		return &ExternalReference{OrderID: parts[0], AccountID: parts[1], Plan: parts[2]}, nil
	}
	return nil, domain.ErrDecodeReference
}

// Encode serializes the canonical form used for newly created payments.
func (r *ExternalReference) Encode() string {
	b, _ := json.Marshal(r)
	return string(b)
}
