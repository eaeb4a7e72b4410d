// Package validation provides functionality for validating Linear webhook signatures to verify request authenticity.
package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/isometry/linear-agent-app/internal/controllers/linear/event"
)

// SignatureHeader is the header carrying the hex encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "Linear-Signature"

// DefaultTolerance is the maximum accepted age of a delivery's webhookTimestamp.
const DefaultTolerance = time.Minute

// Reason is a machine readable cause of a verification failure.
type Reason string

const (
	// ReasonMissingSecret is returned when no webhook secret is configured.
	ReasonMissingSecret Reason = "missing-secret"
	// ReasonMissingSignature is returned when the request carries no signature.
	ReasonMissingSignature Reason = "missing-signature"
	// ReasonSignatureMismatch is returned when the signature does not match the body.
	ReasonSignatureMismatch Reason = "signature-mismatch"
	// ReasonMalformedPayload is returned when the authenticated body is not a valid payload.
	ReasonMalformedPayload Reason = "malformed-payload"
	// ReasonStaleTimestamp is returned when the delivery is older than the configured tolerance.
	ReasonStaleTimestamp Reason = "stale-timestamp"
)

// VerificationError describes why a webhook delivery was rejected.
type VerificationError struct {
	Reason Reason
	Cause  error
}

func (e *VerificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return string(e.Reason)
}

func (e *VerificationError) Unwrap() error {
	return e.Cause
}

// WebhookSecret represents a secret used to validate webhook signatures for verifying request authenticity.
type WebhookSecret string

// NewWebhookSecret creates a new WebhookSecret from the provided secret string and returns its address.
// An empty secret yields nil, which fails every verification with ReasonMissingSecret.
func NewWebhookSecret(secret string) *WebhookSecret {
	if secret == "" {
		return nil
	}
	s := WebhookSecret(secret)
	return &s
}

type verifyOptions struct {
	tolerance time.Duration
	now       func() time.Time
}

// Option configures a single verification.
type Option func(*verifyOptions)

// WithTolerance sets the maximum accepted age of a delivery. Zero disables the check.
func WithTolerance(tolerance time.Duration) Option {
	return func(o *verifyOptions) {
		o.tolerance = tolerance
	}
}

// WithClock overrides the clock used for the timestamp check.
func WithClock(now func() time.Time) Option {
	return func(o *verifyOptions) {
		o.now = now
	}
}

// Sign returns the hex encoded HMAC-SHA256 of body under the secret.
func (s *WebhookSecret) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(*s))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates body against signature and decodes it.
// The body is parsed only after the signature matches, so no content is trusted before authentication.
func (s *WebhookSecret) Verify(body []byte, signature string, opts ...Option) (*event.Payload, error) {
	o := verifyOptions{tolerance: DefaultTolerance, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if s == nil || *s == "" {
		return nil, &VerificationError{Reason: ReasonMissingSecret}
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, &VerificationError{Reason: ReasonMissingSignature}
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return nil, &VerificationError{Reason: ReasonSignatureMismatch, Cause: err}
	}
	mac := hmac.New(sha256.New, []byte(*s))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return nil, &VerificationError{Reason: ReasonSignatureMismatch}
	}

	payload, err := event.Parse(body)
	if err != nil {
		return nil, &VerificationError{Reason: ReasonMalformedPayload, Cause: err}
	}

	if o.tolerance > 0 {
		if ts, ok := payload.Timestamp(); ok {
			if age := o.now().Sub(ts); age > o.tolerance || age < -o.tolerance {
				return nil, &VerificationError{
					Reason: ReasonStaleTimestamp,
					Cause:  fmt.Errorf("webhook timestamp is %s away from now", age.Round(time.Second)),
				}
			}
		}
	}

	return payload, nil
}
