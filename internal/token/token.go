// Package token implements the verification token embedded in scannable
// codes. A token binds a batch id to the batch's integrity hash at issue
// time plus an expiry; it is stateless after issue and carries no secret —
// verification recomputes everything from current ledger state.
package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"herbledger/internal/integrity"
	"herbledger/pkg/domain"
)

// prefix versions the wire form so future codecs can coexist.
const prefix = "hlt1."

// DefaultTTL is the issue-to-expiry window unless the caller overrides it.
const DefaultTTL = 365 * 24 * time.Hour

// Token is the decoded verification payload. Immutable once issued.
type Token struct {
	BatchID       string    `json:"batch_id"`
	IntegrityHash string    `json:"integrity_hash"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Codec issues and (de)serializes verification tokens.
type Codec struct {
	ttl   time.Duration
	nowFn func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithTTL overrides the default issue-to-expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNowFunc injects the clock. Intended for deterministic tests.
func WithNowFunc(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.nowFn = fn
		}
	}
}

// NewCodec constructs a codec with the default one-year TTL.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		ttl:   DefaultTTL,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue binds a token to the batch's current integrity hash.
func (c *Codec) Issue(batch domain.Batch) (Token, error) {
	digest, err := integrity.BatchDigest(batch)
	if err != nil {
		return Token{}, err
	}
	now := c.nowFn()
	return Token{
		BatchID:       batch.BatchID,
		IntegrityHash: digest,
		IssuedAt:      now,
		ExpiresAt:     now.Add(c.ttl),
	}, nil
}

// Encode serializes a token to its opaque string form.
func (c *Codec) Encode(t Token) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses an opaque token string. Adversarial or garbage input yields
// a typed DecodeError, never a panic.
func (c *Codec) Decode(opaque string) (Token, error) {
	if !strings.HasPrefix(opaque, prefix) {
		return Token{}, domain.DecodeError{Reason: "unrecognized token format"}
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(opaque, prefix))
	if err != nil {
		return Token{}, domain.DecodeError{Reason: "malformed base64 payload"}
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, domain.DecodeError{Reason: "malformed token payload"}
	}
	if t.BatchID == "" {
		return Token{}, domain.DecodeError{Reason: "missing batch id"}
	}
	if t.IntegrityHash == "" {
		return Token{}, domain.DecodeError{Reason: "missing integrity hash"}
	}
	if t.IssuedAt.IsZero() || t.ExpiresAt.IsZero() {
		return Token{}, domain.DecodeError{Reason: "missing validity window"}
	}
	return t, nil
}

// Expired reports whether the token's validity window has passed at the
// codec's current clock reading.
func (c *Codec) Expired(t Token) bool {
	return t.ExpiresAt.Before(c.nowFn())
}
