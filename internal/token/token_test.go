package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"herbledger/internal/integrity"
	"herbledger/pkg/domain"
)

func sampleBatch() domain.Batch {
	return domain.Batch{
		BatchID:     "batch-1",
		ProducerID:  "farmer-1",
		HerbType:    "tulsi",
		Quantity:    50,
		HarvestDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusHarvested,
		CreatedAt:   time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestIssueBindsCurrentHash(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(WithNowFunc(func() time.Time { return issued }))

	batch := sampleBatch()
	tok, err := codec.Issue(batch)
	require.NoError(t, err)

	digest, err := integrity.BatchDigest(batch)
	require.NoError(t, err)

	assert.Equal(t, batch.BatchID, tok.BatchID)
	assert.Equal(t, digest, tok.IntegrityHash)
	assert.Equal(t, issued, tok.IssuedAt)
	assert.Equal(t, issued.Add(DefaultTTL), tok.ExpiresAt)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	tok, err := codec.Issue(sampleBatch())
	require.NoError(t, err)

	opaque, err := codec.Encode(tok)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(opaque, "hlt1."))

	decoded, err := codec.Decode(opaque)
	require.NoError(t, err)
	assert.Equal(t, tok.BatchID, decoded.BatchID)
	assert.Equal(t, tok.IntegrityHash, decoded.IntegrityHash)
	assert.True(t, tok.IssuedAt.Equal(decoded.IssuedAt))
	assert.True(t, tok.ExpiresAt.Equal(decoded.ExpiresAt))
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	codec := NewCodec()

	valid := func() string {
		tok, err := codec.Issue(sampleBatch())
		require.NoError(t, err)
		opaque, err := codec.Encode(tok)
		require.NoError(t, err)
		return opaque
	}()

	cases := map[string]string{
		"empty input":       "",
		"missing prefix":    strings.TrimPrefix(valid, "hlt1."),
		"wrong prefix":      "hlt9." + strings.TrimPrefix(valid, "hlt1."),
		"broken base64":     "hlt1.%%%not-base64%%%",
		"non-json payload":  "hlt1." + base64.RawURLEncoding.EncodeToString([]byte("garbage")),
		"empty json object": "hlt1." + base64.RawURLEncoding.EncodeToString([]byte(`{}`)),
		"missing hash":      "hlt1." + base64.RawURLEncoding.EncodeToString([]byte(`{"batch_id":"b1"}`)),
		"missing window":    "hlt1." + base64.RawURLEncoding.EncodeToString([]byte(`{"batch_id":"b1","integrity_hash":"ab"}`)),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode(input)
			require.Error(t, err)
			assert.True(t, domain.IsDecode(err), "want DecodeError, got %T", err)
		})
	}
}

func TestExpired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	codec := NewCodec(WithTTL(time.Hour), WithNowFunc(func() time.Time { return now }))

	tok, err := codec.Issue(sampleBatch())
	require.NoError(t, err)
	assert.False(t, codec.Expired(tok))

	now = issued.Add(2 * time.Hour)
	assert.True(t, codec.Expired(tok))
}

func TestWithTTLOverridesDefault(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := NewCodec(WithTTL(30*24*time.Hour), WithNowFunc(func() time.Time { return issued }))

	tok, err := codec.Issue(sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, issued.Add(30*24*time.Hour), tok.ExpiresAt)
}
