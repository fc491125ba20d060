package verify

import (
	"context"
	"time"

	"herbledger/internal/ledger"
	"herbledger/internal/token"
	"herbledger/pkg/domain"
)

// Result is the consumer-facing verification outcome: batch identity,
// authenticity verdict, and pattern risk in one payload. A Result is
// produced for every decodable token, including tampered or unknown
// batches; only undecodable input yields an error.
type Result struct {
	Valid        bool               `json:"valid"`
	BatchID      string             `json:"batch_id"`
	ProducerID   string             `json:"producer_id,omitempty"`
	HerbType     string             `json:"herb_type,omitempty"`
	BatchStatus  domain.BatchStatus `json:"batch_status,omitempty"`
	Authenticity Assessment         `json:"authenticity"`
	LastVerified time.Time          `json:"last_verified"`
}

// Verifier ties the token codec, the ledger, and the scorer into the
// single entry point behind scanned codes.
type Verifier struct {
	ledger *ledger.Service
	codec  *token.Codec
	scorer *Scorer
	nowFn  func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithCodec replaces the default token codec.
func WithCodec(codec *token.Codec) VerifierOption {
	return func(v *Verifier) {
		if codec != nil {
			v.codec = codec
		}
	}
}

// WithScorer replaces the default scorer.
func WithScorer(scorer *Scorer) VerifierOption {
	return func(v *Verifier) {
		if scorer != nil {
			v.scorer = scorer
		}
	}
}

// WithVerifierNowFunc injects the clock. Intended for deterministic tests.
func WithVerifierNowFunc(fn func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if fn != nil {
			v.nowFn = fn
		}
	}
}

// NewVerifier constructs a verifier over the given ledger service.
func NewVerifier(svc *ledger.Service, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		ledger: svc,
		codec:  token.NewCodec(),
		scorer: NewScorer(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify decodes an opaque token, loads the referenced batch, fills the
// producer's recent batch window when the caller supplied none, and scores
// authenticity. Unknown batches produce an invalid Result, not an error.
func (v *Verifier) Verify(ctx context.Context, opaque string, signals Signals) (Result, error) {
	tok, err := v.codec.Decode(opaque)
	if err != nil {
		return Result{}, err
	}

	res := Result{BatchID: tok.BatchID, LastVerified: v.nowFn()}

	batch, err := v.ledger.ReadBatch(ctx, tok.BatchID)
	if err != nil {
		if domain.IsNotFound(err) {
			res.Authenticity = NotFoundAssessment()
			return res, nil
		}
		return Result{}, err
	}

	if signals.RecentBatchWindow == nil {
		window, err := v.ledger.BatchesByProducer(ctx, batch.ProducerID)
		if err != nil {
			return Result{}, err
		}
		signals.RecentBatchWindow = window
	}

	assessment, err := v.scorer.Score(tok, batch, signals)
	if err != nil {
		return Result{}, err
	}

	res.Valid = assessment.Status == StatusVerified
	res.ProducerID = batch.ProducerID
	res.HerbType = batch.HerbType
	res.BatchStatus = batch.Status
	res.Authenticity = assessment
	return res, nil
}
