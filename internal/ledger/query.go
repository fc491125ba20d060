package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"herbledger/pkg/domain"
)

// storeView adapts the record store to the read-only view rules evaluate
// against. It reflects committed state only; the change under evaluation is
// passed to rules separately.
type storeView struct {
	ctx   context.Context
	store domain.RecordStore
}

func (s *Service) ruleView(ctx context.Context) domain.RuleView {
	return storeView{ctx: ctx, store: s.store}
}

func (v storeView) ListBatches() []domain.Batch {
	var out []domain.Batch
	_ = v.store.View(v.ctx, func(_ string, value json.RawMessage) error {
		b, err := unmarshalBatch(value)
		if err != nil {
			return nil
		}
		out = append(out, b)
		return nil
	})
	return out
}

func (v storeView) FindBatch(id string) (domain.Batch, bool) {
	raw, err := v.store.Get(v.ctx, id)
	if err != nil {
		return domain.Batch{}, false
	}
	b, err := unmarshalBatch(raw)
	if err != nil {
		return domain.Batch{}, false
	}
	return b, true
}

// Query selects batches by field equality. Zero-valued selectors match
// everything; non-zero selectors are combined with AND.
type Query struct {
	ProducerID string
	HerbType   string
	Status     domain.BatchStatus
	// Offset and Limit paginate the sorted result. Limit <= 0 means no cap.
	Offset int
	Limit  int
}

func (q Query) matches(b domain.Batch) bool {
	if q.ProducerID != "" && b.ProducerID != q.ProducerID {
		return false
	}
	if q.HerbType != "" && b.HerbType != q.HerbType {
		return false
	}
	if q.Status != "" && b.Status != q.Status {
		return false
	}
	return true
}

// QueryBatches scans committed batches matching q, newest first. Ties on
// creation time break on batch id so pagination stays stable.
func (s *Service) QueryBatches(ctx context.Context, q Query) ([]domain.Batch, error) {
	start := time.Now()
	batches, err := s.queryBatches(ctx, q)
	s.observe("query_batches", start, err)
	return batches, err
}

func (s *Service) queryBatches(ctx context.Context, q Query) ([]domain.Batch, error) {
	if q.Status != "" && !domain.ValidStatus(q.Status) {
		return nil, domain.ValidationError{Field: "status", Reason: "unknown status " + string(q.Status)}
	}
	var out []domain.Batch
	err := s.store.View(ctx, func(_ string, value json.RawMessage) error {
		b, err := unmarshalBatch(value)
		if err != nil {
			return err
		}
		if q.matches(b) {
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].BatchID < out[j].BatchID
	})
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []domain.Batch{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []domain.Batch{}
	}
	return out, nil
}

// BatchesByProducer returns all batches registered by a producer, newest
// first.
func (s *Service) BatchesByProducer(ctx context.Context, producerID string) ([]domain.Batch, error) {
	if producerID == "" {
		return nil, domain.ValidationError{Field: "producer_id", Reason: "must not be empty"}
	}
	return s.QueryBatches(ctx, Query{ProducerID: producerID})
}

// BatchesByHerbType returns all batches of one herb type, newest first.
func (s *Service) BatchesByHerbType(ctx context.Context, herbType string) ([]domain.Batch, error) {
	if herbType == "" {
		return nil, domain.ValidationError{Field: "herb_type", Reason: "must not be empty"}
	}
	return s.QueryBatches(ctx, Query{HerbType: herbType})
}

// BatchesByStatus returns all batches currently in the given status, newest
// first.
func (s *Service) BatchesByStatus(ctx context.Context, status domain.BatchStatus) ([]domain.Batch, error) {
	if !domain.ValidStatus(status) {
		return nil, domain.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}
	return s.QueryBatches(ctx, Query{Status: status})
}

// AllBatches returns every committed batch, newest first.
func (s *Service) AllBatches(ctx context.Context) ([]domain.Batch, error) {
	return s.QueryBatches(ctx, Query{})
}
