// Package ledger implements the batch traceability ledger: registration,
// custody status transitions, append-only sub-records, history retrieval,
// selector queries, and event emission. All state flows through the
// injected record store; the per-key update closure is the serialization
// point for concurrent mutations of the same batch.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"herbledger/internal/integrity"
	"herbledger/pkg/domain"
)

// Service exposes the ledger operations over a record store.
type Service struct {
	store   domain.RecordStore
	engine  *domain.RulesEngine
	sink    domain.EventSink
	metrics MetricsRecorder
	logger  *slog.Logger
	nowFn   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEventSink directs emitted events to sink.
func WithEventSink(sink domain.EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithMetrics installs a metrics recorder for operation timings.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNowFunc injects the clock. Intended for deterministic tests.
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.nowFn = fn
		}
	}
}

// WithRulesEngine replaces the default engine (which carries the built-in
// append-only and quantity rules).
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// NewService constructs a ledger service backed by the supplied store.
func NewService(store domain.RecordStore, opts ...Option) *Service {
	engine := domain.NewRulesEngine()
	engine.Register(AppendOnlyRule())
	engine.Register(QuantityRule())
	s := &Service{
		store:   store,
		engine:  engine,
		sink:    nopSink{},
		metrics: NopMetrics{},
		logger:  slog.Default(),
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying record store.
func (s *Service) Store() domain.RecordStore {
	return s.store
}

// newRecordID builds a collision-resistant sub-record id: a type prefix,
// the current unix millis, and a random suffix.
func (s *Service) newRecordID(prefix string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s_%d_%s", prefix, s.nowFn().UnixMilli(), suffix)
}

// finalize stamps derived metadata and recomputes the integrity hash. Must
// be called on every mutation before the snapshot is committed.
func (s *Service) finalize(b *domain.Batch, actorID string) error {
	b.LastUpdated = s.nowFn()
	b.LastUpdatedBy = actorID
	digest, err := integrity.BatchDigest(*b)
	if err != nil {
		return err
	}
	b.IntegrityHash = digest
	return nil
}

// evaluateRules runs the engine against the proposed change. Blocking
// violations abort the commit; warnings are logged and allowed through.
func (s *Service) evaluateRules(ctx context.Context, change domain.Change) error {
	if s.engine == nil {
		return nil
	}
	res, err := s.engine.Evaluate(ctx, s.ruleView(ctx), []domain.Change{change})
	if err != nil {
		return err
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("ledger rule warning",
				"rule", v.Rule, "batch_id", v.BatchID, "message", v.Message)
		}
	}
	if res.HasBlocking() {
		return domain.RuleViolationError{Result: res}
	}
	return nil
}

func (s *Service) emit(eventType domain.EventType, batchID string, payload map[string]string) {
	s.sink.Publish(domain.Event{
		Type:    eventType,
		BatchID: batchID,
		At:      s.nowFn(),
		Payload: payload,
	})
}

func (s *Service) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(op, time.Since(start), status)
}

func unmarshalBatch(raw json.RawMessage) (domain.Batch, error) {
	var b domain.Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.Batch{}, fmt.Errorf("decode batch record: %w", err)
	}
	return b, nil
}

// RegisterBatch creates a new batch in harvested state. Duplicate ids are
// rejected; no event is emitted unless the commit succeeds.
func (s *Service) RegisterBatch(ctx context.Context, reg Registration) (domain.Batch, error) {
	start := time.Now()
	batch, err := s.registerBatch(ctx, reg)
	s.observe("register_batch", start, err)
	return batch, err
}

// Registration carries the producer-supplied fields for a new batch.
type Registration struct {
	BatchID     string
	ProducerID  string
	HerbType    string
	Quantity    float64
	HarvestDate time.Time
	Location    domain.Location
	ContentRefs []string
}

func (s *Service) registerBatch(ctx context.Context, reg Registration) (domain.Batch, error) {
	if err := validateRegistration(reg); err != nil {
		return domain.Batch{}, err
	}
	now := s.nowFn()
	batch := domain.Batch{
		BatchID:           reg.BatchID,
		ProducerID:        reg.ProducerID,
		HerbType:          reg.HerbType,
		Quantity:          reg.Quantity,
		HarvestDate:       reg.HarvestDate,
		Location:          reg.Location,
		ContentRefs:       append([]string(nil), reg.ContentRefs...),
		Status:            domain.StatusHarvested,
		ProcessingRecords: []domain.ProcessingRecord{},
		ShipmentRecords:   []domain.ShipmentRecord{},
		AuditRecords:      []domain.AuditRecord{},
		CreatedAt:         now,
	}
	if err := s.finalize(&batch, reg.ProducerID); err != nil {
		return domain.Batch{}, err
	}

	_, err := s.store.Update(ctx, batch.BatchID, func(current json.RawMessage) (json.RawMessage, error) {
		if current != nil {
			return nil, domain.AlreadyExistsError{Entity: "batch", ID: batch.BatchID}
		}
		if err := s.evaluateRules(ctx, domain.Change{Action: domain.ActionCreate, After: batch}); err != nil {
			return nil, err
		}
		return json.Marshal(batch)
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.logger.Info("batch registered",
		"batch_id", batch.BatchID, "producer_id", batch.ProducerID, "herb_type", batch.HerbType)
	s.emit(domain.EventBatchRegistered, batch.BatchID, map[string]string{
		"producer_id": batch.ProducerID,
		"herb_type":   batch.HerbType,
	})
	return batch, nil
}

// UpdateStatus advances a batch along the custody chain. Only the immediate
// forward edge is legal here; the audit-rejection rollback happens solely
// through AppendAuditRecord.
func (s *Service) UpdateStatus(ctx context.Context, batchID string, newStatus domain.BatchStatus, actorID string) (domain.Batch, error) {
	start := time.Now()
	batch, err := s.updateStatus(ctx, batchID, newStatus, actorID)
	s.observe("update_status", start, err)
	return batch, err
}

func (s *Service) updateStatus(ctx context.Context, batchID string, newStatus domain.BatchStatus, actorID string) (domain.Batch, error) {
	if batchID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "batch_id", Reason: "must not be empty"}
	}
	if actorID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	if !domain.ValidStatus(newStatus) {
		return domain.Batch{}, domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", newStatus)}
	}

	var updated domain.Batch
	_, err := s.store.Update(ctx, batchID, func(current json.RawMessage) (json.RawMessage, error) {
		if current == nil {
			return nil, domain.NotFoundError{Entity: "batch", ID: batchID}
		}
		cur, err := unmarshalBatch(current)
		if err != nil {
			return nil, err
		}
		if !domain.CanTransition(cur.Status, newStatus) {
			return nil, domain.InvalidTransitionError{BatchID: batchID, From: cur.Status, To: newStatus}
		}
		next := domain.CloneBatch(cur)
		next.Status = newStatus
		if err := s.finalize(&next, actorID); err != nil {
			return nil, err
		}
		if err := s.evaluateRules(ctx, domain.Change{Action: domain.ActionUpdate, Before: cur, After: next}); err != nil {
			return nil, err
		}
		updated = next
		return json.Marshal(next)
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.logger.Info("batch status updated",
		"batch_id", batchID, "new_status", string(newStatus), "actor_id", actorID)
	s.emit(domain.EventBatchStatusUpdated, batchID, map[string]string{
		"new_status": string(newStatus),
		"actor_id":   actorID,
	})
	return updated, nil
}

// ReadBatch returns the latest committed snapshot of a batch.
func (s *Service) ReadBatch(ctx context.Context, batchID string) (domain.Batch, error) {
	raw, err := s.store.Get(ctx, batchID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Batch{}, domain.NotFoundError{Entity: "batch", ID: batchID}
		}
		return domain.Batch{}, err
	}
	return unmarshalBatch(raw)
}

// BatchSnapshot is one historical ledger state of a batch.
type BatchSnapshot struct {
	TxID      string       `json:"tx_id"`
	Timestamp time.Time    `json:"timestamp"`
	Batch     domain.Batch `json:"batch"`
}

// GetHistory returns every committed snapshot of a batch, oldest first.
// Each entry reproduces the exact historical state, not a diff.
func (s *Service) GetHistory(ctx context.Context, batchID string) ([]BatchSnapshot, error) {
	entries, err := s.store.History(ctx, batchID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NotFoundError{Entity: "batch", ID: batchID}
		}
		return nil, err
	}
	out := make([]BatchSnapshot, 0, len(entries))
	for _, entry := range entries {
		b, err := unmarshalBatch(entry.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, BatchSnapshot{TxID: entry.TxID, Timestamp: entry.Timestamp, Batch: b})
	}
	return out, nil
}

// VerificationSummary is the cheap existence check exposed alongside scored
// verification: record counts and whether the stored hash still matches.
type VerificationSummary struct {
	Exists                 bool               `json:"exists"`
	BatchID                string             `json:"batch_id"`
	ProducerID             string             `json:"producer_id,omitempty"`
	HerbType               string             `json:"herb_type,omitempty"`
	Status                 domain.BatchStatus `json:"status,omitempty"`
	IntegrityIntact        bool               `json:"integrity_intact"`
	ProcessingRecordsCount int                `json:"processing_records_count"`
	ShipmentRecordsCount   int                `json:"shipment_records_count"`
	AuditRecordsCount      int                `json:"audit_records_count"`
	VerifiedAt             time.Time          `json:"verified_at"`
}

// Summarize reports batch existence, record counts, and integrity status
// without running the authenticity scorer.
func (s *Service) Summarize(ctx context.Context, batchID string) (VerificationSummary, error) {
	summary := VerificationSummary{BatchID: batchID, VerifiedAt: s.nowFn()}
	batch, err := s.ReadBatch(ctx, batchID)
	if err != nil {
		if domain.IsNotFound(err) {
			return summary, nil
		}
		return VerificationSummary{}, err
	}
	intact, err := integrity.VerifyBatch(batch)
	if err != nil {
		return VerificationSummary{}, err
	}
	summary.Exists = true
	summary.ProducerID = batch.ProducerID
	summary.HerbType = batch.HerbType
	summary.Status = batch.Status
	summary.IntegrityIntact = intact
	summary.ProcessingRecordsCount = len(batch.ProcessingRecords)
	summary.ShipmentRecordsCount = len(batch.ShipmentRecords)
	summary.AuditRecordsCount = len(batch.AuditRecords)
	return summary, nil
}
