package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"herbledger/internal/infra/recordstore/memory"
	"herbledger/internal/integrity"
	"herbledger/pkg/domain"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *CollectingSink, *testClock) {
	t.Helper()
	clock := newTestClock()
	sink := NewCollectingSink()
	store := memory.NewStore()
	store.SetNowFunc(clock.Now)
	svc := NewService(store,
		WithEventSink(sink),
		WithNowFunc(clock.Now),
	)
	return svc, sink, clock
}

func validRegistration(id string) Registration {
	return Registration{
		BatchID:     id,
		ProducerID:  "farmer-1",
		HerbType:    "ashwagandha",
		Quantity:    100,
		HarvestDate: time.Date(2026, 2, 20, 6, 0, 0, 0, time.UTC),
		Location:    domain.Location{Latitude: 28.61, Longitude: 77.20},
		ContentRefs: []string{"ref-a"},
	}
}

func TestRegisterBatch(t *testing.T) {
	ctx := context.Background()
	svc, sink, _ := newTestService(t)

	batch, err := svc.RegisterBatch(ctx, validRegistration("b1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if batch.Status != domain.StatusHarvested {
		t.Fatalf("new batch status = %s, want harvested", batch.Status)
	}
	if batch.IntegrityHash == "" {
		t.Fatal("expected integrity hash to be set")
	}
	if len(batch.ProcessingRecords) != 0 || len(batch.ShipmentRecords) != 0 || len(batch.AuditRecords) != 0 {
		t.Fatal("new batch must start with empty record lists")
	}

	got, err := svc.ReadBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	ok, err := integrity.VerifyBatch(got)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("stored hash must match recomputed digest")
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != domain.EventBatchRegistered {
		t.Fatalf("event type = %s, want %s", events[0].Type, domain.EventBatchRegistered)
	}
	if events[0].Payload["producer_id"] != "farmer-1" {
		t.Fatalf("unexpected event payload %v", events[0].Payload)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	ctx := context.Background()
	svc, sink, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	sink.Reset()

	second := validRegistration("b1")
	second.Quantity = 42
	_, err := svc.RegisterBatch(ctx, second)
	if !domain.IsAlreadyExists(err) {
		t.Fatalf("expected AlreadyExistsError, got %v", err)
	}

	got, err := svc.ReadBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Quantity != 100 {
		t.Fatalf("original batch mutated: quantity = %v", got.Quantity)
	}
	if len(sink.Events()) != 0 {
		t.Fatal("failed registration must not emit events")
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, sink, _ := newTestService(t)

	cases := map[string]func(*Registration){
		"empty batch id":     func(r *Registration) { r.BatchID = "" },
		"empty producer":     func(r *Registration) { r.ProducerID = "" },
		"empty herb type":    func(r *Registration) { r.HerbType = "" },
		"zero quantity":      func(r *Registration) { r.Quantity = 0 },
		"negative quantity":  func(r *Registration) { r.Quantity = -5 },
		"zero harvest date":  func(r *Registration) { r.HarvestDate = time.Time{} },
		"latitude overflow":  func(r *Registration) { r.Location.Latitude = 91 },
		"longitude overflow": func(r *Registration) { r.Location.Longitude = -181 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			reg := validRegistration("bad")
			mutate(&reg)
			_, err := svc.RegisterBatch(ctx, reg)
			if !domain.IsValidation(err) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
	if len(sink.Events()) != 0 {
		t.Fatal("rejected registrations must not emit events")
	}
}

func TestUpdateStatusWalksFullChain(t *testing.T) {
	ctx := context.Background()
	svc, sink, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	sink.Reset()

	chain := []domain.BatchStatus{
		domain.StatusVerified,
		domain.StatusProcessed,
		domain.StatusPackaged,
		domain.StatusShipped,
		domain.StatusDelivered,
	}
	for _, next := range chain {
		batch, err := svc.UpdateStatus(ctx, "b1", next, "actor-1")
		if err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if batch.Status != next {
			t.Fatalf("status = %s, want %s", batch.Status, next)
		}
		ok, err := integrity.VerifyBatch(batch)
		if err != nil || !ok {
			t.Fatalf("hash stale after transition to %s (ok=%v err=%v)", next, ok, err)
		}
	}

	events := sink.Events()
	if len(events) != len(chain) {
		t.Fatalf("got %d events, want %d", len(events), len(chain))
	}
	for i, ev := range events {
		if ev.Type != domain.EventBatchStatusUpdated {
			t.Fatalf("event %d type = %s", i, ev.Type)
		}
		if ev.Payload["new_status"] != string(chain[i]) {
			t.Fatalf("event %d payload %v, want status %s", i, ev.Payload, chain[i])
		}
	}
}

func TestUpdateStatusRejectsIllegalEdges(t *testing.T) {
	ctx := context.Background()
	svc, sink, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	sink.Reset()

	cases := []domain.BatchStatus{
		domain.StatusProcessed, // skips verified
		domain.StatusShipped,   // far jump
		domain.StatusHarvested, // self edge
	}
	for _, target := range cases {
		_, err := svc.UpdateStatus(ctx, "b1", target, "actor-1")
		if !domain.IsInvalidTransition(err) {
			t.Fatalf("harvested -> %s: expected InvalidTransitionError, got %v", target, err)
		}
	}

	_, err := svc.UpdateStatus(ctx, "b1", "airlifted", "actor-1")
	if !domain.IsValidation(err) {
		t.Fatalf("unknown status: expected ValidationError, got %v", err)
	}

	got, err := svc.ReadBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Status != domain.StatusHarvested {
		t.Fatalf("status changed despite rejections: %s", got.Status)
	}
	if len(sink.Events()) != 0 {
		t.Fatal("rejected transitions must not emit events")
	}
}

func TestUpdateStatusTerminal(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, next := range []domain.BatchStatus{
		domain.StatusVerified, domain.StatusProcessed, domain.StatusPackaged,
		domain.StatusShipped, domain.StatusDelivered,
	} {
		if _, err := svc.UpdateStatus(ctx, "b1", next, "actor-1"); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	for _, target := range domain.StatusOrder() {
		_, err := svc.UpdateStatus(ctx, "b1", target, "actor-1")
		if !domain.IsInvalidTransition(err) {
			t.Fatalf("delivered -> %s: expected InvalidTransitionError, got %v", target, err)
		}
	}
}

func TestUpdateStatusUnknownBatch(t *testing.T) {
	ctx := context.Background()
	svc, sink, _ := newTestService(t)

	_, err := svc.UpdateStatus(ctx, "ghost", domain.StatusVerified, "actor-1")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(sink.Events()) != 0 {
		t.Fatal("failed update must not emit events")
	}
}

func TestGetHistoryReproducesSnapshots(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "b1", domain.StatusVerified, "actor-1"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := svc.AppendProcessingRecord(ctx, "b1", domain.ProcessingRecord{
		RecordMeta:     domain.RecordMeta{ActorID: "mfg-1"},
		ProcessingType: "drying",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	history, err := svc.GetHistory(ctx, "b1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].Batch.Status != domain.StatusHarvested {
		t.Fatalf("first snapshot status = %s, want harvested", history[0].Batch.Status)
	}
	if len(history[0].Batch.ProcessingRecords) != 0 {
		t.Fatal("first snapshot must predate the processing record")
	}
	if history[1].Batch.Status != domain.StatusVerified {
		t.Fatalf("second snapshot status = %s, want verified", history[1].Batch.Status)
	}
	if len(history[2].Batch.ProcessingRecords) != 1 {
		t.Fatal("third snapshot must carry the processing record")
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Fatalf("history out of order at %d", i)
		}
	}

	if _, err := svc.GetHistory(ctx, "ghost"); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for unknown batch, got %v", err)
	}
}

func TestQueryBatches(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	specs := []struct {
		id       string
		producer string
		herb     string
	}{
		{"b1", "farmer-1", "ashwagandha"},
		{"b2", "farmer-1", "tulsi"},
		{"b3", "farmer-2", "ashwagandha"},
		{"b4", "farmer-2", "brahmi"},
	}
	for _, spec := range specs {
		reg := validRegistration(spec.id)
		reg.ProducerID = spec.producer
		reg.HerbType = spec.herb
		if _, err := svc.RegisterBatch(ctx, reg); err != nil {
			t.Fatalf("register %s: %v", spec.id, err)
		}
	}
	if _, err := svc.UpdateStatus(ctx, "b3", domain.StatusVerified, "actor-1"); err != nil {
		t.Fatalf("advance b3: %v", err)
	}

	byProducer, err := svc.BatchesByProducer(ctx, "farmer-1")
	if err != nil {
		t.Fatalf("by producer: %v", err)
	}
	if len(byProducer) != 2 {
		t.Fatalf("farmer-1 batches = %d, want 2", len(byProducer))
	}
	if byProducer[0].BatchID != "b2" || byProducer[1].BatchID != "b1" {
		t.Fatalf("expected newest first, got %s, %s", byProducer[0].BatchID, byProducer[1].BatchID)
	}

	byHerb, err := svc.BatchesByHerbType(ctx, "ashwagandha")
	if err != nil {
		t.Fatalf("by herb: %v", err)
	}
	if len(byHerb) != 2 {
		t.Fatalf("ashwagandha batches = %d, want 2", len(byHerb))
	}

	byStatus, err := svc.BatchesByStatus(ctx, domain.StatusVerified)
	if err != nil {
		t.Fatalf("by status: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].BatchID != "b3" {
		t.Fatalf("verified batches = %v", byStatus)
	}

	all, err := svc.AllBatches(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all batches = %d, want 4", len(all))
	}

	page, err := svc.QueryBatches(ctx, Query{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("paged: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].BatchID != all[1].BatchID || page[1].BatchID != all[2].BatchID {
		t.Fatalf("pagination misaligned: %s, %s", page[0].BatchID, page[1].BatchID)
	}

	empty, err := svc.QueryBatches(ctx, Query{Offset: 100})
	if err != nil {
		t.Fatalf("offset beyond end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %d", len(empty))
	}

	if _, err := svc.BatchesByStatus(ctx, "vaporized"); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	missing, err := svc.Summarize(ctx, "ghost")
	if err != nil {
		t.Fatalf("summarize missing: %v", err)
	}
	if missing.Exists {
		t.Fatal("unknown batch must report Exists=false")
	}

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.AppendProcessingRecord(ctx, "b1", domain.ProcessingRecord{
		RecordMeta:     domain.RecordMeta{ActorID: "mfg-1"},
		ProcessingType: "drying",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	summary, err := svc.Summarize(ctx, "b1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !summary.Exists || !summary.IntegrityIntact {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.ProcessingRecordsCount != 1 || summary.ShipmentRecordsCount != 0 || summary.AuditRecordsCount != 0 {
		t.Fatalf("unexpected record counts %+v", summary)
	}
}

func TestConcurrentStatusRace(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.UpdateStatus(ctx, "b1", domain.StatusVerified, fmt.Sprintf("actor-%d", i))
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !domain.IsInvalidTransition(err) {
			t.Fatalf("unexpected racer error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d racers succeeded, want exactly 1", succeeded)
	}

	got, err := svc.ReadBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Status != domain.StatusVerified {
		t.Fatalf("final status = %s, want verified", got.Status)
	}
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	if _, err := svc.RegisterBatch(ctx, validRegistration("b1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	const appenders = 16
	var wg sync.WaitGroup
	for i := 0; i < appenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AppendProcessingRecord(ctx, "b1", domain.ProcessingRecord{
				RecordMeta:     domain.RecordMeta{ActorID: fmt.Sprintf("mfg-%d", i)},
				ProcessingType: "drying",
			})
			if err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := svc.ReadBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.ProcessingRecords) != appenders {
		t.Fatalf("lost appends: %d records, want %d", len(got.ProcessingRecords), appenders)
	}
	seen := map[string]bool{}
	for _, rec := range got.ProcessingRecords {
		if seen[rec.RecordID] {
			t.Fatalf("duplicate record id %s", rec.RecordID)
		}
		seen[rec.RecordID] = true
	}
}
