package integrity

import (
	"testing"
	"time"

	"herbledger/pkg/domain"
)

func sampleBatch() domain.Batch {
	return domain.Batch{
		BatchID:     "batch-1",
		ProducerID:  "farmer-1",
		HerbType:    "ashwagandha",
		Quantity:    100,
		HarvestDate: time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC),
		Location:    domain.Location{Latitude: 28.61, Longitude: 77.20},
		ContentRefs: []string{"ref-a"},
		Status:      domain.StatusHarvested,
		CreatedAt:   time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestBatchDigestDeterministic(t *testing.T) {
	b := sampleBatch()
	d1, err := BatchDigest(b)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := BatchDigest(b)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest not stable: %s vs %s", d1, d2)
	}
	if len(d1) != 64 {
		t.Fatalf("expected sha256 hex digest, got %q", d1)
	}
}

func TestBatchDigestIgnoresVolatileFields(t *testing.T) {
	b := sampleBatch()
	base, err := BatchDigest(b)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	b.IntegrityHash = "whatever"
	b.LastUpdated = time.Now()
	b.LastUpdatedBy = "someone"
	got, err := BatchDigest(b)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if got != base {
		t.Fatal("volatile metadata changed the digest")
	}
}

func TestBatchDigestCoversSubstantiveFields(t *testing.T) {
	base, err := BatchDigest(sampleBatch())
	if err != nil {
		t.Fatalf("digest: %v", err)
	}

	statusChanged := sampleBatch()
	statusChanged.Status = domain.StatusVerified
	d, err := BatchDigest(statusChanged)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d == base {
		t.Fatal("status change must change the digest")
	}

	recordAdded := sampleBatch()
	recordAdded.ProcessingRecords = []domain.ProcessingRecord{
		{RecordMeta: domain.RecordMeta{RecordID: "proc-1", ActorID: "mfg-1"}, ProcessingType: "drying"},
	}
	d, err = BatchDigest(recordAdded)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d == base {
		t.Fatal("appended record must change the digest")
	}

	quantityChanged := sampleBatch()
	quantityChanged.Quantity = 99
	d, err = BatchDigest(quantityChanged)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d == base {
		t.Fatal("quantity change must change the digest")
	}
}

func TestBatchDigestNormalizesTimezones(t *testing.T) {
	utc := sampleBatch()

	ist := time.FixedZone("IST", 5*3600+1800)
	shifted := sampleBatch()
	shifted.HarvestDate = shifted.HarvestDate.In(ist)
	shifted.CreatedAt = shifted.CreatedAt.In(ist)

	d1, err := BatchDigest(utc)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := BatchDigest(shifted)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatal("same instant in another zone changed the digest")
	}
}

func TestBatchDigestTreatsNilAndEmptySlicesAlike(t *testing.T) {
	withNil := sampleBatch()
	withNil.ContentRefs = nil
	withNil.ProcessingRecords = nil

	withEmpty := sampleBatch()
	withEmpty.ContentRefs = []string{}
	withEmpty.ProcessingRecords = []domain.ProcessingRecord{}

	d1, err := BatchDigest(withNil)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := BatchDigest(withEmpty)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatal("nil and empty slices must hash identically")
	}
}

func TestVerifyBatch(t *testing.T) {
	b := sampleBatch()
	digest, err := BatchDigest(b)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b.IntegrityHash = digest

	ok, err := VerifyBatch(b)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected matching hash to verify")
	}

	b.Quantity = 1
	ok, err = VerifyBatch(b)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected tampered batch to fail verification")
	}
}
