// Package integrity computes the deterministic content hash bound to every
// persisted batch snapshot. The digest covers all substantive fields,
// including status and the sub-record lists, and excludes the stored hash
// itself plus the volatile last-updated metadata so that cosmetic re-saves
// keep the hash stable.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"herbledger/pkg/domain"
)

// batchContent is the canonical projection of a batch. Field order is fixed
// by the struct declaration, which fixes JSON key order; all timestamps are
// normalized to UTC before marshalling.
type batchContent struct {
	BatchID           string                    `json:"batch_id"`
	ProducerID        string                    `json:"producer_id"`
	HerbType          string                    `json:"herb_type"`
	Quantity          float64                   `json:"quantity"`
	HarvestDate       time.Time                 `json:"harvest_date"`
	Location          domain.Location           `json:"location"`
	ContentRefs       []string                  `json:"content_refs"`
	Status            domain.BatchStatus        `json:"status"`
	ProcessingRecords []domain.ProcessingRecord `json:"processing_records"`
	ShipmentRecords   []domain.ShipmentRecord   `json:"shipment_records"`
	AuditRecords      []domain.AuditRecord      `json:"audit_records"`
	CreatedAt         time.Time                 `json:"created_at"`
}

func canonicalBatch(b domain.Batch) batchContent {
	cp := domain.CloneBatch(b)
	for i := range cp.ProcessingRecords {
		cp.ProcessingRecords[i].Timestamp = cp.ProcessingRecords[i].Timestamp.UTC()
	}
	for i := range cp.ShipmentRecords {
		cp.ShipmentRecords[i].Timestamp = cp.ShipmentRecords[i].Timestamp.UTC()
		cp.ShipmentRecords[i].ShipmentDate = cp.ShipmentRecords[i].ShipmentDate.UTC()
		for j := range cp.ShipmentRecords[i].TrackingCheckpoints {
			cp.ShipmentRecords[i].TrackingCheckpoints[j].Timestamp = cp.ShipmentRecords[i].TrackingCheckpoints[j].Timestamp.UTC()
		}
	}
	for i := range cp.AuditRecords {
		cp.AuditRecords[i].Timestamp = cp.AuditRecords[i].Timestamp.UTC()
	}
	if cp.ContentRefs == nil {
		cp.ContentRefs = []string{}
	}
	if cp.ProcessingRecords == nil {
		cp.ProcessingRecords = []domain.ProcessingRecord{}
	}
	if cp.ShipmentRecords == nil {
		cp.ShipmentRecords = []domain.ShipmentRecord{}
	}
	if cp.AuditRecords == nil {
		cp.AuditRecords = []domain.AuditRecord{}
	}
	return batchContent{
		BatchID:           cp.BatchID,
		ProducerID:        cp.ProducerID,
		HerbType:          cp.HerbType,
		Quantity:          cp.Quantity,
		HarvestDate:       cp.HarvestDate.UTC(),
		Location:          cp.Location,
		ContentRefs:       cp.ContentRefs,
		Status:            cp.Status,
		ProcessingRecords: cp.ProcessingRecords,
		ShipmentRecords:   cp.ShipmentRecords,
		AuditRecords:      cp.AuditRecords,
		CreatedAt:         cp.CreatedAt.UTC(),
	}
}

// BatchDigest returns the sha256 hex digest of the batch's canonical content.
func BatchDigest(b domain.Batch) (string, error) {
	raw, err := json.Marshal(canonicalBatch(b))
	if err != nil {
		return "", fmt.Errorf("canonicalize batch %s: %w", b.BatchID, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyBatch recomputes the digest and compares it to the stored hash. A
// mismatch signals tampering between the snapshot and its recorded hash.
func VerifyBatch(b domain.Batch) (bool, error) {
	digest, err := BatchDigest(b)
	if err != nil {
		return false, err
	}
	return digest == b.IntegrityHash, nil
}
