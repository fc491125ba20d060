// Package domain defines the persistent entities, status machine, typed
// errors, and rule evaluation primitives used by herbledger.
package domain

import "time"

// BatchStatus represents a custody stage in the supply chain.
type BatchStatus string

// Canonical custody stages. Forward transitions follow declaration order;
// the only backward edge is the audit-rejection rollback to harvested.
const (
	StatusHarvested BatchStatus = "harvested"
	StatusVerified  BatchStatus = "verified"
	StatusProcessed BatchStatus = "processed"
	StatusPackaged  BatchStatus = "packaged"
	StatusShipped   BatchStatus = "shipped"
	StatusDelivered BatchStatus = "delivered"
)

// CertificationStatus is the outcome recorded by a regulatory audit.
type CertificationStatus string

// Audit certification outcomes. A rejected audit rolls the batch back to
// harvested when the current stage permits it.
const (
	CertificationApproved CertificationStatus = "approved"
	CertificationRejected CertificationStatus = "rejected"
	CertificationPending  CertificationStatus = "pending"
)

// Location is a GPS coordinate pair. Both components must be finite.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RecordMeta carries the fields shared by every appended sub-record.
type RecordMeta struct {
	RecordID  string    `json:"record_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ProcessingRecord documents a manufacturing step applied to a batch.
type ProcessingRecord struct {
	RecordMeta
	ProcessingType string `json:"processing_type"`
	LabReportRef   string `json:"lab_report_ref,omitempty"`
	QualityGrade   string `json:"quality_grade,omitempty"`
}

// TrackingCheckpoint logs an intermediate position during a shipment.
type TrackingCheckpoint struct {
	Location  Location  `json:"location"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ShipmentRecord documents a custody transfer between locations.
type ShipmentRecord struct {
	RecordMeta
	Origin              Location             `json:"origin"`
	Destination         Location             `json:"destination"`
	ShipmentDate        time.Time            `json:"shipment_date"`
	TrackingCheckpoints []TrackingCheckpoint `json:"tracking_checkpoints"`
}

// AuditRecord documents a regulatory inspection and its outcome.
type AuditRecord struct {
	RecordMeta
	AuditType           string              `json:"audit_type"`
	Findings            string              `json:"findings,omitempty"`
	CertificationStatus CertificationStatus `json:"certification_status"`
	CertificateRef      string              `json:"certificate_ref,omitempty"`
}

// Batch is the central ledger entity: one registered lot of herbs tracked
// through cultivation, processing, shipment, and audit. Batches are never
// deleted; sub-record lists are append-only.
type Batch struct {
	BatchID           string             `json:"batch_id"`
	ProducerID        string             `json:"producer_id"`
	HerbType          string             `json:"herb_type"`
	Quantity          float64            `json:"quantity"`
	HarvestDate       time.Time          `json:"harvest_date"`
	Location          Location           `json:"location"`
	ContentRefs       []string           `json:"content_refs"`
	Status            BatchStatus        `json:"status"`
	ProcessingRecords []ProcessingRecord `json:"processing_records"`
	ShipmentRecords   []ShipmentRecord   `json:"shipment_records"`
	AuditRecords      []AuditRecord      `json:"audit_records"`
	CreatedAt         time.Time          `json:"created_at"`
	LastUpdated       time.Time          `json:"last_updated"`
	LastUpdatedBy     string             `json:"last_updated_by"`
	IntegrityHash     string             `json:"integrity_hash"`
}

// CloneBatch returns a deep copy safe for callers to mutate.
func CloneBatch(b Batch) Batch {
	cp := b
	cp.ContentRefs = append([]string(nil), b.ContentRefs...)
	cp.ProcessingRecords = append([]ProcessingRecord(nil), b.ProcessingRecords...)
	cp.AuditRecords = append([]AuditRecord(nil), b.AuditRecords...)
	if b.ShipmentRecords != nil {
		cp.ShipmentRecords = make([]ShipmentRecord, len(b.ShipmentRecords))
		for i, s := range b.ShipmentRecords {
			s.TrackingCheckpoints = append([]TrackingCheckpoint(nil), s.TrackingCheckpoints...)
			cp.ShipmentRecords[i] = s
		}
	}
	return cp
}
