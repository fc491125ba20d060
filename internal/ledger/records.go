package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"herbledger/pkg/domain"
)

// AppendProcessingRecord appends a manufacturing step to a batch. The record
// receives a fresh id and timestamp; existing entries are never touched.
func (s *Service) AppendProcessingRecord(ctx context.Context, batchID string, rec domain.ProcessingRecord) (domain.Batch, error) {
	start := time.Now()
	batch, err := s.appendProcessingRecord(ctx, batchID, rec)
	s.observe("append_processing_record", start, err)
	return batch, err
}

func (s *Service) appendProcessingRecord(ctx context.Context, batchID string, rec domain.ProcessingRecord) (domain.Batch, error) {
	if rec.ActorID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	if rec.ProcessingType == "" {
		return domain.Batch{}, domain.ValidationError{Field: "processing_type", Reason: "must not be empty"}
	}
	rec.RecordID = s.newRecordID("proc")
	rec.Timestamp = s.nowFn()

	updated, err := s.appendToBatch(ctx, batchID, rec.ActorID, func(next *domain.Batch) {
		next.ProcessingRecords = append(next.ProcessingRecords, rec)
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.logger.Info("processing record added",
		"batch_id", batchID, "record_id", rec.RecordID, "actor_id", rec.ActorID)
	s.emit(domain.EventProcessingRecordAdded, batchID, map[string]string{
		"actor_id":        rec.ActorID,
		"processing_type": rec.ProcessingType,
		"record_id":       rec.RecordID,
	})
	return updated, nil
}

// AppendShipmentRecord appends a custody transfer to a batch.
func (s *Service) AppendShipmentRecord(ctx context.Context, batchID string, rec domain.ShipmentRecord) (domain.Batch, error) {
	start := time.Now()
	batch, err := s.appendShipmentRecord(ctx, batchID, rec)
	s.observe("append_shipment_record", start, err)
	return batch, err
}

func (s *Service) appendShipmentRecord(ctx context.Context, batchID string, rec domain.ShipmentRecord) (domain.Batch, error) {
	if rec.ActorID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	if err := validateLocation("origin", rec.Origin); err != nil {
		return domain.Batch{}, err
	}
	if err := validateLocation("destination", rec.Destination); err != nil {
		return domain.Batch{}, err
	}
	rec.RecordID = s.newRecordID("ship")
	rec.Timestamp = s.nowFn()
	if rec.TrackingCheckpoints == nil {
		rec.TrackingCheckpoints = []domain.TrackingCheckpoint{}
	}

	updated, err := s.appendToBatch(ctx, batchID, rec.ActorID, func(next *domain.Batch) {
		next.ShipmentRecords = append(next.ShipmentRecords, rec)
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.logger.Info("shipment record added",
		"batch_id", batchID, "record_id", rec.RecordID, "actor_id", rec.ActorID)
	s.emit(domain.EventShipmentRecordAdded, batchID, map[string]string{
		"actor_id":  rec.ActorID,
		"record_id": rec.RecordID,
	})
	return updated, nil
}

// AppendAuditRecord appends a regulatory audit. A rejected certification
// additionally rolls a verified or processed batch back to harvested; the
// audit itself always lands.
func (s *Service) AppendAuditRecord(ctx context.Context, batchID string, rec domain.AuditRecord) (domain.Batch, error) {
	start := time.Now()
	batch, err := s.appendAuditRecord(ctx, batchID, rec)
	s.observe("append_audit_record", start, err)
	return batch, err
}

func (s *Service) appendAuditRecord(ctx context.Context, batchID string, rec domain.AuditRecord) (domain.Batch, error) {
	if rec.ActorID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	switch rec.CertificationStatus {
	case domain.CertificationApproved, domain.CertificationRejected, domain.CertificationPending:
	default:
		return domain.Batch{}, domain.ValidationError{
			Field:  "certification_status",
			Reason: fmt.Sprintf("unknown certification status %q", rec.CertificationStatus),
		}
	}
	rec.RecordID = s.newRecordID("audit")
	rec.Timestamp = s.nowFn()

	var rolledBack bool
	updated, err := s.appendToBatch(ctx, batchID, rec.ActorID, func(next *domain.Batch) {
		next.AuditRecords = append(next.AuditRecords, rec)
		if rec.CertificationStatus == domain.CertificationRejected && domain.CanRollback(next.Status) {
			next.Status = domain.StatusHarvested
			rolledBack = true
		}
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.logger.Info("audit record added",
		"batch_id", batchID, "record_id", rec.RecordID, "actor_id", rec.ActorID,
		"certification_status", string(rec.CertificationStatus))
	s.emit(domain.EventAuditRecordAdded, batchID, map[string]string{
		"actor_id":             rec.ActorID,
		"audit_type":           rec.AuditType,
		"certification_status": string(rec.CertificationStatus),
		"record_id":            rec.RecordID,
	})
	if rolledBack {
		s.emit(domain.EventBatchStatusUpdated, batchID, map[string]string{
			"new_status": string(domain.StatusHarvested),
			"actor_id":   rec.ActorID,
		})
	}
	return updated, nil
}

// AppendTrackingCheckpoint appends a position fix to an existing shipment
// record. Checkpoints are append-only like the record lists themselves.
func (s *Service) AppendTrackingCheckpoint(ctx context.Context, batchID, shipmentRecordID string, cp domain.TrackingCheckpoint) (domain.Batch, error) {
	start := time.Now()
	batch, err := s.appendTrackingCheckpoint(ctx, batchID, shipmentRecordID, cp)
	s.observe("append_tracking_checkpoint", start, err)
	return batch, err
}

func (s *Service) appendTrackingCheckpoint(ctx context.Context, batchID, shipmentRecordID string, cp domain.TrackingCheckpoint) (domain.Batch, error) {
	if shipmentRecordID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "shipment_record_id", Reason: "must not be empty"}
	}
	if err := validateLocation("location", cp.Location); err != nil {
		return domain.Batch{}, err
	}
	cp.Timestamp = s.nowFn()

	updated, err := s.appendToBatchErr(ctx, batchID, "", func(next *domain.Batch) error {
		for i := range next.ShipmentRecords {
			if next.ShipmentRecords[i].RecordID == shipmentRecordID {
				next.ShipmentRecords[i].TrackingCheckpoints = append(next.ShipmentRecords[i].TrackingCheckpoints, cp)
				return nil
			}
		}
		return domain.NotFoundError{Entity: "shipment record", ID: shipmentRecordID}
	})
	if err != nil {
		return domain.Batch{}, err
	}
	return updated, nil
}

// appendToBatch wraps appendToBatchErr for mutators that cannot fail.
func (s *Service) appendToBatch(ctx context.Context, batchID, actorID string, mutate func(*domain.Batch)) (domain.Batch, error) {
	return s.appendToBatchErr(ctx, batchID, actorID, func(b *domain.Batch) error {
		mutate(b)
		return nil
	})
}

// appendToBatchErr loads the batch inside the key's write lock, applies the
// mutator, finalizes metadata, evaluates rules, and commits. An empty
// actorID preserves the previous last-updated-by attribution.
func (s *Service) appendToBatchErr(ctx context.Context, batchID, actorID string, mutate func(*domain.Batch) error) (domain.Batch, error) {
	if batchID == "" {
		return domain.Batch{}, domain.ValidationError{Field: "batch_id", Reason: "must not be empty"}
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
		next := domain.CloneBatch(cur)
		if err := mutate(&next); err != nil {
			return nil, err
		}
		by := actorID
		if by == "" {
			by = cur.LastUpdatedBy
		}
		if err := s.finalize(&next, by); err != nil {
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
	return updated, nil
}
