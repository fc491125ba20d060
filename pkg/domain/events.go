package domain

import "time"

// EventType names a ledger event emitted after a successful commit.
type EventType string

// Emitted event types. Names match the upstream notification consumers.
const (
	EventBatchRegistered       EventType = "BatchRegistered"
	EventBatchStatusUpdated    EventType = "BatchStatusUpdated"
	EventProcessingRecordAdded EventType = "ProcessingRecordAdded"
	EventShipmentRecordAdded   EventType = "ShipmentRecordAdded"
	EventAuditRecordAdded      EventType = "AuditRecordAdded"
)

// Event is the structured payload handed to notification sinks. Payload keys
// are event-type specific (producer_id, new_status, actor_id, ...).
type Event struct {
	Type    EventType         `json:"type"`
	BatchID string            `json:"batch_id"`
	At      time.Time         `json:"at"`
	Payload map[string]string `json:"payload,omitempty"`
}

// EventSink receives ledger events. Publish is called after the mutation has
// committed; sinks must not block the caller for long.
type EventSink interface {
	Publish(Event)
}
