package models

// Observer feed event types - Server → Dev tools
const (
	FeedRecordCreated = "record_created"
	FeedRecordUpdated = "record_updated"
	FeedRecordDeleted = "record_deleted"
)

// FeedEvent is broadcast on the websocket observer feed whenever a
// record mutates. Dev tooling only; the sync engine never consumes it.
type FeedEvent struct {
	Type   string  `json:"type"`
	Record *Record `json:"record,omitempty"`
	ID     string  `json:"id,omitempty"` // set for deletes
}
