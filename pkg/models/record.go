package models

// Record is the server's durable representation of one occupied
// inventory slot. The engine never mutates a Record in place; it issues
// create/update/delete calls through the gateway and re-fetches.
type Record struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Inventory string `json:"inventory"`
	SlotIndex int    `json:"slot_index"`
	Quality   int    `json:"quality,omitempty"`
}

// SameSlot reports whether the record addresses the given slot.
func (r *Record) SameSlot(inventory string, slotIndex int) bool {
	return r.Inventory == inventory && r.SlotIndex == slotIndex
}

// CreateRequest is the body of a create-record call.
type CreateRequest struct {
	OwnerID   string `json:"owner_id"`
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Inventory string `json:"inventory"`
	SlotIndex int    `json:"slot_index"`
	Quality   int    `json:"quality,omitempty"`
}

// CreateResponse carries the id assigned to a newly created record.
type CreateResponse struct {
	ID string `json:"id"`
}

// UpdateRequest is the body of an update-record call. The record id
// travels in the URL; the body restates the full desired state.
type UpdateRequest struct {
	OwnerID   string `json:"owner_id"`
	Item      string `json:"item"`
	Quantity  int    `json:"quantity"`
	Inventory string `json:"inventory"`
	SlotIndex int    `json:"slot_index"`
	Quality   int    `json:"quality,omitempty"`
}

// RecordList is the response of a fetch-all call.
type RecordList struct {
	Records []Record `json:"records"`
}

// ErrorBody is the JSON error shape the reference service emits.
// Code is the machine-readable classification; Message is the human
// phrasing older clients match on.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error codes emitted by the reference service.
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeSlotOccupied = "slot_occupied"
)
