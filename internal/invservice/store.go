package invservice

import (
	"context"
	"errors"

	"github.com/gravitas-games/farmsync/pkg/models"
)

// Store errors. Handlers translate these into the documented HTTP
// rejections clients classify on.
var (
	ErrNotFound     = errors.New("record does not exist")
	ErrSlotOccupied = errors.New("a record already exists at this position")
)

// RecordStore persists inventory records for the reference service.
type RecordStore interface {
	// ListByOwner returns every record owned by the user, across all
	// inventories.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Record, error)

	// Get returns one record by id, or ErrNotFound.
	Get(ctx context.Context, id string) (models.Record, error)

	// Insert stores a new record and returns its assigned id.
	// Returns ErrSlotOccupied if another record of the same owner
	// already sits at the target slot.
	Insert(ctx context.Context, rec models.Record) (string, error)

	// Update rewrites an existing record. Returns ErrNotFound if the
	// id is unknown and ErrSlotOccupied if a different record of the
	// same owner already sits at the target slot.
	Update(ctx context.Context, id string, rec models.Record) error

	// Delete removes a record. Returns ErrNotFound if the id is
	// unknown.
	Delete(ctx context.Context, id string) error
}

// slotTaken reports whether any record other than selfID occupies the
// given slot for this owner.
func slotTaken(records []models.Record, rec models.Record, selfID string) bool {
	for i := range records {
		other := &records[i]
		if other.ID == selfID {
			continue
		}
		if other.OwnerID == rec.OwnerID && other.SameSlot(rec.Inventory, rec.SlotIndex) {
			return true
		}
	}
	return false
}
