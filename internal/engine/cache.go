package engine

import "fmt"

// SlotKey identifies one slot across local and remote views.
type SlotKey struct {
	Inventory string
	Slot      int
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s[%d]", k.Inventory, k.Slot)
}

// identityCache maps local slots to the remote record ids that back
// them. Entries are written optimistically before the server confirms
// and rebuilt opportunistically from fresh fetches, so a stale entry is
// a recoverable condition, never a fault.
type identityCache struct {
	bySlot map[SlotKey]string

	// pendingMoveByDest holds the origin record id of a cross-slot
	// move still awaiting destination confirmation, keyed by the
	// destination slot. Authoritative only transiently: cleared once
	// the origin is deleted, the move is abandoned, or a full
	// reconciliation cycle completes for the inventory.
	pendingMoveByDest map[SlotKey]string
}

func newIdentityCache() *identityCache {
	return &identityCache{
		bySlot:            make(map[SlotKey]string),
		pendingMoveByDest: make(map[SlotKey]string),
	}
}

func (c *identityCache) get(key SlotKey) (string, bool) {
	id, ok := c.bySlot[key]
	return id, ok
}

func (c *identityCache) set(key SlotKey, id string) {
	if id == "" {
		delete(c.bySlot, key)
		return
	}
	c.bySlot[key] = id
}

func (c *identityCache) remove(key SlotKey) {
	delete(c.bySlot, key)
}

// removeRecord drops every slot and pending-move entry referencing the
// given record id.
func (c *identityCache) removeRecord(id string) {
	for key, cached := range c.bySlot {
		if cached == id {
			delete(c.bySlot, key)
		}
	}
	for key, cached := range c.pendingMoveByDest {
		if cached == id {
			delete(c.pendingMoveByDest, key)
		}
	}
}

func (c *identityCache) setPendingMove(dest SlotKey, originID string) {
	if originID == "" {
		return
	}
	c.pendingMoveByDest[dest] = originID
}

func (c *identityCache) pendingMove(dest SlotKey) (string, bool) {
	id, ok := c.pendingMoveByDest[dest]
	return id, ok
}

func (c *identityCache) clearPendingMove(dest SlotKey) {
	delete(c.pendingMoveByDest, dest)
}

// clearPendingMovesFor drops all pending-move entries for one
// inventory. Run at the end of every reloading sync so no entry
// outlives the cycle that created it.
func (c *identityCache) clearPendingMovesFor(inventory string) {
	for key := range c.pendingMoveByDest {
		if key.Inventory == inventory {
			delete(c.pendingMoveByDest, key)
		}
	}
}
