package engine

import (
	"context"
	"log"

	"github.com/gravitas-games/farmsync/internal/inventory"
	"github.com/gravitas-games/farmsync/internal/items"
)

// AddItem stacks or places qty units of an item into the named
// inventory, then reconciles. A full inventory fails silently: the
// refusal is logged and nothing changes, locally or remotely. While a
// drag or sync is active the operation is deferred and replayed in
// FIFO order.
func (e *Engine) AddItem(ctx context.Context, name string, item items.ItemID, qty int) {
	if qty <= 0 {
		return
	}
	e.mu.Lock()
	if e.busyLocked() {
		e.deferOp(func() { e.AddItem(ctx, name, item, qty) })
		e.mu.Unlock()
		return
	}
	inv := e.inventories[name]
	if inv == nil {
		e.mu.Unlock()
		log.Printf("AddItem skipped: unknown inventory %q", name)
		return
	}
	saved := make([]inventory.Slot, len(inv.Slots))
	copy(saved, inv.Slots)
	leftover := inv.AddByItem(item, qty, e.stackCapFor(item), 0)
	if leftover > 0 {
		// Not enough room; roll back so nothing changes.
		copy(inv.Slots, saved)
		e.mu.Unlock()
		log.Printf("AddItem: %s is full, could not place %d x %s", name, qty, item)
		return
	}
	e.mu.Unlock()

	e.Sync(ctx, name, SyncOptions{ReloadAfter: true, AllowCreate: true})
}

// MoveItem applies the move/swap/stack rule between two slot
// coordinates, which may span inventories, then reconciles the
// affected inventories (source before destination; the destination
// sync carries the reload so cross-inventory moves do not reload
// twice). It returns whether the local mutation was structurally valid
// and issued; remote convergence happens on its own schedule.
func (e *Engine) MoveItem(ctx context.Context, fromName string, fromIdx int, toName string, toIdx int) bool {
	e.mu.Lock()
	src := e.inventories[fromName]
	dst := e.inventories[toName]
	if src == nil || dst == nil {
		e.mu.Unlock()
		return false
	}
	kind := src.Move(fromIdx, dst, toIdx)
	if kind == inventory.MoveInvalid {
		e.mu.Unlock()
		return false
	}
	srcKey := SlotKey{Inventory: fromName, Slot: fromIdx}
	dstKey := SlotKey{Inventory: toName, Slot: toIdx}
	switch kind {
	case inventory.MoveRelocated:
		// Remember the origin record so the destination sync can
		// delete it once the relocation is confirmed.
		if originID, ok := e.cache.get(srcKey); ok {
			e.cache.setPendingMove(dstKey, originID)
			e.cache.remove(srcKey)
		}
	case inventory.MoveSwapped:
		srcID, srcOK := e.cache.get(srcKey)
		dstID, dstOK := e.cache.get(dstKey)
		e.cache.remove(srcKey)
		e.cache.remove(dstKey)
		if srcOK {
			e.cache.set(dstKey, srcID)
		}
		if dstOK {
			e.cache.set(srcKey, dstID)
		}
	case inventory.MoveMerged:
		// The origin record is now orphaned at the source slot; the
		// delete sweep retires it.
	}
	e.mu.Unlock()

	if fromName == toName {
		e.Sync(ctx, toName, SyncOptions{ReloadAfter: true, AllowCreate: true})
		return true
	}
	e.Sync(ctx, fromName, SyncOptions{AllowCreate: true})
	e.Sync(ctx, toName, SyncOptions{ReloadAfter: true, AllowCreate: true})
	return true
}

// Consume decrements the slot at index by amount, typically in
// response to the player using an item, then reconciles. A short
// per-slot cooldown absorbs duplicate UI events for the same slot;
// the cooldown is distinct from the inventory-level sync debounce.
func (e *Engine) Consume(ctx context.Context, name string, slotIdx, amount int) {
	if amount <= 0 {
		return
	}
	e.mu.Lock()
	if e.busyLocked() {
		e.deferOp(func() { e.Consume(ctx, name, slotIdx, amount) })
		e.mu.Unlock()
		return
	}
	inv := e.inventories[name]
	if inv == nil || !inv.ValidIndex(slotIdx) || inv.Slots[slotIdx].IsEmpty() {
		e.mu.Unlock()
		return
	}
	key := SlotKey{Inventory: name, Slot: slotIdx}
	now := e.now()
	if last, ok := e.lastConsume[key]; ok && now.Sub(last) < e.consumeCooldown {
		e.mu.Unlock()
		return
	}
	e.lastConsume[key] = now
	inv.RemoveAt(slotIdx, amount)
	e.mu.Unlock()

	e.Sync(ctx, name, SyncOptions{ReloadAfter: true})
}

// DeleteItem discards the full contents of one slot, then reconciles
// so the delete sweep retires the backing record.
func (e *Engine) DeleteItem(ctx context.Context, name string, slotIdx int) {
	e.mu.Lock()
	inv := e.inventories[name]
	if inv == nil || !inv.ValidIndex(slotIdx) || inv.Slots[slotIdx].IsEmpty() {
		e.mu.Unlock()
		return
	}
	inv.Slots[slotIdx].Clear()
	e.mu.Unlock()

	e.Sync(ctx, name, SyncOptions{ReloadAfter: true})
}

// UpdateQuality re-issues the record backing a slot with the same
// identity and quantity plus a new quality attribute, applying the
// same conflict handling as a reconciliation pass. Returns whether the
// update landed.
func (e *Engine) UpdateQuality(ctx context.Context, name string, slotIdx, quality int) bool {
	if e.session == nil || !e.session.IsReady() {
		log.Printf("UpdateQuality skipped for %s: session not ready", name)
		return false
	}
	owner := e.session.CurrentOwnerID()

	e.mu.Lock()
	inv := e.inventories[name]
	if inv == nil || !inv.ValidIndex(slotIdx) || inv.Slots[slotIdx].IsEmpty() {
		e.mu.Unlock()
		return false
	}
	inv.Slots[slotIdx].Quality = quality
	s := inv.Slots[slotIdx]
	e.mu.Unlock()

	key := SlotKey{Inventory: name, Slot: slotIdx}
	records, res := e.gw.FetchAll(ctx, owner)
	if !res.OK {
		logSkip("quality fetch", key, res)
		return false
	}
	snap := buildSnapshot(records, name)
	rec := snap.bySlot[slotIdx]
	if rec == nil {
		rec = snap.recordForItem(s.Item, nil)
	}
	if rec == nil {
		log.Printf("UpdateQuality: no record backs %s yet", key)
		return false
	}
	id, ok := e.updateWithRecovery(ctx, owner, rec.ID, key, s, snap, nil, false)
	if !ok {
		return false
	}
	e.confirmSlot(ctx, key, id)
	return true
}
