package engine

import (
	"context"
	"log"

	"github.com/gravitas-games/farmsync/internal/gateway"
	"github.com/gravitas-games/farmsync/internal/inventory"
	"github.com/gravitas-games/farmsync/internal/items"
	"github.com/gravitas-games/farmsync/pkg/models"
)

// SyncOptions control one reconciliation cycle.
type SyncOptions struct {
	// ReloadAfter pulls remote truth back into local slots once the
	// cycle converges, then raises the reload signal.
	ReloadAfter bool
	// AllowCreate permits brand-new records for slots the server has
	// never seen.
	AllowCreate bool
	// IgnoreDebounce forces the cycle even if the same inventory was
	// synced moments ago.
	IgnoreDebounce bool
}

// remoteSnapshot is the set of derived views over one fetch-all
// response that the reconciliation passes consult.
type remoteSnapshot struct {
	records []models.Record
	byID    map[string]*models.Record
	bySlot  map[int]*models.Record // this inventory only
}

func buildSnapshot(records []models.Record, inventoryName string) *remoteSnapshot {
	snap := &remoteSnapshot{
		records: records,
		byID:    make(map[string]*models.Record, len(records)),
		bySlot:  make(map[int]*models.Record),
	}
	for i := range records {
		rec := &records[i]
		snap.byID[rec.ID] = rec
		if rec.Inventory == inventoryName {
			if _, exists := snap.bySlot[rec.SlotIndex]; !exists {
				snap.bySlot[rec.SlotIndex] = rec
			}
		}
	}
	return snap
}

// recordForItem returns the first record holding the item that no
// earlier slot has claimed this pass. Account-wide scan; normalization
// has not necessarily run yet, so duplicates may exist and first match
// wins.
func (snap *remoteSnapshot) recordForItem(item items.ItemID, consumed map[string]bool) *models.Record {
	for i := range snap.records {
		rec := &snap.records[i]
		if consumed[rec.ID] {
			continue
		}
		if items.ItemID(rec.Item) == item {
			return rec
		}
	}
	return nil
}

// Sync reconciles one named inventory against the remote store: it
// fetches a fresh snapshot, diffs local slots against it, and issues
// the minimal create/update/delete calls to converge the two views,
// resolving conflicts inline. It returns whether any remote write
// succeeded. No error ever propagates out; per-call failures are
// logged and the affected slot simply stays unreconciled until the
// next cycle.
func (e *Engine) Sync(ctx context.Context, name string, opts SyncOptions) bool {
	if e.session == nil || !e.session.IsReady() {
		log.Printf("Sync skipped for %s: session not ready", name)
		return false
	}
	owner := e.session.CurrentOwnerID()

	e.mu.Lock()
	inv := e.inventories[name]
	if inv == nil {
		e.mu.Unlock()
		log.Printf("Sync skipped: unknown inventory %q", name)
		return false
	}
	if e.syncing {
		// One outstanding sync per engine instance.
		e.mu.Unlock()
		return false
	}
	now := e.now()
	if !opts.IgnoreDebounce {
		if last, ok := e.lastSync[name]; ok && now.Sub(last) < e.debounce {
			e.mu.Unlock()
			return false
		}
	}
	e.lastSync[name] = now
	e.syncing = true
	inv.EnsureSize(e.sizes[name])
	local := make([]inventory.Slot, len(inv.Slots))
	copy(local, inv.Slots)
	e.mu.Unlock()

	changed := e.reconcile(ctx, owner, name, local, opts)

	e.mu.Lock()
	e.syncing = false
	e.mu.Unlock()
	e.drainDeferred()
	return changed
}

func (e *Engine) reconcile(ctx context.Context, owner, name string, local []inventory.Slot, opts SyncOptions) bool {
	records, res := e.gw.FetchAll(ctx, owner)
	if !res.OK {
		logSkip("fetch", SlotKey{Inventory: name}, res)
		return false
	}
	snap := buildSnapshot(records, name)

	// Pass 1: push local occupied slots to the server. Every record id
	// claimed by a slot is marked consumed: the snapshot was taken
	// before the pass started, so a later slot whose bySlot entry still
	// names an already-claimed record must treat that entry as stale and
	// fall through to the relocate/create branch instead of re-targeting
	// (and overwriting) the record.
	changed := false
	consumed := make(map[string]bool)
	for i := range local {
		s := local[i]
		if s.IsEmpty() {
			continue
		}
		key := SlotKey{Inventory: name, Slot: i}

		if rec, ok := snap.bySlot[i]; ok && !consumed[rec.ID] {
			if recordMatchesSlot(rec, s) {
				consumed[rec.ID] = true
				continue
			}
			if id, ok := e.updateWithRecovery(ctx, owner, rec.ID, key, s, snap, consumed, opts.AllowCreate); ok {
				changed = true
				consumed[id] = true
				e.confirmSlot(ctx, key, id)
			}
			continue
		}

		// No live record at this slot key. Relocate an existing record
		// holding the same item (it moved locally but its remote
		// record is still at its old slot) before creating anything.
		if rec := snap.recordForItem(s.Item, consumed); rec != nil {
			if id, ok := e.updateWithRecovery(ctx, owner, rec.ID, key, s, snap, consumed, opts.AllowCreate); ok {
				changed = true
				consumed[id] = true
				e.confirmSlot(ctx, key, id)
			}
			continue
		}
		if !opts.AllowCreate {
			// Leave the slot unreconciled for this cycle.
			continue
		}
		if id, ok := e.createAt(ctx, owner, key, s); ok {
			changed = true
			consumed[id] = true
			e.confirmSlot(ctx, key, id)
		}
	}

	// Pass 2: delete sweep. State may have changed in Pass 1, so work
	// from a fresh fetch and a fresh view of the local slots.
	e.mu.Lock()
	if inv := e.inventories[name]; inv != nil {
		local = make([]inventory.Slot, len(inv.Slots))
		copy(local, inv.Slots)
	}
	e.mu.Unlock()

	if sweep, res := e.gw.FetchAll(ctx, owner); res.OK {
		bySlot := make(map[int]*models.Record)
		for i := range sweep {
			rec := &sweep[i]
			if rec.Inventory == name {
				if _, exists := bySlot[rec.SlotIndex]; !exists {
					bySlot[rec.SlotIndex] = rec
				}
			}
		}
		for i := range local {
			if !local[i].IsEmpty() {
				continue
			}
			rec, ok := bySlot[i]
			if !ok {
				continue
			}
			key := SlotKey{Inventory: name, Slot: i}
			if res := e.gw.Delete(ctx, rec.ID); res.OK {
				changed = true
				e.mu.Lock()
				e.cache.remove(key)
				e.cache.removeRecord(rec.ID)
				e.mu.Unlock()
			} else {
				logSkip("delete", key, res)
			}
		}
	} else {
		logSkip("sweep fetch", SlotKey{Inventory: name}, res)
	}

	// Post-pass: pull remote truth back, collapse duplicates, retire
	// pending-move bookkeeping for this inventory.
	reloaded := false
	if changed && opts.ReloadAfter {
		reloaded = e.reloadFromRemote(ctx, owner, name)
	}
	if opts.ReloadAfter {
		if e.normalizeRemote(ctx, owner, name) {
			if e.reloadFromRemote(ctx, owner, name) {
				reloaded = true
			}
		}
		e.mu.Lock()
		e.cache.clearPendingMovesFor(name)
		e.mu.Unlock()
	}
	if reloaded {
		e.notifyReload()
	}
	return changed
}

// recordMatchesSlot reports whether the remote record already mirrors
// the local slot exactly. Inventory name and slot index are implied by
// the bySlot lookup.
func recordMatchesSlot(rec *models.Record, s inventory.Slot) bool {
	return items.ItemID(rec.Item) == s.Item &&
		rec.Quantity == s.Quantity &&
		rec.Quality == s.Quality
}

// updateWithRecovery issues an update and resolves the recoverable
// conflict classes inline. It returns the id of the record that ended
// up backing the slot, which may differ from recordID after a
// redirect or delete-then-recreate.
func (e *Engine) updateWithRecovery(ctx context.Context, owner, recordID string, key SlotKey, s inventory.Slot, snap *remoteSnapshot, consumed map[string]bool, allowCreate bool) (string, bool) {
	req := updateRequest(owner, key, s)
	res := e.gw.Update(ctx, recordID, req)
	switch gateway.Classify(res) {
	case gateway.OutcomeOK:
		return recordID, true
	case gateway.OutcomeSlotOccupied:
		return e.resolveOccupied(ctx, owner, recordID, key, req)
	case gateway.OutcomeNotFound:
		return e.redirectStale(ctx, owner, recordID, key, s, snap, consumed, allowCreate)
	default:
		logSkip("update", key, res)
		return "", false
	}
}

// resolveOccupied handles a SlotOccupied rejection: refetch to see who
// actually sits at the slot, then either delete-and-recreate (the
// occupant is the record we tried to update, a self-conflict) or
// delete the stale occupant and retry the update once.
func (e *Engine) resolveOccupied(ctx context.Context, owner, recordID string, key SlotKey, req models.UpdateRequest) (string, bool) {
	records, res := e.gw.FetchAll(ctx, owner)
	if !res.OK {
		logSkip("conflict refetch", key, res)
		return "", false
	}
	var occupant *models.Record
	for i := range records {
		if records[i].SameSlot(key.Inventory, key.Slot) {
			occupant = &records[i]
			break
		}
	}
	if occupant == nil {
		// The conflicting record vanished between calls; retry once.
		retry := e.gw.Update(ctx, recordID, req)
		if retry.OK {
			return recordID, true
		}
		logSkip("update retry", key, retry)
		return "", false
	}
	if occupant.ID == recordID {
		// Self-conflict: the server claims our own record blocks the
		// slot. Delete it and recreate at the same position.
		if res := e.gw.Delete(ctx, recordID); !res.OK {
			logSkip("self-conflict delete", key, res)
			return "", false
		}
		e.mu.Lock()
		e.cache.removeRecord(recordID)
		e.mu.Unlock()
		id, res := e.gw.Create(ctx, createRequestFromUpdate(req))
		if !res.OK {
			logSkip("self-conflict create", key, res)
			return "", false
		}
		return id, true
	}
	// A different, stale record occupies the slot. Remove it and retry
	// the original update once.
	if res := e.gw.Delete(ctx, occupant.ID); !res.OK {
		logSkip("occupant delete", key, res)
		return "", false
	}
	e.mu.Lock()
	e.cache.removeRecord(occupant.ID)
	e.mu.Unlock()
	retry := e.gw.Update(ctx, recordID, req)
	if retry.OK {
		return recordID, true
	}
	logSkip("update retry", key, retry)
	return "", false
}

// redirectStale handles a NotFound rejection: the cached id is stale.
// If some other record in this inventory holds the item, the record
// moved and the update is redirected to it; otherwise fall back to
// creating a brand-new record at this slot when permitted.
func (e *Engine) redirectStale(ctx context.Context, owner, recordID string, key SlotKey, s inventory.Slot, snap *remoteSnapshot, consumed map[string]bool, allowCreate bool) (string, bool) {
	var moved *models.Record
	for i := range snap.records {
		rec := &snap.records[i]
		if rec.ID == recordID || consumed[rec.ID] {
			continue
		}
		if rec.Inventory == key.Inventory && items.ItemID(rec.Item) == s.Item {
			moved = rec
			break
		}
	}
	if moved != nil {
		req := updateRequest(owner, key, s)
		res := e.gw.Update(ctx, moved.ID, req)
		switch gateway.Classify(res) {
		case gateway.OutcomeOK:
			return moved.ID, true
		case gateway.OutcomeSlotOccupied:
			return e.resolveOccupied(ctx, owner, moved.ID, key, req)
		default:
			logSkip("redirected update", key, res)
			return "", false
		}
	}
	if !allowCreate {
		return "", false
	}
	return e.createAt(ctx, owner, key, s)
}

// createAt creates a brand-new record mirroring the local slot.
func (e *Engine) createAt(ctx context.Context, owner string, key SlotKey, s inventory.Slot) (string, bool) {
	id, res := e.gw.Create(ctx, models.CreateRequest{
		OwnerID:   owner,
		Item:      string(s.Item),
		Quantity:  s.Quantity,
		Inventory: key.Inventory,
		SlotIndex: key.Slot,
		Quality:   s.Quality,
	})
	if !res.OK {
		logSkip("create", key, res)
		return "", false
	}
	return id, true
}

// confirmSlot records the id now backing a slot and finishes any
// pending move targeting it: when the confirmed id differs from the
// pending origin, the origin record is orphaned and gets deleted.
func (e *Engine) confirmSlot(ctx context.Context, key SlotKey, id string) {
	e.mu.Lock()
	e.cache.set(key, id)
	originID, hasPending := e.cache.pendingMove(key)
	if hasPending {
		e.cache.clearPendingMove(key)
	}
	e.mu.Unlock()

	if hasPending && originID != id {
		if res := e.gw.Delete(ctx, originID); res.OK {
			e.mu.Lock()
			e.cache.removeRecord(originID)
			e.mu.Unlock()
		} else {
			logSkip("orphaned origin delete", key, res)
		}
	}
}

// reloadFromRemote overwrites local non-drag-locked slots with the
// server's view of this inventory, making the local state exactly
// mirror remote truth. Unresolvable item identities degrade to a
// placeholder without failing the reload.
func (e *Engine) reloadFromRemote(ctx context.Context, owner, name string) bool {
	records, res := e.gw.FetchAll(ctx, owner)
	if !res.OK {
		logSkip("reload fetch", SlotKey{Inventory: name}, res)
		return false
	}
	bySlot := make(map[int]*models.Record)
	for i := range records {
		rec := &records[i]
		if rec.Inventory == name {
			if _, exists := bySlot[rec.SlotIndex]; !exists {
				bySlot[rec.SlotIndex] = rec
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	inv := e.inventories[name]
	if inv == nil {
		return false
	}
	inv.EnsureSize(e.sizes[name])
	for i := range inv.Slots {
		key := SlotKey{Inventory: name, Slot: i}
		if e.dragLocked[key] {
			continue
		}
		rec, ok := bySlot[i]
		if !ok {
			inv.Slots[i].Clear()
			e.cache.remove(key)
			continue
		}
		item := items.ItemID(rec.Item)
		details := e.catalog.ResolveOrPlaceholder(item)
		inv.Slots[i].Set(item, rec.Quantity, details.StackCap, rec.Quality)
		e.cache.set(key, rec.ID)
	}
	return true
}

func updateRequest(owner string, key SlotKey, s inventory.Slot) models.UpdateRequest {
	return models.UpdateRequest{
		OwnerID:   owner,
		Item:      string(s.Item),
		Quantity:  s.Quantity,
		Inventory: key.Inventory,
		SlotIndex: key.Slot,
		Quality:   s.Quality,
	}
}

func createRequestFromUpdate(req models.UpdateRequest) models.CreateRequest {
	return models.CreateRequest{
		OwnerID:   req.OwnerID,
		Item:      req.Item,
		Quantity:  req.Quantity,
		Inventory: req.Inventory,
		SlotIndex: req.SlotIndex,
		Quality:   req.Quality,
	}
}
