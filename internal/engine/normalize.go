package engine

import (
	"context"
	"log"
	"sort"

	"github.com/gravitas-games/farmsync/pkg/models"
)

// Normalize collapses duplicate remote records for one named
// inventory: any group of records sharing an item identity is merged
// into a single survivor whose quantity is the sum of the group. The
// survivor is the record with the lowest id, which keeps the choice
// deterministic. Returns whether anything changed; callers typically
// reload local state afterward.
func (e *Engine) Normalize(ctx context.Context, name string) bool {
	if e.session == nil || !e.session.IsReady() {
		log.Printf("Normalize skipped for %s: session not ready", name)
		return false
	}
	owner := e.session.CurrentOwnerID()
	return e.normalizeRemote(ctx, owner, name)
}

func (e *Engine) normalizeRemote(ctx context.Context, owner, name string) bool {
	records, res := e.gw.FetchAll(ctx, owner)
	if !res.OK {
		logSkip("normalize fetch", SlotKey{Inventory: name}, res)
		return false
	}

	groups := make(map[string][]models.Record)
	for _, rec := range records {
		if rec.Inventory != name {
			continue
		}
		groups[rec.Item] = append(groups[rec.Item], rec)
	}

	changed := false
	for item, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		survivor := group[0]
		total := 0
		for _, rec := range group {
			total += rec.Quantity
		}

		key := SlotKey{Inventory: name, Slot: survivor.SlotIndex}
		res := e.gw.Update(ctx, survivor.ID, models.UpdateRequest{
			OwnerID:   owner,
			Item:      survivor.Item,
			Quantity:  total,
			Inventory: survivor.Inventory,
			SlotIndex: survivor.SlotIndex,
			Quality:   survivor.Quality,
		})
		if !res.OK {
			logSkip("normalize update", key, res)
			continue
		}
		changed = true
		log.Printf("Merged %d duplicate records of %s in %s into %s (qty %d)",
			len(group), item, name, survivor.ID, total)

		e.mu.Lock()
		e.cache.set(key, survivor.ID)
		e.mu.Unlock()

		for _, rec := range group[1:] {
			if res := e.gw.Delete(ctx, rec.ID); res.OK {
				e.mu.Lock()
				e.cache.removeRecord(rec.ID)
				e.mu.Unlock()
			} else {
				logSkip("normalize delete", SlotKey{Inventory: name, Slot: rec.SlotIndex}, res)
			}
		}
	}
	return changed
}
