package inventory

// Package inventory provides the local, slot-indexed store the player
// mutates directly. It is purely in-memory and synchronous; remote
// reconciliation is the engine's job, never this package's.

import (
	"fmt"

	"github.com/gravitas-games/farmsync/internal/items"
)

// NoSelection marks an inventory with no selected slot.
const NoSelection = -1

// MoveKind describes which sub-case a move between two slots took.
type MoveKind int

const (
	// MoveInvalid means a coordinate was out of range; nothing changed.
	MoveInvalid MoveKind = iota
	// MoveRelocated means the stack moved into an empty destination.
	MoveRelocated
	// MoveMerged means the destination held the same item and absorbed
	// the source quantity.
	MoveMerged
	// MoveSwapped means the two slots exchanged their full contents.
	MoveSwapped
)

// Inventory is an ordered, fixed-length collection of slots for one
// named container ("Backpack", "Toolbar", ...). The slot count is set
// at creation and never resized at runtime.
type Inventory struct {
	Name     string `json:"name"`
	Slots    []Slot `json:"slots"`
	Selected int    `json:"selected"`
}

// New creates an inventory with the given number of empty slots.
func New(name string, size int) *Inventory {
	if size < 0 {
		size = 0
	}
	return &Inventory{
		Name:     name,
		Slots:    make([]Slot, size),
		Selected: NoSelection,
	}
}

// ValidIndex reports whether i addresses a slot.
func (inv *Inventory) ValidIndex(i int) bool {
	return i >= 0 && i < len(inv.Slots)
}

// Select moves the selected-slot cursor. An invalid index clears the
// selection.
func (inv *Inventory) Select(i int) {
	if !inv.ValidIndex(i) {
		inv.Selected = NoSelection
		return
	}
	inv.Selected = i
}

// SelectedSlot returns the slot under the cursor, or nil if none.
func (inv *Inventory) SelectedSlot() *Slot {
	if !inv.ValidIndex(inv.Selected) {
		return nil
	}
	return &inv.Slots[inv.Selected]
}

// EnsureSize pads or truncates the slot list back to the configured
// length. Called defensively before reconciliation so every index in
// range addresses a real slot.
func (inv *Inventory) EnsureSize(size int) {
	if size < 0 {
		size = 0
	}
	for len(inv.Slots) < size {
		inv.Slots = append(inv.Slots, Slot{})
	}
	if len(inv.Slots) > size {
		inv.Slots = inv.Slots[:size]
	}
	if !inv.ValidIndex(inv.Selected) {
		inv.Selected = NoSelection
	}
}

// Reset empties every slot. The inventory itself lives for the whole
// session; it is never destroyed, only reset.
func (inv *Inventory) Reset() {
	for i := range inv.Slots {
		inv.Slots[i].Clear()
	}
}

// FindFirstEmpty returns the index of the leftmost empty slot.
// Deterministic left-to-right scan; first match wins.
func (inv *Inventory) FindFirstEmpty() (int, bool) {
	for i := range inv.Slots {
		if inv.Slots[i].IsEmpty() {
			return i, true
		}
	}
	return -1, false
}

// FindStackable returns the index of the leftmost slot holding the
// given item with spare capacity. Deterministic left-to-right scan.
func (inv *Inventory) FindStackable(item items.ItemID) (int, bool) {
	for i := range inv.Slots {
		s := &inv.Slots[i]
		if !s.IsEmpty() && s.Item == item && s.Remaining() > 0 {
			return i, true
		}
	}
	return -1, false
}

// FindItem returns the index of the leftmost slot holding the given
// item regardless of capacity.
func (inv *Inventory) FindItem(item items.ItemID) (int, bool) {
	for i := range inv.Slots {
		s := &inv.Slots[i]
		if !s.IsEmpty() && s.Item == item {
			return i, true
		}
	}
	return -1, false
}

// AddByItem places qty units of an item, stacking into existing slots
// with spare capacity first, then filling empty slots left to right,
// splitting across slots when a single slot's cap is exceeded.
// It returns the amount that could not be placed; zero means fully
// placed, nonzero signals the inventory is full.
func (inv *Inventory) AddByItem(item items.ItemID, qty, stackCap, quality int) int {
	if qty <= 0 {
		return 0
	}
	if stackCap <= 0 {
		stackCap = 1
	}
	for qty > 0 {
		i, ok := inv.FindStackable(item)
		if !ok {
			break
		}
		s := &inv.Slots[i]
		take := s.Remaining()
		if take > qty {
			take = qty
		}
		s.Quantity += take
		qty -= take
	}
	for qty > 0 {
		i, ok := inv.FindFirstEmpty()
		if !ok {
			break
		}
		take := qty
		if take > stackCap {
			take = stackCap
		}
		inv.Slots[i].Set(item, take, stackCap, quality)
		qty -= take
	}
	return qty
}

// RemoveAt decrements the slot at index by qty, clearing it when the
// quantity reaches zero. Invalid indexes and already-empty slots are
// no-ops.
func (inv *Inventory) RemoveAt(index, qty int) {
	if !inv.ValidIndex(index) || qty <= 0 {
		return
	}
	s := &inv.Slots[index]
	if s.IsEmpty() {
		return
	}
	s.Quantity -= qty
	if s.Quantity <= 0 {
		s.Clear()
	}
}

// Move applies the move/swap/stack rule between a source slot in this
// inventory and a destination slot in dst (which may be the same
// inventory):
//
//   - destination empty: the stack relocates.
//   - destination holds the same item: quantities merge into the
//     destination and the source clears.
//   - otherwise: the two slots swap their full contents.
//
// Pure and synchronous; issuing remote calls is strictly the caller's
// job.
func (inv *Inventory) Move(srcIdx int, dst *Inventory, dstIdx int) MoveKind {
	if dst == nil || !inv.ValidIndex(srcIdx) || !dst.ValidIndex(dstIdx) {
		return MoveInvalid
	}
	if inv == dst && srcIdx == dstIdx {
		return MoveInvalid
	}
	src := &inv.Slots[srcIdx]
	if src.IsEmpty() {
		return MoveInvalid
	}
	target := &dst.Slots[dstIdx]
	switch {
	case target.IsEmpty():
		*target = *src
		src.Clear()
		return MoveRelocated
	case target.Item == src.Item:
		target.Quantity += src.Quantity
		src.Clear()
		return MoveMerged
	default:
		*src, *target = *target, *src
		return MoveSwapped
	}
}

// Count returns the total quantity of an item across all slots.
func (inv *Inventory) Count(item items.ItemID) int {
	total := 0
	for i := range inv.Slots {
		if inv.Slots[i].Item == item {
			total += inv.Slots[i].Quantity
		}
	}
	return total
}

// String returns a compact debug rendering of the slot list.
func (inv *Inventory) String() string {
	out := inv.Name + "["
	for i := range inv.Slots {
		if i > 0 {
			out += " "
		}
		s := &inv.Slots[i]
		if s.IsEmpty() {
			out += "-"
		} else {
			out += fmt.Sprintf("%s:%d", s.Item, s.Quantity)
		}
	}
	return out + "]"
}
