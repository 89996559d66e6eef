package inventory

import "github.com/gravitas-games/farmsync/internal/items"

// Slot is one addressable position in an Inventory. A slot holds at
// most one item identity and a quantity. Emptiness is defined solely by
// quantity: Quantity == 0 if and only if Item == "".
type Slot struct {
	Item     items.ItemID `json:"item,omitempty"`
	Quantity int          `json:"qty"`
	StackCap int          `json:"stackCap,omitempty"`
	Quality  int          `json:"quality,omitempty"`
}

// IsEmpty reports whether the slot holds nothing.
func (s *Slot) IsEmpty() bool {
	return s.Quantity == 0
}

// Clear empties the slot, restoring the empty-slot invariant.
func (s *Slot) Clear() {
	*s = Slot{}
}

// Set fills the slot with the given contents. A non-positive quantity
// clears the slot instead.
func (s *Slot) Set(item items.ItemID, qty, stackCap, quality int) {
	if qty <= 0 {
		s.Clear()
		return
	}
	if stackCap <= 0 {
		stackCap = 1
	}
	s.Item = item
	s.Quantity = qty
	s.StackCap = stackCap
	s.Quality = quality
}

// Remaining returns the spare capacity left in the slot.
func (s *Slot) Remaining() int {
	if s.IsEmpty() {
		return 0
	}
	r := s.StackCap - s.Quantity
	if r < 0 {
		return 0
	}
	return r
}
