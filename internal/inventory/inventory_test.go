package inventory

import "testing"

func TestAddByItemStacksBeforeFillingEmpty(t *testing.T) {
	inv := New("Backpack", 4)
	if left := inv.AddByItem("seed-carrot", 3, 10, 0); left != 0 {
		t.Fatalf("unexpected leftover: %d", left)
	}
	if left := inv.AddByItem("seed-carrot", 4, 10, 0); left != 0 {
		t.Fatalf("unexpected leftover: %d", left)
	}
	if inv.Slots[0].Quantity != 7 {
		t.Fatalf("expected stacking into slot 0, got qty %d", inv.Slots[0].Quantity)
	}
	if !inv.Slots[1].IsEmpty() {
		t.Fatalf("expected slot 1 to stay empty")
	}
}

func TestAddByItemSplitsAcrossSlots(t *testing.T) {
	inv := New("Backpack", 3)
	if left := inv.AddByItem("crop-potato", 25, 10, 0); left != 0 {
		t.Fatalf("unexpected leftover: %d", left)
	}
	want := []int{10, 10, 5}
	for i, qty := range want {
		if inv.Slots[i].Quantity != qty {
			t.Fatalf("slot %d: expected qty %d, got %d", i, qty, inv.Slots[i].Quantity)
		}
	}
}

func TestAddByItemReportsOverflow(t *testing.T) {
	inv := New("Backpack", 2)
	if left := inv.AddByItem("crop-carrot", 25, 10, 0); left != 5 {
		t.Fatalf("expected leftover 5, got %d", left)
	}
}

func TestRemoveAtClearsOnZero(t *testing.T) {
	inv := New("Backpack", 2)
	inv.AddByItem("seed-carrot", 3, 10, 0)
	inv.RemoveAt(0, 2)
	if inv.Slots[0].Quantity != 1 || inv.Slots[0].Item != "seed-carrot" {
		t.Fatalf("unexpected slot after partial remove: %+v", inv.Slots[0])
	}
	inv.RemoveAt(0, 1)
	if !inv.Slots[0].IsEmpty() || inv.Slots[0].Item != "" {
		t.Fatalf("expected cleared slot, got %+v", inv.Slots[0])
	}
	// invalid index and empty slot are no-ops
	inv.RemoveAt(7, 1)
	inv.RemoveAt(0, 1)
}

func TestSlotQuantityInvariant(t *testing.T) {
	inv := New("Backpack", 3)
	inv.AddByItem("seed-carrot", 5, 10, 0)
	inv.AddByItem("crop-carrot", 2, 10, 0)
	inv.RemoveAt(0, 5)
	inv.Move(1, inv, 2)
	for i := range inv.Slots {
		s := inv.Slots[i]
		if (s.Quantity == 0) != (s.Item == "") {
			t.Fatalf("slot %d violates quantity/item invariant: %+v", i, s)
		}
	}
}

func TestFindScansAreLeftToRight(t *testing.T) {
	inv := New("Backpack", 4)
	inv.Slots[1].Set("seed-carrot", 2, 10, 0)
	inv.Slots[3].Set("seed-carrot", 1, 10, 0)
	if i, ok := inv.FindFirstEmpty(); !ok || i != 0 {
		t.Fatalf("expected first empty at 0, got %d (%v)", i, ok)
	}
	if i, ok := inv.FindStackable("seed-carrot"); !ok || i != 1 {
		t.Fatalf("expected first stackable at 1, got %d (%v)", i, ok)
	}
	inv.Slots[1].Quantity = 10 // full
	if i, ok := inv.FindStackable("seed-carrot"); !ok || i != 3 {
		t.Fatalf("expected full slot skipped, got %d (%v)", i, ok)
	}
}

func TestMoveIntoEmptyRelocates(t *testing.T) {
	inv := New("Backpack", 3)
	inv.Slots[0].Set("tool-hoe", 1, 1, 0)
	if kind := inv.Move(0, inv, 2); kind != MoveRelocated {
		t.Fatalf("expected relocation, got %v", kind)
	}
	if !inv.Slots[0].IsEmpty() || inv.Slots[2].Item != "tool-hoe" {
		t.Fatalf("unexpected state after relocate: %s", inv)
	}
}

func TestMoveSameItemMerges(t *testing.T) {
	inv := New("Backpack", 2)
	inv.Slots[0].Set("seed-carrot", 3, 64, 0)
	inv.Slots[1].Set("seed-carrot", 4, 64, 0)
	if kind := inv.Move(0, inv, 1); kind != MoveMerged {
		t.Fatalf("expected merge, got %v", kind)
	}
	if !inv.Slots[0].IsEmpty() || inv.Slots[1].Quantity != 7 {
		t.Fatalf("unexpected state after merge: %s", inv)
	}
}

func TestMoveDifferentItemsSwaps(t *testing.T) {
	a := New("Backpack", 2)
	b := New("Toolbar", 2)
	a.Slots[0].Set("seed-carrot", 3, 64, 0)
	b.Slots[1].Set("tool-hoe", 1, 1, 0)
	if kind := a.Move(0, b, 1); kind != MoveSwapped {
		t.Fatalf("expected swap, got %v", kind)
	}
	if a.Slots[0].Item != "tool-hoe" || b.Slots[1].Item != "seed-carrot" {
		t.Fatalf("unexpected state after swap: %s / %s", a, b)
	}
}

func TestMoveInvalidCoordinates(t *testing.T) {
	inv := New("Backpack", 2)
	inv.Slots[0].Set("seed-carrot", 1, 64, 0)
	if kind := inv.Move(0, inv, 5); kind != MoveInvalid {
		t.Fatalf("expected invalid move for out-of-range destination")
	}
	if kind := inv.Move(1, inv, 0); kind != MoveInvalid {
		t.Fatalf("expected invalid move for empty source")
	}
	if kind := inv.Move(0, inv, 0); kind != MoveInvalid {
		t.Fatalf("expected invalid move for same slot")
	}
}

func TestEnsureSizePadsAndTruncates(t *testing.T) {
	inv := New("Backpack", 2)
	inv.EnsureSize(4)
	if len(inv.Slots) != 4 {
		t.Fatalf("expected 4 slots after pad, got %d", len(inv.Slots))
	}
	inv.EnsureSize(3)
	if len(inv.Slots) != 3 {
		t.Fatalf("expected 3 slots after truncate, got %d", len(inv.Slots))
	}
}

func TestSelection(t *testing.T) {
	inv := New("Toolbar", 3)
	inv.Select(2)
	if inv.Selected != 2 || inv.SelectedSlot() == nil {
		t.Fatalf("expected selection at 2")
	}
	inv.Select(9)
	if inv.Selected != NoSelection || inv.SelectedSlot() != nil {
		t.Fatalf("expected cleared selection for invalid index")
	}
}
